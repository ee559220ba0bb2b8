// ABOUTME: Matrix bridge: logs in the bot account, routes room messages to the conversation layer
// ABOUTME: and delivers its replies; messages of one room are handled in arrival order

package matrix

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/coven-gradebook/internal/config"
	"github.com/2389/coven-gradebook/internal/conversation"
	"github.com/2389/coven-gradebook/internal/dedupe"
)

// Handler consumes inbound messages. *conversation.Service implements it.
type Handler interface {
	Handle(ctx context.Context, in conversation.Inbound) error
}

const (
	// typingTimeout is how long the typing indicator shows.
	typingTimeout = 30 * time.Second
	// networkTimeout bounds small Matrix API calls.
	networkTimeout = 10 * time.Second
	// sendTimeout bounds message sends and media uploads.
	sendTimeout = 60 * time.Second
	// dedupeCapacity caps the number of remembered event IDs.
	dedupeCapacity = 10000
	// roomQueueSize is the number of messages buffered per room.
	roomQueueSize = 32
	// workerIdleTimeout is how long a room worker waits for a message
	// before it exits.
	workerIdleTimeout = 5 * time.Minute
)

type job struct {
	eventID id.EventID
	in      conversation.Inbound
}

// Bridge connects the bot account to the conversation layer.
type Bridge struct {
	cfg     config.MatrixConfig
	client  *mautrix.Client
	handler Handler
	seen    *dedupe.Window
	logger  *slog.Logger

	mu          sync.Mutex
	queues      map[id.RoomID]chan job
	wg          sync.WaitGroup
	idleTimeout time.Duration

	started time.Time
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewBridge creates a bridge for the configured homeserver. Login must be
// called before Run.
func NewBridge(cfg config.MatrixConfig, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := mautrix.NewClient(cfg.Homeserver, "", "")
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	return &Bridge{
		cfg:    cfg,
		client: client,
		seen:   dedupe.New(cfg.DedupeTTL, dedupeCapacity),
		logger: logger.With("component", "matrix"),
		queues: make(map[id.RoomID]chan job),

		idleTimeout: workerIdleTimeout,
	}, nil
}

// Client returns the underlying Matrix client.
func (b *Bridge) Client() *mautrix.Client { return b.client }

// UserID returns the logged-in bot user.
func (b *Bridge) UserID() string { return b.client.UserID.String() }

// Login authenticates the bot account with its password.
func (b *Bridge) Login(ctx context.Context) error {
	resp, err := b.client.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: b.cfg.Username,
		},
		Password:                 b.cfg.Password,
		InitialDeviceDisplayName: b.cfg.DeviceName,
		StoreCredentials:         true,
	})
	if err != nil {
		return fmt.Errorf("password login as %s: %w", b.cfg.Username, err)
	}
	b.logger.Info("logged in to matrix",
		"user_id", resp.UserID.String(),
		"device_id", resp.DeviceID.String(),
	)
	return nil
}

// Run syncs with the homeserver until ctx is cancelled, routing messages
// to handler.
func (b *Bridge) Run(ctx context.Context, handler Handler) error {
	b.logger.Info("starting matrix bridge",
		"homeserver", b.cfg.Homeserver,
		"user_id", b.UserID(),
		"allowed_rooms", len(b.cfg.AllowedRooms),
	)
	b.start(ctx, handler)
	defer b.stop()

	syncer, ok := b.client.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.client.Syncer)
	}
	syncer.OnEventType(event.EventMessage, b.handleMessageEvent)
	syncer.OnEventType(event.StateMember, b.handleMemberEvent)

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.client.SyncWithContext(b.ctx)
	}()
	b.logger.Info("matrix bridge running")

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bridge")
		return nil
	case err := <-syncErr:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

func (b *Bridge) start(ctx context.Context, handler Handler) {
	b.handler = handler
	b.started = time.Now()
	b.ctx, b.cancel = context.WithCancel(ctx)
}

// stop cancels processing and waits for the room workers to exit.
func (b *Bridge) stop() {
	b.cancel()
	b.wg.Wait()
}

// handleMessageEvent filters an incoming room message and queues it for
// the room's worker.
func (b *Bridge) handleMessageEvent(ctx context.Context, evt *event.Event) {
	if evt.Sender == b.client.UserID || b.isIgnored(evt.Sender) {
		return
	}
	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok {
		return
	}
	if content.MsgType != event.MsgText && content.MsgType != event.MsgNotice {
		return
	}
	if !b.isRoomAllowed(evt.RoomID) {
		b.logger.Debug("ignoring message from non-allowed room", "room", evt.RoomID.String())
		return
	}
	if evt.Timestamp < b.started.UnixMilli() {
		b.logger.Debug("ignoring message sent before startup", "room", evt.RoomID.String(), "event_id", evt.ID.String())
		return
	}
	if b.seen.Seen(evt.ID.String()) {
		b.logger.Debug("dropping duplicate event", "event_id", evt.ID.String())
		return
	}

	b.logger.Info("received message",
		"room", evt.RoomID.String(),
		"sender", evt.Sender.String(),
		"content", truncate(content.Body, 50),
	)

	b.enqueue(evt.RoomID, job{
		eventID: evt.ID,
		in: conversation.Inbound{
			ChatID:   evt.RoomID.String(),
			SenderID: evt.Sender.String(),
			Text:     content.Body,
			FromBot:  content.MsgType == event.MsgNotice,
		},
	})
}

// handleMemberEvent joins rooms the bot is invited to, so a user can start
// a private chat with it.
func (b *Bridge) handleMemberEvent(ctx context.Context, evt *event.Event) {
	if evt.GetStateKey() != b.client.UserID.String() {
		return
	}
	member, ok := evt.Content.Parsed.(*event.MemberEventContent)
	if !ok || member.Membership != event.MembershipInvite {
		return
	}
	if !b.isRoomAllowed(evt.RoomID) {
		b.logger.Info("declining invite to non-allowed room", "room", evt.RoomID.String(), "inviter", evt.Sender.String())
		return
	}

	joinCtx, cancel := context.WithTimeout(b.ctx, networkTimeout)
	defer cancel()
	if _, err := b.client.JoinRoomByID(joinCtx, evt.RoomID); err != nil {
		b.logger.Error("failed to join room", "room", evt.RoomID.String(), "error", err)
		return
	}
	b.logger.Info("joined room", "room", evt.RoomID.String(), "inviter", evt.Sender.String())
}

// enqueue hands j to the worker of room, starting one if needed. When the
// queue is full the message is dropped and its event forgotten so a
// redelivery is handled. Sends happen under mu so a retiring worker never
// leaves a message behind in its channel.
func (b *Bridge) enqueue(room id.RoomID, j job) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[room]
	if !ok {
		q = make(chan job, roomQueueSize)
		b.queues[room] = q
		b.wg.Add(1)
		go b.work(room, q)
	}

	select {
	case q <- j:
	default:
		b.logger.Warn("room queue full, dropping message", "room", room.String(), "event_id", j.eventID.String())
		b.seen.Forget(j.eventID.String())
	}
}

// work handles the messages of one room in order. It exits when the bridge
// stops or when the room has been idle for idleTimeout.
func (b *Bridge) work(room id.RoomID, q chan job) {
	defer b.wg.Done()

	idle := time.NewTimer(b.idleTimeout)
	defer idle.Stop()
	for {
		select {
		case <-b.ctx.Done():
			return
		case j := <-q:
			b.process(room, j)
			idle.Reset(b.idleTimeout)
		case <-idle.C:
			if b.retire(room, q) {
				return
			}
			idle.Reset(b.idleTimeout)
		}
	}
}

// retire removes the worker of room when nothing is waiting in q.
func (b *Bridge) retire(room id.RoomID, q chan job) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(q) > 0 {
		return false
	}
	delete(b.queues, room)
	b.logger.Debug("room worker idle, exiting", "room", room.String())
	return true
}

// workers returns the number of running room workers.
func (b *Bridge) workers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues)
}

func (b *Bridge) process(room id.RoomID, j job) {
	if b.cfg.TypingIndicator && !j.in.FromBot {
		b.setTyping(room, true)
		defer b.setTyping(room, false)
	}
	if err := b.handler.Handle(b.ctx, j.in); err != nil {
		b.logger.Error("failed to handle message", "room", room.String(), "event_id", j.eventID.String(), "error", err)
		b.seen.Forget(j.eventID.String())
	}
}

func (b *Bridge) isRoomAllowed(room id.RoomID) bool {
	if len(b.cfg.AllowedRooms) == 0 {
		return true
	}
	return slices.Contains(b.cfg.AllowedRooms, room.String())
}

func (b *Bridge) isIgnored(user id.UserID) bool {
	return slices.Contains(b.cfg.IgnoredUsers, user.String())
}

func (b *Bridge) setTyping(room id.RoomID, typing bool) {
	var timeout time.Duration
	if typing {
		timeout = typingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()
	if _, err := b.client.UserTyping(ctx, room, typing, timeout); err != nil {
		b.logger.Debug("failed to set typing indicator", "room", room.String(), "error", err)
	}
}

// SendText sends a text reply to a room.
func (b *Bridge) SendText(ctx context.Context, chatID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if _, err := b.client.SendMessageEvent(ctx, id.RoomID(chatID), event.EventMessage, noticeContent(text)); err != nil {
		return fmt.Errorf("sending message to %s: %w", chatID, err)
	}
	return nil
}

// SendPhoto uploads the image at path and posts it to a room with caption.
// The file itself is left in place; the caller owns it.
func (b *Bridge) SendPhoto(ctx context.Context, chatID, path, caption string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	img := imageInfo{
		FileName: filepath.Base(path),
		MimeType: http.DetectContentType(data),
		Size:     len(data),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		img.Width, img.Height = cfg.Width, cfg.Height
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, err := b.client.UploadBytes(ctx, data, img.MimeType)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", img.FileName, err)
	}
	img.URI = resp.ContentURI

	if _, err := b.client.SendMessageEvent(ctx, id.RoomID(chatID), event.EventMessage, imageContent(img, caption)); err != nil {
		return fmt.Errorf("sending image to %s: %w", chatID, err)
	}
	return nil
}

// truncate shortens s to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
