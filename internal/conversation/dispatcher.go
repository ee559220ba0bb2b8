// ABOUTME: Service routes inbound chat messages to the login gate or the engine owning the session
// ABOUTME: Handles reset commands, the password token, panics and the reset sentinel returned by engines

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/2389/coven-gradebook/internal/chart"
	"github.com/2389/coven-gradebook/internal/persian"
	"github.com/2389/coven-gradebook/internal/session"
)

// Service is the conversation layer between the chat transport and the
// gradebook. It owns the session store; messages of one chat must be
// delivered sequentially, different chats may be handled concurrently.
type Service struct {
	store     Store
	messenger Messenger
	charts    Charts
	analyst   Analyst
	sessions  *session.Store
	now       func() time.Time
	logger    *slog.Logger
}

// New creates a conversation Service.
func New(store Store, messenger Messenger, charts Charts, analyst Analyst, sessions *session.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		messenger: messenger,
		charts:    charts,
		analyst:   analyst,
		sessions:  sessions,
		now:       time.Now,
		logger:    logger.With("component", "conversation"),
	}
}

// turn carries what a step needs to reply to the message being handled.
type turn struct {
	ctx    context.Context
	chatID string
	sender string
	logger *slog.Logger
}

// Handle processes one inbound message. Failures to deliver replies are
// logged, not returned; the returned error is only for messages that could
// not be handled at all.
func (s *Service) Handle(ctx context.Context, in Inbound) error {
	if in.FromBot {
		return nil
	}
	text := strings.TrimSpace(persian.NormalizeDigits(in.Text))
	if text == "" {
		return nil
	}

	t := &turn{
		ctx:    ctx,
		chatID: in.ChatID,
		sender: in.SenderID,
		logger: s.logger.With("chat_id", in.ChatID, "sender", in.SenderID),
	}

	if strings.EqualFold(text, cmdStart) || text == cmdExit {
		s.reset(t)
		return nil
	}

	sess, ok := s.sessions.Get(in.ChatID)
	if !ok || sess.State == nil {
		s.reset(t)
		return nil
	}
	sess.Contact = in.SenderID

	prev := sess.State
	next, err := s.step(t, prev.Clone(), text)
	if err != nil {
		t.logger.Error("handling message failed", "state", prev.Name(), "error", err)
		s.say(t, msgGenericError)
		return nil
	}

	if session.IsReset(next) {
		s.reset(t)
		return nil
	}
	if !next.Valid() {
		t.logger.Error("engine produced invalid state", "from", prev.Name(), "to", next.Name())
		s.say(t, msgGenericError)
		return nil
	}

	if next.Name() != prev.Name() {
		t.logger.Debug("state transition", "from", prev.Name(), "to", next.Name())
	}
	sess.State = next
	s.sessions.Put(sess)
	return nil
}

// step runs the handler for st. Panics are converted to errors so the
// caller keeps the state the message started from.
func (s *Service) step(t *turn, st session.State, text string) (next session.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v\n%s", st.Name(), r, debug.Stack())
		}
	}()

	if text == tokenPassword {
		if acc, ok := session.AccountOf(st); ok {
			if _, changing := st.(*session.PasswordState); !changing {
				s.say(t, msgAskNewPassword)
				return &session.PasswordState{Account: acc}, nil
			}
		}
	}

	switch cur := st.(type) {
	case *session.GateState:
		return s.handleGate(t, cur, text)
	case *session.PasswordState:
		return s.handlePassword(t, cur, text)
	case *session.ManagerState:
		return s.handleManager(t, cur, text)
	case *session.TeacherState:
		return s.handleTeacher(t, cur, text)
	case *session.StudentState:
		return s.handleStudent(t, cur, text)
	}
	return nil, fmt.Errorf("no handler for state %s", st.Name())
}

// reset starts a fresh session at the role prompt.
func (s *Service) reset(t *turn) {
	s.sessions.Put(&session.Session{
		Identity: t.chatID,
		Contact:  t.sender,
		State:    session.NewGate(),
	})
	s.say(t, msgResetPrompt)
}

// Sessions returns the number of live sessions.
func (s *Service) Sessions() int {
	return s.sessions.Len()
}

// say sends text to the chat of the current turn.
func (s *Service) say(t *turn, text string) {
	s.sayTo(t, t.chatID, text)
}

// sayTo sends text to an arbitrary chat and reports whether it was delivered.
func (s *Service) sayTo(t *turn, chatID, text string) bool {
	if err := s.messenger.SendText(t.ctx, chatID, text); err != nil {
		t.logger.Error("failed to send message", "to", chatID, "error", err)
		return false
	}
	return true
}

// sendChart delivers a rendered chart and removes the file whether or not
// the send succeeded. A render error is logged; fallback is sent instead of
// the image when it is not empty.
func (s *Service) sendChart(t *turn, kind, path string, renderErr error, caption, fallback string) bool {
	if renderErr != nil {
		if errors.Is(renderErr, chart.ErrNoData) {
			t.logger.Debug("chart skipped, no data", "chart", kind)
		} else {
			t.logger.Error("chart rendering failed", "chart", kind, "error", renderErr)
		}
		if fallback != "" {
			s.say(t, fallback)
		}
		return false
	}
	defer removeChart(t, path)

	if err := s.messenger.SendPhoto(t.ctx, t.chatID, path, caption); err != nil {
		t.logger.Error("failed to send chart", "chart", kind, "error", err)
		if fallback != "" {
			s.say(t, fallback)
		}
		return false
	}
	return true
}

func removeChart(t *turn, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		t.logger.Warn("failed to remove chart file", "path", path, "error", err)
	}
}

// today renders the Jalali date used in captions.
func (s *Service) today() string {
	return persian.Date(s.now())
}
