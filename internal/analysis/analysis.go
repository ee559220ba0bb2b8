// ABOUTME: Commentary client over the OpenAI chat completions API
// ABOUTME: Picks a system prompt per role and reports failures through a sentinel string

package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/2389/coven-gradebook/internal/config"
	"github.com/2389/coven-gradebook/internal/store"
)

// ErrorSentinel marks a response that carries no commentary.
const ErrorSentinel = "_@_error_@_"

// IsError reports whether a response from Respond is a failure.
func IsError(response string) bool {
	return strings.Contains(response, ErrorSentinel)
}

var prompts = map[store.Role]string{
	store.RoleManager: "تو یک مشاور آموزشی برای مدیر مدرسه هستی. آمار دروس دوره‌های مختلف را تحلیل کن، " +
		"نقاط ضعف و قوت را کوتاه بگو و چند پیشنهاد عملی برای بهبود بده.",
	store.RoleTeacher: "تو یک مشاور آموزشی برای معلم هستی. خلاصه آماری نمرات کلاس را تحلیل کن و " +
		"در چند جمله کوتاه وضعیت کلاس و پیشنهادهای آموزشی را بگو.",
	store.RoleStudent: "تو یک مشاور تحصیلی مهربان برای دانش‌آموز هستی. کارنامه را بخوان و در چند جمله " +
		"کوتاه نقاط قوت را تشویق کن و برای درس‌های ضعیف راهکار بده.",
}

// Client produces commentary through a chat completions endpoint.
type Client struct {
	api     openai.Client
	model   string
	timeout time.Duration
	enabled bool
	logger  *slog.Logger
}

// New builds a client from the analysis configuration. A disabled
// configuration yields a client whose every response is an error.
func New(cfg config.AnalysisConfig, logger *slog.Logger) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		api:     openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		enabled: cfg.Enabled,
		logger:  logger.With("component", "analysis"),
	}
}

// Respond returns commentary on question written for the given role.
func (c *Client) Respond(ctx context.Context, role store.Role, question string) string {
	if !c.enabled {
		return ErrorSentinel + " disabled"
	}
	prompt, ok := prompts[role]
	if !ok {
		return fmt.Sprintf("%s unknown role %q", ErrorSentinel, string(role))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt),
			openai.UserMessage(question),
		},
	})
	if err != nil {
		c.logger.Warn("commentary request failed", "role", role, "error", err)
		return ErrorSentinel + " " + err.Error()
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		c.logger.Warn("empty commentary", "role", role)
		return ErrorSentinel + " empty response"
	}

	c.logger.Debug("commentary received", "role", role, "duration", time.Since(start))
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
