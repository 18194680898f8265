// Package coach turns a learner's recent attempts into a short practice
// recommendation written by a chat model.
package coach

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/verte-zerg/signdrill/internal/model"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4"

// Fixed tips used when the model is not consulted or fails.
const (
	NoAttemptsTip = "Start practicing ASL letters to get personalized recommendations!"
	NoClientTip   = "Keep practicing! Focus on the letters you find most challenging."
	EmptyReplyTip = "Keep up the great work! Practice makes perfect."
	FailureTip    = "Keep practicing! Small steps lead to big progress."
)

const systemPrompt = "You are a helpful ASL learning coach."

// Coach writes recommendations. A Coach without an API key always answers
// with a fixed tip.
type Coach struct {
	client *oai.Client
	model  string
	logger *slog.Logger
}

type config struct {
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Coach.
type Option func(*config)

// WithBaseURL overrides the OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithLogger sets the logger for failed requests.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// New creates a Coach. An empty apiKey yields an offline coach.
func New(apiKey, modelName string, opts ...Option) *Coach {
	cfg := &config{logger: slog.Default()}
	for _, o := range opts {
		o(cfg)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	c := &Coach{model: modelName, logger: cfg.logger}
	if apiKey == "" {
		return c
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}
	client := oai.NewClient(reqOpts...)
	c.client = &client
	return c
}

// Recommend returns one or two sentences on what to practice next. It never
// fails; every error path maps to a fixed tip.
func (c *Coach) Recommend(ctx context.Context, attempts []model.Attempt) string {
	if len(attempts) == 0 {
		return NoAttemptsTip
	}
	if c == nil || c.client == nil {
		return NoClientTip
	}

	resp, err := c.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(prompt(attempts)),
		},
		MaxCompletionTokens: param.NewOpt(int64(60)),
		Temperature:         param.NewOpt(0.7),
	})
	if err != nil {
		c.logger.Warn("coach request failed", "err", err)
		return FailureTip
	}
	if len(resp.Choices) == 0 {
		return EmptyReplyTip
	}
	tip := strings.TrimSpace(resp.Choices[0].Message.Content)
	if tip == "" {
		return EmptyReplyTip
	}
	return tip
}

// Summary renders attempts as "A: ✓ (attempt 1), B: ✗ (attempt 2)".
func Summary(attempts []model.Attempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		mark := "✗"
		if a.IsCorrect {
			mark = "✓"
		}
		parts = append(parts, fmt.Sprintf("%s: %s (attempt %d)", a.Letter, mark, a.AttemptNumber))
	}
	return strings.Join(parts, ", ")
}

func prompt(attempts []model.Attempt) string {
	return fmt.Sprintf(`You are an encouraging ASL learning coach. Based on this student's ASL practice attempts, write 1-2 short sentences (max 20 words) suggesting which letters to focus on next.

Practice attempts: %s

Be specific, encouraging, and actionable. Identify patterns and suggest what to practice.`, Summary(attempts))
}
