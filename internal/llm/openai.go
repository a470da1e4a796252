// Package llm adapts the OpenAI API to the retrieval pipeline's Embedder
// and Generator interfaces. One Client value is constructed at startup and
// shared; it is safe for concurrent use.
//
// A missing API key is detected before any network I/O and reported as
// retrieval.ErrNotConfigured, so an unconfigured service fails fast and
// cheap instead of timing out against the provider.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/foliorag/foliorag/internal/log"
	"github.com/foliorag/foliorag/internal/retrieval"
)

// Answers are deterministic and bounded: decoding parameters are fixed, not
// configurable.
const (
	completionMaxTokens   = 600
	completionTemperature = 0.0
)

// noAnswerFallback stands in when the provider responds without choices.
const noAnswerFallback = "No answer"

// Config carries the provider settings for a Client.
type Config struct {
	// APIKey authenticates against the provider. Empty is allowed at
	// construction; calls then fail with retrieval.ErrNotConfigured.
	APIKey string

	// BaseURL overrides the provider endpoint. Used to point tests at an
	// httptest server and to route through proxies.
	BaseURL string

	// EmbeddingModel and ChatModel select the provider models.
	EmbeddingModel string
	ChatModel      string

	// RequestTimeout bounds each provider call. Zero disables the extra
	// deadline and leaves only the caller's context.
	RequestTimeout time.Duration
}

// Client calls the OpenAI embeddings and chat completion APIs.
type Client struct {
	api            openai.Client
	configured     bool
	embeddingModel string
	chatModel      string
	timeout        time.Duration
	logger         log.Logger
}

// New creates a Client. A nil logger falls back to a no-op logger.
func New(cfg Config, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNop()
	}

	// No step of an invocation is retried; that includes the transport,
	// whose automatic retries are disabled here.
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		api:            openai.NewClient(opts...),
		configured:     cfg.APIKey != "",
		embeddingModel: cfg.EmbeddingModel,
		chatModel:      cfg.ChatModel,
		timeout:        cfg.RequestTimeout,
		logger:         logger,
	}
}

// EmbedQuery turns query text into an embedding vector.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if !c.configured {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", retrieval.ErrNotConfigured)
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
		Model: openai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding response carries no vector")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}

	c.logger.Debug("embedded query", "model", c.embeddingModel, "dimensions", len(vec))
	return vec, nil
}

// Complete sends the chat sequence to the provider and returns the first
// choice's content. A structurally valid response without choices yields
// the literal "No answer".
func (c *Client) Complete(ctx context.Context, messages []retrieval.Message) (string, error) {
	if !c.configured {
		return "", fmt.Errorf("%w: OPENAI_API_KEY is not set", retrieval.ErrNotConfigured)
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.chatModel),
		Messages:    toChatMessages(messages),
		MaxTokens:   openai.Int(completionMaxTokens),
		Temperature: openai.Float(completionTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("creating chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.logger.Warn("chat completion returned no choices", "model", c.chatModel)
		return noAnswerFallback, nil
	}

	return resp.Choices[0].Message.Content, nil
}

// callContext applies the configured per-call deadline, if any.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// toChatMessages maps pipeline messages onto the provider's union type.
// Roles other than system are sent as user messages.
func toChatMessages(messages []retrieval.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case retrieval.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
