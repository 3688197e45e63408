package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/ports"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// RefineSystemPrompt instructs the model to polish a customer service reply.
const RefineSystemPrompt = "You are a professional customer service message editor. " +
	"Refine the following message to make it more professional, clear, and polite while keeping the same meaning. " +
	"Keep it concise and natural. Only return the refined message without any explanations or quotes."

// ErrMissingAPIKey is returned when no OpenAI key is configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY not set")

// Refiner rewrites drafts with an OpenAI chat model.
type Refiner struct {
	client openai.Client
	model  openai.ChatModel
}

var _ ports.Refiner = (*Refiner)(nil)

// RefinerConfig configures NewRefiner.
type RefinerConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewRefiner creates a refiner. Model defaults to gpt-4o-mini.
func NewRefiner(cfg RefinerConfig) (*Refiner, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	// A failed refine is retried by the operator, never by the client.
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := openai.ChatModel(cfg.Model)
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &Refiner{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Refine returns a polished version of text.
func (r *Refiner) Refine(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &domain.ExternalCallError{Service: "refine", Err: errors.New("empty message")}
	}

	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: r.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(RefineSystemPrompt),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return "", &domain.ExternalCallError{Service: "refine", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &domain.ExternalCallError{Service: "refine", Err: fmt.Errorf("no choices returned")}
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		return "", &domain.ExternalCallError{Service: "refine", Err: errors.New("empty completion")}
	}
	return out, nil
}
