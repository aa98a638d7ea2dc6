package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hataya-labs/sentchunk/internal/errs"
)

// AnthropicClient is one of the C5 remote backends, using the Messages API.
type AnthropicClient struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
}

func NewAnthropicClient(apiKey, model string, timeout time.Duration) *AnthropicClient {
	cl := anthropic.NewClient(anthropicopt.WithAPIKey(apiKey))
	return &AnthropicClient{
		client:  &cl,
		model:   model,
		timeout: timeout,
	}
}

func (a *AnthropicClient) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	return Call(ctx, a.timeout, func(cctx context.Context) (string, error) {
		maxTokens := int64(params.MaxTokens)
		if maxTokens <= 0 {
			maxTokens = 1024
		}
		msg, err := a.client.Messages.New(cctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: maxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, cb := range msg.Content {
			if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
				b.WriteString(tb.Text)
			}
		}
		if b.Len() == 0 {
			return "", errors.New("anthropic: empty response")
		}
		return b.String(), nil
	}, classifyAnthropicError)
}

func classifyAnthropicError(err error) errs.LLMCallKind {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return errs.KindAuthFailed
		case apiErr.StatusCode == 429 || apiErr.StatusCode >= 500:
			return errs.KindServerError
		case apiErr.StatusCode >= 400:
			return errs.KindBadRequest
		}
	}
	return ClassifyNetworkError(err)
}

var _ Client = (*AnthropicClient)(nil)
