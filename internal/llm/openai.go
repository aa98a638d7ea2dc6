package llm

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hataya-labs/sentchunk/internal/errs"
)

// OpenAIClient is one of the C5 remote backends, talking to any
// OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient builds a client for apiKey, optionally pointed at a
// non-default endpoint (Azure-style gateways, local proxies, etc).
func NewOpenAIClient(apiKey, endpoint, model string, timeout time.Duration) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		cfg.BaseURL = endpoint
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}
}

func (o *OpenAIClient) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	return Call(ctx, o.timeout, func(cctx context.Context) (string, error) {
		resp, err := o.client.CreateChatCompletion(cctx, openai.ChatCompletionRequest{
			Model:       o.model,
			Temperature: float32(params.Temperature),
			MaxTokens:   params.MaxTokens,
			Messages: []openai.ChatCompletionMessage{{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			}},
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("openai: no choices in response")
		}
		return resp.Choices[0].Message.Content, nil
	}, classifyOpenAIError)
}

func classifyOpenAIError(err error) errs.LLMCallKind {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return errs.KindAuthFailed
		case apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500:
			return errs.KindServerError
		case apiErr.HTTPStatusCode >= 400:
			return errs.KindBadRequest
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode >= 500 {
			return errs.KindServerError
		}
		return errs.KindBadRequest
	}
	return ClassifyNetworkError(err)
}

var _ Client = (*OpenAIClient)(nil)
