package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"github.com/hataya-labs/sentchunk/internal/errs"
)

// OllamaClient is the C4 local backend: it talks to a self-hosted Ollama
// server over its native generate API.
type OllamaClient struct {
	client  *ollama.Client
	model   string
	timeout time.Duration
}

// NewOllamaClient dials serverURL (defaulting to Ollama's usual local port
// when empty) and binds it to model.
func NewOllamaClient(serverURL, model string, timeout time.Duration) (*OllamaClient, error) {
	if serverURL == "" {
		serverURL = "http://127.0.0.1:11434"
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid local llm server_url %q: %w", serverURL, err)
	}
	httpClient := &http.Client{Timeout: timeout}
	return &OllamaClient{
		client:  ollama.NewClient(u, httpClient),
		model:   model,
		timeout: timeout,
	}, nil
}

func (o *OllamaClient) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	return Call(ctx, o.timeout, func(cctx context.Context) (string, error) {
		var text strings.Builder
		req := &ollama.GenerateRequest{
			Model:  o.model,
			Prompt: prompt,
			Options: map[string]any{
				"temperature": params.Temperature,
				"num_predict": params.MaxTokens,
			},
		}
		err := o.client.Generate(cctx, req, func(gr ollama.GenerateResponse) error {
			text.WriteString(gr.Response)
			return nil
		})
		if err != nil {
			return "", err
		}
		if text.Len() == 0 {
			return "", fmt.Errorf("ollama: empty response")
		}
		return text.String(), nil
	}, classifyOllamaError)
}

func classifyOllamaError(err error) errs.LLMCallKind {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found") || strings.Contains(msg, "model"):
		return errs.KindBadRequest
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return errs.KindTimeout
	default:
		return ClassifyNetworkError(err)
	}
}

var _ Client = (*OllamaClient)(nil)
