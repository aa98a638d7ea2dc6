package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/hataya-labs/sentchunk/internal/errs"
)

// GeminiClient is one of the C5 remote backends, using Google's genai SDK.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiClient{client: client, model: model, timeout: timeout}, nil
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string, params Params) (string, error) {
	return Call(ctx, g.timeout, func(cctx context.Context) (string, error) {
		model := g.client.GenerativeModel(g.model)
		model.SetTemperature(float32(params.Temperature))
		if params.MaxTokens > 0 {
			model.SetMaxOutputTokens(int32(params.MaxTokens))
		}

		resp, err := model.GenerateContent(cctx, genai.Text(prompt))
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			return "", errors.New("gemini: empty response")
		}
		if text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text); ok {
			return string(text), nil
		}
		return "", errors.New("gemini: non-text response part")
	}, classifyGeminiError)
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

func classifyGeminiError(err error) errs.LLMCallKind {
	var apiErr *genai.BlockedError
	if errors.As(err, &apiErr) {
		return errs.KindBadRequest
	}
	msg := err.Error()
	switch {
	case containsAny(msg, "401", "403", "PERMISSION_DENIED", "UNAUTHENTICATED"):
		return errs.KindAuthFailed
	case containsAny(msg, "429", "500", "502", "503", "UNAVAILABLE", "RESOURCE_EXHAUSTED"):
		return errs.KindServerError
	case containsAny(msg, "400", "INVALID_ARGUMENT"):
		return errs.KindBadRequest
	default:
		return ClassifyNetworkError(err)
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var _ Client = (*GeminiClient)(nil)
