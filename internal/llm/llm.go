// Package llm implements the local and remote chat-completion clients
// (C4/C5): thin, stateless wrappers around each backend's SDK, sharing a
// single retry/timeout policy (§4.3).
package llm

import "context"

// Params controls sampling for a single Generate call.
type Params struct {
	Temperature float64
	MaxTokens   int
}

// Client is the uniform surface the provider router dispatches to,
// generalizing the source's Local(endpoint) | Remote(endpoint, model, auth)
// sum type (spec §9) into one interface implemented by every backend.
type Client interface {
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}
