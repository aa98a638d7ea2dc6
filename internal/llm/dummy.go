package llm

import (
	"context"
)

// DummyClient answers every call with the same canned response (Prefix),
// ignoring the prompt, without making any network call. It exists for tests and for
// dry-running the pipeline against documents without an LLM available.
type DummyClient struct {
	Prefix string
}

func NewDummyClient(prefix string) *DummyClient {
	if prefix == "" {
		prefix = "SAME"
	}
	return &DummyClient{Prefix: prefix}
}

func (d *DummyClient) Generate(_ context.Context, _ string, _ Params) (string, error) {
	return d.Prefix, nil
}

var _ Client = (*DummyClient)(nil)
