package embed

import (
	"context"
	"fmt"
	"runtime"

	fastembed "github.com/anush008/fastembed-go"
)

// FastEmbedOptions configures the local ONNX-backed embedding model,
// adapted from pkg/memory/embed/fast_embed.go.
type FastEmbedOptions struct {
	Model     fastembed.EmbeddingModel // zero value picks bge-small-en-v1.5
	CacheDir  string
	MaxLength int
	BatchSize int
}

// FastEmbedder wraps fastembed-go's FlagEmbedding as the C2 model backend.
type FastEmbedder struct {
	m   *fastembed.FlagEmbedding
	dim int
	bs  int
}

// NewFastEmbedder loads (and caches on disk) the local embedding model.
func NewFastEmbedder(_ context.Context, opt *FastEmbedOptions) (*FastEmbedder, error) {
	var init *fastembed.InitOptions
	if opt != nil {
		init = &fastembed.InitOptions{
			Model:     opt.Model,
			CacheDir:  opt.CacheDir,
			MaxLength: opt.MaxLength,
		}
	}
	m, err := fastembed.NewFlagEmbedding(init)
	if err != nil {
		return nil, fmt.Errorf("load embedding model: %w", err)
	}
	bs := 64
	if opt != nil && opt.BatchSize > 0 {
		bs = opt.BatchSize
	}
	if cap := 4 * runtime.GOMAXPROCS(0); bs > cap {
		bs = cap
	}
	return &FastEmbedder{m: m, dim: 384, bs: bs}, nil
}

func (e *FastEmbedder) Dim() int { return e.dim }

// EmbedPassages embeds a batch of sentences, adding the model's expected
// "passage:" prefix when the caller hasn't already supplied one.
func (e *FastEmbedder) EmbedPassages(_ context.Context, texts []string) ([][]float32, error) {
	inputs := make([]string, len(texts))
	for i, t := range texts {
		if len(t) >= 8 && t[:8] == "passage:" {
			inputs[i] = t
		} else {
			inputs[i] = "passage: " + t
		}
	}
	out, err := e.m.PassageEmbed(inputs, e.bs)
	if err != nil {
		return nil, fmt.Errorf("passage embed: %w", err)
	}
	return out, nil
}

// ReleaseScratch forces a GC cycle. fastembed-go's ONNX runtime binding
// does not expose incremental scratch-buffer release, so a full GC is the
// closest approximation to §4.2's "release accelerator scratch memory"
// bound-RSS requirement.
func (e *FastEmbedder) ReleaseScratch() error {
	runtime.GC()
	return nil
}

func (e *FastEmbedder) Close() error {
	if e.m != nil {
		e.m.Destroy()
	}
	return nil
}

var (
	_ Model           = (*FastEmbedder)(nil)
	_ ScratchReleaser = (*FastEmbedder)(nil)
)
