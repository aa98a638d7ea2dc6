// Package embed implements the embedder (C2): it turns a lazy sentence
// stream into a lazy, order-preserving stream of L2-normalized vectors
// with bounded memory, per spec §4.2.
package embed

import (
	"context"
	"math"

	"github.com/hataya-labs/sentchunk/internal/errs"
	"github.com/hataya-labs/sentchunk/internal/sentence"
)

// Model is the minimal surface the embedder needs from a concrete backend.
// FastEmbedder (fastembed.go) is the only implementation; the interface
// exists so tests can substitute a deterministic stub.
type Model interface {
	Dim() int
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

// ScratchReleaser is implemented by models that can free accelerator
// scratch memory between batches without a full reload.
type ScratchReleaser interface {
	ReleaseScratch() error
}

// Options configures batching and the periodic scratch release.
type Options struct {
	BatchSize    int
	ReleaseEvery int // K in §4.2; release scratch memory every K batches
}

// DefaultOptions matches config.RuntimeConfig's defaults.
func DefaultOptions() Options {
	return Options{BatchSize: 32, ReleaseEvery: 16}
}

// Stream consumes sentences and emits one L2-normalized vector per sentence
// in the same order, batching internally. On a batch failure it retries
// once with the batch halved (§4.2); a second failure is fatal and the
// stream aborts without emitting further vectors.
func Stream(ctx context.Context, model Model, sentences <-chan sentence.Sentence, opts Options) (<-chan []float32, <-chan error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.ReleaseEvery <= 0 {
		opts.ReleaseEvery = 16
	}

	out := make(chan []float32, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		batch := make([]string, 0, opts.BatchSize)
		batchStart := 0
		processed := 0
		batchesDone := 0

		flush := func() bool {
			if len(batch) == 0 {
				return true
			}
			vecs, err := embedWithRetry(ctx, model, batch)
			if err != nil {
				errc <- &errs.EmbeddingError{BatchStart: batchStart, Err: err}
				return false
			}
			for _, v := range vecs {
				normalizeL2(v)
				select {
				case out <- v:
				case <-ctx.Done():
					return false
				}
			}
			processed += len(batch)
			batchStart = processed
			batch = batch[:0]
			batchesDone++
			if batchesDone%opts.ReleaseEvery == 0 {
				if r, ok := model.(ScratchReleaser); ok {
					_ = r.ReleaseScratch()
				}
			}
			return true
		}

		for s := range sentences {
			select {
			case <-ctx.Done():
				return
			default:
			}
			batch = append(batch, s.Text)
			if len(batch) >= opts.BatchSize {
				if !flush() {
					return
				}
			}
		}
		flush()
	}()

	return out, errc
}

// embedWithRetry implements the "retry once with batch halved" policy from
// §4.2, adapted from the teacher's uploads.Pipeline.embedWithRetry.
func embedWithRetry(ctx context.Context, model Model, batch []string) ([][]float32, error) {
	vecs, err := model.EmbedPassages(ctx, batch)
	if err == nil {
		return vecs, nil
	}
	if len(batch) <= 1 {
		return nil, err
	}
	mid := len(batch) / 2
	first, err1 := model.EmbedPassages(ctx, batch[:mid])
	if err1 != nil {
		return nil, err1
	}
	second, err2 := model.EmbedPassages(ctx, batch[mid:])
	if err2 != nil {
		return nil, err2
	}
	return append(first, second...), nil
}

func normalizeL2(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	magnitude := math.Sqrt(sum)
	if magnitude == 0 {
		return
	}
	inv := 1.0 / magnitude
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}
