package embed

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/hataya-labs/sentchunk/internal/sentence"
)

type stubModel struct {
	dim        int
	failCounts map[int]int // batch size -> remaining failures
}

func (s *stubModel) Dim() int { return s.dim }

func (s *stubModel) EmbedPassages(_ context.Context, texts []string) ([][]float32, error) {
	if s.failCounts != nil {
		if remaining, ok := s.failCounts[len(texts)]; ok && remaining > 0 {
			s.failCounts[len(texts)]--
			return nil, errors.New("simulated backend failure")
		}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, s.dim)
		for j := range v {
			v[j] = float32(len(t) + j + 1)
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubModel) Close() error { return nil }

func sentencesChan(texts ...string) <-chan sentence.Sentence {
	ch := make(chan sentence.Sentence, len(texts))
	for i, t := range texts {
		ch <- sentence.Sentence{Text: t, LineNumber: i + 1, StructureType: sentence.Plain}
	}
	close(ch)
	return ch
}

func TestStreamPreservesOrderAndNormalizes(t *testing.T) {
	model := &stubModel{dim: 4}
	sentences := sentencesChan("a", "bb", "ccc", "dddd", "e")
	out, errc := Stream(context.Background(), model, sentences, Options{BatchSize: 2, ReleaseEvery: 1})

	var vecs [][]float32
	for v := range out {
		vecs = append(vecs, v)
	}
	if err := <-errc; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 5 {
		t.Fatalf("expected 5 vectors, got %d", len(vecs))
	}
	for i, v := range vecs {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if math.Abs(sum-1.0) > 1e-4 {
			t.Fatalf("vector %d not L2-normalized: sum=%v", i, sum)
		}
	}
}

func TestStreamRetriesOnceWithHalvedBatch(t *testing.T) {
	model := &stubModel{dim: 2, failCounts: map[int]int{4: 1}}
	sentences := sentencesChan("a", "bb", "ccc", "dddd")
	out, errc := Stream(context.Background(), model, sentences, Options{BatchSize: 4, ReleaseEvery: 1})

	var vecs [][]float32
	for v := range out {
		vecs = append(vecs, v)
	}
	if err := <-errc; err != nil {
		t.Fatalf("unexpected error after retry-halved recovery: %v", err)
	}
	if len(vecs) != 4 {
		t.Fatalf("expected 4 vectors after halved retry, got %d", len(vecs))
	}
}

func TestStreamAbortsAfterHalvedRetryAlsoFails(t *testing.T) {
	model := &stubModel{dim: 2, failCounts: map[int]int{4: 1, 2: 2}}
	sentences := sentencesChan("a", "bb", "ccc", "dddd")
	out, errc := Stream(context.Background(), model, sentences, Options{BatchSize: 4, ReleaseEvery: 1})

	for range out {
	}
	if err := <-errc; err == nil {
		t.Fatalf("expected fatal embedding error")
	}
}
