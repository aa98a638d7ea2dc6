package chunk

import (
	"github.com/hataya-labs/sentchunk/internal/detect"
	"github.com/hataya-labs/sentchunk/internal/sentence"
)

// Options bounds chunk size (§4.5). When MaxTokens/MinTokens are set,
// tokens become the primary measure: MinChars is not consulted while
// MinTokens is set, and MaxChars acts as a guard that is never exceeded
// regardless of the token count (§9's resolution of
// the min/max-chars-vs-tokens open question: characters are canonical,
// tokens are advisory when configured).
type Options struct {
	MinChars  int
	MaxChars  int
	MinTokens int
	MaxTokens int
}

func (o Options) meetsMin(text string) bool {
	if o.MinTokens > 0 {
		return EstimateTokens(text) >= o.MinTokens
	}
	return CharCount(text) >= o.MinChars
}

func (o Options) exceedsMax(text string) bool {
	if o.MaxChars > 0 && CharCount(text) > o.MaxChars {
		return true
	}
	if o.MaxTokens > 0 && EstimateTokens(text) > o.MaxTokens {
		return true
	}
	return false
}

// Stream consumes boundary decisions in document order and emits chunks,
// applying the four rules from §4.5 in priority order: seal-on-boundary
// (once the current chunk meets the minimum), seal-on-overflow, the
// standalone-oversized-sentence exception, and end-of-stream flush.
func Stream(decisions <-chan detect.Decision, opts Options) <-chan Chunk {
	out := make(chan Chunk, 16)

	go func() {
		defer close(out)

		var current []sentence.Sentence

		for d := range decisions {
			if d.Boundary && len(current) > 0 && opts.meetsMin(Reconstruct(current)) {
				out <- newChunk(current)
				current = nil
			}

			current = append(current, d.Sentence)

			if opts.exceedsMax(Reconstruct(current)) {
				if len(current) == 1 {
					out <- newChunk(current)
					current = nil
					continue
				}
				last := current[len(current)-1]
				current = current[:len(current)-1]
				out <- newChunk(current)
				current = []sentence.Sentence{last}
				if opts.exceedsMax(Reconstruct(current)) {
					out <- newChunk(current)
					current = nil
				}
			}
		}

		if len(current) > 0 {
			out <- newChunk(current)
		}
	}()

	return out
}
