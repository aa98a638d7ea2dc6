package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/hataya-labs/sentchunk/internal/config"
	"github.com/hataya-labs/sentchunk/internal/detect"
	"github.com/hataya-labs/sentchunk/internal/preprocess"
	"github.com/hataya-labs/sentchunk/internal/sentence"
)

func decisionsChan(decisions ...detect.Decision) <-chan detect.Decision {
	ch := make(chan detect.Decision, len(decisions))
	for _, d := range decisions {
		ch <- d
	}
	close(ch)
	return ch
}

func TestHeadingPreservationProducesTwoChunks(t *testing.T) {
	header := sentence.Sentence{Text: "Intro", LineNumber: 1, StructureType: sentence.Header, StructureInfo: "header:1"}
	body := sentence.Sentence{Text: "This is the body.", LineNumber: 2, StructureType: sentence.Plain}

	out := Stream(decisionsChan(
		detect.Decision{Sentence: header, Boundary: true},
		detect.Decision{Sentence: body, Boundary: true},
	), Options{MinChars: 1, MaxChars: 10000})

	var chunks []Chunk
	for c := range out {
		chunks = append(chunks, c)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Text, "# Intro") {
		t.Fatalf("expected first chunk to begin with '# Intro', got %q", chunks[0].Text)
	}
	if !strings.HasSuffix(chunks[0].Text, "\n\n") {
		t.Fatalf("expected header chunk to end with a blank line before the body, got %q", chunks[0].Text)
	}
}

// TestHeadingPreservationEndToEndThroughRealDetector drives spec §8
// scenario 1's literal input through the real pre-processor and the real
// detector cascade (Stage A/B/D; no router needed since the engineered
// embeddings never land in the ambiguous band), rather than asserting a
// hand-built detect.Decision. The embeddings are deliberately identical so
// Stage A alone would call this a continuation; the two-chunk split can
// only happen if Stage D's header rule is what forces the boundary.
func TestHeadingPreservationEndToEndThroughRealDetector(t *testing.T) {
	sentences, preErrc := preprocess.Stream(strings.NewReader("# Intro\nThis is the body."), preprocess.DefaultOptions())

	var texts []sentence.Sentence
	sc := make(chan sentence.Sentence, 8)
	vc := make(chan []float32, 8)
	for s := range sentences {
		texts = append(texts, s)
		sc <- s
		vc <- []float32{1, 0} // identical vector for every sentence
	}
	close(sc)
	close(vc)
	if err := <-preErrc; err != nil {
		t.Fatalf("unexpected preprocess error: %v", err)
	}
	if len(texts) != 2 {
		t.Fatalf("expected 2 sentences from preprocess, got %d", len(texts))
	}

	llmOn := true
	cfg := config.DetectorConfig{
		ThresholdHigh:   0.85,
		ThresholdLow:    0.55,
		WindowSize:      5,
		ZScoreThreshold: 3.5,
		NVote:           3,
		UseLLMReview:    &llmOn,
	}
	stage := detect.New(cfg, 2, nil, nil, nil)
	decisions, detectErrc := stage.Stream(context.Background(), sc, vc)

	out := Stream(decisions, Options{MinChars: 1, MaxChars: 10000})
	var chunks []Chunk
	for c := range out {
		chunks = append(chunks, c)
	}
	if err := <-detectErrc; err != nil {
		t.Fatalf("unexpected detect error: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks from the real detector's output, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0].Text, "# Intro") {
		t.Fatalf("expected first chunk to begin with '# Intro', got %q", chunks[0].Text)
	}
	if len(chunks[1].Sentences) != 1 || chunks[1].Sentences[0].Text != "This is the body." {
		t.Fatalf("expected second chunk to hold only the body sentence, got %+v", chunks[1].Sentences)
	}
}

func TestListCohesionProducesTwoChunks(t *testing.T) {
	item := func(text string) sentence.Sentence {
		return sentence.Sentence{Text: text, StructureType: sentence.List, StructureInfo: "list:unordered"}
	}
	a, b, c := item("A"), item("B"), item("C")
	next := sentence.Sentence{Text: "Next paragraph.", StructureType: sentence.Plain}

	out := Stream(decisionsChan(
		detect.Decision{Sentence: a, Boundary: true},
		detect.Decision{Sentence: b, Boundary: false},
		detect.Decision{Sentence: c, Boundary: false},
		detect.Decision{Sentence: next, Boundary: true},
	), Options{MinChars: 1, MaxChars: 10000})

	var chunks []Chunk
	for ch := range out {
		chunks = append(chunks, ch)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Sentences) != 3 {
		t.Fatalf("expected the first chunk to hold all 3 list items, got %d", len(chunks[0].Sentences))
	}
	if len(chunks[1].Sentences) != 1 || chunks[1].Sentences[0].Text != "Next paragraph." {
		t.Fatalf("expected the second chunk to hold only the paragraph")
	}
}

func TestOversizedSentenceStandsAlone(t *testing.T) {
	huge := sentence.Sentence{Text: strings.Repeat("a", 200), StructureType: sentence.Plain}
	before := sentence.Sentence{Text: "short lead-in", StructureType: sentence.Plain}
	after := sentence.Sentence{Text: "short trailer", StructureType: sentence.Plain}

	out := Stream(decisionsChan(
		detect.Decision{Sentence: before, Boundary: true},
		detect.Decision{Sentence: huge, Boundary: false},
		detect.Decision{Sentence: after, Boundary: false},
	), Options{MinChars: 1, MaxChars: 100})

	var chunks []Chunk
	for c := range out {
		chunks = append(chunks, c)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks (lead-in, oversized standalone, trailer), got %d", len(chunks))
	}
	if len(chunks[1].Sentences) != 1 || chunks[1].Sentences[0].Text != huge.Text {
		t.Fatalf("expected the oversized sentence to stand alone in its own chunk")
	}
	if chunks[1].CharCount <= 100 {
		t.Fatalf("expected the standalone chunk to exceed max_chars, got %d", chunks[1].CharCount)
	}
}

func TestNoSentenceLostAcrossChunks(t *testing.T) {
	sentences := []sentence.Sentence{
		{Text: "one", StructureType: sentence.Plain},
		{Text: "two", StructureType: sentence.Plain},
		{Text: "three", StructureType: sentence.Plain},
		{Text: "four", StructureType: sentence.Plain},
	}
	decisions := make([]detect.Decision, len(sentences))
	for i, s := range sentences {
		decisions[i] = detect.Decision{Sentence: s, Boundary: i%2 == 0}
	}

	out := Stream(decisionsChan(decisions...), Options{MinChars: 1, MaxChars: 10000})

	var got []string
	for c := range out {
		for _, s := range c.Sentences {
			got = append(got, s.Text)
		}
	}
	if len(got) != len(sentences) {
		t.Fatalf("expected %d sentences preserved, got %d", len(sentences), len(got))
	}
	for i, s := range sentences {
		if got[i] != s.Text {
			t.Fatalf("expected sentence order preserved: index %d wanted %q got %q", i, s.Text, got[i])
		}
	}
}
