package writer

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hataya-labs/sentchunk/internal/chunk"
	"github.com/hataya-labs/sentchunk/internal/sentence"
)

func TestWriteProducesOneJSONLinePerChunk(t *testing.T) {
	var buf bytes.Buffer
	w := New("out.jsonl", &buf)

	chunks := make(chan chunk.Chunk, 2)
	chunks <- chunk.Chunk{
		Text: "# Intro\n\n",
		Sentences: []sentence.Sentence{
			{Text: "Intro", StructureType: sentence.Header, LineNumber: 1},
		},
		TokenCount: 2,
		CharCount:  9,
		Metadata:   chunk.Metadata{HeadingLevels: []int{1}, LineStart: 1, LineEnd: 1},
	}
	chunks <- chunk.Chunk{
		Text: "This is the body.",
		Sentences: []sentence.Sentence{
			{Text: "This is the body.", StructureType: sentence.Plain, LineNumber: 2},
		},
		TokenCount: 4,
		CharCount:  17,
		Metadata:   chunk.Metadata{LineStart: 2, LineEnd: 2},
	}
	close(chunks)

	if err := Drain(w, chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSONL lines, got %d", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first line is not valid JSON: %v", err)
	}
	if first["text"] != "# Intro\n\n" {
		t.Fatalf("unexpected text field: %v", first["text"])
	}
	sentences, ok := first["sentences"].([]any)
	if !ok || len(sentences) != 1 || sentences[0] != "Intro" {
		t.Fatalf("unexpected sentences field: %v", first["sentences"])
	}
}

func TestWriteRoundTripIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	w := New("out.jsonl", &buf)
	chunks := make(chan chunk.Chunk, 1)
	chunks <- chunk.Chunk{
		Text:      "a sentence",
		Sentences: []sentence.Sentence{{Text: "a sentence", StructureType: sentence.Plain}},
	}
	close(chunks)
	if err := Drain(w, chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var rec map[string]any
	line := strings.TrimRight(buf.String(), "\n")
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	reserialized, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	var rec2 map[string]any
	if err := json.Unmarshal(reserialized, &rec2); err != nil {
		t.Fatalf("decode round trip: %v", err)
	}
	again, err := json.Marshal(rec2)
	if err != nil {
		t.Fatalf("re-marshal 2: %v", err)
	}
	if string(reserialized) != string(again) {
		t.Fatalf("expected idempotent re-serialization")
	}
}
