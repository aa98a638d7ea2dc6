// Package chunk implements the builder (C7): it assembles boundary-decided
// sentences into size-bounded chunks and reconstructs their display text
// per spec §4.5/§4.6.
package chunk

import (
	"github.com/google/uuid"

	"github.com/hataya-labs/sentchunk/internal/sentence"
)

// Metadata summarizes the structural shape of a chunk, for the writer's
// output metadata object. ID lets a chunk be referenced independent of its
// position in the output stream (e.g. by an eval report or a downstream
// indexer), the way antflydb-antfly-go's evalaf report items are addressed.
type Metadata struct {
	ID            string
	HeadingLevels []int
	SpannedList   bool
	LineStart     int
	LineEnd       int
}

// Chunk is a contiguous, topically coherent run of sentences (spec §3).
type Chunk struct {
	Sentences  []sentence.Sentence
	Text       string
	TokenCount int
	CharCount  int
	Metadata   Metadata
}

func newChunk(sentences []sentence.Sentence) Chunk {
	text := Reconstruct(sentences)
	meta := Metadata{
		ID:        uuid.NewString(),
		LineStart: sentences[0].LineNumber,
		LineEnd:   sentences[len(sentences)-1].LineNumber,
	}
	for _, s := range sentences {
		if s.StructureType == sentence.Header {
			meta.HeadingLevels = append(meta.HeadingLevels, headerLevel(s.StructureInfo))
		}
		if s.StructureType == sentence.List {
			meta.SpannedList = true
		}
	}
	return Chunk{
		Sentences:  sentences,
		Text:       text,
		TokenCount: EstimateTokens(text),
		CharCount:  CharCount(text),
		Metadata:   meta,
	}
}
