// Package ner implements the detector's optional named-entity capability
// (§4.4 Stage D, §9 "Pluggable NER"). No named-entity-recognition library
// appears anywhere in the retrieved corpus, so the default implementation
// here is a lightweight heuristic extractor rather than a wrapped
// third-party model; see DESIGN.md. The Recognizer interface exists so a
// real model can be substituted later without touching the detector.
package ner

import "unicode"

// Recognizer extracts a set of entity-like surface strings from a
// sentence. Its absence in the detector is a no-op, never an error.
type Recognizer interface {
	Entities(text string) map[string]struct{}
}

// Heuristic extracts runs of katakana, runs of kanji, and capitalized
// Latin words as entity candidates. It is deliberately coarse: it exists
// to support the Jaccard-similarity demotion rule in Stage D, not to be a
// general-purpose NER system.
type Heuristic struct{}

// New returns the default heuristic recognizer.
func New() *Heuristic { return &Heuristic{} }

func (Heuristic) Entities(text string) map[string]struct{} {
	out := make(map[string]struct{})
	runes := []rune(text)
	n := len(runes)

	flush := func(start, end int) {
		if end > start {
			out[string(runes[start:end])] = struct{}{}
		}
	}

	i := 0
	for i < n {
		switch {
		case isKatakana(runes[i]):
			j := i
			for j < n && (isKatakana(runes[j]) || runes[j] == 'ー') {
				j++
			}
			flush(i, j)
			i = j
		case isKanji(runes[i]):
			j := i
			for j < n && isKanji(runes[j]) {
				j++
			}
			flush(i, j)
			i = j
		case unicode.IsUpper(runes[i]) && isASCIILetter(runes[i]):
			j := i + 1
			for j < n && isASCIILetterOrDigit(runes[j]) {
				j++
			}
			flush(i, j)
			i = j
		default:
			i++
		}
	}
	return out
}

func isKatakana(r rune) bool {
	return r >= 0x30A0 && r <= 0x30FF
}

func isKanji(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isASCIILetterOrDigit(r rune) bool {
	return isASCIILetter(r) || (r >= '0' && r <= '9')
}

// Jaccard computes the Jaccard similarity of two entity sets, returning 0
// when both sets are empty (no shared subject to infer).
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
