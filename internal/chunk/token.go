package chunk

import "unicode"

// EstimateTokens is a rune-bucket heuristic in the style of
// dgallion1-docgest/internal/chunker.EstimateTokens's word-count proxy,
// adapted for CJK text where words carry no whitespace: every CJK rune is
// counted as one token (roughly matching how these scripts tokenize in
// practice), and runs of other non-space, non-punctuation characters
// (Latin letters, digits) count 1.33 tokens per 4 runes. No BPE or SentencePiece tokenizer appears anywhere in
// the retrieved corpus, so this stays a heuristic rather than reaching for
// an unavailable exact tokenizer; see DESIGN.md.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	tokens := 0.0
	wordRunes := 0
	flushWord := func() {
		if wordRunes > 0 {
			tokens += float64(wordRunes) / 4.0 * 1.33
			wordRunes = 0
		}
	}
	for _, r := range text {
		switch {
		case isCJK(r):
			flushWord()
			tokens++
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			flushWord()
		default:
			wordRunes++
		}
	}
	flushWord()
	if tokens < 1 {
		tokens = 1
	}
	return int(tokens + 0.5)
}

func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
		return true
	case r >= 0x3040 && r <= 0x309F: // hiragana
		return true
	case r >= 0x30A0 && r <= 0x30FF: // katakana
		return true
	case r >= 0xFF01 && r <= 0xFF60: // fullwidth punctuation/forms
		return true
	default:
		return false
	}
}
