package chunk

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hataya-labs/sentchunk/internal/sentence"
)

// Reconstruct rebuilds display text from a chunk's sentences per §4.6,
// restoring the structural newlines that naive concatenation drops.
func Reconstruct(sentences []sentence.Sentence) string {
	var b strings.Builder
	listCounter := 0

	for i, s := range sentences {
		var prev *sentence.Sentence
		if i > 0 {
			prev = &sentences[i-1]
		}

		if s.StructureType == sentence.List && (prev == nil || prev.StructureType != sentence.List) {
			listCounter = 0
		}

		if prev != nil {
			switch {
			case prev.StructureType == sentence.Header:
				// header already appended its own trailing blank line
			case prev.StructureType != s.StructureType:
				b.WriteString("\n\n")
			case s.StructureType == sentence.Plain:
				if s.HasParagraphBreak() {
					b.WriteString("\n")
				} else {
					b.WriteString(" ")
				}
			default:
				b.WriteString("\n")
			}
		}

		switch s.StructureType {
		case sentence.Header:
			level := headerLevel(s.StructureInfo)
			b.WriteString(strings.Repeat("#", level))
			b.WriteString(" ")
			b.WriteString(s.Text)
			b.WriteString("\n\n")
		case sentence.List:
			listCounter++
			b.WriteString(strings.Repeat(" ", s.IndentLevel))
			if isOrderedList(s.StructureInfo) {
				b.WriteString(strconv.Itoa(listCounter))
				b.WriteString(". ")
			} else {
				b.WriteString("- ")
			}
			b.WriteString(s.Text)
		default:
			b.WriteString(s.Text)
		}
	}

	return b.String()
}

// CharCount measures reconstructed text in runes, so multi-byte Japanese
// characters count as one unit each rather than as their UTF-8 byte width.
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}

func headerLevel(structureInfo string) int {
	const prefix = "header:"
	idx := strings.Index(structureInfo, prefix)
	if idx < 0 {
		return 1
	}
	rest := structureInfo[idx+len(prefix):]
	if comma := strings.IndexByte(rest, ','); comma >= 0 {
		rest = rest[:comma]
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 1 {
		return 1
	}
	if level > 6 {
		level = 6
	}
	return level
}

func isOrderedList(structureInfo string) bool {
	return strings.Contains(structureInfo, "list:ordered")
}
