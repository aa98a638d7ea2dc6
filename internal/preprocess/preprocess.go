// Package preprocess implements the structure-aware pre-tokenizer (C1):
// it turns a raw text reader into a lazy stream of sentence.Sentence
// values tagged with heading level, list membership, and indent depth,
// per spec §4.1.
//
// Sentence segmentation happens per physical line rather than across
// paragraph-spanning line joins: sentence_based_chunker/preprocess.py (the
// original implementation) splits its regex over one line at a time, and
// spec.md's step 4 is silent on the exact cross-line merging semantics, so
// we follow the original.
package preprocess

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hataya-labs/sentchunk/internal/errs"
	"github.com/hataya-labs/sentchunk/internal/sentence"
)

// Options mirrors config.DocumentStructureConfig; kept separate so this
// package has no dependency on internal/config.
type Options struct {
	DetectMarkdown      bool
	DetectHTML          bool
	DetectIndentation   bool
	MinHeaderLevel      int
	MaxHeaderLevel      int
	ListIndentThreshold int
	TabWidth            int
}

// DefaultOptions matches config.Default().DocumentStructure.
func DefaultOptions() Options {
	return Options{
		DetectMarkdown:      true,
		DetectHTML:          false,
		DetectIndentation:   true,
		MinHeaderLevel:      1,
		MaxHeaderLevel:      6,
		ListIndentThreshold: 2,
		TabWidth:            4,
	}
}

var (
	fenceRegexp      = regexp.MustCompile("^```")
	headerRegexp     = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	htmlHeaderRegexp = regexp.MustCompile(`(?i)^<h([1-6])>(.*)</h[1-6]>\s*$`)
	htmlListRegexp   = regexp.MustCompile(`(?i)^<li>(.*)</li>\s*$`)
	htmlPreOpen      = regexp.MustCompile(`(?i)^<pre>`)
	htmlPreClose     = regexp.MustCompile(`(?i)</pre>\s*$`)
	listRegexp       = regexp.MustCompile(`^(\s*)([-*+]|\d+\.)\s+(.*)$`)
)

// Stream reads r line by line and sends each non-blank structured sentence
// on the returned channel, closing it at EOF or on the first read error
// (surfaced separately on the error channel). Callers drain both channels
// until the sentence channel closes.
func Stream(r io.Reader, opts Options) (<-chan sentence.Sentence, <-chan error) {
	out := make(chan sentence.Sentence, 64)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

		state := &regionState{}
		lineNo := 0
		pendingParagraphBreak := false

		for scanner.Scan() {
			lineNo++
			line := scanner.Text()

			if !utf8.ValidString(line) || strings.ContainsRune(line, 0) {
				errc <- &errs.StructuralError{Line: lineNo, Err: fmt.Errorf("line is not representable as text (invalid UTF-8 or embedded NUL byte)")}
				return
			}

			cls, ok := classify(line, opts, state)
			if !ok {
				continue // consumed as a fence/pre marker, nothing to emit
			}

			if cls.kind == sentence.Blank {
				pendingParagraphBreak = true
				continue
			}

			sentences := emitSentences(cls, lineNo)
			for i := range sentences {
				if i == 0 && pendingParagraphBreak {
					sentences[i].StructureInfo = appendTag(sentences[i].StructureInfo, "paragraph_break")
				}
				out <- sentences[i]
			}
			pendingParagraphBreak = false
		}
		if err := scanner.Err(); err != nil {
			errc <- err
		}
	}()

	return out, errc
}

type regionState struct {
	inCode bool
}

type lineClass struct {
	kind    sentence.StructureType
	content string
	indent  int
	info    string
}

// classify applies the priority order from §4.1 step 2: fenced code
// open/close, table row, heading, list item, blank, plain.
func classify(line string, opts Options, st *regionState) (lineClass, bool) {
	trimmed := strings.TrimSpace(line)

	if fenceRegexp.MatchString(trimmed) {
		st.inCode = !st.inCode
		return lineClass{}, false
	}
	if opts.DetectHTML {
		if htmlPreOpen.MatchString(trimmed) {
			st.inCode = true
			return lineClass{}, false
		}
		if htmlPreClose.MatchString(trimmed) {
			st.inCode = false
			return lineClass{}, false
		}
	}
	if st.inCode {
		if trimmed == "" {
			return lineClass{kind: sentence.Blank}, true
		}
		return lineClass{kind: sentence.Code, content: line, info: "code"}, true
	}

	if trimmed == "" {
		return lineClass{kind: sentence.Blank}, true
	}

	if isTableRow(trimmed) {
		return lineClass{kind: sentence.Table, content: trimmed, info: "table"}, true
	}

	if opts.DetectMarkdown {
		if m := headerRegexp.FindStringSubmatch(trimmed); m != nil {
			level := len(m[1])
			if level >= opts.MinHeaderLevel && level <= opts.MaxHeaderLevel {
				indent := indentLevel(line, opts)
				return lineClass{kind: sentence.Header, content: strings.TrimSpace(m[2]), indent: indent, info: "header:" + strconv.Itoa(level)}, true
			}
		}
		if m := listRegexp.FindStringSubmatch(line); m != nil {
			indent := 0
			if opts.DetectIndentation {
				indent = len(expandTabs(m[1], opts.TabWidth)) / max1(opts.TabWidth)
			}
			kind := "unordered"
			if _, err := strconv.Atoi(strings.TrimSuffix(m[2], ".")); err == nil {
				kind = "ordered"
			}
			return lineClass{kind: sentence.List, content: strings.TrimSpace(m[3]), indent: indent, info: "list:" + kind}, true
		}
	}

	if opts.DetectHTML {
		if m := htmlHeaderRegexp.FindStringSubmatch(trimmed); m != nil {
			level, _ := strconv.Atoi(m[1])
			if level >= opts.MinHeaderLevel && level <= opts.MaxHeaderLevel {
				return lineClass{kind: sentence.Header, content: strings.TrimSpace(m[2]), info: "header:" + strconv.Itoa(level)}, true
			}
		}
		if m := htmlListRegexp.FindStringSubmatch(trimmed); m != nil {
			return lineClass{kind: sentence.List, content: strings.TrimSpace(m[1]), info: "list:unordered"}, true
		}
	}

	indent := indentLevel(line, opts)
	return lineClass{kind: sentence.Plain, content: trimmed, indent: indent, info: "plain"}, true
}

func max1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func indentLevel(line string, opts Options) int {
	if !opts.DetectIndentation {
		return 0
	}
	expanded := expandTabs(leadingWhitespace(line), opts.TabWidth)
	return len(expanded) / max1(opts.TabWidth)
}

func leadingWhitespace(line string) string {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	return line[:i]
}

func expandTabs(ws string, tabWidth int) string {
	var b strings.Builder
	for _, r := range ws {
		if r == '\t' {
			b.WriteString(strings.Repeat(" ", max1(tabWidth)))
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// isTableRow implements §4.1's "pipe-delimited with ≥2 columns" rule.
func isTableRow(trimmed string) bool {
	if !strings.Contains(trimmed, "|") {
		return false
	}
	inner := strings.Trim(trimmed, "| \t")
	if inner == "" {
		return false
	}
	parts := strings.Split(inner, "|")
	return len(parts) >= 2
}

func emitSentences(cls lineClass, lineNo int) []sentence.Sentence {
	switch cls.kind {
	case sentence.Code, sentence.Table, sentence.Header:
		text := strings.TrimSpace(cls.content)
		if text == "" {
			return nil
		}
		return []sentence.Sentence{{
			Text:          text,
			LineNumber:    lineNo,
			StructureType: cls.kind,
			IndentLevel:   cls.indent,
			StructureInfo: cls.info,
		}}
	case sentence.List, sentence.Plain:
		parts := splitSentences(cls.content)
		out := make([]sentence.Sentence, 0, len(parts))
		for _, p := range parts {
			if strings.TrimSpace(p) == "" {
				continue
			}
			out = append(out, sentence.Sentence{
				Text:          p,
				LineNumber:    lineNo,
				StructureType: cls.kind,
				IndentLevel:   cls.indent,
				StructureInfo: cls.info,
			})
		}
		return out
	default:
		return nil
	}
}

func appendTag(info, tag string) string {
	if info == "" {
		return tag
	}
	return info + "," + tag
}

const terminalPunctuation = "。．！？!?."

func isOpenBracket(r rune) bool {
	return strings.ContainsRune("([{（「『“\"'", r)
}

func isCloseBracket(r rune) bool {
	return strings.ContainsRune(")]}）」』”\"'", r)
}

// splitSentences implements §4.1 step 4: split on terminal punctuation
// (optionally followed by closing quotes/brackets), without splitting
// inside a parenthetical or quoted span. Go's RE2 engine has no lookbehind,
// so the original's regex is reimplemented as a small rune scanner.
func splitSentences(text string) []string {
	runes := []rune(text)
	n := len(runes)
	var out []string
	var buf []rune
	depth := 0

	for i := 0; i < n; i++ {
		r := runes[i]
		buf = append(buf, r)
		switch {
		case isOpenBracket(r):
			depth++
		case isCloseBracket(r):
			if depth > 0 {
				depth--
			}
		case depth == 0 && strings.ContainsRune(terminalPunctuation, r):
			j := i + 1
			for j < n && isCloseBracket(runes[j]) {
				buf = append(buf, runes[j])
				j++
			}
			if j < n && runes[j] == ' ' {
				j++
			}
			if s := strings.TrimSpace(string(buf)); s != "" {
				out = append(out, s)
			}
			buf = buf[:0]
			i = j - 1
		}
	}
	if s := strings.TrimSpace(string(buf)); s != "" {
		out = append(out, s)
	}
	return out
}
