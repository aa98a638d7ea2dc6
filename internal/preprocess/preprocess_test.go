package preprocess

import (
	"errors"
	"strings"
	"testing"

	"github.com/hataya-labs/sentchunk/internal/errs"
	"github.com/hataya-labs/sentchunk/internal/sentence"
)

func collect(t *testing.T, text string, opts Options) []sentence.Sentence {
	t.Helper()
	out, errc := Stream(strings.NewReader(text), opts)
	var sentences []sentence.Sentence
	for s := range out {
		sentences = append(sentences, s)
	}
	if err := <-errc; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sentences
}

func TestHeadingPreservation(t *testing.T) {
	sentences := collect(t, "# Intro\nThis is the body.", DefaultOptions())
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}
	if sentences[0].StructureType != sentence.Header || sentences[0].Text != "Intro" {
		t.Fatalf("unexpected header sentence: %+v", sentences[0])
	}
	if sentences[0].StructureInfo != "header:1" {
		t.Fatalf("expected header:1, got %q", sentences[0].StructureInfo)
	}
	if sentences[1].StructureType != sentence.Plain {
		t.Fatalf("expected plain body, got %+v", sentences[1])
	}
}

func TestListCohesionInput(t *testing.T) {
	sentences := collect(t, "- A\n- B\n- C\nNext paragraph.", DefaultOptions())
	if len(sentences) != 4 {
		t.Fatalf("expected 4 sentences, got %d", len(sentences))
	}
	for i, want := range []string{"A", "B", "C"} {
		if sentences[i].StructureType != sentence.List || sentences[i].Text != want {
			t.Fatalf("sentence %d: expected list %q, got %+v", i, want, sentences[i])
		}
	}
	if sentences[3].StructureType != sentence.Plain || sentences[3].Text != "Next paragraph." {
		t.Fatalf("expected trailing plain sentence, got %+v", sentences[3])
	}
}

func TestBlankLinesAreFilteredAndMarkParagraphBreak(t *testing.T) {
	sentences := collect(t, "First.\n\nSecond.", DefaultOptions())
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}
	if sentences[1].HasParagraphBreak() != true {
		t.Fatalf("expected second sentence to carry paragraph_break, got info=%q", sentences[1].StructureInfo)
	}
	if sentences[0].HasParagraphBreak() {
		t.Fatalf("first sentence should not carry paragraph_break")
	}
}

func TestSentenceSegmentationSkipsParentheticals(t *testing.T) {
	sentences := collect(t, "これはテスト（重要！）です。次の文です。", DefaultOptions())
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %#v", len(sentences), sentences)
	}
	if !strings.Contains(sentences[0].Text, "重要！") {
		t.Fatalf("expected parenthetical to stay inside first sentence, got %q", sentences[0].Text)
	}
}

func TestCodeBlockLinesAreNotSplit(t *testing.T) {
	sentences := collect(t, "```\nfmt.Println(\"a.b.c\")\n```", DefaultOptions())
	if len(sentences) != 1 {
		t.Fatalf("expected 1 code sentence, got %d", len(sentences))
	}
	if sentences[0].StructureType != sentence.Code {
		t.Fatalf("expected code sentence, got %+v", sentences[0])
	}
}

func TestTableRowDetection(t *testing.T) {
	sentences := collect(t, "| a | b |\n| 1 | 2 |", DefaultOptions())
	if len(sentences) != 2 {
		t.Fatalf("expected 2 table rows, got %d", len(sentences))
	}
	for _, s := range sentences {
		if s.StructureType != sentence.Table {
			t.Fatalf("expected table row, got %+v", s)
		}
	}
}

func TestInvalidUTF8RaisesStructuralError(t *testing.T) {
	text := "Good line.\n" + "bad\xff\xfeline\n" + "Never reached."
	out, errc := Stream(strings.NewReader(text), DefaultOptions())
	var sentences []sentence.Sentence
	for s := range out {
		sentences = append(sentences, s)
	}
	err := <-errc
	var structErr *errs.StructuralError
	if !errors.As(err, &structErr) {
		t.Fatalf("expected *errs.StructuralError, got %v", err)
	}
	if structErr.Line != 2 {
		t.Fatalf("expected error on line 2, got line %d", structErr.Line)
	}
	if len(sentences) != 1 || sentences[0].Text != "Good line." {
		t.Fatalf("expected only the first line's sentence, got %#v", sentences)
	}
}

func TestNULByteRaisesStructuralError(t *testing.T) {
	_, errc := Stream(strings.NewReader("line one\x00two"), DefaultOptions())
	err := <-errc
	var structErr *errs.StructuralError
	if !errors.As(err, &structErr) {
		t.Fatalf("expected *errs.StructuralError, got %v", err)
	}
}

func TestNoBlankSentenceEverEmitted(t *testing.T) {
	sentences := collect(t, "\n\n   \nHello.\n\n\n", DefaultOptions())
	for _, s := range sentences {
		if s.StructureType == sentence.Blank {
			t.Fatalf("blank sentence leaked: %+v", s)
		}
	}
}
