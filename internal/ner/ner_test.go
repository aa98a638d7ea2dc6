package ner

import "testing"

func TestHeuristicExtractsKatakanaKanjiAndCapitalizedWords(t *testing.T) {
	h := New()
	entities := h.Entities("トヨタは東京でGoogleと提携した。")

	for _, want := range []string{"トヨタ", "東京", "Google"} {
		if _, ok := entities[want]; !ok {
			t.Fatalf("expected entity %q, got %v", want, entities)
		}
	}
}

func TestJaccardEmptySetsAreZero(t *testing.T) {
	if got := Jaccard(map[string]struct{}{}, map[string]struct{}{"a": {}}); got != 0 {
		t.Fatalf("expected 0 for an empty set, got %v", got)
	}
}

func TestJaccardIdenticalSetsAreOne(t *testing.T) {
	set := map[string]struct{}{"トヨタ": {}, "東京": {}}
	if got := Jaccard(set, set); got != 1 {
		t.Fatalf("expected 1 for identical sets, got %v", got)
	}
}

func TestJaccardPartialOverlap(t *testing.T) {
	a := map[string]struct{}{"A": {}, "B": {}}
	b := map[string]struct{}{"B": {}, "C": {}}
	if got := Jaccard(a, b); got != 1.0/3.0 {
		t.Fatalf("expected 1/3, got %v", got)
	}
}
