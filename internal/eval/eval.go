// Package eval computes boundary F1 against a directory of gold JSONL
// files, ported from sentence_based_chunker/evaluation.py's boundary-index
// comparison (the original delegates the actual F1 arithmetic to
// scikit-learn; no equivalent metrics library exists in the retrieved
// corpus, so the small precision/recall/F1 computation here is implemented
// directly — see DESIGN.md).
package eval

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

type chunkRecord struct {
	Sentences []string `json:"sentences"`
}

// LoadBoundaries reads a chunks JSONL file and returns the set of
// cumulative sentence-count indices at which a chunk boundary fell —
// the same encoding evaluation.py's _load_boundaries uses.
func LoadBoundaries(path string) (map[int]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	indices := make(map[int]struct{})
	idx := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec chunkRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		idx += len(rec.Sentences)
		indices[idx] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return indices, nil
}

// Counts accumulates true positives, false positives, and false negatives
// across one or more gold/prediction file pairs for a micro-averaged F1.
type Counts struct {
	TP, FP, FN int
}

// Add compares one gold/prediction boundary-index pair and folds the
// result into c.
func (c *Counts) Add(gold, pred map[int]struct{}) {
	for idx := range pred {
		if _, ok := gold[idx]; ok {
			c.TP++
		} else {
			c.FP++
		}
	}
	for idx := range gold {
		if _, ok := pred[idx]; !ok {
			c.FN++
		}
	}
}

// F1 returns the micro-averaged F1 score, precision, and recall for the
// accumulated counts. All three are 0 when there is no positive evidence
// on either side.
func (c Counts) F1() (f1, precision, recall float64) {
	if c.TP+c.FP > 0 {
		precision = float64(c.TP) / float64(c.TP+c.FP)
	}
	if c.TP+c.FN > 0 {
		recall = float64(c.TP) / float64(c.TP+c.FN)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return f1, precision, recall
}

// Evaluate walks every *.jsonl file in goldDir, finds its same-named
// counterpart in predDir, and returns the micro-averaged boundary F1
// across all of them.
func Evaluate(goldDir, predDir string) (Counts, error) {
	matches, err := filepath.Glob(filepath.Join(goldDir, "*.jsonl"))
	if err != nil {
		return Counts{}, fmt.Errorf("glob %s: %w", goldDir, err)
	}
	sort.Strings(matches)

	var total Counts
	for _, goldPath := range matches {
		predPath := filepath.Join(predDir, filepath.Base(goldPath))
		gold, err := LoadBoundaries(goldPath)
		if err != nil {
			return Counts{}, err
		}
		pred, err := LoadBoundaries(predPath)
		if err != nil {
			return Counts{}, err
		}
		total.Add(gold, pred)
	}
	return total, nil
}
