// Package detect implements the boundary detector (C6): the four-stage
// cascade from spec §4.4 that turns aligned (sentence, embedding) streams
// into a boolean boundary decision per adjacency. Stage C's fan-out is
// grounded on src/concurrent/pool.go's semaphore-bounded goroutine
// pattern, routed through the shared router.Router so the concurrency
// budget is the same one governing every other LLM call.
package detect

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/hataya-labs/sentchunk/internal/config"
	"github.com/hataya-labs/sentchunk/internal/llm"
	"github.com/hataya-labs/sentchunk/internal/logging"
	"github.com/hataya-labs/sentchunk/internal/ner"
	"github.com/hataya-labs/sentchunk/internal/router"
	"github.com/hataya-labs/sentchunk/internal/sentence"
)

// Decision pairs a sentence with the boundary decision immediately before
// it. The very first sentence in a stream always carries Boundary=true
// (there is nothing to be a continuation of).
type Decision struct {
	Sentence sentence.Sentence
	Boundary bool
}

// Recognizer is the subset of ner.Recognizer the detector depends on,
// declared locally so Stage D's dependency is a capability, not a
// concrete package (§9 "Pluggable NER").
type Recognizer interface {
	Entities(text string) map[string]struct{}
}

// Router is the subset of router.Router the detector depends on.
type Router interface {
	Generate(ctx context.Context, prompt string, params llm.Params) (string, error)
}

// EpochObserver receives a rolling quality estimate every epochSize
// LLM-adjudicated adjacencies. router.Router implements this directly, so
// the Stage-C/Stage-B agreement rate feeds straight into the auto-mode
// failover warning (§4.3) without an adapter type.
type EpochObserver interface {
	ObserveEpoch(router.EpochStats)
}

// Option configures a Stage collaborator that most callers don't need to
// set explicitly, keeping New's required parameter list unchanged.
type Option func(*Stage)

// WithEpochObserver registers o to be notified every epochSize
// LLM-adjudicated adjacencies with the rolling hint/verdict agreement
// rate. A live run has no gold boundary labels (only `eval` does), so
// this agreement rate is the runtime stand-in for the "rolling F1
// estimate" spec §4.3 describes: it tracks whether Stage C is still
// confirming Stage B's statistical hint, the same signal a real drop in
// quality would disturb first.
func WithEpochObserver(o EpochObserver) Option {
	return func(s *Stage) { s.epochObserver = o }
}

// epochSize is the number of LLM-adjudicated adjacencies averaged into
// one rolling estimate before ObserveEpoch is called again.
const epochSize = 20

// Stage holds the configuration and collaborators for one detector run.
// Each Stream call owns its own sliding window; the only mutable state on
// Stage is the epoch agreement counters, which persist across Stream calls.
type Stage struct {
	cfg                 config.DetectorConfig
	router              Router
	ner                 Recognizer
	log                 *logging.Logger
	listIndentThreshold int

	voteParams llm.Params

	epochObserver EpochObserver
	epochAgree    int64
	epochTotal    int64
}

// New builds a detector Stage. router and recognizer may be nil: a nil
// router disables Stage C (every ambiguous adjacency resolves to the
// Stage-B hint); a nil recognizer disables the NER-Jaccard rule, per
// spec §9's "absence is a no-op, not an error". listIndentThreshold comes
// from config.DocumentStructureConfig.ListIndentThreshold (§4.1, reused by
// Stage D's indent-delta override per §4.4).
func New(cfg config.DetectorConfig, listIndentThreshold int, r Router, recognizer Recognizer, log *logging.Logger, opts ...Option) *Stage {
	if log == nil {
		log = logging.New()
	}
	if listIndentThreshold <= 0 {
		listIndentThreshold = 2
	}
	s := &Stage{
		cfg:                 cfg,
		router:              r,
		ner:                 recognizer,
		log:                 log,
		listIndentThreshold: listIndentThreshold,
		voteParams:          llm.Params{Temperature: 0.7, MaxTokens: 8},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const epsilon = 1e-9

// Stream consumes the aligned sentence and embedding streams and emits one
// Decision per sentence, in input order, per spec §5's ordering guarantee.
// It buffers up to one adjacency's worth of in-flight Stage-C work per
// pending slot, tracked as a FIFO of per-adjacency result channels.
func (d *Stage) Stream(ctx context.Context, sentences <-chan sentence.Sentence, embeddings <-chan []float32) (<-chan Decision, <-chan error) {
	out := make(chan Decision, 64)
	errc := make(chan error, 1)
	futures := make(chan chan Decision, 256)

	go d.drain(ctx, futures, out, errc)

	go func() {
		defer close(futures)

		var (
			window       []float64
			prevSentence sentence.Sentence
			prevVec      []float32
			haveWindow   bool
		)

		for {
			s, sOk := <-sentences
			v, vOk := <-embeddings
			if !sOk || !vOk {
				return
			}

			if !haveWindow {
				prevSentence, prevVec = s, v
				haveWindow = true
				fut := make(chan Decision, 1)
				fut <- Decision{Sentence: s, Boundary: true}
				close(fut)
				select {
				case futures <- fut:
				case <-ctx.Done():
					return
				}
				continue
			}

			curr, currVec := s, v
			sim := cosineSimilarity(prevVec, currVec)
			prev := prevSentence

			fut := make(chan Decision, 1)

			switch {
			case sim >= d.cfg.ThresholdHigh:
				window = pushWindow(window, sim, d.cfg.WindowSize)
				boundary := d.applyStageD(prev, curr, false)
				fut <- Decision{Sentence: curr, Boundary: boundary}
				close(fut)

			case sim <= d.cfg.ThresholdLow:
				window = pushWindow(window, sim, d.cfg.WindowSize)
				boundary := d.applyStageD(prev, curr, true)
				fut <- Decision{Sentence: curr, Boundary: boundary}
				close(fut)

			default:
				snapshot := append([]float64(nil), window...)
				window = pushWindow(window, sim, d.cfg.WindowSize)
				go func(prev, curr sentence.Sentence, win []float64, sim float64) {
					hint := stageBHint(win, sim, d.cfg.ZScoreThreshold)
					boundary := hint
					if d.cfg.LLMReviewEnabled() && d.router != nil {
						verdict, err := d.stageC(ctx, prev, curr, hint)
						if err != nil {
							d.log.Warnf("stage C adjudication failed for adjacency at line %d: %v; falling back to stage B hint", curr.LineNumber, err)
							boundary = hint
						} else {
							boundary = verdict
						}
						d.recordEpoch(hint, boundary)
					}
					boundary = d.applyStageD(prev, curr, boundary)
					fut <- Decision{Sentence: curr, Boundary: boundary}
					close(fut)
				}(prev, curr, snapshot, sim)
			}

			select {
			case futures <- fut:
			case <-ctx.Done():
				return
			}

			prevSentence, prevVec = curr, currVec
		}
	}()

	return out, errc
}

func (d *Stage) drain(ctx context.Context, futures <-chan chan Decision, out chan<- Decision, errc chan<- error) {
	defer close(out)
	defer close(errc)
	for fut := range futures {
		select {
		case dec := <-fut:
			select {
			case out <- dec:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// stageC asks n_vote independent questions and returns the majority
// verdict; a tie defers to the Stage-B hint (§4.4 Stage C).
func (d *Stage) stageC(ctx context.Context, prev, curr sentence.Sentence, hint bool) (bool, error) {
	nVote := d.cfg.NVote
	if nVote <= 0 {
		nVote = 3
	}
	prompt := adjudicationPrompt(prev, curr)

	type vote struct {
		sameTopic bool
		err       error
	}
	results := make(chan vote, nVote)
	for i := 0; i < nVote; i++ {
		go func() {
			text, err := d.router.Generate(ctx, prompt, d.voteParams)
			if err != nil {
				results <- vote{err: err}
				return
			}
			results <- vote{sameTopic: parseVerdict(text)}
		}()
	}

	yes, no, failed := 0, 0, 0
	for i := 0; i < nVote; i++ {
		r := <-results
		switch {
		case r.err != nil:
			failed++
		case r.sameTopic:
			yes++
		default:
			no++
		}
	}
	if failed == nVote {
		return hint, fmt.Errorf("all %d votes failed", nVote)
	}
	switch {
	case yes > no:
		return false, nil // same topic: no boundary
	case no > yes:
		return true, nil
	default:
		return hint, nil // tie: prefer stage B hint
	}
}

// recordEpoch folds one LLM-adjudicated adjacency into the rolling
// hint/verdict agreement rate and, every epochSize adjacencies, reports it
// to the registered EpochObserver. Counters are plain atomics rather than a
// mutex-guarded snapshot: Stage C's votes run concurrently across
// adjacencies, so an epoch boundary landing mid-update can pull in one
// adjacency's count from the following window, which is acceptable for a
// warn-only quality signal.
func (d *Stage) recordEpoch(hint, verdict bool) {
	if d.epochObserver == nil {
		return
	}
	if hint == verdict {
		atomic.AddInt64(&d.epochAgree, 1)
	}
	total := atomic.AddInt64(&d.epochTotal, 1)
	if total < epochSize {
		return
	}
	agree := atomic.SwapInt64(&d.epochAgree, 0)
	atomic.StoreInt64(&d.epochTotal, 0)
	d.epochObserver.ObserveEpoch(router.EpochStats{RollingF1: float64(agree) / float64(total)})
}

func adjudicationPrompt(prev, curr sentence.Sentence) string {
	var b strings.Builder
	b.WriteString("You are judging whether two consecutive sentences from a document belong to the same topic.\n")
	b.WriteString(fmt.Sprintf("Sentence 1 (%s): %s\n", prev.StructureType, prev.Text))
	b.WriteString(fmt.Sprintf("Sentence 2 (%s): %s\n", curr.StructureType, curr.Text))
	b.WriteString("Answer strictly YES if they share the same topic, or NO if sentence 2 starts a new topic.")
	return b.String()
}

func parseVerdict(text string) bool {
	trimmed := strings.ToUpper(strings.TrimSpace(text))
	return strings.HasPrefix(trimmed, "YES")
}

// stageBHint computes the robust z-score against the sliding window and
// reports the likely-boundary hint (§4.4 Stage B). An empty window (start
// of document) has no basis for an anomaly signal, so it hints continuation.
func stageBHint(window []float64, sim, tau float64) bool {
	if len(window) == 0 {
		return false
	}
	med := median(window)
	m := mad(window, med)
	z := (med - sim) / (1.4826*m + epsilon)
	return z >= tau
}

func pushWindow(window []float64, sim float64, k int) []float64 {
	if k <= 0 {
		k = 5
	}
	window = append(window, sim)
	if len(window) > k {
		window = window[len(window)-k:]
	}
	return window
}

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func mad(vals []float64, med float64) float64 {
	deviations := make([]float64, len(vals))
	for i, v := range vals {
		deviations[i] = math.Abs(v - med)
	}
	return median(deviations)
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// applyStageD applies the post-filter rules over one adjacency (§4.4 Stage
// D). It only needs the immediate pair, since every rule in the spec is
// local to the adjacency.
func (d *Stage) applyStageD(prev, curr sentence.Sentence, boundary bool) bool {
	if curr.StructureType == sentence.Header || prev.StructureType == sentence.Header {
		return true
	}
	if prev.StructureType == sentence.List && curr.StructureType != sentence.List {
		return true
	}
	if indentDelta(prev, curr) >= d.listIndentThreshold {
		return true
	}
	if prev.StructureType == sentence.List && curr.StructureType == sentence.List &&
		prev.StructureInfo == curr.StructureInfo && prev.IndentLevel == curr.IndentLevel {
		return false
	}

	if !boundary {
		return false
	}

	if d.ner != nil {
		prevEntities := d.ner.Entities(prev.Text)
		currEntities := d.ner.Entities(curr.Text)
		if ner.Jaccard(prevEntities, currEntities) >= d.cfg.NERJaccardThreshold {
			return false
		}
	}

	if startsWithConnective(curr.Text, d.cfg.ConnectiveWords) && runeLen(curr.Text) <= d.cfg.ShortConnectiveMaxRunes {
		return false
	}

	return true
}

func indentDelta(prev, curr sentence.Sentence) int {
	delta := curr.IndentLevel - prev.IndentLevel
	if delta < 0 {
		delta = -delta
	}
	return delta
}

func startsWithConnective(text string, words []string) bool {
	trimmed := strings.TrimSpace(text)
	for _, w := range words {
		if w == "" {
			continue
		}
		if strings.HasPrefix(trimmed, w) {
			return true
		}
		if strings.HasPrefix(strings.ToLower(trimmed), strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func runeLen(s string) int {
	return len([]rune(s))
}
