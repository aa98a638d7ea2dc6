// Package router implements the provider router (C3): it dispatches
// generate calls to a local or remote LLM client per the configured mode,
// under a shared concurrency semaphore, adapted from
// pkg/uploads/pipeline.go's channel-bounded worker pattern and
// src/concurrent/pool.go's semaphore.
package router

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/hataya-labs/sentchunk/internal/llm"
	"github.com/hataya-labs/sentchunk/internal/logging"
)

// Mode selects which backend the router dispatches to.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
	ModeAuto   Mode = "auto"
)

// EpochStats summarizes one evaluation epoch's boundary decisions, fed to
// Router.ObserveEpoch to drive the auto-mode warning in §4.3.
type EpochStats struct {
	RollingF1 float64
}

// Router owns the llm_concurrency semaphore shared by both clients and
// picks which client answers a given call.
type Router struct {
	mode   Mode
	local  llm.Client
	remote llm.Client
	sem    chan struct{}
	log    *logging.Logger

	// remoteLimiter smooths bursts of Stage-C votes hitting a rate-limited
	// remote API beyond what the concurrency semaphore alone bounds; it is
	// only waited on for calls dispatched to the remote client, so local
	// calls are not paced.
	remoteLimiter *rate.Limiter

	goldF1          float64
	f1DropThreshold float64
	warned          bool
}

// New builds a router with the given concurrency cap N (§5's semaphore).
// remote may be nil when mode is "local"; local may be nil when mode is
// "remote". goldF1 and f1DropThreshold are only consulted in auto mode. The
// remote backend is additionally paced at concurrency*2 requests/second,
// burst concurrency, since a remote API's own rate limit is typically
// tighter than what local concurrency alone would produce.
func New(mode Mode, local, remote llm.Client, concurrency int, goldF1, f1DropThreshold float64, log *logging.Logger) *Router {
	if concurrency <= 0 {
		concurrency = 2
	}
	if log == nil {
		log = logging.New()
	}
	return &Router{
		mode:            mode,
		local:           local,
		remote:          remote,
		sem:             make(chan struct{}, concurrency),
		log:             log,
		remoteLimiter:   rate.NewLimiter(rate.Limit(concurrency*2), concurrency),
		goldF1:          goldF1,
		f1DropThreshold: f1DropThreshold,
	}
}

// Generate acquires one concurrency permit for the call's entire duration
// and dispatches to whichever client the current mode selects.
func (r *Router) Generate(ctx context.Context, prompt string, params llm.Params) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r.sem <- struct{}{}:
	}
	defer func() { <-r.sem }()

	client, err := r.pick()
	if err != nil {
		return "", err
	}
	if client == r.remote && r.remoteLimiter != nil {
		if err := r.remoteLimiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	return client.Generate(ctx, prompt, params)
}

// pick resolves the dispatch rule from §4.3. Auto mode always dispatches
// to the local client; ObserveEpoch is what surfaces the failover warning.
func (r *Router) pick() (llm.Client, error) {
	switch r.mode {
	case ModeRemote:
		if r.remote == nil {
			return nil, fmt.Errorf("router: mode is remote but no remote client is configured")
		}
		return r.remote, nil
	case ModeLocal, ModeAuto:
		if r.local == nil {
			return nil, fmt.Errorf("router: mode is %s but no local client is configured", r.mode)
		}
		return r.local, nil
	default:
		return nil, fmt.Errorf("router: unknown mode %q", r.mode)
	}
}

// ObserveEpoch records a rolling F1 estimate against the gold set. In auto
// mode, if the drop from the initial epoch's F1 reaches f1_drop_threshold
// it logs a warning exactly once per run; it never switches the dispatch
// target itself (§4.3, §9 open question: warn-only until clarified).
func (r *Router) ObserveEpoch(stats EpochStats) {
	if r.mode != ModeAuto || r.warned {
		return
	}
	if r.goldF1 == 0 {
		r.goldF1 = stats.RollingF1
		return
	}
	if r.goldF1-stats.RollingF1 >= r.f1DropThreshold {
		r.log.Warnf("auto mode: rolling F1 dropped by %.3f (>= threshold %.3f); local backend may be degrading, consider --force-remote", r.goldF1-stats.RollingF1, r.f1DropThreshold)
		r.warned = true
	}
}
