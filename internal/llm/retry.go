package llm

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/hataya-labs/sentchunk/internal/errs"
)

// Call runs fn under a per-attempt timeout and applies the retry policy
// from §4.3:
//   - a timeout gets exactly one retry with jittered backoff in [0.5s, 2s];
//     a second timeout is fatal.
//   - a 5xx / connection-reset / malformed-response error gets up to three
//     retries with exponential backoff (base 500ms, factor 2, cap 4s, full
//     jitter).
//   - a 4xx error never retries.
//
// classify turns a non-timeout error from fn into an errs.LLMCallKind;
// fn's context deadline expiring is always classified as KindTimeout
// regardless of what classify says.
func Call(ctx context.Context, timeout time.Duration, fn func(context.Context) (string, error), classify func(error) errs.LLMCallKind) (string, error) {
	const (
		maxTimeoutRetries = 1
		maxServerRetries  = 3
		backoffBase       = 500 * time.Millisecond
		backoffCap        = 4 * time.Second
	)

	timeoutRetries := 0
	serverRetries := 0

	for {
		cctx, cancel := timeoutContext(ctx, timeout)
		text, err := fn(cctx)
		timedOut := cctx.Err() == context.DeadlineExceeded
		cancel()

		if err == nil {
			return text, nil
		}

		kind := errs.KindServerError
		switch {
		case timedOut:
			kind = errs.KindTimeout
		case classify != nil:
			kind = classify(err)
		}

		switch kind {
		case errs.KindBadRequest, errs.KindAuthFailed:
			return "", &errs.LLMCallError{Kind: kind, Err: err}

		case errs.KindTimeout:
			if timeoutRetries >= maxTimeoutRetries {
				return "", &errs.LLMCallError{Kind: errs.KindTimeout, Err: err}
			}
			timeoutRetries++
			if sleepErr := sleep(ctx, jitterBetween(500*time.Millisecond, 2*time.Second)); sleepErr != nil {
				return "", sleepErr
			}

		case errs.KindServerError, errs.KindMalformed:
			if serverRetries >= maxServerRetries {
				return "", &errs.LLMCallError{Kind: kind, Err: err}
			}
			delay := expBackoffFullJitter(backoffBase, backoffCap, serverRetries)
			serverRetries++
			if sleepErr := sleep(ctx, delay); sleepErr != nil {
				return "", sleepErr
			}

		default:
			return "", &errs.LLMCallError{Kind: errs.KindUnknown, Err: err}
		}
	}
}

func timeoutContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(parent, timeout)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func jitterBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

func expBackoffFullJitter(base, cap time.Duration, attempt int) time.Duration {
	upper := time.Duration(math.Min(float64(cap), float64(base)*math.Pow(2, float64(attempt))))
	if upper <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(upper)))
}

// ClassifyNetworkError is the common fallback every provider classifier
// ends with once its own HTTP-status checks do not apply: a net.Error
// timeout is KindTimeout, and every other error (connection errors
// included) is KindServerError, so both are retriable.
func ClassifyNetworkError(err error) errs.LLMCallKind {
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return errs.KindTimeout
		}
		return errs.KindServerError
	}
	return errs.KindServerError
}
