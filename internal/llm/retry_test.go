package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hataya-labs/sentchunk/internal/errs"
)

func TestCallSucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	text, err := Call(context.Background(), time.Second, func(context.Context) (string, error) {
		calls++
		return "ok", nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok" {
		t.Fatalf("unexpected text: %q", text)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", calls)
	}
}

func TestCallBadRequestNeverRetries(t *testing.T) {
	calls := 0
	_, err := Call(context.Background(), time.Second, func(context.Context) (string, error) {
		calls++
		return "", errors.New("bad request")
	}, func(error) errs.LLMCallKind { return errs.KindBadRequest })

	if calls != 1 {
		t.Fatalf("expected exactly one attempt for a non-retriable error, got %d", calls)
	}
	var callErr *errs.LLMCallError
	if !errors.As(err, &callErr) || callErr.Kind != errs.KindBadRequest {
		t.Fatalf("expected LLMCallError{KindBadRequest}, got %v", err)
	}
}

func TestCallServerErrorRetriesThenSucceeds(t *testing.T) {
	calls := 0
	text, err := Call(context.Background(), time.Second, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("server error")
		}
		return "recovered", nil
	}, func(error) errs.LLMCallKind { return errs.KindServerError })

	if err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if text != "recovered" {
		t.Fatalf("unexpected text: %q", text)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestCallServerErrorExhaustsRetries(t *testing.T) {
	calls := 0
	_, err := Call(context.Background(), time.Second, func(context.Context) (string, error) {
		calls++
		return "", errors.New("still down")
	}, func(error) errs.LLMCallKind { return errs.KindServerError })

	if calls != 4 { // 1 initial + 3 retries
		t.Fatalf("expected 4 attempts, got %d", calls)
	}
	var callErr *errs.LLMCallError
	if !errors.As(err, &callErr) || callErr.Kind != errs.KindServerError {
		t.Fatalf("expected LLMCallError{KindServerError}, got %v", err)
	}
}

func TestCallTimeoutRetriesOnceThenFails(t *testing.T) {
	calls := 0
	_, err := Call(context.Background(), 5*time.Millisecond, func(cctx context.Context) (string, error) {
		calls++
		<-cctx.Done()
		return "", cctx.Err()
	}, nil)

	if calls != 2 { // 1 initial + 1 retry
		t.Fatalf("expected 2 attempts for repeated timeouts, got %d", calls)
	}
	var callErr *errs.LLMCallError
	if !errors.As(err, &callErr) || callErr.Kind != errs.KindTimeout {
		t.Fatalf("expected LLMCallError{KindTimeout}, got %v", err)
	}
}

func TestCallAbortsOnParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Call(ctx, time.Second, func(context.Context) (string, error) {
		calls++
		return "", errors.New("server error")
	}, func(error) errs.LLMCallKind { return errs.KindServerError })

	if err == nil {
		t.Fatalf("expected an error when the parent context is already cancelled")
	}
	if calls != 1 {
		t.Fatalf("expected one attempt before the cancelled sleep aborts, got %d", calls)
	}
}

func TestDummyClientIgnoresPrompt(t *testing.T) {
	c := NewDummyClient("")
	text, err := c.Generate(context.Background(), "anything", Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "SAME" {
		t.Fatalf("unexpected default prefix response: %q", text)
	}
}
