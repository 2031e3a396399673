package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when a wrapped generator exceeds its deadline.
var ErrTimeout = errors.New("generation timed out")

// ErrGeneratorPanic is returned when a wrapped generator panics.
var ErrGeneratorPanic = errors.New("generator panicked")

type timeoutGenerator struct {
	next    Generator
	timeout time.Duration
}

// WithTimeout bounds every call to g. A non-positive timeout returns g unchanged.
func WithTimeout(g Generator, timeout time.Duration) Generator {
	if timeout <= 0 {
		return g
	}
	return &timeoutGenerator{next: g, timeout: timeout}
}

func (t *timeoutGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		resp *Response
		err  error
	}
	// Buffered so the call can finish after the deadline without leaking.
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: %v", ErrGeneratorPanic, r)}
			}
		}()
		resp, err := t.next.Generate(ctx, req)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %v: %w", ErrTimeout, t.timeout, r.err)
		}
		return r.resp, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %v", ErrTimeout, t.timeout)
		}
		return nil, ctx.Err()
	}
}
