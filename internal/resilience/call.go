package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// ErrTimeout marks a call that exceeded its per-call bound.
var ErrTimeout = eris.New("collaborator call timed out")

type outcome[T any] struct {
	val T
	err error
}

// Call runs fn once under the breaker with a timeout derived from ctx.
// The call returns at the deadline even when fn ignores its context; fn keeps
// running in the background and its late result is discarded.
// A panic inside fn is converted into an error and counts as a failure.
func Call[T any](ctx context.Context, b *Breaker, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if b != nil {
		if err := b.allow(); err != nil {
			return zero, eris.Wrapf(err, "%s", b.name)
		}
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan outcome[T], 1)
	go func() {
		var out outcome[T]
		defer func() {
			if r := recover(); r != nil {
				out = outcome[T]{err: fmt.Errorf("panic: %v", r)}
			}
			done <- out
		}()
		out.val, out.err = fn(callCtx)
	}()

	var out outcome[T]
	select {
	case out = <-done:
	case <-callCtx.Done():
		out = outcome[T]{err: callCtx.Err()}
	}

	if out.err != nil {
		out.val = zero
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			out.err = eris.Wrapf(ErrTimeout, "%s after %s: %v", nameOf(b), timeout, out.err)
		}
	}
	if b != nil {
		b.record(out.err)
	}
	return out.val, out.err
}

// Do is Call for functions without a result value.
func Do(ctx context.Context, b *Breaker, timeout time.Duration, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, b, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func nameOf(b *Breaker) string {
	if b == nil {
		return "call"
	}
	return b.name
}
