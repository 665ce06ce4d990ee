// Package retry is the single retry policy used by every model call.
//
// A Policy bounds the number of attempts, waits with exponential backoff and
// jitter between them, and only retries errors it classifies as transient.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net"
	"time"

	"go.uber.org/zap"
)

// Policy configures retry behaviour.
type Policy struct {
	MaxAttempts  int           // total attempts including the first; values < 1 mean 1
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration // cap for a single delay
	Multiplier   float64       // backoff factor between consecutive delays
	Jitter       float64       // random +/- fraction applied to each delay (0..1)

	// Retryable overrides the default classification when set.
	Retryable func(error) bool
	// OnRetry is called before sleeping ahead of attempt number `attempt` (1-based).
	OnRetry func(attempt int, err error)

	Logger *zap.Logger
}

// Default keeps the historical budget of one retry after the first failure.
func Default() Policy {
	return Policy{
		MaxAttempts:  2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Transient is the default classification. Permanent and context errors are
// never retried; errors exposing Temporary() are trusted; network timeouts
// are retried; anything unclassified is treated as transient.
func Transient(err error) bool {
	if err == nil || IsPermanent(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var t interface{ Temporary() bool }
	if errors.As(err, &t) {
		return t.Temporary()
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return true
}

// Do runs fn until it succeeds, the error is not retryable, the attempts are
// exhausted or ctx is done. The last error is returned wrapped.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	classify := p.Retryable
	if classify == nil {
		classify = Transient
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%s: %w (last error: %v)", op, err, lastErr)
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("operation succeeded after retry", zap.String("op", op), zap.Int("attempt", attempt+1))
			}
			return nil
		}
		lastErr = err

		if attempt == attempts-1 || !classify(err) {
			break
		}

		delay := p.delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+2, err)
		}
		logger.Warn("retrying operation",
			zap.String("op", op),
			zap.Int("attempt", attempt+2),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: cancelled during backoff: %w", op, ctx.Err())
		}
	}

	return fmt.Errorf("%s: %w", op, lastErr)
}

func (p Policy) delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}
	base := float64(p.InitialDelay) * math.Pow(mult, float64(attempt))
	if p.MaxDelay > 0 && base > float64(p.MaxDelay) {
		base = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		base += p.Jitter * base * (rand.Float64()*2 - 1)
	}
	if base < 0 {
		base = 0
	}
	return time.Duration(base)
}
