package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/valpere/tibtran/internal/retry"
)

// ResilienceConfig tunes the Resilient decorator.
type ResilienceConfig struct {
	RequestsPerSecond float64 // <= 0 disables rate limiting
	Burst             int
	// The breaker opens after this many consecutive transient failures.
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
	Retry            retry.Policy
}

// DefaultResilience is used when the configuration leaves the fields zero.
func DefaultResilience() ResilienceConfig {
	return ResilienceConfig{
		RequestsPerSecond: 2,
		Burst:             4,
		BreakerThreshold:  5,
		BreakerTimeout:    60 * time.Second,
		Retry:             retry.Default(),
	}
}

// Resilient wraps a Client so every call waits for the rate limiter and
// passes through a circuit breaker. It also implements Retrier, which makes
// Generate and Extract apply the shared retry policy.
type Resilient struct {
	inner   Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	policy  retry.Policy
	logger  *zap.Logger
}

// NewResilient decorates c.
func NewResilient(c Client, cfg ResilienceConfig, logger *zap.Logger) *Resilient {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("llm").With(zap.String("provider", c.Name()))

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	threshold := cfg.BreakerThreshold
	if threshold == 0 {
		threshold = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        c.Name(),
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Caller mistakes (bad request, auth) say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || !retry.Transient(err)
		},
	})

	policy := cfg.Retry
	if policy.MaxAttempts == 0 {
		policy = retry.Default()
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}

	return &Resilient{
		inner:   c,
		limiter: limiter,
		breaker: breaker,
		policy:  policy,
		logger:  logger,
	}
}

func (r *Resilient) Name() string { return r.inner.Name() }

// Complete performs a single attempt; retries are driven through Retry.
func (r *Resilient) Complete(ctx context.Context, req Request) (*Response, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	start := time.Now()
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.inner.Complete(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}
	resp := out.(*Response)
	r.logger.Debug("model call",
		zap.String("model", resp.Model),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, nil
}

// Retry runs fn under the shared policy.
func (r *Resilient) Retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return r.policy.Do(ctx, op, fn)
}
