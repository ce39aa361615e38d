package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"tubelists/internal/metrics"
	"tubelists/shared/go/logging"
	"tubelists/shared/go/models"
)

// BreakerConfig tunes the circuit breaker around an Index.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips after half of at least five calls fail and
// lets a trial call through after thirty seconds.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.5,
		MinRequests:      5,
	}
}

// Breaker guards an Index with a circuit breaker so an unreachable backend
// fails fast instead of stalling every propagation.
type Breaker struct {
	next Index
	cb   *gobreaker.CircuitBreaker
}

// NewBreaker wraps next.
func NewBreaker(next Index, cfg BreakerConfig) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		IsSuccessful: backendHealthy,
		OnStateChange: func(name string, _, to gobreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	metrics.BreakerState.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))
	return &Breaker{next: next, cb: cb}
}

// Upsert forwards to the wrapped index unless the breaker is open.
func (b *Breaker) Upsert(ctx context.Context, id string, doc models.PlaylistDocument) error {
	return b.run(ctx, func() error { return b.next.Upsert(ctx, id, doc) })
}

// DeleteIfExists forwards to the wrapped index unless the breaker is open.
func (b *Breaker) DeleteIfExists(ctx context.Context, id string) error {
	return b.run(ctx, func() error { return b.next.DeleteIfExists(ctx, id) })
}

// UpsertVideo forwards to the wrapped index unless the breaker is open.
func (b *Breaker) UpsertVideo(ctx context.Context, id string, doc models.VideoDocument) error {
	return b.run(ctx, func() error { return b.next.UpsertVideo(ctx, id, doc) })
}

// DeleteVideoIfExists forwards to the wrapped index unless the breaker is open.
func (b *Breaker) DeleteVideoIfExists(ctx context.Context, id string) error {
	return b.run(ctx, func() error { return b.next.DeleteVideoIfExists(ctx, id) })
}

// State reports the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) run(ctx context.Context, fn func() error) error {
	before := b.cb.State()
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if after := b.cb.State(); after != before {
		logging.WithContext(ctx).Warn().
			Str("breaker", b.cb.Name()).
			Str("from", before.String()).
			Str("to", after.String()).
			Msg("search index breaker state change")
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// backendHealthy treats a caller giving up as no evidence against the backend.
func backendHealthy(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
