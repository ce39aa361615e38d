// Package app holds helpers shared by the service packages.
package app

import (
	"context"
	"errors"

	"tubelists/internal/metrics"
	"tubelists/internal/store"
	"tubelists/shared/go/logging"
)

// RetryTransient runs fn and, if it fails with store.ErrTransientConflict,
// runs it exactly once more with the same inputs. Store operations roll back
// completely on conflict and re-read their state, so a retry is safe.
func RetryTransient[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	result, err := fn()
	if !errors.Is(err, store.ErrTransientConflict) {
		return result, err
	}

	logging.WithContext(ctx).Warn().Err(err).Str("operation", op).Msg("transient store conflict, retrying")
	result, err = fn()
	if err != nil {
		metrics.TransientRetries.WithLabelValues("failed").Inc()
		return result, err
	}
	metrics.TransientRetries.WithLabelValues("recovered").Inc()
	return result, nil
}
