// Package platform opens the process-wide resources shared by the commands.
package platform

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"
)

// Backoff bounds how long OpenDatabase waits for Postgres to come up.
type Backoff struct {
	PingTimeout time.Duration
	MaxWait     time.Duration
	Initial     time.Duration
	Max         time.Duration
}

// DefaultBackoff waits up to thirty seconds, doubling from half a second.
var DefaultBackoff = Backoff{
	PingTimeout: 5 * time.Second,
	MaxWait:     30 * time.Second,
	Initial:     500 * time.Millisecond,
	Max:         5 * time.Second,
}

// OpenDatabase opens a pgx-backed pool and retries until the instance responds.
func OpenDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := waitForDatabase(ctx, db, DefaultBackoff); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func waitForDatabase(ctx context.Context, db *sql.DB, b Backoff) error {
	deadline := time.Now().Add(b.MaxWait)
	delay := b.Initial

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, b.PingTimeout)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}

		if ctx.Err() != nil || time.Now().Add(delay).After(deadline) {
			return fmt.Errorf("ping database after %d attempts: %w", attempt, err)
		}

		log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("database not ready")
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
		if delay > b.Max {
			delay = b.Max
		}
	}
}
