package platform

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"tubelists/internal/search"
	"tubelists/shared/go/config"
)

// SearchBackend is the configured search index. Writes go through a
// circuit breaker; reads hit the backend directly.
type SearchBackend struct {
	Index    search.Index
	Searcher search.Searcher
	close    func() error
}

// Close releases any connection held by the backend.
func (b *SearchBackend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenSearch builds the backend selected by cfg.Backend.
func OpenSearch(ctx context.Context, cfg config.SearchConfig, db *sql.DB) (*SearchBackend, error) {
	switch cfg.Backend {
	case config.SearchBackendPostgres:
		idx := search.NewPGIndex(db)
		return &SearchBackend{
			Index:    search.NewBreaker(idx, search.DefaultBreakerConfig("search-postgres")),
			Searcher: idx,
		}, nil
	case config.SearchBackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Info().Str("addr", opts.Addr).Msg("redis search index connected")
		idx := search.NewRedisIndex(rdb, cfg.RedisPrefix)
		return &SearchBackend{
			Index:    search.NewBreaker(idx, search.DefaultBreakerConfig("search-redis")),
			Searcher: idx,
			close:    rdb.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown search backend %q", cfg.Backend)
	}
}
