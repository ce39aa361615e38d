package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tubelists/internal/platform"
	"tubelists/internal/propagate"
	"tubelists/internal/search"
	"tubelists/internal/store"
	"tubelists/shared/go/config"
	"tubelists/shared/go/logging"
)

// options holds the flags of the reindex command.
type options struct {
	Playlists   []string
	Videos      []string
	Concurrency int
	Timeout     time.Duration
}

// playlistSource is what a resync needs from the store.
type playlistSource interface {
	propagate.Source
	ListPlaylistUUIDs(ctx context.Context) ([]string, error)
	ListVideoIDs(ctx context.Context) ([]string, error)
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Re-project playlists and videos into the search index",
		Long: `Reload every playlist and video (or only the ones given with --playlist and
--video) from the database and write their search documents into the configured
index. Documents of playlists and videos that no longer exist, or that are no
longer public, are removed.

Examples:
  reindex
  reindex --playlist 3f0c... --playlist 9a1d...
  reindex --video dQw4w9WgXcQ
  SEARCH_BACKEND=redis reindex --concurrency 8`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Playlists, "playlist", nil, "playlist UUID to reindex (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Videos, "video", nil, "video id to reindex (repeatable)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "parallel playlist reloads (defaults to PROPAGATION_CONCURRENCY)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Minute, "overall deadline for the resync")

	return cmd
}

func runReindex(parent context.Context, opts *options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.SetGlobalLogger(logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}))

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	db, err := platform.OpenDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	backend, err := platform.OpenSearch(ctx, cfg.Search, db)
	if err != nil {
		return err
	}
	defer backend.Close()

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = cfg.Propagation.Concurrency
	}
	return reindex(ctx, store.New(db), backend.Index, targets{Playlists: opts.Playlists, Videos: opts.Videos}, concurrency)
}

// targets selects what to reindex. When both lists are empty everything is.
type targets struct {
	Playlists []string
	Videos    []string
}

func reindex(ctx context.Context, src playlistSource, idx search.Index, t targets, concurrency int) error {
	if len(t.Playlists) == 0 && len(t.Videos) == 0 {
		var err error
		if t.Playlists, err = src.ListPlaylistUUIDs(ctx); err != nil {
			return fmt.Errorf("list playlists: %w", err)
		}
		if t.Videos, err = src.ListVideoIDs(ctx); err != nil {
			return fmt.Errorf("list videos: %w", err)
		}
	}

	started := time.Now()
	propagator := propagate.New(src, idx, propagate.Options{Concurrency: concurrency})
	if err := propagator.ResyncVideos(ctx, t.Videos); err != nil {
		return fmt.Errorf("resync %d videos: %w", len(t.Videos), err)
	}
	if err := propagator.Resync(ctx, t.Playlists); err != nil {
		return fmt.Errorf("resync %d playlists: %w", len(t.Playlists), err)
	}

	fmt.Fprintf(os.Stdout, "reindexed %d playlists and %d videos in %s\n",
		len(t.Playlists), len(t.Videos), time.Since(started).Round(time.Millisecond))
	log.Info().Int("playlists", len(t.Playlists)).Int("videos", len(t.Videos)).Msg("reindex complete")
	return nil
}
