// Package propagate keeps the search projection consistent with the
// relational store after committed mutations.
//
// Every sync recomputes the full document from the current database state and
// overwrites what the index holds, so racing propagations always leave a
// valid snapshot and any later mutation repairs an earlier failure.
package propagate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"tubelists/internal/metrics"
	"tubelists/internal/projection"
	"tubelists/internal/search"
	"tubelists/internal/store"
	"tubelists/shared/go/logging"
	"tubelists/shared/go/models"
)

// Source reads the authoritative playlist and video state.
type Source interface {
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	PlaylistUUIDsContainingVideo(ctx context.Context, videoID string) ([]string, error)
}

// Options tunes propagation.
type Options struct {
	// Timeout bounds one propagation, independent of the request deadline.
	Timeout time.Duration
	// Concurrency bounds the fan-out over playlists containing a video.
	Concurrency int
	// Async runs propagations in the background. Wait blocks until they finish.
	Async bool
}

const (
	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 4
)

// Propagator pushes playlist and video projections to a search index.
type Propagator struct {
	src  Source
	idx  search.Index
	opts Options
	wg   conc.WaitGroup
}

// New builds a Propagator. Zero options fall back to defaults.
func New(src Source, idx search.Index, opts Options) *Propagator {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Propagator{src: src, idx: idx, opts: opts}
}

// SyncAfterPlaylistMutation re-projects one playlist.
func (p *Propagator) SyncAfterPlaylistMutation(ctx context.Context, id string) {
	p.dispatch(ctx, func(ctx context.Context) {
		_ = p.syncPlaylist(ctx, id)
	})
}

// SyncAfterPlaylistDeletion removes the playlist's document.
func (p *Propagator) SyncAfterPlaylistDeletion(ctx context.Context, id string) {
	p.dispatch(ctx, func(ctx context.Context) {
		_ = p.deleteDocument(ctx, id)
	})
}

// SyncAfterVideoMutation re-projects the video's own document and every
// playlist containing it.
func (p *Propagator) SyncAfterVideoMutation(ctx context.Context, videoID string) {
	p.dispatch(ctx, func(ctx context.Context) {
		_ = p.syncVideo(ctx, videoID)

		ids, err := p.src.PlaylistUUIDsContainingVideo(ctx, videoID)
		if err != nil {
			metrics.Propagations.WithLabelValues("lookup", "error").Inc()
			logging.WithContext(ctx).Error().Err(err).
				Str("video_id", videoID).
				Msg("list playlists for video propagation")
			return
		}
		_ = p.fanOut(ctx, ids)
	})
}

// SyncAfterVideoDeletion removes the video's document and re-projects the
// playlists the deletion compacted.
func (p *Propagator) SyncAfterVideoDeletion(ctx context.Context, videoID string, playlists []string) {
	p.dispatch(ctx, func(ctx context.Context) {
		_ = p.deleteVideoDocument(ctx, videoID)
		if len(playlists) > 0 {
			_ = p.fanOut(ctx, playlists)
		}
	})
}

// Resync re-projects every given playlist using the caller's context and
// returns the joined failures. It backs the reconciliation command.
func (p *Propagator) Resync(ctx context.Context, ids []string) error {
	return p.fanOut(ctx, ids)
}

// ResyncVideos is Resync for video documents.
func (p *Propagator) ResyncVideos(ctx context.Context, videoIDs []string) error {
	workers := pool.New().WithErrors().WithMaxGoroutines(p.opts.Concurrency)
	for _, id := range videoIDs {
		id := id
		workers.Go(func() error {
			return p.syncVideo(ctx, id)
		})
	}
	return workers.Wait()
}

// Wait blocks until background propagations have finished.
func (p *Propagator) Wait() {
	p.wg.Wait()
}

// dispatch runs fn on a context that survives request cancellation but keeps
// its values, bounded by the propagation timeout.
func (p *Propagator) dispatch(ctx context.Context, fn func(ctx context.Context)) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.Timeout)
		defer cancel()
		fn(ctx)
	}
	if p.opts.Async {
		p.wg.Go(run)
		return
	}
	run()
}

func (p *Propagator) fanOut(ctx context.Context, ids []string) error {
	workers := pool.New().WithErrors().WithMaxGoroutines(p.opts.Concurrency)
	for _, id := range ids {
		id := id
		workers.Go(func() error {
			return p.syncPlaylist(ctx, id)
		})
	}
	return workers.Wait()
}

func (p *Propagator) syncPlaylist(ctx context.Context, id string) error {
	start := time.Now()
	defer func() { metrics.PropagationDuration.Observe(time.Since(start).Seconds()) }()

	playlist, err := p.src.GetPlaylist(ctx, id)
	if errors.Is(err, store.ErrPlaylistNotFound) {
		return p.deleteDocument(ctx, id)
	}
	if err != nil {
		metrics.Propagations.WithLabelValues("upsert", "error").Inc()
		logging.WithContext(ctx).Error().Err(err).
			Str("playlist", id).
			Msg("reload playlist for propagation")
		return fmt.Errorf("reload playlist %s: %w", id, err)
	}

	if err := p.idx.Upsert(ctx, id, projection.Document(playlist)); err != nil {
		metrics.Propagations.WithLabelValues("upsert", "error").Inc()
		logging.WithContext(ctx).Warn().Err(err).
			Str("playlist", id).
			Msg("search projection upsert failed")
		return fmt.Errorf("upsert playlist %s: %w", id, err)
	}
	metrics.Propagations.WithLabelValues("upsert", "ok").Inc()
	return nil
}

func (p *Propagator) deleteDocument(ctx context.Context, id string) error {
	if err := p.idx.DeleteIfExists(ctx, id); err != nil {
		metrics.Propagations.WithLabelValues("delete", "error").Inc()
		logging.WithContext(ctx).Warn().Err(err).
			Str("playlist", id).
			Msg("search projection delete failed")
		return fmt.Errorf("delete playlist %s: %w", id, err)
	}
	metrics.Propagations.WithLabelValues("delete", "ok").Inc()
	return nil
}

// syncVideo indexes a video an anonymous viewer can see and removes the
// document of any other, so hidden videos never stay searchable.
func (p *Propagator) syncVideo(ctx context.Context, videoID string) error {
	video, err := p.src.GetVideo(ctx, videoID)
	if errors.Is(err, store.ErrVideoNotFound) {
		return p.deleteVideoDocument(ctx, videoID)
	}
	if err != nil {
		metrics.Propagations.WithLabelValues("video_upsert", "error").Inc()
		logging.WithContext(ctx).Error().Err(err).
			Str("video_id", videoID).
			Msg("reload video for propagation")
		return fmt.Errorf("reload video %s: %w", videoID, err)
	}

	doc, ok := projection.VideoDocument(video)
	if !ok {
		return p.deleteVideoDocument(ctx, videoID)
	}
	if err := p.idx.UpsertVideo(ctx, videoID, doc); err != nil {
		metrics.Propagations.WithLabelValues("video_upsert", "error").Inc()
		logging.WithContext(ctx).Warn().Err(err).
			Str("video_id", videoID).
			Msg("search projection video upsert failed")
		return fmt.Errorf("upsert video %s: %w", videoID, err)
	}
	metrics.Propagations.WithLabelValues("video_upsert", "ok").Inc()
	return nil
}

func (p *Propagator) deleteVideoDocument(ctx context.Context, videoID string) error {
	if err := p.idx.DeleteVideoIfExists(ctx, videoID); err != nil {
		metrics.Propagations.WithLabelValues("video_delete", "error").Inc()
		logging.WithContext(ctx).Warn().Err(err).
			Str("video_id", videoID).
			Msg("search projection video delete failed")
		return fmt.Errorf("delete video %s: %w", videoID, err)
	}
	metrics.Propagations.WithLabelValues("video_delete", "ok").Inc()
	return nil
}
