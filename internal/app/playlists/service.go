package playlists

import (
	"context"
	"errors"

	"tubelists/internal/app"
	"tubelists/internal/metrics"
	"tubelists/internal/projection"
	"tubelists/internal/store"
	"tubelists/shared/go/models"
)

// Store captures the persistence needs for playlist workflows.
type Store interface {
	GetUserByUUID(ctx context.Context, id string) (*models.User, error)
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	ListPlaylistsByOwner(ctx context.Context, ownerID int64) ([]*models.Playlist, error)
	CreatePlaylist(ctx context.Context, ownerID int64, in models.PlaylistInput) (*models.Playlist, error)
	UpdatePlaylist(ctx context.Context, id string, upd models.PlaylistUpdate) (*models.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	AddVideoToPlaylist(ctx context.Context, playlistID, videoID string) (*models.Playlist, error)
	RemoveVideoFromPlaylist(ctx context.Context, playlistID, videoID string) (*models.Playlist, error)
	MoveVideoInPlaylist(ctx context.Context, playlistID, videoID string, rank int) (*models.Playlist, error)
}

// Propagator is notified after every committed playlist change.
type Propagator interface {
	SyncAfterPlaylistMutation(ctx context.Context, id string)
	SyncAfterPlaylistDeletion(ctx context.Context, id string)
}

// Service coordinates playlist-related operations.
type Service interface {
	List(ctx context.Context, principal *models.Principal) ([]models.PlaylistView, error)
	ListByUser(ctx context.Context, ownerUUID string, viewer *models.Principal) ([]models.PlaylistView, error)
	Get(ctx context.Context, id string, viewer *models.Principal) (models.PlaylistView, error)
	Create(ctx context.Context, principal *models.Principal, in models.PlaylistInput) (models.PlaylistView, error)
	Update(ctx context.Context, principal *models.Principal, id string, upd models.PlaylistUpdate) (models.PlaylistView, error)
	Delete(ctx context.Context, principal *models.Principal, id string) error
	AddVideo(ctx context.Context, principal *models.Principal, id, videoID string) (models.PlaylistView, error)
	RemoveVideo(ctx context.Context, principal *models.Principal, id, videoID string) (models.PlaylistView, error)
	MoveVideo(ctx context.Context, principal *models.Principal, id, videoID string, rank int) (models.PlaylistView, error)
}

type service struct {
	store      Store
	propagator Propagator
}

// New constructs a Service backed by the provided Store.
func New(store Store, propagator Propagator) Service {
	return &service{store: store, propagator: propagator}
}

func (s *service) List(ctx context.Context, principal *models.Principal) ([]models.PlaylistView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if principal.Anonymous() {
		return nil, store.ErrUnauthorized
	}
	playlists, err := s.store.ListPlaylistsByOwner(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	views := make([]models.PlaylistView, 0, len(playlists))
	for _, p := range playlists {
		views = append(views, projection.Render(p, principal))
	}
	return views, nil
}

// ListByUser returns the playlists of ownerUUID that viewer may find in
// that user's listing, rendered for viewer.
func (s *service) ListByUser(ctx context.Context, ownerUUID string, viewer *models.Principal) ([]models.PlaylistView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	owner, err := s.store.GetUserByUUID(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}
	playlists, err := s.store.ListPlaylistsByOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	views := make([]models.PlaylistView, 0, len(playlists))
	for _, p := range playlists {
		if projection.Listed(p, viewer) {
			views = append(views, projection.Render(p, viewer))
		}
	}
	return views, nil
}

func (s *service) Get(ctx context.Context, id string, viewer *models.Principal) (models.PlaylistView, error) {
	if err := ctx.Err(); err != nil {
		return models.PlaylistView{}, err
	}
	playlist, err := s.store.GetPlaylist(ctx, id)
	if err != nil {
		return models.PlaylistView{}, err
	}
	return projection.View(playlist, viewer)
}

func (s *service) Create(ctx context.Context, principal *models.Principal, in models.PlaylistInput) (models.PlaylistView, error) {
	if err := ctx.Err(); err != nil {
		return models.PlaylistView{}, err
	}
	if principal.Anonymous() {
		return models.PlaylistView{}, store.ErrUnauthorized
	}
	playlist, err := s.store.CreatePlaylist(ctx, principal.UserID, in)
	if err != nil {
		return models.PlaylistView{}, err
	}
	s.propagator.SyncAfterPlaylistMutation(ctx, playlist.UUID)
	return projection.Render(playlist, principal), nil
}

func (s *service) Update(ctx context.Context, principal *models.Principal, id string, upd models.PlaylistUpdate) (models.PlaylistView, error) {
	if err := s.authorize(ctx, principal, id); err != nil {
		return models.PlaylistView{}, err
	}
	playlist, err := app.RetryTransient(ctx, "update_playlist", func() (*models.Playlist, error) {
		return s.store.UpdatePlaylist(ctx, id, upd)
	})
	if err != nil {
		return models.PlaylistView{}, err
	}
	s.propagator.SyncAfterPlaylistMutation(ctx, id)
	return projection.Render(playlist, principal), nil
}

func (s *service) Delete(ctx context.Context, principal *models.Principal, id string) error {
	if err := s.authorize(ctx, principal, id); err != nil {
		return err
	}
	_, err := app.RetryTransient(ctx, "delete_playlist", func() (struct{}, error) {
		return struct{}{}, s.store.DeletePlaylist(ctx, id)
	})
	if err != nil {
		return err
	}
	s.propagator.SyncAfterPlaylistDeletion(ctx, id)
	return nil
}

// AddVideo appends a video the principal owns to a playlist the principal owns.
func (s *service) AddVideo(ctx context.Context, principal *models.Principal, id, videoID string) (models.PlaylistView, error) {
	if err := s.authorize(ctx, principal, id); err != nil {
		return models.PlaylistView{}, err
	}
	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return models.PlaylistView{}, err
	}
	if !principal.Is(video.OwnerID) {
		return models.PlaylistView{}, store.ErrForbidden
	}
	return s.mutate(ctx, principal, id, "add", func() (*models.Playlist, error) {
		return s.store.AddVideoToPlaylist(ctx, id, videoID)
	})
}

func (s *service) RemoveVideo(ctx context.Context, principal *models.Principal, id, videoID string) (models.PlaylistView, error) {
	if err := s.authorize(ctx, principal, id); err != nil {
		return models.PlaylistView{}, err
	}
	return s.mutate(ctx, principal, id, "remove", func() (*models.Playlist, error) {
		return s.store.RemoveVideoFromPlaylist(ctx, id, videoID)
	})
}

// MoveVideo repositions a video; ranks past the end are clamped to the last position.
func (s *service) MoveVideo(ctx context.Context, principal *models.Principal, id, videoID string, rank int) (models.PlaylistView, error) {
	if rank < 1 {
		return models.PlaylistView{}, errors.Join(store.ErrInvalidInput, errors.New("rank must be at least 1"))
	}
	if err := s.authorize(ctx, principal, id); err != nil {
		return models.PlaylistView{}, err
	}
	return s.mutate(ctx, principal, id, "move", func() (*models.Playlist, error) {
		return s.store.MoveVideoInPlaylist(ctx, id, videoID, rank)
	})
}

func (s *service) mutate(ctx context.Context, principal *models.Principal, id, op string, fn func() (*models.Playlist, error)) (models.PlaylistView, error) {
	playlist, err := app.RetryTransient(ctx, op+"_video", fn)
	if err != nil {
		return models.PlaylistView{}, err
	}
	metrics.MembershipMutations.WithLabelValues(op).Inc()
	s.propagator.SyncAfterPlaylistMutation(ctx, id)
	return projection.Render(playlist, principal), nil
}

// authorize requires principal to own the playlist. Callers that cannot
// even see a private playlist are told it does not exist.
func (s *service) authorize(ctx context.Context, principal *models.Principal, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if principal.Anonymous() {
		return store.ErrUnauthorized
	}
	playlist, err := s.store.GetPlaylist(ctx, id)
	if err != nil {
		return err
	}
	if principal.Is(playlist.OwnerID) {
		return nil
	}
	if !projection.CanViewPlaylist(playlist, principal) {
		return store.ErrPlaylistNotFound
	}
	return store.ErrForbidden
}
