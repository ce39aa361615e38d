package videos

import (
	"context"

	"tubelists/internal/app"
	"tubelists/internal/projection"
	"tubelists/internal/store"
	"tubelists/shared/go/models"
)

// Store captures the persistence needs for video workflows.
type Store interface {
	GetUserByUUID(ctx context.Context, id string) (*models.User, error)
	ListVideosByOwner(ctx context.Context, ownerID int64) ([]*models.Video, error)
	CreateVideo(ctx context.Context, ownerID int64, in models.VideoInput) (*models.Video, error)
	GetVideo(ctx context.Context, videoID string) (*models.Video, error)
	UpdateVideo(ctx context.Context, videoID string, upd models.VideoUpdate) (*models.Video, error)
	DeleteVideo(ctx context.Context, videoID string) ([]string, error)
}

// Propagator refreshes the search documents of a video and of the playlists
// it belongs to.
type Propagator interface {
	SyncAfterVideoMutation(ctx context.Context, videoID string)
	SyncAfterVideoDeletion(ctx context.Context, videoID string, playlists []string)
}

// Service exposes video use-cases.
type Service interface {
	Create(ctx context.Context, principal *models.Principal, in models.VideoInput) (models.VideoSummary, error)
	Get(ctx context.Context, videoID string, viewer *models.Principal) (models.VideoSummary, error)
	ListByUser(ctx context.Context, ownerUUID string, viewer *models.Principal) ([]models.VideoSummary, error)
	Update(ctx context.Context, principal *models.Principal, videoID string, upd models.VideoUpdate) (models.VideoSummary, error)
	Delete(ctx context.Context, principal *models.Principal, videoID string) error
}

type service struct {
	store      Store
	propagator Propagator
}

// New constructs a video Service.
func New(store Store, propagator Propagator) Service {
	return &service{store: store, propagator: propagator}
}

func (s *service) Create(ctx context.Context, principal *models.Principal, in models.VideoInput) (models.VideoSummary, error) {
	if err := ctx.Err(); err != nil {
		return models.VideoSummary{}, err
	}
	if principal.Anonymous() {
		return models.VideoSummary{}, store.ErrUnauthorized
	}
	video, err := s.store.CreateVideo(ctx, principal.UserID, in)
	if err != nil {
		return models.VideoSummary{}, err
	}
	s.propagator.SyncAfterVideoMutation(ctx, video.VideoID)
	return projection.Summarise(0, video, principal), nil
}

func (s *service) Get(ctx context.Context, videoID string, viewer *models.Principal) (models.VideoSummary, error) {
	if err := ctx.Err(); err != nil {
		return models.VideoSummary{}, err
	}
	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return models.VideoSummary{}, err
	}
	if !projection.CanViewVideo(video, viewer) {
		return models.VideoSummary{}, store.ErrVideoNotFound
	}
	return projection.Summarise(0, video, viewer), nil
}

// ListByUser returns the videos of ownerUUID that viewer may see, newest first.
func (s *service) ListByUser(ctx context.Context, ownerUUID string, viewer *models.Principal) ([]models.VideoSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	owner, err := s.store.GetUserByUUID(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}
	videos, err := s.store.ListVideosByOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	summaries := make([]models.VideoSummary, 0, len(videos))
	for _, video := range videos {
		if projection.CanViewVideo(video, viewer) {
			summaries = append(summaries, projection.Summarise(0, video, viewer))
		}
	}
	return summaries, nil
}

// Update changes a video's attributes and refreshes every playlist holding it.
func (s *service) Update(ctx context.Context, principal *models.Principal, videoID string, upd models.VideoUpdate) (models.VideoSummary, error) {
	if err := s.authorize(ctx, principal, videoID); err != nil {
		return models.VideoSummary{}, err
	}
	video, err := app.RetryTransient(ctx, "update_video", func() (*models.Video, error) {
		return s.store.UpdateVideo(ctx, videoID, upd)
	})
	if err != nil {
		return models.VideoSummary{}, err
	}
	s.propagator.SyncAfterVideoMutation(ctx, videoID)
	return projection.Summarise(0, video, principal), nil
}

// Delete removes the video, compacting the ranks of every playlist that held it.
func (s *service) Delete(ctx context.Context, principal *models.Principal, videoID string) error {
	if err := s.authorize(ctx, principal, videoID); err != nil {
		return err
	}
	affected, err := app.RetryTransient(ctx, "delete_video", func() ([]string, error) {
		return s.store.DeleteVideo(ctx, videoID)
	})
	if err != nil {
		return err
	}
	s.propagator.SyncAfterVideoDeletion(ctx, videoID, affected)
	return nil
}

func (s *service) authorize(ctx context.Context, principal *models.Principal, videoID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if principal.Anonymous() {
		return store.ErrUnauthorized
	}
	video, err := s.store.GetVideo(ctx, videoID)
	if err != nil {
		return err
	}
	switch {
	case principal.Is(video.OwnerID):
		return nil
	case !projection.CanViewVideo(video, principal):
		return store.ErrVideoNotFound
	default:
		return store.ErrForbidden
	}
}
