// Package memstore keeps playlists, videos and their ranked memberships in
// memory. It mirrors the Postgres store method for method and executes the
// same ranking plans. It is the test double behind the service, HTTP,
// propagation and reindex tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tubelists/internal/ranking"
	"tubelists/internal/store"
	"tubelists/shared/go/models"
)

type membership struct {
	videoID string
	rank    int
}

type playlistRecord struct {
	playlist models.Playlist
	entries  []membership
}

// Store is a concurrency-safe in-memory store.
type Store struct {
	mu        sync.RWMutex
	users     map[int64]*models.User
	videos    map[string]*models.Video
	playlists map[string]*playlistRecord
	nextID    int64
	now       func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:     make(map[int64]*models.User),
		videos:    make(map[string]*models.Video),
		playlists: make(map[string]*playlistRecord),
		nextID:    1,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// CreateUser registers a new account.
func (s *Store) CreateUser(_ context.Context, username, email string, passwordHash []byte) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || len(passwordHash) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email || u.Username == username {
			return nil, store.ErrUserExists
		}
	}
	user := &models.User{
		ID:           s.allocID(),
		UUID:         uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now(),
	}
	s.users[user.ID] = user
	clone := *user
	return &clone, nil
}

// GetUserByEmail looks an account up by its email address.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, store.ErrUserNotFound
}

// GetUserByUUID looks an account up by its public identifier.
func (s *Store) GetUserByUUID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.UUID == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, store.ErrUserNotFound
}

// CreateVideo registers a video owned by ownerID.
func (s *Store) CreateVideo(_ context.Context, ownerID int64, in models.VideoInput) (*models.Video, error) {
	if err := store.ValidateVideoInput(&in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.users[ownerID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	if _, exists := s.videos[in.VideoID]; exists {
		return nil, store.ErrVideoExists
	}

	now := s.now()
	video := &models.Video{
		ID:            s.allocID(),
		VideoID:       in.VideoID,
		Title:         in.Title,
		Description:   in.Description,
		Visibility:    in.Visibility,
		Language:      in.Language,
		Difficulty:    in.Difficulty,
		Tags:          in.Tags,
		Collaborators: in.Collaborators,
		OwnerID:       owner.ID,
		OwnerUUID:     owner.UUID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.videos[video.VideoID] = video
	return cloneVideo(video), nil
}

// GetVideo returns a video by its external id.
func (s *Store) GetVideo(_ context.Context, videoID string) (*models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	video, ok := s.videos[videoID]
	if !ok {
		return nil, store.ErrVideoNotFound
	}
	return cloneVideo(video), nil
}

// UpdateVideo applies a partial update.
func (s *Store) UpdateVideo(_ context.Context, videoID string, upd models.VideoUpdate) (*models.Video, error) {
	if err := store.ValidateVideoUpdate(&upd); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videos[videoID]
	if !ok {
		return nil, store.ErrVideoNotFound
	}
	if upd.Title != nil {
		video.Title = *upd.Title
	}
	if upd.Description != nil {
		video.Description = *upd.Description
	}
	if upd.Visibility != nil {
		video.Visibility = *upd.Visibility
	}
	if upd.Language != nil {
		video.Language = *upd.Language
	}
	if upd.Difficulty != nil {
		video.Difficulty = *upd.Difficulty
	}
	if upd.Tags != nil {
		video.Tags = upd.Tags
	}
	if upd.Collaborators != nil {
		video.Collaborators = upd.Collaborators
	}
	video.UpdatedAt = s.now()
	return cloneVideo(video), nil
}

// ListVideosByOwner returns every video of a user, newest first.
func (s *Store) ListVideosByOwner(_ context.Context, ownerID int64) ([]*models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Video, 0)
	for _, video := range s.videos {
		if video.OwnerID == ownerID {
			out = append(out, cloneVideo(video))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ListVideoIDs returns every video identifier in creation order.
func (s *Store) ListVideoIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	videos := make([]*models.Video, 0, len(s.videos))
	for _, video := range s.videos {
		videos = append(videos, video)
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].ID < videos[j].ID })
	ids := make([]string, len(videos))
	for i, video := range videos {
		ids[i] = video.VideoID
	}
	return ids, nil
}

// DeleteVideo removes the video from every playlist, compacting each, and
// returns the affected playlist identifiers.
func (s *Store) DeleteVideo(_ context.Context, videoID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[videoID]; !ok {
		return nil, store.ErrVideoNotFound
	}

	affected := make([]string, 0)
	for _, rec := range s.sortedPlaylists() {
		if _, ok := rec.find(videoID); !ok {
			continue
		}
		rec.remove(videoID)
		affected = append(affected, rec.playlist.UUID)
	}
	delete(s.videos, videoID)
	return affected, nil
}

// CreatePlaylist persists a new, empty playlist.
func (s *Store) CreatePlaylist(_ context.Context, ownerID int64, in models.PlaylistInput) (*models.Playlist, error) {
	if err := store.ValidatePlaylistInput(&in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.users[ownerID]
	if !ok {
		return nil, store.ErrUserNotFound
	}

	now := s.now()
	rec := &playlistRecord{playlist: models.Playlist{
		ID:          s.allocID(),
		UUID:        uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Visibility:  in.Visibility,
		Language:    in.Language,
		Difficulty:  in.Difficulty,
		Tags:        in.Tags,
		OwnerID:     owner.ID,
		OwnerUUID:   owner.UUID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}}
	s.playlists[rec.playlist.UUID] = rec
	return s.aggregate(rec), nil
}

// GetPlaylist returns the playlist with its entries in rank order.
func (s *Store) GetPlaylist(_ context.Context, id string) (*models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.playlists[id]
	if !ok {
		return nil, store.ErrPlaylistNotFound
	}
	return s.aggregate(rec), nil
}

// ListPlaylistsByOwner returns every playlist of a user, newest first.
func (s *Store) ListPlaylistsByOwner(_ context.Context, ownerID int64) ([]*models.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.sortedPlaylists()
	out := make([]*models.Playlist, 0)
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].playlist.OwnerID == ownerID {
			out = append(out, s.aggregate(recs[i]))
		}
	}
	return out, nil
}

// UpdatePlaylist applies a partial update.
func (s *Store) UpdatePlaylist(_ context.Context, id string, upd models.PlaylistUpdate) (*models.Playlist, error) {
	if err := store.ValidatePlaylistUpdate(&upd); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.playlists[id]
	if !ok {
		return nil, store.ErrPlaylistNotFound
	}
	p := &rec.playlist
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Visibility != nil {
		p.Visibility = *upd.Visibility
	}
	if upd.Language != nil {
		p.Language = *upd.Language
	}
	if upd.Difficulty != nil {
		p.Difficulty = *upd.Difficulty
	}
	if upd.Tags != nil {
		p.Tags = upd.Tags
	}
	p.UpdatedAt = s.now()
	return s.aggregate(rec), nil
}

// DeletePlaylist removes a playlist and its memberships.
func (s *Store) DeletePlaylist(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.playlists[id]; !ok {
		return store.ErrPlaylistNotFound
	}
	delete(s.playlists, id)
	return nil
}

// ListPlaylistUUIDs returns every playlist identifier in creation order.
func (s *Store) ListPlaylistUUIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.sortedPlaylists()
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.playlist.UUID
	}
	return ids, nil
}

// PlaylistUUIDsContainingVideo returns the playlists the video belongs to.
func (s *Store) PlaylistUUIDsContainingVideo(_ context.Context, videoID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0)
	for _, rec := range s.sortedPlaylists() {
		if _, ok := rec.find(videoID); ok {
			ids = append(ids, rec.playlist.UUID)
		}
	}
	return ids, nil
}

// AddVideoToPlaylist appends the video at rank N+1.
func (s *Store) AddVideoToPlaylist(_ context.Context, playlistUUID, videoID string) (*models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.playlists[playlistUUID]
	if !ok {
		return nil, store.ErrPlaylistNotFound
	}
	if _, ok := s.videos[videoID]; !ok {
		return nil, store.ErrVideoNotFound
	}
	if _, ok := rec.find(videoID); ok {
		return nil, store.ErrVideoAlreadyInPlaylist
	}

	rec.entries = append(rec.entries, membership{videoID: videoID, rank: ranking.NextRank(len(rec.entries))})
	rec.playlist.UpdatedAt = s.now()
	return s.aggregate(rec), nil
}

// RemoveVideoFromPlaylist deletes the membership and compacts the ranks after it.
func (s *Store) RemoveVideoFromPlaylist(_ context.Context, playlistUUID, videoID string) (*models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.playlists[playlistUUID]
	if !ok {
		return nil, store.ErrPlaylistNotFound
	}
	if _, ok := rec.find(videoID); !ok {
		return nil, store.ErrMembershipNotFound
	}

	rec.remove(videoID)
	rec.playlist.UpdatedAt = s.now()
	return s.aggregate(rec), nil
}

// MoveVideoInPlaylist repositions the video at target, clamped to [1, N].
func (s *Store) MoveVideoInPlaylist(_ context.Context, playlistUUID, videoID string, target int) (*models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.playlists[playlistUUID]
	if !ok {
		return nil, store.ErrPlaylistNotFound
	}
	idx, ok := rec.find(videoID)
	if !ok {
		return nil, store.ErrMembershipNotFound
	}

	move := ranking.PlanMove(rec.entries[idx].rank, target, len(rec.entries))
	if move.NoOp {
		return s.aggregate(rec), nil
	}
	rec.shift(move.Shift)
	rec.entries[idx].rank = move.To
	rec.playlist.UpdatedAt = s.now()
	return s.aggregate(rec), nil
}

func (r *playlistRecord) find(videoID string) (int, bool) {
	for i, m := range r.entries {
		if m.videoID == videoID {
			return i, true
		}
	}
	return -1, false
}

func (r *playlistRecord) remove(videoID string) {
	idx, ok := r.find(videoID)
	if !ok {
		return
	}
	plan := ranking.PlanRemove(r.entries[idx].rank, len(r.entries))
	r.entries = append(r.entries[:idx], r.entries[idx+1:]...)
	r.shift(plan)
}

func (r *playlistRecord) shift(sh ranking.Shift) {
	for i := range r.entries {
		r.entries[i].rank = sh.Apply(r.entries[i].rank)
	}
}

// sortedPlaylists returns records in creation order. Callers hold the lock.
func (s *Store) sortedPlaylists() []*playlistRecord {
	recs := make([]*playlistRecord, 0, len(s.playlists))
	for _, rec := range s.playlists {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].playlist.ID < recs[j].playlist.ID })
	return recs
}

// aggregate builds a detached copy of the playlist with entries in rank order.
func (s *Store) aggregate(rec *playlistRecord) *models.Playlist {
	p := rec.playlist
	p.Tags = cloneStrings(rec.playlist.Tags)

	entries := make([]membership, len(rec.entries))
	copy(entries, rec.entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].rank < entries[j].rank })

	p.Entries = make([]models.PlaylistEntry, 0, len(entries))
	for _, m := range entries {
		video, ok := s.videos[m.videoID]
		if !ok {
			continue
		}
		p.Entries = append(p.Entries, models.PlaylistEntry{Rank: m.rank, Video: *cloneVideo(video)})
	}
	return &p
}

func cloneVideo(src *models.Video) *models.Video {
	clone := *src
	clone.Tags = cloneStrings(src.Tags)
	if src.Collaborators != nil {
		clone.Collaborators = cloneStrings(src.Collaborators)
	}
	return &clone
}

func cloneStrings(src []string) []string {
	out := make([]string, len(src))
	copy(out, src)
	return out
}
