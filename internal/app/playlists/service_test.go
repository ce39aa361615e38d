package playlists

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubelists/internal/ranking"
	"tubelists/internal/store"
	"tubelists/internal/store/memstore"
	"tubelists/shared/go/models"
)

type recordingPropagator struct {
	mu      sync.Mutex
	synced  []string
	deleted []string
}

func (r *recordingPropagator) SyncAfterPlaylistMutation(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.synced = append(r.synced, id)
}

func (r *recordingPropagator) SyncAfterPlaylistDeletion(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
}

// flakyStore fails the next n membership mutations with a transient conflict.
type flakyStore struct {
	*memstore.Store
	failures int
}

func (f *flakyStore) AddVideoToPlaylist(ctx context.Context, playlistID, videoID string) (*models.Playlist, error) {
	if f.failures > 0 {
		f.failures--
		return nil, fmt.Errorf("%w: deadlock detected", store.ErrTransientConflict)
	}
	return f.Store.AddVideoToPlaylist(ctx, playlistID, videoID)
}

type fixture struct {
	svc      Service
	store    *flakyStore
	prop     *recordingPropagator
	owner    *models.Principal
	stranger *models.Principal
	playlist string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	mem := memstore.New()

	ann, err := mem.CreateUser(ctx, "ann", "ann@example.com", []byte("hash"))
	require.NoError(t, err)
	bob, err := mem.CreateUser(ctx, "bob", "bob@example.com", []byte("hash"))
	require.NoError(t, err)

	for _, id := range []string{"v1", "v2", "v3"} {
		_, err := mem.CreateVideo(ctx, ann.ID, models.VideoInput{VideoID: id, Title: id, Visibility: models.VisibilityPublic})
		require.NoError(t, err)
	}
	_, err = mem.CreateVideo(ctx, bob.ID, models.VideoInput{VideoID: "bob1", Title: "bob1", Visibility: models.VisibilityPublic})
	require.NoError(t, err)

	fs := &flakyStore{Store: mem}
	prop := &recordingPropagator{}
	owner := &models.Principal{UserID: ann.ID, UUID: ann.UUID, Email: ann.Email}
	svc := New(fs, prop)

	view, err := svc.Create(ctx, owner, models.PlaylistInput{Title: "Go basics", Visibility: models.VisibilityPublic})
	require.NoError(t, err)

	return fixture{
		svc:      svc,
		store:    fs,
		prop:     prop,
		owner:    owner,
		stranger: &models.Principal{UserID: bob.ID, UUID: bob.UUID, Email: bob.Email},
		playlist: view.UUID,
	}
}

func videoIDs(view models.PlaylistView) []string {
	ids := make([]string, 0, len(view.Videos))
	for _, v := range view.Videos {
		ids = append(ids, v.VideoID)
	}
	return ids
}

func TestMembershipWorkflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"v1", "v2", "v3"} {
		_, err := f.svc.AddVideo(ctx, f.owner, f.playlist, id)
		require.NoError(t, err)
	}

	view, err := f.svc.MoveVideo(ctx, f.owner, f.playlist, "v3", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"v3", "v1", "v2"}, videoIDs(view))

	view, err = f.svc.RemoveVideo(ctx, f.owner, f.playlist, "v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"v3", "v2"}, videoIDs(view))
	assert.Equal(t, 2, view.Videos[1].Rank)

	// create + 3 adds + move + remove
	assert.Len(t, f.prop.synced, 6)
}

func TestMoveVideoRejectsRankBelowOne(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.MoveVideo(context.Background(), f.owner, f.playlist, "v1", 0)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestAddVideoAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddVideo(ctx, nil, f.playlist, "v1")
	assert.ErrorIs(t, err, store.ErrUnauthorized)

	_, err = f.svc.AddVideo(ctx, f.stranger, f.playlist, "bob1")
	assert.ErrorIs(t, err, store.ErrForbidden)

	// owner of the playlist but not of the video
	_, err = f.svc.AddVideo(ctx, f.owner, f.playlist, "bob1")
	assert.ErrorIs(t, err, store.ErrForbidden)

	_, err = f.svc.AddVideo(ctx, f.owner, f.playlist, "missing")
	assert.ErrorIs(t, err, store.ErrVideoNotFound)

	_, err = f.svc.AddVideo(ctx, f.owner, "6f1c1ab4-8d1b-4a39-9c55-0d7f4a3f0c11", "v1")
	assert.ErrorIs(t, err, store.ErrPlaylistNotFound)

	assert.Len(t, f.prop.synced, 1, "failed mutations must not propagate")
}

func TestPrivatePlaylistHiddenFromStrangers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	private := models.VisibilityPrivate
	_, err := f.svc.Update(ctx, f.owner, f.playlist, models.PlaylistUpdate{Visibility: &private})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.playlist, f.stranger)
	assert.ErrorIs(t, err, store.ErrPlaylistNotFound)

	_, err = f.svc.RemoveVideo(ctx, f.stranger, f.playlist, "v1")
	assert.ErrorIs(t, err, store.ErrPlaylistNotFound)

	view, err := f.svc.Get(ctx, f.playlist, f.owner)
	require.NoError(t, err)
	assert.Equal(t, f.playlist, view.UUID)
}

func TestTransientConflictRetriedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.failures = 1
	view, err := f.svc.AddVideo(ctx, f.owner, f.playlist, "v1")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, videoIDs(view))

	f.store.failures = 2
	_, err = f.svc.AddVideo(ctx, f.owner, f.playlist, "v2")
	assert.ErrorIs(t, err, store.ErrTransientConflict)
	assert.Equal(t, 0, f.store.failures)
}

func TestDeletePropagatesRemoval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Delete(ctx, f.stranger, f.playlist), store.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, f.owner, f.playlist))
	assert.Equal(t, []string{f.playlist}, f.prop.deleted)

	_, err := f.svc.Get(ctx, f.playlist, f.owner)
	assert.ErrorIs(t, err, store.ErrPlaylistNotFound)
}

func TestListRequiresPrincipal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.List(ctx, nil)
	assert.ErrorIs(t, err, store.ErrUnauthorized)

	views, err := f.svc.List(ctx, f.owner)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, f.playlist, views[0].UUID)

	views, err = f.svc.List(ctx, f.stranger)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestConcurrentMembershipMutationsKeepRanksDense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 20
	for i := 0; i < workers; i++ {
		_, err := f.store.CreateVideo(ctx, f.owner.UserID, models.VideoInput{
			VideoID:    fmt.Sprintf("c%02d", i),
			Title:      fmt.Sprintf("clip %d", i),
			Visibility: models.VisibilityPublic,
		})
		require.NoError(t, err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%02d", i)
			_, err := f.svc.AddVideo(ctx, f.owner, f.playlist, id)
			record(err)
			_, err = f.svc.MoveVideo(ctx, f.owner, f.playlist, id, (i*7)%25+1)
			record(err)
			if i%3 == 0 {
				_, err = f.svc.RemoveVideo(ctx, f.owner, f.playlist, id)
				record(err)
			}
		}(i)
	}
	wg.Wait()
	require.Empty(t, errs)

	p, err := f.store.GetPlaylist(ctx, f.playlist)
	require.NoError(t, err)
	assert.True(t, ranking.Dense(p.Ranks()), "ranks %v", p.Ranks())

	seen := make(map[string]bool, len(p.Entries))
	for _, entry := range p.Entries {
		assert.False(t, seen[entry.Video.VideoID], "duplicate %s", entry.Video.VideoID)
		seen[entry.Video.VideoID] = true
	}
	// i = 0, 3, 6, 9, 12, 15, 18 removed themselves
	assert.Len(t, p.Entries, workers-7)
}

func TestListByUserHidesUnlistablePlaylists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddVideo(ctx, f.owner, f.playlist, "v1")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.owner, models.PlaylistInput{Title: "Drafts", Visibility: models.VisibilityPrivate})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.owner, models.PlaylistInput{Title: "Empty", Visibility: models.VisibilityPublic})
	require.NoError(t, err)

	views, err := f.svc.ListByUser(ctx, f.owner.UUID, f.owner)
	require.NoError(t, err)
	assert.Len(t, views, 3)

	views, err = f.svc.ListByUser(ctx, f.owner.UUID, f.stranger)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, f.playlist, views[0].UUID)

	views, err = f.svc.ListByUser(ctx, f.owner.UUID, nil)
	require.NoError(t, err)
	require.Len(t, views, 1)

	_, err = f.svc.ListByUser(ctx, "00000000-0000-0000-0000-000000000000", nil)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}
