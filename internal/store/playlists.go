package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tubelists/shared/go/models"
)

const (
	selectPlaylistQuery = `
		SELECT p.id, p.uuid, p.title, p.description, p.visibility, p.language, p.difficulty,
			p.tags, p.owner_id, u.uuid, p.created_at, p.updated_at
		FROM playlists p
		JOIN users u ON u.id = p.owner_id
		WHERE p.uuid = $1`

	selectEntriesQuery = `
		SELECT pv.rank, v.id, v.video_id, v.title, v.description, v.visibility, v.language, v.difficulty,
			v.owner_id, u.uuid, v.created_at, v.updated_at
		FROM playlist_videos pv
		JOIN videos v ON v.id = pv.video_id
		JOIN users u ON u.id = v.owner_id
		WHERE pv.playlist_id = $1
		ORDER BY pv.rank ASC`

	insertPlaylistQuery = `
		INSERT INTO playlists (uuid, title, description, visibility, language, difficulty, tags, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	updatePlaylistQuery = `
		UPDATE playlists
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			visibility = COALESCE($4, visibility),
			language = COALESCE($5, language),
			difficulty = COALESCE($6, difficulty),
			tags = COALESCE($7, tags),
			updated_at = NOW()
		WHERE uuid = $1`

	deletePlaylistQuery = `DELETE FROM playlists WHERE uuid = $1`

	listOwnerPlaylistsQuery = `
		SELECT uuid
		FROM playlists
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`

	listPlaylistUUIDsQuery = `SELECT uuid FROM playlists ORDER BY id ASC`

	playlistsContainingVideoQuery = `
		SELECT p.uuid
		FROM playlists p
		JOIN playlist_videos pv ON pv.playlist_id = p.id
		JOIN videos v ON v.id = pv.video_id
		WHERE v.video_id = $1
		ORDER BY p.id ASC`
)

// GetPlaylist loads a playlist with its owner and its entries in rank order.
func (s *Store) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	return loadPlaylist(ctx, s.db, id)
}

// CreatePlaylist persists a new, empty playlist owned by ownerID.
func (s *Store) CreatePlaylist(ctx context.Context, ownerID int64, in models.PlaylistInput) (*models.Playlist, error) {
	if err := ValidatePlaylistInput(&in); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	var created *models.Playlist
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertPlaylistQuery,
			id, in.Title, in.Description, string(in.Visibility), in.Language, in.Difficulty,
			pq.Array(in.Tags), ownerID); err != nil {
			return fmt.Errorf("insert playlist: %w", err)
		}
		var err error
		created, err = loadPlaylist(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdatePlaylist applies a partial update and returns the reloaded playlist.
func (s *Store) UpdatePlaylist(ctx context.Context, id string, upd models.PlaylistUpdate) (*models.Playlist, error) {
	if err := ValidatePlaylistUpdate(&upd); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPlaylistNotFound
	}

	var visibility *string
	if upd.Visibility != nil {
		v := string(*upd.Visibility)
		visibility = &v
	}
	var tags any
	if upd.Tags != nil {
		tags = pq.Array(upd.Tags)
	}

	var updated *models.Playlist
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updatePlaylistQuery, id,
			nullString(upd.Title), nullString(upd.Description), nullString(visibility),
			nullString(upd.Language), nullString(upd.Difficulty), tags)
		if err != nil {
			return fmt.Errorf("update playlist: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return ErrPlaylistNotFound
		}
		updated, err = loadPlaylist(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeletePlaylist removes a playlist; its memberships go with it.
func (s *Store) DeletePlaylist(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrPlaylistNotFound
	}
	res, err := s.db.ExecContext(ctx, deletePlaylistQuery, id)
	if err != nil {
		return classify(fmt.Errorf("delete playlist: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrPlaylistNotFound
	}
	return nil
}

// ListPlaylistsByOwner returns every playlist of a user, newest first.
func (s *Store) ListPlaylistsByOwner(ctx context.Context, ownerID int64) ([]*models.Playlist, error) {
	ids, err := s.selectIDs(ctx, "playlists", listOwnerPlaylistsQuery, ownerID)
	if err != nil {
		return nil, err
	}
	playlists := make([]*models.Playlist, 0, len(ids))
	for _, id := range ids {
		playlist, err := loadPlaylist(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}
	return playlists, nil
}

// ListPlaylistUUIDs returns the identifier of every playlist.
func (s *Store) ListPlaylistUUIDs(ctx context.Context) ([]string, error) {
	return s.selectIDs(ctx, "playlists", listPlaylistUUIDsQuery)
}

// PlaylistUUIDsContainingVideo returns the playlists the video is a member of.
func (s *Store) PlaylistUUIDsContainingVideo(ctx context.Context, videoID string) ([]string, error) {
	return s.selectIDs(ctx, "playlists", playlistsContainingVideoQuery, videoID)
}

// selectIDs runs a single-column identifier query.
func (s *Store) selectIDs(ctx context.Context, what, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", what, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", what, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return ids, nil
}

// loadPlaylist is the eager-loading read used by every path that needs the
// full aggregate: playlist, owner, ranked entries and each video's tags and
// collaborators.
func loadPlaylist(ctx context.Context, q querier, id string) (*models.Playlist, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPlaylistNotFound
	}

	var (
		playlist   models.Playlist
		visibility string
	)
	err := q.QueryRowContext(ctx, selectPlaylistQuery, id).Scan(
		&playlist.ID, &playlist.UUID, &playlist.Title, &playlist.Description, &visibility,
		&playlist.Language, &playlist.Difficulty, pq.Array(&playlist.Tags), &playlist.OwnerID,
		&playlist.OwnerUUID, &playlist.CreatedAt, &playlist.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}
	playlist.Visibility = models.Visibility(visibility)
	if playlist.Tags == nil {
		playlist.Tags = []string{}
	}

	entries, err := loadEntries(ctx, q, playlist.ID)
	if err != nil {
		return nil, err
	}
	playlist.Entries = entries
	return &playlist, nil
}

func loadEntries(ctx context.Context, q querier, playlistID int64) ([]models.PlaylistEntry, error) {
	rows, err := q.QueryContext(ctx, selectEntriesQuery, playlistID)
	if err != nil {
		return nil, fmt.Errorf("list playlist videos: %w", err)
	}
	defer rows.Close()

	entries := make([]models.PlaylistEntry, 0)
	for rows.Next() {
		var (
			entry      models.PlaylistEntry
			visibility string
		)
		v := &entry.Video
		if err := rows.Scan(&entry.Rank, &v.ID, &v.VideoID, &v.Title, &v.Description, &visibility,
			&v.Language, &v.Difficulty, &v.OwnerID, &v.OwnerUUID, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan playlist video: %w", err)
		}
		v.Visibility = models.Visibility(visibility)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlist videos: %w", err)
	}
	rows.Close()

	if len(entries) == 0 {
		return entries, nil
	}

	ids := make([]int64, len(entries))
	for i, entry := range entries {
		ids[i] = entry.Video.ID
	}
	tags, err := loadVideoTags(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	collaborators, err := loadVideoCollaborators(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		v := &entries[i].Video
		v.Tags = tags[v.ID]
		if v.Tags == nil {
			v.Tags = []string{}
		}
		v.Collaborators = collaborators[v.ID]
	}
	return entries, nil
}
