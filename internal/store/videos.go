package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"tubelists/shared/go/models"
)

const (
	selectVideoQuery = `
		SELECT v.id, v.video_id, v.title, v.description, v.visibility, v.language, v.difficulty,
			v.owner_id, u.uuid, v.created_at, v.updated_at
		FROM videos v
		JOIN users u ON u.id = v.owner_id
		WHERE v.video_id = $1`

	insertVideoQuery = `
		INSERT INTO videos (video_id, title, description, visibility, language, difficulty, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	updateVideoQuery = `
		UPDATE videos
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			visibility = COALESCE($4, visibility),
			language = COALESCE($5, language),
			difficulty = COALESCE($6, difficulty),
			updated_at = NOW()
		WHERE video_id = $1
		RETURNING id`

	lockVideoQuery = `SELECT id FROM videos WHERE video_id = $1 FOR UPDATE`

	listOwnerVideosQuery = `
		SELECT video_id
		FROM videos
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC`

	listVideoIDsQuery = `SELECT video_id FROM videos ORDER BY id ASC`

	videoMembershipsQuery = `
		SELECT p.id, p.uuid, pv.rank
		FROM playlist_videos pv
		JOIN playlists p ON p.id = pv.playlist_id
		WHERE pv.video_id = $1
		ORDER BY p.id ASC
		FOR UPDATE OF p`

	deleteVideoQuery = `DELETE FROM videos WHERE id = $1`

	selectVideoTagsQuery = `
		SELECT video_id, value
		FROM video_tags
		WHERE video_id = ANY($1)
		ORDER BY video_id ASC, position ASC`

	selectVideoCollaboratorsQuery = `
		SELECT video_id, email
		FROM video_collaborators
		WHERE video_id = ANY($1)
		ORDER BY video_id ASC, email ASC`

	deleteVideoTagsQuery          = `DELETE FROM video_tags WHERE video_id = $1`
	insertVideoTagQuery           = `INSERT INTO video_tags (video_id, position, value) VALUES ($1, $2, $3)`
	deleteVideoCollaboratorsQuery = `DELETE FROM video_collaborators WHERE video_id = $1`
	insertVideoCollaboratorQuery  = `INSERT INTO video_collaborators (video_id, email) VALUES ($1, $2)`
)

// GetVideo loads a video with its tags and collaborators.
func (s *Store) GetVideo(ctx context.Context, videoID string) (*models.Video, error) {
	return loadVideo(ctx, s.db, videoID)
}

// CreateVideo registers a video owned by ownerID.
func (s *Store) CreateVideo(ctx context.Context, ownerID int64, in models.VideoInput) (*models.Video, error) {
	if err := ValidateVideoInput(&in); err != nil {
		return nil, err
	}

	var created *models.Video
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, insertVideoQuery,
			in.VideoID, in.Title, in.Description, string(in.Visibility), in.Language, in.Difficulty, ownerID).Scan(&id)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrVideoExists
			}
			return fmt.Errorf("insert video: %w", err)
		}
		if err := replaceVideoTags(ctx, tx, id, in.Tags); err != nil {
			return err
		}
		if err := replaceVideoCollaborators(ctx, tx, id, in.Collaborators); err != nil {
			return err
		}
		created, err = loadVideo(ctx, tx, in.VideoID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateVideo applies a partial update. Tags and collaborators are replaced
// wholesale when present.
func (s *Store) UpdateVideo(ctx context.Context, videoID string, upd models.VideoUpdate) (*models.Video, error) {
	if err := ValidateVideoUpdate(&upd); err != nil {
		return nil, err
	}

	var visibility *string
	if upd.Visibility != nil {
		v := string(*upd.Visibility)
		visibility = &v
	}

	var updated *models.Video
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, updateVideoQuery, videoID,
			nullString(upd.Title), nullString(upd.Description), nullString(visibility),
			nullString(upd.Language), nullString(upd.Difficulty)).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVideoNotFound
		}
		if err != nil {
			return fmt.Errorf("update video: %w", err)
		}
		if upd.Tags != nil {
			if err := replaceVideoTags(ctx, tx, id, upd.Tags); err != nil {
				return err
			}
		}
		if upd.Collaborators != nil {
			if err := replaceVideoCollaborators(ctx, tx, id, upd.Collaborators); err != nil {
				return err
			}
		}
		updated, err = loadVideo(ctx, tx, videoID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ListVideosByOwner returns every video of a user, newest first.
func (s *Store) ListVideosByOwner(ctx context.Context, ownerID int64) ([]*models.Video, error) {
	ids, err := s.selectIDs(ctx, "videos", listOwnerVideosQuery, ownerID)
	if err != nil {
		return nil, err
	}
	videos := make([]*models.Video, 0, len(ids))
	for _, id := range ids {
		video, err := loadVideo(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, nil
}

// ListVideoIDs returns the external identifier of every video.
func (s *Store) ListVideoIDs(ctx context.Context) ([]string, error) {
	return s.selectIDs(ctx, "videos", listVideoIDsQuery)
}

// DeleteVideo removes a video from every playlist containing it, compacting
// the ranks of each, then deletes the video. It returns the affected playlists.
func (s *Store) DeleteVideo(ctx context.Context, videoID string) ([]string, error) {
	var affected []string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, lockVideoQuery, videoID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVideoNotFound
		}
		if err != nil {
			return fmt.Errorf("lock video: %w", err)
		}

		memberships, err := videoMemberships(ctx, tx, id)
		if err != nil {
			return err
		}
		affected = make([]string, 0, len(memberships))
		for _, m := range memberships {
			if err := removeEntry(ctx, tx, m.playlistID, id, m.rank); err != nil {
				return err
			}
			affected = append(affected, m.playlistUUID)
		}

		if _, err := tx.ExecContext(ctx, deleteVideoQuery, id); err != nil {
			return fmt.Errorf("delete video: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return affected, nil
}

type videoMembership struct {
	playlistID   int64
	playlistUUID string
	rank         int
}

func videoMemberships(ctx context.Context, tx *sql.Tx, videoPK int64) ([]videoMembership, error) {
	rows, err := tx.QueryContext(ctx, videoMembershipsQuery, videoPK)
	if err != nil {
		return nil, fmt.Errorf("list video memberships: %w", err)
	}
	defer rows.Close()

	var memberships []videoMembership
	for rows.Next() {
		var m videoMembership
		if err := rows.Scan(&m.playlistID, &m.playlistUUID, &m.rank); err != nil {
			return nil, fmt.Errorf("scan video membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video memberships: %w", err)
	}
	return memberships, nil
}

func loadVideo(ctx context.Context, q querier, videoID string) (*models.Video, error) {
	var (
		video      models.Video
		visibility string
	)
	err := q.QueryRowContext(ctx, selectVideoQuery, videoID).Scan(
		&video.ID, &video.VideoID, &video.Title, &video.Description, &visibility,
		&video.Language, &video.Difficulty, &video.OwnerID, &video.OwnerUUID, &video.CreatedAt, &video.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	video.Visibility = models.Visibility(visibility)

	ids := []int64{video.ID}
	tags, err := loadVideoTags(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	collaborators, err := loadVideoCollaborators(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	video.Tags = tags[video.ID]
	if video.Tags == nil {
		video.Tags = []string{}
	}
	video.Collaborators = collaborators[video.ID]
	return &video, nil
}

func loadVideoTags(ctx context.Context, q querier, ids []int64) (map[int64][]string, error) {
	return loadVideoStrings(ctx, q, selectVideoTagsQuery, ids, "tags")
}

func loadVideoCollaborators(ctx context.Context, q querier, ids []int64) (map[int64][]string, error) {
	return loadVideoStrings(ctx, q, selectVideoCollaboratorsQuery, ids, "collaborators")
}

func loadVideoStrings(ctx context.Context, q querier, query string, ids []int64, what string) (map[int64][]string, error) {
	rows, err := q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("select video %s: %w", what, err)
	}
	defer rows.Close()

	out := make(map[int64][]string, len(ids))
	for rows.Next() {
		var (
			id    int64
			value string
		)
		if err := rows.Scan(&id, &value); err != nil {
			return nil, fmt.Errorf("scan video %s: %w", what, err)
		}
		out[id] = append(out[id], value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video %s: %w", what, err)
	}
	return out, nil
}

func replaceVideoTags(ctx context.Context, tx *sql.Tx, videoPK int64, tags []string) error {
	if _, err := tx.ExecContext(ctx, deleteVideoTagsQuery, videoPK); err != nil {
		return fmt.Errorf("clear video tags: %w", err)
	}
	for i, tag := range tags {
		if _, err := tx.ExecContext(ctx, insertVideoTagQuery, videoPK, i, tag); err != nil {
			return fmt.Errorf("insert video tag: %w", err)
		}
	}
	return nil
}

func replaceVideoCollaborators(ctx context.Context, tx *sql.Tx, videoPK int64, emails []string) error {
	if _, err := tx.ExecContext(ctx, deleteVideoCollaboratorsQuery, videoPK); err != nil {
		return fmt.Errorf("clear video collaborators: %w", err)
	}
	for _, email := range emails {
		if _, err := tx.ExecContext(ctx, insertVideoCollaboratorQuery, videoPK, email); err != nil {
			return fmt.Errorf("insert video collaborator: %w", err)
		}
	}
	return nil
}
