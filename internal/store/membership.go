package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tubelists/internal/ranking"
	"tubelists/shared/go/models"
)

// Every mutation locks the playlist row, so concurrent rank changes on one
// playlist serialise while other playlists proceed in parallel. Locks are
// always taken video first, then playlist, the same order as DeleteVideo.
const (
	lockPlaylistQuery = `SELECT id FROM playlists WHERE uuid = $1 FOR UPDATE`

	shareVideoQuery = `SELECT id FROM videos WHERE video_id = $1 FOR KEY SHARE`

	membershipExistsQuery = `
		SELECT EXISTS(
			SELECT 1 FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2
		)`

	membershipRankQuery = `
		SELECT pv.video_id, pv.rank
		FROM playlist_videos pv
		JOIN videos v ON v.id = pv.video_id
		WHERE pv.playlist_id = $1 AND v.video_id = $2`

	countEntriesQuery = `SELECT COUNT(*) FROM playlist_videos WHERE playlist_id = $1`

	insertEntryQuery = `
		INSERT INTO playlist_videos (playlist_id, video_id, rank)
		VALUES ($1, $2, $3)`

	deleteEntryQuery = `DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2`

	shiftRanksQuery = `
		UPDATE playlist_videos
		SET rank = rank + $2
		WHERE playlist_id = $1 AND rank >= $3 AND rank <= $4`

	setRankQuery = `UPDATE playlist_videos SET rank = $3 WHERE playlist_id = $1 AND video_id = $2`

	touchPlaylistQuery = `UPDATE playlists SET updated_at = NOW() WHERE id = $1`
)

// AddVideoToPlaylist appends the video at rank N+1.
func (s *Store) AddVideoToPlaylist(ctx context.Context, playlistUUID, videoID string) (*models.Playlist, error) {
	var result *models.Playlist
	if _, err := uuid.Parse(playlistUUID); err != nil {
		return nil, ErrPlaylistNotFound
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var videoPK int64
		err := tx.QueryRowContext(ctx, shareVideoQuery, videoID).Scan(&videoPK)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrVideoNotFound
		}
		if err != nil {
			return fmt.Errorf("lock video: %w", err)
		}

		playlistID, err := lockPlaylist(ctx, tx, playlistUUID)
		if err != nil {
			return err
		}

		var exists bool
		if err := tx.QueryRowContext(ctx, membershipExistsQuery, playlistID, videoPK).Scan(&exists); err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if exists {
			return ErrVideoAlreadyInPlaylist
		}

		count, err := countEntries(ctx, tx, playlistID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertEntryQuery, playlistID, videoPK, ranking.NextRank(count)); err != nil {
			if isUniqueViolation(err) {
				return ErrVideoAlreadyInPlaylist
			}
			return fmt.Errorf("insert playlist video: %w", err)
		}

		result, err = touchAndReload(ctx, tx, playlistID, playlistUUID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveVideoFromPlaylist deletes the membership and closes the gap it leaves.
func (s *Store) RemoveVideoFromPlaylist(ctx context.Context, playlistUUID, videoID string) (*models.Playlist, error) {
	var result *models.Playlist
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		playlistID, err := lockPlaylist(ctx, tx, playlistUUID)
		if err != nil {
			return err
		}
		videoPK, rank, err := membershipRank(ctx, tx, playlistID, videoID)
		if err != nil {
			return err
		}
		if err := removeEntry(ctx, tx, playlistID, videoPK, rank); err != nil {
			return err
		}
		result, err = touchAndReload(ctx, tx, playlistID, playlistUUID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MoveVideoInPlaylist repositions the video at target, clamped to [1, N].
// Moving to the current rank changes nothing and returns the current state.
func (s *Store) MoveVideoInPlaylist(ctx context.Context, playlistUUID, videoID string, target int) (*models.Playlist, error) {
	var result *models.Playlist
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		playlistID, err := lockPlaylist(ctx, tx, playlistUUID)
		if err != nil {
			return err
		}
		videoPK, rank, err := membershipRank(ctx, tx, playlistID, videoID)
		if err != nil {
			return err
		}
		count, err := countEntries(ctx, tx, playlistID)
		if err != nil {
			return err
		}

		move := ranking.PlanMove(rank, target, count)
		if move.NoOp {
			result, err = loadPlaylist(ctx, tx, playlistUUID)
			return err
		}
		if err := shiftRanks(ctx, tx, playlistID, move.Shift); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, setRankQuery, playlistID, videoPK, move.To); err != nil {
			return fmt.Errorf("set playlist video rank: %w", err)
		}

		result, err = touchAndReload(ctx, tx, playlistID, playlistUUID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func lockPlaylist(ctx context.Context, tx *sql.Tx, playlistUUID string) (int64, error) {
	if _, err := uuid.Parse(playlistUUID); err != nil {
		return 0, ErrPlaylistNotFound
	}
	var id int64
	err := tx.QueryRowContext(ctx, lockPlaylistQuery, playlistUUID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPlaylistNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lock playlist: %w", err)
	}
	return id, nil
}

func membershipRank(ctx context.Context, tx *sql.Tx, playlistID int64, videoID string) (int64, int, error) {
	var (
		videoPK int64
		rank    int
	)
	err := tx.QueryRowContext(ctx, membershipRankQuery, playlistID, videoID).Scan(&videoPK, &rank)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrMembershipNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("lookup membership: %w", err)
	}
	return videoPK, rank, nil
}

func countEntries(ctx context.Context, tx *sql.Tx, playlistID int64) (int, error) {
	var count int
	if err := tx.QueryRowContext(ctx, countEntriesQuery, playlistID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count playlist videos: %w", err)
	}
	return count, nil
}

// removeEntry deletes one membership and shifts every later rank down by one
// with a single ranged statement.
func removeEntry(ctx context.Context, tx *sql.Tx, playlistID, videoPK int64, rank int) error {
	count, err := countEntries(ctx, tx, playlistID)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, deleteEntryQuery, playlistID, videoPK); err != nil {
		return fmt.Errorf("delete playlist video: %w", err)
	}
	return shiftRanks(ctx, tx, playlistID, ranking.PlanRemove(rank, count))
}

func shiftRanks(ctx context.Context, tx *sql.Tx, playlistID int64, shift ranking.Shift) error {
	if shift.Empty() {
		return nil
	}
	if _, err := tx.ExecContext(ctx, shiftRanksQuery, playlistID, shift.Delta, shift.From, shift.To); err != nil {
		return fmt.Errorf("shift playlist ranks: %w", err)
	}
	return nil
}

func touchAndReload(ctx context.Context, tx *sql.Tx, playlistID int64, playlistUUID string) (*models.Playlist, error) {
	if _, err := tx.ExecContext(ctx, touchPlaylistQuery, playlistID); err != nil {
		return nil, fmt.Errorf("touch playlist: %w", err)
	}
	return loadPlaylist(ctx, tx, playlistUUID)
}
