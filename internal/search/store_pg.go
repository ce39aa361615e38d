package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"tubelists/shared/go/models"
)

const (
	upsertDocumentQuery = `
		INSERT INTO playlist_search_documents
			(playlist_uuid, document, visibility, language, difficulty, videos_count, search_text, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (playlist_uuid) DO UPDATE SET
			document = EXCLUDED.document,
			visibility = EXCLUDED.visibility,
			language = EXCLUDED.language,
			difficulty = EXCLUDED.difficulty,
			videos_count = EXCLUDED.videos_count,
			search_text = EXCLUDED.search_text,
			updated_at = NOW()`

	deleteDocumentQuery = `DELETE FROM playlist_search_documents WHERE playlist_uuid = $1`

	searchDocumentsQuery = `
		SELECT playlist_uuid
		FROM playlist_search_documents
		WHERE visibility = 'public'
			AND videos_count > 0
			AND search_text LIKE $1
			AND (cardinality($2::text[]) = 0 OR language = ANY($2))
			AND (cardinality($3::text[]) = 0 OR difficulty = ANY($3))
		ORDER BY
			(CASE WHEN document->>'title' ILIKE $1 THEN 10 ELSE 0 END
			+ CASE WHEN document->>'tags' ILIKE $1 THEN 10 ELSE 0 END
			+ CASE WHEN document->>'description' ILIKE $1 THEN 5 ELSE 0 END
			+ CASE WHEN document->>'videos_title' ILIKE $1 THEN 3 ELSE 0 END
			+ CASE WHEN document->>'videos_tags' ILIKE $1 THEN 3 ELSE 0 END) DESC,
			updated_at DESC,
			playlist_uuid ASC
		LIMIT $4 OFFSET $5`

	upsertVideoDocumentQuery = `
		INSERT INTO video_search_documents
			(video_id, document, visibility, language, difficulty, search_text, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (video_id) DO UPDATE SET
			document = EXCLUDED.document,
			visibility = EXCLUDED.visibility,
			language = EXCLUDED.language,
			difficulty = EXCLUDED.difficulty,
			search_text = EXCLUDED.search_text,
			updated_at = NOW()`

	deleteVideoDocumentQuery = `DELETE FROM video_search_documents WHERE video_id = $1`

	searchVideoDocumentsQuery = `
		SELECT video_id
		FROM video_search_documents
		WHERE visibility = 'public'
			AND search_text LIKE $1
			AND (cardinality($2::text[]) = 0 OR language = ANY($2))
			AND (cardinality($3::text[]) = 0 OR difficulty = ANY($3))
		ORDER BY
			(CASE WHEN document->>'title' ILIKE $1 THEN 3 ELSE 0 END
			+ CASE WHEN document->>'tags' ILIKE $1 THEN 3 ELSE 0 END
			+ CASE WHEN document->>'description' ILIKE $1 THEN 1 ELSE 0 END) DESC,
			updated_at DESC,
			video_id ASC
		LIMIT $4 OFFSET $5`
)

// PGIndex implements Index and Searcher on two PostgreSQL document tables.
type PGIndex struct {
	db *sql.DB
}

// NewPGIndex creates an index backed by the supplied database handle.
func NewPGIndex(db *sql.DB) *PGIndex {
	return &PGIndex{db: db}
}

// Upsert stores doc under id, replacing any previous document.
func (s *PGIndex) Upsert(ctx context.Context, id string, doc models.PlaylistDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode playlist document: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, upsertDocumentQuery,
		id, body, string(doc.Visibility), doc.Language, doc.Difficulty, doc.VideosCount, SearchText(doc)); err != nil {
		return fmt.Errorf("upsert playlist document: %w", err)
	}
	return nil
}

// DeleteIfExists removes the document stored under id, if any.
func (s *PGIndex) DeleteIfExists(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, deleteDocumentQuery, id); err != nil {
		return fmt.Errorf("delete playlist document: %w", err)
	}
	return nil
}

// UpsertVideo stores the video document under id, replacing any previous one.
func (s *PGIndex) UpsertVideo(ctx context.Context, id string, doc models.VideoDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode video document: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, upsertVideoDocumentQuery,
		id, body, string(doc.Visibility), doc.Language, doc.Difficulty, VideoSearchText(doc)); err != nil {
		return fmt.Errorf("upsert video document: %w", err)
	}
	return nil
}

// DeleteVideoIfExists removes the video document stored under id, if any.
func (s *PGIndex) DeleteVideoIfExists(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, deleteVideoDocumentQuery, id); err != nil {
		return fmt.Errorf("delete video document: %w", err)
	}
	return nil
}

// SearchPlaylists returns one page of public, non-empty playlists matching q.
func (s *PGIndex) SearchPlaylists(ctx context.Context, q Query) (Page, error) {
	return s.search(ctx, searchDocumentsQuery, "playlist", q)
}

// SearchVideos returns one page of public videos matching q.
func (s *PGIndex) SearchVideos(ctx context.Context, q Query) (Page, error) {
	return s.search(ctx, searchVideoDocumentsQuery, "video", q)
}

func (s *PGIndex) search(ctx context.Context, query, kind string, q Query) (Page, error) {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	if text == "" {
		return Page{IDs: []string{}}, nil
	}
	like := "%" + likeEscaper.Replace(text) + "%"

	rows, err := s.db.QueryContext(ctx, query, like,
		pq.Array(nonNil(q.Languages)), pq.Array(nonNil(q.Difficulties)), PageSize+1, q.offset())
	if err != nil {
		return Page{}, fmt.Errorf("search %ss: %w", kind, err)
	}
	defer rows.Close()

	ids := make([]string, 0, PageSize+1)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return Page{}, fmt.Errorf("scan %s hit: %w", kind, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate %s hits: %w", kind, err)
	}

	return paginate(ids, q), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
