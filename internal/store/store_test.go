package store

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	testPlaylistUUID = "2b1f6a1e-8d5c-4f6e-9f3a-1c2d3e4f5a6b"
	testOwnerUUID    = "8c7d1a52-0e6b-4a43-a5c3-4f0b2b9c7e11"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

type entryRow struct {
	rank    int
	pk      int64
	videoID string
}

var (
	playlistColumns = []string{
		"id", "uuid", "title", "description", "visibility", "language", "difficulty",
		"tags", "owner_id", "owner_uuid", "created_at", "updated_at",
	}
	entryColumns = []string{
		"rank", "id", "video_id", "title", "description", "visibility", "language", "difficulty",
		"owner_id", "owner_uuid", "created_at", "updated_at",
	}
)

// expectLoadPlaylist queues the reads issued by loadPlaylist.
func expectLoadPlaylist(mock sqlmock.Sqlmock, playlistID int64, entries ...entryRow) {
	mock.ExpectQuery(regexp.QuoteMeta(selectPlaylistQuery)).
		WithArgs(testPlaylistUUID).
		WillReturnRows(sqlmock.NewRows(playlistColumns).AddRow(
			playlistID, testPlaylistUUID, "Go basics", "", "public", "en", "beginner",
			"{go,tutorial}", int64(7), testOwnerUUID, testNow, testNow))

	rows := sqlmock.NewRows(entryColumns)
	for _, e := range entries {
		rows.AddRow(e.rank, e.pk, e.videoID, "Video "+e.videoID, "", "public", "en", "beginner",
			int64(7), testOwnerUUID, testNow, testNow)
	}
	mock.ExpectQuery(regexp.QuoteMeta(selectEntriesQuery)).
		WithArgs(playlistID).
		WillReturnRows(rows)
	if len(entries) == 0 {
		return
	}

	tags := sqlmock.NewRows([]string{"video_id", "value"})
	for _, e := range entries {
		tags.AddRow(e.pk, "tag-"+e.videoID)
	}
	mock.ExpectQuery(regexp.QuoteMeta(selectVideoTagsQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(tags)
	mock.ExpectQuery(regexp.QuoteMeta(selectVideoCollaboratorsQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"video_id", "email"}))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"serialization", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if errors.Is(got, ErrTransientConflict) != tt.transient {
				t.Fatalf("classify(%v) = %v, transient want %v", tt.err, got, tt.transient)
			}
			if !errors.Is(got, tt.err) {
				t.Fatalf("classify dropped the cause: %v", got)
			}
		})
	}

	if classify(nil) != nil {
		t.Fatal("classify(nil) should be nil")
	}
	wrapped := classify(&pgconn.PgError{Code: "40001"})
	if classify(wrapped) != wrapped {
		t.Fatal("classify should not wrap twice")
	}
}
