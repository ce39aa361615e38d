package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"tubelists/shared/go/models"
)

func TestValidatePlaylistInput(t *testing.T) {
	long := make([]byte, maxTitleLength+1)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name    string
		in      models.PlaylistInput
		wantErr bool
	}{
		{
			name: "valid playlist",
			in:   models.PlaylistInput{Title: "Go basics", Visibility: models.VisibilityPublic, Tags: []string{"go"}},
		},
		{
			name:    "missing title",
			in:      models.PlaylistInput{Title: "   ", Visibility: models.VisibilityPublic},
			wantErr: true,
		},
		{
			name:    "title too long",
			in:      models.PlaylistInput{Title: string(long), Visibility: models.VisibilityPublic},
			wantErr: true,
		},
		{
			name:    "unknown visibility",
			in:      models.PlaylistInput{Title: "Go", Visibility: "secret"},
			wantErr: true,
		},
		{
			name:    "too many tags",
			in:      models.PlaylistInput{Title: "Go", Visibility: models.VisibilityPublic, Tags: []string{"a", "b", "c", "d", "e", "f"}},
			wantErr: true,
		},
		{
			name:    "tag too long",
			in:      models.PlaylistInput{Title: "Go", Visibility: models.VisibilityPublic, Tags: []string{"abcdefghijklmnopqrstuvwxyz"}},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePlaylistInput(&tc.in)
			if tc.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput but got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected nil error but got %v", err)
			}
		})
	}
}

func TestValidatePlaylistInputNormalisesTags(t *testing.T) {
	in := models.PlaylistInput{
		Title:      "  Go basics ",
		Visibility: models.VisibilityPrivate,
		Tags:       []string{" go", "go", "", "sql"},
	}
	if err := ValidatePlaylistInput(&in); err != nil {
		t.Fatalf("ValidatePlaylistInput: %v", err)
	}
	if in.Title != "Go basics" {
		t.Fatalf("expected trimmed title, got %q", in.Title)
	}
	if len(in.Tags) != 2 || in.Tags[0] != "go" || in.Tags[1] != "sql" {
		t.Fatalf("unexpected tags: %v", in.Tags)
	}
}

func TestCreatePlaylistInvalidSkipsDatabase(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.CreatePlaylist(context.Background(), 7, models.PlaylistInput{Visibility: models.VisibilityPublic})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetPlaylistWithoutEntries(t *testing.T) {
	s, mock := newMockStore(t)

	expectLoadPlaylist(mock, 4)

	playlist, err := s.GetPlaylist(context.Background(), testPlaylistUUID)
	if err != nil {
		t.Fatalf("GetPlaylist: %v", err)
	}
	if playlist.OwnerUUID != testOwnerUUID || playlist.Visibility != models.VisibilityPublic {
		t.Fatalf("unexpected playlist: %#v", playlist)
	}
	if playlist.Entries == nil || len(playlist.Entries) != 0 {
		t.Fatalf("expected empty entries, got %#v", playlist.Entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetPlaylistNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectPlaylistQuery)).
		WithArgs(testPlaylistUUID).
		WillReturnRows(sqlmock.NewRows(playlistColumns))

	_, err := s.GetPlaylist(context.Background(), testPlaylistUUID)
	if !errors.Is(err, ErrPlaylistNotFound) {
		t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
	}

	if _, err := s.GetPlaylist(context.Background(), "../etc"); !errors.Is(err, ErrPlaylistNotFound) {
		t.Fatalf("expected ErrPlaylistNotFound for malformed id, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdatePlaylistNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	title := "Renamed"
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(updatePlaylistQuery)).
		WithArgs(testPlaylistUUID, "Renamed", nil, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.UpdatePlaylist(context.Background(), testPlaylistUUID, models.PlaylistUpdate{Title: &title})
	if !errors.Is(err, ErrPlaylistNotFound) {
		t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeletePlaylist(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(deletePlaylistQuery)).
		WithArgs(testPlaylistUUID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.DeletePlaylist(context.Background(), testPlaylistUUID); err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPlaylistUUIDsContainingVideo(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(playlistsContainingVideoQuery)).
		WithArgs("vid-a").
		WillReturnRows(sqlmock.NewRows([]string{"uuid"}).AddRow("p-one").AddRow("p-two"))

	ids, err := s.PlaylistUUIDsContainingVideo(context.Background(), "vid-a")
	if err != nil {
		t.Fatalf("PlaylistUUIDsContainingVideo: %v", err)
	}
	if len(ids) != 2 || ids[1] != "p-two" {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
