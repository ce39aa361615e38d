package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"tubelists/shared/go/models"
)

var videoColumns = []string{
	"id", "video_id", "title", "description", "visibility", "language", "difficulty",
	"owner_id", "owner_uuid", "created_at", "updated_at",
}

func TestValidateVideoInputNormalisesCollaborators(t *testing.T) {
	in := models.VideoInput{
		VideoID:       " dQw4w9WgXcQ ",
		Title:         "Intro",
		Visibility:    models.VisibilityUnlisted,
		Collaborators: []string{"Ann@Example.com", "ann@example.com ", ""},
	}
	if err := ValidateVideoInput(&in); err != nil {
		t.Fatalf("ValidateVideoInput: %v", err)
	}
	if in.VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("expected trimmed video id, got %q", in.VideoID)
	}
	if len(in.Collaborators) != 1 || in.Collaborators[0] != "ann@example.com" {
		t.Fatalf("unexpected collaborators: %v", in.Collaborators)
	}
}

func TestCreateVideo(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(insertVideoQuery)).
		WithArgs("vid-a", "Intro", "", "public", "en", "beginner", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectExec(regexp.QuoteMeta(deleteVideoTagsQuery)).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(insertVideoTagQuery)).
		WithArgs(int64(10), 0, "go").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(deleteVideoCollaboratorsQuery)).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(insertVideoCollaboratorQuery)).
		WithArgs(int64(10), "bob@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectVideoQuery)).
		WithArgs("vid-a").
		WillReturnRows(sqlmock.NewRows(videoColumns).
			AddRow(int64(10), "vid-a", "Intro", "", "public", "en", "beginner", int64(7), testOwnerUUID, testNow, testNow))
	mock.ExpectQuery(regexp.QuoteMeta(selectVideoTagsQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"video_id", "value"}).AddRow(int64(10), "go"))
	mock.ExpectQuery(regexp.QuoteMeta(selectVideoCollaboratorsQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"video_id", "email"}).AddRow(int64(10), "bob@example.com"))
	mock.ExpectCommit()

	video, err := s.CreateVideo(context.Background(), 7, models.VideoInput{
		VideoID:       "vid-a",
		Title:         "Intro",
		Visibility:    models.VisibilityPublic,
		Language:      " en ",
		Difficulty:    "beginner",
		Tags:          []string{"go"},
		Collaborators: []string{"Bob@example.com"},
	})
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}
	if !video.HasCollaborator("BOB@example.com") || len(video.Tags) != 1 || video.Language != "en" {
		t.Fatalf("unexpected video: %#v", video)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateVideoDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(insertVideoQuery)).
		WithArgs("vid-a", "Intro", "", "public", "", "", int64(7)).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := s.CreateVideo(context.Background(), 7, models.VideoInput{
		VideoID: "vid-a", Title: "Intro", Visibility: models.VisibilityPublic,
	})
	if !errors.Is(err, ErrVideoExists) {
		t.Fatalf("expected ErrVideoExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateVideoNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	visibility := models.VisibilityPrivate
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(updateVideoQuery)).
		WithArgs("missing", nil, nil, "private", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := s.UpdateVideo(context.Background(), "missing", models.VideoUpdate{Visibility: &visibility})
	if !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(insertUserQuery)).
		WithArgs(sqlmock.AnyArg(), "ann", "ann@example.com", []byte("hash")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := s.CreateUser(context.Background(), " ann ", "Ann@Example.com", []byte("hash"))
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListVideosByOwner(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(listOwnerVideosQuery)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"video_id"}).AddRow("vid-b"))
	mock.ExpectQuery(regexp.QuoteMeta(selectVideoQuery)).
		WithArgs("vid-b").
		WillReturnRows(sqlmock.NewRows(videoColumns).
			AddRow(int64(20), "vid-b", "Channels", "", "private", "fr", "advanced", int64(7), testOwnerUUID, testNow, testNow))
	mock.ExpectQuery(regexp.QuoteMeta(selectVideoTagsQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"video_id", "value"}))
	mock.ExpectQuery(regexp.QuoteMeta(selectVideoCollaboratorsQuery)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"video_id", "email"}))

	videos, err := s.ListVideosByOwner(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListVideosByOwner: %v", err)
	}
	if len(videos) != 1 || videos[0].VideoID != "vid-b" || videos[0].Difficulty != "advanced" {
		t.Fatalf("unexpected videos: %#v", videos)
	}
	if videos[0].Tags == nil {
		t.Fatal("expected empty, non-nil tags")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetUserByUUID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectUserByUUIDQuery)).
		WithArgs(testOwnerUUID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "uuid", "username", "email", "password_hash", "created_at"}).
			AddRow(int64(7), testOwnerUUID, "ann", "ann@example.com", []byte("hash"), testNow))

	user, err := s.GetUserByUUID(context.Background(), testOwnerUUID)
	if err != nil {
		t.Fatalf("GetUserByUUID: %v", err)
	}
	if user.ID != 7 || user.Username != "ann" {
		t.Fatalf("unexpected user: %#v", user)
	}

	if _, err := s.GetUserByUUID(context.Background(), "not-a-uuid"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for malformed id, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
