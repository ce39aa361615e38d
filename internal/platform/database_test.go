package platform

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var fastBackoff = Backoff{
	PingTimeout: time.Second,
	MaxWait:     time.Second,
	Initial:     time.Millisecond,
	Max:         5 * time.Millisecond,
}

func TestWaitForDatabaseRetriesUntilReady(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectPing().WillReturnError(errors.New("the database system is starting up"))
	mock.ExpectPing()

	if err := waitForDatabase(context.Background(), db, fastBackoff); err != nil {
		t.Fatalf("expected database to become ready, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestWaitForDatabaseGivesUp(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	refused := errors.New("connection refused")
	for i := 0; i < 1000; i++ {
		mock.ExpectPing().WillReturnError(refused)
	}

	b := fastBackoff
	b.MaxWait = 20 * time.Millisecond
	err = waitForDatabase(context.Background(), db, b)
	if !errors.Is(err, refused) {
		t.Fatalf("expected last ping error, got %v", err)
	}
}

func TestWaitForDatabaseHonoursCancellation(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := waitForDatabase(ctx, db, fastBackoff); err == nil {
		t.Fatal("expected error after cancellation")
	}
}
