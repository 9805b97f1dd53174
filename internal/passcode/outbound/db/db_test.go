package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/otpgate/internal/passcode/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const attemptSchema = `
CREATE TABLE IF NOT EXISTS passcode_attempts (
	id              BIGINT PRIMARY KEY,
	identifier_hash TEXT NOT NULL,
	event           SMALLINT NOT NULL,
	occurred_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passcode_attempts_hash ON passcode_attempts (identifier_hash, occurred_at DESC);
`

func newTestDB(t *testing.T) *DB {
	t.Helper()

	if os.Getenv("OTPGATE_CONTAINER_TESTS") == "" {
		t.Skip("set OTPGATE_CONTAINER_TESTS=1 to run container-backed tests")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("otpgate"),
		tcpostgres.WithUsername("otpgate"),
		tcpostgres.WithPassword("otpgate"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort(nat.Port("5432/tcp")),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, uri)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, attemptSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	return NewDB(pool, instrument.NewNoop())
}

func TestCreateAndListAttempts(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := newTestDB(t)
	base := time.Date(2026, time.January, 2, 10, 0, 0, 0, time.UTC)

	rows := []entity.Attempt{
		{ID: 1, IdentifierHash: "hash-a", Event: entity.AttemptEventIssued, OccurredAt: base},
		{ID: 2, IdentifierHash: "hash-a", Event: entity.AttemptEventVerified, OccurredAt: base.Add(time.Minute)},
		{ID: 3, IdentifierHash: "hash-b", Event: entity.AttemptEventDenied, OccurredAt: base.Add(2 * time.Minute)},
	}
	for _, row := range rows {
		if err := store.CreateAttempt(ctx, row); err != nil {
			t.Fatalf("create attempt %d: %v", row.ID, err)
		}
	}

	// Act
	all, total, err := store.GetAttemptList(ctx, entity.AttemptFilter{Size: 10, Page: 1})

	// Assert
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("total = %d, rows = %d, want 3 and 3", total, len(all))
	}
	if all[0].ID != 3 {
		t.Fatalf("first row ID = %d, want newest first", all[0].ID)
	}
}

func TestGetAttemptListFiltered(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := newTestDB(t)
	base := time.Date(2026, time.January, 2, 10, 0, 0, 0, time.UTC)

	rows := []entity.Attempt{
		{ID: 1, IdentifierHash: "hash-a", Event: entity.AttemptEventIssued, OccurredAt: base},
		{ID: 2, IdentifierHash: "hash-a", Event: entity.AttemptEventDenied, OccurredAt: base.Add(time.Minute)},
		{ID: 3, IdentifierHash: "hash-b", Event: entity.AttemptEventDenied, OccurredAt: base.Add(2 * time.Minute)},
	}
	for _, row := range rows {
		if err := store.CreateAttempt(ctx, row); err != nil {
			t.Fatalf("create attempt %d: %v", row.ID, err)
		}
	}

	// Act
	denied, deniedTotal, err := store.GetAttemptList(ctx, entity.AttemptFilter{
		IdentifierHash: "hash-a",
		Event:          entity.AttemptEventDenied,
		Size:           10,
		Page:           1,
	})
	windowed, windowedTotal, windowErr := store.GetAttemptList(ctx, entity.AttemptFilter{
		DateFrom: base.Add(30 * time.Second),
		DateTo:   base.Add(90 * time.Second),
		Size:     10,
		Page:     1,
	})

	// Assert
	if err != nil {
		t.Fatalf("list denied: %v", err)
	}
	if deniedTotal != 1 || len(denied) != 1 || denied[0].ID != 2 {
		t.Fatalf("denied = %+v (total %d), want only row 2", denied, deniedTotal)
	}
	if windowErr != nil {
		t.Fatalf("list windowed: %v", windowErr)
	}
	if windowedTotal != 1 || len(windowed) != 1 || windowed[0].ID != 2 {
		t.Fatalf("windowed = %+v (total %d), want only row 2", windowed, windowedTotal)
	}
}

func TestCreateAttemptDuplicateID(t *testing.T) {
	// Arrange
	ctx := context.Background()
	store := newTestDB(t)
	row := entity.Attempt{ID: 1, IdentifierHash: "hash-a", Event: entity.AttemptEventIssued, OccurredAt: time.Now().UTC()}
	if err := store.CreateAttempt(ctx, row); err != nil {
		t.Fatalf("create attempt: %v", err)
	}

	// Act
	err := store.CreateAttempt(ctx, row)

	// Assert
	if err == nil {
		t.Fatal("duplicate ID should conflict")
	}
}
