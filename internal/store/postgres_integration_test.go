package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openTestStore(t *testing.T) (*PostgresStore, context.Context) {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("PBLBOARD_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("PBLBOARD_TEST_DATABASE_URL is not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)
	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db), ctx
}

func TestBoardAndLessonLifecyclePostgres(t *testing.T) {
	s, ctx := openTestStore(t)

	user, err := s.CreateUser(ctx, User{Email: "Teacher@Example.org", DisplayName: "Teacher"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Email != "teacher@example.org" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}

	b, err := s.InsertBoard(ctx, Board{
		Slug: "abc12345", Title: "Untitled Board", RealtimeRoom: "board:abc12345",
		OwnerID: user.ID, Content: `{"agenda":[]}`, Subjects: `["Math"]`,
	})
	if err != nil {
		t.Fatalf("insert board: %v", err)
	}

	title := "Water Watchers"
	updated, err := s.UpdateBoard(ctx, b.ID, BoardUpdate{Title: &title})
	if err != nil {
		t.Fatalf("update board: %v", err)
	}
	if updated.Title != title || updated.Content != b.Content {
		t.Fatalf("unexpected board after update: %+v", updated)
	}

	boards, err := s.ListBoardsByOwner(ctx, user.ID)
	if err != nil || len(boards) != 1 {
		t.Fatalf("list boards: %v %d", err, len(boards))
	}

	for _, subject := range []string{"Science", "Math"} {
		if _, err := s.InsertLesson(ctx, LessonPlan{BoardID: b.ID, AgendaEntryID: "agenda-1", Subject: subject, PeriodMinutes: 45, Content: "{}"}); err != nil {
			t.Fatalf("insert lesson: %v", err)
		}
	}
	lessons, err := s.ListLessons(ctx, b.ID)
	if err != nil || len(lessons) != 2 {
		t.Fatalf("list lessons: %v %d", err, len(lessons))
	}
	if lessons[0].Subject != "Math" {
		t.Fatalf("expected lessons ordered by subject, got %q first", lessons[0].Subject)
	}

	minutes := 90
	l, err := s.UpdateLesson(ctx, lessons[0].ID, nil, &minutes)
	if err != nil || l.PeriodMinutes != 90 || l.Content != "{}" {
		t.Fatalf("update lesson: %v %+v", err, l)
	}

	if err := s.DeleteBoard(ctx, b.ID); err != nil {
		t.Fatalf("delete board: %v", err)
	}
	if _, err := s.GetLesson(ctx, l.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected lessons to cascade, got %v", err)
	}
	if _, err := s.GetBoard(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRefreshSessionsPostgres(t *testing.T) {
	s, ctx := openTestStore(t)
	user, err := s.CreateUser(ctx, User{Email: "a@example.org", DisplayName: "A"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := s.SaveRefreshSession(ctx, "hash", user.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LookupRefreshSession(ctx, "hash")
	if err != nil || got.ID != user.ID {
		t.Fatalf("lookup: %v %+v", err, got)
	}
	if err := s.RevokeRefreshSession(ctx, "hash"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := s.LookupRefreshSession(ctx, "hash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected revoked session to be gone, got %v", err)
	}
}
