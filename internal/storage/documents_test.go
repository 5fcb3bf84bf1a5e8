package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/claude/scanflow/internal/document"
)

// exerciseStore runs the behaviour shared by every document store.
func exerciseStore(t *testing.T, s document.Store, uid string) {
	t.Helper()
	ctx := context.Background()

	if err := s.Update(ctx, uid, document.Set("a", 1)); !errors.Is(err, document.ErrNotFound) {
		t.Fatalf("update before create err = %v, want ErrNotFound", err)
	}

	initial := document.Doc{
		"email":         "a@example.com",
		"trainingPlan":  map[string]any{"cycleFocus": "Hypertrophy Phase 1", "schedule": []any{map[string]any{"day": "Monday", "type": "Push"}}},
		"nutritionPlan": map[string]any{"dailyCalories": 2300},
		"workoutLogs":   []any{},
		"createdAt":     document.ServerTimestamp,
	}
	if err := s.Create(ctx, uid, initial); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create(ctx, uid, document.Doc{}); !errors.Is(err, document.ErrExists) {
		t.Fatalf("duplicate create err = %v, want ErrExists", err)
	}

	if err := s.Update(ctx, uid,
		document.Set("trainingPlan.cycleFocus", "Injury Recovery / Deload"),
		document.Append("workoutLogs", map[string]any{"rating": 6}),
	); err != nil {
		t.Fatalf("update: %v", err)
	}

	const writers = 10
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Update(ctx, uid, document.Increment("nutritionPlan.dailyCalories", -200)); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	doc, err := s.Get(ctx, uid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := document.String(doc, "trainingPlan.cycleFocus"); got != "Injury Recovery / Deload" {
		t.Errorf("cycleFocus = %q", got)
	}
	if got := document.String(doc, "trainingPlan.schedule.0.type"); got != "Push" {
		t.Errorf("schedule type = %q, want Push", got)
	}
	if n, _ := document.Number(doc, "nutritionPlan.dailyCalories"); n != 2300-200*writers {
		t.Errorf("dailyCalories = %v, want %v", n, 2300-200*writers)
	}
	if logs := document.Tail(doc, "workoutLogs", 10); len(logs) != 1 {
		t.Errorf("workoutLogs len = %d, want 1", len(logs))
	}
	if document.String(doc, "createdAt") == "" {
		t.Error("createdAt was not resolved")
	}

	if err := s.Update(ctx, uid, document.Set("email", "x"), document.Set("bad..path", 1)); !errors.Is(err, document.ErrInvalidPath) {
		t.Fatalf("invalid update err = %v, want ErrInvalidPath", err)
	}
	doc, _ = s.Get(ctx, uid)
	if got := document.String(doc, "email"); got != "a@example.com" {
		t.Errorf("email = %q after rejected batch", got)
	}
}

// TestSQLiteStore exercises the SQLite document store with a temp database.
func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "docs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, document.ErrNotFound) {
		t.Errorf("get err = %v, want ErrNotFound", err)
	}
	exerciseStore(t, s, "u1")
}

// TestPostgresStore runs against a live database when SCANFLOW_TEST_POSTGRES_DSN is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("SCANFLOW_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SCANFLOW_TEST_POSTGRES_DSN not set")
	}
	if err := RunMigrations(dsn, "../../migrations"); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	ctx := context.Background()
	db, err := New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	uid := "test-" + t.Name()
	if _, err := db.Pool.Exec(ctx, `DELETE FROM user_documents WHERE uid = $1`, uid); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	exerciseStore(t, db, uid)
}
