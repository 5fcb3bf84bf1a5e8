package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v8"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "workout_history"); err != nil || ok {
		t.Fatalf("get absent = ok %v, err %v", ok, err)
	}
	if err := s.Set(ctx, "workout_history", "[]"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "workout_history", `[{"id":"w1"}]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	v, ok, err := s.Get(ctx, "workout_history")
	if err != nil || !ok || v != `[{"id":"w1"}]` {
		t.Fatalf("get = %q, %v, %v", v, ok, err)
	}
	if err := s.Remove(ctx, "workout_history"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(ctx, "workout_history"); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "workout_history"); ok {
		t.Error("key still present after remove")
	}
}

// TestMemoryStore verifies the in-memory store semantics.
func TestMemoryStore(t *testing.T) {
	m := NewMemory()
	exerciseStore(t, m)
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
}

// TestSQLiteStore verifies values persist across reopen of the state database.
func TestSQLiteStore(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	exerciseStore(t, s)

	ctx := context.Background()
	if err := s.Set(ctx, "exercise_squats_completed", "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Close()

	s, err = OpenSQLite(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	v, ok, err := s.Get(ctx, "exercise_squats_completed")
	if err != nil || !ok || v != "true" {
		t.Errorf("after reopen = %q, %v, %v", v, ok, err)
	}
}

// TestRedisStore verifies key prefixing and redis.Nil handling against a mock client.
func TestRedisStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedis(db, "dev1::")
	ctx := context.Background()

	mock.ExpectGet("dev1::workout_history").RedisNil()
	mock.ExpectSet("dev1::workout_history", "[]", 0).SetVal("OK")
	mock.ExpectGet("dev1::workout_history").SetVal("[]")
	mock.ExpectDel("dev1::workout_history").SetVal(1)

	if _, ok, err := s.Get(ctx, "workout_history"); err != nil || ok {
		t.Fatalf("get absent = ok %v, err %v", ok, err)
	}
	if err := s.Set(ctx, "workout_history", "[]"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, err := s.Get(ctx, "workout_history"); err != nil || !ok || v != "[]" {
		t.Fatalf("get = %q, %v, %v", v, ok, err)
	}
	if err := s.Remove(ctx, "workout_history"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// TestRedisStoreError verifies transport errors are returned rather than treated as absent keys.
func TestRedisStoreError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedis(db, "")
	boom := errors.New("connection reset")
	mock.ExpectGet("workout_history").SetErr(boom)

	if _, _, err := s.Get(context.Background(), "workout_history"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}
