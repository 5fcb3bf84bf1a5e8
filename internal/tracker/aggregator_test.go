package tracker

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/claude/scanflow/internal/kv"
)

// TestParseNumber verifies leading-number parsing for free-text set fields.
func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"80", 80},
		{" 72.5 ", 72.5},
		{"80kg", 80},
		{"10 reps", 10},
		{".5", 0.5},
		{"-3", -3},
		{"1e2", 100},
		{"", 0},
		{"heavy", 0},
		{"kg80", 0},
		{"1e999", 0},
	}
	for _, tt := range tests {
		if got := parseNumber(tt.in); got != tt.want {
			t.Errorf("parseNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestVolume verifies the sum of weight*reps and half-up rounding.
func TestVolume(t *testing.T) {
	tests := []struct {
		name string
		ex   []ExerciseSnapshot
		want int64
	}{
		{"empty", nil, 0},
		{"three sets", []ExerciseSnapshot{{Sets: []SetData{{"80", "10"}, {"80", "10"}, {"80", "10"}}}}, 2400},
		{"non-numeric contributes zero", []ExerciseSnapshot{{Sets: []SetData{{"bar", "10"}, {"50", ""}, {"20", "5"}}}}, 100},
		{"across exercises", []ExerciseSnapshot{{Sets: []SetData{{"60", "8"}}}, {Sets: []SetData{{"12.5", "12"}}}}, 630},
		{"rounds half up", []ExerciseSnapshot{{Sets: []SetData{{"2.5", "1"}}}}, 3},
		{"rounds down", []ExerciseSnapshot{{Sets: []SetData{{"2.25", "1"}}}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Volume(tt.ex); got != tt.want {
				t.Errorf("Volume = %d, want %d", got, tt.want)
			}
		})
	}
}

func newAggregator(store kv.Store, now time.Time) *Aggregator {
	a := NewAggregator(store, slog.Default())
	a.now = func() time.Time { return now }
	return a
}

// TestCompleteWorkoutScenario records three 80x10 sets and completes the workout.
func TestCompleteWorkoutScenario(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	tr := NewTracker(store, slog.Default())
	workout := Workout{Day: "Monday", Exercises: []Exercise{benchPress, {ID: "tricep-dips", Name: "Tricep Dips", TargetSets: 3}}}

	tr.Start(benchPress)
	for i := range 3 {
		_ = tr.RecordSet(ctx, "bench-press", i, FieldWeight, "80")
		_ = tr.RecordSet(ctx, "bench-press", i, FieldReps, "10")
	}

	now := time.Date(2026, 2, 2, 18, 30, 0, 0, time.UTC)
	rec, err := newAggregator(store, now).CompleteWorkout(ctx, workout)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if rec.TotalVolume != 2400 {
		t.Errorf("volume = %d, want 2400", rec.TotalVolume)
	}
	if !strings.HasPrefix(rec.ID, "workout_") {
		t.Errorf("id = %q", rec.ID)
	}
	if rec.Date != "2026-02-02T18:30:00.000Z" {
		t.Errorf("date = %q", rec.Date)
	}
	if rec.DayName != "Monday" || rec.ExerciseCount() != 2 || rec.SetCount() != 3 {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.Exercises[1].Sets) != 0 || rec.Exercises[1].Sets == nil {
		t.Errorf("untracked exercise sets = %#v, want empty list", rec.Exercises[1].Sets)
	}

	history, err := NewHistory(store, slog.Default()).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history len = %d, want 1", len(history))
	}

	// Tracking keys are cleared.
	if store.Len() != 1 {
		t.Errorf("store has %d keys, want only the history", store.Len())
	}
}

// TestCompleteWorkoutAppendsEachTime verifies N completions give N distinct records.
func TestCompleteWorkoutAppendsEachTime(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	friday, _ := FindWorkout("Friday")
	agg := newAggregator(store, time.Now())

	const n = 4
	seen := map[string]bool{}
	for range n {
		rec, err := agg.CompleteWorkout(ctx, friday)
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		seen[rec.ID] = true
	}

	history, _ := NewHistory(store, slog.Default()).Load(ctx)
	if len(history) != n {
		t.Errorf("history len = %d, want %d", len(history), n)
	}
	if len(seen) != n {
		t.Errorf("distinct ids = %d, want %d", len(seen), n)
	}
}

// TestCompleteWorkoutReadFailure verifies nothing is persisted when reads fail.
func TestCompleteWorkoutReadFailure(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	fs := &failingStore{Store: mem, failGet: true}
	monday, _ := FindWorkout("Monday")

	if _, err := newAggregator(fs, time.Now()).CompleteWorkout(ctx, monday); !errors.Is(err, errDisk) {
		t.Fatalf("err = %v, want disk error", err)
	}
	if _, ok, _ := mem.Get(ctx, HistoryKey); ok {
		t.Error("history written despite read failure")
	}
}

// TestCompleteWorkoutWriteFailure verifies a failed history write keeps the tracking keys.
func TestCompleteWorkoutWriteFailure(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	_ = mem.Set(ctx, "exercise_squats_completed", "true")
	fs := &failingStore{Store: mem, failSet: true}
	wednesday, _ := FindWorkout("Wednesday")

	if _, err := newAggregator(fs, time.Now()).CompleteWorkout(ctx, wednesday); !errors.Is(err, errDisk) {
		t.Fatalf("err = %v, want disk error", err)
	}
	if v, _, _ := mem.Get(ctx, "exercise_squats_completed"); v != "true" {
		t.Error("tracking key cleared after failed write")
	}
}

// TestCompleteWorkoutCleanupFailure verifies the record is returned with the cleanup error.
func TestCompleteWorkoutCleanupFailure(t *testing.T) {
	ctx := context.Background()
	fs := &failingStore{Store: kv.NewMemory(), failRemove: true}
	wednesday, _ := FindWorkout("Wednesday")

	rec, err := newAggregator(fs, time.Now()).CompleteWorkout(ctx, wednesday)
	if !errors.Is(err, errDisk) {
		t.Fatalf("err = %v, want disk error", err)
	}
	if rec == nil {
		t.Fatal("record not returned")
	}
	history, _ := NewHistory(fs, slog.Default()).Load(ctx)
	if len(history) != 1 {
		t.Errorf("history len = %d, want 1", len(history))
	}
}

// TestCompleteWorkoutCorruptSnapshot verifies unparseable exercise data is treated as no sets.
func TestCompleteWorkoutCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	_ = store.Set(ctx, "exercise_pull-ups_data", "{not json")
	friday, _ := FindWorkout("Friday")

	rec, err := newAggregator(store, time.Now()).CompleteWorkout(ctx, friday)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if rec.SetCount() != 0 || rec.TotalVolume != 0 {
		t.Errorf("record = %+v", rec)
	}
}

// TestCompleteWorkoutCorruptHistory verifies an unparseable history is left
// untouched and the exercise state survives for a retry.
func TestCompleteWorkoutCorruptHistory(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	const corrupt = `[{"id":"w1","date":"2024-01-01T10:00:00.000Z","dayName":"Monday","exercises":[],"totalVolume":10},`
	_ = store.Set(ctx, HistoryKey, corrupt)
	_ = store.Set(ctx, "exercise_pull-ups_data", `[{"weight":"10","reps":"5"}]`)
	friday, _ := FindWorkout("Friday")

	rec, err := newAggregator(store, time.Now()).CompleteWorkout(ctx, friday)
	if err == nil {
		t.Fatalf("expected error, got record %+v", rec)
	}
	if !errors.Is(err, errHistoryCorrupt) {
		t.Errorf("err = %v, want errHistoryCorrupt", err)
	}
	if raw, _, _ := store.Get(ctx, HistoryKey); raw != corrupt {
		t.Errorf("history rewritten: %s", raw)
	}
	if _, ok, _ := store.Get(ctx, "exercise_pull-ups_data"); !ok {
		t.Error("exercise data cleared after failed completion")
	}
}
