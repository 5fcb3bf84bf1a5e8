package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/claude/scanflow/internal/kv"
)

// HistoryKey holds the JSON array of completed workouts.
const HistoryKey = "workout_history"

func completedKey(exerciseID string) string { return "exercise_" + exerciseID + "_completed" }
func dataKey(exerciseID string) string      { return "exercise_" + exerciseID + "_data" }

var (
	// ErrNotStarted is returned when an exercise has no in-progress set list.
	ErrNotStarted = errors.New("exercise not started")
	// ErrSetIndex is returned for a set index outside the current list.
	ErrSetIndex = errors.New("set index out of range")
)

// Field selects the text field of a set.
type Field string

const (
	FieldWeight Field = "weight"
	FieldReps   Field = "reps"
)

// Set is one attempt within an exercise. Weight and Reps are free text.
type Set struct {
	Weight    string `json:"weight"`
	Reps      string `json:"reps"`
	Completed bool   `json:"completed"`
}

// SetData is the persisted snapshot of a set.
type SetData struct {
	Weight string `json:"weight"`
	Reps   string `json:"reps"`
}

// Tracker holds the in-progress set lists of started exercises and persists
// completion state to the store whenever an exercise is complete.
type Tracker struct {
	store kv.Store
	log   *slog.Logger

	mu   sync.Mutex
	sets map[string][]Set
}

// NewTracker creates a tracker over store.
func NewTracker(store kv.Store, log *slog.Logger) *Tracker {
	return &Tracker{store: store, log: log, sets: make(map[string][]Set)}
}

// Start begins tracking ex with its target number of empty sets (at least one).
// Any previous in-progress list for the exercise is discarded.
func (t *Tracker) Start(ex Exercise) []Set {
	n := max(ex.TargetSets, 1)
	sets := make([]Set, n)

	t.mu.Lock()
	t.sets[ex.ID] = sets
	t.mu.Unlock()
	return append([]Set(nil), sets...)
}

// RecordSet sets the weight or reps text of one set. A set whose fields are
// both non-empty is marked complete.
func (t *Tracker) RecordSet(ctx context.Context, exerciseID string, index int, field Field, value string) error {
	return t.mutate(ctx, exerciseID, func(sets []Set) ([]Set, error) {
		if index < 0 || index >= len(sets) {
			return nil, fmt.Errorf("%w: %d of %d", ErrSetIndex, index, len(sets))
		}
		s := &sets[index]
		switch field {
		case FieldWeight:
			s.Weight = value
		case FieldReps:
			s.Reps = value
		default:
			return nil, fmt.Errorf("unknown set field %q", field)
		}
		if s.Weight != "" && s.Reps != "" {
			s.Completed = true
		}
		return sets, nil
	})
}

// ToggleSetComplete flips a set's completion flag regardless of its fields.
func (t *Tracker) ToggleSetComplete(ctx context.Context, exerciseID string, index int) error {
	return t.mutate(ctx, exerciseID, func(sets []Set) ([]Set, error) {
		if index < 0 || index >= len(sets) {
			return nil, fmt.Errorf("%w: %d of %d", ErrSetIndex, index, len(sets))
		}
		sets[index].Completed = !sets[index].Completed
		return sets, nil
	})
}

// AddSet appends an empty set.
func (t *Tracker) AddSet(ctx context.Context, exerciseID string) error {
	return t.mutate(ctx, exerciseID, func(sets []Set) ([]Set, error) {
		return append(sets, Set{}), nil
	})
}

// RemoveSet drops the last set. It is a no-op when only one set remains.
func (t *Tracker) RemoveSet(ctx context.Context, exerciseID string) error {
	return t.mutate(ctx, exerciseID, func(sets []Set) ([]Set, error) {
		if len(sets) <= 1 {
			return sets, nil
		}
		return sets[:len(sets)-1], nil
	})
}

// IsExerciseComplete reports whether every set of a started exercise is complete.
func (t *Tracker) IsExerciseComplete(exerciseID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return allComplete(t.sets[exerciseID])
}

// Sets returns a copy of the exercise's current sets, or nil if not started.
func (t *Tracker) Sets(exerciseID string) []Set {
	t.mu.Lock()
	defer t.mu.Unlock()
	sets, ok := t.sets[exerciseID]
	if !ok {
		return nil
	}
	return append([]Set(nil), sets...)
}

func allComplete(sets []Set) bool {
	if len(sets) == 0 {
		return false
	}
	for _, s := range sets {
		if !s.Completed {
			return false
		}
	}
	return true
}

// mutate applies fn to a copy of the exercise's sets, stores the result and,
// if the exercise is then complete, persists its flag and snapshot.
func (t *Tracker) mutate(ctx context.Context, exerciseID string, fn func([]Set) ([]Set, error)) error {
	t.mu.Lock()
	cur, ok := t.sets[exerciseID]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotStarted, exerciseID)
	}
	next, err := fn(append([]Set(nil), cur...))
	if err != nil {
		t.mu.Unlock()
		return err
	}
	t.sets[exerciseID] = next
	complete := allComplete(next)
	snapshot := append([]Set(nil), next...)
	t.mu.Unlock()

	if !complete {
		return nil
	}
	return t.persistComplete(ctx, exerciseID, snapshot)
}

func (t *Tracker) persistComplete(ctx context.Context, exerciseID string, sets []Set) error {
	if err := t.store.Set(ctx, completedKey(exerciseID), "true"); err != nil {
		return fmt.Errorf("saving completion of %s: %w", exerciseID, err)
	}

	data := make([]SetData, len(sets))
	for i, s := range sets {
		data[i] = SetData{Weight: s.Weight, Reps: s.Reps}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding sets of %s: %w", exerciseID, err)
	}
	if err := t.store.Set(ctx, dataKey(exerciseID), string(raw)); err != nil {
		return fmt.Errorf("saving sets of %s: %w", exerciseID, err)
	}
	return nil
}

// ExerciseStatus is one row of the training list.
type ExerciseStatus struct {
	Exercise  Exercise `json:"exercise"`
	Completed bool     `json:"completed"`
}

// Status reads the persisted completion flag of every exercise in w. Read
// failures are logged and reported as not complete.
func (t *Tracker) Status(ctx context.Context, w Workout) []ExerciseStatus {
	out := make([]ExerciseStatus, len(w.Exercises))
	for i, ex := range w.Exercises {
		out[i] = ExerciseStatus{Exercise: ex, Completed: t.completed(ctx, ex.ID)}
	}
	return out
}

func (t *Tracker) completed(ctx context.Context, exerciseID string) bool {
	v, ok, err := t.store.Get(ctx, completedKey(exerciseID))
	if err != nil {
		t.log.Warn("reading exercise status", "exercise", exerciseID, "error", err)
		return false
	}
	if !ok {
		return false
	}
	done, _ := strconv.ParseBool(v)
	return done
}

// ToggleExercise flips the persisted completion flag of an exercise and
// returns the new value.
func (t *Tracker) ToggleExercise(ctx context.Context, exerciseID string) (bool, error) {
	next := !t.completed(ctx, exerciseID)
	if err := t.store.Set(ctx, completedKey(exerciseID), strconv.FormatBool(next)); err != nil {
		return false, fmt.Errorf("saving completion of %s: %w", exerciseID, err)
	}
	return next, nil
}
