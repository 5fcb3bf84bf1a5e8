package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/claude/scanflow/internal/kv"
	"github.com/google/uuid"
)

// Aggregator turns the per-exercise snapshots of a workout into a history record.
type Aggregator struct {
	store kv.Store
	log   *slog.Logger
	now   func() time.Time
}

// NewAggregator creates an aggregator over store.
func NewAggregator(store kv.Store, log *slog.Logger) *Aggregator {
	return &Aggregator{store: store, log: log, now: time.Now}
}

// CompleteWorkout records w in the history list and clears the tracking keys
// of its exercises. Storage failures before the record is written leave the
// history unchanged, as does a stored history that does not parse. A cleanup failure is returned together with the
// already-persisted record.
func (a *Aggregator) CompleteWorkout(ctx context.Context, w Workout) (*HistoryRecord, error) {
	exercises := make([]ExerciseSnapshot, 0, len(w.Exercises))
	for _, ex := range w.Exercises {
		sets, err := a.snapshot(ctx, ex.ID)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, ExerciseSnapshot{ID: ex.ID, Name: ex.Name, Sets: sets})
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating record id: %w", err)
	}
	rec := HistoryRecord{
		ID:          "workout_" + id.String(),
		Date:        a.now().UTC().Format(dateLayout),
		DayName:     w.Day,
		Exercises:   exercises,
		TotalVolume: Volume(exercises),
	}

	history, err := readHistory(ctx, a.store)
	if err != nil {
		return nil, err
	}
	history = append(history, rec)
	raw, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encoding workout history: %w", err)
	}
	if err := a.store.Set(ctx, HistoryKey, string(raw)); err != nil {
		return nil, fmt.Errorf("saving workout history: %w", err)
	}

	a.log.Info("workout completed",
		"day", w.Day,
		"exercises", len(exercises),
		"sets", rec.SetCount(),
		"volume", rec.TotalVolume,
	)

	var errs []error
	for _, ex := range w.Exercises {
		if err := a.store.Remove(ctx, completedKey(ex.ID)); err != nil {
			errs = append(errs, err)
		}
		if err := a.store.Remove(ctx, dataKey(ex.ID)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return &rec, fmt.Errorf("clearing exercise state: %w", err)
	}
	return &rec, nil
}

// snapshot reads the persisted sets of an exercise; absent or unparseable
// data yields no sets.
func (a *Aggregator) snapshot(ctx context.Context, exerciseID string) ([]SetData, error) {
	raw, ok, err := a.store.Get(ctx, dataKey(exerciseID))
	if err != nil {
		return nil, fmt.Errorf("reading sets of %s: %w", exerciseID, err)
	}
	if !ok {
		return []SetData{}, nil
	}
	var sets []SetData
	if err := json.Unmarshal([]byte(raw), &sets); err != nil {
		a.log.Warn("exercise data is not valid JSON, ignoring", "exercise", exerciseID, "error", err)
		return []SetData{}, nil
	}
	if sets == nil {
		sets = []SetData{}
	}
	return sets, nil
}

// Volume is the sum of weight*reps over all sets, rounded half up to an
// integer. Values that do not start with a number count as 0.
func Volume(exercises []ExerciseSnapshot) int64 {
	var total float64
	for _, e := range exercises {
		for _, s := range e.Sets {
			total += parseNumber(s.Weight) * parseNumber(s.Reps)
		}
	}
	return int64(math.Floor(total + 0.5))
}

var numberPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// parseNumber reads the longest numeric prefix of s, so "80kg" is 80.
func parseNumber(s string) float64 {
	m := numberPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
