package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/claude/scanflow/internal/kv"
)

// dateLayout is ISO 8601 with milliseconds, as written by the device.
const dateLayout = "2006-01-02T15:04:05.000Z07:00"

// ExerciseSnapshot is an exercise as recorded in a completed workout.
type ExerciseSnapshot struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Sets []SetData `json:"sets"`
}

// HistoryRecord is one completed workout. Records are never modified.
type HistoryRecord struct {
	ID          string             `json:"id"`
	Date        string             `json:"date"`
	DayName     string             `json:"dayName"`
	Exercises   []ExerciseSnapshot `json:"exercises"`
	TotalVolume int64              `json:"totalVolume"`
}

// ExerciseCount returns the number of exercises in the record.
func (r HistoryRecord) ExerciseCount() int { return len(r.Exercises) }

// SetCount returns the total number of sets across all exercises.
func (r HistoryRecord) SetCount() int {
	n := 0
	for _, e := range r.Exercises {
		n += len(e.Sets)
	}
	return n
}

// Time returns the parsed record date, or the zero time if it does not parse.
func (r HistoryRecord) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, r.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// History reads the persisted workout list.
type History struct {
	store kv.Store
	log   *slog.Logger
}

// NewHistory creates a history reader over store.
func NewHistory(store kv.Store, log *slog.Logger) *History {
	return &History{store: store, log: log}
}

// Load returns all records, most recent first. Records with equal dates keep
// their stored order. A missing or unparseable list yields no records; only
// storage errors are returned.
func (h *History) Load(ctx context.Context) ([]HistoryRecord, error) {
	records, err := readHistory(ctx, h.store)
	if errors.Is(err, errHistoryCorrupt) {
		h.log.Warn("workout history is not valid JSON, treating as empty", "error", err)
		return []HistoryRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Time().After(records[j].Time())
	})
	return records, nil
}

var errHistoryCorrupt = errors.New("workout history is corrupt")

// readHistory decodes the stored list. A list that does not parse is
// reported as errHistoryCorrupt so writers never replace it.
func readHistory(ctx context.Context, store kv.Store) ([]HistoryRecord, error) {
	raw, ok, err := store.Get(ctx, HistoryKey)
	if err != nil {
		return nil, fmt.Errorf("reading workout history: %w", err)
	}
	if !ok || raw == "" {
		return []HistoryRecord{}, nil
	}

	var records []HistoryRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", errHistoryCorrupt, err)
	}
	if records == nil {
		records = []HistoryRecord{}
	}
	return records, nil
}
