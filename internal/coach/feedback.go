package coach

import (
	"context"
	"strconv"
	"strings"

	"github.com/claude/scanflow/internal/apperr"
	"github.com/claude/scanflow/internal/document"
)

// HighPainRating is the workout rating at which the plan switches to recovery.
const HighPainRating = 5

// OffPlanCalorieDelta is applied to the daily calories after an off-plan meal.
const OffPlanCalorieDelta = -200

// FeedbackResult is the reply of the feedback handlers.
type FeedbackResult struct {
	Status      string `json:"status"`
	PlanUpdated bool   `json:"planUpdated"`
	Message     string `json:"message,omitempty"`
}

// LogWorkoutFeedback appends the payload to the workout log. A rating of
// HighPainRating or more switches the training plan to recovery. A failed
// cascade is returned as an error; the log entry stays.
func (s *Service) LogWorkoutFeedback(ctx context.Context, payload map[string]any) (*FeedbackResult, error) {
	uid, err := CallerUID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.docs.Update(ctx, uid, document.Append(WorkoutLogs, logEntry(payload))); err != nil {
		return nil, StoreError(err, "logging workout feedback")
	}

	rating, _ := number(payload["rating"])
	if rating < HighPainRating {
		return &FeedbackResult{Status: "logged"}, nil
	}

	s.log.Info("high pain reported, adjusting training plan", "uid", uid, "rating", rating)
	if err := s.docs.Update(ctx, uid,
		document.Set("trainingPlan.cycleFocus", FocusRecovery),
		document.Set("trainingPlan.schedule.0.type", RecoveryDayType),
	); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "adapting training plan")
	}
	return &FeedbackResult{Status: "logged", PlanUpdated: true, Message: "Plan adapted for recovery."}, nil
}

// LogNutritionFeedback appends the payload to the nutrition log. An off-plan
// meal lowers the daily calorie target with an atomic increment.
func (s *Service) LogNutritionFeedback(ctx context.Context, payload map[string]any) (*FeedbackResult, error) {
	uid, err := CallerUID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.docs.Update(ctx, uid, document.Append(NutritionLogs, logEntry(payload))); err != nil {
		return nil, StoreError(err, "logging nutrition feedback")
	}

	if !truthy(payload["ateOffPlan"]) {
		return &FeedbackResult{Status: "logged"}, nil
	}

	if err := s.docs.Update(ctx, uid,
		document.Increment("nutritionPlan.dailyCalories", OffPlanCalorieDelta),
	); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "adjusting calories")
	}
	return &FeedbackResult{Status: "logged", PlanUpdated: true, Message: "Calories adjusted for tomorrow."}, nil
}

// logEntry copies payload and stamps it with the server time.
func logEntry(payload map[string]any) map[string]any {
	entry := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		entry[k] = v
	}
	entry["timestamp"] = document.ServerTimestamp
	return entry
}

// number accepts JSON numbers and numeric strings.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}
