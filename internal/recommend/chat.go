package recommend

import (
	"context"
	"log/slog"
	"strings"

	"github.com/claude/scanflow/internal/apperr"
	"github.com/claude/scanflow/internal/coach"
	"github.com/claude/scanflow/internal/document"
	"github.com/google/uuid"
)

// Document paths written by an UpdateRequest.
const (
	PathTrainingFocus = "trainingPlan.cycleFocus"
	PathDailyCalories = "nutritionPlan.dailyCalories"
	PathGoals         = "goals"
)

// Service answers chat messages against the caller's document.
type Service struct {
	docs document.Store
	gen  Generator
	log  *slog.Logger
}

// NewService creates a chat service. gen may be nil, in which case Chat
// fails with an internal error.
func NewService(docs document.Store, gen Generator, log *slog.Logger) *Service {
	return &Service{docs: docs, gen: gen, log: log}
}

// ChatResult is the reply of Chat.
type ChatResult struct {
	Response       string         `json:"response"`
	UpdatesApplied map[string]any `json:"updatesApplied"`
	Justification  string         `json:"justification,omitempty"`
}

// Chat sends message with a summary of the caller's document to the model and
// applies any requested update. The updates and the interaction record are
// written in one document update; on any failure neither is stored.
func (s *Service) Chat(ctx context.Context, message string) (*ChatResult, error) {
	uid, err := coach.CallerUID(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(message) == "" {
		return nil, apperr.New(apperr.InvalidArgument, "message must be a non-empty string")
	}
	if s.gen == nil {
		return nil, apperr.New(apperr.Internal, "recommendations are not configured")
	}

	doc, err := s.docs.Get(ctx, uid)
	if err != nil {
		return nil, coach.StoreError(err, "loading profile")
	}

	prompt, err := BuildPrompt(doc, message)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "building prompt")
	}
	reply, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "generating recommendation")
	}

	var (
		updates []document.Update
		applied map[string]any
		result  ChatResult
	)
	switch r := reply.(type) {
	case TextReply:
		result.Response = r.Text
	case UpdateRequest:
		if strings.TrimSpace(r.Justification) == "" {
			return nil, apperr.New(apperr.Internal, "model requested an update without a justification")
		}
		updates, applied = planUpdates(r)
		result.Response = r.Text
		if result.Response == "" {
			result.Response = r.Justification
		}
		result.Justification = r.Justification
	default:
		return nil, apperr.New(apperr.Internal, "unsupported reply type %T", reply)
	}
	result.UpdatesApplied = applied

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "generating interaction id")
	}
	var justification any
	if result.Justification != "" {
		justification = result.Justification
	}
	var appliedValue any
	if applied != nil {
		appliedValue = applied
	}
	record := map[string]any{
		"id":             "ai_" + id.String(),
		"timestamp":      document.ServerTimestamp,
		"input":          message,
		"output":         result.Response,
		"updatesApplied": appliedValue,
		"justification":  justification,
	}
	updates = append(updates, document.Append(coach.AIInteractionHistory, record))

	if err := s.docs.Update(ctx, uid, updates...); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "applying recommendation")
	}

	if applied != nil {
		s.log.Info("recommendation applied", "uid", uid, "fields", len(applied))
	}
	return &result, nil
}

// planUpdates maps the recognised fields of r to document updates. applied is
// nil when r changes nothing.
func planUpdates(r UpdateRequest) ([]document.Update, map[string]any) {
	var (
		updates []document.Update
		applied = map[string]any{}
	)
	if r.TrainingFocus != nil && *r.TrainingFocus != "" {
		updates = append(updates, document.Set(PathTrainingFocus, *r.TrainingFocus))
		applied[PathTrainingFocus] = *r.TrainingFocus
	}
	if r.DailyCalories != nil {
		updates = append(updates, document.Set(PathDailyCalories, *r.DailyCalories))
		applied[PathDailyCalories] = *r.DailyCalories
	}
	if r.Goals != nil {
		goals := make([]any, len(r.Goals))
		for i, g := range r.Goals {
			goals[i] = g
		}
		updates = append(updates, document.Set(PathGoals, goals))
		applied[PathGoals] = goals
	}
	if len(applied) == 0 {
		return nil, nil
	}
	return updates, applied
}
