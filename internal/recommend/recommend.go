// Package recommend produces coaching replies from a text-generation model and
// applies the structured plan updates the model requests.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/claude/scanflow/internal/coach"
	"github.com/claude/scanflow/internal/document"
)

// Prompt is one generation request.
type Prompt struct {
	System string
	User   string
}

// Reply is either a TextReply or an UpdateRequest.
type Reply interface {
	isReply()
}

// TextReply is a free-text answer.
type TextReply struct {
	Text string
}

// UpdateRequest asks for plan changes. Nil or empty fields are not changed.
// Justification is required.
type UpdateRequest struct {
	Text          string
	TrainingFocus *string
	DailyCalories *float64
	Goals         []string
	Justification string
}

func (TextReply) isReply()     {}
func (UpdateRequest) isReply() {}

// Generator calls a text-generation model.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (Reply, error)
}

// RecentLogLimit bounds each log list embedded in the prompt.
const RecentLogLimit = 3

const systemPrompt = `You are a personal fitness and nutrition coach.
You receive a JSON summary of the user's profile, digital twin, training plan, nutrition plan and most recent logs, followed by their message.
Answer in plain, encouraging language.
If the user's situation calls for changing their training focus, daily calorie target or goals, call the update_user_plan function with only the fields that should change and a justification the user can read.`

// BuildPrompt embeds a bounded summary of doc and the user's message.
func BuildPrompt(doc document.Doc, message string) (Prompt, error) {
	summary := make(map[string]any, len(doc))
	for k, v := range doc {
		summary[k] = v
	}
	for _, field := range []string{coach.WorkoutLogs, coach.NutritionLogs, coach.AIInteractionHistory} {
		if _, ok := summary[field]; ok {
			summary[field] = document.Tail(doc, field, RecentLogLimit)
		}
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return Prompt{}, fmt.Errorf("encoding user summary: %w", err)
	}

	var b strings.Builder
	b.WriteString("User data:\n")
	b.Write(data)
	b.WriteString("\n\nUser message:\n")
	b.WriteString(message)
	return Prompt{System: systemPrompt, User: b.String()}, nil
}
