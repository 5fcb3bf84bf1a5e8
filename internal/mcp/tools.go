package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/scanflow/internal/apperr"
	"github.com/mark3labs/mcp-go/mcp"
)

const defaultLogLimit = 5

// --- Tool definitions ---

var toolGetProfile = mcp.NewTool("get_profile",
	mcp.WithDescription("Return the user's full profile document: onboarding details, goals, digital twin, plans and logs."),
)

var toolGetTrainingPlan = mcp.NewTool("get_training_plan",
	mcp.WithDescription("Return the user's current training plan (cycle focus and weekly schedule)."),
)

var toolGetNutritionPlan = mcp.NewTool("get_nutrition_plan",
	mcp.WithDescription("Return the user's current nutrition plan (daily calories, macros, diet type, meal suggestions)."),
)

var toolGetRecentLogs = mcp.NewTool("get_recent_logs",
	mcp.WithDescription("Return the most recent entries of one of the user's logs, oldest first."),
	mcp.WithString("kind", mcp.Required(), mcp.Description("Which log to read"), mcp.Enum("workout", "nutrition", "ai")),
	mcp.WithNumber("limit", mcp.Description("Maximum number of entries. Defaults to 5.")),
)

var toolLogWorkoutFeedback = mcp.NewTool("log_workout_feedback",
	mcp.WithDescription("Record post-workout feedback. A pain rating of 5 or more switches the training plan to a deload cycle."),
	mcp.WithNumber("rating", mcp.Required(), mcp.Description("Pain or difficulty rating, 1-10")),
	mcp.WithString("notes", mcp.Description("Free-text notes")),
	mcp.WithString("workout", mcp.Description("Name or id of the workout")),
)

var toolLogNutritionFeedback = mcp.NewTool("log_nutrition_feedback",
	mcp.WithDescription("Record a meal. Eating off plan lowers tomorrow's calorie target by 200 kcal."),
	mcp.WithBoolean("ate_off_plan", mcp.Description("Whether the meal was off plan")),
	mcp.WithString("meal", mcp.Description("What was eaten")),
	mcp.WithNumber("calories", mcp.Description("Estimated calories")),
)

// --- Tool handlers ---

func (h *handlers) getProfile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := h.ds.Profile(ctx)
	if err != nil {
		return h.toolError("get_profile", err), nil
	}
	return jsonResult(doc), nil
}

func (h *handlers) getTrainingPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := h.ds.Profile(ctx)
	if err != nil {
		return h.toolError("get_training_plan", err), nil
	}
	return jsonResult(doc["trainingPlan"]), nil
}

func (h *handlers) getNutritionPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := h.ds.Profile(ctx)
	if err != nil {
		return h.toolError("get_nutrition_plan", err), nil
	}
	return jsonResult(doc["nutritionPlan"]), nil
}

func (h *handlers) getRecentLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError("kind parameter is required"), nil
	}
	limit := int(req.GetFloat("limit", defaultLogLimit))

	logs, err := h.ds.RecentLogs(ctx, kind, limit)
	if err != nil {
		return h.toolError("get_recent_logs", err), nil
	}
	return jsonResult(logs), nil
}

func (h *handlers) logWorkoutFeedback(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rating, err := req.RequireFloat("rating")
	if err != nil {
		return mcp.NewToolResultError("rating parameter is required"), nil
	}
	payload := map[string]any{"rating": rating}
	if v := req.GetString("notes", ""); v != "" {
		payload["notes"] = v
	}
	if v := req.GetString("workout", ""); v != "" {
		payload["workout"] = v
	}

	res, err := h.ds.LogWorkoutFeedback(ctx, payload)
	if err != nil {
		return h.toolError("log_workout_feedback", err), nil
	}
	return jsonResult(res), nil
}

func (h *handlers) logNutritionFeedback(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload := map[string]any{"ateOffPlan": req.GetBool("ate_off_plan", false)}
	if v := req.GetString("meal", ""); v != "" {
		payload["meal"] = v
	}
	if v := req.GetFloat("calories", 0); v > 0 {
		payload["calories"] = v
	}

	res, err := h.ds.LogNutritionFeedback(ctx, payload)
	if err != nil {
		return h.toolError("log_nutrition_feedback", err), nil
	}
	return jsonResult(res), nil
}

func (h *handlers) toolError(tool string, err error) *mcp.CallToolResult {
	if apperr.CodeOf(err) == apperr.Internal {
		h.log.Error("mcp "+tool, "error", err)
	}
	return mcp.NewToolResultError(apperr.MessageOf(err))
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed")
	}
	return mcp.NewToolResultText(string(data))
}
