package mcp

import (
	"context"

	"github.com/claude/scanflow/internal/client"
	"github.com/claude/scanflow/internal/coach"
	"github.com/claude/scanflow/internal/document"
)

// DataSource abstracts the coaching layer for MCP tools. Both *coach.Service
// (in-process, caller from the request context) and *client.Client (remote
// via the REST API, caller from its token) satisfy this interface.
type DataSource interface {
	Profile(ctx context.Context) (document.Doc, error)
	RecentLogs(ctx context.Context, kind string, n int) ([]any, error)
	LogWorkoutFeedback(ctx context.Context, payload map[string]any) (*coach.FeedbackResult, error)
	LogNutritionFeedback(ctx context.Context, payload map[string]any) (*coach.FeedbackResult, error)
}

var (
	_ DataSource = (*coach.Service)(nil)
	_ DataSource = (*client.Client)(nil)
)
