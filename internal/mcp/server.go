package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/claude/scanflow/internal/auth"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("scanflow", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithInstructions("scanflow coaching server. Read the user's profile, plans and recent logs, and record workout or nutrition feedback. Feedback can adapt the plans. All data is scoped to the authenticated user."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetProfile, Handler: h.getProfile},
		server.ServerTool{Tool: toolGetTrainingPlan, Handler: h.getTrainingPlan},
		server.ServerTool{Tool: toolGetNutritionPlan, Handler: h.getNutritionPlan},
		server.ServerTool{Tool: toolGetRecentLogs, Handler: h.getRecentLogs},
		server.ServerTool{Tool: toolLogWorkoutFeedback, Handler: h.logWorkoutFeedback},
		server.ServerTool{Tool: toolLogNutritionFeedback, Handler: h.logNutritionFeedback},
	)

	s.AddResources(
		server.ServerResource{Resource: resProfile, Handler: h.profile},
	)

	return s
}

// HTTPHandler serves s over streamable HTTP. The caller attached to the
// incoming request by the transport is carried into tool calls.
func HTTPHandler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s,
		server.WithStateLess(true),
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if c, ok := auth.CallerFromContext(r.Context()); ok {
				return auth.WithCaller(ctx, c)
			}
			return ctx
		}),
	)
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}
