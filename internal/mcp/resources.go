package mcp

import (
	"context"
	"encoding/json"

	"github.com/claude/scanflow/internal/coach"
	"github.com/claude/scanflow/internal/document"
	"github.com/mark3labs/mcp-go/mcp"
)

var resProfile = mcp.NewResource(
	"scanflow://profile",
	"Profile",
	mcp.WithResourceDescription("The user's profile document with the log lists trimmed to their last five entries"),
	mcp.WithMIMEType("application/json"),
)

func (h *handlers) profile(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	doc, err := h.ds.Profile(ctx)
	if err != nil {
		return nil, err
	}

	summary := make(map[string]any, len(doc))
	for k, v := range doc {
		summary[k] = v
	}
	for _, field := range coach.LogKinds {
		if _, ok := summary[field]; ok {
			summary[field] = document.Tail(doc, field, defaultLogLimit)
		}
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
