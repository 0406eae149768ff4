package onglet

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers all onglet tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerRefreshTool(srv)
	s.registerSnapshotTool(srv)
	s.registerAskTool(srv)
	s.registerNavigateTool(srv)
	s.registerMessagesTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func toolResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}, nil
}

// --- refresh ---

func (s *Service) registerRefreshTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "onglet_refresh",
		Description: "Rebuild the tab corpus from every open tab and return the new snapshot.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	srv.AddTool(tool, func(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap, err := s.Refresh(ctx)
		if err != nil {
			return toolError(err)
		}
		return toolResult(snap)
	})
}

// --- snapshot ---

func (s *Service) registerSnapshotTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "onglet_snapshot",
		Description: "Return the last published tab snapshot without refreshing.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	srv.AddTool(tool, func(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snap := s.Snapshot()
		if snap == nil {
			return toolResult(map[string]any{"tabs": []any{}, "stats": Stats{}})
		}
		return toolResult(snap)
	})
}

// --- ask ---

type askReq struct {
	Question    string `json:"question"`
	KeywordOnly bool   `json:"keyword_only"`
}

func (s *Service) registerAskTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "onglet_ask",
		Description: "Answer a natural-language question about the open tabs, with citations.",
		InputSchema: inputSchema(map[string]any{
			"question":     map[string]any{"type": "string", "description": "Question about the open tabs"},
			"keyword_only": map[string]any{"type": "boolean", "description": "Skip the remote service and run the local keyword search"},
		}, []string{"question"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r askReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return toolError(err)
		}
		msg, err := s.Ask(ctx, r.Question, r.KeywordOnly)
		if err != nil {
			return toolError(err)
		}
		return toolResult(msg)
	})
}

// --- navigate ---

type navigateReq struct {
	URL   string `json:"url"`
	TabID string `json:"tab_id"`
}

func (s *Service) registerNavigateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "onglet_navigate",
		Description: "Focus the tab behind a citation: activate it if open, otherwise open the URL in a new tab.",
		InputSchema: inputSchema(map[string]any{
			"url":    map[string]any{"type": "string", "description": "Page URL to focus or open"},
			"tab_id": map[string]any{"type": "string", "description": "Tab ID from a citation"},
		}, nil),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r navigateReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return toolError(err)
		}
		id, err := s.Navigate(ctx, r.URL, r.TabID)
		if err != nil {
			return toolError(err)
		}
		return toolResult(map[string]string{"tab_id": id})
	})
}

// --- messages ---

type messagesReq struct {
	Clear bool `json:"clear"`
}

func (s *Service) registerMessagesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "onglet_messages",
		Description: "Return the conversation log, or clear it when clear=true.",
		InputSchema: inputSchema(map[string]any{
			"clear": map[string]any{"type": "boolean", "description": "Delete the log instead of listing it"},
		}, nil),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r messagesReq
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return toolError(err)
			}
		}
		if r.Clear {
			if err := s.ClearMessages(ctx); err != nil {
				return toolError(err)
			}
			return toolResult(map[string]string{"status": "cleared"})
		}
		msgs, err := s.Messages(ctx)
		if err != nil {
			return toolError(err)
		}
		return toolResult(msgs)
	})
}
