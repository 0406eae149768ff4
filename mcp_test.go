package onglet

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/onglet/internal/corpus"
)

var testMCPImpl = &mcp.Implementation{Name: "onglet-test", Version: "0.1.0"}

func mcpSession(t *testing.T, svc *Service) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	svc.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_RefreshAndSnapshot(t *testing.T) {
	svc := New(newFakeBrowser(), nil, Config{}, quietLogger())
	session := mcpSession(t, svc)

	text := mcpCallTool(t, session, "onglet_refresh", map[string]any{})
	var snap corpus.Snapshot
	if err := json.Unmarshal([]byte(text), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.Stats.Total != 2 || snap.Stats.Successful != 2 {
		t.Errorf("stats: %+v", snap.Stats)
	}

	text = mcpCallTool(t, session, "onglet_snapshot", map[string]any{})
	if err := json.Unmarshal([]byte(text), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(snap.Tabs) != 2 {
		t.Errorf("tabs: %d", len(snap.Tabs))
	}
}

func TestMCP_Ask(t *testing.T) {
	svc := New(newFakeBrowser(), openTestStore(t), Config{}, quietLogger())
	session := mcpSession(t, svc)

	mcpCallTool(t, session, "onglet_refresh", map[string]any{})

	text := mcpCallTool(t, session, "onglet_ask", map[string]any{
		"question": "what tabs are open",
	})
	var msg corpus.Message
	if err := json.Unmarshal([]byte(text), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Role != corpus.RoleAssistant || !strings.Contains(msg.Content, "tabs open") {
		t.Errorf("message: %+v", msg)
	}

	text = mcpCallTool(t, session, "onglet_messages", map[string]any{})
	var msgs []corpus.Message
	if err := json.Unmarshal([]byte(text), &msgs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("log entries: %d", len(msgs))
	}

	mcpCallTool(t, session, "onglet_messages", map[string]any{"clear": true})
	text = mcpCallTool(t, session, "onglet_messages", map[string]any{})
	msgs = nil
	json.Unmarshal([]byte(text), &msgs)
	if len(msgs) != 0 {
		t.Errorf("log after clear: %d", len(msgs))
	}
}

func TestMCP_AskRequiresQuestion(t *testing.T) {
	svc := New(newFakeBrowser(), nil, Config{}, quietLogger())
	session := mcpSession(t, svc)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "onglet_ask",
		Arguments: map[string]any{"question": ""},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if result.GetError() == nil {
		t.Error("empty question must produce a tool error")
	}
}

func TestMCP_Navigate(t *testing.T) {
	fb := newFakeBrowser()
	svc := New(fb, nil, Config{}, quietLogger())
	session := mcpSession(t, svc)

	text := mcpCallTool(t, session, "onglet_navigate", map[string]any{
		"url": "https://cook.test/pasta",
	})
	var out map[string]string
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["tab_id"] != "t2" {
		t.Errorf("tab_id: %v", out)
	}
	if len(fb.activated) != 1 {
		t.Errorf("activated: %v", fb.activated)
	}
}
