package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Lim-seunghwan99/Interview-chatbot/internal/agent"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/apperr"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/ingest"
	"github.com/Lim-seunghwan99/Interview-chatbot/internal/persona"
)

func newTestMCPDeps(t *testing.T) MCPDeps {
	t.Helper()
	deps, _ := testDeps(t)
	return MCPDeps{Agent: deps.Agent, Analyzer: deps.Analyzer, Ingest: deps.Ingest, Store: deps.Store}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestNewMCPServer_Builds(t *testing.T) {
	if s := NewMCPServer(newTestMCPDeps(t)); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestMCPTool_Route(t *testing.T) {
	deps := newTestMCPDeps(t)
	result, err := mcpRoute(deps)(context.Background(), makeCallToolRequest("route", map[string]interface{}{
		"text": "soften this",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var env agent.Envelope
	if err := json.Unmarshal([]byte(toolText(t, result)), &env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if env.Capability != "refine_text" || env.Result != "refined: soften this" {
		t.Errorf("unexpected envelope: %+v", env)
	}

	list, _ := deps.Store.ListInteractions(context.Background(), 10, 0)
	if len(list) != 1 || list[0].InputType != "mcp" {
		t.Errorf("expected one mcp interaction, got %+v", list)
	}
}

func TestMCPTool_RouteMissingText(t *testing.T) {
	result, _ := mcpRoute(newTestMCPDeps(t))(context.Background(), makeCallToolRequest("route", map[string]interface{}{}))
	if !result.IsError {
		t.Fatal("expected tool error")
	}
}

func TestMCPTool_RouteFailedEnvelopeIsError(t *testing.T) {
	result, _ := mcpRoute(newTestMCPDeps(t))(context.Background(), makeCallToolRequest("route", map[string]interface{}{
		"text": "  ",
	}))
	if !result.IsError {
		t.Fatal("expected tool error for empty input envelope")
	}
	if !strings.Contains(toolText(t, result), string(apperr.EmptyInput)) {
		t.Errorf("text = %s", toolText(t, result))
	}
}

func TestMCPTool_AnalyzePersona(t *testing.T) {
	deps := newTestMCPDeps(t)
	result, _ := mcpAnalyze(deps)(context.Background(), makeCallToolRequest("analyze_persona", map[string]interface{}{
		"chatroom_id": "room-1",
	}))
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	var p persona.Profile
	json.Unmarshal([]byte(toolText(t, result)), &p)
	if p.Persona != "The Bee Throwing a Cheerful Festival" {
		t.Errorf("persona = %q", p.Persona)
	}

	deps.Analyzer = &fakeAnalyzer{err: apperr.New(apperr.NoHistory, "room-2")}
	result, _ = mcpAnalyze(deps)(context.Background(), makeCallToolRequest("analyze_persona", map[string]interface{}{
		"chatroom_id": "room-2",
	}))
	if !result.IsError {
		t.Fatal("expected tool error for missing history")
	}
}

func TestMCPTool_SubmitChat(t *testing.T) {
	deps := newTestMCPDeps(t)
	result, _ := mcpSubmit(deps)(context.Background(), makeCallToolRequest("submit_chat", map[string]interface{}{
		"chatroom_id": "room-9",
		"content":     "B: let's throw a party",
	}))
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if got := deps.Ingest.(*fakeIngest).got["room-9"]; got != "B: let's throw a party" {
		t.Errorf("submitted = %q", got)
	}

	deps.Ingest = &fakeIngest{err: ingest.ErrClosed}
	result, _ = mcpSubmit(deps)(context.Background(), makeCallToolRequest("submit_chat", map[string]interface{}{
		"chatroom_id": "room-9",
		"content":     "x",
	}))
	if !result.IsError {
		t.Fatal("expected tool error after close")
	}
}

func TestMCPResource_Recent(t *testing.T) {
	deps := newTestMCPDeps(t)
	mcpRoute(deps)(context.Background(), makeCallToolRequest("route", map[string]interface{}{"text": strings.Repeat("x", 300)}))

	contents, err := mcpResourceRecent(deps)(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "chatbot://recent"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	var summaries []map[string]string
	json.Unmarshal([]byte(tc.Text), &summaries)
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}
	if n := len([]rune(summaries[0]["text"])); n != 203 {
		t.Errorf("truncated length = %d, want 203", n)
	}
}
