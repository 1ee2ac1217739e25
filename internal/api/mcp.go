package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPDeps holds dependencies for the MCP server. Store is optional; without
// it the recent-interactions resource is not registered.
type MCPDeps struct {
	Agent    Router
	Analyzer Analyzer
	Ingest   Ingester
	Store    InteractionStore
}

// NewMCPServer exposes routing, persona analysis and chat ingestion as MCP tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"interview-chatbot",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("Interview practice assistant: routes requests to coaching skills and analyzes chat personas."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("route",
			mcp.WithDescription("Route a free-form request to the best matching skill and return the result envelope as JSON."),
			mcp.WithString("text", mcp.Description("The user's request"), mcp.Required()),
		),
		mcpRoute(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_persona",
			mcp.WithDescription("Classify the persona of a speaker from a stored chatroom transcript."),
			mcp.WithString("chatroom_id", mcp.Description("Chatroom whose transcript to analyze"), mcp.Required()),
		),
		mcpAnalyze(deps),
	)

	s.AddTool(
		mcp.NewTool("submit_chat",
			mcp.WithDescription("Queue a chatroom transcript for indexing. Later submissions replace earlier ones."),
			mcp.WithString("chatroom_id", mcp.Description("Chatroom identifier"), mcp.Required()),
			mcp.WithString("content", mcp.Description("Full transcript text"), mcp.Required()),
		),
		mcpSubmit(deps),
	)

	if deps.Store != nil {
		s.AddResource(
			mcp.NewResource(
				"chatbot://recent",
				"Recent Interactions",
				mcp.WithResourceDescription("Last 10 routed requests"),
				mcp.WithMIMEType("application/json"),
			),
			mcpResourceRecent(deps),
		)
	}

	return s
}

func mcpRoute(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		env := route(ctx, Deps{Agent: deps.Agent, Store: deps.Store}, "mcp", text)
		b, err := json.Marshal(env)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal envelope: %v", err)), nil
		}
		if !env.OK() {
			return mcpError(string(b)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAnalyze(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("chatroom_id")
		if err != nil {
			return mcpError("chatroom_id is required"), nil
		}

		profile, err := deps.Analyzer.Analyze(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}
		b, err := json.Marshal(profile)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal profile: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSubmit(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("chatroom_id")
		if err != nil {
			return mcpError("chatroom_id is required"), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}

		if err := deps.Ingest.Submit(id, content); err != nil {
			return mcpError(fmt.Sprintf("failed to queue chatroom %s: %v", id, err)), nil
		}
		return mcpText(fmt.Sprintf("Queued chatroom %s for indexing", id)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		interactions, err := deps.Store.ListInteractions(ctx, 10, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent interactions: %w", err)
		}

		type interactionSummary struct {
			ID         string `json:"id"`
			CreatedAt  string `json:"created_at"`
			Text       string `json:"text"`
			Capability string `json:"capability,omitempty"`
			ErrorKind  string `json:"error_kind,omitempty"`
		}

		summaries := make([]interactionSummary, len(interactions))
		for i, ix := range interactions {
			text := ix.UserText
			if utf8.RuneCountInString(text) > 200 {
				runes := []rune(text)
				text = string(runes[:200]) + "..."
			}
			summaries[i] = interactionSummary{
				ID:         ix.ID,
				CreatedAt:  ix.CreatedAt.Format(time.RFC3339),
				Text:       text,
				Capability: ix.Capability,
				ErrorKind:  ix.ErrorKind,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal interactions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
