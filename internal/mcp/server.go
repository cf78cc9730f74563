// Package mcp exposes Lens API search, comparison, and browse operations
// as MCP tools over stdio, so LLM hosts can query the podcast corpus.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/podlens/podlens/internal/api"
)

// Lens is the slice of the API the MCP tools consume.
type Lens interface {
	SearchWithAnswer(ctx context.Context, query string, limit int) (*api.SearchResponse, error)
	Compare(ctx context.Context, guest1, guest2, topic string, limit int) (*api.CompareResponse, error)
	Guests(ctx context.Context) ([]api.Guest, error)
	EpisodeGuides(ctx context.Context, sortBy string, limit int) ([]api.Guide, error)
	TrendingQuestions(ctx context.Context, days, limit int) ([]api.TrendingItem, error)
}

// NewServer creates an MCP server with all podlens tools registered.
func NewServer(lens Lens) *server.MCPServer {
	s := server.NewMCPServer(
		"podlens",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("podlens — conversational search over podcast transcripts with cited sources."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_episodes",
			mcp.WithDescription("Ask a question across all indexed podcast episodes and get a synthesized, cited answer."),
			mcp.WithString("query", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of sources (default 5)")),
		),
		toolSearch(lens),
	)

	s.AddTool(
		mcp.NewTool("compare_guests",
			mcp.WithDescription("Contrast two guests' perspectives on a topic."),
			mcp.WithString("guest1", mcp.Description("First guest name"), mcp.Required()),
			mcp.WithString("guest2", mcp.Description("Second guest name"), mcp.Required()),
			mcp.WithString("topic", mcp.Description("Topic to compare on"), mcp.Required()),
		),
		toolCompare(lens),
	)

	s.AddTool(
		mcp.NewTool("list_guests",
			mcp.WithDescription("List every guest with indexed content."),
		),
		toolGuests(lens),
	)

	s.AddTool(
		mcp.NewTool("episode_guides",
			mcp.WithDescription("List precomputed action guides for episodes."),
			mcp.WithString("sort_by", mcp.Description("Sort order: views or actions (default views)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of guides (default 10)")),
		),
		toolGuides(lens),
	)

	s.AddTool(
		mcp.NewTool("trending_questions",
			mcp.WithDescription("List the most common recent search queries."),
			mcp.WithNumber("days", mcp.Description("Lookback window in days (default 7)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries (default 10)")),
		),
		toolTrending(lens),
	)

	return s
}

func toolSearch(lens Lens) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		limit := req.GetInt("limit", api.DefaultLimit)

		resp, err := lens.SearchWithAnswer(ctx, query, limit)
		if err != nil {
			return mcpError(api.UserMessage(err)), nil
		}

		out := struct {
			Answer  string       `json:"answer"`
			Sources []api.Source `json:"sources"`
		}{resp.Answer, resp.Sources}
		return mcpJSON(out)
	}
}

func toolCompare(lens Lens) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		guest1, err := req.RequireString("guest1")
		if err != nil {
			return mcpError("guest1 is required"), nil
		}
		guest2, err := req.RequireString("guest2")
		if err != nil {
			return mcpError("guest2 is required"), nil
		}
		topic, err := req.RequireString("topic")
		if err != nil {
			return mcpError("topic is required"), nil
		}

		resp, err := lens.Compare(ctx, guest1, guest2, topic, 3)
		if err != nil {
			return mcpError(api.UserMessage(err)), nil
		}
		return mcpJSON(resp)
	}
}

func toolGuests(lens Lens) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		guests, err := lens.Guests(ctx)
		if err != nil {
			return mcpError(api.UserMessage(err)), nil
		}
		return mcpJSON(guests)
	}
}

func toolGuides(lens Lens) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sortBy := req.GetString("sort_by", "views")
		limit := req.GetInt("limit", 10)

		guides, err := lens.EpisodeGuides(ctx, sortBy, limit)
		if err != nil {
			return mcpError(api.UserMessage(err)), nil
		}
		return mcpJSON(guides)
	}
}

func toolTrending(lens Lens) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		days := req.GetInt("days", 7)
		limit := req.GetInt("limit", 10)

		items, err := lens.TrendingQuestions(ctx, days, limit)
		if err != nil {
			return mcpError(api.UserMessage(err)), nil
		}
		return mcpJSON(items)
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("marshalling result: %v", err)), nil
	}
	return mcpText(string(b)), nil
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
