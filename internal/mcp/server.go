package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/adreview/internal/analytics"
	"github.com/joescharf/adreview/internal/checklist"
	"github.com/joescharf/adreview/internal/feedback"
	"github.com/joescharf/adreview/internal/store"
)

// Server wraps the adreview history and exposes it as MCP tools.
type Server struct {
	store     store.Store
	analytics *analytics.Service
	version   string
}

// NewServer creates the MCP server wrapper.
func NewServer(s store.Store, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{
		store:     s,
		analytics: analytics.New(s),
		version:   version,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("adreview", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listHistoryTool())
	srv.AddTool(s.getReportTool())
	srv.AddTool(s.extractIssuesTool())
	srv.AddTool(s.analyticsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// adreview_list_history
func (s *Server) listHistoryTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("adreview_list_history",
		mcp.WithDescription("List saved compliance reviews, newest first. Returns id, title, score, rating, and AI issue count for each."),
		mcp.WithString("search", mcp.Description("Keyword matched against title, summary, and document")),
		mcp.WithNumber("min_score", mcp.Description("Minimum score (0-100)")),
		mcp.WithNumber("max_score", mcp.Description("Maximum score (0-100)")),
		mcp.WithNumber("days", mcp.Description("Only reviews from the last N days")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of reviews (default 20)")),
	)
	return tool, s.handleListHistory
}

func (s *Server) handleListHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.ReportListFilter{
		Search: request.GetString("search", ""),
		Limit:  request.GetInt("limit", 20),
	}
	args := request.GetArguments()
	if _, ok := args["min_score"]; ok {
		v := request.GetFloat("min_score", 0)
		filter.MinScore = &v
	}
	if _, ok := args["max_score"]; ok {
		v := request.GetFloat("max_score", 100)
		filter.MaxScore = &v
	}
	if days := request.GetInt("days", 0); days > 0 {
		filter.Since = time.Now().UTC().AddDate(0, 0, -days)
	}

	reports, err := s.store.ListReports(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list history: %v", err)), nil
	}

	type reportOut struct {
		ID           string    `json:"id"`
		Title        string    `json:"title"`
		Score        float64   `json:"score"`
		Rating       string    `json:"rating,omitempty"`
		AIIssueCount int       `json:"ai_issue_count"`
		Fallback     bool      `json:"fallback,omitempty"`
		User         string    `json:"user,omitempty"`
		CreatedAt    time.Time `json:"created_at"`
	}

	out := make([]reportOut, len(reports))
	for i, r := range reports {
		out[i] = reportOut{
			ID:           r.ID,
			Title:        r.Title,
			Score:        r.Score,
			AIIssueCount: checklist.CountIssues(r.RawOutput),
			Fallback:     r.Fallback,
			User:         r.UserEmail,
			CreatedAt:    r.CreatedAt,
		}
		if r.UserRating != nil {
			out[i].Rating = string(*r.UserRating)
		}
	}
	return jsonResult(out)
}

// adreview_get_report
func (s *Server) getReportTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("adreview_get_report",
		mcp.WithDescription("Get one saved review with its raw report, the extracted issue table, and the AI vs human issue count comparison."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Report ID")),
	)
	return tool, s.handleGetReport
}

func (s *Server) handleGetReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("report not found: %s", id)), nil
	}

	return jsonResult(map[string]any{
		"report":   r,
		"issues":   checklist.ExtractIssues(r.RawOutput),
		"accuracy": feedback.AccuracyOf(r),
	})
}

// adreview_extract_issues
func (s *Server) extractIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("adreview_extract_issues",
		mcp.WithDescription("Extract the issue table (| No. | 指摘箇所 | 指摘内容 |) from report markdown. Only the first such table is read."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Report markdown")),
	)
	return tool, s.handleExtractIssues
}

func (s *Server) handleExtractIssues(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: text"), nil
	}
	issues := checklist.ExtractIssues(text)
	return jsonResult(map[string]any{
		"count":  len(issues),
		"issues": issues,
	})
}

// adreview_analytics
func (s *Server) analyticsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("adreview_analytics",
		mcp.WithDescription("Usage and accuracy analytics over the review history."),
		mcp.WithString("type", mcp.Description("One of all, users, reports, logins, usage, accuracy (default all)")),
	)
	return tool, s.handleAnalytics
}

func (s *Server) handleAnalytics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := analytics.ParseKind(request.GetString("type", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := s.analytics.Get(ctx, kind)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to compute analytics: %v", err)), nil
	}
	return jsonResult(result)
}
