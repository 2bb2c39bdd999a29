package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dataconfessional/confessional/internal/engine"
)

// MCPDeps holds dependencies for the MCP server. History is optional.
type MCPDeps struct {
	Engine  Engine
	History History
	Version string
}

// NewMCPServer creates an MCP server exposing the engine operations as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"confessional",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("Data Confessional: answer questions about data and draft reports with a local model."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("engine_health",
			mcp.WithDescription("Report whether the local inference server is reachable and which models of the active pack are missing."),
		),
		mcpHealth(deps),
	)

	s.AddTool(
		mcp.NewTool("engine_list_packs",
			mcp.WithDescription("List the configured model packs and which one is active."),
		),
		mcpListPacks(deps),
	)

	s.AddTool(
		mcp.NewTool("engine_install_pack",
			mcp.WithDescription("Pull every model of a pack and make it the active pack."),
			mcp.WithString("pack_id", mcp.Description("Pack identifier, e.g. analyst_fast"), mcp.Required()),
		),
		mcpInstallPack(deps),
	)

	s.AddTool(
		mcp.NewTool("engine_chat",
			mcp.WithDescription("Answer a question about a project's data summary with CONFESSION / EVIDENCE / CAVEATS sections."),
			mcp.WithString("question", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithString("context_summary", mcp.Description("Plain-text summary of the project data")),
			mcp.WithString("project_name", mcp.Description("Project name"), mcp.Required()),
			mcp.WithString("audience", mcp.Description("Intended audience"), mcp.Enum("self", "team", "exec")),
			mcp.WithString("role", mcp.Description("Answer style"), mcp.Enum(engine.RoleAnalysis, engine.RoleGossip)),
		),
		mcpChat(deps),
	)

	s.AddTool(
		mcp.NewTool("engine_generate_report",
			mcp.WithDescription("Draft a markdown report from a data summary."),
			mcp.WithString("template_type", mcp.Description("Report template, e.g. monthly review"), mcp.Required()),
			mcp.WithString("audience", mcp.Description("Intended audience"), mcp.Required(), mcp.Enum("self", "team", "exec")),
			mcp.WithString("data_summary", mcp.Description("Plain-text summary of the project data"), mcp.Required()),
		),
		mcpGenerateReport(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"history://recent",
			"Recent Interactions",
			mcp.WithResourceDescription("Last 10 chats and reports (previews only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpHealth(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		h, err := deps.Engine.ComputeHealth(ctx)
		if err != nil {
			return mcpEngineError(err), nil
		}
		return mcpJSON(h)
	}
}

func mcpListPacks(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		packs, err := deps.Engine.Packs()
		if err != nil {
			return mcpEngineError(err), nil
		}
		return mcpJSON(packs)
	}
}

func mcpInstallPack(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		packID, err := req.RequireString("pack_id")
		if err != nil {
			return mcpError("pack_id is required"), nil
		}
		h, err := deps.Engine.Install(ctx, packID)
		if err != nil {
			return mcpEngineError(err), nil
		}
		return mcpJSON(h)
	}
}

func mcpChat(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		chatReq := engine.ChatRequest{
			Role:           req.GetString("role", engine.RoleAnalysis),
			Question:       req.GetString("question", ""),
			ContextSummary: req.GetString("context_summary", ""),
			ProjectMeta: engine.ProjectMeta{
				Name:     req.GetString("project_name", ""),
				Audience: req.GetString("audience", "self"),
			},
		}
		if err := validateRequest(chatReq); err != nil {
			return mcpError(err.Error()), nil
		}

		answer, err := deps.Engine.Chat(ctx, chatReq, nil)
		if err != nil {
			return mcpEngineError(err), nil
		}
		return mcpText(answer), nil
	}
}

func mcpGenerateReport(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reportReq := engine.ReportRequest{
			TemplateType: req.GetString("template_type", ""),
			Audience:     req.GetString("audience", ""),
			DataSummary:  req.GetString("data_summary", ""),
		}
		if err := validateRequest(reportReq); err != nil {
			return mcpError(err.Error()), nil
		}

		resp, err := deps.Engine.GenerateReport(ctx, reportReq)
		if err != nil {
			return mcpEngineError(err), nil
		}
		return mcpText(resp.Markdown), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		if deps.History == nil {
			return nil, fmt.Errorf("history not configured")
		}
		items, err := deps.History.RecentInteractions("", 10, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent interactions: %w", err)
		}

		type preview struct {
			ID        string `json:"id"`
			Kind      string `json:"kind"`
			CreatedAt string `json:"created_at"`
			Model     string `json:"model"`
			Status    string `json:"status"`
			Prompt    string `json:"prompt"`
		}

		previews := make([]preview, len(items))
		for i, it := range items {
			previews[i] = preview{
				ID:        it.ID,
				Kind:      it.Kind,
				CreatedAt: it.CreatedAt.Format(time.RFC3339),
				Model:     it.Model,
				Status:    it.Status,
				Prompt:    truncateRunes(it.Prompt, 200),
			}
		}

		b, err := json.Marshal(previews)
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

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

// mcpEngineError reports the user-facing advice followed by the raw error.
func mcpEngineError(err error) *mcp.CallToolResult {
	a := engine.Advise(err)
	msg := fmt.Sprintf("%s\n\n[%s] %v", a.UserMessage, a.Code, err)
	if a.Recovery != "" {
		msg += "\nSuggested action: " + a.Recovery
	}
	return mcpError(msg)
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
