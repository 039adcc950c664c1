package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func RegisterGitBookPrompts(s *server.MCPServer) {
	prompt := mcp.NewPrompt("page_summary",
		mcp.WithPromptDescription("Summarize a GitBook page"),
		mcp.WithArgument("page_id", mcp.ArgumentDescription("The GitBook page to summarize"), mcp.RequiredArgument()),
		mcp.WithArgument("space_id", mcp.ArgumentDescription("The space holding the page")),
	)
	s.AddPrompt(prompt, pageSummaryHandler)
}

func pageSummaryHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	pageID := request.Params.Arguments["page_id"]
	if pageID == "" {
		return nil, fmt.Errorf("page_id argument is required")
	}

	instruction := fmt.Sprintf("Use gitbook_render_page with page_id %q and format markdown", pageID)
	if spaceID := request.Params.Arguments["space_id"]; spaceID != "" {
		instruction += fmt.Sprintf(" and space_id %q", spaceID)
	}
	instruction += ", then summarize the page in a few bullet points, keeping its heading structure."

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Summary of GitBook page %s", pageID),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: instruction,
				},
			},
		},
	}, nil
}
