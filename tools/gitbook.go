package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/tidwall/gjson"

	"github.com/athapong/gitbook2html/pkg/gitbook"
	"github.com/athapong/gitbook2html/pkg/pipeline"
	"github.com/athapong/gitbook2html/services"
	"github.com/athapong/gitbook2html/util"
)

// PageSource is the part of the GitBook client the tools need.
type PageSource interface {
	GetPageDocument(ctx context.Context, spaceID, pageID string) (gjson.Result, error)
	ListPages(ctx context.Context, spaceID string) ([]services.PageRef, error)
}

type gitbookTools struct {
	source       func() (PageSource, error)
	defaultSpace string
	loader       *gitbook.Loader
}

func defaultPageSource() (PageSource, error) {
	client, err := services.DefaultGitBookClient()
	if err != nil {
		return nil, err
	}
	return client, nil
}

// RegisterGitBookTool registers the GitBook rendering tools to the server
func RegisterGitBookTool(s *server.MCPServer, defaultSpace string) {
	t := &gitbookTools{
		source:       defaultPageSource,
		defaultSpace: defaultSpace,
		loader:       gitbook.NewLoader(),
	}

	renderTool := mcp.NewTool("gitbook_render_page",
		mcp.WithDescription("Render a GitBook page as HTML or Markdown"),
		mcp.WithString("page_id", mcp.Required(), mcp.Description("GitBook page ID")),
		mcp.WithString("space_id", mcp.Description("GitBook space ID (defaults to GITBOOK_SPACE)")),
		mcp.WithString("format", mcp.Description("Output format: html (default) or markdown"), mcp.Enum("html", "markdown")),
	)
	s.AddTool(renderTool, util.ErrorGuard(t.renderPageHandler))

	listTool := mcp.NewTool("gitbook_list_pages",
		mcp.WithDescription("List the pages of a GitBook space"),
		mcp.WithString("space_id", mcp.Description("GitBook space ID (defaults to GITBOOK_SPACE)")),
	)
	s.AddTool(listTool, util.ErrorGuard(t.listPagesHandler))

	compareTool := mcp.NewTool("gitbook_compare_pages",
		mcp.WithDescription("Compare the rendered content of two GitBook pages"),
		mcp.WithString("source_page_id", mcp.Required(), mcp.Description("Source page ID")),
		mcp.WithString("target_page_id", mcp.Required(), mcp.Description("Target page ID")),
		mcp.WithString("space_id", mcp.Description("GitBook space ID (defaults to GITBOOK_SPACE)")),
	)
	s.AddTool(compareTool, util.ErrorGuard(t.comparePagesHandler))
}

func (t *gitbookTools) spaceID(request mcp.CallToolRequest) (string, error) {
	space := request.GetString("space_id", t.defaultSpace)
	if space == "" {
		return "", fmt.Errorf("space_id argument is required when GITBOOK_SPACE is not set")
	}
	return space, nil
}

func (t *gitbookTools) renderPageHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pageID, err := request.RequireString("page_id")
	if err != nil {
		return nil, err
	}
	space, err := t.spaceID(request)
	if err != nil {
		return nil, err
	}

	format := request.GetString("format", "html")
	if format != "html" && format != "markdown" {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported format %q", format)), nil
	}

	output, err := t.renderPage(ctx, space, pageID, format)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(output), nil
}

func (t *gitbookTools) listPagesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	space, err := t.spaceID(request)
	if err != nil {
		return nil, err
	}

	source, err := t.source()
	if err != nil {
		return nil, err
	}

	pages, err := source.ListPages(ctx, space)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	if len(pages) == 0 {
		return mcp.NewToolResultText("No pages found"), nil
	}

	var result strings.Builder
	for _, page := range pages {
		result.WriteString(fmt.Sprintf("%s- %s (ID: %s, path: %s)\n",
			strings.Repeat("  ", page.Depth),
			page.Title,
			page.ID,
			page.Path,
		))
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (t *gitbookTools) comparePagesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceID, err := request.RequireString("source_page_id")
	if err != nil {
		return nil, err
	}
	targetID, err := request.RequireString("target_page_id")
	if err != nil {
		return nil, err
	}
	space, err := t.spaceID(request)
	if err != nil {
		return nil, err
	}

	source, err := t.renderPage(ctx, space, sourceID, "html")
	if err != nil {
		return nil, err
	}
	target, err := t.renderPage(ctx, space, targetID, "html")
	if err != nil {
		return nil, err
	}

	var comparison strings.Builder
	comparison.WriteString(fmt.Sprintf("Comparing pages: %s → %s\n\n", sourceID, targetID))
	comparison.WriteString("Content Changes:\n")
	comparison.WriteString("=================\n")
	if source == target {
		comparison.WriteString("(no changes)\n")
	} else {
		comparison.WriteString(performSemanticDiff(source, target))
	}

	return mcp.NewToolResultText(comparison.String()), nil
}

func (t *gitbookTools) renderPage(ctx context.Context, space, pageID, format string) (string, error) {
	source, err := t.source()
	if err != nil {
		return "", err
	}

	p := pipeline.NewPipeline(pipeline.WithLoader(t.loader))
	if format == "markdown" {
		p.AddProcessor(pipeline.NewMarkdownProcessor())
	}

	raw, err := source.GetPageDocument(ctx, space, pageID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page %s: %w", pageID, err)
	}

	doc := &pipeline.Document{ID: pageID, Raw: raw}
	if err := p.Process(ctx, doc); err != nil {
		return "", err
	}
	return doc.Output, nil
}

// performSemanticDiff renders a line-prefixed diff of two outputs
func performSemanticDiff(source, target string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(source, target, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var result strings.Builder
	for _, diff := range diffs {
		text := strings.TrimSuffix(diff.Text, "\n")
		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			result.WriteString("- " + strings.ReplaceAll(text, "\n", "\n- ") + "\n")
		case diffmatchpatch.DiffInsert:
			result.WriteString("+ " + strings.ReplaceAll(text, "\n", "\n+ ") + "\n")
		case diffmatchpatch.DiffEqual:
			result.WriteString("  " + strings.ReplaceAll(text, "\n", "\n  ") + "\n")
		}
	}

	return result.String()
}
