package tools

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/athapong/gitbook2html/util"
)

// ToolGroup is a set of tools that can be switched on through ENABLE_TOOLS.
type ToolGroup struct {
	Name        string
	Description string
}

// ToolGroups lists every group the server knows how to register.
var ToolGroups = []ToolGroup{
	{"tool_manager", "Tool management"},
	{"gitbook", "GitBook page rendering, listing and comparison"},
}

// EnabledTools parses ENABLE_TOOLS. An empty set means every group is enabled.
func EnabledTools() mapset.Set[string] {
	enabled := mapset.NewSet[string]()
	for _, name := range strings.Split(os.Getenv("ENABLE_TOOLS"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			enabled.Add(name)
		}
	}
	return enabled
}

// IsEnabled reports whether a tool group is enabled.
func IsEnabled(name string) bool {
	enabled := EnabledTools()
	return enabled.Cardinality() == 0 || enabled.Contains(name)
}

func RegisterToolManagerTool(s *server.MCPServer) {
	tool := mcp.NewTool("tool_manager",
		mcp.WithDescription("Manage MCP tools - list, enable or disable tool groups"),
		mcp.WithString("action", mcp.Required(), mcp.Description("Action to perform: list, enable, disable")),
		mcp.WithString("tool_name", mcp.Description("Tool group to enable/disable")),
	)

	s.AddTool(tool, util.ErrorGuard(toolManagerHandler))
}

func toolManagerHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	action, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError("action must be a string"), nil
	}

	enabled := EnabledTools()

	switch action {
	case "list":
		var response strings.Builder
		response.WriteString("Available tools:\n")
		for _, group := range ToolGroups {
			status := "disabled"
			if enabled.Cardinality() == 0 || enabled.Contains(group.Name) {
				status = "enabled"
			}
			response.WriteString(fmt.Sprintf("- %s (%s) [%s]\n", group.Name, group.Description, status))
		}
		response.WriteString("\nCurrently enabled tools:\n")
		if enabled.Cardinality() == 0 {
			response.WriteString("All tools are enabled (ENABLE_TOOLS is empty)\n")
		} else {
			names := enabled.ToSlice()
			slices.Sort(names)
			for _, name := range names {
				response.WriteString(fmt.Sprintf("- %s\n", name))
			}
		}
		return mcp.NewToolResultText(response.String()), nil

	case "enable", "disable":
		toolName := request.GetString("tool_name", "")
		if toolName == "" {
			return mcp.NewToolResultError("tool_name is required for enable/disable actions"), nil
		}

		if action == "enable" {
			enabled.Add(toolName)
		} else {
			enabled.Remove(toolName)
		}

		names := enabled.ToSlice()
		slices.Sort(names)
		os.Setenv("ENABLE_TOOLS", strings.Join(names, ","))

		return mcp.NewToolResultText(fmt.Sprintf("Successfully %sd tool: %s", action, toolName)), nil

	default:
		return mcp.NewToolResultError("Invalid action. Use 'list', 'enable', or 'disable'"), nil
	}
}
