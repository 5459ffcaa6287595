package tools

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/athapong/bim-synthesis/util"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Toolset is a group of tools enabled together.
type Toolset struct {
	Name string
	Desc string
}

// Toolsets that ENABLE_TOOLS can name.
var Toolsets = []Toolset{
	{"tool_manager", "Tool management"},
	{"synthesis", "Chunk answer synthesis and engine configuration"},
	{"answer", "Per-chunk language model answering followed by synthesis"},
}

// EnabledTools parses ENABLE_TOOLS. An empty list enables everything.
func EnabledTools() (list []string, all bool) {
	raw := strings.TrimSpace(os.Getenv("ENABLE_TOOLS"))
	if raw == "" {
		return nil, true
	}
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			list = append(list, name)
		}
	}
	return list, false
}

// IsEnabled reports whether a toolset is enabled.
func IsEnabled(name string) bool {
	list, all := EnabledTools()
	return all || slices.Contains(list, name)
}

func RegisterToolManagerTool(s *server.MCPServer) {
	tool := mcp.NewTool("tool_manager",
		mcp.WithDescription("Manage MCP tools - list, enable or disable toolsets"),
		mcp.WithString("action", mcp.Required(), mcp.Description("Action to perform: list, enable, disable")),
		mcp.WithString("tool_name", mcp.Description("Toolset name to enable/disable")),
	)

	s.AddTool(tool, util.ErrorGuard(toolManagerHandler))
}

func toolManagerHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arguments := util.Arguments(request)
	action, ok := arguments["action"].(string)
	if !ok {
		return mcp.NewToolResultError("action must be a string"), nil
	}

	toolList, allEnabled := EnabledTools()

	switch action {
	case "list":
		var b strings.Builder
		b.WriteString("Available toolsets:\n")
		for _, t := range Toolsets {
			status := "disabled"
			if allEnabled || slices.Contains(toolList, t.Name) {
				status = "enabled"
			}
			fmt.Fprintf(&b, "- %s (%s) [%s]\n", t.Name, t.Desc, status)
		}
		if allEnabled {
			b.WriteString("\nAll toolsets are enabled (ENABLE_TOOLS is empty)\n")
		}
		b.WriteString("\nChanges take effect when the server restarts.\n")
		return mcp.NewToolResultText(b.String()), nil

	case "enable", "disable":
		toolName, ok := arguments["tool_name"].(string)
		if !ok || toolName == "" {
			return mcp.NewToolResultError("tool_name is required for enable/disable actions"), nil
		}
		if !knownToolset(toolName) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown toolset %q", toolName)), nil
		}

		if allEnabled {
			for _, t := range Toolsets {
				toolList = append(toolList, t.Name)
			}
		}
		if action == "enable" {
			if !slices.Contains(toolList, toolName) {
				toolList = append(toolList, toolName)
			}
		} else {
			toolList = slices.DeleteFunc(toolList, func(s string) bool { return s == toolName })
		}
		if len(toolList) == 0 {
			// an empty ENABLE_TOOLS means everything
			toolList = []string{"none"}
		}
		os.Setenv("ENABLE_TOOLS", strings.Join(toolList, ","))

		return mcp.NewToolResultText(fmt.Sprintf("Successfully %sd toolset: %s", action, toolName)), nil

	default:
		return mcp.NewToolResultError("Invalid action. Use 'list', 'enable', or 'disable'"), nil
	}
}

func knownToolset(name string) bool {
	return slices.ContainsFunc(Toolsets, func(t Toolset) bool { return t.Name == name })
}
