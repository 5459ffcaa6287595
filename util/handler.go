// Package util holds helpers shared by the MCP tool handlers.
package util

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ErrorGuard turns handler errors and panics into tool error results so a
// failing tool never takes the server down.
func ErrorGuard(handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				result = mcp.NewToolResultError(fmt.Sprintf("Panic: %v", r))
				err = nil
			}
		}()
		result, err = handler(ctx, request)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
		}
		return result, nil
	}
}

// Arguments returns the request arguments as a map. Missing or malformed
// arguments yield an empty map.
func Arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args := request.GetArguments(); args != nil {
		return args
	}
	return map[string]interface{}{}
}
