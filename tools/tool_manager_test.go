package tools

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEnabled(t *testing.T) {
	t.Setenv("ENABLE_TOOLS", "")
	assert.True(t, IsEnabled("answer"))

	t.Setenv("ENABLE_TOOLS", "synthesis, tool_manager")
	assert.True(t, IsEnabled("synthesis"))
	assert.False(t, IsEnabled("answer"))
}

func TestToolManager(t *testing.T) {
	t.Setenv("ENABLE_TOOLS", "synthesis")
	ctx := context.Background()

	res, err := toolManagerHandler(ctx, call(map[string]interface{}{"action": "list"}))
	require.NoError(t, err)
	out := text(t, res)
	assert.Contains(t, out, "- synthesis (Chunk answer synthesis and engine configuration) [enabled]")
	assert.Contains(t, out, "[disabled]")

	res, err = toolManagerHandler(ctx, call(map[string]interface{}{"action": "enable", "tool_name": "answer"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "synthesis,answer", os.Getenv("ENABLE_TOOLS"))

	res, err = toolManagerHandler(ctx, call(map[string]interface{}{"action": "disable", "tool_name": "synthesis"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "answer", os.Getenv("ENABLE_TOOLS"))

	res, err = toolManagerHandler(ctx, call(map[string]interface{}{"action": "disable", "tool_name": "answer"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.False(t, IsEnabled("answer"))

	res, err = toolManagerHandler(ctx, call(map[string]interface{}{"action": "enable", "tool_name": "gmail"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = toolManagerHandler(ctx, call(map[string]interface{}{"action": "purge"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
