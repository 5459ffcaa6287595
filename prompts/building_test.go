package prompts

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkAnswerHandler(t *testing.T) {
	var req mcp.GetPromptRequest
	req.Params.Arguments = map[string]string{
		"question": "How thick are the walls?",
		"chunk":    "Wall W1 thickness 200 mm",
		"intent":   "quantity",
	}
	res, err := chunkAnswerHandler(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, mcp.RoleUser, res.Messages[1].Role)

	user, ok := res.Messages[1].Content.(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, user.Text, "Question: How thick are the walls?")
	assert.Contains(t, user.Text, "Question type: quantity")
	assert.Contains(t, user.Text, "Wall W1 thickness 200 mm")

	req.Params.Arguments = map[string]string{"chunk": "x"}
	_, err = chunkAnswerHandler(context.Background(), req)
	assert.Error(t, err)
}
