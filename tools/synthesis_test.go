package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/athapong/bim-synthesis/pkg/answering"
	"github.com/athapong/bim-synthesis/pkg/config"
	"github.com/athapong/bim-synthesis/pkg/engine"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSynthesis(t *testing.T, answerer *answering.Answerer) *Synthesis {
	t.Helper()
	eng, err := engine.New(config.Default())
	require.NoError(t, err)
	return NewSynthesis(eng, answerer)
}

func call(arguments map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = arguments
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

const volumeChunks = `[
	{"chunk_id": "c1", "content": "Volume: 10 m³", "status": "completed", "confidence_score": 0.9, "tokens_used": 10},
	{"chunk_id": "c2", "content": "Volume: 10 m³", "status": "completed", "confidence_score": 0.9, "tokens_used": 10},
	{"chunk_id": "c3", "content": "Volume: 25 m³", "status": "completed", "confidence_score": 0.9, "tokens_used": 10}
]`

func TestSynthesizeHandlerJSON(t *testing.T) {
	h := newSynthesis(t, nil)
	res, err := h.synthesizeHandler(context.Background(), call(map[string]interface{}{
		"query":    "How much concrete?",
		"chunks":   volumeChunks,
		"intent":   "quantity",
		"query_id": "q-42",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var result model.EnhancedQueryResult
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &result))
	assert.Equal(t, "q-42", result.QueryID)
	assert.Equal(t, model.IntentQuantity, result.Intent)
	assert.Len(t, result.ConflictsDetected, 1)
	assert.Len(t, result.ConflictsResolved, 1)
	assert.Equal(t, 30, result.TokensUsed)
}

func TestSynthesizeHandlerAnswerFormat(t *testing.T) {
	h := newSynthesis(t, nil)
	res, err := h.synthesizeHandler(context.Background(), call(map[string]interface{}{
		"query":  "How much concrete?",
		"chunks": volumeChunks,
		"intent": "quantity",
		"format": "answer",
	}))
	require.NoError(t, err)
	out := text(t, res)
	assert.Contains(t, out, "volume")
	assert.Contains(t, out, "(3 chunks)")
	assert.Contains(t, out, "Conflicts: 1 detected, 1 resolved")
}

func TestSynthesizeHandlerRejectsBadInput(t *testing.T) {
	h := newSynthesis(t, nil)

	res, err := h.synthesizeHandler(context.Background(), call(map[string]interface{}{"query": "doors?"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h.synthesizeHandler(context.Background(), call(map[string]interface{}{"query": "doors?", "chunks": "{not json"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestConfigHandler(t *testing.T) {
	res, err := newSynthesis(t, nil).configHandler(context.Background(), call(nil))
	require.NoError(t, err)
	out := text(t, res)
	assert.Contains(t, out, "validation_level: standard")
	assert.Contains(t, out, "quantity_relative_tolerance: 0.05")
}

type staticClient struct{ content string }

func (c staticClient) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.content},
			FinishReason: openai.FinishReasonStop,
		}},
		Usage: openai.Usage{TotalTokens: 50},
	}, nil
}

func TestAnswerHandler(t *testing.T) {
	h := newSynthesis(t, answering.New(staticClient{content: "Volume: 10 m³"}, "test-model"))
	res, err := h.answerHandler(context.Background(), call(map[string]interface{}{
		"question": "What is the slab volume?",
		"sources":  `[{"id": "s1", "content": "Slab S1 10 m3"}, {"id": "s2", "content": "Slab S1 volume 10 m3"}]`,
		"intent":   "quantity",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := text(t, res)
	assert.Contains(t, out, "(2 chunks)")
	assert.NotContains(t, out, "Conflicts:")

	res, err = h.answerHandler(context.Background(), call(map[string]interface{}{"question": "x", "sources": "nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, FormatJSON, formatOf(map[string]interface{}{}, FormatJSON))
	assert.Equal(t, FormatAnswer, formatOf(map[string]interface{}{"format": " Answer "}, FormatJSON))
	assert.Equal(t, FormatAnswer, formatOf(map[string]interface{}{"format": "xml"}, FormatAnswer))
}
