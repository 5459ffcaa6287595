package answering

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) != 2 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		user := req.Messages[1].Content

		content := "The slab volume is 10 m³."
		if strings.Contains(user, "chunk c2") {
			content = "The data does not contain a volume."
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "cmpl-1",
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
			Usage: openai.Usage{PromptTokens: 90, CompletionTokens: 10, TotalTokens: 100},
		})
	}))
}

func testClient(url string) *openai.Client {
	config := openai.DefaultConfig("test-key")
	config.BaseURL = url + "/v1"
	return openai.NewClientWithConfig(config)
}

var query = model.QueryContext{QueryID: "q1", OriginalQuery: "What is the slab volume?", Intent: model.IntentQuantity}

func TestAnswerAll(t *testing.T) {
	var calls int32
	srv := newTestServer(t, &calls)
	defer srv.Close()

	a := New(testClient(srv.URL), "test-model").WithPricing(0.5)
	results, err := a.AnswerAll(context.Background(), query, []Chunk{
		{ID: "c1", Content: "Slab S1 volume 10 m3"},
		{ID: "c2", Content: "Door D1 is oak"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))

	assert.Equal(t, "c1", results[0].ChunkID)
	assert.True(t, results[0].Completed())
	assert.Equal(t, "The slab volume is 10 m³.", results[0].Content)
	assert.Equal(t, 0.8, results[0].ConfidenceScore)
	assert.Equal(t, "high", results[0].ExtractionQuality)
	assert.Equal(t, 100, results[0].TokensUsed)
	assert.InDelta(t, 0.05, results[0].Cost, 1e-9)

	assert.Equal(t, "c2", results[1].ChunkID)
	assert.Equal(t, 0.2, results[1].ConfidenceScore)
	assert.Equal(t, "low", results[1].ExtractionQuality)
}

type failingClient struct{}

func (failingClient) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, errors.New("rate limited")
}

func TestAnswerFailureIsReportedOnChunk(t *testing.T) {
	res, err := New(failingClient{}, "m").Answer(context.Background(), query, Chunk{ID: "c1", Content: "x"})
	require.NoError(t, err)
	assert.Equal(t, ChunkStatusFailed, res.Status)
	assert.False(t, res.Completed())
	assert.Empty(t, res.Content)
}

func TestAnswerAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(failingClient{}, "m").AnswerAll(ctx, query, []Chunk{{ID: "c1"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(query, Chunk{ID: "c9", Content: "  Wall W1 thickness 200 mm "})
	assert.Contains(t, p, "Question: What is the slab volume?")
	assert.Contains(t, p, "Question type: quantity")
	assert.Contains(t, p, "chunk c9")
	assert.Contains(t, p, "Wall W1 thickness 200 mm\n")

	p = BuildPrompt(model.QueryContext{OriginalQuery: "hi", Intent: model.IntentUnknown}, Chunk{ID: "c1"})
	assert.NotContains(t, p, "Question type")
}

func TestAssess(t *testing.T) {
	conf, q := assess(openai.FinishReasonLength, "Walls are 200 mm")
	assert.Equal(t, 0.5, conf)
	assert.Equal(t, "medium", q)

	conf, _ = assess(openai.FinishReasonStop, "Cannot determine the cost")
	assert.Equal(t, 0.2, conf)
}
