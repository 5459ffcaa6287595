package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/athapong/bim-synthesis/pkg/answering"
	"github.com/athapong/bim-synthesis/pkg/engine"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/util"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Output formats of the synthesis tools.
const (
	FormatJSON   = "json"
	FormatAnswer = "answer"
)

// Synthesis serves the synthesis tools from one engine.
type Synthesis struct {
	engine   *engine.Engine
	answerer *answering.Answerer
}

// NewSynthesis creates the tool handlers. answerer may be nil, in which case
// answer_building_query is not offered.
func NewSynthesis(eng *engine.Engine, answerer *answering.Answerer) *Synthesis {
	return &Synthesis{engine: eng, answerer: answerer}
}

func RegisterSynthesisTools(s *server.MCPServer, h *Synthesis) {
	synthesizeTool := mcp.NewTool("synthesize_chunk_answers",
		mcp.WithDescription("Merge per-chunk answers about a building model into one answer, detecting and resolving conflicts between chunks and scoring the result's quality"),
		mcp.WithString("query", mcp.Required(), mcp.Description("The user's question the chunks were answered for")),
		mcp.WithString("chunks", mcp.Required(), mcp.Description("JSON array of chunk answers: {chunk_id, content, status, confidence_score, extraction_quality, tokens_used, cost}")),
		mcp.WithString("intent", mcp.Description("Query intent: quantity, component, material, spatial, cost, relationship or property")),
		mcp.WithString("query_id", mcp.Description("Identifier of the query; generated when omitted")),
		mcp.WithString("format", mcp.Description("Output format: json (full result) or answer (answer text and quality summary)")),
	)
	s.AddTool(synthesizeTool, util.ErrorGuard(h.synthesizeHandler))

	configTool := mcp.NewTool("synthesis_config",
		mcp.WithDescription("Show the tolerances, validation level and currency settings the synthesis engine runs with"),
	)
	s.AddTool(configTool, util.ErrorGuard(h.configHandler))
}

func RegisterAnswerTool(s *server.MCPServer, h *Synthesis) {
	if h.answerer == nil {
		return
	}
	answerTool := mcp.NewTool("answer_building_query",
		mcp.WithDescription("Answer a question about a building by asking the language model about each retrieved data chunk, then synthesizing the chunk answers"),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question about the building")),
		mcp.WithString("sources", mcp.Required(), mcp.Description("JSON array of retrieved building data chunks: {id, content}")),
		mcp.WithString("intent", mcp.Description("Query intent: quantity, component, material, spatial, cost, relationship or property")),
		mcp.WithString("format", mcp.Description("Output format: json or answer (default)")),
	)
	s.AddTool(answerTool, util.ErrorGuard(h.answerHandler))
}

func (h *Synthesis) synthesizeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arguments := util.Arguments(request)
	question, _ := arguments["query"].(string)
	rawChunks, _ := arguments["chunks"].(string)
	if strings.TrimSpace(question) == "" || strings.TrimSpace(rawChunks) == "" {
		return mcp.NewToolResultError("query and chunks are required"), nil
	}

	var chunks []model.ChunkResult
	if err := json.Unmarshal([]byte(rawChunks), &chunks); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chunks must be a JSON array of chunk answers: %v", err)), nil
	}

	result, err := h.engine.Synthesize(ctx, chunks, queryContext(arguments, question))
	if err != nil {
		return nil, errors.Wrap(err, "synthesis failed")
	}
	return render(result, formatOf(arguments, FormatJSON))
}

func (h *Synthesis) answerHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arguments := util.Arguments(request)
	question, _ := arguments["question"].(string)
	rawSources, _ := arguments["sources"].(string)
	if strings.TrimSpace(question) == "" || strings.TrimSpace(rawSources) == "" {
		return mcp.NewToolResultError("question and sources are required"), nil
	}

	var sources []answering.Chunk
	if err := json.Unmarshal([]byte(rawSources), &sources); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("sources must be a JSON array of {id, content}: %v", err)), nil
	}

	query := queryContext(arguments, question)
	chunks, err := h.answerer.AnswerAll(ctx, query, sources)
	if err != nil {
		return nil, errors.Wrap(err, "answering chunks failed")
	}
	result, err := h.engine.Synthesize(ctx, chunks, query)
	if err != nil {
		return nil, errors.Wrap(err, "synthesis failed")
	}
	return render(result, formatOf(arguments, FormatAnswer))
}

func (h *Synthesis) configHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := yaml.Marshal(h.engine.Config())
	if err != nil {
		return nil, errors.Wrap(err, "encode configuration")
	}
	return mcp.NewToolResultText(string(out)), nil
}

func queryContext(arguments map[string]interface{}, question string) model.QueryContext {
	id, _ := arguments["query_id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	intent, _ := arguments["intent"].(string)
	return model.QueryContext{
		QueryID:       id,
		OriginalQuery: question,
		Intent:        model.ParseIntent(intent),
	}
}

func formatOf(arguments map[string]interface{}, fallback string) string {
	format, _ := arguments["format"].(string)
	format = strings.ToLower(strings.TrimSpace(format))
	if format != FormatJSON && format != FormatAnswer {
		return fallback
	}
	return format
}

func render(result *model.EnhancedQueryResult, format string) (*mcp.CallToolResult, error) {
	if format == FormatAnswer {
		return mcp.NewToolResultText(Summarize(result)), nil
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode result")
	}
	return mcp.NewToolResultText(string(out)), nil
}

// Summarize renders the answer with its confidence, quality and the
// conflicts and caveats a reader should know about.
func Summarize(result *model.EnhancedQueryResult) string {
	var b strings.Builder
	b.WriteString(result.Answer)
	fmt.Fprintf(&b, "\n\nConfidence: %.0f%%, quality: %.0f%% (%d chunks)\n",
		result.Confidence*100, result.OverallQuality*100, result.ChunksProcessed)
	if n := len(result.ConflictsDetected); n > 0 {
		fmt.Fprintf(&b, "Conflicts: %d detected, %d resolved\n", n, len(result.ConflictsResolved))
	}
	writeList(&b, "Insights", result.DataInsights)
	writeList(&b, "Recommendations", result.Recommendations)
	writeList(&b, "Uncertainty", result.UncertaintyFactors)
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
