package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/athapong/bim-synthesis/pkg/answering"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"
)

func RegisterBuildingPrompts(s *server.MCPServer) {
	prompt := mcp.NewPrompt("building_chunk_answer",
		mcp.WithPromptDescription("Answer a building question from a single chunk of building data, in the form the synthesis tools expect"),
		mcp.WithArgument("question", mcp.ArgumentDescription("The question about the building"), mcp.RequiredArgument()),
		mcp.WithArgument("chunk", mcp.ArgumentDescription("The building data chunk to answer from"), mcp.RequiredArgument()),
		mcp.WithArgument("intent", mcp.ArgumentDescription("Query intent: quantity, component, material, spatial, cost, relationship or property")),
	)
	s.AddPrompt(prompt, chunkAnswerHandler)
}

func chunkAnswerHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	question := strings.TrimSpace(request.Params.Arguments["question"])
	chunk := request.Params.Arguments["chunk"]
	if question == "" {
		return nil, errors.New("question is required")
	}

	query := model.QueryContext{
		OriginalQuery: question,
		Intent:        model.ParseIntent(request.Params.Arguments["intent"]),
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Chunk answer for %q", question),
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleAssistant,
				Content: mcp.NewTextContent(answering.SystemPrompt),
			},
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(answering.BuildPrompt(query, answering.Chunk{ID: "1", Content: chunk})),
			},
		},
	}, nil
}
