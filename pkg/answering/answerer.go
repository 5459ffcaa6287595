// Package answering asks a chat model to answer a building query against
// each retrieved chunk of building data separately, producing the chunk
// results the synthesis engine consumes.
package answering

import (
	"context"
	"fmt"
	"strings"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ChunkStatusFailed marks a chunk whose completion request failed.
const ChunkStatusFailed = "failed"

// ChatClient is the part of the OpenAI client the answerer needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Chunk is one piece of retrieved building data.
type Chunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// SystemPrompt instructs the model to stay within the chunk it is given.
const SystemPrompt = `You answer questions about a building using only the building data provided.
Report quantities with their units, name elements with their ids when known,
and state materials, costs and locations exactly as the data gives them.
If the data does not answer the question, say so.`

// Answerer runs one completion per chunk.
type Answerer struct {
	client      ChatClient
	model       string
	temperature float32
	pricePer1K  float64
	limit       int
	logger      *logrus.Logger
}

// New creates an answerer using client and model.
func New(client ChatClient, model string) *Answerer {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Answerer{
		client:      client,
		model:       model,
		temperature: 0.1,
		limit:       4,
		logger:      logger,
	}
}

// WithLogger replaces the answerer's logger.
func (a *Answerer) WithLogger(logger *logrus.Logger) *Answerer {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithPricing sets the cost per thousand tokens reported on each chunk.
func (a *Answerer) WithPricing(per1K float64) *Answerer {
	a.pricePer1K = per1K
	return a
}

// WithConcurrencyLimit bounds the number of requests in flight.
// Zero or less means unbounded.
func (a *Answerer) WithConcurrencyLimit(n int) *Answerer {
	a.limit = n
	return a
}

// BuildPrompt renders the user message for one chunk.
func BuildPrompt(query model.QueryContext, chunk Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", strings.TrimSpace(query.OriginalQuery))
	if query.Intent != "" && query.Intent != model.IntentUnknown {
		fmt.Fprintf(&b, "Question type: %s\n", query.Intent)
	}
	fmt.Fprintf(&b, "\nBuilding data (chunk %s):\n%s\n", chunk.ID, strings.TrimSpace(chunk.Content))
	return b.String()
}

// Answer asks the model about a single chunk. Request failures are reported
// in the returned chunk result rather than as an error, except when ctx is
// done.
func (a *Answerer) Answer(ctx context.Context, query model.QueryContext, chunk Chunk) (model.ChunkResult, error) {
	result := model.ChunkResult{ChunkID: chunk.ID, Status: ChunkStatusFailed}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: a.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(query, chunk)},
		},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		a.logger.WithError(err).WithFields(logrus.Fields{
			"query_id": query.QueryID,
			"chunk_id": chunk.ID,
		}).Warn("Chunk completion failed")
		return result, nil
	}

	result.TokensUsed = resp.Usage.TotalTokens
	result.Cost = float64(resp.Usage.TotalTokens) / 1000 * a.pricePer1K
	if len(resp.Choices) == 0 {
		a.logger.WithField("chunk_id", chunk.ID).Warn("No choices in completion")
		return result, nil
	}

	choice := resp.Choices[0]
	result.Content = strings.TrimSpace(choice.Message.Content)
	result.Status = model.ChunkStatusCompleted
	result.ConfidenceScore, result.ExtractionQuality = assess(choice.FinishReason, result.Content)
	return result, nil
}

// AnswerAll answers every chunk, keeping the input order.
func (a *Answerer) AnswerAll(ctx context.Context, query model.QueryContext, chunks []Chunk) ([]model.ChunkResult, error) {
	results := make([]model.ChunkResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	if a.limit > 0 {
		g.SetLimit(a.limit)
	}
	for i, chunk := range chunks {
		g.Go(func() error {
			res, err := a.Answer(gctx, query, chunk)
			if err != nil {
				return errors.Wrapf(err, "chunk %s", chunk.ID)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.logger.WithFields(logrus.Fields{
		"query_id": query.QueryID,
		"chunks":   len(chunks),
	}).Info("Chunks answered")
	return results, nil
}

var refusals = []string{
	"does not contain",
	"doesn't contain",
	"not provided",
	"no information",
	"cannot determine",
	"not mentioned",
}

// assess derives a confidence and quality label from how the completion
// ended and whether the model declined to answer.
func assess(finish openai.FinishReason, content string) (float64, string) {
	lower := strings.ToLower(content)
	for _, r := range refusals {
		if strings.Contains(lower, r) {
			return 0.2, string(model.QualityLow)
		}
	}
	switch finish {
	case openai.FinishReasonStop:
		return 0.8, string(model.QualityHigh)
	case openai.FinishReasonLength:
		return 0.5, string(model.QualityMedium)
	default:
		return 0.6, string(model.QualityMedium)
	}
}
