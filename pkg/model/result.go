package model

import (
	"time"
)

// ValidationLevel controls how strict quality validation and conflict
// resolution are.
type ValidationLevel string

const (
	ValidationBasic         ValidationLevel = "basic"
	ValidationStandard      ValidationLevel = "standard"
	ValidationComprehensive ValidationLevel = "comprehensive"
	ValidationStrict        ValidationLevel = "strict"
)

// Valid reports whether the level is one of the known values.
func (v ValidationLevel) Valid() bool {
	switch v {
	case ValidationBasic, ValidationStandard, ValidationComprehensive, ValidationStrict:
		return true
	}
	return false
}

// StructuredOutput is the aggregation phase's answer, keyed by section.
type StructuredOutput map[string]interface{}

// AggregationMetadata records how a result was produced.
type AggregationMetadata struct {
	StrategyUsed       string          `json:"strategy_used"`
	ChunksProcessed    int             `json:"chunks_processed"`
	ChunksSuccessful   int             `json:"chunks_successful"`
	ConflictsDetected  int             `json:"conflicts_detected"`
	ConflictsResolved  int             `json:"conflicts_resolved"`
	ProcessingTime     time.Duration   `json:"processing_time"`
	AlgorithmsUsed     []string        `json:"algorithms_used"`
	ValidationLevel    ValidationLevel `json:"validation_level"`
	AggregationVersion string          `json:"aggregation_version"`
}

// EnhancedQueryResult is the terminal artifact of the synthesis pipeline.
// It is built once and not modified afterwards.
type EnhancedQueryResult struct {
	ResultID        string        `json:"result_id"`
	QueryID         string        `json:"query_id"`
	OriginalQuery   string        `json:"original_query"`
	Intent          QueryIntent   `json:"intent"`
	Answer          string        `json:"answer"`
	Confidence      float64       `json:"confidence"`
	ChunksProcessed int           `json:"chunks_processed"`
	TokensUsed      int           `json:"tokens_used"`
	TotalCost       float64       `json:"total_cost"`
	ProcessingTime  time.Duration `json:"processing_time"`
	GeneratedAt     time.Time     `json:"generated_at"`

	ExtractedData       []*ExtractedData      `json:"extracted_data"`
	ConflictsDetected   []Conflict            `json:"conflicts_detected"`
	ConflictsResolved   []ConflictResolution  `json:"conflicts_resolved"`
	QualityMetrics      QualityMetrics        `json:"quality_metrics"`
	OverallQuality      float64               `json:"overall_quality"`
	StructuredOutput    StructuredOutput      `json:"structured_output"`
	AggregationMetadata AggregationMetadata   `json:"aggregation_metadata"`
	DataInsights        []string              `json:"data_insights"`
	Recommendations     []string              `json:"recommendations"`
	UncertaintyFactors  []string              `json:"uncertainty_factors"`
	Diagnostics         []string              `json:"diagnostics,omitempty"`
}
