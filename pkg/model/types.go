package model

import (
	"strings"
)

// QueryIntent is the classified purpose of a user's query.
type QueryIntent string

const (
	IntentQuantity     QueryIntent = "quantity"
	IntentComponent    QueryIntent = "component"
	IntentMaterial     QueryIntent = "material"
	IntentSpatial      QueryIntent = "spatial"
	IntentCost         QueryIntent = "cost"
	IntentRelationship QueryIntent = "relationship"
	IntentProperty     QueryIntent = "property"
	IntentUnknown      QueryIntent = "unknown"
)

// AllIntents lists every intent the engine knows about, in dispatch order.
var AllIntents = []QueryIntent{
	IntentQuantity,
	IntentComponent,
	IntentMaterial,
	IntentSpatial,
	IntentCost,
	IntentRelationship,
	IntentProperty,
	IntentUnknown,
}

// ParseIntent maps a free-form intent label onto a QueryIntent.
// Unrecognized labels map to IntentUnknown.
func ParseIntent(s string) QueryIntent {
	candidate := QueryIntent(strings.ToLower(strings.TrimSpace(s)))
	for _, intent := range AllIntents {
		if intent == candidate {
			return intent
		}
	}
	return IntentUnknown
}

// ChunkStatusCompleted marks a chunk the language model answered successfully.
const ChunkStatusCompleted = "completed"

// ChunkResult is one chunk's raw answer as produced by the language model.
type ChunkResult struct {
	ChunkID           string  `json:"chunk_id"`
	Content           string  `json:"content"`
	Status            string  `json:"status"`
	ConfidenceScore   float64 `json:"confidence_score"`
	ExtractionQuality string  `json:"extraction_quality,omitempty"`
	TokensUsed        int     `json:"tokens_used"`
	Cost              float64 `json:"cost,omitempty"`
}

// Completed reports whether the chunk was answered successfully.
func (c ChunkResult) Completed() bool {
	return strings.EqualFold(c.Status, ChunkStatusCompleted)
}

// QueryContext carries the identity and intent of the query being answered.
type QueryContext struct {
	QueryID       string                 `json:"query_id"`
	OriginalQuery string                 `json:"original_query"`
	Intent        QueryIntent            `json:"intent"`
	Parameters    map[string]interface{} `json:"parameters,omitempty"`
}

// DataQuality is a coarse label for how trustworthy a chunk's extraction is.
type DataQuality string

const (
	QualityHigh    DataQuality = "high"
	QualityMedium  DataQuality = "medium"
	QualityLow     DataQuality = "low"
	QualityUnknown DataQuality = "unknown"
)

// ParseDataQuality maps a label onto a DataQuality; anything else is unknown.
func ParseDataQuality(s string) DataQuality {
	switch DataQuality(strings.ToLower(strings.TrimSpace(s))) {
	case QualityHigh:
		return QualityHigh
	case QualityMedium:
		return QualityMedium
	case QualityLow:
		return QualityLow
	default:
		return QualityUnknown
	}
}

// Weight returns the reliability weight of the label.
func (q DataQuality) Weight() float64 {
	switch q {
	case QualityHigh:
		return 1.0
	case QualityMedium:
		return 0.7
	case QualityLow:
		return 0.3
	default:
		return 0.5
	}
}

// Clamp01 bounds v to the closed interval [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
