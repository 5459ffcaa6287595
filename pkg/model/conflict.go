package model

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
)

// ConflictType classifies a disagreement between chunks.
type ConflictType string

const (
	ConflictQuantitativeMismatch     ConflictType = "quantitative_mismatch"
	ConflictQualitativeContradiction ConflictType = "qualitative_contradiction"
	ConflictMissingInformation       ConflictType = "missing_information"
	ConflictInconsistentUnits        ConflictType = "inconsistent_units"
	ConflictEntityMismatch           ConflictType = "entity_mismatch"
	ConflictRelationshipConflict     ConflictType = "relationship_conflict"
	ConflictPropertyContradiction    ConflictType = "property_contradiction"
)

// ResolutionStrategy names the method used to settle a conflict.
type ResolutionStrategy string

const (
	StrategyMajorityRule        ResolutionStrategy = "majority_rule"
	StrategyConfidenceWeighted  ResolutionStrategy = "confidence_weighted"
	StrategyStatisticalAnalysis ResolutionStrategy = "statistical_analysis"
	StrategyExpertRules         ResolutionStrategy = "expert_rules"
	StrategyEvidenceBased       ResolutionStrategy = "evidence_based"
	StrategyConservative        ResolutionStrategy = "conservative"
	StrategyComprehensive       ResolutionStrategy = "comprehensive"
)

// Evidence backs one side of a conflict.
type Evidence struct {
	SourceChunkID  string                 `json:"source_chunk_id"`
	Content        string                 `json:"content"`
	Confidence     float64                `json:"confidence"`
	QualityScore   float64                `json:"quality_score"`
	SupportingData map[string]interface{} `json:"supporting_data,omitempty"`
}

// NewEvidence validates and returns an Evidence value.
func NewEvidence(chunkID, content string, confidence, quality float64, supporting map[string]interface{}) (Evidence, error) {
	ev := Evidence{
		SourceChunkID:  chunkID,
		Content:        content,
		Confidence:     confidence,
		QualityScore:   quality,
		SupportingData: supporting,
	}
	return ev, ev.Validate()
}

// Validate checks the score fields.
func (e Evidence) Validate() error {
	if err := checkScore("evidence confidence", e.Confidence); err != nil {
		return err
	}
	return checkScore("evidence quality_score", e.QualityScore)
}

// Conflict is a detected disagreement between two or more chunks.
type Conflict struct {
	Type              ConflictType           `json:"conflict_type"`
	Description       string                 `json:"description"`
	ConflictingChunks []string               `json:"conflicting_chunks"`
	ConflictingValues []interface{}          `json:"conflicting_values"`
	Severity          float64                `json:"severity"`
	Evidence          []Evidence             `json:"evidence,omitempty"`
	Context           map[string]interface{} `json:"context,omitempty"`
}

// NewConflict builds a conflict, enforcing that it involves at least two
// distinct chunks with one value per chunk and a severity within [0,1].
func NewConflict(kind ConflictType, description string, chunks []string, values []interface{}, severity float64, evidence []Evidence, ctx map[string]interface{}) (*Conflict, error) {
	c := &Conflict{
		Type:              kind,
		Description:       description,
		ConflictingChunks: append([]string(nil), chunks...),
		ConflictingValues: append([]interface{}(nil), values...),
		Severity:          severity,
		Evidence:          evidence,
		Context:           ctx,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the conflict invariants.
func (c *Conflict) Validate() error {
	if c == nil {
		return errors.Wrap(ErrValidation, "conflict is nil")
	}
	if c.Type == "" {
		return errors.Wrap(ErrValidation, "conflict type is required")
	}
	if len(c.ConflictingChunks) < 2 {
		return errors.Wrapf(ErrValidation, "conflict needs at least 2 chunks, got %d", len(c.ConflictingChunks))
	}
	if len(c.ConflictingValues) != len(c.ConflictingChunks) {
		return errors.Wrapf(ErrValidation, "conflict has %d values for %d chunks", len(c.ConflictingValues), len(c.ConflictingChunks))
	}
	distinct := mapset.NewSet[string](c.ConflictingChunks...)
	if distinct.Cardinality() < 2 {
		return errors.Wrap(ErrValidation, "conflict needs at least 2 distinct chunks")
	}
	if err := checkScore("conflict severity", c.Severity); err != nil {
		return err
	}
	for _, ev := range c.Evidence {
		if err := ev.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Subject returns the quantity, property or entity key the conflict is about.
func (c *Conflict) Subject() string {
	if c == nil || c.Context == nil {
		return ""
	}
	for _, key := range []string{"quantity", "property", "entity", "pair"} {
		if v, ok := c.Context[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// ConflictResolution is the engine's chosen value for one conflict.
type ConflictResolution struct {
	Conflict      Conflict           `json:"conflict"`
	Strategy      ResolutionStrategy `json:"strategy"`
	ResolvedValue interface{}        `json:"resolved_value"`
	Confidence    float64            `json:"confidence"`
	Reasoning     string             `json:"reasoning"`
}

// NewConflictResolution validates and builds a resolution for exactly one conflict.
func NewConflictResolution(conflict *Conflict, strategy ResolutionStrategy, value interface{}, confidence float64, reasoning string) (*ConflictResolution, error) {
	if conflict == nil {
		return nil, errors.Wrap(ErrValidation, "resolution requires a conflict")
	}
	r := &ConflictResolution{
		Conflict:      *conflict,
		Strategy:      strategy,
		ResolvedValue: value,
		Confidence:    confidence,
		Reasoning:     reasoning,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the resolution invariants.
func (r *ConflictResolution) Validate() error {
	if r == nil {
		return errors.Wrap(ErrValidation, "resolution is nil")
	}
	if strings.TrimSpace(r.Reasoning) == "" {
		return errors.Wrap(ErrValidation, "resolution reasoning must not be empty")
	}
	if r.Strategy == "" {
		return errors.Wrap(ErrValidation, "resolution strategy is required")
	}
	if err := checkScore("resolution confidence", r.Confidence); err != nil {
		return err
	}
	return r.Conflict.Validate()
}
