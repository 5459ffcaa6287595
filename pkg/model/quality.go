package model

// Weights applied by OverallQuality.
const (
	WeightConfidence        = 0.25
	WeightCompleteness      = 0.20
	WeightConsistency       = 0.20
	WeightReliability       = 0.20
	WeightExtractionQuality = 0.15
)

// QualityMetrics scores a synthesized answer.
type QualityMetrics struct {
	Confidence             float64  `json:"confidence"`
	Completeness           float64  `json:"completeness"`
	Consistency            float64  `json:"consistency"`
	Reliability            float64  `json:"reliability"`
	UncertaintyLevel       float64  `json:"uncertainty_level"`
	ValidationPassed       bool     `json:"validation_passed"`
	ValidationIssues       []string `json:"validation_issues,omitempty"`
	DataCoverage           float64  `json:"data_coverage"`
	ExtractionQuality      float64  `json:"extraction_quality"`
	ConflictResolutionRate float64  `json:"conflict_resolution_rate"`
}

// NewQualityMetrics validates every score and returns the metrics.
func NewQualityMetrics(m QualityMetrics) (*QualityMetrics, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	out := m
	out.ValidationIssues = append([]string(nil), m.ValidationIssues...)
	return &out, nil
}

// Validate checks that every score lies within [0,1].
func (m QualityMetrics) Validate() error {
	scores := []struct {
		name  string
		value float64
	}{
		{"confidence", m.Confidence},
		{"completeness", m.Completeness},
		{"consistency", m.Consistency},
		{"reliability", m.Reliability},
		{"uncertainty_level", m.UncertaintyLevel},
		{"data_coverage", m.DataCoverage},
		{"extraction_quality", m.ExtractionQuality},
		{"conflict_resolution_rate", m.ConflictResolutionRate},
	}
	for _, s := range scores {
		if err := checkScore(s.name, s.value); err != nil {
			return err
		}
	}
	return nil
}

// OverallQuality is the fixed weighted sum of the primary scores.
func (m QualityMetrics) OverallQuality() float64 {
	return WeightConfidence*m.Confidence +
		WeightCompleteness*m.Completeness +
		WeightConsistency*m.Consistency +
		WeightReliability*m.Reliability +
		WeightExtractionQuality*m.ExtractionQuality
}
