// Package quality scores a synthesized answer and estimates its uncertainty.
package quality

import (
	"fmt"
	"math"
	"reflect"

	"github.com/athapong/bim-synthesis/pkg/config"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/stats"
	"github.com/sirupsen/logrus"
)

// Validation thresholds.
const (
	MinConfidence    = 0.5
	MinCompleteness  = 0.4
	MinConsistency   = 0.6
	MinReliability   = 0.5
	MaxCritical      = 1
	CriticalSeverity = 0.9
	HighSeverity     = 0.7
)

// Penalty and cap constants.
const (
	unresolvedPenalty    = 0.15
	unresolvedPenaltyCap = 0.6
	severePenalty        = 0.1
	severePenaltyCap     = 0.2
	highQualityBoost     = 0.2
	breadthBoost         = 0.2
	reliabilityBonus     = 0.1

	uncertaintyConflictTerm = 0.05
	uncertaintyConflictCap  = 0.3
	uncertaintySevereTerm   = 0.1
	uncertaintySevereCap    = 0.2
	MaxUncertainty          = 0.5
)

// richness targets: mean items per source that count as fully populated
var richness = struct {
	entities, quantities, properties, relationships float64
}{5, 3, 3, 2}

// Input is everything quality assessment reads.
type Input struct {
	Data        []*model.ExtractedData
	Conflicts   []model.Conflict
	Resolutions []model.ConflictResolution
	Structured  model.StructuredOutput
	Config      config.Config
}

// Uncertainty breaks the overall uncertainty down by source.
type Uncertainty struct {
	Measurement  float64 `json:"measurement"`
	Spread       float64 `json:"statistical_spread"`
	Quantitative float64 `json:"quantitative"`
	Entity       float64 `json:"entity"`
	Property     float64 `json:"property"`
	Overall      float64 `json:"overall"`
}

// Assessment is the result of one quality pass.
type Assessment struct {
	Metrics     model.QualityMetrics
	Uncertainty Uncertainty
}

// Assessor computes quality metrics.
type Assessor struct {
	logger *logrus.Logger
}

func NewAssessor() *Assessor {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return &Assessor{logger: logger}
}

// WithLogger replaces the assessor's logger.
func (a *Assessor) WithLogger(logger *logrus.Logger) *Assessor {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Assess scores the inputs. Scores are always within [0,1].
func (a *Assessor) Assess(in Input) Assessment {
	resolved := resolvedSet(in.Resolutions)
	unresolved, severe, critical := 0, 0, 0
	for _, c := range in.Conflicts {
		if !resolved[conflictKey(c)] {
			unresolved++
		}
		if c.Severity > HighSeverity {
			severe++
		}
		if c.Severity > CriticalSeverity {
			critical++
		}
	}

	m := model.QualityMetrics{
		Confidence:             Confidence(in.Data),
		Completeness:           Completeness(in.Data, in.Structured),
		Consistency:            Consistency(unresolved, severe),
		Reliability:            Reliability(in.Data),
		ExtractionQuality:      meanConfidence(in.Data),
		DataCoverage:           coverage(in.Data),
		ConflictResolutionRate: resolutionRate(len(in.Conflicts), len(in.Conflicts)-unresolved),
	}
	u := EstimateUncertainty(in.Data, in.Conflicts, resolved)
	m.UncertaintyLevel = u.Overall
	m.ValidationIssues = a.validate(m, in.Config, critical, unresolved)
	m.ValidationPassed = len(m.ValidationIssues) == 0

	if err := m.Validate(); err != nil {
		a.logger.WithError(err).Error("Quality scores out of range, clamping")
		m = clampMetrics(m)
	}

	a.logger.WithFields(logrus.Fields{
		"overall":     m.OverallQuality(),
		"passed":      m.ValidationPassed,
		"unresolved":  unresolved,
		"uncertainty": m.UncertaintyLevel,
	}).Debug("Quality assessed")
	return Assessment{Metrics: m, Uncertainty: u}
}

func (a *Assessor) validate(m model.QualityMetrics, cfg config.Config, critical, unresolved int) []string {
	issues := make([]string, 0)
	if m.Confidence < MinConfidence {
		issues = append(issues, fmt.Sprintf("confidence %.2f below %.2f", m.Confidence, MinConfidence))
	}
	if cfg.ValidationLevel != model.ValidationBasic {
		if m.Completeness < MinCompleteness {
			issues = append(issues, fmt.Sprintf("completeness %.2f below %.2f", m.Completeness, MinCompleteness))
		}
		if m.Consistency < MinConsistency {
			issues = append(issues, fmt.Sprintf("consistency %.2f below %.2f", m.Consistency, MinConsistency))
		}
		if m.Reliability < MinReliability {
			issues = append(issues, fmt.Sprintf("reliability %.2f below %.2f", m.Reliability, MinReliability))
		}
		if critical > MaxCritical {
			issues = append(issues, fmt.Sprintf("%d critical conflicts", critical))
		}
		if cfg.QualityThreshold > 0 && m.OverallQuality() < cfg.QualityThreshold {
			issues = append(issues, fmt.Sprintf("overall quality %.2f below threshold %.2f", m.OverallQuality(), cfg.QualityThreshold))
		}
	}
	if cfg.ValidationLevel == model.ValidationStrict && unresolved > 0 {
		issues = append(issues, fmt.Sprintf("%d conflicts unresolved", unresolved))
	}
	return issues
}

func conflictKey(c model.Conflict) string {
	return fmt.Sprintf("%s|%s|%v|%v", c.Type, c.Subject(), c.ConflictingChunks, c.ConflictingValues)
}

func resolvedSet(resolutions []model.ConflictResolution) map[string]bool {
	out := make(map[string]bool, len(resolutions))
	for _, r := range resolutions {
		out[conflictKey(r.Conflict)] = true
	}
	return out
}

func meanConfidence(data []*model.ExtractedData) float64 {
	values := make([]float64, 0, len(data))
	for _, d := range data {
		if d != nil {
			values = append(values, d.ExtractionConfidence)
		}
	}
	return stats.Mean(values)
}

// Confidence is the mean extraction confidence plus up to 0.2 for the share
// of high-quality sources.
func Confidence(data []*model.ExtractedData) float64 {
	if len(data) == 0 {
		return 0
	}
	high := 0
	for _, d := range data {
		if d != nil && d.DataQuality == model.QualityHigh {
			high++
		}
	}
	return model.Clamp01(meanConfidence(data) + highQualityBoost*float64(high)/float64(len(data)))
}

func subScore(present, total int, items, target float64) float64 {
	if total == 0 {
		return 0
	}
	presence := float64(present) / float64(total)
	rich := math.Min(1, items/float64(total)/target)
	return 0.5*presence + 0.5*rich
}

// Completeness averages entity, quantity, property and relationship
// presence-and-richness, plus up to 0.2 for the share of populated
// aggregation sections.
func Completeness(data []*model.ExtractedData, structured model.StructuredOutput) float64 {
	var e, q, p, r int
	var ec, qc, pc, rc float64
	n := 0
	for _, d := range data {
		if d == nil {
			continue
		}
		n++
		if len(d.Entities) > 0 {
			e++
		}
		if len(d.Quantities) > 0 {
			q++
		}
		if len(d.Properties) > 0 {
			p++
		}
		if len(d.Relationships) > 0 {
			r++
		}
		ec += float64(len(d.Entities))
		qc += float64(len(d.Quantities))
		pc += float64(len(d.Properties))
		rc += float64(len(d.Relationships))
	}
	base := (subScore(e, n, ec, richness.entities) +
		subScore(q, n, qc, richness.quantities) +
		subScore(p, n, pc, richness.properties) +
		subScore(r, n, rc, richness.relationships)) / 4
	return model.Clamp01(base + breadthBoost*breadth(structured))
}

// breadth is the share of structured output sections that hold anything.
func breadth(structured model.StructuredOutput) float64 {
	if len(structured) == 0 {
		return 0
	}
	populated := 0
	for _, v := range structured {
		if isPopulated(v) {
			populated++
		}
	}
	return float64(populated) / float64(len(structured))
}

func isPopulated(v interface{}) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String:
		return rv.Len() > 0
	case reflect.Ptr:
		return !rv.IsNil()
	}
	return true
}

// Consistency is 1 minus the unresolved and high-severity conflict
// penalties, floored at 0.
func Consistency(unresolved, severe int) float64 {
	penalty := math.Min(unresolvedPenaltyCap, unresolvedPenalty*float64(unresolved)) +
		math.Min(severePenaltyCap, severePenalty*float64(severe))
	return math.Max(0, 1-penalty)
}

// Reliability is the mean source quality weight times the share of sources
// without processing errors, plus 0.1, capped at 1.
func Reliability(data []*model.ExtractedData) float64 {
	if len(data) == 0 {
		return 0
	}
	var weights float64
	clean := 0
	for _, d := range data {
		if d == nil {
			continue
		}
		weights += d.DataQuality.Weight()
		if !d.HasErrors() {
			clean++
		}
	}
	n := float64(len(data))
	return model.Clamp01((weights/n)*(float64(clean)/n) + reliabilityBonus)
}

func coverage(data []*model.ExtractedData) float64 {
	if len(data) == 0 {
		return 0
	}
	populated := 0
	for _, d := range data {
		if d != nil && !d.IsEmpty() {
			populated++
		}
	}
	return float64(populated) / float64(len(data))
}

func resolutionRate(detected, resolved int) float64 {
	if detected == 0 {
		return 1
	}
	return model.Clamp01(float64(resolved) / float64(detected))
}

func clampMetrics(m model.QualityMetrics) model.QualityMetrics {
	m.Confidence = model.Clamp01(m.Confidence)
	m.Completeness = model.Clamp01(m.Completeness)
	m.Consistency = model.Clamp01(m.Consistency)
	m.Reliability = model.Clamp01(m.Reliability)
	m.UncertaintyLevel = model.Clamp01(m.UncertaintyLevel)
	m.DataCoverage = model.Clamp01(m.DataCoverage)
	m.ExtractionQuality = model.Clamp01(m.ExtractionQuality)
	m.ConflictResolutionRate = model.Clamp01(m.ConflictResolutionRate)
	return m
}
