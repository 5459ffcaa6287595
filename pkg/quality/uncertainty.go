package quality

import (
	"math"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/stats"
)

// Cap on the statistical spread term, which is a coefficient of variation.
const maxSpread = 0.5

var conflictCategory = map[model.ConflictType]string{
	model.ConflictQuantitativeMismatch:     "quantitative",
	model.ConflictInconsistentUnits:        "quantitative",
	model.ConflictEntityMismatch:           "entity",
	model.ConflictRelationshipConflict:     "entity",
	model.ConflictQualitativeContradiction: "property",
	model.ConflictPropertyContradiction:    "property",
}

func rss(terms ...float64) float64 {
	var sum float64
	for _, t := range terms {
		sum += t * t
	}
	return math.Sqrt(sum)
}

// spread is the mean coefficient of variation of quantities reported by
// more than one source.
func spread(data []*model.ExtractedData) float64 {
	groups := make(map[string][]float64)
	for _, d := range data {
		if d == nil {
			continue
		}
		for name, q := range d.Quantities {
			groups[name] = append(groups[name], q.Value)
		}
	}
	var cvs []float64
	for _, values := range groups {
		if len(values) < 2 {
			continue
		}
		mean := stats.Mean(values)
		if mean == 0 {
			continue
		}
		cvs = append(cvs, stats.PopStdDev(values)/math.Abs(mean))
	}
	return math.Min(maxSpread, stats.Mean(cvs))
}

// EstimateUncertainty propagates independent error sources per category by
// root-sum-of-squares, averages the categories and adds conflict terms. The
// result never exceeds MaxUncertainty. It is not derived from 1-confidence.
func EstimateUncertainty(data []*model.ExtractedData, conflicts []model.Conflict, resolved map[string]bool) Uncertainty {
	measurement := 0.0
	if len(data) > 0 {
		measurement = (1 - meanConfidence(data)) * 0.5
	}
	unresolvedBy := make(map[string]int)
	unresolved, severe := 0, 0
	for _, c := range conflicts {
		if c.Severity > HighSeverity {
			severe++
		}
		if resolved[conflictKey(c)] {
			continue
		}
		unresolved++
		if cat, ok := conflictCategory[c.Type]; ok {
			unresolvedBy[cat]++
		}
	}
	conflictTerm := func(cat string) float64 {
		return math.Min(uncertaintyConflictCap, 0.1*float64(unresolvedBy[cat]))
	}

	u := Uncertainty{
		Measurement: measurement,
		Spread:      spread(data),
	}
	u.Quantitative = rss(measurement, conflictTerm("quantitative"), u.Spread)
	u.Entity = rss(measurement, conflictTerm("entity"))
	u.Property = rss(measurement, conflictTerm("property"))

	base := (u.Quantitative + u.Entity + u.Property) / 3
	overall := base +
		math.Min(uncertaintyConflictCap, uncertaintyConflictTerm*float64(unresolved)) +
		math.Min(uncertaintySevereCap, uncertaintySevereTerm*float64(severe))
	u.Overall = math.Min(MaxUncertainty, overall)
	return u
}
