package conflicts

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/normalization"
	"github.com/athapong/bim-synthesis/pkg/stats"
	"github.com/athapong/bim-synthesis/pkg/units"
	mapset "github.com/deckarep/golang-set/v2"
)

// Quantitative check names recorded in a conflict's context.
const (
	CheckOutlier   = "statistical_outlier"
	CheckTolerance = "tolerance_violation"
)

func groupQuantities(data []*model.ExtractedData) map[string][]observation {
	groups := make(map[string][]observation)
	for _, rec := range data {
		for name, q := range rec.Quantities {
			groups[name] = append(groups[name], observation{
				chunk: rec.ChunkID,
				value: q.Value,
				text:  fmt.Sprintf("%s = %s", name, normalization.FormatQuantity(q)),
				rec:   rec,
			})
		}
	}
	return groups
}

// quantitative compares same-named quantities. Values of three or more
// chunks are screened for statistical outliers; the spread between minimum
// and maximum is checked against the tolerances. A quantity whose checks
// fire yields one conflict listing every check that fired.
func (d *Detector) quantitative(data []*model.ExtractedData) []model.Conflict {
	var out []model.Conflict
	groups := groupQuantities(data)
	for _, name := range sortedKeys(groups) {
		obs := groups[name]
		if len(obs) < 2 || !sameUnit(name, data) {
			continue
		}
		values := make([]float64, len(obs))
		for i, o := range obs {
			values[i] = o.value.(float64)
		}

		var checks, outliers []string
		severity := 0.0

		if len(values) >= 3 {
			maxZ := 0.0
			median := stats.Median(values)
			for i, z := range stats.RobustZScores(values) {
				if d.withinTolerance(values[i], median) {
					continue
				}
				if math.Abs(z) > d.tolerances.StatisticalOutlierThreshold {
					outliers = append(outliers, obs[i].chunk)
					maxZ = math.Max(maxZ, math.Abs(z))
				}
			}
			if len(outliers) > 0 {
				checks = append(checks, CheckOutlier)
				severity = math.Max(severity, maxZ/(2*d.tolerances.StatisticalOutlierThreshold))
			}
		}

		summary := stats.Summarize(values)
		spread := summary.Max - summary.Min
		relative := 0.0
		violated := false
		if summary.Min > 0 {
			relative = spread / summary.Min
			violated = relative > d.tolerances.QuantityRelativeTolerance
		} else {
			violated = spread > d.tolerances.QuantityAbsoluteTolerance
			scale := math.Max(1, math.Max(math.Abs(summary.Max), math.Abs(summary.Min)))
			relative = spread / scale
		}
		if violated {
			checks = append(checks, CheckTolerance)
			severity = math.Max(severity, relative)
		}

		if len(checks) == 0 {
			continue
		}
		ctx := map[string]interface{}{
			"quantity":           name,
			"checks":             checks,
			"min":                summary.Min,
			"max":                summary.Max,
			"mean":               summary.Mean,
			"relative_spread":    relative,
			"outlier_chunks":     outliers,
			"relative_tolerance": d.tolerances.QuantityRelativeTolerance,
		}
		description := fmt.Sprintf("Quantity %q differs across %d chunks (%s)", name, len(obs), strings.Join(checks, ", "))
		out = append(out, d.build(model.ConflictQuantitativeMismatch, description, obs, severity, ctx)...)
	}
	return out
}

// withinTolerance reports whether v sits close enough to the median that no
// z-score can make it an outlier. A zero MAD otherwise turns any deviation
// into a large score.
func (d *Detector) withinTolerance(v, median float64) bool {
	deviation := math.Abs(v - median)
	if deviation <= d.tolerances.QuantityAbsoluteTolerance {
		return true
	}
	return median != 0 && deviation/math.Abs(median) <= d.tolerances.QuantityRelativeTolerance
}

// sameUnit reports whether every chunk tags the quantity with one unit.
// Mixed units are reported as inconsistent units instead.
func sameUnit(name string, data []*model.ExtractedData) bool {
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, rec := range data {
		if q, ok := rec.Quantities[name]; ok {
			seen.Add(q.Unit)
		}
	}
	return seen.Cardinality() <= 1
}

// inconsistentUnits flags quantities tagged with more than one unit string.
func (d *Detector) inconsistentUnits(data []*model.ExtractedData) []model.Conflict {
	var out []model.Conflict
	groups := make(map[string][]observation)
	for _, rec := range data {
		for name, q := range rec.Quantities {
			groups[name] = append(groups[name], observation{
				chunk: rec.ChunkID,
				value: q.Unit,
				text:  fmt.Sprintf("%s = %s", name, normalization.FormatQuantity(q)),
				rec:   rec,
			})
		}
	}
	for _, name := range sortedKeys(groups) {
		obs := groups[name]
		unitSet := mapset.NewThreadUnsafeSet[string]()
		dimensions := mapset.NewThreadUnsafeSet[string]()
		for _, o := range obs {
			u := o.value.(string)
			unitSet.Add(u)
			if unit, ok := units.Lookup(u); ok {
				dimensions.Add(unit.Dimension)
			} else {
				dimensions.Add("unknown:" + u)
			}
		}
		if unitSet.Cardinality() < 2 {
			continue
		}
		severity := 0.5
		if dimensions.Cardinality() > 1 {
			severity = 0.8
		}
		ctx := map[string]interface{}{
			"quantity": name,
			"units":    sortedSet(unitSet),
		}
		description := fmt.Sprintf("Quantity %q is reported in %d different units", name, unitSet.Cardinality())
		out = append(out, d.build(model.ConflictInconsistentUnits, description, obs, severity, ctx)...)
	}
	return out
}

func sortedSet(set mapset.Set[string]) []string {
	out := set.ToSlice()
	sort.Strings(out)
	return out
}
