package strategies

import (
	"context"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/stats"
	"github.com/athapong/bim-synthesis/pkg/textutil"
	mapset "github.com/deckarep/golang-set/v2"
	"gonum.org/v1/gonum/floats"
)

// Aggregation operations.
const (
	OpSum             = "sum"
	OpWeightedAverage = "weighted_average"
	OpSingle          = "single"
)

// Names containing one of these words are additive.
var sumKeywords = mapset.NewSet("count", "quantity", "area", "volume", "length", "height", "width")

// OperationFor picks how the values of one quantity name are combined.
func OperationFor(name string, intent model.QueryIntent, values int) string {
	if values == 1 {
		return OpSingle
	}
	if intent == model.IntentCost {
		return OpSum
	}
	for _, w := range textutil.Words(name) {
		if sumKeywords.Contains(w) {
			return OpSum
		}
	}
	return OpWeightedAverage
}

// QuantityStrategy groups same-named quantities across chunks.
type QuantityStrategy struct{}

func (s *QuantityStrategy) Name() string { return "quantity_aggregation" }

type sample struct {
	value      float64
	unit       string
	confidence float64
	chunk      string
}

func (s *QuantityStrategy) Aggregate(ctx context.Context, in Input) (*Output, error) {
	groups := make(map[string][]sample)
	for _, d := range in.Data {
		for name, q := range d.Quantities {
			groups[name] = append(groups[name], sample{
				value:      q.Value,
				unit:       q.Unit,
				confidence: d.ExtractionConfidence,
				chunk:      d.ChunkID,
			})
		}
	}

	contributing := mapset.NewThreadUnsafeSet[string]()
	operations := make(map[string]int)
	quantities := make(map[string]interface{}, len(groups))
	consistentUnits := true
	multiSource := false

	for _, name := range sortedKeys(groups) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		group := groups[name]
		values := make([]float64, len(group))
		weights := make([]float64, len(group))
		units := mapset.NewThreadUnsafeSet[string]()
		sources := mapset.NewThreadUnsafeSet[string]()
		for i, smp := range group {
			values[i] = smp.value
			weights[i] = smp.confidence
			if smp.unit != "" {
				units.Add(smp.unit)
			}
			sources.Add(smp.chunk)
			contributing.Add(smp.chunk)
		}

		op := OperationFor(name, in.Intent, len(values))
		var value float64
		switch op {
		case OpSingle:
			value = values[0]
		case OpSum:
			value = floats.Sum(values)
		default:
			value = stats.WeightedMean(values, weights)
		}
		operations[op]++
		if len(values) > 1 {
			multiSource = true
		}

		summary := stats.Summarize(values)
		entry := map[string]interface{}{
			"operation": op,
			"value":     value,
			"count":     len(values),
			"min":       summary.Min,
			"max":       summary.Max,
			"std_dev":   summary.StdDev,
			"sources":   sortedSet(sources),
		}
		switch units.Cardinality() {
		case 0:
		case 1:
			entry["unit"] = sortedSet(units)[0]
		default:
			entry["units"] = sortedSet(units)
			consistentUnits = false
		}
		if res, ok := resolutionFor(in.Resolutions, model.ConflictQuantitativeMismatch, name); ok {
			entry["resolved_value"] = res.ResolvedValue
			entry["resolution_strategy"] = string(res.Strategy)
		}
		quantities[name] = entry
	}

	confidence := 0.6*meanConfidence(in.Data) + 0.2*diversity(in.Data, contributing)
	if len(groups) > 0 && consistentUnits {
		confidence += 0.1
	}
	if multiSource {
		confidence += 0.1
	}

	algorithms := []string{"quantity_grouping"}
	for _, op := range []string{OpSum, OpWeightedAverage, OpSingle} {
		if operations[op] > 0 {
			algorithms = append(algorithms, op)
		}
	}

	return &Output{
		Strategy: s.Name(),
		Structured: model.StructuredOutput{
			"quantities": quantities,
			"summary": map[string]interface{}{
				"total_quantities": len(groups),
				"operations":       operations,
				"sources":          contributing.Cardinality(),
			},
		},
		Confidence: model.Clamp01(confidence),
		Algorithms: algorithms,
	}, nil
}
