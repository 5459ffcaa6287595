package conflicts

import (
	"fmt"
	"sort"

	"github.com/athapong/bim-synthesis/pkg/config"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/textutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// StatisticalConfidence is the confidence of a mean-based resolution.
const StatisticalConfidence = 0.7

// ResolveFunc settles one conflict. Returning a nil resolution and nil error
// leaves the conflict unresolved.
type ResolveFunc func(c model.Conflict, data []*model.ExtractedData) (*model.ConflictResolution, error)

// Resolver settles conflicts with one strategy per conflict type.
type Resolver struct {
	strategies map[model.ConflictType]ResolveFunc
	enabled    bool
	logger     *logrus.Logger
}

// NewResolver creates a resolver for cfg. Quantitative mismatches are always
// resolved by their mean; comprehensive and strict validation additionally
// settle qualitative and property contradictions by majority and entity and
// relationship conflicts by the most confident chunk.
func NewResolver(cfg config.Config) *Resolver {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	r := &Resolver{
		strategies: make(map[model.ConflictType]ResolveFunc),
		enabled:    cfg.EnableConflictResolution,
		logger:     logger,
	}
	r.Register(model.ConflictQuantitativeMismatch, ResolveMean)
	if cfg.ValidationLevel == model.ValidationComprehensive || cfg.ValidationLevel == model.ValidationStrict {
		majority := MajorityRule(cfg.Tolerances.MajorityThreshold)
		r.Register(model.ConflictQualitativeContradiction, majority)
		r.Register(model.ConflictPropertyContradiction, majority)
		r.Register(model.ConflictEntityMismatch, ResolveMostConfident)
		r.Register(model.ConflictRelationshipConflict, ResolveMostConfident)
	}
	return r
}

// WithLogger replaces the resolver's logger.
func (r *Resolver) WithLogger(logger *logrus.Logger) *Resolver {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Register installs fn as the strategy for a conflict type, replacing any
// previous one.
func (r *Resolver) Register(kind model.ConflictType, fn ResolveFunc) {
	r.strategies[kind] = fn
}

// Resolve returns at most one resolution per conflict, in conflict order.
// Strategy errors and panics leave the conflict unresolved.
func (r *Resolver) Resolve(conflicts []model.Conflict, data []*model.ExtractedData) []model.ConflictResolution {
	out := make([]model.ConflictResolution, 0, len(conflicts))
	if !r.enabled {
		return out
	}
	for _, c := range conflicts {
		fn, ok := r.strategies[c.Type]
		if !ok {
			continue
		}
		res, err := r.apply(fn, c, data)
		if err != nil {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"conflict_type": c.Type,
				"subject":       c.Subject(),
			}).Warn("Conflict left unresolved")
			continue
		}
		if res != nil {
			out = append(out, *res)
		}
	}
	return out
}

func (r *Resolver) apply(fn ResolveFunc, c model.Conflict, data []*model.ExtractedData) (res *model.ConflictResolution, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, errors.Errorf("resolution panicked: %v", p)
		}
	}()
	res, err = fn(c, data)
	if err == nil && res != nil {
		err = res.Validate()
	}
	return res, err
}

// ResolveMean settles a numeric conflict with the arithmetic mean of its values.
func ResolveMean(c model.Conflict, _ []*model.ExtractedData) (*model.ConflictResolution, error) {
	var sum float64
	n := 0
	for _, v := range c.ConflictingValues {
		f, ok := textutil.ToFloat(v)
		if !ok {
			return nil, errors.Errorf("non-numeric value %v", v)
		}
		sum += f
		n++
	}
	if n == 0 {
		return nil, errors.New("no values to average")
	}
	mean := sum / float64(n)
	reasoning := fmt.Sprintf("Averaged %d conflicting values to a mean of %g", n, mean)
	if subject := c.Subject(); subject != "" {
		reasoning = fmt.Sprintf("Averaged %d conflicting values of %q to a mean of %g", n, subject, mean)
	}
	return model.NewConflictResolution(&c, model.StrategyStatisticalAnalysis, mean, StatisticalConfidence, reasoning)
}

// MajorityRule settles a conflict with the value held by at least threshold
// of the chunks. Without such a majority the conflict stays unresolved.
func MajorityRule(threshold float64) ResolveFunc {
	return func(c model.Conflict, _ []*model.ExtractedData) (*model.ConflictResolution, error) {
		counts := make(map[string]int)
		first := make(map[string]interface{})
		for _, v := range c.ConflictingValues {
			key := canonicalText(v)
			counts[key]++
			if _, ok := first[key]; !ok {
				first[key] = v
			}
		}
		keys := sortedKeys(counts)
		sort.SliceStable(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })
		top := keys[0]
		share := float64(counts[top]) / float64(len(c.ConflictingValues))
		if share < threshold {
			return nil, nil
		}
		reasoning := fmt.Sprintf("%d of %d chunks agree on %v", counts[top], len(c.ConflictingValues), first[top])
		return model.NewConflictResolution(&c, model.StrategyMajorityRule, first[top], model.Clamp01(share), reasoning)
	}
}

// ResolveMostConfident settles a conflict with the value of the chunk whose
// evidence carries the highest confidence.
func ResolveMostConfident(c model.Conflict, _ []*model.ExtractedData) (*model.ConflictResolution, error) {
	best := -1
	bestConfidence := -1.0
	for i, chunk := range c.ConflictingChunks {
		conf := 0.0
		for _, ev := range c.Evidence {
			if ev.SourceChunkID == chunk {
				conf = ev.Confidence * ev.QualityScore
				break
			}
		}
		if conf > bestConfidence {
			best, bestConfidence = i, conf
		}
	}
	if best < 0 || bestConfidence <= 0 {
		return nil, nil
	}
	reasoning := fmt.Sprintf("Took the value reported by chunk %s, the most confident of %d sources", c.ConflictingChunks[best], len(c.ConflictingChunks))
	return model.NewConflictResolution(&c, model.StrategyConfidenceWeighted, c.ConflictingValues[best], model.Clamp01(bestConfidence), reasoning)
}
