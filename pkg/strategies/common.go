package strategies

import (
	"sort"

	"github.com/athapong/bim-synthesis/pkg/model"
	mapset "github.com/deckarep/golang-set/v2"
)

func meanConfidence(data []*model.ExtractedData) float64 {
	var sum float64
	n := 0
	for _, d := range data {
		if d == nil {
			continue
		}
		sum += d.ExtractionConfidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// diversity is the share of chunks that contributed to the answer.
func diversity(data []*model.ExtractedData, contributing mapset.Set[string]) float64 {
	if len(data) == 0 {
		return 0
	}
	return model.Clamp01(float64(contributing.Cardinality()) / float64(len(data)))
}

func sortedSet(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// resolutionFor returns the resolution of a conflict of the given type
// about subject.
func resolutionFor(resolutions []model.ConflictResolution, kind model.ConflictType, subject string) (model.ConflictResolution, bool) {
	for _, r := range resolutions {
		if r.Conflict.Type == kind && r.Conflict.Subject() == subject {
			return r, true
		}
	}
	return model.ConflictResolution{}, false
}

func percent(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}
