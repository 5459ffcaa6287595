package strategies

import (
	"context"
	"fmt"

	"github.com/athapong/bim-synthesis/pkg/model"
	mapset "github.com/deckarep/golang-set/v2"
)

// SubcategoryThreshold is the group size above which components are split
// further by material, function or location.
const SubcategoryThreshold = 5

var subcategoryFields = []string{"material", "function", "location"}

// ComponentStrategy deduplicates building elements and groups them by type.
type ComponentStrategy struct{}

func (s *ComponentStrategy) Name() string { return "component_aggregation" }

func (s *ComponentStrategy) Aggregate(ctx context.Context, in Input) (*Output, error) {
	var raw []model.Entity
	contributing := mapset.NewThreadUnsafeSet[string]()
	for _, d := range in.Data {
		for _, e := range d.Entities {
			if e.Type == "Material" {
				continue
			}
			if e.Source == "" {
				e.Source = d.ChunkID
			}
			raw = append(raw, e)
			contributing.Add(d.ChunkID)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := MergeEntities(raw)
	byType := make(map[string][]MergedEntity)
	for _, m := range merged {
		t := m.Type
		if t == "" {
			t = "Unknown"
		}
		byType[t] = append(byType[t], m)
	}

	categories := make(map[string]interface{}, len(byType))
	for _, t := range sortedKeys(byType) {
		group := byType[t]
		items := make([]string, len(group))
		for i, m := range group {
			items[i] = label(m.Entity)
		}
		category := map[string]interface{}{
			"count": len(group),
			"items": items,
		}
		if len(group) > SubcategoryThreshold {
			field, sub := subcategorize(group, subcategoryFields)
			if field != "" {
				category["subcategorized_by"] = field
				category["subcategories"] = sub
			}
		}
		categories[t] = category
	}

	completeness, overall := componentCompleteness(byType)

	var confSum float64
	for _, m := range merged {
		confSum += m.Confidence
	}
	meanEntity := 0.0
	if len(merged) > 0 {
		meanEntity = confSum / float64(len(merged))
	}
	confidence := 0.5*meanEntity + 0.2*diversity(in.Data, contributing) + 0.2*overall
	if len(raw) > len(merged) {
		confidence += 0.1
	}

	return &Output{
		Strategy: s.Name(),
		Structured: model.StructuredOutput{
			"components":   merged,
			"categories":   categories,
			"completeness": completeness,
			"summary": map[string]interface{}{
				"total_raw":         len(raw),
				"unique":            len(merged),
				"duplicates_merged": len(raw) - len(merged),
				"types":             len(byType),
			},
		},
		Confidence: model.Clamp01(confidence),
		Algorithms: []string{"entity_deduplication", "jaccard_similarity", "type_categorization"},
	}, nil
}

func label(e model.Entity) string {
	switch {
	case e.Name != "":
		return e.Name
	case e.ID != "":
		return e.ID
	}
	return e.Type
}

// subcategorize splits a group by the first field any member carries.
// Members without it land in "unspecified".
func subcategorize(group []MergedEntity, fields []string) (string, map[string][]string) {
	for _, field := range fields {
		present := false
		for _, m := range group {
			if _, ok := m.Properties[field]; ok {
				present = true
				break
			}
		}
		if !present {
			continue
		}
		sub := make(map[string][]string)
		for _, m := range group {
			key := "unspecified"
			if v, ok := m.Properties[field]; ok {
				key = fmt.Sprint(v)
			}
			sub[key] = append(sub[key], label(m.Entity))
		}
		return field, sub
	}
	return "", nil
}

// componentCompleteness reports, per type, the share of entities carrying
// an id and each property, and overall the share with any property.
func componentCompleteness(byType map[string][]MergedEntity) (map[string]interface{}, float64) {
	perType := make(map[string]interface{}, len(byType))
	total, withProps := 0, 0
	for t, group := range byType {
		withID := 0
		counts := make(map[string]int)
		for _, m := range group {
			total++
			if m.ID != "" {
				withID++
			}
			if len(m.Properties) > 0 {
				withProps++
			}
			for k := range m.Properties {
				counts[k]++
			}
		}
		coverage := make(map[string]float64, len(counts))
		for k, n := range counts {
			coverage[k] = float64(n) / float64(len(group))
		}
		perType[t] = map[string]interface{}{
			"entities":          len(group),
			"with_id":           float64(withID) / float64(len(group)),
			"property_coverage": coverage,
		}
	}
	overall := 0.0
	if total > 0 {
		overall = float64(withProps) / float64(total)
	}
	return map[string]interface{}{
		"by_type": perType,
		"overall": overall,
	}, overall
}
