package strategies

import (
	"context"
	"fmt"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/vocab"
	mapset "github.com/deckarep/golang-set/v2"
)

// MaterialSubgroupThreshold is the category size above which materials are
// split by strength class, thickness or finish.
const MaterialSubgroupThreshold = 3

var materialSubgroupFields = []string{"strengthClass", "thickness", "finish"}

var materialCategoryOrder = []string{
	vocab.MaterialConcrete,
	vocab.MaterialSteel,
	vocab.MaterialWood,
	vocab.MaterialMasonry,
	vocab.MaterialGlass,
	vocab.MaterialInsulation,
	vocab.MaterialComposite,
	vocab.MaterialOther,
}

// MaterialStrategy classifies the materials mentioned across chunks.
type MaterialStrategy struct{}

func (s *MaterialStrategy) Name() string { return "material_aggregation" }

// materialRecords collects material entities, the material property of
// elements and a chunk-level material property.
func materialRecords(data []*model.ExtractedData) ([]model.Entity, mapset.Set[string]) {
	var records []model.Entity
	contributing := mapset.NewThreadUnsafeSet[string]()
	add := func(name string, props map[string]interface{}, confidence float64, chunk string) {
		name = vocab.CanonicalMaterial(name)
		if name == "" {
			return
		}
		p := map[string]interface{}{"category": vocab.MaterialCategory(name)}
		for _, f := range materialSubgroupFields {
			if v, ok := props[f]; ok {
				p[f] = v
			}
		}
		records = append(records, model.Entity{
			Type:       "Material",
			Name:       name,
			Properties: p,
			Confidence: confidence,
			Source:     chunk,
		})
		contributing.Add(chunk)
	}

	for _, d := range data {
		for _, e := range d.Entities {
			if e.Type == "Material" {
				add(e.Name, e.Properties, e.Confidence, d.ChunkID)
				continue
			}
			if m, ok := e.Properties["material"].(string); ok {
				add(m, e.Properties, e.Confidence, d.ChunkID)
			}
		}
		if m, ok := d.Properties["material"].(string); ok {
			add(m, d.Properties, d.ExtractionConfidence, d.ChunkID)
		}
	}
	return records, contributing
}

func (s *MaterialStrategy) Aggregate(ctx context.Context, in Input) (*Output, error) {
	records, contributing := materialRecords(in.Data)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	byCategory := make(map[string][]model.Entity)
	for _, r := range records {
		c := r.Properties["category"].(string)
		byCategory[c] = append(byCategory[c], r)
	}

	materials := make(map[string]interface{}, len(byCategory))
	categoryCounts := make(map[string]int, len(byCategory))
	unique, composite, classified := 0, 0, 0
	for _, c := range materialCategoryOrder {
		group, ok := byCategory[c]
		if !ok {
			continue
		}
		merged := MergeEntities(group)
		unique += len(merged)
		categoryCounts[c] = len(merged)
		if c == vocab.MaterialComposite {
			composite += len(merged)
		}
		if c != vocab.MaterialOther {
			classified += len(merged)
		}

		names := make([]string, len(merged))
		for i, m := range merged {
			names[i] = m.Name
		}
		entry := map[string]interface{}{
			"count":       len(merged),
			"occurrences": len(group),
			"items":       merged,
			"names":       names,
		}
		if len(merged) > MaterialSubgroupThreshold {
			field, sub := subcategorize(merged, materialSubgroupFields)
			if field != "" {
				entry["subgrouped_by"] = field
				entry["subgroups"] = sub
			}
		}
		materials[c] = entry
	}

	byCategoryPercent := make(map[string]float64, len(categoryCounts))
	for c, n := range categoryCounts {
		byCategoryPercent[c] = percent(float64(n), float64(unique))
	}

	var confSum float64
	for _, r := range records {
		confSum += r.Confidence
	}
	meanRecord := 0.0
	classifiedShare := 0.0
	if len(records) > 0 {
		meanRecord = confSum / float64(len(records))
	}
	if unique > 0 {
		classifiedShare = float64(classified) / float64(unique)
	}
	confidence := 0.5*meanRecord + 0.3*diversity(in.Data, contributing) + 0.2*classifiedShare

	return &Output{
		Strategy: s.Name(),
		Structured: model.StructuredOutput{
			"materials": materials,
			"composition": map[string]interface{}{
				"composite_percent": percent(float64(composite), float64(unique)),
				"primary_percent":   percent(float64(unique-composite), float64(unique)),
				"by_category":       byCategoryPercent,
			},
			"summary": map[string]interface{}{
				"total_records":    len(records),
				"unique_materials": unique,
				"categories":       len(categoryCounts),
				"description":      fmt.Sprintf("%d distinct materials in %d categories", unique, len(categoryCounts)),
			},
		},
		Confidence: model.Clamp01(confidence),
		Algorithms: []string{"material_categorization", "entity_deduplication"},
	}, nil
}
