package conflicts

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/textutil"
	"github.com/athapong/bim-synthesis/pkg/vocab"
	mapset "github.com/deckarep/golang-set/v2"
)

const (
	antonymSeverity         = 0.6
	booleanSeverity         = 0.7
	entityPropertySeverity  = 0.5
	entityTypeSeverity      = 0.6
	relationshipSeverity    = 0.5
	spatialLevelSeverity    = 0.6
	spatialCoordinateOffset = 0.3
)

// canonicalText renders a property value for comparison.
func canonicalText(v interface{}) string {
	switch val := v.(type) {
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%g", val)
	}
	return textutil.Fold(fmt.Sprintf("%v", v))
}

// antonymClash returns the antonym pair that splits the observations, if any.
func antonymClash(obs []observation) (string, bool) {
	words := make([]mapset.Set[string], len(obs))
	for i, o := range obs {
		words[i] = textutil.WordSet(canonicalText(o.value))
	}
	for _, pair := range vocab.Antonyms {
		var hasA, hasB bool
		for _, w := range words {
			a, b := w.Contains(pair[0]), w.Contains(pair[1])
			if a && !b {
				hasA = true
			}
			if b && !a {
				hasB = true
			}
		}
		if hasA && hasB {
			return pair[0] + "/" + pair[1], true
		}
	}
	return "", false
}

func distinctTexts(obs []observation) []string {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, o := range obs {
		set.Add(canonicalText(o.value))
	}
	out := set.ToSlice()
	sort.Strings(out)
	return out
}

func allBool(obs []observation) bool {
	for _, o := range obs {
		if _, ok := o.value.(bool); !ok {
			return false
		}
	}
	return true
}

// qualitative compares same-named top-level properties. Only antonymous or
// opposite boolean values are contradictions; other wording differences are
// left alone.
func (d *Detector) qualitative(data []*model.ExtractedData) []model.Conflict {
	var out []model.Conflict
	groups := make(map[string][]observation)
	for _, rec := range data {
		for key, v := range rec.Properties {
			groups[key] = append(groups[key], observation{
				chunk: rec.ChunkID,
				value: v,
				text:  fmt.Sprintf("%s: %v", key, v),
				rec:   rec,
			})
		}
	}
	for _, key := range sortedKeys(groups) {
		obs := groups[key]
		if len(obs) < 2 {
			continue
		}
		texts := distinctTexts(obs)
		if len(texts) < 2 {
			continue
		}
		pair, ok := antonymClash(obs)
		severity := antonymSeverity
		if allBool(obs) {
			pair, ok = "true/false", true
			severity = booleanSeverity
		}
		if !ok {
			continue
		}
		ctx := map[string]interface{}{"property": key, "values": texts, "antonyms": pair}
		out = append(out, d.build(model.ConflictQualitativeContradiction,
			fmt.Sprintf("Property %q is contradictory across chunks (%s)", key, pair),
			obs, severity, ctx)...)
	}
	return out
}

var identityFields = mapset.NewSet[string]("id", "name", "type", "guid", "globalId", "tag", "mark", "_merged_from")

// entities compares entities sharing an id or name.
func (d *Detector) entities(data []*model.ExtractedData) []model.Conflict {
	type sighting struct {
		rec    *model.ExtractedData
		entity model.Entity
	}
	groups := make(map[string][]sighting)
	for _, rec := range data {
		best := make(map[string]model.Entity)
		order := make([]string, 0)
		for _, e := range rec.Entities {
			key := e.Key()
			if key == "" {
				continue
			}
			prev, seen := best[key]
			if !seen {
				order = append(order, key)
			}
			if !seen || e.Confidence > prev.Confidence {
				best[key] = e
			}
		}
		for _, key := range order {
			groups[key] = append(groups[key], sighting{rec: rec, entity: best[key]})
		}
	}

	var out []model.Conflict
	for _, key := range sortedKeys(groups) {
		sightings := groups[key]
		if len(sightings) < 2 {
			continue
		}

		typeObs := make([]observation, len(sightings))
		for i, s := range sightings {
			typeObs[i] = observation{chunk: s.rec.ChunkID, value: s.entity.Type, text: fmt.Sprintf("%s is a %s", key, s.entity.Type), rec: s.rec}
		}
		if types := distinctTexts(typeObs); len(types) > 1 {
			severity := math.Min(0.9, entityTypeSeverity+0.1*float64(len(types)-2))
			out = append(out, d.build(model.ConflictEntityMismatch,
				fmt.Sprintf("Entity %q has conflicting types %s", key, strings.Join(types, ", ")),
				typeObs, severity, map[string]interface{}{"entity": key, "field": "type", "values": types})...)
		}

		props := make(map[string][]observation)
		for _, s := range sightings {
			for p, v := range s.entity.Properties {
				if identityFields.Contains(p) {
					continue
				}
				props[p] = append(props[p], observation{chunk: s.rec.ChunkID, value: v, text: fmt.Sprintf("%s.%s = %v", key, p, v), rec: s.rec})
			}
		}
		for _, p := range sortedKeys(props) {
			obs := props[p]
			if len(obs) < 2 {
				continue
			}
			values := distinctTexts(obs)
			if len(values) < 2 {
				continue
			}
			severity := entityPropertySeverity
			if allBool(obs) {
				severity = booleanSeverity
			}
			out = append(out, d.build(model.ConflictPropertyContradiction,
				fmt.Sprintf("Entity %q has conflicting %s values %s", key, p, strings.Join(values, ", ")),
				obs, severity, map[string]interface{}{"entity": key, "property": p, "values": values})...)
		}
	}
	return out
}
