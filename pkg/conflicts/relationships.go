package conflicts

import (
	"fmt"
	"strings"

	"github.com/athapong/bim-synthesis/pkg/model"
	mapset "github.com/deckarep/golang-set/v2"
)

var symmetricRelations = mapset.NewSet[string]("adjacent_to", "connected_to")

// orient rewrites part_of into the equivalent contains so both readings of a
// containment compare equal.
func orient(r model.Relationship) model.Relationship {
	if r.Type == "part_of" {
		return model.Relationship{Type: "contains", Source: r.Target, Target: r.Source, Confidence: r.Confidence}
	}
	return r
}

// relationships groups relationships by unordered endpoint pair and flags
// pairs whose relationship types diverge between chunks.
func (d *Detector) relationships(data []*model.ExtractedData) []model.Conflict {
	groups := make(map[string][]observation)
	for _, rec := range data {
		perPair := make(map[string]mapset.Set[string])
		for _, raw := range rec.Relationships {
			r := orient(raw)
			a, b := r.Source, r.Target
			if a > b {
				a, b = b, a
			}
			pair := a + "<->" + b
			label := r.Type
			if !symmetricRelations.Contains(r.Type) {
				label = r.Type + ":" + r.Source + "->" + r.Target
			}
			if perPair[pair] == nil {
				perPair[pair] = mapset.NewThreadUnsafeSet[string]()
			}
			perPair[pair].Add(label)
		}
		for pair, labels := range perPair {
			value := strings.Join(sortedSet(labels), "|")
			groups[pair] = append(groups[pair], observation{chunk: rec.ChunkID, value: value, text: pair + ": " + value, rec: rec})
		}
	}

	var out []model.Conflict
	for _, pair := range sortedKeys(groups) {
		obs := groups[pair]
		if len(obs) < 2 {
			continue
		}
		values := distinctTexts(obs)
		if len(values) < 2 {
			continue
		}
		out = append(out, d.build(model.ConflictRelationshipConflict,
			fmt.Sprintf("Relationship between %s differs across chunks", pair),
			obs, relationshipSeverity,
			map[string]interface{}{"pair": pair, "values": values})...)
	}
	return out
}
