package strategies

import (
	"fmt"
	"sort"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/textutil"
	mapset "github.com/deckarep/golang-set/v2"
)

// NameSimilarity is the word Jaccard similarity at which two unidentified
// entities are considered the same.
const NameSimilarity = 0.8

// identifierFields are properties that identify an element across chunks.
var identifierFields = []string{"guid", "tag", "mark"}

// MergedEntity is one entity assembled from the near-duplicates found across
// chunks.
type MergedEntity struct {
	model.Entity
	MergedFrom int      `json:"_merged_from"`
	Sources    []string `json:"sources"`
}

func sameEntity(a, b model.Entity) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	if a.Name != "" && b.Name != "" && textutil.Jaccard(a.Name, b.Name) >= NameSimilarity {
		return true
	}
	if a.Type == "" || a.Type != b.Type {
		return false
	}
	for _, field := range identifierFields {
		av, aok := a.Properties[field]
		bv, bok := b.Properties[field]
		if aok && bok && fmt.Sprint(av) != "" && fmt.Sprint(av) == fmt.Sprint(bv) {
			return true
		}
	}
	return false
}

// clusterID returns the id carried by a cluster's members, if any.
func clusterID(cluster []model.Entity) string {
	for _, member := range cluster {
		if member.ID != "" {
			return member.ID
		}
	}
	return ""
}

// MergeEntities collapses near-duplicate entities: same id, else names with
// word similarity of at least NameSimilarity, else the same type sharing a
// guid, tag or mark. A cluster never holds two different ids. Clusters keep
// first-seen order.
func MergeEntities(entities []model.Entity) []MergedEntity {
	var clusters [][]model.Entity
	for _, e := range entities {
		placed := false
		for i, cluster := range clusters {
			id := clusterID(cluster)
			if e.ID != "" && id != "" && id != e.ID {
				continue
			}
			for _, member := range cluster {
				if sameEntity(member, e) {
					clusters[i] = append(clusters[i], e)
					placed = true
					break
				}
			}
			if placed {
				break
			}
		}
		if !placed {
			clusters = append(clusters, []model.Entity{e})
		}
	}

	merged := make([]MergedEntity, 0, len(clusters))
	for _, cluster := range clusters {
		merged = append(merged, mergeCluster(cluster))
	}
	return merged
}

// mergeCluster starts from the most confident member and folds in the
// others. Differing string values resolve to the longest.
func mergeCluster(cluster []model.Entity) MergedEntity {
	base := 0
	for i, e := range cluster {
		if e.Confidence > cluster[base].Confidence {
			base = i
		}
	}
	out := cluster[base].Clone()
	if out.Properties == nil {
		out.Properties = make(map[string]interface{})
	}
	sources := mapset.NewThreadUnsafeSet[string]()

	for i, e := range cluster {
		if e.Source != "" {
			sources.Add(e.Source)
		}
		if i == base {
			continue
		}
		if out.ID == "" {
			out.ID = e.ID
		}
		if len(e.Name) > len(out.Name) {
			out.Name = e.Name
		}
		if out.Type == "" {
			out.Type = e.Type
		}
		for k, v := range e.Properties {
			current, ok := out.Properties[k]
			if !ok {
				out.Properties[k] = v
				continue
			}
			cs, cok := current.(string)
			vs, vok := v.(string)
			if cok && vok && len(vs) > len(cs) {
				out.Properties[k] = vs
			}
		}
	}

	src := sources.ToSlice()
	sort.Strings(src)
	return MergedEntity{Entity: out, MergedFrom: len(cluster), Sources: src}
}
