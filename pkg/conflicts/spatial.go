package conflicts

import (
	"fmt"
	"math"

	"github.com/athapong/bim-synthesis/pkg/model"
)

// spatial compares the spatial entries of the same entity. Coordinates
// further apart than the absolute tolerance, or differing levels, are
// entity mismatches.
func (d *Detector) spatial(data []*model.ExtractedData) []model.Conflict {
	coords := make(map[string][]observation)
	levels := make(map[string][]observation)
	for _, rec := range data {
		for id, entry := range rec.SpatialContext {
			if len(entry.Coordinates) > 0 {
				coords[id] = append(coords[id], observation{chunk: rec.ChunkID, value: entry.Coordinates, text: fmt.Sprintf("%s at %v", id, entry.Coordinates), rec: rec})
			}
			if entry.Level != "" {
				levels[id] = append(levels[id], observation{chunk: rec.ChunkID, value: entry.Level, text: fmt.Sprintf("%s on level %s", id, entry.Level), rec: rec})
			}
		}
	}

	var out []model.Conflict
	for _, id := range sortedKeys(coords) {
		obs := coords[id]
		if len(obs) < 2 {
			continue
		}
		dist := 0.0
		for i := range obs {
			for j := i + 1; j < len(obs); j++ {
				dist = math.Max(dist, distance(obs[i].value.([]float64), obs[j].value.([]float64)))
			}
		}
		if dist <= d.tolerances.QuantityAbsoluteTolerance {
			continue
		}
		out = append(out, d.build(model.ConflictEntityMismatch,
			fmt.Sprintf("Entity %q is located %.2f apart across chunks", id, dist),
			obs, spatialCoordinateOffset+dist/10,
			map[string]interface{}{"entity": id, "field": "coordinates", "distance": dist})...)
	}
	for _, id := range sortedKeys(levels) {
		obs := levels[id]
		if len(obs) < 2 {
			continue
		}
		values := distinctTexts(obs)
		if len(values) < 2 {
			continue
		}
		out = append(out, d.build(model.ConflictEntityMismatch,
			fmt.Sprintf("Entity %q is placed on different levels", id),
			obs, spatialLevelSeverity,
			map[string]interface{}{"entity": id, "field": "level", "values": values})...)
	}
	return out
}

// distance is the Euclidean distance over the shared axes; a missing axis
// counts as a divergence of its full value.
func distance(a, b []float64) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		var x, y float64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		sum += (x - y) * (x - y)
	}
	return math.Sqrt(sum)
}
