package storage

import (
	"testing"

	"github.com/athapong/bim-synthesis/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphStatements(t *testing.T) {
	data := graph.Data{
		Nodes: []graph.Node{
			{ID: "#F1", Label: "Level 1", Type: "Floor", Level: 1, Sources: []string{"c1"}},
			{ID: "#R1", Label: "Office", Type: "Room", Level: 3, Properties: map[string]interface{}{
				"area":     20.0,
				"occupied": true,
				"finishes": []string{"paint"},
			}},
			{ID: "#R2", Label: "Store", Type: "Room", Level: 3},
		},
		Edges: []graph.Edge{
			{Source: "#F1", Target: "#R1", Type: "contains", Weight: 1},
			{Source: "#R2", Target: "#R1", Type: "adjacent", Weight: 0.5},
			{Source: "#R1", Target: "#R2", Type: "adjacent", Weight: 0.5},
			{Source: "#R1", Target: "#R2", Type: "mentions", Weight: 1},
		},
	}

	statements := GraphStatements("q1", data)
	require.Len(t, statements, 5)

	floor := statements[0].Params
	assert.Equal(t, "#F1", floor["id"])
	assert.Equal(t, "q1", floor["query_id"])
	assert.Equal(t, int64(1), floor["level"])
	assert.Equal(t, []string{"c1"}, floor["sources"])

	room := statements[1].Params["properties"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"prop_area": 20.0, "prop_occupied": true}, room)
	assert.Equal(t, []string{}, statements[2].Params["sources"])

	assert.Contains(t, statements[3].Cypher, "MERGE (from)-[r:CONTAINS]->(to)")
	assert.Equal(t, "#F1", statements[3].Params["from"])

	assert.Contains(t, statements[4].Cypher, "ADJACENT_TO")
	assert.Equal(t, "#R1", statements[4].Params["from"])
	assert.Equal(t, "#R2", statements[4].Params["to"])
}
