package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGraphAddNodeMerges(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()

	require.NoError(t, g.AddNode(ctx, Node{ID: "#101", Type: "Room", Sources: []string{"c1"}, Properties: map[string]interface{}{"level": 1}}))
	require.NoError(t, g.AddNode(ctx, Node{ID: "#101", Type: "Room", Sources: []string{"c2", "c1"}, Properties: map[string]interface{}{"level": 2, "area": 20.0}}))

	node, err := g.GetNode(ctx, "#101")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, node.Sources)
	assert.Equal(t, 1, node.Properties["level"])
	assert.Equal(t, 20.0, node.Properties["area"])
	assert.Len(t, g.Nodes(), 1)

	assert.Error(t, g.AddNode(ctx, Node{}))
}

func TestMemoryGraphEdges(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGraph()
	for _, id := range []string{"b", "r1", "r2"} {
		require.NoError(t, g.AddNode(ctx, Node{ID: id}))
	}

	require.NoError(t, g.AddEdge(ctx, Edge{Source: "b", Target: "r1", Type: "contains", Weight: 1}))
	require.NoError(t, g.AddEdge(ctx, Edge{Source: "b", Target: "r1", Type: "contains", Weight: 0.5}))
	require.NoError(t, g.AddUndirected(ctx, Edge{Source: "r1", Target: "r2", Type: "adjacent_to", Weight: 1}))
	assert.Error(t, g.AddEdge(ctx, Edge{Source: "b", Target: "missing", Type: "contains"}))

	contains := g.Edges("contains")
	require.Len(t, contains, 1)
	assert.Equal(t, "b-contains-r1", contains[0].ID)
	assert.InDelta(t, 0.75, contains[0].Weight, 1e-9)
	assert.Len(t, g.Edges(""), 3)

	related, err := g.GetRelated(ctx, "r1", "", Both)
	require.NoError(t, err)
	assert.Len(t, related, 2)

	out, err := g.GetRelated(ctx, "b", "contains", Outgoing)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "r1", out[0].ID)

	assert.Equal(t, 1, g.Degree("r2", "adjacent_to"))
	assert.Equal(t, 0, g.Degree("missing", ""))
	assert.Equal(t, []string{"b"}, g.Roots("contains"))
	assert.True(t, g.HasNode("r2"))

	data := g.Data()
	assert.Len(t, data.Nodes, 3)
	assert.Len(t, data.Edges, 3)
}
