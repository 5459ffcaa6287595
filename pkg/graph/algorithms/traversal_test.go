package algorithms

import (
	"context"
	"testing"

	"github.com/athapong/bim-synthesis/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func building(t *testing.T) *graph.MemoryGraph {
	t.Helper()
	ctx := context.Background()
	g := graph.NewMemoryGraph()
	for _, id := range []string{"building", "floor1", "room1", "room2", "door", "shed"} {
		require.NoError(t, g.AddNode(ctx, graph.Node{ID: id}))
	}
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Source: "building", Target: "floor1", Type: "contains"}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Source: "floor1", Target: "room1", Type: "contains"}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Source: "floor1", Target: "room2", Type: "contains"}))
	require.NoError(t, g.AddEdge(ctx, graph.Edge{Source: "room1", Target: "door", Type: "contains"}))
	return g
}

func ids(nodes []graph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestTraverse(t *testing.T) {
	ctx := context.Background()
	tr := NewGraphTraversal(building(t))

	bfs, err := tr.Traverse(ctx, "building", 2, BFS, "contains", graph.Outgoing)
	require.NoError(t, err)
	assert.Equal(t, []string{"building", "floor1", "room1", "room2"}, ids(bfs))

	dfs, err := tr.Traverse(ctx, "building", 5, DFS, "contains", graph.Outgoing)
	require.NoError(t, err)
	assert.Equal(t, []string{"building", "floor1", "room1", "door", "room2"}, ids(dfs))

	_, err = tr.Traverse(ctx, "building", 1, TraversalType("random"), "", graph.Both)
	assert.Error(t, err)

	_, err = tr.Traverse(ctx, "nowhere", 1, BFS, "", graph.Both)
	assert.Error(t, err)
}

func TestDepthsAndComponents(t *testing.T) {
	ctx := context.Background()
	tr := NewGraphTraversal(building(t))

	depths, err := tr.Depths(ctx, []string{"building"}, "contains")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"building": 0, "floor1": 1, "room1": 2, "room2": 2, "door": 3}, depths)

	components, err := tr.Components(ctx, []string{"building", "floor1", "room1", "room2", "door", "shed"}, "contains")
	require.NoError(t, err)
	require.Len(t, components, 2)
	assert.Len(t, components[0], 5)
	assert.Equal(t, []string{"shed"}, components[1])
}

func TestTraverseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGraphTraversal(building(t)).Traverse(ctx, "building", 3, BFS, "", graph.Both)
	assert.ErrorIs(t, err, context.Canceled)
}
