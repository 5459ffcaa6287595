package visualizer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/athapong/bim-synthesis/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() graph.Data {
	return graph.Data{
		Nodes: []graph.Node{
			{ID: "#F1", Label: "Level 1", Type: "Floor", Level: 1},
			{ID: "#R1", Label: "Office <A>", Type: "Room", Level: 3},
			{ID: "#R2", Label: "Office B", Type: "Room", Level: 3},
		},
		Edges: []graph.Edge{
			{ID: "#F1-contains-#R1", Source: "#F1", Target: "#R1", Type: "contains", Weight: 1},
			{ID: "#R1-adjacent-#R2", Source: "#R1", Target: "#R2", Type: "adjacent", Weight: 1},
			{ID: "#R2-adjacent-#R1", Source: "#R2", Target: "#R1", Type: "adjacent", Weight: 1},
		},
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewD3Visualizer("unused.html").WithTitle("Tower A").Render(&buf, sample()))
	page := buf.String()

	assert.Contains(t, page, "<title>Tower A</title>")
	assert.Contains(t, page, "Elements: 3, Containment: 1, Adjacency: 1")
	assert.Contains(t, page, `const graphData = {"nodes":[`)
	assert.NotContains(t, page, "Office <A>")
}

func TestRenderEmptyGraph(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewD3Visualizer("unused.html").Render(&buf, graph.Data{}))
	assert.Contains(t, buf.String(), `{"nodes":[],"edges":[]`)
}

func TestVisualizeWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site", "graph.html")
	require.NoError(t, NewD3Visualizer(path).Visualize(sample()))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(written), "Building Spatial Graph")
}
