// Package visualizer renders a building's spatial graph as a standalone
// D3.js page.
package visualizer

import (
	"bytes"
	"encoding/json"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/athapong/bim-synthesis/pkg/graph"
	"github.com/pkg/errors"
)

// Nodes are pulled into horizontal bands by hierarchy level so that sites
// sit above floors, floors above rooms and rooms above elements.
const d3Template = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <script src="https://d3js.org/d3.v7.min.js"></script>
    <style>
        body { margin: 0; font-family: Arial, sans-serif; }
        #graph { width: 100%; height: 100vh; background-color: #f5f5f5; }
        .node { stroke: #fff; stroke-width: 1.5px; }
        .link { stroke: #888; stroke-opacity: 0.7; }
        .link.adjacent { stroke-dasharray: 4 3; stroke: #c07020; }
        .node-label { font-size: 10px; pointer-events: none; }
        .controls {
            position: absolute; top: 10px; left: 10px;
            background-color: rgba(255,255,255,0.85);
            padding: 10px; border-radius: 5px;
            box-shadow: 0 0 10px rgba(0,0,0,0.1);
        }
    </style>
</head>
<body>
    <div id="graph"></div>
    <div class="controls">
        <h3>{{.Title}}</h3>
        <p>Elements: {{.NodeCount}}, Containment: {{.ContainsCount}}, Adjacency: {{.AdjacentCount}}</p>
        <div>
            <label for="level-filter">Show down to level:</label>
            <select id="level-filter">
                <option value="99">All</option>
            </select>
        </div>
    </div>

    <script>
        const graphData = {{.GraphData}};
        const bandHeight = 120;

        const simulation = d3.forceSimulation(graphData.nodes)
            .force("link", d3.forceLink(graphData.edges).id(d => d.id).distance(d => d.type === "contains" ? 90 : 50))
            .force("charge", d3.forceManyBody().strength(-250))
            .force("x", d3.forceX(window.innerWidth / 2).strength(0.05))
            .force("y", d3.forceY(d => 80 + d.level * bandHeight).strength(0.6));

        const svg = d3.select("#graph")
            .append("svg")
            .attr("width", "100%")
            .attr("height", "100%")
            .call(d3.zoom().on("zoom", (event) => g.attr("transform", event.transform)));

        svg.append("defs").append("marker")
            .attr("id", "arrow")
            .attr("viewBox", "0 -5 10 10")
            .attr("refX", 18)
            .attr("markerWidth", 6)
            .attr("markerHeight", 6)
            .attr("orient", "auto")
            .append("path")
            .attr("d", "M0,-5L10,0L0,5")
            .attr("fill", "#888");

        const g = svg.append("g");

        const nodeTypes = [...new Set(graphData.nodes.map(n => n.type))];
        const colorScale = d3.scaleOrdinal(d3.schemeCategory10).domain(nodeTypes);

        [...new Set(graphData.nodes.map(n => n.level))].sort((a, b) => a - b).forEach(level => {
            d3.select("#level-filter").append("option").attr("value", level).text(level);
        });

        const link = g.append("g")
            .selectAll("line")
            .data(graphData.edges)
            .enter()
            .append("line")
            .attr("class", d => "link " + d.type)
            .attr("stroke-width", d => 1 + Math.sqrt(d.weight))
            .attr("marker-end", d => d.type === "contains" ? "url(#arrow)" : null);

        const node = g.append("g")
            .selectAll("circle")
            .data(graphData.nodes)
            .enter()
            .append("circle")
            .attr("class", "node")
            .attr("r", d => Math.max(4, 12 - 2 * d.level))
            .attr("fill", d => colorScale(d.type))
            .call(d3.drag().on("start", dragstarted).on("drag", dragged).on("end", dragended));

        const label = g.append("g")
            .selectAll("text")
            .data(graphData.nodes)
            .enter()
            .append("text")
            .attr("class", "node-label")
            .attr("dx", 12)
            .attr("dy", ".35em")
            .text(d => d.label);

        node.append("title").text(d => d.label + " (" + d.type + ", from " + (d.sources || []).join(", ") + ")");
        link.append("title").text(d => d.type);

        simulation.on("tick", () => {
            link.attr("x1", d => d.source.x).attr("y1", d => d.source.y)
                .attr("x2", d => d.target.x).attr("y2", d => d.target.y);
            node.attr("cx", d => d.x).attr("cy", d => d.y);
            label.attr("x", d => d.x).attr("y", d => d.y);
        });

        d3.select("#level-filter").on("change", function() {
            const maxLevel = +this.value;
            const shown = d => d.level <= maxLevel ? "visible" : "hidden";
            node.style("visibility", shown);
            label.style("visibility", shown);
            link.style("visibility", d => d.source.level <= maxLevel && d.target.level <= maxLevel ? "visible" : "hidden");
        });

        function dragstarted(event, d) {
            if (!event.active) simulation.alphaTarget(0.3).restart();
            d.fx = d.x;
            d.fy = d.y;
        }

        function dragged(event, d) {
            d.fx = event.x;
            d.fy = event.y;
        }

        function dragended(event, d) {
            if (!event.active) simulation.alphaTarget(0);
            d.fx = null;
            d.fy = null;
        }
    </script>
</body>
</html>
`

var page = template.Must(template.New("d3").Parse(d3Template))

// D3Visualizer writes spatial graphs as HTML pages.
type D3Visualizer struct {
	outputPath string
	title      string
}

// NewD3Visualizer creates a visualizer writing to outputPath.
func NewD3Visualizer(outputPath string) *D3Visualizer {
	return &D3Visualizer{
		outputPath: outputPath,
		title:      "Building Spatial Graph",
	}
}

// WithTitle sets the page title.
func (v *D3Visualizer) WithTitle(title string) *D3Visualizer {
	if title != "" {
		v.title = title
	}
	return v
}

// Render writes the page for data to w.
func (v *D3Visualizer) Render(w io.Writer, data graph.Data) error {
	if data.Nodes == nil {
		data.Nodes = []graph.Node{}
	}
	if data.Edges == nil {
		data.Edges = []graph.Edge{}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encode graph")
	}

	counts := map[string]int{}
	for _, e := range data.Edges {
		counts[e.Type]++
	}
	view := struct {
		Title         string
		GraphData     template.JS
		NodeCount     int
		ContainsCount int
		AdjacentCount int
	}{
		Title:         v.title,
		GraphData:     template.JS(encoded),
		NodeCount:     len(data.Nodes),
		ContainsCount: counts["contains"],
		AdjacentCount: counts["adjacent"] / 2,
	}
	return errors.Wrap(page.Execute(w, view), "render graph page")
}

// Visualize renders data to the visualizer's output file.
func (v *D3Visualizer) Visualize(data graph.Data) error {
	if err := os.MkdirAll(filepath.Dir(v.outputPath), 0755); err != nil {
		return errors.Wrapf(err, "create directory for %s", v.outputPath)
	}
	var buf bytes.Buffer
	if err := v.Render(&buf, data); err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(v.outputPath, buf.Bytes(), 0644), "write %s", v.outputPath)
}
