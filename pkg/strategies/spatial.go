package strategies

import (
	"context"
	"strconv"

	"github.com/athapong/bim-synthesis/pkg/graph"
	"github.com/athapong/bim-synthesis/pkg/graph/algorithms"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/vocab"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pkg/errors"
)

// Edge types of the spatial graph.
const (
	EdgeContains = "contains"
	EdgeAdjacent = "adjacent"
)

// hierarchy level per base type word; anything else is 5
var typeLevels = map[string]int{
	"site":     0,
	"building": 0,
	"floor":    1,
	"zone":     2,
	"room":     3,
	"wall":     4,
	"door":     4,
	"window":   4,
	"column":   4,
	"beam":     4,
	"slab":     4,
	"roof":     4,
	"stair":    4,
}

// LevelFor returns the hierarchy level of an entity type.
func LevelFor(entityType string) int {
	if base, ok := vocab.BaseTypeWord(entityType); ok {
		if level, ok := typeLevels[base]; ok {
			return level
		}
	}
	return 5
}

// SpatialStrategy builds containment and adjacency graphs of the building.
type SpatialStrategy struct{}

func (s *SpatialStrategy) Name() string { return "spatial_aggregation" }

// BuildGraph turns entities, relationships and spatial context into a graph
// with "contains" edges from parent to child and symmetric "adjacent" edges.
func BuildGraph(ctx context.Context, data []*model.ExtractedData) (*graph.MemoryGraph, mapset.Set[string], error) {
	g := graph.NewMemoryGraph()
	contributing := mapset.NewThreadUnsafeSet[string]()

	ensure := func(id, chunk string) error {
		if g.HasNode(id) {
			return g.AddNode(ctx, graph.Node{ID: id, Sources: []string{chunk}})
		}
		nodeType := "Unknown"
		if _, ok := vocab.BaseTypeWord(id); ok {
			nodeType = vocab.CanonicalEntityType(id)
		}
		return g.AddNode(ctx, graph.Node{ID: id, Label: id, Type: nodeType, Level: LevelFor(id), Sources: []string{chunk}})
	}

	for _, d := range data {
		for _, e := range d.Entities {
			if e.Type == "Material" || e.Key() == "" {
				continue
			}
			node := graph.Node{
				ID:         e.Key(),
				Label:      label(e),
				Type:       e.Type,
				Level:      LevelFor(e.Type),
				Properties: e.Properties,
				Sources:    []string{d.ChunkID},
			}
			if err := g.AddNode(ctx, node); err != nil {
				return nil, nil, err
			}
			contributing.Add(d.ChunkID)
		}
	}

	for _, d := range data {
		for _, r := range d.Relationships {
			if r.Source == "" || r.Target == "" || r.Source == r.Target {
				continue
			}
			if err := ensure(r.Source, d.ChunkID); err != nil {
				return nil, nil, err
			}
			if err := ensure(r.Target, d.ChunkID); err != nil {
				return nil, nil, err
			}
			edge := graph.Edge{Source: r.Source, Target: r.Target, Weight: r.Confidence, Sources: []string{d.ChunkID}}
			var err error
			switch r.Type {
			case "contains":
				edge.Type = EdgeContains
				err = g.AddEdge(ctx, edge)
			case "part_of":
				edge.Type = EdgeContains
				edge.Source, edge.Target = r.Target, r.Source
				err = g.AddEdge(ctx, edge)
			case "adjacent_to", "connected_to":
				edge.Type = EdgeAdjacent
				err = g.AddUndirected(ctx, edge)
			default:
				continue
			}
			if err != nil {
				return nil, nil, errors.Wrapf(err, "chunk %s", d.ChunkID)
			}
			contributing.Add(d.ChunkID)
		}

		for _, id := range sortedKeys(d.SpatialContext) {
			entry := d.SpatialContext[id]
			parent := entry.Parent
			if parent == "" {
				parent = entry.Space
			}
			if parent == "" || parent == id {
				continue
			}
			if err := ensure(id, d.ChunkID); err != nil {
				return nil, nil, err
			}
			if err := ensure(parent, d.ChunkID); err != nil {
				return nil, nil, err
			}
			if err := g.AddEdge(ctx, graph.Edge{Source: parent, Target: id, Type: EdgeContains, Weight: 1, Sources: []string{d.ChunkID}}); err != nil {
				return nil, nil, err
			}
			contributing.Add(d.ChunkID)
		}
	}
	return g, contributing, nil
}

func (s *SpatialStrategy) Aggregate(ctx context.Context, in Input) (*Output, error) {
	g, contributing, err := BuildGraph(ctx, in.Data)
	if err != nil {
		return nil, errors.Wrap(err, "build spatial graph")
	}
	traversal := algorithms.NewGraphTraversal(g)
	nodes := g.Nodes()

	levels := make(map[string][]string)
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
		key := strconv.Itoa(n.Level)
		levels[key] = append(levels[key], n.ID)
	}

	// containment
	roots := g.Roots(EdgeContains)
	depths, err := traversal.Depths(ctx, roots, EdgeContains)
	if err != nil {
		return nil, err
	}
	maxDepth := 0
	for _, d := range depths {
		if d > maxDepth {
			maxDepth = d
		}
	}
	children := make(map[string][]string)
	hasParent := mapset.NewThreadUnsafeSet[string]()
	for _, e := range g.Edges(EdgeContains) {
		children[e.Source] = append(children[e.Source], e.Target)
		hasParent.Add(e.Target)
	}

	// adjacency
	adjacentEdges := len(g.Edges(EdgeAdjacent)) / 2
	connected, degreeSum := 0, 0
	mostConnected, maxConnections := "", 0
	for _, n := range nodes {
		degree := g.Degree(n.ID, EdgeAdjacent)
		if degree == 0 {
			continue
		}
		connected++
		degreeSum += degree
		if degree > maxConnections {
			mostConnected, maxConnections = n.ID, degree
		}
	}
	averageConnections := 0.0
	if connected > 0 {
		averageConnections = float64(degreeSum) / float64(connected)
	}
	components, err := traversal.Components(ctx, ids, "")
	if err != nil {
		return nil, err
	}

	// coverage over known nodes
	withCoordinates := mapset.NewThreadUnsafeSet[string]()
	for _, d := range in.Data {
		for id, entry := range d.SpatialContext {
			if len(entry.Coordinates) > 0 && g.HasNode(id) {
				withCoordinates.Add(id)
			}
		}
	}
	ratio := func(n int) float64 {
		if len(nodes) == 0 {
			return 0
		}
		return float64(n) / float64(len(nodes))
	}
	coordinateCoverage := ratio(withCoordinates.Cardinality())
	parentCoverage := ratio(hasParent.Cardinality())
	childrenCoverage := ratio(len(children))

	confidence := 0.4*meanConfidence(in.Data) +
		0.2*diversity(in.Data, contributing) +
		0.2*(coordinateCoverage+parentCoverage+childrenCoverage)/3
	if len(children) > 0 {
		confidence += 0.1
	}
	if adjacentEdges > 0 {
		confidence += 0.1
	}

	return &Output{
		Strategy: s.Name(),
		Structured: model.StructuredOutput{
			"hierarchy": map[string]interface{}{
				"levels":    levels,
				"roots":     roots,
				"children":  children,
				"depths":    depths,
				"max_depth": maxDepth,
			},
			"containment": map[string]interface{}{
				"edges":   len(g.Edges(EdgeContains)),
				"parents": len(children),
			},
			"adjacency": map[string]interface{}{
				"edges":               adjacentEdges,
				"connected_nodes":     connected,
				"average_connections": averageConnections,
				"most_connected":      mostConnected,
				"max_connections":     maxConnections,
			},
			"connectivity": map[string]interface{}{
				"components": len(components),
			},
			"coverage": map[string]interface{}{
				"coordinates": coordinateCoverage,
				"parent":      parentCoverage,
				"children":    childrenCoverage,
			},
			"graph": g.Data(),
		},
		Confidence: model.Clamp01(confidence),
		Algorithms: []string{"spatial_hierarchy", "containment_graph", "adjacency_graph", "bfs_traversal"},
	}, nil
}
