package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MemoryGraph implements Graph with in-memory storage. Nodes and edges keep
// their insertion order.
type MemoryGraph struct {
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string
	out       map[string][]string // node id -> outgoing edge ids
	in        map[string][]string // node id -> incoming edge ids
	mutex     sync.RWMutex
	logger    *logrus.Logger
}

// NewMemoryGraph creates an empty graph.
func NewMemoryGraph() *MemoryGraph {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &MemoryGraph{
		nodes:  make(map[string]*Node),
		edges:  make(map[string]*Edge),
		out:    make(map[string][]string),
		in:     make(map[string][]string),
		logger: logger,
	}
}

// WithLogger replaces the graph's logger.
func (g *MemoryGraph) WithLogger(logger *logrus.Logger) *MemoryGraph {
	if logger != nil {
		g.logger = logger
	}
	return g
}

func addSource(sources []string, more ...string) []string {
	for _, s := range more {
		found := false
		for _, existing := range sources {
			if existing == s {
				found = true
				break
			}
		}
		if !found && s != "" {
			sources = append(sources, s)
		}
	}
	return sources
}

// AddNode inserts a node. Adding a known id merges sources and fills in
// missing properties.
func (g *MemoryGraph) AddNode(ctx context.Context, node Node) error {
	if node.ID == "" {
		return errors.New("node id is required")
	}
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if existing, ok := g.nodes[node.ID]; ok {
		existing.Sources = addSource(existing.Sources, node.Sources...)
		for k, v := range node.Properties {
			if _, set := existing.Properties[k]; !set {
				existing.Properties[k] = v
			}
		}
		return nil
	}

	n := node
	n.Sources = addSource(nil, node.Sources...)
	n.Properties = make(map[string]interface{}, len(node.Properties))
	for k, v := range node.Properties {
		n.Properties[k] = v
	}
	g.nodes[n.ID] = &n
	g.nodeOrder = append(g.nodeOrder, n.ID)
	return nil
}

// AddEdge inserts a directed edge between two known nodes. Re-adding an edge
// averages its weight and merges sources.
func (g *MemoryGraph) AddEdge(ctx context.Context, edge Edge) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.nodes[edge.Source] == nil || g.nodes[edge.Target] == nil {
		return errors.Errorf("edge %s -> %s references an unknown node", edge.Source, edge.Target)
	}

	id := fmt.Sprintf("%s-%s-%s", edge.Source, edge.Type, edge.Target)
	if existing, ok := g.edges[id]; ok {
		existing.Weight = (existing.Weight + edge.Weight) / 2
		existing.Sources = addSource(existing.Sources, edge.Sources...)
		return nil
	}

	e := edge
	e.ID = id
	e.Sources = addSource(nil, edge.Sources...)
	g.edges[id] = &e
	g.edgeOrder = append(g.edgeOrder, id)
	g.out[e.Source] = append(g.out[e.Source], id)
	g.in[e.Target] = append(g.in[e.Target], id)
	return nil
}

// AddUndirected inserts an edge in both directions.
func (g *MemoryGraph) AddUndirected(ctx context.Context, edge Edge) error {
	if err := g.AddEdge(ctx, edge); err != nil {
		return err
	}
	reverse := edge
	reverse.Source, reverse.Target = edge.Target, edge.Source
	return g.AddEdge(ctx, reverse)
}

// GetNode returns a copy of the node with the given id.
func (g *MemoryGraph) GetNode(ctx context.Context, id string) (*Node, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	node, ok := g.nodes[id]
	if !ok {
		return nil, errors.Errorf("node not found: %s", id)
	}
	n := *node
	return &n, nil
}

// HasNode reports whether the id is known.
func (g *MemoryGraph) HasNode(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// GetRelated returns the distinct neighbours of id reached over edges of
// edgeType (any type when empty) in the given direction.
func (g *MemoryGraph) GetRelated(ctx context.Context, id string, edgeType string, dir Direction) ([]Node, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if _, ok := g.nodes[id]; !ok {
		return nil, errors.Errorf("node not found: %s", id)
	}

	related := make([]Node, 0)
	seen := map[string]bool{id: true}
	visit := func(edgeIDs []string, outgoing bool) {
		for _, eid := range edgeIDs {
			e := g.edges[eid]
			if edgeType != "" && e.Type != edgeType {
				continue
			}
			other := e.Target
			if !outgoing {
				other = e.Source
			}
			if seen[other] {
				continue
			}
			seen[other] = true
			related = append(related, *g.nodes[other])
		}
	}
	if dir == Outgoing || dir == Both {
		visit(g.out[id], true)
	}
	if dir == Incoming || dir == Both {
		visit(g.in[id], false)
	}
	return related, nil
}

// Degree counts the distinct neighbours of id over edges of edgeType.
func (g *MemoryGraph) Degree(id, edgeType string) int {
	related, err := g.GetRelated(context.Background(), id, edgeType, Both)
	if err != nil {
		return 0
	}
	return len(related)
}

// Nodes returns the nodes in insertion order.
func (g *MemoryGraph) Nodes() []Node {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	out := make([]Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns the edges of edgeType (all when empty) in insertion order.
func (g *MemoryGraph) Edges(edgeType string) []Edge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	out := make([]Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		if e := g.edges[id]; edgeType == "" || e.Type == edgeType {
			out = append(out, *e)
		}
	}
	return out
}

// Roots returns the ids of nodes that have outgoing but no incoming edges
// of edgeType.
func (g *MemoryGraph) Roots(edgeType string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	hasType := func(edgeIDs []string) bool {
		for _, eid := range edgeIDs {
			if g.edges[eid].Type == edgeType {
				return true
			}
		}
		return false
	}
	var roots []string
	for _, id := range g.nodeOrder {
		if hasType(g.out[id]) && !hasType(g.in[id]) {
			roots = append(roots, id)
		}
	}
	return roots
}

// Data returns a snapshot of the graph for serialization.
func (g *MemoryGraph) Data() *Data {
	data := &Data{
		Nodes:       g.Nodes(),
		Edges:       g.Edges(""),
		GeneratedAt: time.Now(),
	}
	g.logger.WithFields(logrus.Fields{
		"nodes": len(data.Nodes),
		"edges": len(data.Edges),
	}).Debug("Graph snapshot taken")
	return data
}
