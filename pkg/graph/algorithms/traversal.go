package algorithms

import (
	"context"

	"github.com/athapong/bim-synthesis/pkg/graph"
	"github.com/pkg/errors"
)

type TraversalType string

const (
	BFS TraversalType = "BFS"
	DFS TraversalType = "DFS"
)

type GraphTraversal struct {
	graph graph.Graph
}

func NewGraphTraversal(g graph.Graph) *GraphTraversal {
	return &GraphTraversal{graph: g}
}

// Traverse visits the nodes reachable from startID over edges of edgeType
// (any when empty), up to maxDepth hops.
func (t *GraphTraversal) Traverse(ctx context.Context, startID string, maxDepth int, traversalType TraversalType, edgeType string, dir graph.Direction) ([]graph.Node, error) {
	visited := make(map[string]bool)
	result := make([]graph.Node, 0)

	switch traversalType {
	case BFS:
		return t.bfs(ctx, startID, maxDepth, edgeType, dir, visited)
	case DFS:
		return t.dfs(ctx, startID, maxDepth, edgeType, dir, visited, &result)
	default:
		return nil, errors.Errorf("unsupported traversal type: %s", traversalType)
	}
}

func (t *GraphTraversal) bfs(ctx context.Context, startID string, maxDepth int, edgeType string, dir graph.Direction, visited map[string]bool) ([]graph.Node, error) {
	queue := []string{startID}
	result := make([]graph.Node, 0)
	depth := 0

	for len(queue) > 0 && depth <= maxDepth {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		levelSize := len(queue)
		for i := 0; i < levelSize; i++ {
			current := queue[0]
			queue = queue[1:]

			if visited[current] {
				continue
			}

			visited[current] = true
			node, err := t.graph.GetNode(ctx, current)
			if err != nil {
				return nil, err
			}
			result = append(result, *node)

			related, err := t.graph.GetRelated(ctx, current, edgeType, dir)
			if err != nil {
				return nil, err
			}

			for _, r := range related {
				if !visited[r.ID] {
					queue = append(queue, r.ID)
				}
			}
		}
		depth++
	}

	return result, nil
}

func (t *GraphTraversal) dfs(ctx context.Context, currentID string, maxDepth int, edgeType string, dir graph.Direction, visited map[string]bool, result *[]graph.Node) ([]graph.Node, error) {
	if maxDepth < 0 || visited[currentID] {
		return *result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	visited[currentID] = true
	node, err := t.graph.GetNode(ctx, currentID)
	if err != nil {
		return nil, err
	}
	*result = append(*result, *node)

	related, err := t.graph.GetRelated(ctx, currentID, edgeType, dir)
	if err != nil {
		return nil, err
	}

	for _, r := range related {
		if !visited[r.ID] {
			if _, err := t.dfs(ctx, r.ID, maxDepth-1, edgeType, dir, visited, result); err != nil {
				return nil, err
			}
		}
	}

	return *result, nil
}

// Depths returns the BFS depth of every node reachable from the roots along
// outgoing edges of edgeType. Roots have depth 0.
func (t *GraphTraversal) Depths(ctx context.Context, roots []string, edgeType string) (map[string]int, error) {
	depths := make(map[string]int)
	queue := make([]string, 0, len(roots))
	for _, r := range roots {
		if _, seen := depths[r]; !seen {
			depths[r] = 0
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		related, err := t.graph.GetRelated(ctx, current, edgeType, graph.Outgoing)
		if err != nil {
			return nil, err
		}
		for _, r := range related {
			if _, seen := depths[r.ID]; !seen {
				depths[r.ID] = depths[current] + 1
				queue = append(queue, r.ID)
			}
		}
	}
	return depths, nil
}

// Components groups the given node ids into connected components over edges
// of edgeType, ignoring direction.
func (t *GraphTraversal) Components(ctx context.Context, ids []string, edgeType string) ([][]string, error) {
	visited := make(map[string]bool)
	var components [][]string
	for _, id := range ids {
		if visited[id] {
			continue
		}
		nodes, err := t.bfs(ctx, id, len(ids), edgeType, graph.Both, visited)
		if err != nil {
			return nil, err
		}
		component := make([]string, len(nodes))
		for i, n := range nodes {
			component[i] = n.ID
		}
		components = append(components, component)
	}
	return components, nil
}
