// Package graph holds a small in-memory directed graph used to reason about
// how building elements contain and adjoin each other.
package graph

import (
	"context"
	"time"
)

// Node is one building element or space.
type Node struct {
	ID         string                 `json:"id"`
	Label      string                 `json:"label"`
	Type       string                 `json:"type"`
	Level      int                    `json:"level"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Sources    []string               `json:"sources,omitempty"` // chunk ids the node was read from
}

// Edge is a typed, weighted link between two nodes.
type Edge struct {
	ID      string   `json:"id"`
	Source  string   `json:"source"`
	Target  string   `json:"target"`
	Type    string   `json:"type"`
	Weight  float64  `json:"weight"`
	Sources []string `json:"sources,omitempty"`
}

// Data is a serializable snapshot of a graph.
type Data struct {
	Nodes       []Node    `json:"nodes"`
	Edges       []Edge    `json:"edges"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Direction selects which edges of a node to follow.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// Graph is the read/write surface traversal works against.
type Graph interface {
	AddNode(ctx context.Context, node Node) error
	AddEdge(ctx context.Context, edge Edge) error
	GetNode(ctx context.Context, id string) (*Node, error)
	GetRelated(ctx context.Context, id string, edgeType string, dir Direction) ([]Node, error)
}
