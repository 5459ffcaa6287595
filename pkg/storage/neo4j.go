package storage

import (
	"context"

	"github.com/athapong/bim-synthesis/pkg/graph"
	"github.com/neo4j/neo4j-go-driver/v4/neo4j"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Relationship types written for spatial edge types. Other edge types are
// not persisted.
var relationshipTypes = map[string]string{
	"contains": "CONTAINS",
	"adjacent": "ADJACENT_TO",
}

// Statement is one parameterized Cypher statement.
type Statement struct {
	Cypher string
	Params map[string]interface{}
}

const mergeNode = `
	MERGE (e:BuildingElement {id: $id, query_id: $query_id})
	SET e.label = $label,
		e.type = $type,
		e.level = $level,
		e.sources = $sources,
		e.updated_at = datetime()
	SET e += $properties
`

// relationship types cannot be parameters, so each type has its own statement
var mergeEdge = map[string]string{
	"CONTAINS": `
	MATCH (from:BuildingElement {id: $from, query_id: $query_id})
	MATCH (to:BuildingElement {id: $to, query_id: $query_id})
	MERGE (from)-[r:CONTAINS]->(to)
	SET r.weight = $weight, r.sources = $sources
`,
	"ADJACENT_TO": `
	MATCH (from:BuildingElement {id: $from, query_id: $query_id})
	MATCH (to:BuildingElement {id: $to, query_id: $query_id})
	MERGE (from)-[r:ADJACENT_TO]-(to)
	SET r.weight = $weight, r.sources = $sources
`,
}

const childrenQuery = `
	MATCH (:BuildingElement {id: $id, query_id: $query_id})-[:CONTAINS]->(child:BuildingElement)
	RETURN child.id
	ORDER BY child.id
`

// Neo4jGraphStore writes spatial graphs to Neo4j, one subgraph per query.
type Neo4jGraphStore struct {
	driver   neo4j.Driver
	database string
	logger   *logrus.Logger
}

// NewNeo4jGraphStore connects to uri. An empty database uses the server
// default.
func NewNeo4jGraphStore(uri, username, password, database string) (*Neo4jGraphStore, error) {
	driver, err := neo4j.NewDriver(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Neo4j driver")
	}
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Neo4jGraphStore{
		driver:   driver,
		database: database,
		logger:   logger,
	}, nil
}

// WithLogger replaces the store's logger.
func (s *Neo4jGraphStore) WithLogger(logger *logrus.Logger) *Neo4jGraphStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Close releases the driver.
func (s *Neo4jGraphStore) Close() error {
	return s.driver.Close()
}

// StoreGraph merges the graph of one query in a single write transaction.
func (s *Neo4jGraphStore) StoreGraph(ctx context.Context, queryID string, data graph.Data) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	statements := GraphStatements(queryID, data)

	session := s.driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: s.database})
	defer session.Close()

	_, err := session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		for _, st := range statements {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if _, err := tx.Run(st.Cypher, st.Params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return errors.Wrapf(err, "store graph for query %s", queryID)
	}
	s.logger.WithFields(logrus.Fields{
		"query_id":   queryID,
		"statements": len(statements),
	}).Info("Spatial graph stored in Neo4j")
	return nil
}

// Children returns the ids of the elements id contains.
func (s *Neo4jGraphStore) Children(ctx context.Context, queryID, id string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	session := s.driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: s.database})
	defer session.Close()

	result, err := session.Run(childrenQuery, map[string]interface{}{"id": id, "query_id": queryID})
	if err != nil {
		return nil, errors.Wrapf(err, "children of %s", id)
	}
	var children []string
	for result.Next() {
		if child, ok := result.Record().Values[0].(string); ok {
			children = append(children, child)
		}
	}
	return children, errors.Wrap(result.Err(), "read children")
}

// GraphStatements returns the Cypher statements that merge data. Undirected
// adjacency stored as two directed edges is written once.
func GraphStatements(queryID string, data graph.Data) []Statement {
	statements := make([]Statement, 0, len(data.Nodes)+len(data.Edges))
	for _, n := range data.Nodes {
		statements = append(statements, Statement{
			Cypher: mergeNode,
			Params: map[string]interface{}{
				"id":         n.ID,
				"query_id":   queryID,
				"label":      n.Label,
				"type":       n.Type,
				"level":      int64(n.Level),
				"sources":    stringsOrEmpty(n.Sources),
				"properties": scalarProperties(n.Properties),
			},
		})
	}

	seen := make(map[string]bool)
	for _, e := range data.Edges {
		relType, ok := relationshipTypes[e.Type]
		if !ok {
			continue
		}
		from, to := e.Source, e.Target
		if relType == "ADJACENT_TO" && from > to {
			from, to = to, from
		}
		key := relType + "|" + from + "|" + to
		if seen[key] {
			continue
		}
		seen[key] = true
		statements = append(statements, Statement{
			Cypher: mergeEdge[relType],
			Params: map[string]interface{}{
				"from":     from,
				"to":       to,
				"query_id": queryID,
				"weight":   e.Weight,
				"sources":  stringsOrEmpty(e.Sources),
			},
		})
	}
	return statements
}

// scalarProperties keeps the properties Neo4j can store as node properties.
func scalarProperties(props map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		switch v := v.(type) {
		case string, bool, float64, int64:
			out["prop_"+k] = v
		case int:
			out["prop_"+k] = int64(v)
		}
	}
	return out
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
