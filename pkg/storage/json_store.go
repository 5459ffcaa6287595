// Package storage reads query bundles from and writes synthesis results to
// JSON files.
package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/athapong/bim-synthesis/pkg/answering"
	"github.com/athapong/bim-synthesis/pkg/graph"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Bundle is the input of one synthesis run: the query, the chunk answers
// already produced and, optionally, raw source chunks still to be answered.
type Bundle struct {
	Query   model.QueryContext  `json:"query"`
	Chunks  []model.ChunkResult `json:"chunks,omitempty"`
	Sources []answering.Chunk   `json:"sources,omitempty"`
}

// ResultStore persists synthesis results.
type ResultStore interface {
	// StoreResult persists a result
	StoreResult(ctx context.Context, result *model.EnhancedQueryResult) error

	// LoadResult loads a previously stored result
	LoadResult(ctx context.Context) (*model.EnhancedQueryResult, error)
}

// JSONStore implements ResultStore using a JSON file.
type JSONStore struct {
	filePath string
}

// NewJSONStore creates a store writing to filePath.
func NewJSONStore(filePath string) *JSONStore {
	return &JSONStore{
		filePath: filePath,
	}
}

// StoreResult writes result as indented JSON, creating parent directories.
func (s *JSONStore) StoreResult(ctx context.Context, result *model.EnhancedQueryResult) error {
	if result == nil {
		return errors.New("nil result")
	}
	return writeJSON(ctx, s.filePath, result)
}

// LoadResult reads a result back.
func (s *JSONStore) LoadResult(ctx context.Context) (*model.EnhancedQueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "read result %s", s.filePath)
	}
	var result model.EnhancedQueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrapf(err, "decode result %s", s.filePath)
	}
	return &result, nil
}

// StoreGraph writes a spatial graph snapshot.
func StoreGraph(ctx context.Context, path string, data graph.Data) error {
	return writeJSON(ctx, path, data)
}

// GraphFromResult pulls the spatial graph snapshot out of a result's
// structured output, if the spatial strategy produced one.
func GraphFromResult(result *model.EnhancedQueryResult) (graph.Data, bool, error) {
	var data graph.Data
	if result == nil || result.StructuredOutput == nil {
		return data, false, nil
	}
	raw, ok := result.StructuredOutput["graph"]
	if !ok {
		return data, false, nil
	}
	if d, ok := raw.(graph.Data); ok {
		return d, true, nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return data, false, errors.Wrap(err, "encode graph")
	}
	if err := json.Unmarshal(encoded, &data); err != nil {
		return data, false, errors.Wrap(err, "decode graph")
	}
	return data, true, nil
}

// LoadBundle reads a bundle file. A bare array of chunk answers is accepted
// too, with the query taken from fallback.
func LoadBundle(ctx context.Context, path string, fallback model.QueryContext) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read bundle %s", path)
	}
	return ParseBundle(data, fallback)
}

// ParseBundle decodes bundle JSON. Query fields missing from the document
// are filled from fallback.
func ParseBundle(data []byte, fallback model.QueryContext) (*Bundle, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.Wrap(model.ErrValidation, "bundle is not valid JSON")
	}
	var bundle Bundle
	root := gjson.ParseBytes(data)
	if root.IsArray() {
		if err := json.Unmarshal(data, &bundle.Chunks); err != nil {
			return nil, errors.Wrap(err, "decode chunks")
		}
	} else if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, errors.Wrap(err, "decode bundle")
	}

	if bundle.Query.QueryID == "" {
		bundle.Query.QueryID = fallback.QueryID
	}
	if bundle.Query.OriginalQuery == "" {
		bundle.Query.OriginalQuery = fallback.OriginalQuery
	}
	if bundle.Query.Intent == "" {
		bundle.Query.Intent = fallback.Intent
	}
	if len(bundle.Chunks) == 0 && len(bundle.Sources) == 0 {
		return nil, errors.Wrap(model.ErrValidation, "bundle has no chunks or sources")
	}
	return &bundle, nil
}

func writeJSON(ctx context.Context, path string, v interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "write %s", path)
}
