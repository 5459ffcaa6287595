package model

import (
	"strings"

	"github.com/pkg/errors"
)

// Entity is a building element or concept mentioned in a chunk answer.
type Entity struct {
	ID         string                 `json:"id,omitempty"`
	Type       string                 `json:"type"`
	Name       string                 `json:"name,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Confidence float64                `json:"confidence"`
	Source     string                 `json:"source,omitempty"`
}

// Key returns the identity used to group the same entity across chunks:
// the id when present, otherwise the lower-cased name.
func (e Entity) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return strings.ToLower(strings.TrimSpace(e.Name))
}

// Clone returns a deep copy of the entity.
func (e Entity) Clone() Entity {
	out := e
	out.Properties = cloneMap(e.Properties)
	return out
}

// Quantity categories.
const (
	CategoryVolume = "volume"
	CategoryArea   = "area"
	CategoryLength = "length"
	CategoryWeight = "weight"
	CategoryCount  = "count"
	CategoryCost   = "cost"
	CategoryOther  = "other"
)

// Quantity is a named numeric measurement, optionally carrying a unit.
type Quantity struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit,omitempty"`
	Raw      string  `json:"raw,omitempty"`
	Category string  `json:"category,omitempty"`
}

// Relationship is a typed, directed link between two entities.
type Relationship struct {
	Type       string  `json:"type"`
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Confidence float64 `json:"confidence"`
}

// SpatialEntry locates one entity in the building.
type SpatialEntry struct {
	EntityID    string    `json:"entity_id"`
	Coordinates []float64 `json:"coordinates,omitempty"`
	Level       string    `json:"level,omitempty"`
	Parent      string    `json:"parent,omitempty"`
	Space       string    `json:"space,omitempty"`
}

// ExtractedData is the structured reading of one chunk answer.
type ExtractedData struct {
	ChunkID              string                  `json:"chunk_id"`
	Entities             []Entity                `json:"entities"`
	Quantities           map[string]Quantity     `json:"quantities"`
	RawNumbers           []float64               `json:"raw_numbers,omitempty"`
	Properties           map[string]interface{}  `json:"properties"`
	Relationships        []Relationship          `json:"relationships"`
	SpatialContext       map[string]SpatialEntry `json:"spatial_context"`
	TemporalContext      map[string]interface{}  `json:"temporal_context,omitempty"`
	SemanticContext      map[string]interface{}  `json:"semantic_context,omitempty"`
	ExtractionConfidence float64                 `json:"extraction_confidence"`
	DataQuality          DataQuality             `json:"data_quality"`
	ProcessingErrors     []string                `json:"processing_errors,omitempty"`
}

// NewExtractedData returns an empty record for a chunk with every collection
// allocated. It fails when confidence is outside [0, 1].
func NewExtractedData(chunkID string, confidence float64) (*ExtractedData, error) {
	if err := checkScore("extraction_confidence", confidence); err != nil {
		return nil, err
	}
	d := EmptyExtractedData(chunkID)
	d.ExtractionConfidence = confidence
	return d, nil
}

// EmptyExtractedData returns a zero-confidence record for a chunk with every
// collection allocated.
func EmptyExtractedData(chunkID string) *ExtractedData {
	return &ExtractedData{
		ChunkID:         chunkID,
		Entities:        make([]Entity, 0),
		Quantities:      make(map[string]Quantity),
		Properties:      make(map[string]interface{}),
		Relationships:   make([]Relationship, 0),
		SpatialContext:  make(map[string]SpatialEntry),
		TemporalContext: make(map[string]interface{}),
		SemanticContext: make(map[string]interface{}),
		DataQuality:     QualityUnknown,
	}
}

// Validate checks the record against its data contract.
func (d *ExtractedData) Validate() error {
	if d == nil {
		return errors.Wrap(ErrValidation, "extracted data is nil")
	}
	if err := checkScore("extraction_confidence", d.ExtractionConfidence); err != nil {
		return err
	}
	for i, e := range d.Entities {
		if err := checkScore("entity confidence", e.Confidence); err != nil {
			return errors.Wrapf(err, "entity %d", i)
		}
	}
	for i, r := range d.Relationships {
		if err := checkScore("relationship confidence", r.Confidence); err != nil {
			return errors.Wrapf(err, "relationship %d", i)
		}
	}
	return nil
}

// ItemCount is the number of entities, quantities and properties held.
func (d *ExtractedData) ItemCount() int {
	return len(d.Entities) + len(d.Quantities) + len(d.Properties)
}

// IsEmpty reports whether nothing at all was extracted.
func (d *ExtractedData) IsEmpty() bool {
	return d.ItemCount() == 0 && len(d.Relationships) == 0 && len(d.SpatialContext) == 0 && len(d.RawNumbers) == 0
}

// HasErrors reports whether processing left any diagnostics.
func (d *ExtractedData) HasErrors() bool {
	return len(d.ProcessingErrors) > 0
}

// Clone returns a deep copy of the record.
func (d *ExtractedData) Clone() *ExtractedData {
	if d == nil {
		return nil
	}
	out := &ExtractedData{
		ChunkID:              d.ChunkID,
		Entities:             make([]Entity, 0, len(d.Entities)),
		Quantities:           make(map[string]Quantity, len(d.Quantities)),
		RawNumbers:           append([]float64(nil), d.RawNumbers...),
		Properties:           cloneMap(d.Properties),
		Relationships:        append(make([]Relationship, 0, len(d.Relationships)), d.Relationships...),
		SpatialContext:       make(map[string]SpatialEntry, len(d.SpatialContext)),
		TemporalContext:      cloneMap(d.TemporalContext),
		SemanticContext:      cloneMap(d.SemanticContext),
		ExtractionConfidence: d.ExtractionConfidence,
		DataQuality:          d.DataQuality,
		ProcessingErrors:     append([]string(nil), d.ProcessingErrors...),
	}
	for _, e := range d.Entities {
		out.Entities = append(out.Entities, e.Clone())
	}
	for k, q := range d.Quantities {
		out.Quantities[k] = q
	}
	for k, s := range d.SpatialContext {
		s.Coordinates = append([]float64(nil), s.Coordinates...)
		out.SpatialContext[k] = s
	}
	if out.Properties == nil {
		out.Properties = make(map[string]interface{})
	}
	return out
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case map[string]interface{}:
			out[k] = cloneMap(val)
		case []interface{}:
			out[k] = append([]interface{}(nil), val...)
		default:
			out[k] = v
		}
	}
	return out
}
