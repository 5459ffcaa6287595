// Package normalization maps extracted data onto canonical units, entity
// types, materials and property names.
package normalization

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/textutil"
	"github.com/athapong/bim-synthesis/pkg/units"
	"github.com/athapong/bim-synthesis/pkg/vocab"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Normalizer produces canonical copies of extracted data.
type Normalizer struct {
	logger *logrus.Logger
}

// New creates a normalizer logging JSON to stderr.
func New() *Normalizer {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Normalizer{
		logger: logger,
	}
}

// WithLogger replaces the normalizer's logger.
func (n *Normalizer) WithLogger(logger *logrus.Logger) *Normalizer {
	if logger != nil {
		n.logger = logger
	}
	return n
}

// Normalize returns a canonical copy of data; data itself is left untouched.
// If normalization fails the copy holds the original values plus a
// diagnostic in its processing errors.
func (n *Normalizer) Normalize(data *model.ExtractedData) (out *model.ExtractedData) {
	if data == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			n.logger.WithFields(logrus.Fields{
				"chunk_id": data.ChunkID,
				"panic":    r,
			}).Error("Normalization failed")
			out = data.Clone()
			out.ProcessingErrors = append(out.ProcessingErrors, fmt.Sprintf("normalization failed: %v", r))
		}
	}()

	out = model.EmptyExtractedData(data.ChunkID)
	out.ExtractionConfidence = data.ExtractionConfidence
	out.DataQuality = data.DataQuality
	out.RawNumbers = append([]float64(nil), data.RawNumbers...)
	out.ProcessingErrors = append([]string(nil), data.ProcessingErrors...)
	for k, v := range data.TemporalContext {
		out.TemporalContext[k] = v
	}
	for k, v := range data.SemanticContext {
		out.SemanticContext[k] = v
	}

	ids := make(map[string]string, len(data.Entities))
	for _, e := range data.Entities {
		if e.ID != "" {
			ids[e.ID] = NormalizeID(e.ID)
		}
	}
	ref := func(s string) string {
		if id, ok := ids[s]; ok {
			return id
		}
		return s
	}

	for _, e := range data.Entities {
		out.Entities = append(out.Entities, NormalizeEntity(e))
	}

	for _, q := range data.Quantities {
		nq := NormalizeQuantity(q)
		if _, known := units.Lookup(q.Unit); q.Unit != "" && !known {
			n.logger.WithFields(logrus.Fields{
				"chunk_id": data.ChunkID,
				"quantity": q.Name,
				"unit":     q.Unit,
			}).Debug("Unknown unit, value assumed canonical")
		}
		out.Quantities[nq.Name] = nq
	}

	for k, v := range data.Properties {
		key := vocab.CanonicalPropertyKey(k)
		if key == "" {
			continue
		}
		out.Properties[key] = NormalizePropertyValue(key, v)
	}

	for _, r := range data.Relationships {
		out.Relationships = append(out.Relationships, model.Relationship{
			Type:       textutil.SnakeCase(r.Type),
			Source:     ref(r.Source),
			Target:     ref(r.Target),
			Confidence: r.Confidence,
		})
	}

	for key, entry := range data.SpatialContext {
		id := ref(key)
		entry.EntityID = id
		entry.Parent = ref(entry.Parent)
		entry.Space = ref(entry.Space)
		entry.Coordinates = append([]float64(nil), entry.Coordinates...)
		out.SpatialContext[id] = entry
	}

	if err := out.Validate(); err != nil {
		n.logger.WithError(err).WithField("chunk_id", data.ChunkID).Warn("Normalized data failed validation")
		out = data.Clone()
		out.ProcessingErrors = append(out.ProcessingErrors, "normalization: "+err.Error())
	}
	return out
}

// NormalizeID prefixes an entity id with "#".
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, "#") {
		return id
	}
	return "#" + id
}

// NormalizeEntity returns a canonical copy of e.
func NormalizeEntity(e model.Entity) model.Entity {
	out := e.Clone()
	out.ID = NormalizeID(e.ID)
	out.Type = vocab.CanonicalEntityType(e.Type)
	if out.Type == "Material" {
		out.Name = vocab.CanonicalMaterial(e.Name)
	}
	out.Properties = make(map[string]interface{}, len(e.Properties))
	for k, v := range e.Properties {
		key := vocab.CanonicalPropertyKey(k)
		if key == "" {
			continue
		}
		out.Properties[key] = NormalizePropertyValue(key, v)
	}
	return out
}

// NormalizePropertyValue coerces truthy/falsy tokens to booleans, numeric
// strings to numbers and material names to their canonical form.
func NormalizePropertyValue(key string, v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if b, ok := vocab.ParseBool(s); ok {
		return b
	}
	if key == "material" {
		return vocab.CanonicalMaterial(s)
	}
	if f, ok := textutil.ParseNumber(s); ok && textutil.NumberPattern.FindString(s) == s {
		return f
	}
	return s
}

// NormalizeUnit returns the canonical spelling for a unit. Euro spellings
// become "€"; other currencies keep their ISO code since converting them
// needs exchange rates. Unknown units are lower-cased.
func NormalizeUnit(unit string) string {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return ""
	}
	u, ok := units.Lookup(unit)
	if !ok {
		return strings.ToLower(unit)
	}
	if u.Dimension == units.Currency && u.Code != "EUR" {
		return u.Code
	}
	return u.Canonical
}

// NormalizeQuantity converts q into the canonical unit of its dimension.
// Unknown units leave the value as is.
func NormalizeQuantity(q model.Quantity) model.Quantity {
	out := q
	out.Unit = NormalizeUnit(q.Unit)
	if u, ok := units.Lookup(q.Unit); ok && u.Dimension != units.Currency {
		out.Value = q.Value * u.Factor
	}
	if out.Category == "" {
		out.Category = model.CategoryOther
	}
	return out
}

var quantityText = regexp.MustCompile(`^\s*(-?[\d.,' ]*\d)\s*(.*?)\s*$`)

// ParseQuantity reads "150 cm" as 1.5 m. Canonical input parses to itself.
func ParseQuantity(s string) (model.Quantity, error) {
	m := quantityText.FindStringSubmatch(s)
	if m == nil {
		return model.Quantity{}, errors.Errorf("no quantity in %q", s)
	}
	value, ok := textutil.ParseNumber(m[1])
	if !ok {
		return model.Quantity{}, errors.Errorf("invalid number %q", m[1])
	}
	q := model.Quantity{
		Value:    value,
		Unit:     m[2],
		Raw:      strings.TrimSpace(s),
		Category: model.CategoryOther,
	}
	if u, ok := units.Lookup(m[2]); ok {
		switch u.Dimension {
		case units.Length:
			q.Category = model.CategoryLength
		case units.Area:
			q.Category = model.CategoryArea
		case units.Volume:
			q.Category = model.CategoryVolume
		case units.Weight:
			q.Category = model.CategoryWeight
		case units.Currency:
			q.Category = model.CategoryCost
		}
	}
	return NormalizeQuantity(q), nil
}

// FormatQuantity renders q as "<value> <unit>".
func FormatQuantity(q model.Quantity) string {
	v := strconv.FormatFloat(q.Value, 'f', -1, 64)
	if q.Unit == "" {
		return v
	}
	return v + " " + q.Unit
}
