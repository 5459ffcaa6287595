package extraction

import (
	"strings"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/textutil"
	"github.com/athapong/bim-synthesis/pkg/vocab"
)

const (
	identifiedEntityConfidence = 0.9
	namedEntityConfidence      = 0.6
	materialConfidence         = 0.7
	propertyMaxLength          = 80
)

// addEntity records an entity once per chunk, merging properties of repeated
// mentions, and returns its index.
func (s *scan) addEntity(e model.Entity) int {
	key := strings.ToLower(e.Type) + "|" + e.Key()
	if idx, ok := s.entityIdx[key]; ok {
		existing := &s.data.Entities[idx]
		for k, v := range e.Properties {
			if _, set := existing.Properties[k]; !set {
				existing.Properties[k] = v
			}
		}
		if e.Confidence > existing.Confidence {
			existing.Confidence = e.Confidence
		}
		return idx
	}
	if e.Properties == nil {
		e.Properties = make(map[string]interface{})
	}
	e.Source = s.chunk.ChunkID
	s.data.Entities = append(s.data.Entities, e)
	s.entityIdx[key] = len(s.data.Entities) - 1
	return len(s.data.Entities) - 1
}

func (s *scan) extractEntities() {
	text := s.text
	for _, m := range entityPattern.FindAllStringSubmatchIndex(text, -1) {
		if s.inJSON(m[0]) || letterBefore(text, m[2]) {
			continue
		}
		wordEnd := m[3]
		if m[5] >= 0 {
			wordEnd = m[5]
		}
		if letterAt(text, wordEnd) {
			continue
		}
		word := text[m[2]:m[3]]
		base, ok := vocab.BaseTypeWord(word)
		if !ok {
			continue
		}

		id := ""
		if m[6] >= 0 {
			id = strings.TrimRight(text[m[6]:m[7]], ".-")
			// "wall 0.24 m" is a measurement, not an identifier
			if isMeasurement(text, id, m[6]) || s.isConsumed(m[6], m[6]+len(id)) {
				id = ""
			}
		}

		e := model.Entity{
			Type:       word,
			Name:       base,
			Confidence: namedEntityConfidence,
		}
		end := wordEnd
		if id != "" {
			e.ID = id
			e.Name = textutil.TitleCase(base) + " " + id
			e.Confidence = identifiedEntityConfidence
			end = m[6] + len(id)
			s.consume(m[6], end)
		}
		idx := s.addEntity(e)
		s.mentions = append(s.mentions, mention{span: span{m[2], end}, entity: idx})
	}
}

func isMeasurement(text, id string, at int) bool {
	if strings.Contains(id, ".") || strings.Contains(id, ",") {
		if _, ok := textutil.ParseNumber(id); ok {
			return true
		}
	}
	if _, ok := textutil.ParseNumber(id); ok {
		return unitFollows(text, at+len(id))
	}
	return false
}

// extractMaterials records material mentions as Material entities and tags
// the nearest element in the same sentence with the material.
func (s *scan) extractMaterials() {
	text := s.text
	for _, m := range materialPattern.FindAllStringSubmatchIndex(text, -1) {
		if s.inJSON(m[0]) || letterBefore(text, m[2]) || letterAt(text, m[3]) {
			continue
		}
		name := strings.ToLower(text[m[2]:m[3]])
		idx := s.addEntity(model.Entity{
			Type:       "material",
			Name:       name,
			Confidence: materialConfidence,
		})
		s.mentions = append(s.mentions, mention{span: span{m[2], m[3]}, entity: idx})

		if target, ok := s.mentionNear(m[2], true); ok {
			if _, set := s.data.Entities[target].Properties["material"]; !set {
				s.data.Entities[target].Properties["material"] = name
			}
		}
	}
}

// extractProperties reads "key: value" pairs with non-numeric values.
// Numeric pairs are quantities.
func (s *scan) extractProperties() {
	text := s.text
	for _, m := range propertyPattern.FindAllStringSubmatchIndex(text, -1) {
		if s.inJSON(m[0]) || s.isConsumed(m[4], m[5]) {
			continue
		}
		key := propertyKey(text[m[2]:m[3]])
		value := strings.TrimRight(strings.TrimSpace(text[m[4]:m[5]]), ".")
		if key == "" || value == "" || len(value) > propertyMaxLength {
			continue
		}
		if startsNumeric(value) {
			continue
		}
		if _, exists := s.data.Properties[key]; !exists {
			s.data.Properties[key] = value
		}
		if target, ok := s.mentionNear(m[2], false); ok && s.data.Entities[target].Type != "material" {
			if _, set := s.data.Entities[target].Properties[key]; !set {
				s.data.Entities[target].Properties[key] = value
			}
		}
	}
}

func propertyKey(raw string) string {
	var words []string
	for _, w := range textutil.Words(raw) {
		if labelStopWords.Contains(w) {
			continue
		}
		if _, isType := vocab.BaseTypeWord(w); isType && len(words) == 0 {
			continue
		}
		if strings.IndexFunc(w, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0 {
			words = words[:0]
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return ""
	}
	if len(words) > 3 {
		words = words[len(words)-2:]
	}
	return strings.Join(words, " ")
}

func startsNumeric(value string) bool {
	loc := textutil.NumberPattern.FindStringIndex(value)
	return loc != nil && loc[0] == 0
}
