// Package extraction turns one chunk answer into structured data: entities,
// quantities, properties, relationships and spatial context.
package extraction

import (
	"fmt"
	"sort"
	"strings"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/textutil"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var itemsExtracted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "synthesis_extracted_items_total",
		Help: "Number of items extracted from chunk answers",
	},
	[]string{"family"},
)

func init() {
	prometheus.MustRegister(itemsExtracted)
}

// Family is one group of extraction patterns.
type Family string

const (
	FamilyStructured    Family = "structured"
	FamilyQuantities    Family = "quantities"
	FamilyEntities      Family = "entities"
	FamilyProperties    Family = "properties"
	FamilyRelationships Family = "relationships"
	FamilySpatial       Family = "spatial"
)

// run order; structured content goes first so its spans are not re-read as text
var familyOrder = []Family{FamilyStructured, FamilyQuantities, FamilyEntities, FamilyProperties, FamilyRelationships, FamilySpatial}

var allFamilies = mapset.NewSet[Family](familyOrder...)

// Dispatch selects the pattern families run for each intent. Intents missing
// from the table run every family.
var Dispatch = map[model.QueryIntent]mapset.Set[Family]{
	model.IntentQuantity:     mapset.NewSet[Family](FamilyQuantities, FamilyEntities),
	model.IntentComponent:    mapset.NewSet[Family](FamilyEntities, FamilyProperties, FamilyStructured),
	model.IntentMaterial:     mapset.NewSet[Family](FamilyEntities, FamilyProperties, FamilyQuantities),
	model.IntentSpatial:      mapset.NewSet[Family](FamilyEntities, FamilyRelationships, FamilySpatial),
	model.IntentCost:         mapset.NewSet[Family](FamilyQuantities, FamilyProperties, FamilyEntities),
	model.IntentRelationship: mapset.NewSet[Family](FamilyEntities, FamilyRelationships),
	model.IntentProperty:     mapset.NewSet[Family](FamilyEntities, FamilyProperties),
	model.IntentUnknown:      allFamilies,
}

// FamiliesFor returns the families run for an intent.
func FamiliesFor(intent model.QueryIntent) mapset.Set[Family] {
	if f, ok := Dispatch[intent]; ok {
		return f
	}
	return allFamilies
}

// Confidence contributions.
const (
	chunkConfidenceWeight = 0.3
	entityBonus           = 0.2
	quantityBonus         = 0.2
	propertyBonus         = 0.15
	relationshipBonus     = 0.1
	spatialBonus          = 0.05
)

// Extractor reads chunk answers.
type Extractor struct {
	logger *logrus.Logger
}

// New creates an extractor logging JSON to stderr.
func New() *Extractor {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Extractor{
		logger: logger,
	}
}

// WithLogger replaces the extractor's logger.
func (e *Extractor) WithLogger(logger *logrus.Logger) *Extractor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Extract reads one chunk. It never fails: problems are recorded in the
// returned record's processing errors and reflected in its confidence.
func (e *Extractor) Extract(chunk model.ChunkResult, intent model.QueryIntent) (data *model.ExtractedData) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"chunk_id": chunk.ChunkID,
				"panic":    r,
			}).Error("Extraction failed")
			data = model.EmptyExtractedData(chunk.ChunkID)
			data.DataQuality = model.QualityLow
			data.ProcessingErrors = append(data.ProcessingErrors, fmt.Sprintf("extraction failed: %v", r))
		}
	}()

	if !chunk.Completed() {
		e.logger.WithFields(logrus.Fields{
			"chunk_id": chunk.ChunkID,
			"status":   chunk.Status,
		}).Warn("Skipping chunk that was not completed")
		data = model.EmptyExtractedData(chunk.ChunkID)
		data.DataQuality = model.QualityLow
		data.ProcessingErrors = append(data.ProcessingErrors, fmt.Sprintf("chunk status %q: no answer to extract", chunk.Status))
		return data
	}

	chunkConfidence := model.Clamp01(chunk.ConfidenceScore)
	text := chunk.Content
	format := "text"
	var htmlErr error
	if looksLikeHTML(text) {
		format = "html"
		if plain, err := htmlToText(text); err != nil {
			htmlErr = err
		} else {
			text = plain
		}
	}

	if strings.TrimSpace(text) == "" {
		data = model.EmptyExtractedData(chunk.ChunkID)
		data.ExtractionConfidence = chunkConfidence
		data.DataQuality = dataQuality(chunk, chunkConfidence)
		return data
	}

	s := newScan(chunk, intent, text)
	if htmlErr != nil {
		s.data.ProcessingErrors = append(s.data.ProcessingErrors, "html content could not be parsed: "+htmlErr.Error())
	}
	families := FamiliesFor(intent)
	for _, family := range familyOrder {
		if !families.Contains(family) {
			continue
		}
		switch family {
		case FamilyStructured:
			s.extractStructured()
		case FamilyQuantities:
			s.extractQuantities()
		case FamilyEntities:
			s.extractEntities()
			s.extractMaterials()
		case FamilyProperties:
			s.extractProperties()
		case FamilyRelationships:
			s.extractRelationships()
		case FamilySpatial:
			s.extractSpatial()
		}
	}
	s.extractTemporal()
	if families.Contains(FamilyQuantities) {
		s.extractRawNumbers()
	}
	if len(s.jsonSpans) > 0 && format == "text" {
		format = "json"
	}

	data = s.data
	data.SemanticContext["intent"] = string(intent)
	data.SemanticContext["sentence_count"] = len(s.sentences)
	data.SemanticContext["language"] = detectLanguage(text)
	data.SemanticContext["source_format"] = format
	data.ExtractionConfidence = confidence(data, chunkConfidence)
	data.DataQuality = dataQuality(chunk, data.ExtractionConfidence)

	itemsExtracted.WithLabelValues(string(FamilyEntities)).Add(float64(len(data.Entities)))
	itemsExtracted.WithLabelValues(string(FamilyQuantities)).Add(float64(len(data.Quantities)))
	itemsExtracted.WithLabelValues(string(FamilyProperties)).Add(float64(len(data.Properties)))
	itemsExtracted.WithLabelValues(string(FamilyRelationships)).Add(float64(len(data.Relationships)))

	e.logger.WithFields(logrus.Fields{
		"chunk_id":      chunk.ChunkID,
		"intent":        intent,
		"entities":      len(data.Entities),
		"quantities":    len(data.Quantities),
		"properties":    len(data.Properties),
		"relationships": len(data.Relationships),
		"confidence":    data.ExtractionConfidence,
	}).Debug("Extracted chunk")

	return data
}

func confidence(d *model.ExtractedData, chunkConfidence float64) float64 {
	c := chunkConfidenceWeight * chunkConfidence
	if len(d.Entities) > 0 {
		c += entityBonus
	}
	if len(d.Quantities) > 0 {
		c += quantityBonus
	}
	if len(d.Properties) > 0 {
		c += propertyBonus
	}
	if len(d.Relationships) > 0 {
		c += relationshipBonus
	}
	if len(d.SpatialContext) > 0 {
		c += spatialBonus
	}
	return model.Clamp01(c)
}

func dataQuality(chunk model.ChunkResult, confidence float64) model.DataQuality {
	if q := model.ParseDataQuality(chunk.ExtractionQuality); q != model.QualityUnknown {
		return q
	}
	switch {
	case confidence >= 0.7:
		return model.QualityHigh
	case confidence >= 0.4:
		return model.QualityMedium
	default:
		return model.QualityLow
	}
}

func detectLanguage(text string) string {
	hits := 0
	for _, w := range textutil.Words(text) {
		if germanMarkers.Contains(w) {
			hits++
		}
	}
	if hits >= 2 {
		return "de"
	}
	return "en"
}

type span struct{ start, end int }

type mention struct {
	span
	entity int
}

// scan holds the working state for one chunk.
type scan struct {
	chunk     model.ChunkResult
	intent    model.QueryIntent
	text      string
	sentences []span
	data      *model.ExtractedData

	consumed  []span
	jsonSpans []span
	mentions  []mention
	entityIdx map[string]int
}

func newScan(chunk model.ChunkResult, intent model.QueryIntent, text string) *scan {
	s := &scan{
		chunk:     chunk,
		intent:    intent,
		text:      text,
		data:      model.EmptyExtractedData(chunk.ChunkID),
		entityIdx: make(map[string]int),
	}
	s.jsonSpans = findJSONObjects(text)
	s.consumed = append(s.consumed, s.jsonSpans...)
	s.sentences = segment(text)
	return s
}

func (s *scan) consume(start, end int) {
	s.consumed = append(s.consumed, span{start, end})
}

func (s *scan) isConsumed(start, end int) bool {
	for _, c := range s.consumed {
		if start < c.end && c.start < end {
			return true
		}
	}
	return false
}

func (s *scan) inJSON(pos int) bool {
	for _, j := range s.jsonSpans {
		if pos >= j.start && pos < j.end {
			return true
		}
	}
	return false
}

// sentenceOf returns the sentence span containing pos.
func (s *scan) sentenceOf(pos int) span {
	for _, sent := range s.sentences {
		if pos >= sent.start && pos < sent.end {
			return sent
		}
	}
	return span{0, len(s.text)}
}

// mentionNear returns the index of the element entity mentioned nearest to
// pos inside the same sentence, preferring mentions before pos.
func (s *scan) mentionNear(pos int, skipMaterials bool) (int, bool) {
	sent := s.sentenceOf(pos)
	best, bestDist, before := -1, 0, false
	for _, m := range s.mentions {
		if m.start < sent.start || m.start >= sent.end {
			continue
		}
		if skipMaterials && s.data.Entities[m.entity].Type == "material" {
			continue
		}
		isBefore := m.end <= pos
		dist := pos - m.end
		if !isBefore {
			dist = m.start - pos
		}
		if dist < 0 {
			dist = 0
		}
		switch {
		case best < 0,
			isBefore && !before,
			isBefore == before && dist < bestDist:
			best, bestDist, before = m.entity, dist, isBefore
		}
	}
	return best, best >= 0
}

func (s *scan) extractTemporal() {
	years := mapset.NewThreadUnsafeSet[int]()
	for _, m := range yearPattern.FindAllStringSubmatchIndex(s.text, -1) {
		if s.isConsumed(m[2], m[3]) || s.inJSON(m[2]) {
			continue
		}
		// "2024 m²" is a quantity, not a year
		if unitFollows(s.text, m[3]) {
			continue
		}
		var y int
		fmt.Sscanf(s.text[m[2]:m[3]], "%d", &y)
		years.Add(y)
		s.consume(m[2], m[3])
	}
	if years.Cardinality() == 0 {
		return
	}
	list := years.ToSlice()
	sort.Ints(list)
	s.data.TemporalContext["years"] = list
}

func letterAt(text string, pos int) bool {
	if pos < 0 || pos >= len(text) {
		return false
	}
	r := []rune(text[pos:])
	return len(r) > 0 && isLetter(r[0])
}

func letterBefore(text string, pos int) bool {
	if pos <= 0 {
		return false
	}
	r := []rune(text[:pos])
	return isLetter(r[len(r)-1])
}
