// Package conflicts finds disagreements between the normalized readings of
// different chunks and settles the ones it can.
package conflicts

import (
	"fmt"
	"maps"
	"sort"

	"github.com/athapong/bim-synthesis/pkg/config"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/sirupsen/logrus"
)

// Kind names one detector.
type Kind string

const (
	KindQuantitative Kind = "quantitative"
	KindQualitative  Kind = "qualitative"
	KindEntity       Kind = "entity"
	KindSpatial      Kind = "spatial"
	KindRelationship Kind = "relationship"
)

var allKinds = []Kind{KindQuantitative, KindQualitative, KindEntity, KindSpatial, KindRelationship}

// Gating selects the detectors run for each intent. Intents missing from the
// table run all five. Missing-information and unit checks always run.
var Gating = map[model.QueryIntent][]Kind{
	model.IntentQuantity:     {KindQuantitative, KindQualitative},
	model.IntentCost:         {KindQuantitative, KindQualitative},
	model.IntentComponent:    {KindQuantitative, KindQualitative, KindEntity},
	model.IntentMaterial:     {KindQuantitative, KindQualitative, KindEntity},
	model.IntentSpatial:      {KindEntity, KindSpatial, KindRelationship},
	model.IntentRelationship: {KindRelationship, KindEntity},
	model.IntentProperty:     {KindQualitative, KindEntity},
	model.IntentUnknown:      allKinds,
}

// KindsFor returns the detectors gated on for an intent.
func KindsFor(intent model.QueryIntent) []Kind {
	if kinds, ok := Gating[intent]; ok {
		return kinds
	}
	return allKinds
}

type detectFunc func(d *Detector, data []*model.ExtractedData) []model.Conflict

var defaultDetectors = map[Kind]detectFunc{
	KindQuantitative: (*Detector).quantitative,
	KindQualitative:  (*Detector).qualitative,
	KindEntity:       (*Detector).entities,
	KindSpatial:      (*Detector).spatial,
	KindRelationship: (*Detector).relationships,
}

// Detector compares normalized chunk data.
type Detector struct {
	tolerances config.ToleranceThresholds
	detectors  map[Kind]detectFunc
	logger     *logrus.Logger
}

// NewDetector creates a detector using the given thresholds.
func NewDetector(tolerances config.ToleranceThresholds) *Detector {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	return &Detector{
		tolerances: tolerances,
		detectors:  maps.Clone(defaultDetectors),
		logger:     logger,
	}
}

// WithLogger replaces the detector's logger.
func (d *Detector) WithLogger(logger *logrus.Logger) *Detector {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// Qualifying returns the records whose extraction confidence reaches the
// confidence threshold.
func (d *Detector) Qualifying(data []*model.ExtractedData) []*model.ExtractedData {
	out := make([]*model.ExtractedData, 0, len(data))
	for _, rec := range data {
		if rec != nil && rec.ExtractionConfidence >= d.tolerances.ConfidenceThreshold {
			out = append(out, rec)
		}
	}
	return out
}

// Detect returns the conflicts between the qualifying records. Fewer than
// two qualifying records yield no conflicts. Detection fails open: a panic
// in any detector yields an empty list.
func (d *Detector) Detect(data []*model.ExtractedData, intent model.QueryIntent) (conflicts []model.Conflict) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithFields(logrus.Fields{
				"intent": intent,
				"panic":  r,
			}).Error("Conflict detection failed")
			conflicts = []model.Conflict{}
		}
	}()

	conflicts = []model.Conflict{}
	qualifying := d.Qualifying(data)
	if len(qualifying) < 2 {
		return conflicts
	}

	for _, kind := range KindsFor(intent) {
		found := d.detectors[kind](d, qualifying)
		d.logger.WithFields(logrus.Fields{
			"detector":  kind,
			"conflicts": len(found),
		}).Debug("Detector finished")
		conflicts = append(conflicts, found...)
	}
	conflicts = append(conflicts, d.missingInformation(qualifying)...)
	conflicts = append(conflicts, d.inconsistentUnits(qualifying)...)
	return conflicts
}

// observation is one chunk's value for a compared subject.
type observation struct {
	chunk string
	value interface{}
	text  string
	rec   *model.ExtractedData
}

// build turns observations into a conflict; invalid conflicts (fewer than two
// distinct chunks) are dropped.
func (d *Detector) build(kind model.ConflictType, description string, obs []observation, severity float64, ctx map[string]interface{}) []model.Conflict {
	chunks := make([]string, len(obs))
	values := make([]interface{}, len(obs))
	evidence := make([]model.Evidence, 0, len(obs))
	for i, o := range obs {
		chunks[i] = o.chunk
		values[i] = o.value
		ev, err := model.NewEvidence(o.chunk, o.text, model.Clamp01(o.rec.ExtractionConfidence), o.rec.DataQuality.Weight(), nil)
		if err == nil {
			evidence = append(evidence, ev)
		}
	}
	c, err := model.NewConflict(kind, description, chunks, values, model.Clamp01(severity), evidence, ctx)
	if err != nil {
		d.logger.WithError(err).WithField("conflict_type", kind).Debug("Discarding invalid conflict")
		return nil
	}
	return []model.Conflict{*c}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func valueText(v interface{}) string {
	return fmt.Sprintf("%v", v)
}

// missingInformation flags uneven coverage: the richest chunk holds more
// than twice the items of the poorest.
func (d *Detector) missingInformation(data []*model.ExtractedData) []model.Conflict {
	lo, hi := -1, -1
	obs := make([]observation, 0, len(data))
	for _, rec := range data {
		n := rec.ItemCount()
		if lo < 0 || n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
		obs = append(obs, observation{chunk: rec.ChunkID, value: n, text: fmt.Sprintf("%d items", n), rec: rec})
	}
	if hi <= 2*lo {
		return nil
	}
	severity := 1 - float64(lo)/float64(hi)
	return d.build(model.ConflictMissingInformation,
		fmt.Sprintf("Item counts range from %d to %d across chunks", lo, hi),
		obs, severity, map[string]interface{}{"min_items": lo, "max_items": hi})
}
