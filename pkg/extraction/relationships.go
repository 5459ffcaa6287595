package extraction

import (
	"regexp"
	"sort"
	"strings"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/textutil"
	"github.com/jdkato/prose/v2"
)

const relationshipConfidence = 0.8

var sentenceBreak = regexp.MustCompile(`[.!?;]+(?:\s+|$)|\n+`)

// segment splits text into sentence spans. prose handles abbreviations and
// decimals; a punctuation split is the fallback.
func segment(text string) []span {
	var out []span
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
		prose.WithTokenization(false))
	if err == nil {
		cursor := 0
		for _, sent := range doc.Sentences() {
			t := strings.TrimSpace(sent.Text)
			if t == "" {
				continue
			}
			idx := strings.Index(text[cursor:], t)
			if idx < 0 {
				out = nil
				break
			}
			out = append(out, span{cursor + idx, cursor + idx + len(t)})
			cursor += idx + len(t)
		}
	}
	if len(out) > 0 {
		return splitLines(text, out)
	}

	start := 0
	for _, m := range sentenceBreak.FindAllStringIndex(text, -1) {
		if strings.TrimSpace(text[start:m[0]]) != "" {
			out = append(out, span{start, m[0]})
		}
		start = m[1]
	}
	if strings.TrimSpace(text[start:]) != "" {
		out = append(out, span{start, len(text)})
	}
	return out
}

// splitLines breaks sentence spans further at line breaks; list-style
// answers rarely end lines with punctuation.
func splitLines(text string, spans []span) []span {
	var out []span
	for _, sp := range spans {
		start := sp.start
		for i := sp.start; i < sp.end; i++ {
			if text[i] != '\n' {
				continue
			}
			if strings.TrimSpace(text[start:i]) != "" {
				out = append(out, span{start, i})
			}
			start = i + 1
		}
		if strings.TrimSpace(text[start:sp.end]) != "" {
			out = append(out, span{start, sp.end})
		}
	}
	return out
}

var relationshipKinds = func() []string {
	kinds := make([]string, 0, len(relationshipPhrases))
	for k := range relationshipPhrases {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}()

func (s *scan) extractRelationships() {
	seen := make(map[string]bool)
	for _, sent := range s.sentences {
		if s.inJSON(sent.start) {
			continue
		}
		sentence := s.text[sent.start:sent.end]
		for _, kind := range relationshipKinds {
			for _, m := range relationshipPatterns[kind].FindAllStringSubmatch(sentence, -1) {
				source := s.endpoint(m[1], true)
				target := s.endpoint(m[2], false)
				if source == "" || target == "" || source == target {
					continue
				}
				key := kind + "|" + source + "|" + target
				if seen[key] {
					continue
				}
				seen[key] = true
				s.data.Relationships = append(s.data.Relationships, model.Relationship{
					Type:       kind,
					Source:     source,
					Target:     target,
					Confidence: relationshipConfidence,
				})
			}
		}
	}
}

// endpoint reduces a relationship endpoint to an entity id when it names one,
// otherwise to its lower-cased content words.
func (s *scan) endpoint(raw string, isSource bool) string {
	words := strings.Fields(strings.Trim(raw, " .,;:"))
	for len(words) > 0 && endpointStopWords.Contains(strings.ToLower(words[0])) {
		words = words[1:]
	}
	for len(words) > 0 && endpointStopWords.Contains(strings.ToLower(words[len(words)-1])) {
		words = words[:len(words)-1]
	}
	if len(words) == 0 {
		return ""
	}
	phrase := strings.Join(words, " ")
	if m := entityPattern.FindStringSubmatch(phrase); m != nil && m[3] != "" {
		return strings.TrimRight(m[3], ".-")
	}
	if isSource && len(words) > 2 {
		words = words[len(words)-2:]
	}
	return strings.ToLower(strings.Trim(strings.Join(words, " "), ".,"))
}

func (s *scan) extractSpatial() {
	for _, sent := range s.sentences {
		if s.inJSON(sent.start) {
			continue
		}
		sentence := s.text[sent.start:sent.end]

		var coordinates []float64
		if m := coordinatesPattern.FindStringSubmatchIndex(sentence); m != nil {
			for g := 1; g <= 3; g++ {
				if m[2*g] < 0 {
					continue
				}
				if v, ok := textutil.ParseNumber(sentence[m[2*g]:m[2*g+1]]); ok {
					coordinates = append(coordinates, v)
				}
			}
			s.consume(sent.start+m[0], sent.start+m[1])
		}

		level := ""
		if m := levelPattern.FindStringSubmatchIndex(sentence); m != nil {
			level = strings.TrimRight(sentence[m[2]:m[3]], ".,")
			s.consume(sent.start+m[2], sent.start+m[3])
		} else if m := namedLevelPattern.FindStringSubmatch(sentence); m != nil {
			level = namedLevels[strings.ToLower(m[1])]
		}

		space := ""
		if m := spacePattern.FindStringSubmatchIndex(sentence); m != nil {
			space = strings.TrimRight(sentence[m[4]:m[5]], ".,")
			s.consume(sent.start+m[4], sent.start+m[5])
		}

		if len(coordinates) == 0 && level == "" && space == "" {
			continue
		}
		for _, mn := range s.mentions {
			if mn.start < sent.start || mn.start >= sent.end {
				continue
			}
			e := s.data.Entities[mn.entity]
			if e.Type == "material" {
				continue
			}
			key := e.Key()
			entry := s.data.SpatialContext[key]
			entry.EntityID = key
			if len(entry.Coordinates) == 0 && len(coordinates) > 0 {
				entry.Coordinates = append([]float64(nil), coordinates...)
			}
			if entry.Level == "" {
				entry.Level = level
			}
			if entry.Space == "" && space != "" && space != e.ID {
				entry.Space = space
				entry.Parent = space
			}
			s.data.SpatialContext[key] = entry
		}
	}
}
