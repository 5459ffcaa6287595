package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/textutil"
	"github.com/athapong/bim-synthesis/pkg/units"
	"github.com/athapong/bim-synthesis/pkg/vocab"
)

var leadingUnit = regexp.MustCompile(`(?i)^\s*` + unitExpr)

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

// unitFollows reports whether a unit spelling, as a whole word, starts at pos.
func unitFollows(text string, pos int) bool {
	m := leadingUnit.FindStringSubmatchIndex(text[pos:])
	return m != nil && !letterAt(text, pos+m[1])
}

// unitAt returns the unit captured in [start,end) unless it is the prefix of
// a longer word ("3 main walls" has no unit "m").
func unitAt(text string, start, end int) string {
	if start < 0 || letterAt(text, end) {
		return ""
	}
	return text[start:end]
}

func (s *scan) addQuantity(name string, q model.Quantity) string {
	base := name
	for i := 2; ; i++ {
		if _, taken := s.data.Quantities[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
	q.Name = name
	s.data.Quantities[name] = q
	return name
}

func (s *scan) extractQuantities() {
	text := s.text

	for _, m := range namedQuantityPattern.FindAllStringSubmatchIndex(text, -1) {
		if s.inJSON(m[0]) || s.isConsumed(m[4], m[5]) {
			continue
		}
		value, ok := textutil.ParseNumber(text[m[4]:m[5]])
		if !ok {
			continue
		}
		unit := unitAt(text, m[6], m[7])
		separator := strings.TrimSpace(text[m[3]:m[4]])
		explicit := strings.HasPrefix(separator, ":") || strings.HasPrefix(separator, "=")
		name, category, ok := quantityName(text[m[2]:m[3]], unit, explicit)
		if !ok {
			continue
		}
		end := m[5]
		if unit != "" {
			end = m[7]
		}
		s.addQuantity(name, model.Quantity{
			Value:    value,
			Unit:     unit,
			Raw:      strings.TrimSpace(text[m[2]:end]),
			Category: category,
		})
		s.consume(m[4], end)
	}

	for _, m := range unitQuantityPattern.FindAllStringSubmatchIndex(text, -1) {
		if s.inJSON(m[0]) || s.isConsumed(m[2], m[3]) || identifierDigit(text, m[2]) {
			continue
		}
		unit := unitAt(text, m[4], m[5])
		if unit == "" {
			continue
		}
		value, ok := textutil.ParseNumber(text[m[2]:m[3]])
		if !ok {
			continue
		}
		category := categoryForUnit(unit)
		s.addQuantity(category, model.Quantity{
			Value:    value,
			Unit:     unit,
			Raw:      text[m[0]:m[5]],
			Category: category,
		})
		s.consume(m[2], m[5])
	}

	for _, m := range currencyPrefixPattern.FindAllStringSubmatchIndex(text, -1) {
		if s.inJSON(m[0]) || s.isConsumed(m[4], m[5]) {
			continue
		}
		// "EUR" written as a word must stand alone
		if letterBefore(text, m[2]) {
			continue
		}
		value, ok := textutil.ParseNumber(text[m[4]:m[5]])
		if !ok {
			continue
		}
		s.addQuantity(model.CategoryCost, model.Quantity{
			Value:    value,
			Unit:     text[m[2]:m[3]],
			Raw:      text[m[0]:m[1]],
			Category: model.CategoryCost,
		})
		s.consume(m[2], m[5])
	}

	for _, m := range countPattern.FindAllStringSubmatchIndex(text, -1) {
		if s.inJSON(m[0]) || s.isConsumed(m[2], m[3]) || letterAt(text, m[5]+trailingSuffix(text[m[5]:])) {
			continue
		}
		if identifierDigit(text, m[2]) || referencesElement(text[:m[2]]) {
			continue
		}
		base, ok := vocab.BaseTypeWord(text[m[4]:m[5]])
		if !ok {
			continue
		}
		value, _ := textutil.ParseNumber(text[m[2]:m[3]])
		s.addQuantity(base+"_count", model.Quantity{
			Value:    value,
			Raw:      text[m[0]:m[1]],
			Category: model.CategoryCount,
		})
		s.consume(m[2], m[3])
	}
}

// extractRawNumbers collects the numbers no pattern claimed.
func (s *scan) extractRawNumbers() {
	for _, m := range textutil.NumberPattern.FindAllStringIndex(s.text, -1) {
		start := m[0]
		if s.text[start] == '-' && letterBefore(s.text, start) {
			start++
		}
		if s.inJSON(start) || s.isConsumed(start, m[1]) || identifierDigit(s.text, start) || letterAt(s.text, m[1]) {
			continue
		}
		if v, ok := textutil.ParseNumber(s.text[start:m[1]]); ok {
			s.data.RawNumbers = append(s.data.RawNumbers, v)
		}
	}
}

// identifierDigit reports whether the number at pos is part of an
// identifier such as "W-01" or "F90".
func identifierDigit(text string, pos int) bool {
	if letterBefore(text, pos) {
		return true
	}
	if pos > 0 && (text[pos-1] == '-' || text[pos-1] == '#') && letterBefore(text, pos-1) {
		return true
	}
	return pos > 0 && text[pos-1] == '#'
}

var elementReference = regexp.MustCompile(`(?i)(?:level|floor|storey|geschoss|etage|room|raum|no\.?|nr\.?|number|#)\s*$`)

// referencesElement reports whether the text before a number names an
// element the number identifies ("level 2 rooms").
func referencesElement(before string) bool {
	return elementReference.MatchString(before)
}

func trailingSuffix(rest string) int {
	for _, suffix := range []string{"en", "s", "e", "n"} {
		if strings.HasPrefix(strings.ToLower(rest), suffix) {
			return len(suffix)
		}
	}
	return 0
}

func categoryForUnit(unit string) string {
	u, ok := units.Lookup(unit)
	if !ok {
		return model.CategoryOther
	}
	switch u.Dimension {
	case units.Length:
		return model.CategoryLength
	case units.Area:
		return model.CategoryArea
	case units.Volume:
		return model.CategoryVolume
	case units.Weight:
		return model.CategoryWeight
	case units.Currency:
		return model.CategoryCost
	}
	return model.CategoryOther
}

// quantityName derives a snake_case quantity name from the label in front of
// a number: "Number of doors" is door_count, "wall thickness" stays
// wall_thickness. Labels without a measure keyword are only accepted after an
// explicit ":" or "=".
func quantityName(label, unit string, explicit bool) (string, string, bool) {
	var words []string
	for _, w := range textutil.Words(textutil.Fold(label)) {
		if !labelStopWords.Contains(w) {
			words = append(words, w)
		}
	}

	keywordAt := -1
	keyword := ""
	counted := ""
	for i, w := range words {
		if k, ok := vocab.MeasureKeyword(w); ok {
			if k == "count" {
				keyword = k
				keywordAt = i
				continue
			}
			if keyword == "" || keyword == "count" || i > keywordAt {
				keyword, keywordAt = k, i
			}
		}
		if base, ok := vocab.BaseTypeWord(w); ok {
			counted = base
		}
	}

	category := model.CategoryOther
	if unit != "" {
		category = categoryForUnit(unit)
	}

	switch {
	case keyword == "count" && counted != "":
		return counted + "_count", model.CategoryCount, true
	case keyword != "":
		if category == model.CategoryOther {
			category = vocab.MeasureCategory(keyword)
		}
		name := keyword
		if keywordAt > 0 {
			prev := words[keywordAt-1]
			if base, ok := vocab.BaseTypeWord(prev); ok {
				name = base + "_" + keyword
			} else if _, isKeyword := vocab.MeasureKeyword(prev); !isKeyword {
				name = prev + "_" + keyword
			}
		}
		return name, category, true
	case explicit && len(words) > 0:
		if len(words) > 3 {
			words = words[len(words)-2:]
		}
		return strings.Join(words, "_"), category, true
	}
	return "", "", false
}
