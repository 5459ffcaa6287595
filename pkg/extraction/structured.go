package extraction

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/textutil"
	"github.com/athapong/bim-synthesis/pkg/vocab"
	"github.com/tidwall/gjson"
)

const structuredEntityConfidence = 0.85

var (
	typeFields = []string{"type", "ifc_type", "IfcType", "ifcType", "class", "entity_type"}
	idFields   = []string{"id", "express_id", "ExpressID", "expressId"}
	nameFields = []string{"name", "Name", "long_name", "LongName"}
	listFields = []string{"entities", "elements", "components", "items", "objects"}
	nestedProp = []string{"properties", "Properties", "psets", "attributes"}
)

// findJSONObjects returns the spans of balanced top-level {...} substrings
// that parse as JSON.
func findJSONObjects(text string) []span {
	var out []span
	depth, start := 0, -1
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && gjson.Valid(text[start:i+1]) {
				out = append(out, span{start, i + 1})
			}
		}
	}
	return out
}

func firstString(obj gjson.Result, fields []string) string {
	for _, f := range fields {
		if v := obj.Get(f); v.Exists() && v.Type != gjson.Null && v.String() != "" {
			return strings.TrimSpace(v.String())
		}
	}
	return ""
}

func (s *scan) extractStructured() {
	for _, sp := range s.jsonSpans {
		root := gjson.Parse(s.text[sp.start:sp.end])
		listed := false
		for _, f := range listFields {
			if list := root.Get(f); list.IsArray() {
				listed = true
				list.ForEach(func(_, item gjson.Result) bool {
					if item.IsObject() {
						s.structuredObject(item)
					}
					return true
				})
			}
		}
		if !listed {
			s.structuredObject(root)
		}
	}
}

// structuredObject records a typed object as an entity. Untyped objects
// contribute their scalar fields as quantities and properties.
func (s *scan) structuredObject(obj gjson.Result) {
	kind := firstString(obj, typeFields)
	if kind == "" {
		s.structuredFields(obj)
		return
	}

	e := model.Entity{
		Type:       kind,
		ID:         firstString(obj, idFields),
		Name:       firstString(obj, nameFields),
		Confidence: structuredEntityConfidence,
		Properties: make(map[string]interface{}),
	}
	if e.ID != "" {
		e.Confidence = identifiedEntityConfidence
	}
	if e.Name == "" {
		if base, ok := vocab.BaseTypeWord(kind); ok {
			e.Name = base
		} else {
			e.Name = strings.ToLower(kind)
		}
	}

	skip := map[string]bool{}
	for _, group := range [][]string{typeFields, idFields, nameFields, listFields, nestedProp} {
		for _, f := range group {
			skip[f] = true
		}
	}
	obj.ForEach(func(key, value gjson.Result) bool {
		if !skip[key.String()] {
			if v, ok := scalar(value); ok {
				e.Properties[key.String()] = v
			}
		}
		return true
	})
	for _, f := range nestedProp {
		obj.Get(f).ForEach(func(key, value gjson.Result) bool {
			if v, ok := scalar(value); ok {
				e.Properties[key.String()] = v
			}
			return true
		})
	}
	s.addEntity(e)
}

func (s *scan) structuredFields(obj gjson.Result) {
	unit := obj.Get("unit").String()
	obj.ForEach(func(key, value gjson.Result) bool {
		name := textutil.SnakeCase(key.String())
		if name == "" || name == "unit" {
			return true
		}
		switch value.Type {
		case gjson.Number:
			if _, taken := s.data.Quantities[name]; taken {
				return true
			}
			category := model.CategoryOther
			if unit != "" {
				category = categoryForUnit(unit)
			}
			if category == model.CategoryOther {
				for _, w := range textutil.Words(name) {
					if k, ok := vocab.MeasureKeyword(w); ok {
						category = vocab.MeasureCategory(k)
					}
				}
			}
			s.data.Quantities[name] = model.Quantity{
				Name:     name,
				Value:    value.Float(),
				Unit:     unit,
				Raw:      value.Raw,
				Category: category,
			}
		case gjson.String, gjson.True, gjson.False:
			if _, set := s.data.Properties[key.String()]; !set {
				v, _ := scalar(value)
				s.data.Properties[key.String()] = v
			}
		}
		return true
	})
}

func scalar(v gjson.Result) (interface{}, bool) {
	switch v.Type {
	case gjson.String:
		return v.String(), true
	case gjson.Number:
		return v.Float(), true
	case gjson.True, gjson.False:
		return v.Bool(), true
	}
	return nil, false
}

var htmlMarkers = []string{"<html", "<body", "<table", "<p>", "<div", "<ul", "<li>", "<td", "<br"}

func looksLikeHTML(content string) bool {
	head := content
	if len(head) > 512 {
		head = head[:512]
	}
	return textutil.ContainsAny(head, htmlMarkers...)
}

// htmlToText reduces HTML content to text with one line per block element.
func htmlToText(content string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		cell.AppendHtml(" ")
	})
	doc.Find("p, li, tr, div, h1, h2, h3, h4, h5, h6").Each(func(_ int, block *goquery.Selection) {
		block.AppendHtml("\n")
	})

	lines := strings.Split(doc.Find("body").Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n"), nil
}
