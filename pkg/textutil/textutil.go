// Package textutil contains the small text helpers shared by the synthesis
// phases: locale-tolerant number parsing, identifier casing and word sets.
package textutil

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NumberPattern matches a number with optional sign, thousands separators and
// decimal part, in English or German notation.
var NumberPattern = regexp.MustCompile(`-?\d+(?:[.,']\d{3})*(?:[.,]\d+)?`)

var simpleNumber = regexp.MustCompile(`-?\d+(?:[.,]\d+)*`)

// ParseNumber parses a number written as "1234.5", "1,234.5", "1.234,5",
// "1 234" or "10,4". When only one kind of separator is present, a single
// separator followed by exactly three digits is treated as a thousands
// separator only for commas; a single dot is always decimal.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}
	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case commas == 1:
		idx := strings.Index(s, ",")
		if len(s)-idx-1 == 3 && idx > 0 && idx <= 3 && !strings.HasPrefix(s, "0") {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FindNumbers returns every number embedded in s, in order.
func FindNumbers(s string) []float64 {
	matches := simpleNumber.FindAllString(s, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		if v, ok := ParseNumber(m); ok {
			out = append(out, v)
		}
	}
	return out
}

// ToFloat converts JSON-ish values to float64.
func ToFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		return ParseNumber(n)
	}
	return 0, false
}

var foldTransformer = func() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Fold lower-cases s and strips diacritics, so "Wärme" and "warme" compare equal.
func Fold(s string) string {
	s = strings.ReplaceAll(s, "ß", "ss")
	out, _, err := transform.String(foldTransformer(), s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Words splits s into lower-cased alphanumeric words.
func Words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// WordSet returns the distinct words of s.
func WordSet(s string) mapset.Set[string] {
	return mapset.NewThreadUnsafeSet[string](Words(s)...)
}

// Jaccard returns the Jaccard similarity of the word sets of a and b.
func Jaccard(a, b string) float64 {
	sa, sb := WordSet(a), WordSet(b)
	if sa.Cardinality() == 0 && sb.Cardinality() == 0 {
		return 0
	}
	inter := sa.Intersect(sb).Cardinality()
	union := sa.Union(sb).Cardinality()
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// SnakeCase turns "Wall Thickness" into "wall_thickness".
func SnakeCase(s string) string {
	return strings.Join(Words(Fold(s)), "_")
}

// CamelCase turns "fire rating" or "fire_rating" into "fireRating".
func CamelCase(s string) string {
	words := Words(Fold(s))
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(words[0])
	for _, w := range words[1:] {
		r := []rune(w)
		b.WriteString(strings.ToUpper(string(r[0])))
		b.WriteString(string(r[1:]))
	}
	return b.String()
}

var titleCaser = cases.Title(language.Und)

// TitleCase turns "curtain wall" into "Curtain Wall".
func TitleCase(s string) string {
	return titleCaser.String(strings.ToLower(strings.TrimSpace(s)))
}

// ContainsAny reports whether s contains any of the keywords as a substring,
// case-insensitively.
func ContainsAny(s string, keywords ...string) bool {
	s = strings.ToLower(s)
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
