// Package units holds the fixed unit tables shared by extraction and
// normalization. Every recognised unit spelling maps to one canonical unit
// per dimension through a multiplicative factor.
package units

import (
	"regexp"
	"sort"
	"strings"
)

// Dimensions.
const (
	Length   = "length"
	Area     = "area"
	Volume   = "volume"
	Weight   = "weight"
	Currency = "currency"
)

// Canonical units.
const (
	Meter       = "m"
	SquareMeter = "m²"
	CubicMeter  = "m³"
	Kilogram    = "kg"
	Euro        = "€"
)

// Unit describes one spelling of a unit.
type Unit struct {
	Symbol    string
	Dimension string
	Canonical string
	Factor    float64
	// Code is the ISO currency code for currency units.
	Code string
}

var table = map[string]Unit{}

func add(dimension, canonical string, factor float64, code string, spellings ...string) {
	for _, s := range spellings {
		table[strings.ToLower(s)] = Unit{
			Symbol:    s,
			Dimension: dimension,
			Canonical: canonical,
			Factor:    factor,
			Code:      code,
		}
	}
}

func init() {
	add(Length, Meter, 1, "", "m", "meter", "meters", "metre", "metres")
	add(Length, Meter, 0.001, "", "mm", "millimeter", "millimeters", "millimetre", "millimetres")
	add(Length, Meter, 0.01, "", "cm", "centimeter", "centimeters", "centimetre", "centimetres", "zentimeter")
	add(Length, Meter, 0.1, "", "dm", "dezimeter", "decimeter")
	add(Length, Meter, 1000, "", "km", "kilometer", "kilometers", "kilometre")
	add(Length, Meter, 0.3048, "", "ft", "feet", "foot", "fuß")
	add(Length, Meter, 0.0254, "", "inch", "inches", "zoll")

	add(Area, SquareMeter, 1, "", "m²", "m2", "qm", "sqm", "square meter", "square meters", "square metre", "square metres", "quadratmeter")
	add(Area, SquareMeter, 0.0001, "", "cm²", "cm2", "square centimeter", "square centimeters")
	add(Area, SquareMeter, 0.000001, "", "mm²", "mm2")
	add(Area, SquareMeter, 10000, "", "ha", "hectare", "hectares", "hektar")
	add(Area, SquareMeter, 0.09290304, "", "ft²", "ft2", "sq ft", "sqft", "square feet", "square foot")

	add(Volume, CubicMeter, 1, "", "m³", "m3", "cbm", "cubic meter", "cubic meters", "cubic metre", "cubic metres", "kubikmeter")
	add(Volume, CubicMeter, 0.001, "", "l", "liter", "liters", "litre", "litres", "dm³", "dm3")
	add(Volume, CubicMeter, 0.000001, "", "cm³", "cm3", "ccm")
	add(Volume, CubicMeter, 0.028316846592, "", "ft³", "ft3", "cubic feet", "cubic foot")

	add(Weight, Kilogram, 1, "", "kg", "kilogram", "kilograms", "kilogramm", "kilo")
	add(Weight, Kilogram, 0.001, "", "g", "gram", "grams", "gramm")
	add(Weight, Kilogram, 1000, "", "t", "ton", "tons", "tonne", "tonnes", "tonnen")
	add(Weight, Kilogram, 0.45359237, "", "lb", "lbs", "pound", "pounds", "pfund")

	add(Currency, Euro, 1, "EUR", "€", "eur", "euro", "euros")
	add(Currency, Euro, 1, "USD", "$", "usd", "dollar", "dollars", "us$")
	add(Currency, Euro, 1, "GBP", "£", "gbp", "pound sterling")
	add(Currency, Euro, 1, "CHF", "chf", "franken")
	add(Currency, Euro, 1, "JPY", "¥", "jpy", "yen")
}

// Lookup returns the unit for a spelling, case-insensitively.
func Lookup(symbol string) (Unit, bool) {
	u, ok := table[strings.ToLower(strings.TrimSpace(symbol))]
	return u, ok
}

// Convert turns value in unit symbol into the canonical unit of its dimension.
// Currency amounts keep their numeric value; conversion between currencies is
// rate-dependent and happens in the cost strategy. Unrecognised units return
// the value unchanged with ok=false.
func Convert(value float64, symbol string) (float64, Unit, bool) {
	u, ok := Lookup(symbol)
	if !ok {
		return value, Unit{}, false
	}
	return value * u.Factor, u, true
}

// CanonicalFor returns the canonical unit of a dimension.
func CanonicalFor(dimension string) string {
	switch dimension {
	case Length:
		return Meter
	case Area:
		return SquareMeter
	case Volume:
		return CubicMeter
	case Weight:
		return Kilogram
	case Currency:
		return Euro
	}
	return ""
}

// Spellings returns every known spelling of units in the given dimensions,
// longest first so that regex alternation prefers the most specific unit.
func Spellings(dimensions ...string) []string {
	want := map[string]bool{}
	for _, d := range dimensions {
		want[d] = true
	}
	out := make([]string, 0, len(table))
	for s, u := range table {
		if len(want) == 0 || want[u.Dimension] {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// Alternation renders spellings as a regex alternation group body.
func Alternation(dimensions ...string) string {
	spellings := Spellings(dimensions...)
	quoted := make([]string, len(spellings))
	for i, s := range spellings {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(s), " ", `\s+`)
	}
	return strings.Join(quoted, "|")
}
