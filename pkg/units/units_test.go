package units

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		value     float64
		symbol    string
		want      float64
		canonical string
	}{
		{150, "cm", 1.5, Meter},
		{2, "m", 2, Meter},
		{2500, "mm", 2.5, Meter},
		{3, "Kubikmeter", 3, CubicMeter},
		{500, "l", 0.5, CubicMeter},
		{12, "qm", 12, SquareMeter},
		{2, "t", 2000, Kilogram},
		{10, "EUR", 10, Euro},
	}
	for _, tt := range tests {
		got, u, ok := Convert(tt.value, tt.symbol)
		assert.True(t, ok, tt.symbol)
		assert.InDelta(t, tt.want, got, 1e-9, tt.symbol)
		assert.Equal(t, tt.canonical, u.Canonical, tt.symbol)
	}

	v, _, ok := Convert(7, "furlong")
	assert.False(t, ok)
	assert.Equal(t, 7.0, v)
}

func TestAlternationPrefersLongestSpelling(t *testing.T) {
	re := regexp.MustCompile(`(?i)^(` + Alternation(Length) + `)`)
	assert.Equal(t, "millimeters", re.FindString("millimeters"))
	assert.Equal(t, "mm", re.FindString("mm"))

	spellings := Spellings(Volume)
	assert.Contains(t, spellings, "m³")
	assert.NotContains(t, spellings, "kg")
}
