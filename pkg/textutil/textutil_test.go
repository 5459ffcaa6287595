package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"150", 150, true},
		{"10.4", 10.4, true},
		{"10,4", 10.4, true},
		{"1,234", 1234, true},
		{"1,234.50", 1234.5, true},
		{"1.234,50", 1234.5, true},
		{"1.234.567", 1234567, true},
		{"0,125", 0.125, true},
		{"12'500", 12500, true},
		{"-3.5", -3.5, true},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 1e-9, tt.in)
		}
	}
}

func TestFindNumbers(t *testing.T) {
	assert.Equal(t, []float64{12, 1500.5}, FindNumbers("12 doors for 1,500.50 EUR"))
	assert.Empty(t, FindNumbers("none here"))
}

func TestCasing(t *testing.T) {
	assert.Equal(t, "wall_thickness", SnakeCase("Wall Thickness"))
	assert.Equal(t, "fireRating", CamelCase("fire rating"))
	assert.Equal(t, "fireRating", CamelCase("Fire_Rating"))
	assert.Equal(t, "warmedammung", Fold("Wärmedämmung"))
	assert.Equal(t, "strasse", Fold("Straße"))
	assert.Equal(t, "Curtain Wall", TitleCase("curtain WALL"))
}

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, Jaccard("Exterior Wall", "wall exterior"))
	assert.InDelta(t, 1.0/3.0, Jaccard("exterior wall", "interior wall"), 1e-9)
	assert.Equal(t, 0.0, Jaccard("", ""))
}
