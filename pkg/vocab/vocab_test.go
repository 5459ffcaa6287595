package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalEntityType(t *testing.T) {
	tests := map[string]string{
		"wand":          "Wall",
		"Mauer":         "Wall",
		"walls":         "Wall",
		"Türen":         "Door",
		"IfcWall":       "Wall",
		"storey":        "Floor",
		"curtain panel": "Curtain Panel",
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalEntityType(in), in)
	}
}

func TestCanonicalMaterial(t *testing.T) {
	assert.Equal(t, "Concrete", CanonicalMaterial("Beton"))
	assert.Equal(t, "Reinforced Concrete", CanonicalMaterial("stahlbeton"))
	assert.Equal(t, "Insulation", CanonicalMaterial("Dämmung"))
	assert.Equal(t, "Cork Board", CanonicalMaterial("cork board"))
}

func TestMaterialCategory(t *testing.T) {
	assert.Equal(t, MaterialConcrete, MaterialCategory("Concrete C30/37"))
	assert.Equal(t, MaterialComposite, MaterialCategory("Reinforced Concrete"))
	assert.Equal(t, MaterialComposite, MaterialCategory("steel and glass"))
	assert.Equal(t, MaterialWood, MaterialCategory("Glulam"))
	assert.Equal(t, MaterialOther, MaterialCategory("cork"))
}

func TestCanonicalPropertyKey(t *testing.T) {
	tests := map[string]string{
		"Fire Rating":   "fireRating",
		"fire_rating":   "fireRating",
		"Feuerwiderstand": "fireRating",
		"U-Wert":        "uValue",
		"fireRating":    "fireRating",
		"FireRating":    "fireRating",
		"sound class":   "soundClass",
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalPropertyKey(in), in)
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"yes", "Ja", "TRUE", "wahr"} {
		v, ok := ParseBool(s)
		assert.True(t, ok, s)
		assert.True(t, v, s)
	}
	for _, s := range []string{"no", "Nein", "false", "falsch"} {
		v, ok := ParseBool(s)
		assert.True(t, ok, s)
		assert.False(t, v, s)
	}
	_, ok := ParseBool("maybe")
	assert.False(t, ok)
}

func TestMeasureKeyword(t *testing.T) {
	k, ok := MeasureKeyword("Fläche")
	assert.True(t, ok)
	assert.Equal(t, "area", k)
	assert.Equal(t, "length", MeasureCategory("thickness"))
	assert.Equal(t, "count", MeasureCategory("count"))
}
