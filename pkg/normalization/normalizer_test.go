package normalization

import (
	"testing"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *model.ExtractedData {
	d := model.EmptyExtractedData("c1")
	d.ExtractionConfidence = 0.8
	d.Entities = append(d.Entities,
		model.Entity{ID: "W-01", Type: "wand", Name: "Wall W-01", Confidence: 0.9, Source: "c1",
			Properties: map[string]interface{}{"Fire Rating": "F90", "load bearing": "ja", "material": "beton"}},
		model.Entity{Type: "material", Name: "stahlbeton", Confidence: 0.7, Source: "c1",
			Properties: map[string]interface{}{}},
	)
	d.Quantities["wall_thickness"] = model.Quantity{Name: "wall_thickness", Value: 24, Unit: "cm", Category: model.CategoryLength}
	d.Quantities["cost"] = model.Quantity{Name: "cost", Value: 1200, Unit: "USD", Category: model.CategoryCost}
	d.Quantities["euros"] = model.Quantity{Name: "euros", Value: 500, Unit: "EUR", Category: model.CategoryCost}
	d.Properties["is external"] = "nein"
	d.Relationships = append(d.Relationships, model.Relationship{Type: "part_of", Source: "W-01", Target: "floor", Confidence: 0.8})
	d.SpatialContext["W-01"] = model.SpatialEntry{EntityID: "W-01", Level: "2"}
	return d
}

func TestNormalize(t *testing.T) {
	in := sample()
	out := New().Normalize(in)
	require.NotNil(t, out)

	wall := out.Entities[0]
	assert.Equal(t, "#W-01", wall.ID)
	assert.Equal(t, "Wall", wall.Type)
	assert.Equal(t, "F90", wall.Properties["fireRating"])
	assert.Equal(t, true, wall.Properties["loadBearing"])
	assert.Equal(t, "Concrete", wall.Properties["material"])

	material := out.Entities[1]
	assert.Equal(t, "Material", material.Type)
	assert.Equal(t, "Reinforced Concrete", material.Name)

	assert.InDelta(t, 0.24, out.Quantities["wall_thickness"].Value, 1e-9)
	assert.Equal(t, "m", out.Quantities["wall_thickness"].Unit)
	assert.Equal(t, 1200.0, out.Quantities["cost"].Value)
	assert.Equal(t, "USD", out.Quantities["cost"].Unit)
	assert.Equal(t, "€", out.Quantities["euros"].Unit)

	assert.Equal(t, false, out.Properties["isExternal"])
	assert.Equal(t, "#W-01", out.Relationships[0].Source)
	assert.Equal(t, "floor", out.Relationships[0].Target)
	require.Contains(t, out.SpatialContext, "#W-01")
	assert.Equal(t, "#W-01", out.SpatialContext["#W-01"].EntityID)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := sample()
	before := in.Clone()
	New().Normalize(in)
	assert.Equal(t, before, in)
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New()
	once := n.Normalize(sample())
	twice := n.Normalize(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeNil(t *testing.T) {
	assert.Nil(t, New().Normalize(nil))
}

func TestNormalizeInvalidKeepsOriginal(t *testing.T) {
	in := sample()
	in.Entities[0].Confidence = 1.5
	out := New().Normalize(in)

	assert.Equal(t, "W-01", out.Entities[0].ID)
	assert.NotEmpty(t, out.ProcessingErrors)
	assert.Empty(t, in.ProcessingErrors)
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in       string
		value    float64
		unit     string
		category string
	}{
		{"150 cm", 1.5, "m", model.CategoryLength},
		{"1.5 m", 1.5, "m", model.CategoryLength},
		{"2500 mm", 2.5, "m", model.CategoryLength},
		{"12 qm", 12, "m²", model.CategoryArea},
		{"10 m³", 10, "m³", model.CategoryVolume},
		{"2 t", 2000, "kg", model.CategoryWeight},
		{"1.234,5 €", 1234.5, "€", model.CategoryCost},
		{"7 widgets", 7, "widgets", model.CategoryOther},
		{"42", 42, "", model.CategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			q, err := ParseQuantity(tt.in)
			require.NoError(t, err)
			assert.InDelta(t, tt.value, q.Value, 1e-9)
			assert.Equal(t, tt.unit, q.Unit)
			assert.Equal(t, tt.category, q.Category)
		})
	}
}

func TestParseQuantityIdempotent(t *testing.T) {
	for _, in := range []string{"150 cm", "3 ft", "20 sqft", "5 l"} {
		first, err := ParseQuantity(in)
		require.NoError(t, err)
		again, err := ParseQuantity(FormatQuantity(first))
		require.NoError(t, err)
		assert.InDelta(t, first.Value, again.Value, 1e-9, in)
		assert.Equal(t, first.Unit, again.Unit, in)
	}
}

func TestParseQuantityRejectsText(t *testing.T) {
	_, err := ParseQuantity("about ten metres")
	assert.Error(t, err)
}
