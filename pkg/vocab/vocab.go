// Package vocab holds the fixed lookup tables used to canonicalize building
// vocabulary. Keys are diacritic-folded lower-case strings.
package vocab

import (
	"strings"

	"github.com/athapong/bim-synthesis/pkg/textutil"
	mapset "github.com/deckarep/golang-set/v2"
)

// entity type word -> english base word
var typeBase = map[string]string{
	"building": "building", "gebaude": "building", "gebaeude": "building", "ifcbuilding": "building",
	"wall": "wall", "walls": "wall", "wand": "wall", "wande": "wall", "mauer": "wall", "ifcwall": "wall", "ifcwallstandardcase": "wall",
	"door": "door", "doors": "door", "tur": "door", "turen": "door", "tuer": "door", "ifcdoor": "door",
	"window": "window", "windows": "window", "fenster": "window", "ifcwindow": "window",
	"floor": "floor", "floors": "floor", "storey": "floor", "story": "floor", "geschoss": "floor", "stockwerk": "floor",
	"etage": "floor", "level": "floor", "ifcbuildingstorey": "floor",
	"room": "room", "rooms": "room", "raum": "room", "raume": "room", "zimmer": "room", "space": "room", "ifcspace": "room",
	"zone": "zone", "ifczone": "zone",
	"site": "site", "ifcsite": "site",
	"column": "column", "columns": "column", "stutze": "column", "saule": "column", "ifccolumn": "column",
	"beam": "beam", "beams": "beam", "trager": "beam", "balken": "beam", "ifcbeam": "beam",
	"slab": "slab", "slabs": "slab", "decke": "slab", "ifcslab": "slab",
	"roof": "roof", "dach": "roof", "ifcroof": "roof",
	"stair": "stair", "stairs": "stair", "treppe": "stair", "ifcstair": "stair",
	"material": "material", "ifcmaterial": "material",
}

var canonicalTypes = map[string]string{
	"building": "Building",
	"wall":     "Wall",
	"door":     "Door",
	"window":   "Window",
	"floor":    "Floor",
	"room":     "Room",
	"zone":     "Zone",
	"site":     "Site",
	"column":   "Column",
	"beam":     "Beam",
	"slab":     "Slab",
	"roof":     "Roof",
	"stair":    "Stair",
	"material": "Material",
}

// BaseTypeWord maps an English or German entity word ("Türen", "IfcWall")
// onto its English base word ("door", "wall").
func BaseTypeWord(word string) (string, bool) {
	b, ok := typeBase[textutil.Fold(word)]
	return b, ok
}

// CanonicalEntityType maps a type name onto its canonical form. Unmapped
// names are title-cased.
func CanonicalEntityType(name string) string {
	if base, ok := BaseTypeWord(name); ok {
		return canonicalTypes[base]
	}
	return textutil.TitleCase(name)
}

// material synonym -> canonical material name
var materialNames = map[string]string{
	"concrete": "Concrete", "beton": "Concrete",
	"reinforced concrete": "Reinforced Concrete", "stahlbeton": "Reinforced Concrete",
	"precast concrete": "Precast Concrete", "fertigteil": "Precast Concrete",
	"steel": "Steel", "stahl": "Steel", "structural steel": "Steel",
	"wood": "Timber", "timber": "Timber", "holz": "Timber", "glulam": "Glulam", "brettschichtholz": "Glulam",
	"brick": "Brick", "ziegel": "Brick", "masonry": "Masonry", "mauerwerk": "Masonry", "kalksandstein": "Sand-Lime Brick",
	"glass": "Glass", "glas": "Glass",
	"insulation": "Insulation", "dammung": "Insulation", "daemmung": "Insulation", "mineral wool": "Mineral Wool", "mineralwolle": "Mineral Wool",
	"aluminium": "Aluminium", "aluminum": "Aluminium",
	"gypsum": "Gypsum", "gips": "Gypsum", "drywall": "Gypsum",
	"composite": "Composite", "verbund": "Composite",
}

// CanonicalMaterial maps a material name onto its canonical form. Unmapped
// names are title-cased.
func CanonicalMaterial(name string) string {
	if m, ok := materialNames[textutil.Fold(name)]; ok {
		return m
	}
	return textutil.TitleCase(name)
}

// Material categories.
const (
	MaterialConcrete   = "concrete"
	MaterialSteel      = "steel"
	MaterialWood       = "wood"
	MaterialMasonry    = "masonry"
	MaterialGlass      = "glass"
	MaterialInsulation = "insulation"
	MaterialComposite  = "composite"
	MaterialOther      = "other"
)

// MaterialCategoryKeywords lists keywords per primary material category.
var MaterialCategoryKeywords = map[string][]string{
	MaterialConcrete:   {"concrete", "beton", "cement", "zement", "precast", "fertigteil", "screed", "estrich"},
	MaterialSteel:      {"steel", "stahl", "metal", "metall", "iron", "eisen", "aluminium", "aluminum", "s235", "s355"},
	MaterialWood:       {"wood", "timber", "holz", "glulam", "plywood", "sperrholz", "clt", "lumber"},
	MaterialMasonry:    {"brick", "ziegel", "masonry", "mauerwerk", "block", "stone", "stein", "kalksandstein"},
	MaterialGlass:      {"glass", "glas", "glazing", "verglasung"},
	MaterialInsulation: {"insulation", "dammung", "daemmung", "mineral wool", "mineralwolle", "eps", "xps", "polystyrene", "rockwool"},
}

var compositeMarkers = []string{"composite", "verbund", "reinforced", "stahlbeton", "sandwich", "laminated"}

// MaterialCategory classifies a material name. A name matching several
// primary categories, or carrying a composite marker, is composite.
func MaterialCategory(name string) string {
	folded := textutil.Fold(name)
	if textutil.ContainsAny(folded, compositeMarkers...) {
		return MaterialComposite
	}
	var hits []string
	for _, category := range []string{MaterialConcrete, MaterialSteel, MaterialWood, MaterialMasonry, MaterialGlass, MaterialInsulation} {
		if textutil.ContainsAny(folded, MaterialCategoryKeywords[category]...) {
			hits = append(hits, category)
		}
	}
	switch len(hits) {
	case 0:
		return MaterialOther
	case 1:
		return hits[0]
	default:
		return MaterialComposite
	}
}

// property key synonym -> canonical camelCase key
var propertyKeys = map[string]string{
	"material": "material", "werkstoff": "material", "baustoff": "material",
	"fire rating": "fireRating", "fire resistance": "fireRating", "feuerwiderstand": "fireRating", "brandschutz": "fireRating",
	"load bearing": "loadBearing", "loadbearing": "loadBearing", "is load bearing": "loadBearing", "tragend": "loadBearing",
	"is external": "isExternal", "external": "isExternal", "exterior": "isExternal", "aussen": "isExternal", "aussenwand": "isExternal",
	"u value": "uValue", "u-value": "uValue", "thermal transmittance": "uValue", "u wert": "uValue", "u-wert": "uValue",
	"thickness": "thickness", "dicke": "thickness", "starke": "thickness",
	"height": "height", "hohe": "height",
	"width": "width", "breite": "width",
	"length": "length", "lange": "length",
	"finish": "finish", "oberflache": "finish", "surface finish": "finish",
	"color": "color", "colour": "color", "farbe": "color",
	"strength class": "strengthClass", "concrete class": "strengthClass", "festigkeitsklasse": "strengthClass", "betonklasse": "strengthClass",
	"function": "function", "funktion": "function", "usage": "function", "nutzung": "function",
	"location": "location", "lage": "location", "position": "location",
	"acoustic rating": "acousticRating", "schallschutz": "acousticRating",
	"name": "name", "bezeichnung": "name",
	"type": "type", "typ": "type",
	"guid": "guid", "globalid": "guid", "global id": "guid",
	"tag": "tag", "mark": "mark", "kennzeichen": "mark",
	"status": "status", "zustand": "status",
	"manufacturer": "manufacturer", "hersteller": "manufacturer",
	"level": "level", "storey": "level", "geschoss": "level",
	"cost": "cost", "kosten": "cost", "price": "cost", "preis": "cost",
}

// CanonicalPropertyKey maps a property key onto its canonical name,
// camel-casing unmapped keys. Matching is case- and diacritic-insensitive and
// treats underscores and hyphens as spaces.
func CanonicalPropertyKey(key string) string {
	folded := textutil.Fold(key)
	if k, ok := propertyKeys[folded]; ok {
		return k
	}
	words := textutil.Words(folded)
	if k, ok := propertyKeys[strings.Join(words, " ")]; ok {
		return k
	}
	// single words keep their inner capitals: "FireRating" -> "fireRating"
	if len(words) == 1 && strings.IndexFunc(key, func(r rune) bool { return r == ' ' || r == '_' || r == '-' }) < 0 {
		r := []rune(strings.TrimSpace(key))
		return strings.ToLower(string(r[0])) + string(r[1:])
	}
	return textutil.CamelCase(key)
}

var (
	truthy = mapset.NewSet[string]("yes", "ja", "true", "wahr")
	falsy  = mapset.NewSet[string]("no", "nein", "false", "falsch")
)

// ParseBool coerces the fixed truthy/falsy tokens to booleans.
func ParseBool(s string) (bool, bool) {
	t := strings.ToLower(strings.TrimSpace(s))
	if truthy.Contains(t) {
		return true, true
	}
	if falsy.Contains(t) {
		return false, true
	}
	return false, false
}

// Antonyms are the term pairs whose co-occurrence across chunks marks a
// qualitative contradiction.
var Antonyms = [][2]string{
	{"yes", "no"},
	{"true", "false"},
	{"present", "absent"},
	{"exists", "missing"},
	{"available", "unavailable"},
	{"included", "excluded"},
	{"active", "inactive"},
}

// measure keyword synonym -> english keyword
var measureKeywords = map[string]string{
	"volume": "volume", "volumen": "volume",
	"area": "area", "flache": "area", "surface": "area", "grundflache": "area",
	"length": "length", "lange": "length",
	"height": "height", "hohe": "height",
	"width": "width", "breite": "width",
	"thickness": "thickness", "dicke": "thickness", "starke": "thickness",
	"depth": "depth", "tiefe": "depth",
	"perimeter": "perimeter", "umfang": "perimeter",
	"weight": "weight", "gewicht": "weight", "mass": "weight", "masse": "weight",
	"count": "count", "anzahl": "count", "number": "count",
	"quantity": "quantity", "menge": "quantity",
	"cost": "cost", "costs": "cost", "kosten": "cost", "price": "cost", "preis": "cost",
}

// MeasureKeyword maps a measure word onto its English keyword.
func MeasureKeyword(word string) (string, bool) {
	k, ok := measureKeywords[textutil.Fold(word)]
	return k, ok
}

// MeasureCategory maps a measure keyword onto a quantity category.
func MeasureCategory(keyword string) string {
	switch keyword {
	case "volume":
		return "volume"
	case "area":
		return "area"
	case "length", "height", "width", "thickness", "depth", "perimeter":
		return "length"
	case "weight":
		return "weight"
	case "count", "quantity":
		return "count"
	case "cost":
		return "cost"
	}
	return "other"
}

// CostKeywords mark cost-bearing names and text.
var CostKeywords = []string{"cost", "costs", "kosten", "price", "preis", "budget", "amount", "betrag", "total cost", "eur", "usd", "€", "$", "£"}

// CostCategoryKeywords classify cost items.
var CostCategoryKeywords = map[string][]string{
	"material":  {"material", "concrete", "beton", "steel", "stahl", "timber", "holz", "brick", "glass", "insulation", "supply", "lieferung"},
	"labor":     {"labor", "labour", "lohn", "arbeit", "installation", "montage", "workers", "crew", "hours", "stunden"},
	"equipment": {"equipment", "crane", "kran", "machine", "maschine", "scaffold", "gerüst", "gerust", "rental", "miete"},
	"overhead":  {"overhead", "gemeinkosten", "management", "admin", "insurance", "versicherung", "permit", "genehmigung", "fee"},
	"transport": {"transport", "delivery", "freight", "fracht", "shipping", "logistics", "logistik"},
}
