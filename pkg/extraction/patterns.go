package extraction

import (
	"regexp"

	"github.com/athapong/bim-synthesis/pkg/units"
	mapset "github.com/deckarep/golang-set/v2"
)

// Raw entity type words, English and German. Normalization maps them onto
// canonical IFC-style names.
var entityTypeWords = []string{
	"building", "gebäude", "gebaeude",
	"wall", "wand", "wände", "mauer",
	"door", "tür", "türen", "tuer",
	"window", "fenster",
	"floor", "storey", "story", "geschoss", "stockwerk", "etage", "level",
	"room", "raum", "räume", "zimmer", "space",
	"column", "stütze", "säule",
	"beam", "träger", "balken",
	"slab", "decke", "roof", "dach",
	"stair", "stairs", "treppe",
}

// Material keywords recognized in free text.
var materialWords = []string{
	"reinforced concrete", "stahlbeton", "concrete", "beton",
	"steel", "stahl", "timber", "wood", "holz", "brick", "ziegel", "masonry", "mauerwerk",
	"glass", "glas", "mineral wool", "insulation", "dämmung", "daemmung",
	"aluminium", "aluminum", "gypsum", "gips", "composite", "verbund",
}

// Words dropped from quantity labels.
var labelStopWords = mapset.NewSet[string](
	"the", "a", "an", "total", "overall", "gesamt", "gesamte", "die", "der", "das",
	"approximately", "approx", "about", "estimated", "ca", "circa", "calculated",
	"of", "for", "all", "is", "are", "with", "und", "and", "in", "each", "per",
	"has", "have", "had", "there", "it", "its", "this", "that", "these", "we", "they", "be", "was", "were",
	"contains", "includes", "measured", "measures", "roughly", "around",
	"ist", "sind", "hat", "haben", "von", "des", "dem", "den", "ein", "eine", "einer", "insgesamt",
)

// Words dropped from relationship endpoints.
var endpointStopWords = mapset.NewSet[string](
	"the", "a", "an", "on", "in", "at", "of", "der", "die", "das", "den", "dem", "ein", "eine",
	"and", "und", "which", "that", "also", "directly", "is", "are", "this", "it",
)

// Relationship verb phrases, grouped by relationship type.
var relationshipPhrases = map[string][]string{
	"contains":     {"contains", "includes", "houses", "enthält", "enthaelt", "beinhaltet", "umfasst"},
	"connected_to": {"is connected to", "are connected to", "connects to", "connects", "is joined to", "ist verbunden mit", "verbunden mit", "connected to"},
	"part_of":      {"is part of", "are part of", "belongs to", "belong to", "is located in", "are located in", "gehört zu", "ist teil von", "part of"},
	"adjacent_to":  {"is adjacent to", "are adjacent to", "adjoins", "is next to", "borders", "grenzt an", "liegt neben", "adjacent to", "next to"},
}

const numberExpr = `(-?\d+(?:[.,']\d{3})*(?:[.,]\d+)?)`

var (
	unitExpr     = `(` + units.Alternation() + `)`
	currencyExpr = `(` + units.Alternation(units.Currency) + `)`

	// "volume: 10 m³", "wall thickness is 0.24 m", "Anzahl der Türen beträgt 3"
	namedQuantityPattern = regexp.MustCompile(`(?i)([a-zäöüß][a-zäöüß _-]{0,60}?)\s*(?::|=|\bis\b|\bare\b|\bof\b|\bbeträgt\b|\bist\b|\bwith\b)\s*(?:approximately\s+|approx\.?\s+|about\s+|ca\.?\s+|circa\s+|around\s+)?` + numberExpr + `(?:\s*` + unitExpr + `)?`)

	// "10 m³" with no label
	unitQuantityPattern = regexp.MustCompile(`(?i)` + numberExpr + `\s*` + unitExpr)

	// "€ 1.200" / "$500"
	currencyPrefixPattern = regexp.MustCompile(`(?i)` + currencyExpr + `\s*` + numberExpr)

	// "3 doors", "12 Fenster"
	countPattern = regexp.MustCompile(`(?i)\b(\d+)\s+(` + alternation(entityTypeWords) + `)`)

	entityPattern = regexp.MustCompile(`(?i)(` + alternation(entityTypeWords) + `)(s|e|en|n)?(?:\s+(?:no\.?\s*|nr\.?\s*|number\s+)?(#[\w-]+|[a-z]{0,4}-?\d[\w.-]*))?`)

	materialPattern = regexp.MustCompile(`(?i)(` + alternation(materialWords) + `)`)

	propertyPattern = regexp.MustCompile(`(?i)([a-zäöüß][a-zäöüß0-9 _/()-]{0,40}?)\s*:\s*([^,;\n]+)`)

	coordinatesPattern = regexp.MustCompile(`(?i)(?:coordinates?|koordinaten|position|located at|at point|location)\s*[:=]?\s*\(?\s*(-?\d+(?:\.\d+)?)\s*[,;/]\s*(-?\d+(?:\.\d+)?)(?:\s*[,;/]\s*(-?\d+(?:\.\d+)?))?\s*\)?`)

	levelPattern = regexp.MustCompile(`(?i)(?:on|in|auf|im)\s+(?:the\s+|dem\s+)?(?:floor|level|storey|story|geschoss|etage|stockwerk|ebene|og)\s+(-?[\w.]+)`)

	namedLevelPattern = regexp.MustCompile(`(?i)\b(ground floor|erdgeschoss|basement|keller|untergeschoss|first floor|second floor|third floor|obergeschoss|attic|dachgeschoss)\b`)

	spacePattern = regexp.MustCompile(`(?i)\b(?:in|im)\s+(?:the\s+|dem\s+)?(room|raum|space|zimmer|zone)\s+([\w.-]+)`)

	yearPattern = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
)

var namedLevels = map[string]string{
	"ground floor":  "0",
	"erdgeschoss":   "0",
	"basement":      "-1",
	"keller":        "-1",
	"untergeschoss": "-1",
	"first floor":   "1",
	"obergeschoss":  "1",
	"second floor":  "2",
	"third floor":   "3",
	"attic":         "roof",
	"dachgeschoss":  "roof",
}

var germanMarkers = mapset.NewSet[string]("der", "die", "das", "und", "ist", "mit", "im", "auf", "beträgt", "wand", "tür", "geschoss", "gesamt", "anzahl")

func alternation(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += "|"
		}
		out += regexp.QuoteMeta(w)
	}
	return out
}

func init() {
	// regex alternation is leftmost-first; longer relationship phrases must win
	for k, phrases := range relationshipPhrases {
		sorted := append([]string(nil), phrases...)
		for i := 0; i < len(sorted); i++ {
			for j := i + 1; j < len(sorted); j++ {
				if len(sorted[j]) > len(sorted[i]) {
					sorted[i], sorted[j] = sorted[j], sorted[i]
				}
			}
		}
		relationshipPhrases[k] = sorted
	}
	relationshipPatterns = make(map[string]*regexp.Regexp, len(relationshipPhrases))
	endpoint := `((?:[\wäöüß#.-]+\s+){0,2}[\wäöüß#.-]+)`
	for kind, phrases := range relationshipPhrases {
		relationshipPatterns[kind] = regexp.MustCompile(`(?i)` + endpoint + `\s+(?:` + alternation(phrases) + `)\s+` + endpoint)
	}
}

var relationshipPatterns map[string]*regexp.Regexp
