package assembly

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/strategies"
)

func number(v interface{}) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int:
		return strconv.Itoa(n)
	}
	return fmt.Sprint(v)
}

func section(s model.StructuredOutput, key string) map[string]interface{} {
	m, _ := s[key].(map[string]interface{})
	return m
}

// Answer renders a one-paragraph summary of the aggregated output.
func Answer(agg *strategies.Output, intent model.QueryIntent) string {
	s := agg.Structured
	switch agg.Strategy {
	case "quantity_aggregation":
		quantities := section(s, "quantities")
		if len(quantities) == 0 {
			return "No quantities were found in the chunk answers."
		}
		names := make([]string, 0, len(quantities))
		for name := range quantities {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			q, _ := quantities[name].(map[string]interface{})
			part := fmt.Sprintf("%s: %s", name, number(q["value"]))
			if unit, ok := q["unit"].(string); ok {
				part += " " + unit
			}
			part += fmt.Sprintf(" (%s of %s values", q["operation"], number(q["count"]))
			if rv, ok := q["resolved_value"]; ok {
				part += fmt.Sprintf(", conflicting reports resolved to %s", number(rv))
			}
			parts = append(parts, part+")")
		}
		return strings.Join(parts, "; ") + "."

	case "component_aggregation":
		summary := section(s, "summary")
		return fmt.Sprintf("Found %s unique components of %s types (%s duplicates merged).",
			number(summary["unique"]), number(summary["types"]), number(summary["duplicates_merged"]))

	case "material_aggregation":
		summary := section(s, "summary")
		composition := section(s, "composition")
		return fmt.Sprintf("Found %s; %.0f%% of them composite.", summary["description"], composition["composite_percent"])

	case "spatial_aggregation":
		containment := section(s, "containment")
		adjacency := section(s, "adjacency")
		hierarchy := section(s, "hierarchy")
		return fmt.Sprintf("Spatial structure with %s containment and %s adjacency links, %s levels deep.",
			number(containment["edges"]), number(adjacency["edges"]), number(hierarchy["max_depth"]))

	case "cost_aggregation":
		costs := section(s, "costs")
		summary := section(s, "summary")
		total, _ := costs["total"].(float64)
		return fmt.Sprintf("Total cost %.2f %s across %s items.", total, costs["currency"], number(summary["items"]))
	}

	summary := section(s, "summary")
	return fmt.Sprintf("Extracted %s entities and %s quantities from %s chunks for a %s query.",
		number(summary["entity_count"]), number(summary["quantity_count"]), number(summary["chunks"]), intent)
}
