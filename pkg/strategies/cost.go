package strategies

import (
	"context"
	"fmt"
	"strings"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/athapong/bim-synthesis/pkg/stats"
	"github.com/athapong/bim-synthesis/pkg/textutil"
	"github.com/athapong/bim-synthesis/pkg/units"
	"github.com/athapong/bim-synthesis/pkg/vocab"
	mapset "github.com/deckarep/golang-set/v2"
)

// Cost tier boundaries as quantiles.
const (
	LowTierQuantile  = 0.25
	HighTierQuantile = 0.75
)

// CostOther collects items no category keyword matched.
const CostOther = "other"

var costCategoryOrder = []string{"material", "labor", "equipment", "overhead", "transport"}

var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"us$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"$", "USD"},
}

// ParseAmount reads an amount and its currency from free text. The amount is
// the largest number in the text; the currency comes from a symbol, a unit
// word or a code in known. An empty currency means none was named.
func ParseAmount(text string, known map[string]float64) (float64, string, bool) {
	numbers := textutil.FindNumbers(text)
	if len(numbers) == 0 {
		return 0, "", false
	}
	amount := numbers[0]
	for _, n := range numbers[1:] {
		if n > amount {
			amount = n
		}
	}
	return amount, detectCurrency(text, known), true
}

func detectCurrency(text string, known map[string]float64) string {
	lower := strings.ToLower(text)
	for _, s := range currencySymbols {
		if strings.Contains(lower, s.symbol) {
			return s.code
		}
	}
	for _, w := range textutil.Words(text) {
		if u, ok := units.Lookup(w); ok && u.Dimension == units.Currency {
			return u.Code
		}
		if _, ok := known[strings.ToUpper(w)]; ok && len(w) == 3 {
			return strings.ToUpper(w)
		}
	}
	return ""
}

// CostCategory classifies a cost item by keyword.
func CostCategory(text string) string {
	folded := textutil.Fold(text)
	for _, c := range costCategoryOrder {
		if textutil.ContainsAny(folded, vocab.CostCategoryKeywords[c]...) {
			return c
		}
	}
	return CostOther
}

func isCostName(name string) bool {
	return textutil.ContainsAny(textutil.Fold(name), vocab.CostKeywords...)
}

type costItem struct {
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Value     float64 `json:"value"`
	Converted bool    `json:"converted"`
	Category  string  `json:"category"`
	Source    string  `json:"source"`
}

// CostStrategy totals cost items in the base currency.
type CostStrategy struct{}

func (s *CostStrategy) Name() string { return "cost_aggregation" }

func (s *CostStrategy) Aggregate(ctx context.Context, in Input) (*Output, error) {
	cfg := in.Config
	base := strings.ToUpper(cfg.BaseCurrency)
	var items []costItem
	contributing := mapset.NewThreadUnsafeSet[string]()

	add := func(name string, amount float64, currency, hint, chunk string) {
		if currency == "" {
			currency = base
		}
		item := costItem{
			Name:     name,
			Amount:   amount,
			Currency: currency,
			Value:    amount,
			Category: CostCategory(name + " " + hint),
			Source:   chunk,
		}
		if rate, ok := cfg.Rate(currency); ok {
			item.Value = amount * rate
			item.Converted = true
		}
		items = append(items, item)
		contributing.Add(chunk)
	}

	for _, d := range in.Data {
		for _, name := range sortedKeys(d.Quantities) {
			q := d.Quantities[name]
			u, isCurrency := units.Lookup(q.Unit)
			isCurrency = isCurrency && u.Dimension == units.Currency
			if q.Category != model.CategoryCost && !isCurrency && !isCostName(name) {
				continue
			}
			currency := ""
			if isCurrency {
				currency = u.Code
			} else if _, ok := cfg.CurrencyRates[strings.ToUpper(q.Unit)]; ok {
				currency = strings.ToUpper(q.Unit)
			}
			add(name, q.Value, currency, q.Raw, d.ChunkID)
		}
		for _, key := range sortedKeys(d.Properties) {
			if !isCostName(key) {
				continue
			}
			switch v := d.Properties[key].(type) {
			case string:
				if amount, currency, ok := ParseAmount(v, cfg.CurrencyRates); ok {
					add(key, amount, currency, v, d.ChunkID)
				}
			default:
				if amount, ok := textutil.ToFloat(v); ok {
					add(key, amount, "", "", d.ChunkID)
				}
			}
		}
		for _, e := range d.Entities {
			raw, ok := e.Properties["cost"]
			if !ok {
				continue
			}
			name := label(e) + " cost"
			hint := e.Type
			if m, ok := e.Properties["material"].(string); ok {
				hint += " material " + m
			}
			if amount, ok := textutil.ToFloat(raw); ok {
				add(name, amount, "", hint, d.ChunkID)
			} else if amount, currency, ok := ParseAmount(fmt.Sprint(raw), cfg.CurrencyRates); ok {
				add(name, amount, currency, hint, d.ChunkID)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := make([]float64, len(items))
	converted := 0
	byCategory := make(map[string][]float64)
	for i, it := range items {
		values[i] = it.Value
		if it.Converted {
			converted++
		}
		byCategory[it.Category] = append(byCategory[it.Category], it.Value)
	}
	summary := stats.Summarize(values)

	categories := make(map[string]interface{}, len(byCategory))
	for c, vs := range byCategory {
		sub := stats.Summarize(vs)
		categories[c] = map[string]interface{}{
			"total":   sub.Sum,
			"count":   sub.Count,
			"percent": percent(sub.Sum, summary.Sum),
		}
	}

	p25 := stats.Percentile(values, LowTierQuantile)
	p75 := stats.Percentile(values, HighTierQuantile)
	high, low := make([]string, 0), make([]string, 0)
	for _, it := range items {
		if it.Value >= p75 {
			high = append(high, it.Name)
		}
		if it.Value <= p25 {
			low = append(low, it.Name)
		}
	}

	convertedShare := 0.0
	if len(items) > 0 {
		convertedShare = float64(converted) / float64(len(items))
	}
	confidence := 0.5*meanConfidence(in.Data) + 0.2*diversity(in.Data, contributing) + 0.2*convertedShare
	if len(byCategory) > 1 {
		confidence += 0.1
	}

	return &Output{
		Strategy: s.Name(),
		Structured: model.StructuredOutput{
			"costs": map[string]interface{}{
				"items":    items,
				"currency": base,
				"total":    summary.Sum,
				"mean":     summary.Mean,
				"median":   summary.Median,
				"min":      summary.Min,
				"max":      summary.Max,
				"std_dev":  summary.StdDev,
			},
			"by_category": categories,
			"tiers": map[string]interface{}{
				"p25":  p25,
				"p75":  p75,
				"high": high,
				"low":  low,
			},
			"summary": map[string]interface{}{
				"items":       len(items),
				"converted":   converted,
				"unconverted": len(items) - converted,
			},
		},
		Confidence: model.Clamp01(confidence),
		Algorithms: []string{"cost_detection", "currency_conversion", "percentile_tiers"},
	}, nil
}
