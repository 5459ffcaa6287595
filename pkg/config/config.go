package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/athapong/bim-synthesis/pkg/model"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ToleranceThresholds are the numeric knobs used by conflict detection and resolution.
type ToleranceThresholds struct {
	QuantityRelativeTolerance   float64 `yaml:"quantity_relative_tolerance" json:"quantity_relative_tolerance"`
	QuantityAbsoluteTolerance   float64 `yaml:"quantity_absolute_tolerance" json:"quantity_absolute_tolerance"`
	ConfidenceThreshold         float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
	MajorityThreshold           float64 `yaml:"majority_threshold" json:"majority_threshold"`
	StatisticalOutlierThreshold float64 `yaml:"statistical_outlier_threshold" json:"statistical_outlier_threshold"`
}

// Config is the fixed configuration a synthesis run is evaluated against.
// It is passed by value; the engine never mutates it.
type Config struct {
	Tolerances               ToleranceThresholds   `yaml:"tolerance_thresholds" json:"tolerance_thresholds"`
	ValidationLevel          model.ValidationLevel `yaml:"validation_level" json:"validation_level"`
	EnableConflictResolution bool                  `yaml:"enable_conflict_resolution" json:"enable_conflict_resolution"`
	QualityThreshold         float64               `yaml:"quality_threshold" json:"quality_threshold"`
	BaseCurrency             string                `yaml:"base_currency" json:"base_currency"`
	// CurrencyRates converts one unit of the keyed currency into the base currency.
	CurrencyRates map[string]float64 `yaml:"currency_rates" json:"currency_rates"`
}

// DefaultCurrencyRates are approximate EUR conversion rates.
func DefaultCurrencyRates() map[string]float64 {
	return map[string]float64{
		"EUR": 1.0,
		"USD": 0.92,
		"GBP": 1.17,
		"CHF": 1.04,
		"JPY": 0.0062,
		"CNY": 0.13,
		"SEK": 0.088,
		"NOK": 0.086,
		"DKK": 0.134,
		"PLN": 0.23,
	}
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		Tolerances: ToleranceThresholds{
			QuantityRelativeTolerance:   0.05,
			QuantityAbsoluteTolerance:   0.1,
			ConfidenceThreshold:         0.3,
			MajorityThreshold:           0.6,
			StatisticalOutlierThreshold: 2.0,
		},
		ValidationLevel:          model.ValidationStandard,
		EnableConflictResolution: true,
		QualityThreshold:         0.6,
		BaseCurrency:             "EUR",
		CurrencyRates:            DefaultCurrencyRates(),
	}
}

// Load reads a YAML configuration file on top of the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadEnvFile loads KEY=VALUE pairs from an env file into the process
// environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return errors.Wrapf(godotenv.Load(path), "load env file %s", path)
}

// ApplyEnv overrides fields from SYNTH_* environment variables.
func (c *Config) ApplyEnv() error {
	floats := map[string]*float64{
		"SYNTH_QUANTITY_RELATIVE_TOLERANCE":   &c.Tolerances.QuantityRelativeTolerance,
		"SYNTH_QUANTITY_ABSOLUTE_TOLERANCE":   &c.Tolerances.QuantityAbsoluteTolerance,
		"SYNTH_CONFIDENCE_THRESHOLD":          &c.Tolerances.ConfidenceThreshold,
		"SYNTH_MAJORITY_THRESHOLD":            &c.Tolerances.MajorityThreshold,
		"SYNTH_STATISTICAL_OUTLIER_THRESHOLD": &c.Tolerances.StatisticalOutlierThreshold,
		"SYNTH_QUALITY_THRESHOLD":             &c.QualityThreshold,
	}
	for key, target := range floats {
		raw, ok := os.LookupEnv(key)
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", key)
		}
		*target = v
	}
	if raw := os.Getenv("SYNTH_VALIDATION_LEVEL"); raw != "" {
		c.ValidationLevel = model.ValidationLevel(strings.ToLower(raw))
	}
	if raw := os.Getenv("SYNTH_ENABLE_CONFLICT_RESOLUTION"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return errors.Wrap(err, "invalid SYNTH_ENABLE_CONFLICT_RESOLUTION")
		}
		c.EnableConflictResolution = v
	}
	if raw := os.Getenv("SYNTH_BASE_CURRENCY"); raw != "" {
		c.BaseCurrency = strings.ToUpper(raw)
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	t := c.Tolerances
	if t.QuantityRelativeTolerance < 0 || t.QuantityAbsoluteTolerance < 0 {
		return errors.New("tolerances must not be negative")
	}
	for name, v := range map[string]float64{
		"confidence_threshold": t.ConfidenceThreshold,
		"majority_threshold":   t.MajorityThreshold,
		"quality_threshold":    c.QualityThreshold,
	} {
		if v < 0 || v > 1 {
			return errors.Errorf("%s must be within [0,1], got %v", name, v)
		}
	}
	if t.StatisticalOutlierThreshold <= 0 {
		return errors.Errorf("statistical_outlier_threshold must be positive, got %v", t.StatisticalOutlierThreshold)
	}
	if !c.ValidationLevel.Valid() {
		return errors.Errorf("unknown validation level %q", c.ValidationLevel)
	}
	if _, ok := c.CurrencyRates[strings.ToUpper(c.BaseCurrency)]; !ok {
		return errors.Errorf("base currency %q has no conversion rate", c.BaseCurrency)
	}
	return nil
}

// Rate returns the factor converting one unit of currency into the base
// currency, and whether the currency is known.
func (c Config) Rate(currency string) (float64, bool) {
	currency = strings.ToUpper(currency)
	base := strings.ToUpper(c.BaseCurrency)
	if currency == base {
		return 1, true
	}
	from, ok := c.CurrencyRates[currency]
	if !ok {
		return 0, false
	}
	to, ok := c.CurrencyRates[base]
	if !ok || to == 0 {
		return 0, false
	}
	return from / to, true
}
