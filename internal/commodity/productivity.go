package commodity

import (
	"strings"

	"agrirank/internal/config"
)

// defaultProductivity is the estimated yield per acre in quintals, keyed by
// English canonical name. Figures follow published ICAR and National
// Horticulture Board averages.
var defaultProductivity = map[string]float64{
	"Onion":            100,
	"Potato":           120,
	"Garlic":           40,
	"Ginger":           60,
	"Okra":             50,
	"Cluster Beans":    30,
	"Tomato":           150,
	"Green Peas":       40,
	"French Beans":     50,
	"Ridge Gourd":      60,
	"Green Chili":      50,
	"Bottle Gourd":     120,
	"Cucumber":         80,
	"Bitter Gourd":     60,
	"Carrot":           100,
	"Flat Beans":       35,
	"Snake Gourd":      80,
	"Cauliflower":      100,
	"Cabbage":          120,
	"Brinjal":          120,
	"Capsicum":         80,
	"Yam":              80,
	"Ivy Gourd":        50,
	"Beetroot":         80,
	"Ash Gourd":        100,
	"Broad Beans":      40,
	"Field Beans":      35,
	"Lima Beans":       35,
	"Drumstick":        60,
	"Spine Gourd":      40,
	"Kohlrabi":         80,
	"Cowpea":           30,
	"Sweet Potato":     80,
	"Pointed Gourd":    60,
	"Sponge Gourd":     70,
	"Curry Leaves":     25,
	"Colocasia":        60,
	"Radish":           100,
	"Spinach":          60,
	"Fenugreek":        50,
	"Coriander":        40,
	"Dill":             45,
	"Amaranth":         50,
	"Mint":             40,
	"Spring Onion":     80,
	"Tendli":           50,
	"Cowpea Leaves":    30,
	"Red Radish":       80,
	"Chinese Cucumber": 75,
	"Chinese Cabbage":  100,
	"Red Cabbage":      90,
	"Baby Corn":        45,
	"Broccoli":         60,
	"Asparagus":        25,
	"Mushroom":         20,
	"Oyster Mushroom":  20,
}

// ProductivityLookup resolves a canonical commodity name to a per-acre
// productivity figure. A false result means the figure is unknown.
type ProductivityLookup interface {
	Get(canonicalName string) (float64, bool)
}

// ProductivityTable is a static, immutable ProductivityLookup.
// Lookups ignore case and surrounding whitespace.
type ProductivityTable struct {
	values map[string]float64
}

// NewProductivityTable copies values into a table.
func NewProductivityTable(values map[string]float64) *ProductivityTable {
	t := &ProductivityTable{values: make(map[string]float64, len(values))}
	for name, v := range values {
		t.values[tableKey(name)] = v
	}
	return t
}

// DefaultProductivityTable returns the built-in table.
func DefaultProductivityTable() *ProductivityTable {
	return NewProductivityTable(defaultProductivity)
}

// ProductivityFromConfig merges the configured overrides over the built-in table.
func ProductivityFromConfig(cfg config.AnalysisConfig) *ProductivityTable {
	merged := make(map[string]float64, len(defaultProductivity)+len(cfg.Productivity))
	for name, v := range defaultProductivity {
		merged[name] = v
	}
	for name, v := range cfg.Productivity {
		merged[name] = v
	}
	return NewProductivityTable(merged)
}

// Get returns the productivity for canonicalName.
func (t *ProductivityTable) Get(canonicalName string) (float64, bool) {
	v, ok := t.values[tableKey(canonicalName)]
	return v, ok
}

// Len returns the number of known commodities.
func (t *ProductivityTable) Len() int {
	return len(t.values)
}

func tableKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
