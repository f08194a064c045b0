// Package nutrition computes the frozen macro snapshot stored on a diary
// entry from a food, a quantity and a unit.
package nutrition

import (
	"fmt"
	"math"
	"strings"

	"github.com/kirkbardini/foodlogkm-sub000/internal/client/models"
	"golang.org/x/text/cases"
)

type unitKind string

const (
	unitKindMass   unitKind = "mass"
	unitKindVolume unitKind = "volume"
)

type unitDef struct {
	kind       unitKind
	toBaseUnit float64
}

var unitTable = map[string]unitDef{
	// mass (base = g)
	"mg":  {kind: unitKindMass, toBaseUnit: 0.001},
	"g":   {kind: unitKindMass, toBaseUnit: 1},
	"kg":  {kind: unitKindMass, toBaseUnit: 1000},
	"oz":  {kind: unitKindMass, toBaseUnit: 28.349523125},
	"lb":  {kind: unitKindMass, toBaseUnit: 453.59237},
	"lbs": {kind: unitKindMass, toBaseUnit: 453.59237},

	// volume (base = ml)
	"ml":    {kind: unitKindVolume, toBaseUnit: 1},
	"l":     {kind: unitKindVolume, toBaseUnit: 1000},
	"tsp":   {kind: unitKindVolume, toBaseUnit: 4.92892159375},
	"tbsp":  {kind: unitKindVolume, toBaseUnit: 14.78676478125},
	"cup":   {kind: unitKindVolume, toBaseUnit: 236.5882365},
	"fl-oz": {kind: unitKindVolume, toBaseUnit: 29.5735295625},
}

// hydrationCategories are the food categories whose consumed volume counts
// towards the daily water target.
var hydrationCategories = map[string]struct{}{
	"water":     {},
	"beverages": {},
	"drinks":    {},
}

// KnownUnit reports whether unit is understood by Compute.
func KnownUnit(unit string) bool {
	_, ok := unitTable[normalizeUnit(unit)]
	return ok
}

// Compute scales the food's per-reference nutrients to qty of unit.
//
// Volumes are converted to grams through the food's density, or 1 g/ml when
// the food has none. WaterML is reported only for hydration categories.
// Values are rounded to two decimals.
func Compute(food *models.Food, qty float64, unit string) (models.Nutrients, error) {
	if food == nil {
		return models.Nutrients{}, fmt.Errorf("food is required")
	}
	if qty <= 0 {
		return models.Nutrients{}, fmt.Errorf("quantity must be > 0")
	}
	if food.Per <= 0 {
		return models.Nutrients{}, fmt.Errorf("food %s: reference amount must be > 0", food.ID)
	}
	def, ok := unitTable[normalizeUnit(unit)]
	if !ok {
		return models.Nutrients{}, fmt.Errorf("unsupported unit %q", unit)
	}

	density := food.Density()
	if density <= 0 {
		density = 1
	}

	var grams, ml float64
	switch def.kind {
	case unitKindMass:
		grams = qty * def.toBaseUnit
		ml = grams / density
	case unitKindVolume:
		ml = qty * def.toBaseUnit
		grams = ml * density
	}

	factor := grams / food.Per
	n := models.Nutrients{
		ProteinG: round2(food.ProteinG * factor),
		CarbsG:   round2(food.CarbsG * factor),
		FatG:     round2(food.FatG * factor),
		Kcal:     round2(food.Kcal * factor),
	}
	if IsHydration(food.Category) {
		n.WaterML = round2(ml)
	}
	return n, nil
}

// IsHydration reports whether category counts towards water intake.
func IsHydration(category string) bool {
	_, ok := hydrationCategories[cases.Fold().String(strings.TrimSpace(category))]
	return ok
}

// Totals adds up the snapshots of entries.
func Totals(entries []*models.Entry) models.Nutrients {
	var t models.Nutrients
	for _, e := range entries {
		t.ProteinG += e.ProteinG
		t.CarbsG += e.CarbsG
		t.FatG += e.FatG
		t.Kcal += e.Kcal
		t.WaterML += e.WaterML
	}
	t.ProteinG = round2(t.ProteinG)
	t.CarbsG = round2(t.CarbsG)
	t.FatG = round2(t.FatG)
	t.Kcal = round2(t.Kcal)
	t.WaterML = round2(t.WaterML)
	return t
}

func normalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	switch u {
	case "floz", "fl oz", "fl_oz":
		return "fl-oz"
	case "gram", "grams":
		return "g"
	case "liter", "litre":
		return "l"
	}
	return u
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
