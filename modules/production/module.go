// Package production provides the formula functions of the production
// digital twin: energy and production cost, market demand, adaptive pricing
// and profit margin.
package production

import (
	"math"

	"github.com/specialistvlad/loopgrid/internal/formula"
)

// Module implements the formula.Module interface for this package.
type Module struct{}

// EnergyCost is the total energy bill of a production run:
// base_energy_price * production_volume * energy_per_unit.
func EnergyCost(in formula.Inputs) (float64, error) {
	price := valueOr(in, "base_energy_price", 0.15)
	volume := valueOr(in, "production_volume", 1000)
	perUnit := in.Param("energy_per_unit", 2.5)
	return round2(price * volume * perUnit), nil
}

// ProductionCost sums material, energy and labor cost and applies the
// overhead factor.
func ProductionCost(in formula.Inputs) (float64, error) {
	base := valueOr(in, "material_cost", 0) + valueOr(in, "energy_cost", 0) + valueOr(in, "labor_cost", 0)
	return round2(base * in.Param("overhead_factor", 1.15)), nil
}

// MarketDemand applies a linear price elasticity around a reference price.
func MarketDemand(in formula.Inputs) (float64, error) {
	baseDemand := in.Param("base_demand", 1200)
	basePrice := in.Param("base_price", 45)
	elasticity := in.Param("price_elasticity", -0.8)
	price := valueOr(in, "selling_price", 50)

	change := (price - basePrice) / basePrice
	demand := baseDemand * (1 + elasticity*change)
	return math.Max(0, math.Round(demand)), nil
}

// AdaptivePrice is cost-plus pricing scaled by demand, capped at max_price.
func AdaptivePrice(in formula.Inputs) (float64, error) {
	cost := valueOr(in, "production_cost", 0)
	demand := valueOr(in, "market_demand", 1000)
	margin := in.Param("target_margin", 25)
	maxPrice := in.Param("max_price", 65)

	base := cost * (1 + margin/100)
	// Higher demand tolerates a higher price, up to 20% more.
	factor := math.Min(1.2, demand/1000)
	return math.Min(base*factor, maxPrice), nil
}

// ProfitMargin is the per-unit margin in percent. It is zero when there is
// no price or no volume.
func ProfitMargin(in formula.Inputs) (float64, error) {
	price := valueOr(in, "selling_price", 0)
	total := valueOr(in, "production_cost", 0)
	volume := valueOr(in, "production_volume", 1000)
	if price == 0 || volume == 0 {
		return 0, nil
	}
	perUnit := total / volume
	return round2((price - perUnit) / price * 100), nil
}

// Register registers every function with the formula registry.
func (m *Module) Register(r *formula.Registry) {
	r.Register("energy_cost", EnergyCost)
	r.Register("production_cost", ProductionCost)
	r.Register("market_demand", MarketDemand)
	r.Register("adaptive_price", AdaptivePrice)
	r.Register("profit_margin", ProfitMargin)
}

func valueOr(in formula.Inputs, id string, def float64) float64 {
	if v, ok := in.Lookup(id); ok {
		return v
	}
	return def
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
