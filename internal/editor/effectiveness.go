package editor

import "math"

// Score weights. The flat baseline is credited unconditionally.
const (
	weightOxygen   = 0.30
	weightEnergy   = 0.25
	weightWater    = 0.20
	weightFood     = 0.15
	weightBaseline = 0.10

	// A resource total at or below -deficitTolerance scores zero.
	deficitTolerance = 10.0
)

type Balance struct {
	Totals  Resources `json:"totals"`
	Upkeep  float64   `json:"upkeep"`
	Scores  Resources `json:"scores"`
	Percent int       `json:"percent"`
}

// ComputeBalance is a pure function of the layout: summed rates, minus
// upkeep energy per connection, normalized and weighted into a percentage.
func ComputeBalance(modules []PlacedModule, connections int, upkeepPerConnection float64) Balance {
	var totals Resources
	for _, m := range modules {
		totals = totals.Add(m.Rates)
	}
	upkeep := float64(connections) * upkeepPerConnection
	totals.Energy -= upkeep

	scores := Resources{
		Oxygen: normalize(totals.Oxygen),
		Energy: normalize(totals.Energy),
		Water:  normalize(totals.Water),
		Food:   normalize(totals.Food),
	}
	sum := weightOxygen*scores.Oxygen +
		weightEnergy*scores.Energy +
		weightWater*scores.Water +
		weightFood*scores.Food +
		weightBaseline

	return Balance{
		Totals:  totals,
		Upkeep:  upkeep,
		Scores:  scores,
		Percent: int(math.Round(sum * 100)),
	}
}

func normalize(total float64) float64 {
	return clamp01((total + deficitTolerance) / deficitTolerance)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func (e *SceneEditor) Balance() Balance {
	return ComputeBalance(e.modules, len(e.connections), e.settings.ConnectionUpkeep)
}

// Effectiveness is the habitat score in percent, between 10 and 100.
func (e *SceneEditor) Effectiveness() int {
	return e.Balance().Percent
}
