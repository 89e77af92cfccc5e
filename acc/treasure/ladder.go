// Package treasure implements the bell draw engine: a probability
// ladder over a uniform roll whose jackpot and wisp slices grow with
// the size of the accumulated pool.
package treasure

import (
	"math"

	"github.com/acc-community/acc/acc/database/models"
)

const (
	// Fixed slice widths for the middle tiers.
	odds10000 = 0.01
	odds5000  = 0.04
	odds1000  = 0.20

	// Every non-jackpot win feeds the pool.
	poolIncrement = 100

	// Losing the tier draw still pays the floor amount.
	defaultBells = 100
)

// Tier is one outcome of the second draw.
type Tier struct {
	Bells int64
	Type  models.TreasureType
}

// tierSlice pairs a tier with its cumulative upper bound in [0,1].
type tierSlice struct {
	bound float64
	tier  Tier
}

// jackpotOdds doubles for every 10000 bells in the pool.
func jackpotOdds(jackpot int64) float64 {
	return 0.01 * math.Pow(2, float64(jackpot)/10000-1)
}

// wispOdds grows a little slower than the jackpot slice.
func wispOdds(jackpot int64) float64 {
	return 0.01 * math.Pow(1.75, float64(jackpot)/10000-1)
}

// buildLadder lays the tiers out as cumulative bounds over a uniform
// roll, starting from the jackpot slice. Bounds are capped at 1 so the
// total probability mass never exceeds 1 no matter how large the pool
// gets; anything past the last bound pays the default amount.
func buildLadder(jackpot int64, hasMissed bool) []tierSlice {
	cumulative := 0.0
	add := func(width float64, tier Tier) tierSlice {
		cumulative = math.Min(cumulative+width, 1)
		return tierSlice{bound: cumulative, tier: tier}
	}

	ladder := []tierSlice{
		add(jackpotOdds(jackpot), Tier{Bells: 0, Type: models.TreasureJackpot}),
		add(odds10000, Tier{Bells: 10000, Type: models.TreasureAmount}),
		add(odds5000, Tier{Bells: 5000, Type: models.TreasureAmount}),
		add(odds1000, Tier{Bells: 1000, Type: models.TreasureAmount}),
	}

	// The consolation tier only exists for users who have let at least
	// one offer lapse.
	if hasMissed {
		ladder = append(ladder, add(wispOdds(jackpot), Tier{Bells: 0, Type: models.TreasureWisp}))
	}

	return ladder
}

// pickTier resolves a uniform roll against the ladder.
func pickTier(roll float64, ladder []tierSlice) Tier {
	for _, s := range ladder {
		if roll < s.bound {
			return s.tier
		}
	}
	return Tier{Bells: defaultBells, Type: models.TreasureAmount}
}
