package treasure

import (
	"math"
	"testing"

	"github.com/acc-community/acc/acc/database/models"
)

// Boundaries must be strictly increasing slice by slice and the total
// mass must never exceed 1, at any pool size.
func TestLadderBoundariesMonotone(t *testing.T) {
	pools := []int64{0, 100, 5000, 10000, 50000, 100000, 1000000}

	for _, pool := range pools {
		ladder := buildLadder(pool, true)

		prev := 0.0
		for i, s := range ladder {
			if s.bound < prev {
				t.Errorf("pool %d: bound[%d]=%v below previous %v", pool, i, s.bound, prev)
			}
			if s.bound < 1 && s.bound <= prev {
				t.Errorf("pool %d: bound[%d]=%v not strictly above %v", pool, i, s.bound, prev)
			}
			prev = s.bound
		}
		if prev > 1 {
			t.Errorf("pool %d: total mass %v exceeds 1", pool, prev)
		}
	}
}

func TestLadderTierOrder(t *testing.T) {
	ladder := buildLadder(10000, true)

	wantTypes := []models.TreasureType{
		models.TreasureJackpot,
		models.TreasureAmount,
		models.TreasureAmount,
		models.TreasureAmount,
		models.TreasureWisp,
	}
	wantBells := []int64{0, 10000, 5000, 1000, 0}

	if len(ladder) != len(wantTypes) {
		t.Fatalf("ladder has %d slices, want %d", len(ladder), len(wantTypes))
	}
	for i, s := range ladder {
		if s.tier.Type != wantTypes[i] || s.tier.Bells != wantBells[i] {
			t.Errorf("slice %d = %d %s, want %d %s", i, s.tier.Bells, s.tier.Type, wantBells[i], wantTypes[i])
		}
	}
}

func TestLadderWispRequiresMissedOffer(t *testing.T) {
	ladder := buildLadder(10000, false)
	for _, s := range ladder {
		if s.tier.Type == models.TreasureWisp {
			t.Fatal("wisp slice present without missed offers")
		}
	}
}

func TestLadderOddsScaleWithPool(t *testing.T) {
	// At 10000 bells the exponent is zero, so the base odds come out.
	if got := jackpotOdds(10000); math.Abs(got-0.01) > 1e-12 {
		t.Errorf("jackpotOdds(10000) = %v, want 0.01", got)
	}
	if got := wispOdds(10000); math.Abs(got-0.01) > 1e-12 {
		t.Errorf("wispOdds(10000) = %v, want 0.01", got)
	}
	if got := jackpotOdds(20000); math.Abs(got-0.02) > 1e-12 {
		t.Errorf("jackpotOdds(20000) = %v, want 0.02", got)
	}
	if jackpotOdds(50000) <= jackpotOdds(20000) {
		t.Error("jackpot odds do not grow with the pool")
	}
}

func TestPickTier(t *testing.T) {
	ladder := buildLadder(10000, true)

	tests := []struct {
		roll      float64
		wantBells int64
		wantType  models.TreasureType
	}{
		{0.005, 0, models.TreasureJackpot},
		{0.015, 10000, models.TreasureAmount},
		{0.03, 5000, models.TreasureAmount},
		{0.10, 1000, models.TreasureAmount},
		{0.265, 0, models.TreasureWisp},
		{0.50, 100, models.TreasureAmount},
		{0.999, 100, models.TreasureAmount},
	}

	for _, tt := range tests {
		got := pickTier(tt.roll, ladder)
		if got.Bells != tt.wantBells || got.Type != tt.wantType {
			t.Errorf("pickTier(%v) = %d %s, want %d %s",
				tt.roll, got.Bells, got.Type, tt.wantBells, tt.wantType)
		}
	}
}
