package airmass

import (
	"math"
	"testing"
)

func TestOfKnownValues(t *testing.T) {
	tests := []struct {
		alt  float64
		want float64
		tol  float64
	}{
		{90, 1.0, 1e-3},
		{30, 2.0, 0.01},
		{Floor, 38.73, 0.05},
	}
	for _, tt := range tests {
		if got := Of(tt.alt); math.Abs(got-tt.want) > tt.tol {
			t.Errorf("Of(%v) = %v, want %v ± %v", tt.alt, got, tt.want, tt.tol)
		}
	}
}

// Pickering's refraction term pushes the sine argument past 90° within
// 0.04° of the zenith, so monotonicity is checked up to 89.9°.
func TestOfDecreasingAboveHorizon(t *testing.T) {
	prev := Of(0.01)
	if math.IsInf(prev, 0) || prev < 1 {
		t.Fatalf("Of(0.01) = %v", prev)
	}
	for h := 0.02; h <= 89.9; h += 0.01 {
		am := Of(h)
		if math.IsInf(am, 0) || math.IsNaN(am) || am < 1-1e-9 {
			t.Fatalf("Of(%v) = %v, want finite ≥ 1", h, am)
		}
		if am >= prev {
			t.Fatalf("Of(%v) = %v not below Of(%v) = %v", h, am, h-0.01, prev)
		}
		prev = am
	}
}

func TestOfFloorBelowHorizon(t *testing.T) {
	want := Of(Floor)
	for _, h := range []float64{0, -0.0, -1, -45, -90, math.NaN()} {
		if got := Of(h); got != want {
			t.Errorf("Of(%v) = %v, want %v", h, got, want)
		}
	}
}

func TestOfContinuousAtFloor(t *testing.T) {
	if d := math.Abs(Of(Floor+1e-9) - Of(Floor)); d > 1e-6 {
		t.Errorf("discontinuity at floor: %v", d)
	}
}

func TestSeriesAndMin(t *testing.T) {
	alts := []float64{-10, 30, 90, 45}
	s := Series(alts)
	if len(s) != len(alts) {
		t.Fatalf("len = %d, want %d", len(s), len(alts))
	}
	for i, h := range alts {
		if s[i] != Of(h) {
			t.Errorf("Series[%d] = %v, want %v", i, s[i], Of(h))
		}
	}
	if m := Min(s); m != Of(90) {
		t.Errorf("Min = %v, want %v", m, Of(90))
	}
	if m := Min(nil); !math.IsInf(m, 1) {
		t.Errorf("Min(nil) = %v, want +Inf", m)
	}
}
