package polar

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func TestProjectOriginMapsToUnitX(t *testing.T) {
	for _, cw := range []bool{false, true} {
		for _, origin := range []float64{0, math.Pi / 2, math.Pi, 5.5} {
			p := Projector{OriginAngle: origin, Clockwise: cw, RadiusMax: 90}
			x, y := p.Project(90, origin)
			if !near(x, 1) || !near(y, 0) {
				t.Errorf("clockwise=%v origin=%v: got (%v, %v), want (1, 0)", cw, origin, x, y)
			}
		}
	}
}

func TestProjectOrientation(t *testing.T) {
	ccw := Projector{RadiusMax: 1}
	x, y := ccw.Project(1, math.Pi/2)
	if !near(x, 0) || !near(y, 1) {
		t.Errorf("counter-clockwise quarter turn = (%v, %v), want (0, 1)", x, y)
	}
	cw := Projector{Clockwise: true, RadiusMax: 1}
	x, y = cw.Project(1, math.Pi/2)
	if !near(x, 0) || !near(y, -1) {
		t.Errorf("clockwise quarter turn = (%v, %v), want (0, -1)", x, y)
	}
}

func TestSkyOrientation(t *testing.T) {
	tests := []struct {
		name   string
		az     float64
		wx, wy float64
	}{
		{"north", 0, 0, 1},
		{"east", 90, 1, 0},
		{"south", 180, 0, -1},
		{"west", 270, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := Sky.Project(90, tt.az*math.Pi/180)
			if !near(x, tt.wx) || !near(y, tt.wy) {
				t.Errorf("got (%v, %v), want (%v, %v)", x, y, tt.wx, tt.wy)
			}
		})
	}
}

func TestThetaWraps(t *testing.T) {
	p := Projector{OriginAngle: math.Pi, RadiusMax: 1}
	for _, a := range []float64{-7, -1, 0, 1, 3.2, 10, 100} {
		th := p.Theta(a)
		if th < 0 || th >= 2*math.Pi {
			t.Errorf("Theta(%v) = %v outside [0, 2π)", a, th)
		}
	}
}

func TestWithinBound(t *testing.T) {
	p := Projector{RadiusMax: 90}
	if !p.WithinBound(90 - 1e-6) {
		t.Error("radius just inside the bound rejected")
	}
	if !p.WithinBound(90) {
		t.Error("radius at the bound rejected")
	}
	if p.WithinBound(90 + 1e-6) {
		t.Error("radius just outside the bound accepted")
	}
}

func TestGrid(t *testing.T) {
	p := Projector{OriginAngle: math.Pi / 2, Clockwise: true, RadiusMax: 90}
	shapes := p.Grid(4, 12)

	var rings, rays []Shape
	var labels []string
	for _, s := range shapes {
		switch s.Kind {
		case KindCircle:
			rings = append(rings, s)
		case KindRay:
			rays = append(rays, s)
		case KindText:
			labels = append(labels, s.Text)
		}
	}
	if len(rings) != 4 || len(rays) != 12 || len(labels) != 12 {
		t.Fatalf("rings=%d rays=%d labels=%d, want 4/12/12", len(rings), len(rays), len(labels))
	}
	for k, r := range rings {
		if want := float64(k+1) / 4; !near(r.Radius, want) {
			t.Errorf("ring %d radius = %v, want %v", k, r.Radius, want)
		}
	}

	// Label text ignores the rotation.
	plain := Projector{RadiusMax: 90}.Grid(4, 12)
	var plainLabels []string
	for _, s := range plain {
		if s.Kind == KindText {
			plainLabels = append(plainLabels, s.Text)
		}
	}
	for i := range labels {
		if labels[i] != plainLabels[i] {
			t.Errorf("label %d = %q rotated, %q plain", i, labels[i], plainLabels[i])
		}
	}
	if labels[0] != "0" || labels[3] != "90" || labels[11] != "330" {
		t.Errorf("labels = %v", labels)
	}

	// Labels sit just outside the unit circle.
	for _, s := range shapes {
		if s.Kind != KindText {
			continue
		}
		r := math.Hypot(s.Points[0].X, s.Points[0].Y)
		if !near(r, 1.03) {
			t.Errorf("label %q at radius %v, want 1.03", s.Text, r)
		}
	}
}
