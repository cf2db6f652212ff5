// Package polar maps (radius, angle) pairs onto a unit-disc plot and
// builds the renderer-agnostic shape list of the sky map.
package polar

import (
	"math"
	"strconv"

	"github.com/soniakeys/unit"
)

// Projector maps radius and angle to plot coordinates. OriginAngle lands on
// the positive x axis and RadiusMax on the unit circle.
type Projector struct {
	OriginAngle float64 // radians
	Clockwise   bool
	RadiusMax   float64
}

// Theta returns the screen angle for angle, wrapped into [0, 2π).
func (p Projector) Theta(angle float64) float64 {
	t := angle - p.OriginAngle
	if p.Clockwise {
		t = -t
	}
	return unit.PMod(t, 2*math.Pi)
}

// Project returns the plot coordinates of (radius, angle).
func (p Projector) Project(radius, angle float64) (x, y float64) {
	t := p.Theta(angle)
	return radius * math.Cos(t) / p.RadiusMax, radius * math.Sin(t) / p.RadiusMax
}

// WithinBound reports whether radius is drawn. Points beyond RadiusMax stay
// in the data but are not rendered.
func (p Projector) WithinBound(radius float64) bool {
	return radius <= p.RadiusMax
}

// Point is a plot coordinate on the unit disc.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape kinds.
const (
	KindCircle  = "circle"
	KindRay     = "ray"
	KindText    = "text"
	KindMarker  = "marker"
	KindSegment = "segment"
	KindAnnulus = "annulus"
)

// NoRow marks shapes that do not belong to a table row.
const NoRow = -1

// Style carries rendering hints; the renderer decides what they mean.
type Style struct {
	Line  string  `json:"line,omitempty"`
	Fill  string  `json:"fill,omitempty"`
	Width float64 `json:"width,omitempty"`
	Dash  string  `json:"dash,omitempty"`
	Size  float64 `json:"size,omitempty"`
}

// Shape is one drawable element. Radius is in plot units for circles and
// annuli; Angle is the text rotation in radians.
type Shape struct {
	Kind   string  `json:"kind"`
	Points []Point `json:"points"`
	Radius float64 `json:"radius,omitempty"`
	Style  Style   `json:"style"`
	Text   string  `json:"text,omitempty"`
	Angle  float64 `json:"angle,omitempty"`
	Row    int     `json:"row"`
}

var gridStyle = Style{Line: "gray", Width: 0.5, Dash: "4 4"}

// Grid returns nrgrid rings at k·RadiusMax/nrgrid and ntgrid spokes at
// even angles, each spoke labelled with its un-rotated angle in degrees.
func (p Projector) Grid(nrgrid, ntgrid int) []Shape {
	shapes := make([]Shape, 0, nrgrid+2*ntgrid)
	origin := []Point{{0, 0}}
	for k := 1; k <= nrgrid; k++ {
		shapes = append(shapes, Shape{
			Kind:   KindCircle,
			Points: origin,
			Radius: float64(k) / float64(nrgrid),
			Style:  gridStyle,
			Row:    NoRow,
		})
	}
	for i := range ntgrid {
		a := float64(i) * 2 * math.Pi / float64(ntgrid)
		x, y := p.Project(p.RadiusMax, a)
		shapes = append(shapes, Shape{
			Kind:   KindRay,
			Points: []Point{{0, 0}, {x, y}},
			Style:  gridStyle,
			Row:    NoRow,
		})

		lx, ly := p.Project(1.03*p.RadiusMax, a)
		shapes = append(shapes, Shape{
			Kind:   KindText,
			Points: []Point{{lx, ly}},
			Style:  Style{Line: "gray"},
			Text:   strconv.Itoa(int(math.Round(a * 180 / math.Pi))),
			Angle:  -math.Pi/2 + p.Theta(a),
			Row:    NoRow,
		})
	}
	return shapes
}
