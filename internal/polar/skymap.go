package polar

import (
	"fmt"
	"math"
	"time"

	"github.com/obscode/magdash/internal/ephem"
	"github.com/obscode/magdash/internal/table"
)

// Sky projects zenith angle (degrees) and azimuth (radians) with north up
// and east to the right.
var Sky = Projector{OriginAngle: math.Pi / 2, Clockwise: true, RadiusMax: 90}

// Horizon converts equatorial coordinates for the sky map.
type Horizon interface {
	Horizontal(t time.Time, raHours, decDeg float64) (ephem.Horizontal, error)
}

// Pointing is the telescope position.
type Pointing struct {
	Altitude float64 `json:"altitude"`
	Azimuth  float64 `json:"azimuth"`
}

// Options selects what SkyMap draws besides the fixed furniture.
type Options struct {
	Instant   time.Time
	Mask      []bool
	Highlight int // row under the telescope, or NoRow
	Pointing  *Pointing
}

var (
	boundaryStyle      = Style{Line: "#37435E", Width: 1.5}
	targetStyle        = Style{Line: "navy", Fill: "teal", Size: 6}
	standardStyle      = Style{Line: "black", Fill: "gold", Size: 6}
	highlightStyle     = Style{Line: "red", Fill: "red", Size: 9}
	constellationStyle = Style{Line: "gray", Width: 0.5}
	pointingStyle      = Style{Line: "red", Fill: "red"}
)

// SkyMap returns the sky-map shapes for tbl at opts.Instant: boundary,
// grid, labels, one marker per masked-in target above the bound,
// constellation segments with both ends above the horizon, and the
// telescope pointing when known.
func SkyMap(p Projector, tbl *table.Table, h Horizon, opts Options) ([]Shape, error) {
	shapes := []Shape{{
		Kind:   KindCircle,
		Points: []Point{{0, 0}},
		Radius: 1.01,
		Style:  boundaryStyle,
		Row:    NoRow,
	}}
	shapes = append(shapes, p.Grid(4, 12)...)

	if tbl != nil && tbl.Current.Altitude != nil {
		c := tbl.Current
		for i := range tbl.Targets {
			if i < len(opts.Mask) && !opts.Mask[i] {
				continue
			}
			za := c.ZenithAngle[i]
			if math.IsNaN(za) || !p.WithinBound(za) {
				continue
			}
			style := targetStyle
			switch {
			case i == opts.Highlight:
				style = highlightStyle
			case tbl.Targets[i].Comment == table.StandardTag:
				style = standardStyle
			}
			x, y := p.Project(za, c.Azimuth[i]*math.Pi/180)
			shapes = append(shapes, Shape{
				Kind:   KindMarker,
				Points: []Point{{x, y}},
				Style:  style,
				Text:   tbl.Targets[i].Name,
				Row:    i,
			})
		}
	}

	segs, err := constellationShapes(p, h, opts.Instant)
	if err != nil {
		return nil, err
	}
	shapes = append(shapes, segs...)

	if tp := opts.Pointing; tp != nil {
		x, y := p.Project(90-tp.Altitude, tp.Azimuth*math.Pi/180)
		shapes = append(shapes, Shape{
			Kind:   KindAnnulus,
			Points: []Point{{x, y}},
			Radius: 8.0 / 250,
			Style:  pointingStyle,
			Row:    NoRow,
		})
	}
	return shapes, nil
}

// constellationShapes projects every segment whose two ends are above the
// horizon. A segment with either end below is dropped whole.
func constellationShapes(p Projector, h Horizon, instant time.Time) ([]Shape, error) {
	segs, err := Constellations()
	if err != nil {
		return nil, err
	}
	var out []Shape
	for _, s := range segs {
		a, err := h.Horizontal(instant, s.RA1, s.Dec1)
		if err != nil {
			return nil, fmt.Errorf("constellation %s: %w", s.Constellation, err)
		}
		b, err := h.Horizontal(instant, s.RA2, s.Dec2)
		if err != nil {
			return nil, fmt.Errorf("constellation %s: %w", s.Constellation, err)
		}
		if a.Altitude <= 0 || b.Altitude <= 0 {
			continue
		}
		x1, y1 := p.Project(90-a.Altitude, a.Azimuth*math.Pi/180)
		x2, y2 := p.Project(90-b.Altitude, b.Azimuth*math.Pi/180)
		out = append(out, Shape{
			Kind:   KindSegment,
			Points: []Point{{x1, y1}, {x2, y2}},
			Style:  constellationStyle,
			Text:   s.Constellation,
			Row:    NoRow,
		})
	}
	return out, nil
}
