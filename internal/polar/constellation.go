package polar

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

//go:embed constellations.dat
var constellationData []byte

// Segment is one constellation line between two stars.
type Segment struct {
	Constellation string
	RA1, Dec1     float64 // hours, degrees
	RA2, Dec2     float64
}

// Constellations returns the embedded stick-figure segments.
var Constellations = sync.OnceValues(func() ([]Segment, error) {
	return parseSegments(constellationData)
})

func parseSegments(data []byte) ([]Segment, error) {
	var segs []Segment
	sc := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		f := strings.Fields(text)
		if len(f) != 5 {
			return nil, fmt.Errorf("constellation line %d: %d fields, want 5", line, len(f))
		}
		var v [4]float64
		for i := range v {
			n, err := strconv.ParseFloat(f[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("constellation line %d: %w", line, err)
			}
			v[i] = n
		}
		segs = append(segs, Segment{Constellation: f[0], RA1: v[0], Dec1: v[1], RA2: v[2], Dec2: v[3]})
	}
	return segs, sc.Err()
}
