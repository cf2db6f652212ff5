package ephem

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/soniakeys/unit"
)

// CoordinateError reports an RA or Dec value that cannot be parsed.
type CoordinateError struct {
	Axis string // "RA" or "Dec"
	Text string
	Err  error
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Axis, e.Text, e.Err)
}

func (e *CoordinateError) Unwrap() error {
	return e.Err
}

// ParseCoordinate converts RA and Dec text to decimal hours and decimal
// degrees. Both accept decimal numbers or sexagesimal "dd:mm:ss.s" (also
// space or "h m s"/"d m s" separated). RA is wrapped into [0, 24).
// Failures are *CoordinateError.
func ParseCoordinate(raText, decText string) (raHours, decDeg float64, err error) {
	raHours, err = parseAngle(raText)
	if err != nil {
		return 0, 0, &CoordinateError{Axis: "RA", Text: raText, Err: err}
	}
	if raHours < 0 && strings.ContainsAny(strings.TrimSpace(raText), ": hm") {
		return 0, 0, &CoordinateError{Axis: "RA", Text: raText, Err: errors.New("negative sexagesimal right ascension")}
	}
	raHours = unit.PMod(raHours, 24)

	decDeg, err = parseAngle(decText)
	if err != nil {
		return 0, 0, &CoordinateError{Axis: "Dec", Text: decText, Err: err}
	}
	if decDeg < -90 || decDeg > 90 {
		return 0, 0, &CoordinateError{Axis: "Dec", Text: decText, Err: errors.New("outside [-90, 90]")}
	}
	return raHours, decDeg, nil
}

var sexaReplacer = strings.NewReplacer("h", " ", "d", " ", "m", " ", "s", " ", ":", " ", "°", " ", "'", " ", "\"", " ")

// parseAngle parses a decimal or sexagesimal value in its own unit
// (hours for RA, degrees for Dec).
func parseAngle(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("empty value")
	}

	fields := strings.Fields(sexaReplacer.Replace(text))
	if len(fields) == 1 && !strings.ContainsAny(text, ":hdms°'\"") {
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
		if v != v || v > 1e6 || v < -1e6 {
			return 0, fmt.Errorf("not a finite angle")
		}
		return v, nil
	}
	if len(fields) == 0 || len(fields) > 3 {
		return 0, fmt.Errorf("malformed sexagesimal value")
	}

	var neg byte
	first := fields[0]
	switch first[0] {
	case '-':
		neg = '-'
		first = first[1:]
	case '+':
		first = first[1:]
	}

	whole, err := strconv.Atoi(first)
	if err != nil || whole < 0 {
		return 0, fmt.Errorf("malformed sexagesimal value")
	}
	var min int
	var sec float64
	if len(fields) > 1 {
		min, err = strconv.Atoi(fields[1])
		if err != nil || min < 0 || min >= 60 {
			return 0, fmt.Errorf("minutes out of range")
		}
	}
	if len(fields) > 2 {
		sec, err = strconv.ParseFloat(fields[2], 64)
		if err != nil || sec < 0 || sec >= 60 {
			return 0, fmt.Errorf("seconds out of range")
		}
	}

	return unit.FromSexa(neg, whole, min, sec), nil
}
