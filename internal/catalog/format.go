package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/obscode/magdash/internal/table"
)

// Format writes a target as a catalog line that parses back to the same
// target. Coordinates are written in decimal. Whitespace inside text
// fields becomes '_'.
func Format(t table.Target) string {
	fields := []string{
		text(t.ID),
		text(t.Name),
		num(t.RA),
		num(t.Dec),
		num(t.Equinox),
		num(t.PMRA),
		num(t.PMDec),
		num(t.RotOffset),
		text(t.RotMode),
		text(t.Probe1.RA),
		text(t.Probe1.Dec),
		num(t.Probe1.Equinox),
		text(t.Probe2.RA),
		text(t.Probe2.Dec),
		num(t.Probe2.Equinox),
		num(t.ObsEpoch),
	}
	line := strings.Join(fields, " ")
	if t.Comment != "" {
		line += " # " + t.Comment
	}
	return line
}

// Write formats every target on its own line.
func Write(w io.Writer, targets []table.Target) error {
	bw := bufio.NewWriter(w)
	for _, t := range targets {
		if _, err := fmt.Fprintln(bw, Format(t)); err != nil {
			return fmt.Errorf("writing catalog: %w", err)
		}
	}
	return bw.Flush()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func text(s string) string {
	if s == "" {
		return emptyField
	}
	s = strings.Join(strings.Fields(s), "_")
	return strings.ReplaceAll(s, "#", `\#`)
}
