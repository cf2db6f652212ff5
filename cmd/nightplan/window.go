package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/obscode/magdash/internal/ephem"
	"github.com/obscode/magdash/internal/night"
	"github.com/obscode/magdash/internal/table"
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Print the night window: sunset, twilight, sunrise and night length.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		site, _, w, err := plan()
		if err != nil {
			return err
		}
		printWindow(cmd.OutOrStdout(), site, w)
		return nil
	},
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List the known observing sites.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sites := ephem.BuiltinSites()
		if sitesFile != "" {
			loaded, err := ephem.LoadSites(sitesFile)
			if err != nil {
				return err
			}
			sites = loaded
		}
		out := cmd.OutOrStdout()
		for _, name := range sites.Names() {
			s, _ := sites.Lookup(name)
			fmt.Fprintf(out, "%-10s %+9.4f %+10.4f %6.0f m  %s\n",
				s.Name, s.Latitude, s.Longitude, s.Elevation, s.Location())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(windowCmd, sitesCmd)
}

func printWindow(out io.Writer, site ephem.Site, w *night.Window) {
	loc := site.Location()
	row := func(label string, t time.Time) {
		if t.IsZero() {
			fmt.Fprintf(out, "%-18s -\n", label)
			return
		}
		fmt.Fprintf(out, "%-18s %s UT   %s LT   ST %s\n", label,
			t.UTC().Format("2006-01-02 15:04"),
			t.In(loc).Format("15:04"),
			table.FormatHours(site.LocalSiderealTime(t))[:5])
	}

	fmt.Fprintf(out, "Night at %s starting %s\n\n", site.Name, w.Sunset.In(loc).Format("Mon 2006-01-02"))
	row("Sunset", w.Sunset)
	row("Evening twilight", w.TwilightEvening)
	row("Morning twilight", w.TwilightMorning)
	row("Sunrise", w.Sunrise)

	fmt.Fprintf(out, "\nNight length      %s\n", w.Sunrise.Sub(w.Sunset).Round(time.Minute))
	if w.HasAstronomicalNight() {
		fmt.Fprintf(out, "Dark time         %s\n", w.TwilightMorning.Sub(w.TwilightEvening).Round(time.Minute))
	} else {
		fmt.Fprintln(out, "Dark time         none (sun stays above -18°)")
	}
	fmt.Fprintf(out, "Grid              %d points every %s\n", len(w.Grid), w.Step)
}
