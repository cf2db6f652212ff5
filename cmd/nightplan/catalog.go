package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/obscode/magdash/internal/catalog"
	"github.com/obscode/magdash/internal/ephem"
	"github.com/obscode/magdash/internal/filter"
	"github.com/obscode/magdash/internal/ingest"
	"github.com/obscode/magdash/internal/night"
	"github.com/obscode/magdash/internal/table"
)

var (
	maxAirmass float64
	raRange    string
	decRange   string
	tags       []string
	outFormat  string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog FILE",
	Short: "Print the observability of a catalog's targets for the night.",
	Long: `catalog reads a target catalog (one target per line, '#' comments) and
prints, for each target passing the filters, its best airmass during the
night and the time it is reached. With --format catalog the visible targets
are written back out as a catalog instead. Use - to read standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalog,
}

func init() {
	catalogCmd.Flags().Float64Var(&maxAirmass, "max-airmass", filter.MaxAirmass, "hide targets whose best airmass is not below this value")
	catalogCmd.Flags().StringVar(&raRange, "ra", "", "RA range in hours, LO:HI")
	catalogCmd.Flags().StringVar(&decRange, "dec", "", "Dec range in degrees, LO:HI")
	catalogCmd.Flags().StringSliceVar(&tags, "tag", nil, "keep only targets with these comment tags")
	catalogCmd.Flags().StringVarP(&outFormat, "format", "f", "table", "output format: table or catalog")
	rootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	if outFormat != "table" && outFormat != "catalog" {
		return fmt.Errorf("invalid --format %q: want table or catalog", outFormat)
	}
	data, err := readInput(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	site, ref, w, err := plan()
	if err != nil {
		return err
	}

	res, err := ingest.Catalog(commandContext(cmd), data, ingest.Options{
		Kind:      "catalog",
		Source:    args[0],
		Ephemeris: site,
		Window:    w,
		Now:       ref,
		Logger:    logger(),
	})
	if err != nil {
		return err
	}
	for _, rej := range res.Rejected {
		fmt.Fprintln(cmd.ErrOrStderr(), "skipped:", rej)
	}

	eng := filter.NewEngine()
	eng.SetTable(res.Table)
	updates, err := flagUpdates()
	if err != nil {
		return err
	}
	for _, u := range updates {
		if err := eng.Apply(u); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if outFormat == "catalog" {
		return writeVisible(out, res.Table, eng.Mask())
	}
	return printTable(out, site, w, res.Table, eng.Mask())
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// flagUpdates turns the filter flags into engine updates.
func flagUpdates() ([]filter.Update, error) {
	var updates []filter.Update
	if maxAirmass != filter.MaxAirmass {
		v := maxAirmass
		updates = append(updates, filter.Update{Name: filter.NameAirmass, Threshold: &v})
	}
	for _, r := range []struct {
		name, text string
	}{
		{filter.NameRA, raRange},
		{filter.NameDec, decRange},
	} {
		if r.text == "" {
			continue
		}
		lo, hi, err := parseRange(r.text)
		if err != nil {
			return nil, fmt.Errorf("invalid --%s %q: %w", r.name, r.text, err)
		}
		updates = append(updates, filter.Update{Name: r.name, Lo: &lo, Hi: &hi})
	}
	if len(tags) > 0 {
		updates = append(updates, filter.Update{Name: filter.NameTag, Selected: tags})
	}
	return updates, nil
}

func parseRange(s string) (lo, hi float64, err error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("want LO:HI")
	}
	if lo, err = strconv.ParseFloat(strings.TrimSpace(a), 64); err != nil {
		return 0, 0, err
	}
	if hi, err = strconv.ParseFloat(strings.TrimSpace(b), 64); err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

func writeVisible(out io.Writer, t *table.Table, mask []bool) error {
	var visible []table.Target
	for i, ok := range mask {
		if ok {
			visible = append(visible, t.Targets[i])
		}
	}
	return catalog.Write(out, visible)
}

// bestTime returns the instant between sunset and sunrise at which row i
// has its lowest airmass, or false when the target stays below the horizon
// all night.
func bestTime(w *night.Window, t *table.Table, i int) (time.Time, float64, bool) {
	best := -1
	for j, at := range w.Grid {
		if at.Before(w.Sunset) || at.After(w.Sunrise) {
			continue
		}
		if best < 0 || t.Airmass[i][j] < t.Airmass[i][best] {
			best = j
		}
	}
	if best < 0 || t.Altitude[i][best] <= 0 {
		return time.Time{}, 0, false
	}
	return w.Grid[best], t.Airmass[i][best], true
}

func printTable(out io.Writer, site ephem.Site, w *night.Window, t *table.Table, mask []bool) error {
	loc := site.Location()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tRA\tDEC\tTAG\tBEST AM\tBEST LT\tNOW ALT")
	shown := 0
	for i, ok := range mask {
		if !ok {
			continue
		}
		shown++
		tg := t.Targets[i]
		am, when := "-", "-"
		if bt, best, ok := bestTime(w, t, i); ok {
			am = strconv.FormatFloat(best, 'f', 2, 64)
			when = bt.In(loc).Format("15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%+.4f\t%s\t%s\t%s\t%.1f\n",
			tg.ID, tg.Name, table.FormatHours(tg.RA), tg.Dec, tg.Comment,
			am, when, t.Current.Altitude[i])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\n%d of %d targets shown\n", shown, t.Len())
	return err
}

// commandContext is cobra's command context, or Background when run outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}
