// Command nightplan prints a site's night window and the observability of
// a target catalog without running the dashboard service.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/obscode/magdash/internal/ephem"
	"github.com/obscode/magdash/internal/night"
)

var (
	siteName  string
	sitesFile string
	planDate  string
	stepMins  int
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "nightplan",
	Short: "Plan a night of observations from the command line.",
	Long: `nightplan computes the dusk-to-dawn window for an observatory and the
observability of the targets in a catalog file over that night.

Defaults are read from MAGDASH_SITE and MAGDASH_SITES_FILE, also via .env.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	defSite := os.Getenv("MAGDASH_SITE")
	if defSite == "" {
		defSite = "LCO"
	}

	rootCmd.PersistentFlags().StringVarP(&siteName, "site", "s", defSite, "observing site")
	rootCmd.PersistentFlags().StringVar(&sitesFile, "sites-file", os.Getenv("MAGDASH_SITES_FILE"), "YAML file with additional sites")
	rootCmd.PersistentFlags().StringVarP(&planDate, "date", "d", "", "local date the night starts on (YYYY-MM-DD, default tonight)")
	rootCmd.PersistentFlags().IntVar(&stepMins, "step", int(night.DefaultStep.Minutes()), "time grid spacing in minutes")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
}

func logger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveSite looks up --site in the built-in registry merged with --sites-file.
func resolveSite() (ephem.Site, error) {
	sites := ephem.BuiltinSites()
	if sitesFile != "" {
		loaded, err := ephem.LoadSites(sitesFile)
		if err != nil {
			return ephem.Site{}, err
		}
		sites = loaded
	}
	return sites.Lookup(siteName)
}

// reference returns the instant whose night is planned: local noon of
// --date, or now.
func reference(site ephem.Site) (time.Time, error) {
	if planDate == "" {
		return time.Now(), nil
	}
	d, err := time.ParseInLocation(time.DateOnly, planDate, site.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", planDate)
	}
	return d.Add(12 * time.Hour), nil
}

func step() (time.Duration, error) {
	if stepMins < 1 || stepMins > 60 {
		return 0, fmt.Errorf("invalid --step %d: want 1-60 minutes", stepMins)
	}
	return time.Duration(stepMins) * time.Minute, nil
}

// plan resolves the flags into a site, a reference instant and its night.
func plan() (ephem.Site, time.Time, *night.Window, error) {
	site, err := resolveSite()
	if err != nil {
		return ephem.Site{}, time.Time{}, nil, err
	}
	ref, err := reference(site)
	if err != nil {
		return site, ref, nil, err
	}
	st, err := step()
	if err != nil {
		return site, ref, nil, err
	}
	w, err := night.Build(ref, site, st)
	if err != nil {
		return site, ref, nil, err
	}
	return site, ref, w, nil
}
