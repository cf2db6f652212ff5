package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/obscode/magdash/internal/api"
	"github.com/obscode/magdash/internal/catalog"
	"github.com/obscode/magdash/internal/dashboard"
	"github.com/obscode/magdash/internal/ephem"
	"github.com/obscode/magdash/internal/night"
	"github.com/obscode/magdash/internal/queue"
	"github.com/obscode/magdash/internal/stream"
	"github.com/obscode/magdash/internal/telescope"
)

func main() {
	// A missing .env is normal; the environment may be set by the supervisor.
	envErr := godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(logOutput(), &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn("could not read .env", "error", envErr)
	}

	addr := os.Getenv("MAGDASH_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	site, err := loadSite(logger)
	if err != nil {
		logger.Error("invalid site configuration", "error", err)
		os.Exit(1)
	}

	opts, closeDB, err := loadProviders(logger)
	if err != nil {
		logger.Error("invalid provider configuration", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	var sess *dashboard.Session
	streamCfg := loadStreamConfig(logger)
	hub := stream.NewHub(streamCfg, func() any {
		if snap := sess.Snapshot(); snap != nil {
			return snap.Summary()
		}
		return nil
	}, logger)

	opts.Publisher = hub
	opts.Logger = logger
	sess, err = dashboard.New(loadSessionConfig(logger, site), opts)
	if err != nil {
		logger.Error("creating dashboard session", "error", err)
		os.Exit(1)
	}

	srv := api.NewServer(addr, sess, hub.HandleStream, streamCfg.TrustProxy, logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessDone := make(chan struct{})
	go func() {
		defer close(sessDone)
		if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("dashboard session stopped", "error", err)
		}
	}()

	// Load the configured catalog once the first night window is up.
	if opts.Remote != nil {
		go func() {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for !sess.Ready() {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
			rep, err := sess.IngestRemote(ctx)
			if err != nil {
				logger.Warn("initial catalog load failed", "url", opts.Remote.SourceURL(), "error", err)
				return
			}
			logger.Info("initial catalog loaded", "source", rep.Source, "rows", rep.Rows, "rejected", len(rep.Rejected))
		}()
	}

	go func() {
		logger.Info("starting server",
			"addr", addr,
			"site", site.Name,
			"remote_catalog", opts.Remote != nil,
			"queues", opts.Queues != nil,
			"telescope", opts.Telescope != nil,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	<-sessDone

	logger.Info("server stopped")
}

// logOutput returns stdout, or a size-rotated file when MAGDASH_LOG_FILE is set.
func logOutput() io.Writer {
	path := os.Getenv("MAGDASH_LOG_FILE")
	if path == "" {
		return os.Stdout
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
}

func loadSite(logger *slog.Logger) (ephem.Site, error) {
	sites := ephem.BuiltinSites()
	if path := os.Getenv("MAGDASH_SITES_FILE"); path != "" {
		loaded, err := ephem.LoadSites(path)
		if err != nil {
			return ephem.Site{}, err
		}
		sites = loaded
	}

	name := os.Getenv("MAGDASH_SITE")
	if name == "" {
		name = "LCO"
	}
	site, err := sites.Lookup(name)
	if err != nil {
		return ephem.Site{}, err
	}

	logger.Info("site config",
		"site", site.Name,
		"latitude", site.Latitude,
		"longitude", site.Longitude,
		"elevation_m", site.Elevation,
		"timezone", site.Location().String(),
	)
	return site, nil
}

func loadSessionConfig(logger *slog.Logger, site ephem.Site) dashboard.Config {
	cfg := dashboard.Config{
		Site:            site,
		Step:            night.DefaultStep,
		ClockInterval:   time.Second,
		RefreshInterval: 60 * time.Second,
	}

	if v := os.Getenv("MAGDASH_GRID_STEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 60 {
			logger.Warn("invalid MAGDASH_GRID_STEP value, using default", "value", v, "default", int(night.DefaultStep.Minutes()))
		} else {
			cfg.Step = time.Duration(n) * time.Minute
		}
	}

	if v := os.Getenv("MAGDASH_CLOCK_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid MAGDASH_CLOCK_INTERVAL value, using default", "value", v, "default", 1)
		} else {
			cfg.ClockInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("MAGDASH_REFRESH_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid MAGDASH_REFRESH_INTERVAL value, using default", "value", v, "default", 60)
		} else {
			cfg.RefreshInterval = time.Duration(n) * time.Second
		}
	}

	logger.Info("session config",
		"grid_step_minutes", cfg.Step.Minutes(),
		"clock_interval_seconds", cfg.ClockInterval.Seconds(),
		"refresh_interval_seconds", cfg.RefreshInterval.Seconds(),
	)

	return cfg
}

// loadProviders wires the optional data providers. The returned func
// closes the queue database, if one was opened.
func loadProviders(logger *slog.Logger) (dashboard.Options, func(), error) {
	var opts dashboard.Options
	closeDB := func() {}

	if u := os.Getenv("MAGDASH_CATALOG_URL"); u != "" {
		fetcher := catalog.NewFetcher(u, logger)
		if a := loadArchive(logger); a != nil {
			fetcher.WithArchive(a)
		}
		opts.Remote = fetcher
	}

	if dsn := os.Getenv("MAGDASH_DB_DSN"); dsn != "" {
		store, err := queue.Open(dsn, logger)
		if err != nil {
			return opts, closeDB, err
		}
		opts.Queues = store
		closeDB = func() {
			if err := store.Close(); err != nil {
				logger.Warn("closing queue database", "error", err)
			}
		}
	}

	if tcfg, ok := loadTelescopeConfig(logger); ok {
		opts.Telescope = telescope.NewClient(tcfg, logger)
	}

	logger.Info("provider config",
		"catalog_url", os.Getenv("MAGDASH_CATALOG_URL"),
		"queues_enabled", opts.Queues != nil,
		"queues", queue.Names(),
		"telescope_enabled", opts.Telescope != nil,
	)

	return opts, closeDB, nil
}

// loadArchive returns the on-disk archive of downloaded catalogs, or nil
// when MAGDASH_CATALOG_CACHE_DIR is unset.
func loadArchive(logger *slog.Logger) *catalog.Archive {
	dir := os.Getenv("MAGDASH_CATALOG_CACHE_DIR")
	if dir == "" {
		return nil
	}

	keep := 5
	if v := os.Getenv("MAGDASH_CATALOG_CACHE_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid MAGDASH_CATALOG_CACHE_FILES value, using default", "value", v, "default", keep)
		} else {
			keep = n
		}
	}

	logger.Info("catalog archive config", "dir", dir, "max_files", keep)
	return catalog.NewArchive(dir, keep)
}

// loadTelescopeConfig reads the status page URLs. MAGDASH_TELESCOPE_SEEING_URLS
// is a comma-separated list of TEL=URL pairs.
func loadTelescopeConfig(logger *slog.Logger) (telescope.Config, bool) {
	cfg := telescope.Config{
		PointingURL: os.Getenv("MAGDASH_TELESCOPE_POINTING_URL"),
		WeatherURL:  os.Getenv("MAGDASH_TELESCOPE_WEATHER_URL"),
		SeeingURLs:  map[string]string{},
	}

	if v := os.Getenv("MAGDASH_TELESCOPE_SEEING_URLS"); v != "" {
		for _, pair := range strings.Split(v, ",") {
			tel, u, ok := strings.Cut(strings.TrimSpace(pair), "=")
			tel, u = strings.TrimSpace(tel), strings.TrimSpace(u)
			if !ok || tel == "" || u == "" {
				logger.Warn("invalid MAGDASH_TELESCOPE_SEEING_URLS entry, skipping", "value", pair)
				continue
			}
			cfg.SeeingURLs[strings.ToUpper(tel)] = u
		}
	}

	enabled := cfg.PointingURL != "" || cfg.WeatherURL != "" || len(cfg.SeeingURLs) > 0
	return cfg, enabled
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		KeepaliveInterval:  30 * time.Second,
	}

	if v := os.Getenv("MAGDASH_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid MAGDASH_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("MAGDASH_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid MAGDASH_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("MAGDASH_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid MAGDASH_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}
