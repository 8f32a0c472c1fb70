package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/aluiziolira/go-book-browser/catalog"
	"github.com/aluiziolira/go-book-browser/config"
	"github.com/aluiziolira/go-book-browser/pipeline"
	"github.com/aluiziolira/go-book-browser/render"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	app := &cli.App{
		Name:    "browser",
		Usage:   "Browse the book catalog by genre and title",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Run one search and print a page of results",
				ArgsUsage: "[query]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "genre",
						Aliases: []string{"g"},
						Usage:   "Genre to search (empty searches every subject)",
					},
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Free-text title search",
					},
					&cli.IntFlag{
						Name:    "page",
						Aliases: []string{"p"},
						Usage:   "Page to print",
						Value:   1,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, html, csv or json",
						Value:   "text",
					},
				},
				Action: runSearch,
			},
		},
		Action: runShell,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("browser failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Load configuration from `FILE`",
			EnvVars: []string{"BROWSER_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "api-url",
			Usage:   "Volumes search endpoint",
			EnvVars: []string{"BROWSER_API_URL"},
		},
		&cli.IntFlag{
			Name:    "page-size",
			Usage:   "Books per page",
			EnvVars: []string{"BROWSER_PAGE_SIZE"},
		},
		&cli.IntFlag{
			Name:    "max-results",
			Usage:   "Maximum volumes requested per search",
			EnvVars: []string{"BROWSER_MAX_RESULTS"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Request timeout",
			EnvVars: []string{"BROWSER_TIMEOUT"},
		},
		&cli.StringFlag{
			Name:    "locale",
			Usage:   "Locale used to sort titles",
			EnvVars: []string{"BROWSER_LOCALE"},
		},
		&cli.StringFlag{
			Name:    "placeholder",
			Usage:   "Cover URL used when a volume has no thumbnail",
			EnvVars: []string{"BROWSER_PLACEHOLDER"},
		},
		&cli.Float64Flag{
			Name:    "rate",
			Usage:   "Maximum searches per second (0 disables throttling)",
			EnvVars: []string{"BROWSER_RATE"},
		},
		&cli.IntFlag{
			Name:    "burst",
			Usage:   "Searches allowed in a burst",
			EnvVars: []string{"BROWSER_BURST"},
		},
		&cli.StringFlag{
			Name:    "metrics-addr",
			Usage:   "Prometheus metrics listen address (e.g. :9090)",
			EnvVars: []string{"BROWSER_METRICS_ADDR"},
		},
		&cli.BoolFlag{
			Name:    "v",
			Usage:   "Enable verbose logging",
			EnvVars: []string{"BROWSER_VERBOSE"},
		},
	}
}

// app wires the catalog client, pipeline and metrics server for one run.
type app struct {
	cfg           *config.Config
	client        *catalog.Client
	metricsServer *http.Server
}

func setup(c *cli.Context) (*app, error) {
	cfg, err := loadSettings(c, os.Stderr)
	if err != nil {
		return nil, err
	}

	client, err := catalog.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialising catalog client: %w", err)
	}

	a := &app{cfg: cfg, client: client}
	if cfg.MetricsAddr != "" {
		a.metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(client.Metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}
	return a, nil
}

func (a *app) close() {
	if a.metricsServer == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

// loadSettings installs the default logger before reading the config file,
// so file loading is logged, and raises it to debug when the file asks for
// verbose output.
func loadSettings(c *cli.Context, logOut io.Writer) (*config.Config, error) {
	logger, level := newLogger(logOut, c.Bool("v"))
	slog.SetDefault(logger)

	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		level.Set(slog.LevelDebug)
	}
	slog.SetLogLoggerLevel(level.Level())

	if path := c.String("config"); path != "" {
		slog.Debug("configuration loaded",
			slog.String("path", path),
			slog.String("api_url", cfg.APIURL),
			slog.Int("page_size", cfg.PageSize),
			slog.String("locale", cfg.Locale),
		)
	}
	return cfg, nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if c.IsSet("api-url") {
		cfg.APIURL = c.String("api-url")
	}
	if c.IsSet("page-size") {
		cfg.PageSize = c.Int("page-size")
	}
	if c.IsSet("max-results") {
		cfg.MaxResults = c.Int("max-results")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("locale") {
		cfg.Locale = c.String("locale")
	}
	if c.IsSet("placeholder") {
		cfg.PlaceholderCover = c.String("placeholder")
	}
	if c.IsSet("rate") {
		cfg.RequestsPerSec = c.Float64("rate")
	}
	if c.IsSet("burst") {
		cfg.Burst = c.Int("burst")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
	if c.IsSet("v") {
		cfg.Verbose = c.Bool("v")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runSearch(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()

	genre := strings.TrimSpace(c.String("genre"))
	if !a.cfg.HasGenre(genre) {
		return fmt.Errorf("unknown genre %q (available: %s)", genre, strings.Join(a.cfg.Genres, ", "))
	}
	query := c.String("query")
	if c.Args().Present() {
		query = strings.Join(c.Args().Slice(), " ")
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch format := strings.ToLower(c.String("format")); format {
	case "text":
		view := render.NewTerminal(os.Stdout)
		if err := searchPage(ctx, a, view, genre, query, c.Int("page")); err != nil {
			return err
		}
		return view.Err()
	case "csv", "json":
		rw := render.NewCSVWriter(os.Stdout)
		if format == "json" {
			rw = render.NewJSONWriter(os.Stdout)
		}
		if err := searchPage(ctx, a, rw, genre, query, c.Int("page")); err != nil {
			return err
		}
		return rw.Err()
	case "html":
		doc, err := render.NewDocument()
		if err != nil {
			return err
		}
		if err := searchPage(ctx, a, doc, genre, query, c.Int("page")); err != nil {
			return err
		}
		out, err := doc.HTML()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, out)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// searchPage runs a search and, for pages past the first, navigates to page
// without a second fetch. Only the final page reaches view.
func searchPage(ctx context.Context, a *app, view pipeline.View, genre, query string, page int) error {
	if page <= 1 {
		return pipeline.NewPipeline(a.client, view, a.cfg).Search(ctx, genre, query)
	}

	discard := render.NewTerminal(io.Discard)
	p := pipeline.NewPipeline(a.client, discard, a.cfg)
	if err := p.Search(ctx, genre, query); err != nil {
		return err
	}
	p.SetView(view)
	return p.GoToPage(page)
}

func runShell(c *cli.Context) error {
	a, err := setup(c)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGTERM)
	defer stop()

	sh := newShell(a.cfg, a.client, os.Stdout)
	err = sh.run(ctx)

	metrics := sh.pipeline.GetMetrics()
	slog.Debug("session summary",
		slog.Any("searches", metrics["searches"]),
		slog.Any("fetch_failures", metrics["fetch_failures"]),
		slog.Any("stale_responses", metrics["stale_responses"]),
		slog.Any("page_views", metrics["page_views"]),
	)
	return err
}

func newLogger(w io.Writer, verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelWarn)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
