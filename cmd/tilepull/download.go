package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tilepull/internal/config"
	"tilepull/internal/downloads"
	"tilepull/internal/fetch"
	"tilepull/internal/progress"
	"tilepull/internal/provider"
	"tilepull/internal/store"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download tiles for a bounding box or tile range",
	Example: `  tilepull download --url dark_all --min-zoom 0 --max-zoom 4 \
    --min-lat -85 --min-lon -180 --max-lat 85 --max-lon 180

  tilepull download --url "https://tile.example.com/{z}/{x}/{y}.png" \
    --min-zoom 10 --max-zoom 10 --min-x 511 --max-x 514 --min-y 340 --max-y 342`,
	RunE: runDownload,
}

// buildConfig merges the optional config file, the environment and any
// flags the user actually set, in that precedence order.
func buildConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}

	f := cmd.Flags()
	if f.Changed("url") {
		cfg.URL = flagURL
	}
	if f.Changed("min-zoom") {
		cfg.MinZoom = &minZoom
	}
	if f.Changed("max-zoom") {
		cfg.MaxZoom = &maxZoom
	}
	if f.Changed("min-lat") {
		cfg.MinLat = &minLat
	}
	if f.Changed("min-lon") {
		cfg.MinLon = &minLon
	}
	if f.Changed("max-lat") {
		cfg.MaxLat = &maxLat
	}
	if f.Changed("max-lon") {
		cfg.MaxLon = &maxLon
	}
	if f.Changed("min-x") {
		cfg.MinX = &minX
	}
	if f.Changed("max-x") {
		cfg.MaxX = &maxX
	}
	if f.Changed("min-y") {
		cfg.MinY = &minY
	}
	if f.Changed("max-y") {
		cfg.MaxY = &maxY
	}
	if f.Changed("output") {
		cfg.Output = output
	}
	if f.Changed("workers") {
		cfg.Workers = workers
	}
	if f.Changed("retries") {
		cfg.Retries = retries
	}
	if f.Changed("timeout") {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid timeout %q: %w", timeout, err)
		}
		cfg.Timeout = d
	}
	if f.Changed("user-agent") {
		cfg.UserAgent = userAgent
	}
	if f.Changed("proxy") {
		cfg.Proxy = proxyURL
	}
	if f.Changed("retina") {
		cfg.Retina = retina
	}
	if f.Changed("quiet") {
		cfg.Quiet = quiet
	}
	if f.Changed("no-progress") {
		cfg.NoProgress = noProgress
	}
	return cfg, nil
}

// buildPlan resolves the source and computes the tile plan for a validated
// configuration.
func buildPlan(cfg config.Config) (*provider.Source, downloads.Plan, error) {
	source, err := provider.Resolve(cfg.URL)
	if err != nil {
		return nil, downloads.Plan{}, err
	}
	source.SetRetina(cfg.Retina)
	if cfg.HasBounds() {
		return source, downloads.PlanBounds(cfg.Bounds(), cfg.Zooms()), nil
	}
	plan, err := downloads.PlanTileRange(*cfg.MinX, *cfg.MaxX, *cfg.MinY, *cfg.MaxY, cfg.Zooms())
	if err != nil {
		return nil, downloads.Plan{}, err
	}
	return source, plan, nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	source, plan, err := buildPlan(cfg)
	if err != nil {
		return err
	}

	outDir := cfg.Output
	if outDir == "" {
		outDir = config.DefaultOutput(time.Now())
	}
	st, err := store.New(outDir)
	if err != nil {
		return err
	}

	client, err := fetch.NewClient(fetch.Options{
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		ProxyURL:  cfg.Proxy,
	})
	if err != nil {
		return err
	}
	retryer := fetch.Retryer{MaxRetries: cfg.Retries}

	dl := downloads.New(client, retryer, st, source, cfg.Workers)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.Quiet {
		log.Printf("[tilepull] downloading %d tiles (zoom %d-%d) from %s into %s",
			plan.Total, *cfg.MinZoom, *cfg.MaxZoom, source.Template(), outDir)
	}

	var summary downloads.RunSummary
	switch {
	case cfg.Quiet:
		summary, err = dl.Run(ctx, plan)
	case !cfg.NoProgress && isatty.IsTerminal(os.Stderr.Fd()):
		summary, err = runWithTUI(ctx, dl, plan)
	default:
		summary, err = runWithReporter(ctx, dl, plan)
	}

	if !cfg.Quiet {
		progress.PrintSummary(os.Stdout, summary)
	}

	// Per-tile failures are reported in the summary, not as a process
	// error. Only an interrupted run propagates.
	return err
}

// runWithTUI drives the download under the live progress bar. Quitting the
// bar (ctrl+c) cancels the run.
func runWithTUI(ctx context.Context, dl *downloads.Downloader, plan downloads.Plan) (downloads.RunSummary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := progress.NewTUI(fmt.Sprintf("tilepull (%d tiles)", plan.Total), plan.Total)
	dl.SetProgressFunc(func(s downloads.Snapshot) {
		progress.Notify(prog, s)
	})

	var (
		summary downloads.RunSummary
		runErr  error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		summary, runErr = dl.Run(ctx, plan)
		progress.Finish(prog)
	}()

	if _, err := prog.Run(); err != nil {
		log.Printf("[tilepull] progress display error: %v", err)
	}
	cancel()
	<-done
	return summary, runErr
}

// runWithReporter drives the download with plain-text progress lines, used
// when stderr is not a terminal or --no-progress is set.
func runWithReporter(ctx context.Context, dl *downloads.Downloader, plan downloads.Plan) (downloads.RunSummary, error) {
	var (
		mu   sync.Mutex
		last = downloads.Snapshot{Total: plan.Total}
	)
	dl.SetProgressFunc(func(s downloads.Snapshot) {
		mu.Lock()
		last = s
		mu.Unlock()
	})

	rep := progress.NewReporter(progress.Options{}, func() downloads.Snapshot {
		mu.Lock()
		defer mu.Unlock()
		return last
	})
	rep.Start()
	defer rep.Stop()
	return dl.Run(ctx, plan)
}
