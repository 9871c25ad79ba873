package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/eringen/pubnotion"
	"github.com/eringen/pubnotion/content"
	"github.com/eringen/pubnotion/metrics"
	"github.com/eringen/pubnotion/notion"
	"github.com/eringen/pubnotion/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = run(os.Args[2:], serve)
	case "build":
		err = run(os.Args[2:], build)
	case "version":
		fmt.Printf("pubnotion %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pubnotion - A blog engine that publishes posts written in Notion

Usage:
  pubnotion <command> [flags]

Commands:
  serve         Serve the site over HTTP
  build         Export the site as static files
  version       Print the pubnotion version
  help          Show this help message

Every flag can also be set through the environment, for example
NOTION_TOKEN, NOTION_DATABASE_ID, SITE_URL and ADDR. Run
"pubnotion serve --help" for the full list.

Examples:
  NOTION_TOKEN=secret_xxx NOTION_DATABASE_ID=abc pubnotion serve
  pubnotion build --output-dir public`)
}

func run(args []string, cmd func(context.Context, *pubnotion.App) error) error {
	cfg, err := pubnotion.LoadConfig(args)
	if err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			fmt.Println(ferr.Message)
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := pubnotion.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	app, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return cmd(ctx, app)
}

func newApp(cfg pubnotion.Config, logger *slog.Logger) (*pubnotion.App, error) {
	site, err := cfg.SiteDefaults()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	client := notion.NewClient(cfg.NotionToken, append(cfg.NotionOptions(),
		notion.WithLogger(logger),
		notion.WithMetrics(collector),
	)...)

	opts := []pubnotion.SourceOption{
		pubnotion.WithCache(pubnotion.NewCache(pubnotion.WithCacheStats(collector))),
		pubnotion.WithSourceLogger(logger),
	}
	if cfg.SnapshotPath != "" {
		store, err := pubnotion.NewStore(cfg.SnapshotPath)
		if err != nil {
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		opts = append(opts, pubnotion.WithSnapshotStore(store))
	}

	src := pubnotion.NewSource(client, content.NewNormalizer(cfg.PropertyNames()), cfg.SourceConfig(site), opts...)
	return pubnotion.New(cfg, src,
		pubnotion.WithLogger(logger),
		pubnotion.WithMetrics(collector, reg),
	), nil
}

func serve(ctx context.Context, app *pubnotion.App) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}

func build(ctx context.Context, app *pubnotion.App) error {
	res, err := app.Export(ctx, app.Config.OutputDir)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d posts and %d tag pages (%d files) to %s\n", res.Posts, res.Tags, res.Files, app.Config.OutputDir)
	if res.Notice != views.NoNotice {
		fmt.Fprintf(os.Stderr, "Warning: content source unavailable, export is %s\n", res.Notice)
	}
	return nil
}
