package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Francis-T/mmda-trafficdata-indexer/internal/config"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/aggregator"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/api"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/storage"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/tags"
	"github.com/Francis-T/mmda-trafficdata-indexer/pkg/weather"
)

const (
	version = "0.3.0"
)

const usage = `Usage: traffichist [-env file] <command> [args]

Commands:
  generate [dir]          build a new archive from raw captures
  update [dir]            fold uncovered raw captures into the archive
  push <file> <HHMM>      append one capture to the part file
  offload [-force]        fold the part file into the previous day's tag
  tags refresh            refresh today's tag with the current weather
  tags import <file>      copy a tags.txt file into the tag database
  info                    print the archive header
  serve                   run the admin HTTP API
`

type app struct {
	cfg   *config.Config
	store *storage.Store
	tags  tags.Store
	agg   *aggregator.Aggregator
}

func main() {
	envFile := flag.String("env", "", "load environment from this file instead of .env")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	var cfg *config.Config
	if *envFile != "" {
		cfg = config.Load(*envFile)
	} else {
		cfg = config.Load()
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.close()

	if err := a.dispatch(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		log.Printf("%s failed: %v", flag.Arg(0), err)
		a.close()
		os.Exit(1)
	}
}

func newApp(cfg *config.Config) (*app, error) {
	store, err := storage.NewStore(cfg.ToStorageConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	var tagStore tags.Store
	if cfg.Storage.TagDBPath != "" {
		db, err := tags.OpenBadgerStore(cfg.Storage.TagDBPath)
		if err != nil {
			return nil, err
		}
		tagStore = db
	} else {
		tagStore = tags.NewFileStore(cfg.Storage.TagFile)
	}

	wp := weather.NewService(cfg.Weather.APIKey, cfg.Weather.Location)
	part := storage.NewPartFile(cfg.Storage.PartFile)

	return &app{
		cfg:   cfg,
		store: store,
		tags:  tagStore,
		agg:   aggregator.New(cfg.ToAggregatorConfig(), store, part, tagStore, wp),
	}, nil
}

func (a *app) close() {
	if a.tags != nil {
		if err := a.tags.Close(); err != nil {
			log.Printf("Failed to close tag store: %v", err)
		}
		a.tags = nil
	}
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "generate":
		res, err := a.agg.Generate(ctx, dirArg(args, a.cfg.Capture.RawDataDir))
		if err != nil {
			return err
		}
		log.Printf("Archive generated: coverage %s, %d tags", res.Coverage, len(res.TagsWritten))
		return nil

	case "update":
		_, ref, err := a.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load archive: %w", err)
		}
		res, err := a.agg.Update(ctx, ref, dirArg(args, a.cfg.Capture.RawDataDir))
		if err != nil {
			return err
		}
		log.Printf("Archive updated: coverage %s, %d tags rewritten", res.Coverage, len(res.TagsWritten))
		return nil

	case "push":
		if len(args) != 2 {
			return fmt.Errorf("push requires <file> <HHMM>")
		}
		return a.agg.PushSample(ctx, args[0], args[1])

	case "offload":
		fs := flag.NewFlagSet("offload", flag.ContinueOnError)
		force := fs.Bool("force", false, "offload regardless of the part file size")
		if err := fs.Parse(args); err != nil {
			return err
		}
		res, err := a.agg.Offload(ctx, *force)
		if err != nil {
			return err
		}
		log.Printf("Offloaded %v into %v", res.DatesTouched, res.TagsWritten)
		return nil

	case "tags":
		return a.tagsCommand(ctx, args)

	case "info":
		header, err := a.store.Info(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Archive:  %s\n", a.store.Path())
		fmt.Printf("Coverage: %s\n", header.Coverage)
		fmt.Printf("Tags:     %d\n", len(header.Tags))
		for _, t := range header.Tags {
			fmt.Printf("  %s\n", t)
		}
		return nil

	case "serve":
		return a.serve(ctx)
	}

	flag.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *app) tagsCommand(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("tags requires a subcommand")
	}

	switch args[0] {
	case "refresh":
		tag, err := a.agg.UpdateTagFile(ctx, time.Now())
		if err != nil {
			return err
		}
		fmt.Println(tag)
		return nil

	case "import":
		if len(args) != 2 {
			return fmt.Errorf("tags import requires <file>")
		}
		n, err := tags.Copy(ctx, a.tags, tags.NewFileStore(args[1]))
		if err != nil {
			return err
		}
		log.Printf("Imported %d tag assignments", n)
		return nil
	}
	return fmt.Errorf("unknown tags subcommand %q", args[0])
}

func (a *app) serve(ctx context.Context) error {
	fmt.Printf("MMDA Traffic History v%s\n", version)
	fmt.Println()

	log.Printf("Configuration loaded:")
	log.Printf("  Listen Address: %s", a.cfg.Server.ListenAddr)
	log.Printf("  Archive: %s", a.cfg.Storage.ArchivePath)
	log.Printf("  Raw Data: %s", a.cfg.Capture.RawDataDir)
	log.Printf("  Compression: %v (level %d)", a.cfg.Storage.UseCompression, a.cfg.Storage.CompressionLevel)

	server := api.NewServer(a.cfg.Server.ListenAddr, a.store, a.agg, a.cfg.Capture.RawDataDir)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("API server listening on %s", a.cfg.Server.ListenAddr)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.Timeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Println("Server stopped successfully")
	return nil
}

func dirArg(args []string, def string) string {
	if len(args) > 0 {
		return args[0]
	}
	return def
}
