package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/casebinder/internal/config"
	"github.com/local/casebinder/internal/jobs"
	logpkg "github.com/local/casebinder/internal/logger"
	"github.com/local/casebinder/internal/metrics"
	"github.com/local/casebinder/internal/pdfout"
	"github.com/local/casebinder/internal/planner"
	"github.com/local/casebinder/internal/scan"
	"github.com/local/casebinder/internal/server"
	"github.com/local/casebinder/internal/storage"
)

type flags struct {
	input    string
	output   string
	onExists string
	config   string
	rename   bool
	serve    bool
	debug    bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("casebinder", flag.ContinueOnError)
	fs.StringVar(&f.input, "input", "./", "Input folder with one sub-folder per case")
	fs.StringVar(&f.input, "I", "./", "Shorthand for -input")
	fs.StringVar(&f.output, "output", "", "Output PDF path, directory or s3://bucket/key (default: generated name)")
	fs.StringVar(&f.output, "O", "", "Shorthand for -output")
	fs.StringVar(&f.onExists, "on-exists", "", "What to do when the output exists: fail, overwrite or rename")
	fs.StringVar(&f.config, "config", "", "Optional YAML config file")
	fs.BoolVar(&f.rename, "rename", false, "Rename each case's PDF to its folder name and exit")
	fs.BoolVar(&f.rename, "R", false, "Shorthand for -rename")
	fs.BoolVar(&f.serve, "serve", false, "Run the HTTP job API instead of a single run")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&f.debug, "D", false, "Shorthand for -debug")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	return f, nil
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg := config.Load()
	if f.config != "" {
		if err := config.LoadFile(f.config, &cfg); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
	}
	if f.onExists != "" {
		cfg.Output.OnExists = f.onExists
	}
	if f.debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Invalid configuration:", err)
		os.Exit(2)
	}

	// Init logging
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()
	metrics.Init()

	if f.rename {
		res, err := scan.RenamePrimaries(f.input)
		if err != nil {
			log.Error().Err(err).Msg("rename failed")
			os.Exit(1)
		}
		fmt.Printf("Done: renamed %d files, skipped %d folders\n", res.Renamed, res.Skipped)
		return
	}

	pipeline, err := newPipeline(context.Background(), cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to set up pipeline")
		os.Exit(1)
	}

	if f.serve {
		if err := serve(cfg, pipeline); err != nil {
			log.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
		return
	}

	os.Exit(runOnce(cfg, pipeline, f))
}

func newPipeline(ctx context.Context, cfg config.Config) (*jobs.Pipeline, error) {
	var remote pdfout.Sink
	if cfg.Storage.S3Enabled {
		sink, err := storage.NewS3Sink(ctx, cfg.Storage.S3Region)
		if err != nil {
			return nil, err
		}
		remote = sink
	}
	pl := planner.New(nil, nil)
	pl.JPEGQuality = cfg.Layout.JPEGQuality
	return &jobs.Pipeline{
		Scan:       scan.Options{InlinePrefix: cfg.Layout.InlinePrefix, PagePrefix: cfg.Layout.PagePrefix},
		Planner:    pl,
		Writer:     pdfout.NewWriter(remote),
		TempMaxAge: cfg.Output.TempMaxAge,
	}, nil
}

func runOnce(cfg config.Config, pipeline *jobs.Pipeline, f flags) int {
	policy, err := pdfout.ParseOnExists(cfg.Output.OnExists)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}
	output := f.output
	if output == "" {
		output = cfg.Output.Dir
	}

	// Ctrl-C stops the run at the next case boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := newProgressPrinter(os.Stderr)
	res, err := pipeline.Run(ctx, jobs.Request{Input: f.input, Output: output, OnExists: policy}, progress.update)
	progress.finish()

	printSkipTable(os.Stdout, res.Report)
	switch {
	case err == nil:
		fmt.Printf("Created %s (%d cases, %d pages)\n", res.Output, res.Report.SuccessCount, res.Report.Pages)
		return 0
	case errors.Is(err, jobs.ErrNoCases):
		fmt.Println("No case produced any pages; nothing written.")
		return 1
	case errors.Is(err, pdfout.ErrExists):
		fmt.Fprintf(os.Stderr, "Output exists: %v (use -on-exists overwrite or rename)\n", err)
		return 1
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "Cancelled.")
		return 130
	default:
		log.Error().Err(err).Msg("run failed")
		return 1
	}
}

func serve(cfg config.Config, pipeline *jobs.Pipeline) error {
	var status jobs.StatusStore
	if cfg.Server.RedisURL != "" {
		rs, err := jobs.NewRedisStatus(cfg.Server.RedisURL, cfg.Server.StatusTTL)
		if err != nil {
			return fmt.Errorf("failed to init redis status store: %w", err)
		}
		defer rs.Close()
		status = rs
	} else {
		status = jobs.NewMemoryStatus()
	}

	worker := jobs.NewWorker(pipeline, status, cfg.Server.QueueSize)
	worker.Start()

	policy, _ := pdfout.ParseOnExists(cfg.Output.OnExists)
	srv := server.New(server.Dependencies{Jobs: worker, InputRoot: cfg.Server.InputRoot, DefaultOnExists: policy})
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	httpSrv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	var serveErr error
	select {
	case <-stop:
	case serveErr = <-errCh:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	if err := worker.Stop(ctx); err != nil {
		log.Warn().Err(err).Msg("worker did not stop in time")
	}
	log.Info().Msg("shutdown complete")
	return serveErr
}
