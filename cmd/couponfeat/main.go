package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chrisconley/couponfeat/internal"
	"github.com/chrisconley/couponfeat/internal/infra"
	"github.com/chrisconley/couponfeat/specs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "couponfeat:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("couponfeat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	variant := fs.String("variant", "", "feature set variant: basic or relation (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := infra.Load(*configPath)
	if err != nil {
		return err
	}
	if *variant != "" {
		cfg.Variant = *variant
	}

	logger := infra.NewLogger(cfg.Log, stderr)
	bus := infra.NewBus()
	infra.LogEvents(bus, logger)

	if cfg.Ledger.Path != "" {
		db, err := infra.OpenSQLite(cfg.Ledger.Path)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer db.Close()
		infra.NewLedger(db).Subscribe(bus, logger)
	}

	source := infra.NewSampledSource(infra.NewCSVSource(cfg.Paths, cfg.Files), cfg.Sample)

	sink, closeSink, err := infra.OpenSink(cfg, cfg.Paths.FeatureDir)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}
	defer closeSink()

	var opts []internal.PipelineOption
	if cfg.Paths.IntermediateDir != "" {
		intermediate, closeIntermediate, err := infra.OpenSink(cfg, cfg.Paths.IntermediateDir)
		if err != nil {
			return fmt.Errorf("open intermediate sink: %w", err)
		}
		defer closeIntermediate()
		opts = append(opts, internal.WithIntermediateSink(intermediate))
	}

	pipeline, err := internal.NewPipeline(source, sink, bus, specs.PipelineConfigSpec{
		Variant:        cfg.Variant,
		KeepMerchantID: cfg.KeepMerchantID,
		Parallel:       cfg.Parallel,
	}, opts...)
	if err != nil {
		return err
	}

	logger.Info().
		Str("source_dir", cfg.Paths.SourceDir).
		Str("feature_dir", cfg.Paths.FeatureDir).
		Str("variant", cfg.Variant).
		Bool("sample", cfg.Sample.Enabled).
		Msg("feature run starting")

	_, err = pipeline.Run(ctx)
	return err
}
