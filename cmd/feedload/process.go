package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stellarhealth/feedload/internal/exitcode"
	"github.com/stellarhealth/feedload/internal/logging"
	"github.com/stellarhealth/feedload/internal/mapping"
	"github.com/stellarhealth/feedload/internal/pipeline"
	"github.com/stellarhealth/feedload/internal/statestore"
	"github.com/stellarhealth/feedload/internal/submit"
)

var configPath string

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process one feed file and submit the canonical batch",
	RunE:  runProcess,
}

func init() {
	f := processCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to feed file (required)")
	f.StringVar(&configPath, "config", "", "Path to feed YAML config (required)")
	f.StringVar(&cfg.MappingsPath, "mappings", "", "Path to mapping specs YAML (overrides config)")
	f.BoolVar(&cfg.DryRun, "dry-run", false, "Validate only, submit with commit=false")
	f.BoolVar(&cfg.AutoCommit, "auto-commit", false, "Commit unless blocking errors are present (adt/appointments only)")
	_ = processCmd.MarkFlagRequired("file")
	_ = processCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.LoadFromFile(configPath); err != nil {
		log.Error().Err(err).Msg("config load failed")
		os.Exit(exitcode.UsageError)
	}
	if err := cfg.ValidateWithDSN(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	specsRaw, err := os.ReadFile(cfg.MappingsPath)
	if err != nil {
		log.Error().Err(err).Msg("reading mapping specs failed")
		os.Exit(exitcode.UsageError)
	}
	specs, err := mapping.Load(specsRaw)
	if err != nil {
		log.Error().Err(err).Msg("parsing mapping specs failed")
		os.Exit(exitcode.UsageError)
	}

	pool, err := statestore.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()
	store := statestore.New(pool, log)

	client := submit.NewClient(submit.Config{
		BaseURL:   cfg.EndpointURL,
		APIKey:    cfg.APIKey,
		DataSetID: cfg.DataSetID,
	}, log)

	result, err := pipeline.Run(ctx, store, client, log, &cfg, specs)
	if err != nil {
		if pe, ok := err.(*pipeline.PipelineError); ok {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("processing failed")
			switch pe.Phase {
			case "read":
				os.Exit(exitcode.ReadError)
			case "submit", "roster":
				os.Exit(exitcode.SubmitError)
			default:
				os.Exit(exitcode.MappingError)
			}
		}
		log.Error().Err(err).Msg("processing failed")
		os.Exit(exitcode.MappingError)
	}

	for _, d := range result.Details {
		fmt.Println(d)
	}
	if result.Skipped {
		fmt.Printf("File skipped: %s\n", cfg.FilePath)
		os.Exit(exitcode.PartialSuccess)
	}
	fmt.Printf("Processing complete: %s, %d rows read, committed=%v (%.1fs)\n",
		result.FileType, result.RowsRead, result.Committed, result.DurationTotal.Seconds())
	return nil
}
