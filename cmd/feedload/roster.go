package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stellarhealth/feedload/internal/exitcode"
	"github.com/stellarhealth/feedload/internal/logging"
	"github.com/stellarhealth/feedload/internal/statestore"
	"github.com/stellarhealth/feedload/internal/submit"
)

var rosterCommit bool

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Re-submit the stored plan roster without processing a feed",
	RunE:  runRoster,
}

func init() {
	f := rosterCmd.Flags()
	f.StringVar(&configPath, "config", "", "Path to feed YAML config (required)")
	f.BoolVar(&rosterCommit, "commit", false, "Commit the roster instead of validating")
	_ = rosterCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(rosterCmd)
}

func runRoster(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.LoadFromFile(configPath); err != nil {
		log.Error().Err(err).Msg("config load failed")
		os.Exit(exitcode.UsageError)
	}
	if cfg.DSN == "" {
		log.Error().Msg("--dsn or DATABASE_URL is required")
		os.Exit(exitcode.UsageError)
	}

	pool, err := statestore.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()
	store := statestore.New(pool, log)

	members, err := store.KnownMemberNumbers(ctx, cfg.PlanID)
	if err != nil {
		log.Error().Err(err).Msg("loading stored roster failed")
		os.Exit(exitcode.DBConnError)
	}
	if len(members) == 0 {
		log.Warn().Int64("plan_id", cfg.PlanID).Msg("no stored roster, nothing to submit")
		os.Exit(exitcode.PartialSuccess)
	}

	client := submit.NewClient(submit.Config{
		BaseURL:   cfg.EndpointURL,
		APIKey:    cfg.APIKey,
		DataSetID: cfg.DataSetID,
	}, log)

	summary, err := client.UpdateRoster(ctx, members, rosterCommit)
	if err != nil {
		log.Error().Err(err).Msg("roster submission failed")
		os.Exit(exitcode.SubmitError)
	}

	fmt.Printf("Roster submitted: plan %d, %d members, %d orphaned, committed=%v\n",
		cfg.PlanID, len(members), summary.OrphanedCount, rosterCommit)
	return nil
}
