package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stellarhealth/feedload/internal/exitcode"
	"github.com/stellarhealth/feedload/internal/logging"
	"github.com/stellarhealth/feedload/internal/mapping"
	"github.com/stellarhealth/feedload/internal/tabular"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Report which mapping a feed file matches (no writes)",
	RunE:  runDetect,
}

func init() {
	f := detectCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to feed file (required)")
	f.StringVar(&cfg.MappingsPath, "mappings", "", "Path to mapping specs YAML (required)")
	_ = detectCmd.MarkFlagRequired("file")
	_ = detectCmd.MarkFlagRequired("mappings")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)

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

	raw, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("reading feed file failed")
		os.Exit(exitcode.ReadError)
	}
	contents := string(raw)

	var matched *mapping.Spec
	for _, s := range specs {
		if len(s.FixedWidths) > 0 {
			continue
		}
		if header, err := tabular.Header(contents, s.Sep()); err == nil && s.MatchesHeader(header) {
			matched = s
			break
		}
	}
	if matched == nil {
		fmt.Printf("No mapping matched %s (%d specs tried)\n", cfg.FilePath, len(specs))
		os.Exit(exitcode.PartialSuccess)
	}

	fmt.Println("=== feedload detect ===")
	fmt.Printf("File:      %s\n", cfg.FilePath)
	fmt.Printf("File type: %s\n", matched.FileType)
	fmt.Printf("Kind:      %s\n", matched.Kind)
	fmt.Printf("Columns:   %d bound, %d dates\n", len(matched.Columns()), len(matched.ParseDates()))
	return nil
}
