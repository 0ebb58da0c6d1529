package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/stellarhealth/feedload/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "feedload",
	Short: "Partner feed → system-of-record batch loader",
	Long:  "Normalizes partner tabular health feeds into canonical batches and submits them to the system-of-record update endpoints.",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("DATABASE_URL"), "Postgres connection string for the state store (or set DATABASE_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
