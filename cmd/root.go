package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facegate",
	Short: "Face recognition access control with attendance logging",
	Long: `Facegate matches camera frames against per-tenant member rosters and
records at most one attendance entry per member per day. Matching runs on
an accelerated index with a guaranteed exhaustive-scan fallback, so a
degraded store or index never blocks the door.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
