// Package cmd provides the CLI commands for the cashcat gateway.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cashcat/cashcat-gateway/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cashcat-gateway",
	Short: "cashcat gateway - financial data tools for agents",
	Long: `cashcat-gateway exposes a cashcat budgeting instance to agents as a small
set of read-only JSON-RPC tools.

Every call is authenticated with the caller's bearer token, which is
forwarded unchanged to the cashcat REST API.

Quick start:
  1. Create a config file: cashcat-gateway.yaml
  2. Run: cashcat-gateway start

Configuration:
  Config is loaded from cashcat-gateway.yaml in the current directory,
  $HOME/.cashcat-gateway/, or /etc/cashcat-gateway/. A .env file in the
  current directory is loaded first when present.

  Environment variables can override config values with the CASHCAT_GATEWAY_ prefix.
  Example: CASHCAT_GATEWAY_UPSTREAM_BASE_URL=https://cashcat.example

Commands:
  start       Start the gateway
  tools       Print the tool catalogue
  hash-key    Generate a hash for a local API key
  version     Print version information`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./cashcat-gateway.yaml)")
}

func initConfig() {
	// A missing .env is the normal case.
	_ = godotenv.Load()
	config.InitViper(cfgFile)
}
