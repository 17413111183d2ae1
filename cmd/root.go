package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

const (
	flagConfig = "config"
	flagUrl    = "url"
	flagOut    = "out"
	flagForce  = "force"
	flagStart  = "start"
	flagLimit  = "limit"

	defaultConfigPath = "relay.toml"
	defaultServerUrl  = "http://localhost:25456"
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relays accepted DAO proposals from the source chain as token transfers on the target chain",
}

func init() {
	cobra.EnableCommandSorting = false

	rootCmd.SilenceUsage = true
	rootCmd.AddCommand(
		serveCmd(),
		watchCmd(),
		configCmd(),
	)
}

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
