package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// nolint:gochecknoglobals
var (
	version    = "undefined"
	buildTime  = "undefined"
	configPath string
	listenPort uint16
)

// nolint:gochecknoglobals
var rootCmd = &cobra.Command{
	Use:   "sqldns",
	Short: "sqldns is a DNS server answering from a SQL database",
	Long: `A DNS server which computes answers for configured domains
from rows in a relational database and delegates everything else upstream.`,
}

// nolint:gochecknoinits
func init() {
	// assigned here instead of in the literal to avoid an initialization
	// cycle (startServer references rootCmd via applyFlagOverrides)
	rootCmd.Run = startServer

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.yml", "path to config file")
	rootCmd.PersistentFlags().Uint16VarP(&listenPort, "port", "p", 0, "DNS listen port, overrides the configured value")

	rootCmd.AddCommand(
		newServeCommand(),
		newValidateCommand(),
		newVersionCommand(),
	)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
