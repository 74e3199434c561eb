// Package cmd provides the vlist command-line interface.
//
// Configuration sources, in precedence order: command-line flags, the
// VLIST_CONFIG_FILE environment variable, individual VLIST_* variables
// (VLIST_SERVER_PORT, VLIST_ENGINE_RANGE_SIZE, ...), and a .vlist.yml
// file in the current directory.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "vlist",
	Short: "A virtualized list engine with demo front-ends",
	Long: `vlist is a virtualized, collection-backed list engine: it keeps the
illusion of a fully populated, natively scrolled list while only ever
materializing a small rendered window, fetching data lazily through
page, offset, or cursor pagination.

Quick Start:
  vlist generate --count 10000 -o users.json   Generate a demo dataset
  vlist tui                                    Scroll it in the terminal
  vlist serve                                  Stream it over HTTP + websocket
  vlist config                                 Print the effective configuration`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is .vlist.yml, can also use VLIST_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info",
		"log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("VLIST_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".vlist")
	}

	viper.SetEnvPrefix("VLIST")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine; defaults and env vars apply.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
