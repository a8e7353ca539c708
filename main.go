package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "patternbot",
		Short:         "Candlestick pattern trading bot for Binance spot and futures",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.json", "path to a JSON or YAML config file")

	cmd.AddCommand(
		newRunCmd(opts),
		newSampleConfigCmd(),
		newTokenCmd(opts),
		newStoreKeysCmd(opts),
		newTradesCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
