package main

import (
	"os"

	"github.com/rulekit/rulekit/pkg/cmd/root"
	"github.com/rulekit/rulekit/pkg/utils/log"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	rootCmd := root.NewCommand(version)

	if err := rootCmd.Execute(); err != nil {
		// Built after flag parsing so -v applies. Fatal exits with status 1.
		logger := log.GetLogger(os.Stderr, log.IsTerminal(os.Stderr))
		logger.Fatal().Err(err).Msg("Error executing rulekit")
	}
}
