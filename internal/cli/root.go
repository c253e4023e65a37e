/*
PURPOSE:
  Defines the root Cobra command for the Council Runner CLI.
  Handles global flags and command initialization.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config and --log-level.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/council-runner/main.go
  - Calls: Child commands (run, verify, list-models, functions)

ERROR HANDLING:
  - Returns error to main.go for exit code handling. The verify
    command exits directly to honor the 0/1/2 contract.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands.

RELATED FILES:
  - cmd/council-runner/main.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"github.com/spf13/cobra"

	"github.com/daryltucker/council-runner/internal/config"
	"github.com/daryltucker/council-runner/internal/output"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile  string
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "council-runner",
		Short: "Multi-model deliberation: query a council of LLMs, rank, and synthesize",
		Long: `Council Runner coordinates multiple independent LLM backends to produce a
single deliberated answer or verdict. Each round fans a prompt out to the
council, anonymizes the responses for peer ranking, aggregates the rankings
into a league table, and has a chairman backend synthesize the final text.`,
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the effective config and applies the global
// log-level flag.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	output.SetLevel(cfg.LogLevel)
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./council.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}
