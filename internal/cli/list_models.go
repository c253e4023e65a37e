/*
PURPOSE:
  Defines the 'list-models' subcommand.
  Shows the effective council composition so users can confirm what a
  round will actually query before spending tokens.

ARCHITECTURE INTEGRATION:
  - Uses: internal/config

ERROR HANDLING:
  - Config errors surface; this command does no network I/O.

USAGE:
  council-runner list-models
*/

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "Show the configured council, chairman, and normalizer backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Println("Council:")
		for _, m := range cfg.CouncilModels {
			marker := ""
			if m == cfg.ChairmanModel {
				marker = "  (chairman)"
			}
			fmt.Printf("- %s%s\n", m, marker)
		}
		if !contains(cfg.CouncilModels, cfg.ChairmanModel) {
			fmt.Printf("\nChairman: %s\n", cfg.ChairmanModel)
		}
		fmt.Printf("Normalizer: %s\n", cfg.NormalizerModel)
		fmt.Printf("Mode: %s, exclude self-votes: %t, max reviewers: %d\n",
			cfg.SynthesisMode, cfg.ExcludeSelfVotes, cfg.MaxReviewers)
		return nil
	},
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(listModelsCmd)
}
