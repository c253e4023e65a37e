/*
PURPOSE:
  Defines the 'verify' subcommand.
  Deliberates over file content pinned to a git snapshot and exits
  with the CI contract: 0 pass, 1 fail, 2 unclear.

REQUIREMENTS:
  User-specified:
  - Snapshot SHA as the positional argument; optional target paths,
    rubric focus, and confidence threshold.
  - Exit codes must be exact; CI branches on them.

  Implementation-discovered:
  - cobra's RunE error path always exits 1, so this command prints the
    result and calls os.Exit itself for codes 0 and 2.

ARCHITECTURE INTEGRATION:
  - Calls: internal/verify.Run
  - Uses: internal/fetch, internal/engine

USAGE:
  council-runner verify 3f2a91c --paths internal/engine/runner.go
  council-runner verify 3f2a91cdeadbeef --focus Security --threshold 0.8

RELATED FILES:
  - internal/verify/verify.go

MAINTENANCE:
  - Keep exit codes aligned with internal/verify.ExitCode.
*/

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daryltucker/council-runner/internal/engine"
	"github.com/daryltucker/council-runner/internal/fetch"
	"github.com/daryltucker/council-runner/internal/output"
	"github.com/daryltucker/council-runner/internal/verify"
)

var (
	verifyPaths     []string
	verifyFocus     string
	verifyThreshold float64
	verifyRepoDir   string
	verifyJSON      bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <snapshot-sha>",
	Short: "Verify work at a git snapshot via council deliberation",
	Long: `Fetches file content pinned to the given commit (bounded per file and per
batch), asks the council to review it, and extracts a verdict from the
chairman's synthesis.

Exit codes:
  0  PASS     approved with confidence >= threshold
  1  FAIL     rejected
  2  UNCLEAR  confidence below threshold or no clear verdict`,
	Example: `  # Review the files changed by a commit
  council-runner verify 3f2a91c

  # Review specific paths with a security focus
  council-runner verify 3f2a91c --paths internal/fetch/fetch.go --focus Security`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		eng := engine.New(cfg, engine.NewClient(cfg))

		if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", cfg.OutputDir, err)
		}
		tw, err := output.NewTranscriptWriter(filepath.Join(cfg.OutputDir, "council_transcript.jsonl"))
		if err != nil {
			return fmt.Errorf("failed to open transcript: %w", err)
		}
		defer tw.Close()
		eng.Transcript = tw

		v := verify.New(eng, fetch.NewGitSource(verifyRepoDir))

		result, err := v.Run(cmd.Context(), verify.Request{
			SnapshotID:          args[0],
			TargetPaths:         verifyPaths,
			RubricFocus:         verifyFocus,
			ConfidenceThreshold: verifyThreshold,
		})
		if err != nil {
			return err
		}

		if verifyJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
		} else {
			fmt.Printf("verdict: %s (confidence %.2f)\n\n", result.Verdict, result.Confidence)
			fmt.Println(result.Rationale)
		}

		tw.Close()
		os.Exit(result.ExitCode)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringSliceVar(&verifyPaths, "paths", nil, "Paths to verify (default: files changed by the commit)")
	verifyCmd.Flags().StringVar(&verifyFocus, "focus", "", "Rubric focus area: Security, Performance, ...")
	verifyCmd.Flags().Float64Var(&verifyThreshold, "threshold", 0, "Minimum confidence for PASS (default from config)")
	verifyCmd.Flags().StringVar(&verifyRepoDir, "repo", "", "Repository directory (default: current directory)")
	verifyCmd.Flags().BoolVar(&verifyJSON, "json", false, "Print the full result as JSON")
}
