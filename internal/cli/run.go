/*
PURPOSE:
  Defines the 'run' subcommand.
  Executes one deliberation round over a prompt and prints the
  chairman's synthesis.

REQUIREMENTS:
  User-specified:
  - Prompt from argument or file; flags override config.
  - Transcript and aggregate table land in the output directory.

  Implementation-discovered:
  - Load config first, then apply flag overrides, then run.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.RunRound
  - Uses: internal/config, internal/output

ERROR HANDLING:
  - Returns an error (exit 1) when every backend fails; partial
    failure is logged and tolerated.

USAGE:
  council-runner run "What is the best way to shard this table?"
  council-runner run -p ./prompts/design_question.md --mode debate

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/daryltucker/council-runner/internal/engine"
	"github.com/daryltucker/council-runner/internal/output"
)

var (
	modelsOverride []string
	chairmanFlag   string
	modeFlag       string
	promptFile     string
	outputOverride string
	maxReviewers   int
	noTranscript   bool
	showDetails    bool
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run one deliberation round over a prompt",
	Long: `Runs the full three-stage deliberation:
1. Fan-out: every council backend answers the prompt in parallel.
2. Peer review: responses are shuffled and relabeled, then each reviewer
   ranks and scores them without knowing who wrote what.
3. Synthesis: the chairman backend produces the final answer (consensus
   mode) or an explicit map of agreements and trade-offs (debate mode).

The synthesis is printed to stdout; logs go to stderr. Each completed
stage is appended to council_transcript.jsonl in the output directory and
the aggregate league table to council_aggregate.csv.`,
	Example: `  # Ask the configured council
  council-runner run "Should we use UUIDv7 for event IDs?"

  # Prompt from a file, debate mode, custom council
  council-runner run -p ./question.md --mode debate \
    --models openai/gpt-5.1,anthropic/claude-opus-4.5

  # Show the aggregate table alongside the synthesis
  council-runner run --details "Review this design"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Flag overrides win over the resolved config.
		if len(modelsOverride) > 0 {
			cfg.CouncilModels = modelsOverride
		}
		if chairmanFlag != "" {
			cfg.ChairmanModel = chairmanFlag
		}
		if modeFlag != "" {
			cfg.SynthesisMode = modeFlag
		}
		if outputOverride != "" {
			cfg.OutputDir = outputOverride
		}
		if cmd.Flags().Changed("max-reviewers") {
			cfg.MaxReviewers = maxReviewers
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		prompt := ""
		if len(args) == 1 {
			prompt = args[0]
		}
		if promptFile != "" {
			data, err := os.ReadFile(promptFile)
			if err != nil {
				return fmt.Errorf("failed to read prompt file: %w", err)
			}
			prompt = string(data)
		}
		if prompt == "" {
			return fmt.Errorf("a prompt argument or --prompt-file is required")
		}

		eng := engine.New(cfg, engine.NewClient(cfg))

		if !noTranscript {
			if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory %s: %w", cfg.OutputDir, err)
			}
			tw, err := output.NewTranscriptWriter(filepath.Join(cfg.OutputDir, "council_transcript.jsonl"))
			if err != nil {
				return fmt.Errorf("failed to open transcript: %w", err)
			}
			defer tw.Close()
			eng.Transcript = tw

			cw, err := output.NewCSVWriter(filepath.Join(cfg.OutputDir, "council_aggregate.csv"))
			if err != nil {
				return fmt.Errorf("failed to open aggregate CSV: %w", err)
			}
			defer cw.Close()
			eng.Aggregates = cw
		}

		result, err := eng.RunRound(cmd.Context(), prompt)
		if err != nil {
			return err
		}
		if result.AllFailed() {
			return fmt.Errorf("all backends failed to respond")
		}

		result.Title = eng.GenerateTitle(cmd.Context(), prompt)
		output.Logger.Info("round titled", "round", result.RoundID, "title", result.Title)

		if showDetails {
			fmt.Println("AGGREGATE RANKINGS:")
			for _, entry := range result.Aggregate {
				score := "n/a"
				if entry.AverageScore != nil {
					score = fmt.Sprintf("%.2f", *entry.AverageScore)
				}
				fmt.Printf("  #%d. %s (avg score: %s, votes: %d)\n",
					entry.Rank, entry.Backend, score, entry.VoteCount)
			}
			fmt.Println()
		}

		fmt.Println(result.Stage3.Response)
		if result.Stage3.Failed {
			return fmt.Errorf("synthesis unavailable")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&modelsOverride, "models", nil, "Comma-separated council backend identifiers")
	runCmd.Flags().StringVar(&chairmanFlag, "chairman", "", "Chairman backend for synthesis")
	runCmd.Flags().StringVar(&modeFlag, "mode", "", "Synthesis mode: consensus or debate")
	runCmd.Flags().StringVarP(&promptFile, "prompt-file", "p", "", "Path to a markdown/text file containing the prompt")
	runCmd.Flags().StringVarP(&outputOverride, "output-dir", "o", "", "Output directory for transcript and aggregate CSV")
	runCmd.Flags().IntVar(&maxReviewers, "max-reviewers", 0, "Reviewer sampling cap (0 = all council members review)")
	runCmd.Flags().BoolVar(&noTranscript, "no-transcript", false, "Skip transcript and aggregate sinks")
	runCmd.Flags().BoolVar(&showDetails, "details", false, "Print the aggregate table before the synthesis")
}
