/*
PURPOSE:
  Structured work verification: deliberate over file content pinned to
  a git snapshot and produce a pass/fail/unclear verdict with a
  confidence score and CI-friendly exit code.

REQUIREMENTS:
  User-specified:
  - Snapshot identifiers are git SHAs, 7-40 hex characters.
  - Synthesis failure yields unclear (exit 2), never a crash.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli/verify.go
  - Uses: internal/fetch (content source), internal/engine (round),
    internal/prompts (review prompt)

ERROR HANDLING:
  - Run returns an error only for an invalid request or a round with
    zero usable backends; degraded rounds produce unclear verdicts.

USAGE:
  v := verify.New(eng, fetch.NewGitSource(""))
  res, err := v.Run(ctx, verify.Request{SnapshotID: sha})

RELATED FILES:
  - internal/fetch/fetch.go
  - internal/engine/runner.go
*/

package verify

import (
	"context"
	"fmt"
	"regexp"

	"github.com/daryltucker/council-runner/internal/engine"
	"github.com/daryltucker/council-runner/internal/fetch"
	"github.com/daryltucker/council-runner/internal/model"
	"github.com/daryltucker/council-runner/internal/output"
	"github.com/daryltucker/council-runner/internal/prompts"
)

var snapshotIDRe = regexp.MustCompile(`^[0-9a-fA-F]{7,40}$`)

// ValidateSnapshotID checks the git SHA shape of a snapshot identifier.
func ValidateSnapshotID(id string) error {
	if !snapshotIDRe.MatchString(id) {
		return fmt.Errorf("snapshot_id must be a valid git SHA (7-40 hexadecimal characters), got %q", id)
	}
	return nil
}

// Request describes one verification.
type Request struct {
	SnapshotID  string
	TargetPaths []string
	RubricFocus string
	// ConfidenceThreshold overrides the configured threshold when > 0.
	ConfidenceThreshold float64
}

// Result is the terminal verification artifact.
type Result struct {
	VerificationID string             `json:"verification_id"`
	Verdict        string             `json:"verdict"`
	Confidence     float64            `json:"confidence"`
	ExitCode       int                `json:"exit_code"`
	Rationale      string             `json:"rationale"`
	Partial        bool               `json:"partial"`
	Round          *model.RoundResult `json:"round,omitempty"`
}

// Verifier runs verification rounds.
type Verifier struct {
	Engine *engine.Engine
	Source fetch.Source
}

// New creates a Verifier.
func New(eng *engine.Engine, source fetch.Source) *Verifier {
	return &Verifier{Engine: eng, Source: source}
}

// Run fetches the snapshot content, deliberates over it, and extracts
// the verdict.
func (v *Verifier) Run(ctx context.Context, req Request) (*Result, error) {
	if err := ValidateSnapshotID(req.SnapshotID); err != nil {
		return nil, err
	}

	threshold := req.ConfidenceThreshold
	if threshold <= 0 {
		threshold = v.Engine.Config.ConfidenceThreshold
	}

	fileContents := v.Source.FetchForReview(ctx, req.SnapshotID, req.TargetPaths)
	prompt := prompts.Verify(req.SnapshotID, req.RubricFocus, fileContents)

	round, err := v.Engine.RunRound(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result := &Result{
		VerificationID: round.RoundID,
		Round:          round,
	}

	if round.AllFailed() {
		return nil, fmt.Errorf("verification %s: all backends failed to respond", round.RoundID)
	}

	result.Confidence = ConfidenceFromAgreement(round.Stage2)
	result.Rationale = round.Stage3.Response

	if round.Stage3.Failed {
		// Synthesis unavailable is a normal, reportable outcome.
		result.Verdict = VerdictUnclear
		result.Partial = true
	} else {
		result.Verdict = ExtractVerdict(round.Stage3.Response)
		if result.Verdict == VerdictPass && result.Confidence < threshold {
			output.Logger.Warn("pass verdict below confidence threshold, downgrading to unclear",
				"verification", result.VerificationID,
				"confidence", result.Confidence, "threshold", threshold)
			result.Verdict = VerdictUnclear
		}
	}
	result.ExitCode = ExitCode(result.Verdict)

	output.Logger.Info("verification complete",
		"verification", result.VerificationID,
		"verdict", result.Verdict,
		"confidence", fmt.Sprintf("%.2f", result.Confidence),
		"exit_code", result.ExitCode)

	return result, nil
}
