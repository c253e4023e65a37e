/*
PURPOSE:
  Turns a round's outputs into a verification verdict: extracts the
  chairman's PASS/FAIL/UNCLEAR call from the synthesis text and scores
  confidence from how much the reviewers agreed with each other.

REQUIREMENTS:
  User-specified:
  - Verdicts: pass (exit 0), fail (exit 1), unclear (exit 2).
  - A pass below the confidence threshold degrades to unclear.

  Implementation-discovered:
  - The chairman is instructed to put the verdict at the end, so the
    last verdict token in the text wins when several appear.

ARCHITECTURE INTEGRATION:
  - Called by: internal/verify/verify.go

RELATED FILES:
  - internal/prompts/prompts.go (the verify template that demands the
    APPROVED/REJECTED/NEEDS REVIEW markers)
*/

package verify

import (
	"strings"

	"github.com/daryltucker/council-runner/internal/model"
)

// Verdict values.
const (
	VerdictPass    = "pass"
	VerdictFail    = "fail"
	VerdictUnclear = "unclear"
)

// ExitCode maps a verdict to the process exit code contract:
// 0 pass, 1 fail, 2 unclear.
func ExitCode(verdict string) int {
	switch verdict {
	case VerdictPass:
		return 0
	case VerdictFail:
		return 1
	default:
		return 2
	}
}

// ExtractVerdict scans the synthesis text for the verdict markers the
// review prompt demands. The marker appearing last wins; no marker
// means unclear.
func ExtractVerdict(synthesis string) string {
	upper := strings.ToUpper(synthesis)

	verdict := VerdictUnclear
	best := -1
	for marker, v := range map[string]string{
		"APPROVED":     VerdictPass,
		"REJECTED":     VerdictFail,
		"NEEDS REVIEW": VerdictUnclear,
	} {
		if idx := strings.LastIndex(upper, marker); idx > best {
			best = idx
			verdict = v
		}
	}
	return verdict
}

// ConfidenceFromAgreement measures reviewer consensus as the mean
// pairwise concordance of their rankings: for every pair of reviewers
// and every pair of labels both ranked, did they order the labels the
// same way. Fewer than two usable rankings yields a neutral 0.5.
func ConfidenceFromAgreement(submissions []model.RankingSubmission) float64 {
	var rankings []map[string]int
	for _, sub := range submissions {
		if len(sub.Parsed.Ranking) == 0 {
			continue
		}
		pos := make(map[string]int, len(sub.Parsed.Ranking))
		for i, label := range sub.Parsed.Ranking {
			pos[label] = i
		}
		rankings = append(rankings, pos)
	}
	if len(rankings) < 2 {
		return 0.5
	}

	concordant, total := 0, 0
	for a := 0; a < len(rankings); a++ {
		for b := a + 1; b < len(rankings); b++ {
			var shared []string
			for label := range rankings[a] {
				if _, ok := rankings[b][label]; ok {
					shared = append(shared, label)
				}
			}
			for i := 0; i < len(shared); i++ {
				for j := i + 1; j < len(shared); j++ {
					x, y := shared[i], shared[j]
					sameOrder := (rankings[a][x] < rankings[a][y]) == (rankings[b][x] < rankings[b][y])
					if sameOrder {
						concordant++
					}
					total++
				}
			}
		}
	}
	if total == 0 {
		return 0.5
	}
	return float64(concordant) / float64(total)
}
