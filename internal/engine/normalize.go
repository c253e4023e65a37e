/*
PURPOSE:
  Optional Stage 1.5: rewrite each candidate in a neutral style before
  peer review, so reviewers cannot fingerprint authors by tone or
  formatting quirks.

REQUIREMENTS:
  User-specified:
  - Content must survive exactly; only style changes.
  - Normalization failure for one candidate falls back to its original
    text, never drops the candidate.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go when Config.StyleNormalization
  - Uses: Querier, internal/prompts
*/

package engine

import (
	"context"

	"github.com/daryltucker/council-runner/internal/model"
	"github.com/daryltucker/council-runner/internal/output"
	"github.com/daryltucker/council-runner/internal/prompts"
)

// NormalizeStyles rewrites each candidate via the normalizer backend.
// OriginalResponse always carries the pre-normalization text.
func (e *Engine) NormalizeStyles(ctx context.Context, candidates []model.Candidate) []model.Candidate {
	normalized := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		messages := []model.Message{{Role: "user", Content: prompts.Normalize(c.Response)}}
		resp := e.Client.Query(ctx, e.Config.NormalizerModel, messages)

		text := c.Response
		if resp.Err == "" && resp.Content != "" {
			text = resp.Content
		} else if resp.Err != "" {
			output.Logger.Warn("style normalization failed, using original",
				"backend", c.Backend, "error", resp.Err)
		}

		normalized = append(normalized, model.Candidate{
			Backend:          c.Backend,
			Response:         text,
			OriginalResponse: c.Response,
		})
	}
	return normalized
}
