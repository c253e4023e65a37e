/*
PURPOSE:
  Stage 1 fan-out: issue the same message list to every council
  backend concurrently and keep whichever succeed.

REQUIREMENTS:
  User-specified:
  - Partial failure is the normal case; a stage fails only when the
    entire backend set is excluded.

  Implementation-discovered:
  - Each task writes to its own result slot, so the fan-out needs no
    locks; errgroup only joins.
  - One backend's failure must never cancel its siblings, so member
    tasks always return nil.

ARCHITECTURE INTEGRATION:
  - Called by: runner.go, ranking.go, synthesize.go
  - Uses: Querier

RELATED FILES:
  - internal/engine/client.go
*/

package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/daryltucker/council-runner/internal/model"
	"github.com/daryltucker/council-runner/internal/output"
)

// CollectResponses queries all backends in parallel and returns the
// successful responses in the backends' configured order, plus the
// identifiers that failed. Zero successes is the caller's signal for
// total stage failure.
func (e *Engine) CollectResponses(ctx context.Context, backends []string, messages []model.Message) ([]model.ModelResponse, []string) {
	slots := make([]model.ModelResponse, len(backends))

	var group errgroup.Group
	for i, backend := range backends {
		i, backend := i, backend
		group.Go(func() error {
			slots[i] = e.Client.Query(ctx, backend, messages)
			return nil
		})
	}
	_ = group.Wait()

	var ok []model.ModelResponse
	var failed []string
	for _, resp := range slots {
		if resp.Err != "" {
			output.Logger.Warn("backend excluded from stage", "backend", resp.Backend, "error", resp.Err)
			failed = append(failed, resp.Backend)
			continue
		}
		ok = append(ok, resp)
	}
	return ok, failed
}
