/*
PURPOSE:
  Bounded content fetch from a git snapshot. Feeds versioned file
  content into the verification prompt without letting any single
  file, batch, or hung subprocess exhaust the process.

REQUIREMENTS:
  User-specified:
  - Per-file and per-batch byte caps are hard limits.
  - One bad path, missing file, or timeout never aborts the batch.

  Implementation-discovered:
  - Streaming reads: `git show` on a large blob must be killed at the
    cap, not buffered and trimmed.
  - A global semaphore across all git subprocesses; per-round limits
    are not enough when rounds overlap.

ARCHITECTURE INTEGRATION:
  - Called by: internal/verify
  - Dependencies: golang.org/x/sync (semaphore, errgroup)

ERROR HANDLING:
  - Every failure mode degrades to an inline marker string on that one
    item: invalid path, not found, timeout, truncation. The batch as a
    whole always completes.

IMPLEMENTATION RULES:
  - exec.CommandContext with a per-file deadline; the process is
    actively killed on cap or expiry to release its slot.
  - Repo root resolved once, cached under a lock with a double-check.

USAGE:
  src := fetch.NewGitSource("")
  item := src.FetchFile(ctx, sha, "internal/engine/runner.go")
  block := src.FetchForReview(ctx, sha, nil)

RELATED FILES:
  - internal/verify/verify.go

MAINTENANCE:
  - The byte caps are part of the behavioral contract; changing them
    changes every verification prompt.
*/

package fetch

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/daryltucker/council-runner/internal/model"
	"github.com/daryltucker/council-runner/internal/output"
)

const (
	// MaxFileBytes caps the content of a single fetched file.
	MaxFileBytes = 15000
	// MaxTotalBytes caps the combined content of one review batch.
	MaxTotalBytes = 50000
	// BatchSize is how many files are fetched concurrently per group.
	BatchSize = 5
	// MaxConcurrentGitOps bounds git subprocesses across the process.
	MaxConcurrentGitOps = 10
	// SubprocessTimeout is the per-file deadline.
	SubprocessTimeout = 10 * time.Second

	rootResolveTimeout = 5 * time.Second
	readChunkSize      = 8192
)

// Source retrieves versioned content items from a snapshot.
type Source interface {
	FetchFile(ctx context.Context, snapshot, path string) model.FetchedItem
	ChangedFiles(ctx context.Context, snapshot string) ([]string, error)
	FetchForReview(ctx context.Context, snapshot string, paths []string) string
}

// GitSource fetches file content with `git show` at a pinned commit.
type GitSource struct {
	// WorkDir is where root resolution starts; empty means the
	// process working directory.
	WorkDir string

	sem *semaphore.Weighted

	mu       sync.Mutex
	root     string
	resolved bool
}

// NewGitSource creates a GitSource with the global concurrency ceiling.
func NewGitSource(workDir string) *GitSource {
	return &GitSource{
		WorkDir: workDir,
		sem:     semaphore.NewWeighted(MaxConcurrentGitOps),
	}
}

// validatePath rejects identifiers that could escape the snapshot:
// absolute paths, parent traversal, embedded NUL bytes.
func validatePath(path string) bool {
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\") {
		return false
	}
	if strings.Contains(path, "..") {
		return false
	}
	if strings.ContainsRune(path, 0) {
		return false
	}
	return true
}

// repoRoot resolves and caches the repository root. Safe under
// concurrent first use; the check is repeated after taking the lock.
func (g *GitSource) repoRoot(ctx context.Context) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resolved {
		return g.root
	}

	rctx, cancel := context.WithTimeout(ctx, rootResolveTimeout)
	defer cancel()

	cmd := exec.CommandContext(rctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = g.WorkDir
	out, err := cmd.Output()
	if err == nil {
		g.root = strings.TrimSpace(string(out))
	} else {
		output.Logger.Warn("could not resolve git root, using working directory", "error", err)
		g.root = g.WorkDir
	}
	g.resolved = true
	return g.root
}

// FetchFile retrieves one file at a snapshot. Failures degrade to an
// inline error marker on the returned item; the error field on
// FetchedItem is also set so callers can branch without string checks.
func (g *GitSource) FetchFile(ctx context.Context, snapshot, path string) model.FetchedItem {
	if !validatePath(path) {
		msg := fmt.Sprintf("[Error: Invalid file path: %s]", path)
		return model.FetchedItem{Path: path, Content: msg, Err: "invalid path"}
	}

	root := g.repoRoot(ctx)

	if err := g.sem.Acquire(ctx, 1); err != nil {
		msg := fmt.Sprintf("[Error: Timeout reading %s]", path)
		return model.FetchedItem{Path: path, Content: msg, Err: "timeout"}
	}
	defer g.sem.Release(1)

	fctx, cancel := context.WithTimeout(ctx, SubprocessTimeout)
	defer cancel()

	cmd := exec.CommandContext(fctx, "git", "show", snapshot+":"+path)
	cmd.Dir = root

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		msg := fmt.Sprintf("[Error: Could not read %s at %s]", path, snapshot)
		return model.FetchedItem{Path: path, Content: msg, Err: "not found"}
	}
	if err := cmd.Start(); err != nil {
		msg := fmt.Sprintf("[Error: Could not read %s at %s]", path, snapshot)
		return model.FetchedItem{Path: path, Content: msg, Err: "not found"}
	}

	// Stream in fixed-size chunks; stop the subprocess as soon as the
	// cap is hit instead of draining the rest of the blob.
	var buf []byte
	truncated := false
	chunk := make([]byte, readChunkSize)
	for len(buf) < MaxFileBytes {
		n, rerr := stdout.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if rerr != nil {
			break
		}
	}
	if len(buf) >= MaxFileBytes {
		// Probe one byte to distinguish an exactly-cap-sized file
		// from a larger one before killing the process.
		one := make([]byte, 1)
		if n, _ := stdout.Read(one); n > 0 {
			truncated = true
		}
		if truncated {
			_ = cmd.Process.Kill()
		}
	}

	waitErr := cmd.Wait()

	if fctx.Err() == context.DeadlineExceeded {
		msg := fmt.Sprintf("[Error: Timeout reading %s]", path)
		return model.FetchedItem{Path: path, Content: msg, Err: "timeout"}
	}
	if waitErr != nil && !truncated {
		msg := fmt.Sprintf("[Error: Could not read %s at %s]", path, snapshot)
		return model.FetchedItem{Path: path, Content: msg, Err: "not found"}
	}

	content := string(buf)
	if truncated || len(content) > MaxFileBytes {
		content = content[:MaxFileBytes] +
			fmt.Sprintf("\n\n... [truncated, original file larger than %d chars]", MaxFileBytes)
		truncated = true
	}

	return model.FetchedItem{Path: path, Content: content, Truncated: truncated}
}

// ChangedFiles returns the paths changed by the snapshot relative to
// its parent.
func (g *GitSource) ChangedFiles(ctx context.Context, snapshot string) ([]string, error) {
	root := g.repoRoot(ctx)

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer g.sem.Release(1)

	dctx, cancel := context.WithTimeout(ctx, SubprocessTimeout)
	defer cancel()

	cmd := exec.CommandContext(dctx, "git", "diff-tree", "--no-commit-id", "--name-only", "-r", snapshot)
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff-tree %s: %w", snapshot, err)
	}

	var files []string
	for _, f := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if f != "" {
			files = append(files, f)
		}
	}
	return files, nil
}

// FetchForReview fetches the given paths (or the snapshot's changed
// files when none are given) and renders them as fenced sections for
// the review prompt. Paths are fetched in groups of BatchSize; once
// the aggregate byte budget is exhausted the remaining groups are
// skipped and an omission marker is appended. The batch always
// completes: per-file failures appear inline as markers.
func (g *GitSource) FetchForReview(ctx context.Context, snapshot string, paths []string) string {
	files := append([]string(nil), paths...)

	if len(files) == 0 {
		changed, err := g.ChangedFiles(ctx, snapshot)
		if err != nil {
			output.Logger.Warn("could not determine changed files", "snapshot", snapshot, "error", err)
		}
		files = changed
	}
	if len(files) == 0 {
		return "[No files specified and could not determine changed files]"
	}

	var sections []string
	totalBytes := 0

	for start := 0; start < len(files); start += BatchSize {
		if totalBytes >= MaxTotalBytes {
			sections = append(sections,
				fmt.Sprintf("\n... [remaining files omitted, %d char limit reached]", MaxTotalBytes))
			break
		}

		end := start + BatchSize
		if end > len(files) {
			end = len(files)
		}
		batch := files[start:end]

		items := make([]model.FetchedItem, len(batch))
		var group errgroup.Group
		for i, p := range batch {
			i, p := i, p
			group.Go(func() error {
				items[i] = g.FetchFile(ctx, snapshot, p)
				return nil
			})
		}
		_ = group.Wait()

		for _, item := range items {
			if totalBytes >= MaxTotalBytes {
				sections = append(sections,
					fmt.Sprintf("\n... [remaining files omitted, %d char limit reached]", MaxTotalBytes))
				break
			}
			totalBytes += len(item.Content)
			sections = append(sections, fmt.Sprintf("### %s\n```\n%s\n```", item.Path, item.Content))
		}
	}

	return strings.Join(sections, "\n\n")
}
