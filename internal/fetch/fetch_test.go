package fetch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	full := append([]string{"-c", "user.name=test", "-c", "user.email=test@test"}, args...)
	cmd := exec.Command("git", full...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

// newRepo creates a git repo with one initial commit containing the
// given files and returns the repo dir and the commit id.
func newRepo(t *testing.T, files map[string]string) (string, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	for path, content := range files {
		full := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "initial")
	return dir, runGit(t, dir, "rev-parse", "HEAD")
}

func TestValidatePath(t *testing.T) {
	cases := []struct {
		path string
		ok   bool
	}{
		{"internal/engine/runner.go", true},
		{"README.md", true},
		{"a/b/c.txt", true},
		{"/etc/passwd", false},
		{`\windows\path`, false},
		{"../outside", false},
		{"a/../../b", false},
		{"nul\x00byte", false},
	}
	for _, tc := range cases {
		if got := validatePath(tc.path); got != tc.ok {
			t.Errorf("validatePath(%q) = %t, want %t", tc.path, got, tc.ok)
		}
	}
}

func TestFetchFileReturnsExactContent(t *testing.T) {
	dir, sha := newRepo(t, map[string]string{"hello.txt": "hello\nworld\n"})
	src := NewGitSource(dir)

	item := src.FetchFile(context.Background(), sha, "hello.txt")
	if item.Err != "" {
		t.Fatalf("unexpected error: %s", item.Err)
	}
	if item.Content != "hello\nworld\n" {
		t.Fatalf("content = %q", item.Content)
	}
	if item.Truncated {
		t.Fatal("small file marked truncated")
	}
}

func TestFetchFileTruncatesAtCap(t *testing.T) {
	big := strings.Repeat("a", MaxFileBytes+5000)
	dir, sha := newRepo(t, map[string]string{"big.txt": big})
	src := NewGitSource(dir)

	item := src.FetchFile(context.Background(), sha, "big.txt")
	if item.Err != "" {
		t.Fatalf("unexpected error: %s", item.Err)
	}
	if !item.Truncated {
		t.Fatal("oversized file not marked truncated")
	}
	marker := fmt.Sprintf("\n\n... [truncated, original file larger than %d chars]", MaxFileBytes)
	if !strings.HasSuffix(item.Content, marker) {
		t.Fatalf("content missing truncation marker, ends %q", item.Content[len(item.Content)-80:])
	}
	if got := len(item.Content) - len(marker); got != MaxFileBytes {
		t.Fatalf("kept %d content bytes, want exactly %d", got, MaxFileBytes)
	}
}

func TestFetchFileExactlyCapSizedIsNotTruncated(t *testing.T) {
	exact := strings.Repeat("b", MaxFileBytes)
	dir, sha := newRepo(t, map[string]string{"exact.txt": exact})
	src := NewGitSource(dir)

	item := src.FetchFile(context.Background(), sha, "exact.txt")
	if item.Err != "" {
		t.Fatalf("unexpected error: %s", item.Err)
	}
	if item.Truncated {
		t.Fatal("cap-sized file must not be truncated")
	}
	if item.Content != exact {
		t.Fatalf("content length = %d, want %d", len(item.Content), MaxFileBytes)
	}
}

func TestFetchFileInvalidPath(t *testing.T) {
	dir, sha := newRepo(t, map[string]string{"f.txt": "x"})
	src := NewGitSource(dir)

	item := src.FetchFile(context.Background(), sha, "../escape.txt")
	if item.Err != "invalid path" {
		t.Fatalf("err = %q, want invalid path", item.Err)
	}
	if item.Content != "[Error: Invalid file path: ../escape.txt]" {
		t.Fatalf("content = %q", item.Content)
	}
}

func TestFetchFileNotFound(t *testing.T) {
	dir, sha := newRepo(t, map[string]string{"f.txt": "x"})
	src := NewGitSource(dir)

	item := src.FetchFile(context.Background(), sha, "missing.go")
	if item.Err != "not found" {
		t.Fatalf("err = %q, want not found", item.Err)
	}
	want := fmt.Sprintf("[Error: Could not read missing.go at %s]", sha)
	if item.Content != want {
		t.Fatalf("content = %q, want %q", item.Content, want)
	}
}

func TestChangedFiles(t *testing.T) {
	dir, _ := newRepo(t, map[string]string{"a.txt": "a"})
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "add b")
	sha := runGit(t, dir, "rev-parse", "HEAD")

	src := NewGitSource(dir)
	files, err := src.ChangedFiles(context.Background(), sha)
	if err != nil {
		t.Fatalf("ChangedFiles: %v", err)
	}
	if len(files) != 1 || files[0] != "b.txt" {
		t.Fatalf("files = %v, want [b.txt]", files)
	}
}

func TestFetchForReviewRendersSections(t *testing.T) {
	dir, sha := newRepo(t, map[string]string{
		"one.txt": "first file",
		"two.txt": "second file",
	})
	src := NewGitSource(dir)

	block := src.FetchForReview(context.Background(), sha, []string{"one.txt", "two.txt"})
	if !strings.Contains(block, "### one.txt\n```\nfirst file\n```") {
		t.Fatalf("missing section for one.txt:\n%s", block)
	}
	if !strings.Contains(block, "### two.txt\n```\nsecond file\n```") {
		t.Fatalf("missing section for two.txt:\n%s", block)
	}
}

func TestFetchForReviewKeepsBadPathsInline(t *testing.T) {
	dir, sha := newRepo(t, map[string]string{"ok.txt": "fine"})
	src := NewGitSource(dir)

	block := src.FetchForReview(context.Background(), sha,
		[]string{"ok.txt", "../bad", "gone.txt"})

	if !strings.Contains(block, "fine") {
		t.Fatal("good file missing from block")
	}
	if !strings.Contains(block, "[Error: Invalid file path: ../bad]") {
		t.Fatal("invalid path marker missing")
	}
	if !strings.Contains(block, "[Error: Could not read gone.txt at "+sha+"]") {
		t.Fatal("not-found marker missing")
	}
}

func TestFetchForReviewTotalByteCap(t *testing.T) {
	// Five files just under the per-file cap blow past the batch cap
	// partway through; the tail must be replaced by the omission marker.
	files := make(map[string]string)
	var paths []string
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("f%d.txt", i)
		files[name] = strings.Repeat("x", 14000)
		paths = append(paths, name)
	}
	dir, sha := newRepo(t, files)
	src := NewGitSource(dir)

	block := src.FetchForReview(context.Background(), sha, paths)
	marker := fmt.Sprintf("... [remaining files omitted, %d char limit reached]", MaxTotalBytes)
	if !strings.Contains(block, marker) {
		t.Fatal("omission marker missing")
	}
	if strings.Contains(block, "### f4.txt") {
		t.Fatal("file past the byte cap was included")
	}
	if !strings.Contains(block, "### f0.txt") {
		t.Fatal("first file missing")
	}
}

func TestFetchForReviewFallsBackToChangedFiles(t *testing.T) {
	dir, _ := newRepo(t, map[string]string{"a.txt": "a"})
	if err := os.WriteFile(filepath.Join(dir, "changed.txt"), []byte("delta"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "change")
	sha := runGit(t, dir, "rev-parse", "HEAD")

	src := NewGitSource(dir)
	block := src.FetchForReview(context.Background(), sha, nil)
	if !strings.Contains(block, "### changed.txt\n```\ndelta\n```") {
		t.Fatalf("changed file not fetched:\n%s", block)
	}
}

func TestFetchForReviewNoFilesAtAll(t *testing.T) {
	// A root commit has no parent, so diff-tree reports nothing changed.
	dir, sha := newRepo(t, map[string]string{"a.txt": "a"})
	src := NewGitSource(dir)

	block := src.FetchForReview(context.Background(), sha, nil)
	if block != "[No files specified and could not determine changed files]" {
		t.Fatalf("block = %q", block)
	}
}
