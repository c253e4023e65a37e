package engine

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/daryltucker/council-runner/internal/model"
)

// memTranscript collects stage appends in order.
type memTranscript struct {
	mu     sync.Mutex
	stages []string
}

func (m *memTranscript) WriteStage(roundID, stage string, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
	return nil
}

type memAggregates struct {
	mu      sync.Mutex
	rounds  []string
	entries [][]model.AggregateEntry
}

func (m *memAggregates) WriteAggregate(roundID string, entries []model.AggregateEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds = append(m.rounds, roundID)
	m.entries = append(m.entries, entries)
	return nil
}

// pipelineResponder routes queries by prompt shape so one stub can
// serve all three stages.
func pipelineResponder(backend string, messages []model.Message) model.ModelResponse {
	prompt := messages[len(messages)-1].Content
	switch {
	case strings.Contains(prompt, "responses_to_evaluate"):
		return echoResponse(backend, "critique...\n```json\n"+
			`{"ranking": ["Response A", "Response B", "Response C"], "scores": {"Response A": 9, "Response B": 7, "Response C": 5}}`+
			"\n```")
	case strings.Contains(prompt, "Chairman of an LLM Council"):
		return echoResponse(backend, "synthesized final answer")
	default:
		return echoResponse(backend, "stage1 answer from "+backend)
	}
}

func TestRunRoundFullPipeline(t *testing.T) {
	stub := &stubQuerier{respond: pipelineResponder}
	cfg := testConfig([]string{"m1", "m2", "m3"})
	cfg.ChairmanModel = "m1"
	cfg.ExcludeSelfVotes = true
	eng := newTestEngine(cfg, stub)
	transcript := &memTranscript{}
	aggregates := &memAggregates{}
	eng.Transcript = transcript
	eng.Aggregates = aggregates

	result, err := eng.RunRound(context.Background(), "what is the answer?")
	if err != nil {
		t.Fatalf("RunRound: %v", err)
	}
	if len(result.RoundID) != 8 {
		t.Fatalf("round id %q, want 8 chars", result.RoundID)
	}

	if len(result.Stage1) != 3 {
		t.Fatalf("stage1 has %d candidates, want 3", len(result.Stage1))
	}
	if len(result.Stage2) != 3 {
		t.Fatalf("stage2 has %d submissions, want 3", len(result.Stage2))
	}
	if len(result.LabelToBackend) != 3 {
		t.Fatalf("label table has %d entries, want 3", len(result.LabelToBackend))
	}

	// Every backend authored one candidate and every reviewer ranked
	// all three labels, so with self-votes excluded each backend keeps
	// exactly two observations.
	if len(result.Aggregate) != 3 {
		t.Fatalf("aggregate has %d entries, want 3", len(result.Aggregate))
	}
	for _, entry := range result.Aggregate {
		if entry.VoteCount != 2 {
			t.Fatalf("%s vote count = %d, want 2", entry.Backend, entry.VoteCount)
		}
	}

	if result.Stage3.Failed {
		t.Fatal("synthesis marked failed")
	}
	if result.Stage3.Response != "synthesized final answer" {
		t.Fatalf("stage3 response = %q", result.Stage3.Response)
	}
	if result.Stage3.Backend != "m1" {
		t.Fatalf("stage3 backend = %s, want chairman m1", result.Stage3.Backend)
	}

	wantStages := []string{"stage1", "stage2", "stage3"}
	if len(transcript.stages) != len(wantStages) {
		t.Fatalf("transcript stages = %v", transcript.stages)
	}
	for i, want := range wantStages {
		if transcript.stages[i] != want {
			t.Fatalf("transcript stage[%d] = %s, want %s", i, transcript.stages[i], want)
		}
	}
	if len(aggregates.rounds) != 1 || aggregates.rounds[0] != result.RoundID {
		t.Fatalf("aggregate sink rounds = %v", aggregates.rounds)
	}
}

func TestRunRoundAllFailedShortCircuits(t *testing.T) {
	stub := &stubQuerier{
		respond: func(backend string, _ []model.Message) model.ModelResponse {
			return failedResponse(backend, "unreachable")
		},
	}
	eng := newTestEngine(testConfig([]string{"m1", "m2"}), stub)
	transcript := &memTranscript{}
	eng.Transcript = transcript

	result, err := eng.RunRound(context.Background(), "q")
	if err != nil {
		t.Fatalf("RunRound: %v", err)
	}
	if !result.AllFailed() {
		t.Fatal("AllFailed() = false")
	}
	if !result.Stage3.Failed {
		t.Fatal("stage3 not marked failed")
	}
	if result.Stage3.Response != "All models failed to respond. Please try again." {
		t.Fatalf("stage3 response = %q", result.Stage3.Response)
	}
	if len(result.FailedBackends) != 2 {
		t.Fatalf("failed backends = %v", result.FailedBackends)
	}

	// Stage 2 and 3 must not run: only the two stage-1 queries and the
	// single stage-1 transcript record.
	if got := len(stub.callLog()); got != 2 {
		t.Fatalf("backend called %d times, want 2", got)
	}
	if len(transcript.stages) != 1 || transcript.stages[0] != "stage1" {
		t.Fatalf("transcript stages = %v", transcript.stages)
	}
}

func TestRunRoundRejectsEmptyPrompt(t *testing.T) {
	eng := newTestEngine(testConfig([]string{"m1"}), &stubQuerier{})
	if _, err := eng.RunRound(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank prompt")
	}
}

func TestRunRoundNormalizationStage(t *testing.T) {
	stub := &stubQuerier{
		respond: func(backend string, messages []model.Message) model.ModelResponse {
			prompt := messages[len(messages)-1].Content
			if strings.Contains(prompt, "Rewritten text:") {
				return echoResponse(backend, "normalized copy")
			}
			return pipelineResponder(backend, messages)
		},
	}
	cfg := testConfig([]string{"m1", "m2", "m3"})
	cfg.StyleNormalization = true
	cfg.NormalizerModel = "norm"
	eng := newTestEngine(cfg, stub)
	transcript := &memTranscript{}
	eng.Transcript = transcript

	result, err := eng.RunRound(context.Background(), "q")
	if err != nil {
		t.Fatalf("RunRound: %v", err)
	}

	wantStages := []string{"stage1", "stage1.5", "stage2", "stage3"}
	if len(transcript.stages) != len(wantStages) {
		t.Fatalf("transcript stages = %v", transcript.stages)
	}
	for i, want := range wantStages {
		if transcript.stages[i] != want {
			t.Fatalf("transcript stage[%d] = %s, want %s", i, transcript.stages[i], want)
		}
	}

	// Synthesis context must be the originals, not the rewrites.
	for _, c := range result.Stage1 {
		if c.Response == "normalized copy" {
			t.Fatal("stage1 candidates replaced by normalized text")
		}
	}
}

func TestRunRoundTranscriptFailureIsNonFatal(t *testing.T) {
	stub := &stubQuerier{respond: pipelineResponder}
	eng := newTestEngine(testConfig([]string{"m1", "m2", "m3"}), stub)
	eng.Transcript = failingTranscript{}

	result, err := eng.RunRound(context.Background(), "q")
	if err != nil {
		t.Fatalf("RunRound: %v", err)
	}
	if result.Stage3.Failed {
		t.Fatal("sink failure must not fail the round")
	}
}

type failingTranscript struct{}

func (failingTranscript) WriteStage(roundID, stage string, data interface{}) error {
	return errSink
}

var errSink = &sinkError{}

type sinkError struct{}

func (*sinkError) Error() string { return "disk full" }

func TestGenerateTitle(t *testing.T) {
	cases := []struct {
		name    string
		content string
		errText string
		want    string
	}{
		{"plain", "Capital Gains Basics", "", "Capital Gains Basics"},
		{"quoted", `"Tax Law Overview"`, "", "Tax Law Overview"},
		{"failure", "", "backend down", "New Conversation"},
		{"blank", "   ", "", "New Conversation"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubQuerier{
				respond: func(backend string, _ []model.Message) model.ModelResponse {
					if tc.errText != "" {
						return failedResponse(backend, tc.errText)
					}
					return echoResponse(backend, tc.content)
				},
			}
			eng := newTestEngine(testConfig([]string{"m1"}), stub)
			if got := eng.GenerateTitle(context.Background(), "q"); got != tc.want {
				t.Fatalf("title = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestGenerateTitleTruncatesLongTitles(t *testing.T) {
	long := strings.Repeat("x", 60)
	stub := &stubQuerier{
		respond: func(backend string, _ []model.Message) model.ModelResponse {
			return echoResponse(backend, long)
		},
	}
	eng := newTestEngine(testConfig([]string{"m1"}), stub)

	got := eng.GenerateTitle(context.Background(), "q")
	if len(got) != 50 {
		t.Fatalf("title length = %d, want 50", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("title %q missing ellipsis", got)
	}
}
