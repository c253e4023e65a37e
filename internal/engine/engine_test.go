package engine

import (
	"context"
	"math/rand"
	"sync"

	"github.com/daryltucker/council-runner/internal/config"
	"github.com/daryltucker/council-runner/internal/model"
)

// stubQuerier answers queries via a caller-supplied function and
// records every call. Query runs concurrently during fan-out, so the
// call log takes the lock.
type stubQuerier struct {
	mu      sync.Mutex
	calls   []stubCall
	respond func(backend string, messages []model.Message) model.ModelResponse
}

type stubCall struct {
	Backend string
	Prompt  string
}

func (s *stubQuerier) Query(ctx context.Context, backend string, messages []model.Message) model.ModelResponse {
	prompt := ""
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}
	s.mu.Lock()
	s.calls = append(s.calls, stubCall{Backend: backend, Prompt: prompt})
	s.mu.Unlock()

	if s.respond == nil {
		return model.ModelResponse{Backend: backend, Content: "ok"}
	}
	return s.respond(backend, messages)
}

func (s *stubQuerier) callLog() []stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stubCall(nil), s.calls...)
}

// echoResponse is a success with fixed content.
func echoResponse(backend, content string) model.ModelResponse {
	return model.ModelResponse{Backend: backend, Content: content}
}

// failedResponse is a backend-level failure.
func failedResponse(backend, errText string) model.ModelResponse {
	return model.ModelResponse{Backend: backend, Err: errText}
}

func testConfig(council []string) config.Config {
	cfg := config.DefaultConfig()
	cfg.CouncilModels = council
	if len(council) > 0 {
		cfg.ChairmanModel = council[0]
	}
	return cfg
}

// newTestEngine builds an engine with a deterministic shuffle source.
func newTestEngine(cfg config.Config, q Querier) *Engine {
	return &Engine{
		Config: cfg,
		Client: q,
		Rand:   rand.New(rand.NewSource(1)),
	}
}
