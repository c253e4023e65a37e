/*
PURPOSE:
  HTTP client for the model router (OpenRouter-style chat completions).
  Resolving a backend identifier to an endpoint/credential is entirely
  the router's concern; this client posts {model, messages} and reads
  back content plus usage metadata.

REQUIREMENTS:
  User-specified:
  - Per-call timeout; a hung backend must not stall the stage.
  - Failure is an in-band outcome on the response, never a panic.

  Implementation-discovered:
  - Needs http.Client with timeouts.
  - Distinguish header timeout (router queuing/model cold start) from
    plain network failure for the logs.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine fanout/ranking/synthesis
  - Uses: internal/config, internal/model, internal/output

ERROR HANDLING:
  - Retries live inside Query, like the original inference functions;
    callers see only the final outcome.

IMPLEMENTATION RULES:
  - Use net/http.
  - Enforce timeouts via context, not client-global deadlines alone.

USAGE:
  c := engine.NewClient(cfg)
  resp := c.Query(ctx, "openai/gpt-5.1", messages)

RELATED FILES:
  - internal/config/config.go
  - internal/model/types.go

MAINTENANCE:
  - Update the wire structs if the router response schema changes.
*/

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/daryltucker/council-runner/internal/config"
	"github.com/daryltucker/council-runner/internal/model"
	"github.com/daryltucker/council-runner/internal/output"
)

// Querier is the model-backend collaborator. Failure is reported on
// the returned response's Err field; a stage decides what exclusion
// means.
type Querier interface {
	Query(ctx context.Context, backend string, messages []model.Message) model.ModelResponse
}

// Client talks to the configured router endpoint.
type Client struct {
	Config config.Config
	HTTP   *http.Client
}

// NewClient creates a Client.
func NewClient(cfg config.Config) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Header timeout covers router queuing before the first byte.
	transport.ResponseHeaderTimeout = cfg.RequestTimeout

	return &Client{
		Config: cfg,
		HTTP: &http.Client{
			Transport: transport,
		},
	}
}

type routerRequest struct {
	Model    string          `json:"model"`
	Messages []model.Message `json:"messages"`
}

type routerResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int     `json:"prompt_tokens"`
		CompletionTokens int     `json:"completion_tokens"`
		Cost             float64 `json:"cost"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Query issues one chat-completions request with retries. The
// per-call deadline is Config.RequestTimeout; on expiry the request is
// cancelled and the backend reports a timeout outcome.
func (c *Client) Query(ctx context.Context, backend string, messages []model.Message) model.ModelResponse {
	reqBody, err := json.Marshal(routerRequest{Model: backend, Messages: messages})
	if err != nil {
		return model.ModelResponse{Backend: backend, Err: err.Error()}
	}

	var lastErr error
	for i := 0; i < c.Config.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return model.ModelResponse{Backend: backend, Err: ctx.Err().Error()}
			case <-time.After(c.Config.RetryDelay):
			}
			output.Logger.Info("retrying backend query", "backend", backend, "attempt", i+1)
		}

		resp, err := c.doRequest(ctx, backend, reqBody)
		if err == nil {
			return resp
		}
		lastErr = err
	}

	return model.ModelResponse{Backend: backend, Err: lastErr.Error()}
}

func (c *Client) doRequest(ctx context.Context, backend string, reqBody []byte) (model.ModelResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.Config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.Config.APIURL, bytes.NewReader(reqBody))
	if err != nil {
		return model.ModelResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.Config.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		// Classify specific network errors for the logs.
		if strings.Contains(err.Error(), "awaiting headers") {
			return model.ModelResponse{}, fmt.Errorf("router header timeout (backend loading?): %w", err)
		}
		if callCtx.Err() == context.DeadlineExceeded {
			return model.ModelResponse{}, fmt.Errorf("timeout querying %s: %w", backend, err)
		}
		return model.ModelResponse{}, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return model.ModelResponse{}, fmt.Errorf("router error (%s): %s", resp.Status, string(body))
	}

	var data routerResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return model.ModelResponse{}, fmt.Errorf("router returned invalid JSON: %w", err)
	}
	if data.Error != nil {
		return model.ModelResponse{}, fmt.Errorf("router API error: %s", data.Error.Message)
	}
	if len(data.Choices) == 0 {
		return model.ModelResponse{}, fmt.Errorf("router returned no choices for %s", backend)
	}

	return model.ModelResponse{
		Backend: backend,
		Content: data.Choices[0].Message.Content,
		Usage: model.Usage{
			PromptTokens:     data.Usage.PromptTokens,
			CompletionTokens: data.Usage.CompletionTokens,
			TotalCost:        data.Usage.Cost,
		},
	}, nil
}
