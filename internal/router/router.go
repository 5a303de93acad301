// Package router implements the CCG provider router.
//
// A request makes one bounded attempt against the primary provider and, on
// any failure (network error, non-2xx status, empty content, timeout), one
// bounded attempt against the local fallback provider. Attempts are strictly
// sequential — never concurrent — so a request is billed at most once per
// provider and fallback semantics stay simple. When both attempts fail the
// caller receives an ExhaustedError carrying both causes.
package router

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amirhosseinyavari021/CCG-sub001/internal/config"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/metrics"
	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
	"github.com/rs/zerolog/log"
)

// ErrEmptyCompletion marks a 2xx response whose content was empty; it is
// treated like any other attempt failure.
var ErrEmptyCompletion = errors.New("provider returned empty completion content")

// ExhaustedError is the terminal failure of the router state machine: both
// the primary and the fallback attempt failed. It keeps both causes so the
// boundary can report which leg broke.
type ExhaustedError struct {
	PrimaryErr  error
	FallbackErr error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all providers exhausted: primary: %v; fallback: %v", e.PrimaryErr, e.FallbackErr)
}

// Result is the outcome of a successful route: the raw model text plus the
// identity of the attempt that produced it.
type Result struct {
	Content  string
	Provider string
	Model    string
	Elapsed  time.Duration
}

// Router holds the immutable two-provider configuration. It carries no
// per-request state; a single Router is shared by all concurrent requests.
type Router struct {
	primary     config.ProviderConfig
	fallback    config.ProviderConfig
	client      *http.Client
	timeout     time.Duration
	temperature float64
	metrics     *metrics.Metrics
}

// New creates a Router from process configuration. metrics may be nil.
func New(cfg *config.Config, m *metrics.Metrics) *Router {
	return &Router{
		primary:     cfg.Primary,
		fallback:    cfg.Fallback,
		// Attempts are bounded per-call via context; no client-wide timeout
		// so streaming reads are not cut off by a global deadline.
		client:      &http.Client{},
		timeout:     cfg.AttemptTimeout,
		temperature: cfg.Temperature,
		metrics:     m,
	}
}

// Route sends the transformed messages through the primary provider and
// falls back to the local provider on failure. Non-streaming.
func (r *Router) Route(ctx context.Context, messages []models.ChatMessage) (*Result, error) {
	return r.route(ctx, messages, false, nil)
}

// RouteStream is the incremental-delivery variant: the response is consumed
// as server-sent-event frames and onChunk is invoked for each text delta.
// Text accumulated before a stream error is discarded; the fallback attempt
// always starts from zero.
func (r *Router) RouteStream(ctx context.Context, messages []models.ChatMessage, onChunk func(string)) (*Result, error) {
	return r.route(ctx, messages, true, onChunk)
}

func (r *Router) route(ctx context.Context, messages []models.ChatMessage, stream bool, onChunk func(string)) (*Result, error) {
	res, primaryErr := r.attempt(ctx, r.primary, messages, stream, onChunk)
	if primaryErr == nil {
		log.Info().
			Str("provider", r.primary.Name).
			Str("model", r.primary.Model).
			Dur("elapsed", res.Elapsed).
			Msg("completion served by primary")
		return res, nil
	}
	log.Warn().
		Str("provider", r.primary.Name).
		Str("model", r.primary.Model).
		Err(primaryErr).
		Msg("primary attempt failed, falling back")

	res, fallbackErr := r.attempt(ctx, r.fallback, messages, stream, onChunk)
	if fallbackErr == nil {
		log.Info().
			Str("provider", r.fallback.Name).
			Str("model", r.fallback.Model).
			Dur("elapsed", res.Elapsed).
			Msg("completion served by fallback")
		return res, nil
	}
	log.Error().
		Str("provider", r.fallback.Name).
		Str("model", r.fallback.Model).
		Err(fallbackErr).
		Msg("fallback attempt failed, providers exhausted")

	return nil, &ExhaustedError{PrimaryErr: primaryErr, FallbackErr: fallbackErr}
}

// ── Chat Completion Wire Types ───────────────────────────────

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Stream      bool                 `json:"stream"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// attempt performs one bounded call to one provider. A timeout is treated
// identically to any other failure; the late response of an abandoned call
// is discarded with the per-attempt context.
func (r *Router) attempt(ctx context.Context, pc config.ProviderConfig, messages []models.ChatMessage, stream bool, onChunk func(string)) (*Result, error) {
	log.Info().
		Str("provider", pc.Name).
		Str("model", pc.Model).
		Bool("stream", stream).
		Msg("attempting provider")

	actx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	content, err := r.call(actx, pc, messages, stream, onChunk)
	elapsed := time.Since(start)

	if r.metrics != nil {
		r.metrics.ObserveAttempt(pc.Name, err == nil, elapsed)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pc.Name, err)
	}
	return &Result{
		Content:  content,
		Provider: pc.Name,
		Model:    pc.Model,
		Elapsed:  elapsed,
	}, nil
}

func (r *Router) call(ctx context.Context, pc config.ProviderConfig, messages []models.ChatMessage, stream bool, onChunk func(string)) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       pc.Model,
		Messages:    messages,
		Stream:      stream,
		Temperature: r.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := strings.TrimRight(pc.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if pc.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+pc.APIKey)
	}

	httpResp, err := r.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return "", fmt.Errorf("status %d: %s", httpResp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if stream {
		return accumulateStream(httpResp.Body, onChunk)
	}

	var cr chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return cr.Choices[0].Message.Content, nil
}

// accumulateStream drains an SSE body of `data: <json>` frames terminated by
// the literal `data: [DONE]` sentinel, appending each delta's content. A
// read error discards whatever was accumulated.
func accumulateStream(body io.Reader, onChunk func(string)) (string, error) {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var b strings.Builder
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Tolerate unparseable keep-alive frames.
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		b.WriteString(delta)
		if onChunk != nil {
			onChunk(delta)
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("stream read: %w", err)
	}
	if b.Len() == 0 {
		return "", ErrEmptyCompletion
	}
	return b.String(), nil
}
