package router_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirhosseinyavari021/CCG-sub001/internal/config"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/router"
	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
)

func testMessages() []models.ChatMessage {
	return []models.ChatMessage{
		{Role: "system", Content: "You are CCG."},
		{Role: "user", Content: "list files"},
	}
}

// completionHandler returns an OpenAI-style non-streaming completion body.
func completionHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"cmpl-1","choices":[{"message":{"content":%q}}]}`, content)
	}
}

func newTestRouter(t *testing.T, primaryURL, fallbackURL string) *router.Router {
	t.Helper()
	cfg := &config.Config{
		Primary:        config.ProviderConfig{Name: "primary", BaseURL: primaryURL, Model: "test-model"},
		Fallback:       config.ProviderConfig{Name: "local", BaseURL: fallbackURL, Model: "local-model"},
		AttemptTimeout: 2 * time.Second,
		Temperature:    0.3,
	}
	return router.New(cfg, nil)
}

func TestRoute_PrimarySuccess(t *testing.T) {
	primary := httptest.NewServer(completionHandler("ls -la|||Lists all files|||"))
	defer primary.Close()

	r := newTestRouter(t, primary.URL, "http://127.0.0.1:1")
	res, err := r.Route(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if res.Content != "ls -la|||Lists all files|||" {
		t.Errorf("Content = %q", res.Content)
	}
	if res.Provider != "primary" {
		t.Errorf("Provider = %q, want primary", res.Provider)
	}
}

func TestRoute_FallbackOnPrimaryError(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(completionHandler("pwd|||Prints the working directory"))
	defer fallback.Close()

	r := newTestRouter(t, primary.URL, fallback.URL)
	res, err := r.Route(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	// The final text equals the fallback's raw text exactly.
	if res.Content != "pwd|||Prints the working directory" {
		t.Errorf("Content = %q", res.Content)
	}
	if res.Provider != "local" {
		t.Errorf("Provider = %q, want local", res.Provider)
	}
}

func TestRoute_FallbackOnEmptyContent(t *testing.T) {
	primary := httptest.NewServer(completionHandler(""))
	defer primary.Close()
	fallback := httptest.NewServer(completionHandler("echo ok|||ok"))
	defer fallback.Close()

	r := newTestRouter(t, primary.URL, fallback.URL)
	res, err := r.Route(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if res.Provider != "local" {
		t.Errorf("Provider = %q, want local (empty primary content is a failure)", res.Provider)
	}
}

func TestRoute_FallbackOnTimeout(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer primary.Close()
	fallback := httptest.NewServer(completionHandler("echo ok|||ok"))
	defer fallback.Close()

	cfg := &config.Config{
		Primary:        config.ProviderConfig{Name: "primary", BaseURL: primary.URL, Model: "m"},
		Fallback:       config.ProviderConfig{Name: "local", BaseURL: fallback.URL, Model: "m"},
		AttemptTimeout: 100 * time.Millisecond,
	}
	r := router.New(cfg, nil)

	start := time.Now()
	res, err := r.Route(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if res.Provider != "local" {
		t.Errorf("Provider = %q, want local", res.Provider)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Route() blocked %v, the abandoned primary call must not be waited on", elapsed)
	}
}

func TestRoute_Exhausted(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "primary down for maintenance", http.StatusServiceUnavailable)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer fallback.Close()

	r := newTestRouter(t, primary.URL, fallback.URL)
	res, err := r.Route(context.Background(), testMessages())
	if res != nil {
		t.Fatalf("Route() res = %+v, want nil on exhaustion", res)
	}

	var exhausted *router.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Route() error = %T, want *ExhaustedError", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "primary down for maintenance") {
		t.Errorf("error message missing primary cause: %s", msg)
	}
	if !strings.Contains(msg, "model not loaded") {
		t.Errorf("error message missing fallback cause: %s", msg)
	}
}

// ── Streaming ────────────────────────────────────────────────

func sseHandler(frames []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, f := range frames {
			fmt.Fprintf(w, "data: %s\n\n", f)
			flusher.Flush()
		}
	}
}

func deltaFrame(content string) string {
	return fmt.Sprintf(`{"choices":[{"delta":{"content":%q}}]}`, content)
}

func TestRouteStream_AccumulatesChunks(t *testing.T) {
	primary := httptest.NewServer(sseHandler([]string{
		deltaFrame("ls -la"),
		deltaFrame("|||"),
		deltaFrame("Lists all files"),
		"[DONE]",
	}))
	defer primary.Close()

	r := newTestRouter(t, primary.URL, "http://127.0.0.1:1")

	var chunks []string
	res, err := r.RouteStream(context.Background(), testMessages(), func(c string) {
		chunks = append(chunks, c)
	})
	if err != nil {
		t.Fatalf("RouteStream() error = %v", err)
	}
	if res.Content != "ls -la|||Lists all files" {
		t.Errorf("Content = %q", res.Content)
	}
	if len(chunks) != 3 {
		t.Errorf("onChunk called %d times, want 3", len(chunks))
	}
}

func TestRouteStream_IgnoresKeepAliveFrames(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "event: ping\n\n")
		fmt.Fprintf(w, "data: %s\n\n", deltaFrame("echo hi"))
		fmt.Fprint(w, "data: {not json}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer primary.Close()

	r := newTestRouter(t, primary.URL, "http://127.0.0.1:1")
	res, err := r.RouteStream(context.Background(), testMessages(), nil)
	if err != nil {
		t.Fatalf("RouteStream() error = %v", err)
	}
	if res.Content != "echo hi" {
		t.Errorf("Content = %q, want %q", res.Content, "echo hi")
	}
}

func TestRouteStream_StreamErrorFallsBackFromZero(t *testing.T) {
	// Primary emits some chunks, then times out mid-stream.
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprintf(w, "data: %s\n\n", deltaFrame("partial output that must be discarded"))
		flusher.Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer primary.Close()
	fallback := httptest.NewServer(sseHandler([]string{deltaFrame("fresh fallback answer"), "[DONE]"}))
	defer fallback.Close()

	cfg := &config.Config{
		Primary:        config.ProviderConfig{Name: "primary", BaseURL: primary.URL, Model: "m"},
		Fallback:       config.ProviderConfig{Name: "local", BaseURL: fallback.URL, Model: "m"},
		AttemptTimeout: 200 * time.Millisecond,
	}
	r := router.New(cfg, nil)

	res, err := r.RouteStream(context.Background(), testMessages(), nil)
	if err != nil {
		t.Fatalf("RouteStream() error = %v", err)
	}
	if res.Content != "fresh fallback answer" {
		t.Errorf("Content = %q, partial primary output must not leak into the result", res.Content)
	}
	if res.Provider != "local" {
		t.Errorf("Provider = %q, want local", res.Provider)
	}
}

func TestRouteStream_EmptyStreamIsFailure(t *testing.T) {
	primary := httptest.NewServer(sseHandler([]string{"[DONE]"}))
	defer primary.Close()
	fallback := httptest.NewServer(sseHandler([]string{"[DONE]"}))
	defer fallback.Close()

	r := newTestRouter(t, primary.URL, fallback.URL)
	_, err := r.RouteStream(context.Background(), testMessages(), nil)

	var exhausted *router.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("RouteStream() error = %v, want *ExhaustedError", err)
	}
}
