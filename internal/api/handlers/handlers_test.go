package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirhosseinyavari021/CCG-sub001/internal/api"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/api/handlers"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/apierr"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/config"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/metrics"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/router"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/store"
	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
)

func completionHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"cmpl-1","choices":[{"message":{"content":%q}}]}`, content)
	}
}

// newTestServer wires the full HTTP stack against stub providers.
func newTestServer(t *testing.T, primaryURL, fallbackURL string, dailyLimit int) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Port:           0,
		Version:        "test",
		DefaultLang:    models.LangEN,
		Primary:        config.ProviderConfig{Name: "primary", BaseURL: primaryURL, Model: "test-model"},
		Fallback:       config.ProviderConfig{Name: "local", BaseURL: fallbackURL, Model: "local-model"},
		AttemptTimeout: 2 * time.Second,
		DailyLimit:     dailyLimit,
	}
	s := store.NewMemoryStore(t.TempDir(), 0)
	t.Cleanup(func() { s.Close() })

	m := metrics.New()
	h := handlers.New(s, router.New(cfg, m), m, cfg)
	srv := httptest.NewServer(api.NewRouter(cfg, h, m))
	t.Cleanup(srv.Close)
	return srv
}

func postGenerate(t *testing.T, srv *httptest.Server, user string, body map[string]any) (*http.Response, apierr.Envelope) {
	t.Helper()
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/generate", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /generate error = %v", err)
	}
	defer resp.Body.Close()

	var env apierr.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp, env
}

func TestGenerate_SuccessEnvelope(t *testing.T) {
	primary := httptest.NewServer(completionHandler("ls -la|||Lists all files|||"))
	defer primary.Close()
	srv := newTestServer(t, primary.URL, "http://127.0.0.1:1", 0)

	resp, env := postGenerate(t, srv, "alice", map[string]any{
		"mode":        "generate",
		"userRequest": "list files",
		"platform":    "linux",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !env.OK || env.Error != nil || env.Data == nil {
		t.Fatalf("envelope = %+v, want ok with data", env)
	}
	if !strings.Contains(env.Data.OutputMD, "ls -la") {
		t.Errorf("output_md missing command:\n%s", env.Data.OutputMD)
	}
	// Backward-compat bare output mirrors output_md.
	if env.Output != env.Data.OutputMD {
		t.Errorf("output = %q, want copy of data.output_md", env.Output)
	}
	if env.Data.Meta["provider"] != "primary" {
		t.Errorf("meta.provider = %v, want primary", env.Data.Meta["provider"])
	}
	if env.Data.Meta["cli"] != "bash" {
		t.Errorf("meta.cli = %v, want bash", env.Data.Meta["cli"])
	}
}

func TestGenerate_ValidationFailure(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", "http://127.0.0.1:1", 0)

	resp, env := postGenerate(t, srv, "", map[string]any{"mode": "generate"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if env.OK || env.Error == nil {
		t.Fatalf("envelope = %+v, want failure", env)
	}
	if env.Error.Code != apierr.CodeValidationFailed {
		t.Errorf("error.code = %q, want %q", env.Error.Code, apierr.CodeValidationFailed)
	}
}

func TestGenerate_ValidationFailureLocalized(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", "http://127.0.0.1:1", 0)

	_, env := postGenerate(t, srv, "", map[string]any{"mode": "generate", "lang": "fa"})
	if env.Error == nil {
		t.Fatal("want failure envelope")
	}
	if env.Error.Message != apierr.Message(apierr.CodeValidationFailed, models.LangFA) {
		t.Errorf("message = %q, want the Persian validation text", env.Error.Message)
	}
}

func TestGenerate_ProvidersExhausted(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "primary broke", http.StatusBadGateway)
	}))
	defer primary.Close()

	srv := newTestServer(t, primary.URL, "http://127.0.0.1:1", 0)

	resp, env := postGenerate(t, srv, "", map[string]any{
		"mode":        "generate",
		"userRequest": "list files",
	})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != apierr.CodeAIRequestFailed {
		t.Fatalf("envelope = %+v, want %s failure", env, apierr.CodeAIRequestFailed)
	}
	if !strings.Contains(env.Error.Details, "primary broke") {
		t.Errorf("details missing primary cause: %q", env.Error.Details)
	}
}

func TestGenerate_MalformedModelOutput(t *testing.T) {
	primary := httptest.NewServer(completionHandler("sorry, I cannot help with that"))
	defer primary.Close()
	srv := newTestServer(t, primary.URL, "http://127.0.0.1:1", 0)

	resp, env := postGenerate(t, srv, "", map[string]any{
		"mode":        "generate",
		"userRequest": "list files",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != apierr.CodeAIEmptyResponse {
		t.Fatalf("envelope = %+v, want %s failure", env, apierr.CodeAIEmptyResponse)
	}
}

func TestGenerate_RateLimited(t *testing.T) {
	primary := httptest.NewServer(completionHandler("ls|||Lists files"))
	defer primary.Close()
	srv := newTestServer(t, primary.URL, "http://127.0.0.1:1", 2)

	for i := 0; i < 2; i++ {
		resp, _ := postGenerate(t, srv, "bob", map[string]any{
			"mode":        "generate",
			"userRequest": "list files",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, resp.StatusCode)
		}
	}

	resp, env := postGenerate(t, srv, "bob", map[string]any{
		"mode":        "generate",
		"userRequest": "list files",
	})
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if env.Error == nil || env.Error.Code != apierr.CodeRateLimited {
		t.Fatalf("envelope = %+v, want %s failure", env, apierr.CodeRateLimited)
	}

	// Other users are unaffected.
	resp, _ = postGenerate(t, srv, "carol", map[string]any{
		"mode":        "generate",
		"userRequest": "list files",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("other user status = %d, want 200", resp.StatusCode)
	}
}

func TestGenerate_RecordsHistory(t *testing.T) {
	primary := httptest.NewServer(completionHandler("ls|||Lists files"))
	defer primary.Close()
	srv := newTestServer(t, primary.URL, "http://127.0.0.1:1", 0)

	postGenerate(t, srv, "alice", map[string]any{
		"mode":        "generate",
		"userRequest": "list files",
	})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/history", nil)
	req.Header.Set("X-User-Id", "alice")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /history error = %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Entries []models.HistoryEntry `json:"entries"`
		Count   int                   `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if out.Count != 1 {
		t.Fatalf("history count = %d, want 1", out.Count)
	}
	if out.Entries[0].Prompt != "list files" {
		t.Errorf("history prompt = %q", out.Entries[0].Prompt)
	}
	if out.Entries[0].Provider != "primary" {
		t.Errorf("history provider = %q", out.Entries[0].Provider)
	}
}

func TestUsageEndpoint(t *testing.T) {
	primary := httptest.NewServer(completionHandler("ls|||Lists files"))
	defer primary.Close()
	srv := newTestServer(t, primary.URL, "http://127.0.0.1:1", 5)

	postGenerate(t, srv, "alice", map[string]any{
		"mode":        "generate",
		"userRequest": "list files",
	})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/usage", nil)
	req.Header.Set("X-User-Id", "alice")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /usage error = %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Count     int `json:"count"`
		Limit     int `json:"limit"`
		Remaining int `json:"remaining"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode usage: %v", err)
	}
	if out.Count != 1 || out.Limit != 5 || out.Remaining != 4 {
		t.Errorf("usage = %+v, want count 1, limit 5, remaining 4", out)
	}
}

func TestHealthAndVersion(t *testing.T) {
	srv := newTestServer(t, "http://127.0.0.1:1", "http://127.0.0.1:1", 0)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/version")
	if err != nil {
		t.Fatalf("GET /version error = %v", err)
	}
	defer resp.Body.Close()
	var v map[string]string
	json.NewDecoder(resp.Body).Decode(&v)
	if v["version"] != "test" {
		t.Errorf("version = %q, want %q", v["version"], "test")
	}
}
