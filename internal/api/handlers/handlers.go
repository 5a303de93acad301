// Package handlers implements the HTTP handlers of the CCG server. The
// generate handler is the boundary of the core pipeline: it normalizes the
// inbound body, transforms it into a prompt, drives the provider router,
// parses the raw model text, and wraps the result in the response envelope.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/amirhosseinyavari021/CCG-sub001/internal/api/middleware"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/apierr"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/config"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/metrics"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/normalize"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/parse"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/prompt"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/router"
	"github.com/amirhosseinyavari021/CCG-sub001/internal/store"
	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Store   store.Store
	Router  *router.Router
	Metrics *metrics.Metrics
	Cfg     *config.Config
}

// New creates a Handlers instance with all dependencies.
func New(s store.Store, r *router.Router, m *metrics.Metrics, cfg *config.Config) *Handlers {
	return &Handlers{Store: s, Router: r, Metrics: m, Cfg: cfg}
}

// ── Generate ─────────────────────────────────────────────────

// Generate runs the full request-to-structured-result pipeline.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	lang := h.Cfg.DefaultLang

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.fail(w, http.StatusBadRequest, apierr.CodeInvalidPayload, lang, "", "")
		return
	}

	req, err := normalize.Normalize(body, h.Cfg.DefaultLang)
	if err != nil {
		var verr *normalize.ValidationError
		if errors.As(err, &verr) {
			// The body may still carry a usable lang even when validation fails.
			if l, ok := body["lang"].(string); ok {
				lang = models.ParseLang(l, lang)
			}
			h.fail(w, http.StatusBadRequest, apierr.CodeValidationFailed, lang, verr.Error(), "")
			return
		}
		h.fail(w, http.StatusInternalServerError, apierr.CodeInternalError, lang, "", "")
		return
	}
	lang = req.Lang

	messages := prompt.Build(req)
	result, err := h.Router.Route(r.Context(), messages)
	if err != nil {
		var exhausted *router.ExhaustedError
		if errors.As(err, &exhausted) {
			h.fail(w, http.StatusBadGateway, apierr.CodeAIRequestFailed, lang, exhausted.Error(), string(req.Mode))
			return
		}
		h.fail(w, http.StatusInternalServerError, apierr.CodeInternalError, lang, "", string(req.Mode))
		return
	}

	parsed := parse.Parse(req.Mode, result.Content)
	if parsed == nil {
		h.fail(w, http.StatusUnprocessableEntity, apierr.CodeAIEmptyResponse, lang, "", string(req.Mode))
		return
	}

	outputMD := parse.Markdown(parsed, req.CLI)
	h.recordHistory(r, req, result, outputMD)
	if h.Metrics != nil {
		h.Metrics.ObserveRequest(string(req.Mode), http.StatusOK)
	}

	meta := map[string]any{
		"mode":     req.Mode,
		"lang":     req.Lang,
		"platform": req.Platform,
		"cli":      req.CLI,
		"provider": result.Provider,
		"model":    result.Model,
	}
	if req.SuggestedPlatform != "" {
		meta["suggested_platform"] = req.SuggestedPlatform
	}
	apierr.WriteSuccess(w, outputMD, meta)
}

func (h *Handlers) fail(w http.ResponseWriter, status int, code string, lang models.Lang, details, mode string) {
	if h.Metrics != nil {
		if mode == "" {
			mode = "unknown"
		}
		h.Metrics.ObserveRequest(mode, status)
	}
	apierr.WriteFailure(w, status, code, lang, details)
}

func (h *Handlers) recordHistory(r *http.Request, req *models.CanonicalRequest, result *router.Result, outputMD string) {
	promptText := req.UserRequest
	if promptText == "" {
		promptText = req.ErrorMessage
	}
	entry := &models.HistoryEntry{
		ID:        uuid.New().String(),
		UserID:    middleware.GetUserID(r.Context()),
		Mode:      req.Mode,
		Platform:  req.Platform,
		CLI:       req.CLI,
		Prompt:    promptText,
		OutputMD:  outputMD,
		Provider:  result.Provider,
		Model:     result.Model,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.AddHistory(r.Context(), entry); err != nil {
		log.Warn().Err(err).Str("user", entry.UserID).Msg("Failed to record history entry")
	}
}

// ── Usage & History ──────────────────────────────────────────

func (h *Handlers) GetUsage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserID(r.Context())
	day := time.Now().UTC().Format("2006-01-02")

	count := 0
	if rec, err := h.Store.GetUsage(r.Context(), user, day); err == nil {
		count = rec.Count
	} else if !errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	remaining := -1 // unlimited
	if h.Cfg.DailyLimit > 0 {
		remaining = h.Cfg.DailyLimit - count
		if remaining < 0 {
			remaining = 0
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":   user,
		"day":       day,
		"count":     count,
		"limit":     h.Cfg.DailyLimit,
		"remaining": remaining,
	})
}

func (h *Handlers) ListHistory(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserID(r.Context())

	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.Store.ListHistory(r.Context(), user, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": user,
		"entries": entries,
		"count":   len(entries),
	})
}

func (h *Handlers) ClearHistory(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserID(r.Context())
	if err := h.Store.ClearHistory(r.Context(), user); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared", "user_id": user})
}

// ── Providers ────────────────────────────────────────────────

// CheckProviders probes both configured providers and reports reachability.
func (h *Handlers) CheckProviders(w http.ResponseWriter, r *http.Request) {
	results := h.Router.Check(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"providers": results})
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
