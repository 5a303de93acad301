package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amirhosseinyavari021/CCG-sub001/internal/config"
	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
)

// Check probes both configured providers and reports reachability. The
// primary gets a minimal one-token completion so credentials are actually
// validated; the local fallback only needs its model listing to answer.
func (r *Router) Check(ctx context.Context) []models.ProviderCheckResult {
	return []models.ProviderCheckResult{
		r.checkCompletion(ctx, r.primary),
		r.checkModels(ctx, r.fallback),
	}
}

func (r *Router) checkCompletion(ctx context.Context, pc config.ProviderConfig) models.ProviderCheckResult {
	result := models.ProviderCheckResult{Provider: pc.Name, Model: pc.Model}

	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	body, _ := json.Marshal(chatRequest{
		Model:     pc.Model,
		Messages:  []models.ChatMessage{{Role: "user", Content: "Say OK"}},
		MaxTokens: 1,
	})

	start := time.Now()
	url := strings.TrimRight(pc.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	if pc.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+pc.APIKey)
	}

	resp, err := r.client.Do(req)
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = fmt.Sprintf("unreachable: %v", err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		result.Error = fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		return result
	}
	result.Healthy = true
	return result
}

func (r *Router) checkModels(ctx context.Context, pc config.ProviderConfig) models.ProviderCheckResult {
	result := models.ProviderCheckResult{Provider: pc.Name, Model: pc.Model}

	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	start := time.Now()
	url := strings.TrimRight(pc.BaseURL, "/") + "/models"
	req, err := http.NewRequestWithContext(cctx, http.MethodGet, url, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if pc.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+pc.APIKey)
	}

	resp, err := r.client.Do(req)
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = fmt.Sprintf("unreachable: %v", err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		result.Error = fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		return result
	}
	result.Healthy = true
	return result
}
