// Package models defines the shared data types of the CCG backend: the
// canonical generation request, the chat wire messages, the parsed result
// union, and the usage/history records kept by the store.
package models

import (
	"strings"
	"time"
)

// ── Request Modes ────────────────────────────────────────────

// Mode selects the prompt template and the parser branch.
type Mode string

const (
	ModeGenerate Mode = "generate"
	ModeLearn    Mode = "learn"
	ModeExplain  Mode = "explain"
	ModeCompare  Mode = "compare"
	ModeMerge    Mode = "merge"
	ModeError    Mode = "error"
	ModeScript   Mode = "script"
)

// ParseMode maps a free-form mode string onto a known Mode.
// Unknown values fall back to generate.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLearn:
		return ModeLearn
	case ModeExplain:
		return ModeExplain
	case ModeCompare:
		return ModeCompare
	case ModeMerge:
		return ModeMerge
	case ModeError:
		return ModeError
	case ModeScript:
		return ModeScript
	default:
		return ModeGenerate
	}
}

// ── Languages ────────────────────────────────────────────────

// Lang is the output language directive.
type Lang string

const (
	LangEN Lang = "en"
	LangFA Lang = "fa"
)

// ParseLang coerces a language string; anything that is not Persian
// is English.
func ParseLang(s string, fallback Lang) Lang {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fa", "farsi", "persian", "fa-ir":
		return LangFA
	case "":
		return fallback
	default:
		return LangEN
	}
}

// ── Platforms ────────────────────────────────────────────────

const (
	PlatformLinux   = "linux"
	PlatformWindows = "windows"
	PlatformMacOS   = "macos"
	PlatformNetwork = "network"
	PlatformOther   = "other"
)

// ── Canonical Request ────────────────────────────────────────

// CanonicalRequest is the normalized, strongly-typed shape of a generation
// request after alias resolution and defaulting. It is created per call,
// consumed immediately, and never persisted.
type CanonicalRequest struct {
	Mode           Mode   `json:"mode"`
	Lang           Lang   `json:"lang"`
	Platform       string `json:"platform"`
	CLI            string `json:"cli"`
	Vendor         string `json:"vendor,omitempty"`
	OutputType     string `json:"output_type,omitempty"`
	OutputStyle    string `json:"output_style,omitempty"`
	KnowledgeLevel string `json:"knowledge_level,omitempty"`

	UserRequest  string `json:"user_request,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Context      string `json:"context,omitempty"`
	InputA       string `json:"input_a,omitempty"`
	InputB       string `json:"input_b,omitempty"`

	// SuggestedPlatform is an advisory hint set when the request text looks
	// like it targets a different OS family than the declared platform.
	// It never blocks or rewrites the request.
	SuggestedPlatform string `json:"suggested_platform,omitempty"`
}

// ── Chat Wire Types ──────────────────────────────────────────

// ChatMessage is one role-tagged turn sent to a provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderAttempt records one network call to one provider. It exists only
// for logging and fallback decision-making and is never persisted.
type ProviderAttempt struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Elapsed  time.Duration `json:"elapsed"`
	Err      error         `json:"-"`
}

// ProviderCheckResult reports the outcome of a provider reachability probe.
type ProviderCheckResult struct {
	Provider  string `json:"provider"`
	Model     string `json:"model,omitempty"`
	Healthy   bool   `json:"healthy"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// ── Parsed Result ────────────────────────────────────────────

// CommandEntry is one generated command with its explanation and an
// optional warning.
type CommandEntry struct {
	Command     string `json:"command"`
	Explanation string `json:"explanation"`
	Warning     string `json:"warning,omitempty"`
}

// ParsedResult is the mode-keyed decomposition of a provider's raw text.
// Only the fields belonging to Mode are populated.
type ParsedResult struct {
	Mode Mode `json:"mode"`

	// generate
	Commands []CommandEntry `json:"commands,omitempty"`

	// explain / script
	Explanation string `json:"explanation,omitempty"`

	// error
	Cause    string   `json:"cause,omitempty"`
	Solution []string `json:"solution,omitempty"`

	// compare / merge: raw Markdown passed through untouched
	Raw string `json:"raw,omitempty"`
}

// ── Usage & History ──────────────────────────────────────────

// UsageRecord is a per-user per-day request counter.
type UsageRecord struct {
	UserID    string    `json:"user_id"`
	Day       string    `json:"day"` // YYYY-MM-DD, UTC
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryEntry is one completed generation kept for the user's history view.
type HistoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Mode      Mode      `json:"mode"`
	Platform  string    `json:"platform,omitempty"`
	CLI       string    `json:"cli,omitempty"`
	Prompt    string    `json:"prompt"`
	OutputMD  string    `json:"output_md"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
}
