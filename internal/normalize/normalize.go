// Package normalize maps heterogeneous client payload shapes onto one
// canonical request record.
//
// The web UI shipped several generations of field names (userRequest,
// user_request, query, ...) and an older prompt-envelope shape
// {prompt:{id,variables}}. The normalizer resolves each canonical field
// through an explicit ordered alias list with first-non-empty-wins
// semantics, coerces enum-ish fields case-insensitively, and fills defaults.
// It rejects a request only when the mode-specific required content is
// entirely empty after normalization; unknown enum values never fail.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
)

// ValidationError reports mode-required content missing after normalization.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// Ordered alias lists per canonical field. First non-empty string wins.
var (
	aliasMode           = []string{"mode", "cmd_type", "cmdType", "type", "action"}
	aliasLang           = []string{"lang", "language", "locale"}
	aliasPlatform       = []string{"platform", "os", "system", "target_os", "targetOS"}
	aliasCLI            = []string{"cli", "shell", "terminal", "interpreter"}
	aliasVendor         = []string{"vendor", "device_vendor", "deviceVendor", "brand"}
	aliasOutputType     = []string{"outputType", "output_type", "format"}
	aliasOutputStyle    = []string{"outputStyle", "output_style", "style"}
	aliasKnowledge      = []string{"knowledgeLevel", "knowledge_level", "level", "expertise"}
	aliasUserRequest    = []string{"userRequest", "user_request", "request", "query", "text", "task", "input"}
	aliasErrorMessage   = []string{"errorMessage", "error_message", "error", "errorText"}
	aliasContext        = []string{"context", "errorContext", "error_context", "details"}
	aliasInputA         = []string{"inputA", "input_a", "codeA", "code_a", "left", "first"}
	aliasInputB         = []string{"inputB", "input_b", "codeB", "code_b", "right", "second"}
)

// Normalize produces a CanonicalRequest from an arbitrary untyped JSON body,
// or a *ValidationError when the mode-required content is empty.
func Normalize(body map[string]any, defaultLang models.Lang) (*models.CanonicalRequest, error) {
	if body == nil {
		body = map[string]any{}
	}
	body = flattenPromptEnvelope(body)

	req := &models.CanonicalRequest{
		Mode:           models.ParseMode(firstString(body, aliasMode)),
		Lang:           models.ParseLang(firstString(body, aliasLang), defaultLang),
		Platform:       CoercePlatform(firstString(body, aliasPlatform)),
		Vendor:         firstString(body, aliasVendor),
		OutputType:     firstString(body, aliasOutputType),
		OutputStyle:    firstString(body, aliasOutputStyle),
		KnowledgeLevel: firstString(body, aliasKnowledge),
		UserRequest:    firstString(body, aliasUserRequest),
		ErrorMessage:   firstString(body, aliasErrorMessage),
		Context:        firstString(body, aliasContext),
		InputA:         firstString(body, aliasInputA),
		InputB:         firstString(body, aliasInputB),
	}

	req.CLI = firstString(body, aliasCLI)
	if req.CLI == "" {
		req.CLI = GuessCLI(req.Platform, "", req.Vendor)
	}

	if err := validate(req); err != nil {
		return nil, err
	}

	if req.Mode == models.ModeLearn {
		req.SuggestedPlatform = SuggestPlatform(req.UserRequest, req.Platform)
	}

	return req, nil
}

// validate enforces the mode-specific required-content invariant.
func validate(req *models.CanonicalRequest) error {
	switch req.Mode {
	case models.ModeCompare, models.ModeMerge:
		if strings.TrimSpace(req.InputA) == "" || strings.TrimSpace(req.InputB) == "" {
			return &ValidationError{Field: "inputA/inputB", Reason: "both code inputs are required"}
		}
	case models.ModeError:
		if strings.TrimSpace(req.ErrorMessage) == "" && strings.TrimSpace(req.UserRequest) == "" {
			return &ValidationError{Field: "errorMessage", Reason: "error message is required"}
		}
	default:
		if strings.TrimSpace(req.UserRequest) == "" {
			return &ValidationError{Field: "userRequest", Reason: "request text is required"}
		}
	}
	return nil
}

// flattenPromptEnvelope merges the legacy {prompt:{id,variables}} shape into
// a flat body. Direct fields on the outer object keep priority.
func flattenPromptEnvelope(body map[string]any) map[string]any {
	env, ok := body["prompt"].(map[string]any)
	if !ok {
		return body
	}
	merged := make(map[string]any, len(body))
	if vars, ok := env["variables"].(map[string]any); ok {
		for k, v := range vars {
			merged[k] = v
		}
	}
	if id, ok := env["id"].(string); ok && merged["mode"] == nil {
		merged["mode"] = id
	}
	for k, v := range body {
		if k == "prompt" {
			continue
		}
		merged[k] = v
	}
	return merged
}

// firstString walks the alias list in order and returns the first non-empty
// string value found in the body. Numeric values are stringified; anything
// else is skipped.
func firstString(body map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := body[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(t)
		}
	}
	return ""
}

// CoercePlatform buckets a free-form platform string into one of the known
// platforms. Matching is case-insensitive and substring-based; unrecognized
// values land in the "other" bucket rather than failing.
func CoercePlatform(s string) string {
	p := strings.ToLower(strings.TrimSpace(s))
	switch {
	case p == "":
		return models.PlatformLinux
	case strings.Contains(p, "win"):
		return models.PlatformWindows
	case strings.Contains(p, "mac"), strings.Contains(p, "darwin"), strings.Contains(p, "osx"):
		return models.PlatformMacOS
	case strings.Contains(p, "net"), strings.Contains(p, "cisco"), strings.Contains(p, "mikrotik"),
		strings.Contains(p, "juniper"), strings.Contains(p, "switch"), strings.Contains(p, "router"):
		return models.PlatformNetwork
	case strings.Contains(p, "lin"), strings.Contains(p, "ubuntu"), strings.Contains(p, "debian"),
		strings.Contains(p, "fedora"), strings.Contains(p, "centos"), strings.Contains(p, "arch"),
		strings.Contains(p, "unix"):
		return models.PlatformLinux
	default:
		return models.PlatformOther
	}
}

// GuessCLI picks a default command interpreter from platform, shell, and
// vendor. Pure and total over all string inputs.
func GuessCLI(platform, shell, vendor string) string {
	shell = strings.TrimSpace(shell)
	switch CoercePlatform(platform) {
	case models.PlatformNetwork:
		if v := strings.TrimSpace(vendor); v != "" {
			return strings.ToLower(v)
		}
		return "network"
	case models.PlatformWindows:
		if shell != "" {
			return shell
		}
		return "powershell"
	case models.PlatformMacOS:
		if shell != "" {
			return shell
		}
		return "zsh"
	default:
		if shell != "" {
			return shell
		}
		return "bash"
	}
}
