// Package parse decomposes raw model text into a mode-specific structured
// result. Every parser is a pure function: identical text and mode always
// yield the identical result, and malformed input returns nil — never an
// error or panic — so the boundary can report an empty/malformed response
// instead of retrying.
package parse

import (
	"regexp"
	"strings"

	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
)

// Separator is the literal field delimiter the prompt instructs the model
// to emit.
const Separator = "|||"

var ordinalPrefix = regexp.MustCompile(`^\s*\d+[.)]\s*`)

// Parse dispatches to the mode's parser. nil means the text did not satisfy
// the mode's grammar.
func Parse(mode models.Mode, raw string) *models.ParsedResult {
	switch mode {
	case models.ModeGenerate, models.ModeLearn:
		return parseGenerate(mode, raw)
	case models.ModeError:
		return parseError(raw)
	case models.ModeScript:
		return parseScript(raw)
	case models.ModeCompare, models.ModeMerge:
		return parseRaw(mode, raw)
	default:
		return parseExplain(mode, raw)
	}
}

// parseGenerate splits the text into lines of
// `command ||| explanation ||| warning`. A leading "<n>. " ordinal on the
// command is stripped. Lines with fewer than two fields, or with an empty
// command after stripping, are discarded entirely rather than partially
// accepted.
func parseGenerate(mode models.Mode, raw string) *models.ParsedResult {
	var commands []models.CommandEntry
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, Separator)
		if len(fields) < 2 {
			continue
		}
		command := strings.TrimSpace(ordinalPrefix.ReplaceAllString(strings.TrimSpace(fields[0]), ""))
		if command == "" {
			continue
		}
		entry := models.CommandEntry{
			Command:     command,
			Explanation: strings.TrimSpace(fields[1]),
		}
		if len(fields) > 2 {
			entry.Warning = strings.TrimSpace(fields[2])
		}
		commands = append(commands, entry)
	}
	if len(commands) == 0 {
		return nil
	}
	return &models.ParsedResult{Mode: mode, Commands: commands}
}

// parseError expects at least cause ||| explanation ||| solution; any
// further fields are additional solution steps.
func parseError(raw string) *models.ParsedResult {
	fields := strings.Split(strings.TrimSpace(raw), Separator)
	if len(fields) < 3 {
		return nil
	}
	solution := make([]string, 0, len(fields)-2)
	for _, step := range fields[2:] {
		if s := strings.TrimSpace(step); s != "" {
			solution = append(solution, s)
		}
	}
	if len(solution) == 0 {
		return nil
	}
	return &models.ParsedResult{
		Mode:        models.ModeError,
		Cause:       strings.TrimSpace(fields[0]),
		Explanation: strings.TrimSpace(fields[1]),
		Solution:    solution,
	}
}

var fenceOpen = regexp.MustCompile("^```[a-zA-Z0-9_+-]*\n")

// parseScript strips one outer fenced code block if present; without a
// fence the whole trimmed text is the script body.
func parseScript(raw string) *models.ParsedResult {
	body := strings.TrimSpace(raw)
	if body == "" {
		return nil
	}
	if loc := fenceOpen.FindStringIndex(body); loc != nil && strings.HasSuffix(body, "```") {
		inner := body[loc[1] : len(body)-3]
		body = strings.TrimSpace(inner)
		if body == "" {
			return nil
		}
	}
	return &models.ParsedResult{Mode: models.ModeScript, Explanation: body}
}

func parseExplain(mode models.Mode, raw string) *models.ParsedResult {
	body := strings.TrimSpace(raw)
	if body == "" {
		return nil
	}
	return &models.ParsedResult{Mode: mode, Explanation: body}
}

// parseRaw keeps compare/merge output untouched; it is consumed as
// Markdown downstream.
func parseRaw(mode models.Mode, raw string) *models.ParsedResult {
	body := strings.TrimSpace(raw)
	if body == "" {
		return nil
	}
	return &models.ParsedResult{Mode: mode, Raw: body}
}
