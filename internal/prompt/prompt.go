// Package prompt turns a canonical request into the provider-facing message
// sequence: exactly one system turn carrying the mode directives and the
// required output grammar, and exactly one user turn carrying the task.
// The transform is deterministic — the same request always yields
// byte-identical output.
package prompt

import (
	"fmt"
	"strings"

	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
)

const (
	// FieldSeparator is the on-wire delimiter the model is instructed to
	// emit between fields; the parser splits on the same literal.
	FieldSeparator = "|||"

	roleSystem = "system"
	roleUser   = "user"
)

var langNames = map[models.Lang]string{
	models.LangEN: "English",
	models.LangFA: "Persian (Farsi)",
}

// Build converts a CanonicalRequest into the ordered system+user message
// pair sent to a chat-completion provider.
func Build(req *models.CanonicalRequest) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: roleSystem, Content: systemContent(req)},
		{Role: roleUser, Content: userContent(req)},
	}
}

// Compose renders the same prompt as a single text block for providers
// without a chat-message interface.
func Compose(req *models.CanonicalRequest) string {
	return systemContent(req) + "\n\n" + userContent(req)
}

func systemContent(req *models.CanonicalRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are CCG, an expert assistant for the %s command line on %s.\n",
		req.CLI, req.Platform)
	fmt.Fprintf(&b, "Answer in %s.\n", langNames[req.Lang])
	if req.KnowledgeLevel != "" {
		fmt.Fprintf(&b, "The user's knowledge level is %q; calibrate depth accordingly.\n", req.KnowledgeLevel)
	}
	if req.OutputStyle != "" {
		fmt.Fprintf(&b, "Preferred output style: %s.\n", req.OutputStyle)
	}

	switch req.Mode {
	case models.ModeGenerate, models.ModeLearn:
		b.WriteString("Produce one or more commands that accomplish the task.\n")
		fmt.Fprintf(&b, "Output exactly one line per command, formatted as:\ncommand %[1]s explanation %[1]s warning\n", FieldSeparator)
		b.WriteString("The warning field may be empty. No prose outside these lines, no markdown fences.\n")
	case models.ModeScript:
		fmt.Fprintf(&b, "Produce a complete %s script for the task.\n", req.CLI)
		b.WriteString("Output a single fenced code block and nothing else.\n")
	case models.ModeExplain:
		b.WriteString("Explain the given command or concept as free-form Markdown text.\n")
	case models.ModeError:
		fmt.Fprintf(&b, "Diagnose the reported error. Output a single line formatted as:\ncause %[1]s explanation %[1]s solution step %[1]s solution step ...\n", FieldSeparator)
		b.WriteString("Give at least one solution step.\n")
	case models.ModeCompare:
		b.WriteString("Compare the two code inputs and describe the differences as Markdown text.\n")
	case models.ModeMerge:
		b.WriteString("Merge the two code inputs into one coherent result and explain the merge as Markdown text.\n")
	}

	if req.OutputType != "" {
		fmt.Fprintf(&b, "Requested output type: %s.\n", req.OutputType)
	}
	return strings.TrimRight(b.String(), "\n")
}

func userContent(req *models.CanonicalRequest) string {
	switch req.Mode {
	case models.ModeCompare, models.ModeMerge:
		var b strings.Builder
		if req.UserRequest != "" {
			b.WriteString(req.UserRequest)
			b.WriteString("\n\n")
		}
		b.WriteString("Input A:\n```\n")
		b.WriteString(req.InputA)
		b.WriteString("\n```\n\nInput B:\n```\n")
		b.WriteString(req.InputB)
		b.WriteString("\n```")
		return b.String()
	case models.ModeError:
		// Error context rides inside the same user turn, never a separate
		// system turn.
		var b strings.Builder
		if req.UserRequest != "" {
			b.WriteString(req.UserRequest)
			b.WriteString("\n\n")
		}
		b.WriteString("Error message:\n```\n")
		b.WriteString(req.ErrorMessage)
		b.WriteString("\n```")
		if req.Context != "" {
			b.WriteString("\n\nContext:\n```\n")
			b.WriteString(req.Context)
			b.WriteString("\n```")
		}
		return b.String()
	default:
		return req.UserRequest
	}
}
