package parse

import (
	"fmt"
	"strings"

	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
)

// Markdown renders a parsed result as the output_md document placed in the
// response envelope and the history store.
func Markdown(res *models.ParsedResult, cli string) string {
	if res == nil {
		return ""
	}

	switch res.Mode {
	case models.ModeGenerate, models.ModeLearn:
		var b strings.Builder
		for i, c := range res.Commands {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "```%s\n%s\n```\n", cli, c.Command)
			if c.Explanation != "" {
				b.WriteString(c.Explanation)
				b.WriteString("\n")
			}
			if c.Warning != "" {
				fmt.Fprintf(&b, "\n> ⚠️ %s\n", c.Warning)
			}
		}
		return strings.TrimRight(b.String(), "\n")

	case models.ModeError:
		var b strings.Builder
		fmt.Fprintf(&b, "**Cause**\n\n%s\n\n**Explanation**\n\n%s\n\n**Solution**\n", res.Cause, res.Explanation)
		for i, step := range res.Solution {
			fmt.Fprintf(&b, "\n%d. %s", i+1, step)
		}
		return b.String()

	case models.ModeScript:
		return fmt.Sprintf("```%s\n%s\n```", cli, res.Explanation)

	case models.ModeCompare, models.ModeMerge:
		return res.Raw

	default:
		return res.Explanation
	}
}
