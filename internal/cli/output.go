package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"lawgpt/internal/app"
)

var (
	headingText = color.New(color.FgCyan, color.Bold).SprintFunc()
	sourceText  = color.New(color.FgGreen).SprintFunc()
	noticeText  = color.New(color.FgYellow).SprintFunc()
	errorText   = color.New(color.FgRed, color.Bold).SprintFunc()
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderAnswer prints an answer the way a reader scans it: the reply, any
// notice, then the citations.
func renderAnswer(w io.Writer, res *app.AskResult) {
	fmt.Fprintf(w, "%s %s\n\n", headingText("["+string(res.Mode)+"]"), res.Scope)
	fmt.Fprintln(w, strings.TrimSpace(res.Answer))
	if res.Notice != "" {
		fmt.Fprintf(w, "\n%s\n", noticeText(res.Notice))
	}
	if len(res.Sources) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", headingText("Sources"))
	for i, s := range res.Sources {
		var parts []string
		if s.Article != "" {
			parts = append(parts, "Article "+s.Article)
		}
		if s.Section != "" {
			parts = append(parts, "Section "+s.Section)
		}
		if s.Page != nil {
			parts = append(parts, fmt.Sprintf("p. %d", *s.Page))
		}
		line := s.Source
		if len(parts) > 0 {
			line += " (" + strings.Join(parts, ", ") + ")"
		}
		if s.RelevanceScore != nil {
			line += fmt.Sprintf(" distance %.3f", *s.RelevanceScore)
		}
		fmt.Fprintf(w, "  %d. %s\n", i+1, sourceText(line))
	}
}
