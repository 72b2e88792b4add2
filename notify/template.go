// Package notify implements the Notification Dispatcher:
// Handlebars-like template rendering plus per-channel delivery with retry
// and backoff, fanned out concurrently across channels and queued
// per-monitor to bound memory.
package notify

import (
	"fmt"
	"strings"
)

// RenderTemplate substitutes {{ident}} placeholders in tmpl with string
// forms of vars values. An identifier missing from vars is preserved
// literally and reported back for the caller to log a warning.
func RenderTemplate(tmpl string, vars map[string]any) (rendered string, missing []string) {
	var out strings.Builder
	i := 0
	for i < len(tmpl) {
		open := strings.Index(tmpl[i:], "{{")
		if open < 0 {
			out.WriteString(tmpl[i:])
			break
		}
		out.WriteString(tmpl[i : i+open])
		start := i + open + 2
		close := strings.Index(tmpl[start:], "}}")
		if close < 0 {
			// unterminated placeholder: emit the rest verbatim
			out.WriteString(tmpl[i+open:])
			break
		}
		ident := strings.TrimSpace(tmpl[start : start+close])
		if val, ok := vars[ident]; ok {
			out.WriteString(fmt.Sprint(val))
		} else {
			out.WriteString("{{" + ident + "}}")
			missing = append(missing, ident)
		}
		i = start + close + 2
	}
	return out.String(), missing
}
