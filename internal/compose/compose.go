// Package compose turns templates and variables into deliverable
// messages: variable substitution, layout rendering, and the actual
// provider send.
package compose

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/osteele/liquid"

	"github.com/ignite/courier/internal/pkg/logger"
)

// varPattern matches {{key}} and {{key ?? default}} placeholders.
var varPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*(?:\?\?\s*([^}]*?)\s*)?\}\}`)

// Format substitutes {{key}} placeholders in subject and body. A
// placeholder may carry a fallback ({{key ?? default}}) used when the key
// is absent; without one, a missing key renders as the empty string.
// Slice values render as an HTML list item per element. This is plain
// substitution, there are no conditionals or loops.
func Format(subject, body string, vars map[string]any) (string, string) {
	return substitute(subject, vars), substitute(body, vars)
}

func substitute(s string, vars map[string]any) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := varPattern.FindStringSubmatch(match)
		key, fallback := groups[1], groups[2]

		v, ok := vars[key]
		if !ok {
			return fallback
		}
		return renderValue(v)
	})
}

func renderValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		var b strings.Builder
		for _, item := range val {
			b.WriteString("<li>")
			b.WriteString(item)
			b.WriteString("</li>")
		}
		return b.String()
	case []any:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = fmt.Sprint(item)
		}
		return renderValue(items)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// layout is the responsive shell plain-text content is wrapped in. HTML
// templates skip it; their authors own the whole document.
const layout = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ project }}</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f4f5;font-family:Helvetica,Arial,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="background-color:#f4f4f5;">
    <tr>
      <td align="center" style="padding:24px 12px;">
        <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="max-width:600px;width:100%;background-color:#ffffff;border-radius:8px;">
          <tr>
            <td style="padding:32px;color:#18181b;font-size:15px;line-height:1.6;">
              {{ content }}
            </td>
          </tr>
          <tr>
            <td style="padding:0 32px 24px;color:#a1a1aa;font-size:12px;">
              Sent by {{ project }}
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

var (
	layoutTemplate *liquid.Template
	layoutParseErr error
)

func init() {
	layoutTemplate, layoutParseErr = liquid.NewEngine().ParseString(layout)
}

// Compile produces the final HTML document for a message. Content that is
// already a full HTML template passes through untouched; plain content is
// injected into the standard layout. Render problems fall back to the raw
// content so a bad layout never blocks a send.
func Compile(content, projectName string, isHTML bool) string {
	if isHTML {
		return content
	}
	if layoutParseErr != nil {
		logger.Warn("layout template unavailable, sending raw content",
			"error", layoutParseErr.Error(),
		)
		return content
	}

	out, err := layoutTemplate.RenderString(map[string]interface{}{
		"content": htmlParagraphs(content),
		"project": projectName,
	})
	if err != nil {
		logger.Warn("layout render failed, sending raw content",
			"project", projectName,
			"error", err.Error(),
		)
		return content
	}
	return out
}

// htmlParagraphs converts blank-line separated plain text into paragraph
// markup. Single newlines become line breaks.
func htmlParagraphs(content string) string {
	if strings.Contains(content, "<") {
		// Fragment markup (bold, links, lists) is embedded as is.
		return content
	}
	blocks := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n")
	var b strings.Builder
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(block, "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
