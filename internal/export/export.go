// Package export renders a parsed session transcript to Markdown, JSON or
// HTML. It is fed only by the session parser's outputs; identifier
// validation happens in the locator before anything reaches this package.
package export

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"github.com/goccy/go-json"

	"github.com/voglerr/claudescope/internal/logs"
)

// Format selects the export rendering.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
)

// ContentType returns the HTTP content type for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// Document is the template input: one session plus its transcript.
type Document struct {
	Session  *logs.Session  `json:"session"`
	Messages []logs.Message `json:"messages"`
}

const markdownTemplate = `# Session {{.Session.SessionID}}

- Project: {{.Session.ProjectName}}
{{- if .Session.Summary}}
- Summary: {{.Session.Summary}}
{{- end}}
- First message: {{.Session.FirstMessageTime}}
- Last message: {{.Session.LastMessageTime}}

{{range .Messages}}## {{if eq .Type "user"}}User{{else}}Assistant{{end}} ({{.Timestamp}})

{{.Content}}

{{end}}`

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Session {{.Session.SessionID}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
.user { background: #eef4ff; padding: 0.75rem; border-radius: 6px; }
.assistant { background: #f6f6f6; padding: 0.75rem; border-radius: 6px; }
.meta { color: #666; font-size: 0.8rem; }
pre { white-space: pre-wrap; margin: 0.25rem 0 0; }
</style>
</head>
<body>
<h1>{{.Session.ProjectName}} / {{.Session.SessionID}}</h1>
{{if .Session.Summary}}<p><em>{{.Session.Summary}}</em></p>{{end}}
{{range .Messages}}<div class="{{.Type}}">
<div class="meta">{{.Type}} &middot; {{.Timestamp}}</div>
<pre>{{.Content}}</pre>
</div>
{{end}}</body>
</html>
`

var (
	markdownTpl = template.Must(template.New("markdown").Parse(markdownTemplate))
	htmlTpl     = htmltemplate.Must(htmltemplate.New("html").Parse(htmlTemplate))
)

// Render produces the export bytes for one session.
func Render(format Format, session *logs.Session, messages []logs.Message) ([]byte, error) {
	doc := Document{Session: session, Messages: messages}

	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatHTML:
		var buf bytes.Buffer
		if err := htmlTpl.Execute(&buf, doc); err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
		return buf.Bytes(), nil
	case FormatMarkdown:
		var buf bytes.Buffer
		if err := markdownTpl.Execute(&buf, doc); err != nil {
			return nil, fmt.Errorf("render markdown: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}
