// Package report renders backend report content for the terminal, the
// browser and exported files.
package report

import (
	"bytes"
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/felixgeelhaar/nexora/internal/errors"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)

	// ugc is safe for concurrent use once built.
	ugc = bluemonday.UGCPolicy()

	strict = bluemonday.StrictPolicy()

	blockEnd = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|table|ul|ol|blockquote|pre|section)>|<br\s*/?>`)
	heading  = regexp.MustCompile(`(?i)<h([1-6])[^>]*>`)
	listItem = regexp.MustCompile(`(?i)<li[^>]*>`)
	blankRun = regexp.MustCompile(`\n{3,}`)
	anyTag   = regexp.MustCompile(`(?i)</?[a-z][a-z0-9]*(\s[^>]*)?/?>`)
)

// RenderHTML converts report content, which may mix Markdown and HTML, into
// sanitized HTML. Blank input renders as "".
func RenderHTML(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(raw), &buf); err != nil {
		return "", errors.Wrap(errors.ErrCodeReportRender, "failed to render report", err)
	}
	return ugc.Sanitize(buf.String()), nil
}

// RenderTerminal renders report content for a terminal of the given width.
// Content carrying any HTML tag, wherever it appears, is flattened to
// Markdown-ish text first.
func RenderTerminal(raw string, width int) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	if width <= 0 {
		width = 80
	}

	content := raw
	if anyTag.MatchString(raw) {
		content = flattenHTML(raw)
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeReportRender, "failed to create terminal renderer", err)
	}

	out, err := r.Render(content)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeReportRender, "failed to render report", err)
	}
	return out, nil
}

// flattenHTML keeps headings, list items and paragraph breaks and drops all
// other markup.
func flattenHTML(s string) string {
	s = heading.ReplaceAllStringFunc(s, func(tag string) string {
		level := heading.FindStringSubmatch(tag)[1]
		return "\n\n" + strings.Repeat("#", int(level[0]-'0')) + " "
	})
	s = listItem.ReplaceAllString(s, "\n- ")
	s = blockEnd.ReplaceAllString(s, "\n\n")
	s = html.UnescapeString(strict.Sanitize(s))
	return strings.TrimSpace(blankRun.ReplaceAllString(s, "\n\n"))
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { margin: 0; background: #09090b; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; }
main { max-width: 56rem; margin: 2rem auto; padding: 3rem; background: #fff; color: #18181b; border-radius: 0.75rem; line-height: 1.6; }
h1, h2, h3 { color: #09090b; }
table { border-collapse: collapse; }
td, th { border: 1px solid #e4e4e7; padding: 0.25rem 0.5rem; }
pre { background: #f4f4f5; padding: 1rem; overflow-x: auto; }
</style>
</head>
<body>
<main>
{{.Body}}
</main>
</body>
</html>
`))

// Page wraps sanitized HTML from RenderHTML in a standalone document.
func Page(title, sanitized string) (string, error) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{
		Title: title,
		// #nosec G203 -- sanitized by RenderHTML
		Body: template.HTML(sanitized),
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeReportRender, "failed to render report page", err)
	}
	return buf.String(), nil
}
