// Package render turns bus messages into the HTML fragment strings the
// WebSocket processor sends back to the browser. Nothing upstream of this
// package knows about HTML — converters call HtmlRenderer and forward its
// output verbatim.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path"
)

//go:embed templates/*.html.tmpl templates/**/*.html.tmpl
var templateFiles embed.FS

// HtmlRenderer produces a named HTML fragment from arbitrary template data.
// name is a slash-separated template name such as "servers/list_update".
type HtmlRenderer interface {
	Render(name string, data any) (string, error)
}

// TemplateRenderer implements HtmlRenderer with html/template, parsing every
// fragment once at construction time.
type TemplateRenderer struct {
	templates *template.Template
}

// NewTemplateRenderer parses every *.html.tmpl fragment embedded in this
// package. It returns an error if any template fails to parse — a broken
// fragment is a startup-time defect, not a runtime one.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	tmpl, err := template.ParseFS(templateFiles, "templates/*.html.tmpl", "templates/**/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return &TemplateRenderer{templates: tmpl}, nil
}

// Render executes the named template against data and returns the result.
// name is the template's path below templates/ without the .html.tmpl
// suffix, e.g. "notifications/notification". Templates are registered
// under their base file name, so only the last element of name selects
// the template.
func (r *TemplateRenderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, path.Base(name)+".html.tmpl", data); err != nil {
		return "", fmt.Errorf("render: execute %q: %w", name, err)
	}
	return buf.String(), nil
}
