package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io"
	"strings"
	"text/template"

	"crewplanner/internal/domain"
)

//go:embed templates/*
var templateFS embed.FS

// executor is the part of html/template and text/template the renderer needs.
type executor interface {
	Execute(w io.Writer, data any) error
}

// templateRenderer keeps every embedded template parsed. Each notification
// type has <type>_subject.txt, <type>.html and <type>.txt.
type templateRenderer struct {
	html *htmltemplate.Template
	text *template.Template
}

// NewTemplateRenderer parses the embedded templates once. Missing data keys
// render as empty strings.
func NewTemplateRenderer() domain.EmailTemplateRenderer {
	return &templateRenderer{
		html: htmltemplate.Must(htmltemplate.New("").Option("missingkey=zero").ParseFS(templateFS, "templates/*.html")),
		text: template.Must(template.New("").Option("missingkey=zero").ParseFS(templateFS, "templates/*.txt")),
	}
}

func (r *templateRenderer) Render(templateName string, data any) (subject, htmlBody, textBody string, err error) {
	if subject, err = r.execute(r.lookupText(templateName+"_subject.txt"), templateName+"_subject.txt", data); err != nil {
		return "", "", "", err
	}
	if htmlBody, err = r.execute(r.lookupHTML(templateName+".html"), templateName+".html", data); err != nil {
		return "", "", "", err
	}
	if textBody, err = r.execute(r.lookupText(templateName+".txt"), templateName+".txt", data); err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(subject), htmlBody, textBody, nil
}

func (r *templateRenderer) lookupHTML(name string) executor {
	if t := r.html.Lookup(name); t != nil {
		return t
	}
	return nil
}

func (r *templateRenderer) lookupText(name string) executor {
	if t := r.text.Lookup(name); t != nil {
		return t
	}
	return nil
}

func (r *templateRenderer) execute(t executor, name string, data any) (string, error) {
	if t == nil {
		return "", fmt.Errorf("%w: template %s", domain.ErrNotFound, name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
