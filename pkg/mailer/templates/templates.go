package templates

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	texttpl "text/template"
)

//go:embed *.tmpl
var FS embed.FS

// Template names
const (
	ResetCode = "reset_code"
)

// ResetCodeData feeds the password recovery mail. The code is plaintext here
// and only here; the store keeps its hash.
type ResetCodeData struct {
	AppName       string
	FirstName     string
	Code          string
	ExpiryMinutes int
}

// ToMap converts ResetCodeData to the map shape EmailJob.Data expects.
func (d ResetCodeData) ToMap() map[string]any {
	return map[string]any{
		"AppName":       d.AppName,
		"FirstName":     d.FirstName,
		"Code":          d.Code,
		"ExpiryMinutes": d.ExpiryMinutes,
	}
}

// renderFile loads and renders a single template file from the embedded FS.
// isHTML selects html/template so code values get escaped in HTML bodies.
func renderFile(filename string, isHTML bool, data any) (string, error) {
	var (
		buf bytes.Buffer
		err error
	)
	if isHTML {
		tpl, e := htmpl.New(filename).ParseFS(FS, filename)
		if e != nil {
			return "", fmt.Errorf("parse html %q: %w", filename, e)
		}
		err = tpl.Execute(&buf, data)
	} else {
		tpl, e := texttpl.New(filename).ParseFS(FS, filename)
		if e != nil {
			return "", fmt.Errorf("parse text %q: %w", filename, e)
		}
		err = tpl.Execute(&buf, data)
	}
	if err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return buf.String(), nil
}

// Render loads and renders subject, text, and html templates for the given base name.
// Expects: <name>.subject.tmpl, <name>.text.tmpl, <name>.html.tmpl
func Render(name string, data any) (subject string, text string, html string, err error) {
	subject, err = renderFile(name+".subject.tmpl", false, data)
	if err != nil {
		return "", "", "", err
	}
	text, err = renderFile(name+".text.tmpl", false, data)
	if err != nil {
		return "", "", "", err
	}
	html, err = renderFile(name+".html.tmpl", true, data)
	if err != nil {
		return "", "", "", err
	}
	return subject, text, html, nil
}
