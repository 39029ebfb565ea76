// Package tmpl provides template rendering utilities for shell commands.
package tmpl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// ShellQuote returns a shell-safe quoted string. It wraps the string in single
// quotes and escapes any existing single quotes using the '\" technique.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	// Replace ' with '\'' (end quote, escaped quote, start quote)
	escaped := strings.ReplaceAll(s, "'", `'\''`)
	return "'" + escaped + "'"
}

// Config holds values exposed to templates through functions.
type Config struct {
	// DataDir is returned by the dataDir function.
	DataDir string
	// User is returned by the user function. Renderers are scoped per user pass.
	User string
}

// Renderer executes command templates with a fixed function set.
type Renderer struct {
	cfg   Config
	funcs template.FuncMap
}

// New creates a Renderer bound to cfg.
func New(cfg Config) *Renderer {
	r := &Renderer{cfg: cfg}
	r.funcs = template.FuncMap{
		"shq":     ShellQuote,
		"join":    strings.Join,
		"json":    toJSON,
		"dataDir": func() string { return r.cfg.DataDir },
		"user":    func() string { return r.cfg.User },
	}
	return r
}

// NewValidation returns a renderer suitable for syntax checks. Function
// results are placeholders; only parse and execution errors matter.
func NewValidation() *Renderer {
	return New(Config{DataDir: "/tmp/yearn", User: "validation"})
}

// WithUser returns a copy of the renderer whose user function reports user.
func (r *Renderer) WithUser(user string) *Renderer {
	cfg := r.cfg
	cfg.User = user
	return New(cfg)
}

// Render executes a Go template string with the given data.
// Returns an error if the template is invalid or references undefined keys.
//
// Available template functions:
//   - shq: Shell-quote a string for safe use in shell commands
//   - join: Join string slice with separator (e.g., join .Args " ")
//   - json: Encode a value as compact JSON
//   - dataDir, user: Values bound to the renderer
func (r *Renderer) Render(tmpl string, data any) (string, error) {
	t, err := template.New("").Funcs(r.funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}

// Check parses tmpl without executing it. Use it for templates whose data
// keys are only known at run time.
func (r *Renderer) Check(tmpl string) error {
	if _, err := template.New("").Funcs(r.funcs).Parse(tmpl); err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	return nil
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
