// Package printer writes styled, human-facing status lines for CLI commands.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/colonyops/yearn/internal/core/styles"
)

type ctxKey struct{}

// Printer writes status messages to a writer.
type Printer struct {
	out io.Writer
}

// New returns a printer writing to out.
func New(out io.Writer) *Printer {
	return &Printer{out: out}
}

// NewContext returns a copy of ctx carrying p.
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx returns the printer stored in ctx, or one writing to stderr.
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok && p != nil {
		return p
	}
	return New(os.Stderr)
}

// Printf writes an unstyled line.
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) Successf(format string, args ...any) {
	p.prefixed(styles.SuccessStyle.Render("✓"), format, args...)
}

func (p *Printer) Infof(format string, args ...any) {
	p.prefixed(styles.InfoStyle.Render("•"), format, args...)
}

func (p *Printer) Warnf(format string, args ...any) {
	p.prefixed(styles.WarningStyle.Render("!"), format, args...)
}

func (p *Printer) Errorf(format string, args ...any) {
	p.prefixed(styles.ErrorStyle.Render("✗"), format, args...)
}

// Success prints a success line with a muted detail underneath.
func (p *Printer) Success(title, detail string) {
	p.Successf("%s", title)
	if detail != "" {
		p.Printf("  %s", styles.MutedStyle.Render(detail))
	}
}

// Section prints a bold heading preceded by a blank line.
func (p *Printer) Section(title string) {
	_, _ = fmt.Fprintln(p.out)
	p.Printf("%s", styles.HeaderStyle.Render(title))
}

// CheckItem prints an indented checklist entry with a check mark.
func (p *Printer) CheckItem(label, detail string) {
	p.item(styles.SuccessStyle.Render("✓"), label, detail)
}

func (p *Printer) WarnItem(label, detail string) {
	p.item(styles.WarningStyle.Render("!"), label, detail)
}

func (p *Printer) FailItem(label, detail string) {
	p.item(styles.ErrorStyle.Render("✗"), label, detail)
}

func (p *Printer) prefixed(icon, format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, "%s %s\n", icon, fmt.Sprintf(format, args...))
}

func (p *Printer) item(icon, label, detail string) {
	if detail == "" {
		_, _ = fmt.Fprintf(p.out, "  %s %s\n", icon, label)
		return
	}
	_, _ = fmt.Fprintf(p.out, "  %s %s %s\n", icon, label, styles.MutedStyle.Render(detail))
}
