// Package report prints pass reports for humans.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/derive/internal/core/domain"
	"go.trai.ch/derive/internal/ui/output"
	"go.trai.ch/derive/internal/ui/style"
)

// Renderer writes one block per pass: a header, one line per changed artifact
// and unit failure, and a summary line. Unchanged artifacts are only counted.
type Renderer struct {
	w io.Writer

	header    lipgloss.Style
	faint     lipgloss.Style
	created   lipgloss.Style
	touched   lipgloss.Style
	deleted   lipgloss.Style
	failed    lipgloss.Style
	succeeded lipgloss.Style
}

// NewRenderer creates a renderer on w. A nil w means stdout.
func NewRenderer(w io.Writer) *Renderer {
	if w == nil {
		w = os.Stdout
	}
	lr := lipgloss.NewRenderer(w, termenv.WithProfile(output.ColorProfile()))

	return &Renderer{
		w:         w,
		header:    lr.NewStyle().Foreground(style.Iris).Bold(true),
		faint:     lr.NewStyle().Foreground(style.Slate),
		created:   lr.NewStyle().Foreground(style.Green),
		touched:   lr.NewStyle().Foreground(style.Yellow),
		deleted:   lr.NewStyle().Foreground(style.Red),
		failed:    lr.NewStyle().Foreground(style.Red).Bold(true),
		succeeded: lr.NewStyle().Foreground(style.Green).Bold(true),
	}
}

// Render writes r.
func (rr *Renderer) Render(r *domain.PassReport) error {
	var b strings.Builder

	if r.Skipped {
		fmt.Fprintf(&b, "%s %s\n",
			rr.header.Render(fmt.Sprintf("pass %d", r.ID)),
			rr.faint.Render("skipped: output disabled"))
		_, err := io.WriteString(rr.w, b.String())
		return err
	}

	fmt.Fprintf(&b, "%s %s\n",
		rr.header.Render(fmt.Sprintf("pass %d", r.ID)),
		rr.faint.Render(fmt.Sprintf("%d sources, %d affected, %s", r.Sources, len(r.Affected), round(r.Duration))))

	for _, a := range r.Created {
		fmt.Fprintf(&b, "  %s %s\n", rr.created.Render(style.Plus), a)
	}
	for _, a := range r.Touched {
		fmt.Fprintf(&b, "  %s %s\n", rr.touched.Render(style.Tilde), a)
	}
	for _, a := range r.Deleted {
		fmt.Fprintf(&b, "  %s %s\n", rr.deleted.Render(style.Minus), a)
	}
	for _, a := range r.DeleteFailures {
		fmt.Fprintf(&b, "  %s %s %s\n", rr.failed.Render(style.Warning), a, rr.faint.Render("(delete failed)"))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "  %s %s: %s\n", rr.failed.Render(style.Cross), f.Unit, f.Message)
	}

	mark := rr.succeeded.Render(style.Check)
	if len(r.Failures) > 0 || len(r.DeleteFailures) > 0 {
		mark = rr.failed.Render(style.Warning)
	}
	fmt.Fprintf(&b, "%s %s\n", mark, summary(r))

	_, err := io.WriteString(rr.w, b.String())
	return err
}

func summary(r *domain.PassReport) string {
	parts := []string{
		fmt.Sprintf("%d created", len(r.Created)),
		fmt.Sprintf("%d touched", len(r.Touched)),
		fmt.Sprintf("%d unchanged", len(r.Unchanged)),
		fmt.Sprintf("%d deleted", len(r.Deleted)),
	}
	if n := len(r.Failures); n > 0 {
		parts = append(parts, plural(n, "failed unit", "failed units"))
	}
	return strings.Join(parts, ", ") + " " + style.Dot + " " + plural(r.Entries, "artifact", "artifacts")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

func round(d time.Duration) time.Duration {
	switch {
	case d >= time.Second:
		return d.Round(10 * time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(100 * time.Microsecond)
	default:
		return d
	}
}
