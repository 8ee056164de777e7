package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent = lipgloss.Color("#8BC34A")
	colorWarn   = lipgloss.Color("#FFC107")
	colorError  = lipgloss.Color("#e53935")
	colorMuted  = lipgloss.Color("#7a8494")
)

// styles is the palette bound to one output's renderer.
type styles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
	muted   lipgloss.Style
	label   lipgloss.Style
	number  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	re := lipgloss.NewRenderer(w)
	return styles{
		title:   re.NewStyle().Bold(true).Foreground(colorAccent),
		heading: re.NewStyle().Bold(true).Underline(true),
		ok:      re.NewStyle().Foreground(colorAccent),
		warn:    re.NewStyle().Foreground(colorWarn),
		err:     re.NewStyle().Foreground(colorError),
		muted:   re.NewStyle().Foreground(colorMuted),
		label:   re.NewStyle().Width(36),
		number:  re.NewStyle().Width(8).Align(lipgloss.Right),
	}
}

// RenderText writes a terminal summary of r. Colors are dropped
// automatically when w is not a terminal.
func RenderText(w io.Writer, r Report) error {
	st := newStyles(w)
	var sb strings.Builder

	sb.WriteString(st.title.Render("Discovery report") + "\n\n")
	sb.WriteString(summaryLine(st, r) + "\n")
	fmt.Fprintf(&sb, "strategies executed: %d, dropped without id: %d, duration: %s\n",
		r.Executed, r.Dropped, r.Duration.Round(time.Millisecond))

	sb.WriteString("\n" + st.heading.Render("Unique yield by strategy") + "\n")
	for _, y := range r.Ranked {
		row := st.label.Render(truncate(y.Label, 35)) +
			st.number.Render(fmt.Sprintf("%d", y.Yield)) +
			st.number.Render(fmt.Sprintf("%d", y.Fetched))
		switch {
		case y.Failed:
			row = st.err.Render(row + "  failed")
		case y.Interrupted:
			row = st.warn.Render(row + "  interrupted")
		case y.Yield == 0:
			row = st.muted.Render(row)
		}
		sb.WriteString(row + "\n")
	}

	if len(r.Failures) > 0 {
		sb.WriteString("\n" + st.heading.Render("Failures") + "\n")
		for _, f := range r.Failures {
			status := "-"
			if f.Status != 0 {
				status = fmt.Sprintf("HTTP %d", f.Status)
			}
			line := fmt.Sprintf("%s: %s after %d attempt(s): %s", f.Label, status, f.Attempts, f.Message)
			sb.WriteString(st.err.Render(line) + "\n")
		}
	}

	if len(r.Interrupted) > 0 {
		sb.WriteString("\n" + st.warn.Render("interrupted: "+strings.Join(r.Interrupted, ", ")) + "\n")
	}

	if len(r.ZeroYield) > 0 {
		sb.WriteString("\n" + st.muted.Render(fmt.Sprintf("%d strategies contributed nothing new", len(r.ZeroYield))) + "\n")
	}
	if r.Missed > 0 {
		sb.WriteString(st.muted.Render(fmt.Sprintf("%d id probes found no property", r.Missed)) + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func summaryLine(st styles, r Report) string {
	if r.Expected == nil {
		return fmt.Sprintf("total distinct entities: %d (no expected count declared)", r.Total)
	}
	if r.Reached {
		return st.ok.Render(fmt.Sprintf("total distinct entities: %d of %d expected", r.Total, *r.Expected))
	}
	return st.warn.Render(fmt.Sprintf("total distinct entities: %d of %d expected, shortfall %d",
		r.Total, *r.Expected, r.Shortfall))
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
