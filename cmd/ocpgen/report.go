package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/broady/ocpgen"
)

// errReported marks a failure whose details were already printed.
var errReported = errors.New("reported")

// reporter prints progress to out and problems to errw. Styles degrade to
// plain text when the writer is not a terminal.
type reporter struct {
	out  io.Writer
	errw io.Writer

	success lipgloss.Style
	failure lipgloss.Style
	detail  lipgloss.Style
}

func newReporter(out, errw io.Writer) *reporter {
	ro := lipgloss.NewRenderer(out)
	re := lipgloss.NewRenderer(errw)
	return &reporter{
		out:     out,
		errw:    errw,
		success: ro.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		failure: re.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		detail:  ro.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (r *reporter) step(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *reporter) done(msg string) {
	fmt.Fprintln(r.out, r.success.Render(msg))
}

func (r *reporter) note(format string, args ...any) {
	fmt.Fprintln(r.out, r.detail.Render(fmt.Sprintf(format, args...)))
}

func (r *reporter) violations(vs []string) {
	fmt.Fprintln(r.errw, r.failure.Render("Validation errors:"))
	for _, v := range vs {
		fmt.Fprintf(r.errw, "  - %s\n", v)
	}
}

// fail prints err unless it was already reported.
func (r *reporter) fail(err error) {
	if errors.Is(err, errReported) {
		return
	}
	msg := err.Error()
	var e *ocpgen.Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	fmt.Fprintf(r.errw, "%s %s\n", r.failure.Render("Error:"), msg)
}
