// Package output renders certiflow results in the terminal.
//
// [Printer] writes styled text with lipgloss. Styles are bound to the
// writer's renderer, so output to a file or a buffer carries no escape codes.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"certiflow/internal/objective"
	"certiflow/internal/status"
)

const progressWidth = 20

type styles struct {
	box     lipgloss.Style
	title   lipgloss.Style
	step    lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, color bool) styles {
	s := styles{
		box:     r.NewStyle().Border(lipgloss.DoubleBorder()).Padding(0, 1),
		title:   r.NewStyle().Bold(true),
		step:    r.NewStyle().Bold(true),
		success: r.NewStyle(),
		failure: r.NewStyle().Bold(true),
		warning: r.NewStyle(),
		muted:   r.NewStyle(),
	}
	if !color {
		return s
	}
	s.box = s.box.BorderForeground(lipgloss.Color("63"))
	s.step = s.step.Foreground(lipgloss.Color("39"))
	s.success = s.success.Foreground(lipgloss.Color("42"))
	s.failure = s.failure.Foreground(lipgloss.Color("196"))
	s.warning = s.warning.Foreground(lipgloss.Color("214"))
	s.muted = s.muted.Foreground(lipgloss.Color("245"))
	return s
}

// Printer writes command output.
type Printer struct {
	out      io.Writer
	renderer *lipgloss.Renderer
	styles   styles
}

// NewPrinter creates a printer writing to stdout.
func NewPrinter() *Printer {
	return NewPrinterWithWriter(os.Stdout)
}

// NewPrinterWithWriter creates a printer writing to w.
// This is useful for testing.
func NewPrinterWithWriter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{out: w, renderer: r, styles: newStyles(r, true)}
}

// SetColor enables or disables colors.
func (p *Printer) SetColor(enabled bool) {
	p.styles = newStyles(p.renderer, enabled)
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// Banner prints the workflow header.
func (p *Printer) Banner(project, version, dossierID string) {
	if project == "" {
		project = "N/A"
	}
	if version == "" {
		version = "N/A"
	}
	body := p.styles.title.Render("Workflow de certification") + "\n" +
		fmt.Sprintf("Projet : %s | Version STI : %s\n", project, version) +
		fmt.Sprintf("Dossier : %s", dossierID)
	p.printf("%s\n", p.styles.box.Render(body))
}

// StepStart prints the step header before it runs.
func (p *Printer) StepStart(index, total int, stepID string) {
	p.printf("%s\n", p.styles.step.Render(fmt.Sprintf("[%d/%d] %s", index, total, stepID)))
}

// StepResult prints the outcome of a step.
func (p *Printer) StepResult(stepID string, err error, elapsed time.Duration) {
	d := elapsed.Round(time.Millisecond)
	if err != nil {
		p.printf("  %s %s (%s): %v\n", p.styles.failure.Render("✗"), stepID, d, err)
		return
	}
	p.printf("  %s %s (%s)\n", p.styles.success.Render("✓"), stepID, d)
}

// RunSummary prints the final dossier status of a run.
func (p *Printer) RunSummary(dossierID string, s status.Dossier, elapsed time.Duration) {
	var line string
	switch s {
	case status.DossierDone:
		line = p.styles.success.Render("✓ " + strings.ToUpper(s.String()))
	case status.DossierFailed:
		line = p.styles.failure.Render("✗ " + strings.ToUpper(s.String()))
	default:
		line = p.styles.warning.Render("○ " + strings.ToUpper(s.String()))
	}
	body := line + "\n" +
		fmt.Sprintf("Dossier : %s\n", dossierID) +
		fmt.Sprintf("Durée : %s", elapsed.Round(time.Millisecond))
	p.printf("%s\n", p.styles.box.Render(body))
}

// DossierStatus prints the status read from a marker file.
func (p *Printer) DossierStatus(dossierID string, s status.Dossier) {
	p.printf("%s: %s\n", dossierID, p.statusStyle(s).Render(s.String()))
}

// NoStatus reports a dossier without marker file.
func (p *Printer) NoStatus(dossierID string) {
	p.printf("%s: %s\n", dossierID, p.styles.muted.Render("aucun statut enregistré"))
}

func (p *Printer) statusStyle(s status.Dossier) lipgloss.Style {
	switch s {
	case status.DossierDone:
		return p.styles.success
	case status.DossierFailed:
		return p.styles.failure
	case status.DossierIncomplete:
		return p.styles.warning
	}
	return p.styles.muted
}

// ObjectiveReport prints one line per evaluated objective.
func (p *Printer) ObjectiveReport(results []objective.Result) {
	for _, r := range results {
		var mark string
		switch r.Status {
		case status.ObjectiveReached:
			mark = p.styles.success.Render("✓")
		case status.ObjectiveBlocked:
			mark = p.styles.failure.Render("✗")
		default:
			mark = p.styles.muted.Render("○")
		}
		p.printf("%s %s: %s\n", mark, r.ObjectiveID, r.Status)
		if detail := objectiveDetail(r); detail != "" {
			p.printf("    %s\n", p.styles.muted.Render(detail))
		}
		if r.Err != nil {
			p.printf("    %s\n", p.styles.muted.Render(r.Err.Error()))
		}
		if len(r.Skipped) > 0 {
			p.printf("    %s\n", p.styles.warning.Render("actions ignorées: "+strings.Join(r.Skipped, ", ")))
		}
	}
}

func objectiveDetail(r objective.Result) string {
	var parts []string
	if r.Name != "" {
		parts = append(parts, r.Name)
	}
	if r.Criticality != "" {
		parts = append(parts, "criticité: "+r.Criticality)
	}
	return strings.Join(parts, " | ")
}

// Progress prints a completion bar for an objective.
func (p *Printer) Progress(objectiveID string, ratio float64) {
	filled := int(ratio*progressWidth + 0.5)
	if filled > progressWidth {
		filled = progressWidth
	}
	if filled < 0 {
		filled = 0
	}
	bar := p.styles.success.Render(strings.Repeat("█", filled)) +
		p.styles.muted.Render(strings.Repeat("░", progressWidth-filled))
	p.printf("%-20s %s %3.0f%%\n", objectiveID, bar, ratio*100)
}

// StepRow describes one loaded step for [Printer.StepList].
type StepRow struct {
	ID     string
	Kind   string
	Script string
}

// StepList prints the loaded workflow steps.
func (p *Printer) StepList(rows []StepRow) {
	for i, r := range rows {
		line := fmt.Sprintf("%2d. %-20s %-18s", i+1, r.ID, r.Kind)
		if r.Script != "" {
			line += " " + p.styles.muted.Render(r.Script)
		}
		p.printf("%s\n", strings.TrimRight(line, " "))
	}
}

// Warning prints a warning line.
func (p *Printer) Warning(msg string) {
	p.printf("%s\n", p.styles.warning.Render("⚠ "+msg))
}

// Error prints an error line.
func (p *Printer) Error(msg string) {
	p.printf("%s\n", p.styles.failure.Render("✗ "+msg))
}
