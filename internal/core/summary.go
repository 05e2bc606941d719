package core

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"choco-cli/internal/types"
)

const AppName = "Chocolatey"

type summaryStyles struct {
	heading lipgloss.Style
	warn    lipgloss.Style
	err     lipgloss.Style
}

func newSummaryStyles(w io.Writer) summaryStyles {
	renderer := lipgloss.NewRenderer(w)
	return summaryStyles{
		heading: renderer.NewStyle().Bold(true),
		warn:    renderer.NewStyle().Foreground(lipgloss.Color("11")),
		err:     renderer.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// ReportActionSummary prints the end-of-command tally and returns the
// number of failed packages. Inconclusive results count toward the total
// but not toward successes.
func ReportActionSummary(w io.Writer, results *types.ResultSet, action string) int {
	styles := newSummaryStyles(w)
	all := results.Results()

	var successes, warnings, reboots, failures []*types.PackageResult
	for _, result := range all {
		if result.Success && !result.Inconclusive {
			successes = append(successes, result)
		}
		if !result.Success {
			failures = append(failures, result)
		}
		if result.HasWarning() {
			warnings = append(warnings, result)
		}
		if result.RebootPending() {
			reboots = append(reboots, result)
		}
	}

	failedNote := ""
	if len(failures) > 0 {
		failedNote = fmt.Sprintf(" %d packages failed.", len(failures))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.warn.Render(fmt.Sprintf("%s %s %d/%d packages.%s", AppName, action, len(successes), len(all), failedNote)))

	if len(all) >= 5 && len(successes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.heading.Render(capitalize(action)+":"))
		for _, result := range successes {
			fmt.Fprintf(w, " - %s v%s\n", result.Name, result.Version)
		}
	}

	if len(warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.warn.Render("Warnings:"))
		for _, result := range warnings {
			msg, _ := result.FirstMessage(types.MessageKindWarning)
			fmt.Fprintln(w, styles.warn.Render(fmt.Sprintf(" - %s - %s", result.Name, msg.Text)))
		}
	}

	if len(reboots) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.warn.Render("Packages requiring reboot:"))
		for _, result := range reboots {
			fmt.Fprintln(w, styles.warn.Render(fmt.Sprintf(" - %s (exit code %d)", result.Name, result.ExitCode)))
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.warn.Render("The recent package changes indicate a reboot is necessary.\n Please reboot at your earliest convenience."))
	}

	if len(failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.err.Render("Failures"))
		for _, result := range failures {
			fmt.Fprintln(w, styles.err.Render(" - "+failureLine(result)))
		}
	}
	return len(failures)
}

func failureLine(result *types.PackageResult) string {
	var b strings.Builder
	b.WriteString(result.Name)
	if result.ExitCode != 0 {
		fmt.Fprintf(&b, " (exited %d)", result.ExitCode)
	}
	if msg, ok := result.FirstMessage(types.MessageKindError); ok {
		b.WriteString(" - ")
		b.WriteString(msg.Text)
	}
	return b.String()
}

func capitalize(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
