package ui

import (
	"fmt"
	"strings"
)

// Logo is printed above the package command's output.
const Logo = `
             _                      _
  __ _ _ __ | | ___ __   __ _  ___| | __
 / _` + "`" + ` | '_ \| |/ / '_ \ / _` + "`" + ` |/ __| |/ /
| (_| | |_) |   <| |_) | (_| | (__|   <
 \__,_| .__/|_|\_\ .__/ \__,_|\___|_|\_\
      |_|        |_|
`

// Version holds the application version, set at startup.
var Version = "dev"

// RenderLogo returns the styled logo with the version underneath.
func RenderLogo() string {
	var b strings.Builder
	for _, line := range strings.Split(Logo, "\n") {
		if line != "" {
			b.WriteString(LogoStyle.Render(line) + "\n")
		}
	}
	v := Version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	b.WriteString("\n" + DimStyle.Render(v) + "\n\n")
	return b.String()
}

// StepTracker numbers the stages of a packaging run.
type StepTracker struct {
	current int
	total   int
}

// NewStepTracker creates a tracker for total steps.
func NewStepTracker(total int) *StepTracker {
	return &StepTracker{total: total}
}

// StartStep begins the next step and prints its header.
func (s *StepTracker) StartStep(name string) {
	s.current++
	if silent() {
		return
	}
	fmt.Fprintln(stderr)
	if NoColor {
		fmt.Fprintf(stderr, "=== STEP %d/%d: %s ===\n", s.current, s.total, strings.ToUpper(name))
		return
	}
	header := fmt.Sprintf(" %d/%d > %s", s.current, s.total, strings.ToUpper(name))
	fmt.Fprintln(stderr, BoldStyle.Render(header))
}

// Skip advances past a step that does not apply to this run.
func (s *StepTracker) Skip() {
	s.current++
}

// KeyValue is one line of a summary.
type KeyValue struct {
	Key   string
	Value string
}

// PrintSummary prints a title and key-value pairs in order to stderr.
func PrintSummary(title string, items []KeyValue) {
	if silent() {
		return
	}
	if title != "" {
		fmt.Fprintln(stderr, Title(title))
	}
	width := 0
	for _, item := range items {
		width = max(width, len(item.Key))
	}
	for _, item := range items {
		fmt.Fprintf(stderr, "  %s  %s\n", Bold(fmt.Sprintf("%-*s", width, item.Key)), item.Value)
	}
}
