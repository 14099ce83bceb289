package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// VerbWidth is the fixed width for right-aligned action verbs in status lines.
const VerbWidth = 12

// Verbosity levels.
const (
	VerbQuiet   = -1 // -q: results and errors only
	VerbNormal  = 0
	VerbVerbose = 1 // --verbose: edited fields, archive entries
	VerbDebug   = 2 // chunk offsets and pool sizes
)

// Output controls, set by main from CLI options.
var (
	Verbosity int
	QuietMode bool
	JSONMode  bool // suppresses spinners, progress and status

	stderr io.Writer = os.Stderr
	stdout io.Writer = os.Stdout
)

// SetVerbosity sets the package verbosity level. Quiet mode follows VerbQuiet.
func SetVerbosity(v int) {
	Verbosity = v
	QuietMode = v <= VerbQuiet
}

// SetJSONMode sets whether output is machine-readable JSON.
func SetJSONMode(json bool) {
	JSONMode = json
}

func silent() bool {
	return QuietMode || JSONMode
}

func statusLine(style func(...string) string, verb, detail string) string {
	return fmt.Sprintf("%s  %s", style(fmt.Sprintf("%*s", VerbWidth, verb)), detail)
}

// Status prints a verb-aligned line to stderr, e.g. "     Editing  AndroidManifest.xml".
func Status(verb, detail string) {
	if silent() {
		return
	}
	fmt.Fprintln(stderr, statusLine(AccentStyle.Render, verb, detail))
}

// Detail prints a status line only in verbose mode.
func Detail(verb, detail string) {
	if silent() || Verbosity < VerbVerbose {
		return
	}
	fmt.Fprintln(stderr, statusLine(DimStyle.Render, verb, detail))
}

// Debugf prints a debug line only at VerbDebug.
func Debugf(format string, args ...any) {
	if Verbosity < VerbDebug {
		return
	}
	fmt.Fprintf(stderr, format, args...)
	if !strings.HasSuffix(format, "\n") {
		fmt.Fprintln(stderr)
	}
}

// Result writes scriptable output to stdout, even in quiet mode.
func Result(s string) {
	fmt.Fprintln(stdout, s)
}

// WarningStatus prints a warning line. Shown even in quiet mode.
func WarningStatus(verb, detail string) {
	fmt.Fprintln(stderr, statusLine(WarningStyle.Render, verb, detail))
}

// ErrorStatus prints an error line. Shown even in quiet mode.
func ErrorStatus(verb, detail string) {
	fmt.Fprintln(stderr, statusLine(ErrorStyle.Render, verb, detail))
}

// FormatError builds a multi-line "Error -> why -> fix" message.
// Empty why or fix lines are omitted.
func FormatError(what, why, fix string) string {
	var b strings.Builder
	b.WriteString("Error: " + what)
	for _, line := range []string{why, fix} {
		if line != "" {
			b.WriteString("\n  → " + line)
		}
	}
	return b.String()
}
