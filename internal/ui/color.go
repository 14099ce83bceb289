// Package ui renders apkpack's terminal output: styled status lines,
// step headers, progress, prompts and the ABI selector.
package ui

import (
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// NoColor disables colored output when true.
	NoColor = false

	// Styles
	TitleStyle   lipgloss.Style
	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	InfoStyle    lipgloss.Style
	DimStyle     lipgloss.Style
	BoldStyle    lipgloss.Style
	CodeStyle    lipgloss.Style
	AccentStyle  lipgloss.Style
	LogoStyle    lipgloss.Style
)

func init() {
	// Check for NO_COLOR environment variable
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		NoColor = true
	}

	initStyles()
}

// initStyles initializes the lipgloss styles.
func initStyles() {
	if NoColor {
		TitleStyle = lipgloss.NewStyle()
		SuccessStyle = lipgloss.NewStyle()
		ErrorStyle = lipgloss.NewStyle()
		WarningStyle = lipgloss.NewStyle()
		InfoStyle = lipgloss.NewStyle()
		DimStyle = lipgloss.NewStyle()
		BoldStyle = lipgloss.NewStyle().Bold(true)
		CodeStyle = lipgloss.NewStyle()
		AccentStyle = lipgloss.NewStyle().Bold(true)
		LogoStyle = lipgloss.NewStyle()
		return
	}

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7fa36b")) // Android green, muted

	SuccessStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6b8c6b"))

	AccentStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7fa36b"))

	LogoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#5f8f5f"))

	ErrorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#c87070"))

	WarningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#c9a866"))

	InfoStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#8a9fc9"))

	DimStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6a6a74"))

	BoldStyle = lipgloss.NewStyle().
		Bold(true)

	CodeStyle = lipgloss.NewStyle().
		Background(lipgloss.Color("#2a2a30")).
		Foreground(lipgloss.Color("#c8c8d0")).
		Padding(0, 1)
}

// SetNoColor enables or disables colored output.
func SetNoColor(noColor bool) {
	NoColor = noColor
	initStyles()
}

// Title formats text as a title.
func Title(s string) string {
	return TitleStyle.Render(s)
}

// Success formats text as success message.
func Success(s string) string {
	return SuccessStyle.Render(s)
}

// Error formats text as error message.
func Error(s string) string {
	return ErrorStyle.Render(s)
}

// Warning formats text as warning message.
func Warning(s string) string {
	return WarningStyle.Render(s)
}

// Info formats text as info message.
func Info(s string) string {
	return InfoStyle.Render(s)
}

// Dim formats text as dimmed.
func Dim(s string) string {
	return DimStyle.Render(s)
}

// Bold formats text as bold.
func Bold(s string) string {
	return BoldStyle.Render(s)
}

// Code formats text as inline code.
func Code(s string) string {
	return CodeStyle.Render(s)
}


var jsonKeyLine = regexp.MustCompile(`^(\s*)("(?:[^"\\]|\\.)*")(: )(.*)$`)

// ColorizeJSON colors the keys and scalar values of indented JSON, one
// line at a time.
func ColorizeJSON(s string) string {
	if NoColor {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		m := jsonKeyLine.FindStringSubmatch(line)
		if m == nil {
			lines[i] = jsonValue(line)
			continue
		}
		lines[i] = m[1] + InfoStyle.Render(m[2]) + m[3] + jsonValue(m[4])
	}
	return strings.Join(lines, "\n")
}

func jsonValue(v string) string {
	trimmed := strings.TrimSpace(strings.TrimSuffix(v, ","))
	comma := strings.HasSuffix(v, ",")
	var out string
	switch {
	case trimmed == "", trimmed == "{", trimmed == "[", trimmed == "}", trimmed == "]":
		return v
	case strings.HasPrefix(trimmed, `"`):
		out = SuccessStyle.Render(trimmed)
	case trimmed == "null":
		out = DimStyle.Render(trimmed)
	default:
		out = WarningStyle.Render(trimmed)
	}
	indent := v[:len(v)-len(strings.TrimLeft(v, " "))]
	if comma {
		out += ","
	}
	return indent + out
}
