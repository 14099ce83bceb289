package ui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrAborted is returned when the ABI picker is closed without a choice.
var ErrAborted = errors.New("selection aborted")

// abiPicker asks which ABI a set of flat native libraries is built for.
type abiPicker struct {
	abis    []string
	host    int
	cursor  int
	chosen  int
	aborted bool
}

func newABIPicker(abis []string, host int) abiPicker {
	p := abiPicker{abis: abis, host: host, chosen: -1}
	if host >= 0 && host < len(abis) {
		p.cursor = host
	}
	return p
}

func (p abiPicker) Init() tea.Cmd { return nil }

func (p abiPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch s := key.String(); s {
	case "up", "k":
		p.cursor = max(p.cursor-1, 0)
	case "down", "j":
		p.cursor = min(p.cursor+1, len(p.abis)-1)
	case "enter", " ":
		p.chosen = p.cursor
		return p, tea.Quit
	case "ctrl+c", "esc", "q":
		p.aborted = true
		return p, tea.Quit
	default:
		// 1-9 pick directly.
		if len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			if i := int(s[0] - '1'); i < len(p.abis) {
				p.chosen = i
				return p, tea.Quit
			}
		}
	}
	return p, nil
}

func (p abiPicker) View() string {
	var b strings.Builder
	b.WriteString(BoldStyle.Render("Which ABI are the native libraries built for?") + "\n")
	hint := "↑/↓ move • enter choose • 1-9 pick • q quit"
	if NoColor {
		hint = "up/down move, enter choose, 1-9 pick, q quit"
	}
	b.WriteString(DimStyle.Render(hint) + "\n\n")

	for i, abi := range p.abis {
		line := fmt.Sprintf("%d. %s", i+1, abi)
		if i == p.cursor {
			b.WriteString("> " + InfoStyle.Render(line))
		} else {
			b.WriteString("  " + DimStyle.Render(line))
		}
		if i == p.host {
			b.WriteString(" (this machine)")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// SelectABI lets the user pick one of abis and returns its index. host is
// preselected and marked; pass -1 when the host has no Android ABI.
func SelectABI(abis []string, host int) (int, error) {
	if len(abis) == 0 {
		return -1, errors.New("no ABIs to choose from")
	}

	prog := tea.NewProgram(newABIPicker(abis, host), tea.WithContext(GetContext()), tea.WithOutput(stderr))
	final, err := prog.Run()
	if err != nil {
		if IsInterrupted() {
			return -1, ErrInterrupted
		}
		return -1, fmt.Errorf("ABI picker failed: %w", err)
	}

	p := final.(abiPicker)
	if p.aborted {
		return -1, ErrAborted
	}
	return p.chosen, nil
}
