package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func press(t *testing.T, p abiPicker, keys ...tea.KeyMsg) (abiPicker, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var m tea.Model
		m, cmd = p.Update(k)
		p = m.(abiPicker)
	}
	return p, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestABIPicker(t *testing.T) {
	abis := []string{"arm64-v8a", "armeabi-v7a", "x86_64"}

	tests := []struct {
		name        string
		host        int
		keys        []tea.KeyMsg
		wantChosen  int
		wantAborted bool
	}{
		{"enter takes the host", 2, []tea.KeyMsg{{Type: tea.KeyEnter}}, 2, false},
		{"no host starts at the top", -1, []tea.KeyMsg{{Type: tea.KeyEnter}}, 0, false},
		{"move down", 0, []tea.KeyMsg{runes("j"), {Type: tea.KeyDown}, {Type: tea.KeyEnter}}, 2, false},
		{"clamped at the bottom", 2, []tea.KeyMsg{{Type: tea.KeyDown}, {Type: tea.KeyEnter}}, 2, false},
		{"clamped at the top", 0, []tea.KeyMsg{runes("k"), {Type: tea.KeyUp}, {Type: tea.KeyEnter}}, 0, false},
		{"number key", 0, []tea.KeyMsg{runes("2")}, 1, false},
		{"number past the list", 0, []tea.KeyMsg{runes("7"), {Type: tea.KeyEnter}}, 0, false},
		{"escape", 0, []tea.KeyMsg{{Type: tea.KeyEscape}}, -1, true},
		{"q", 1, []tea.KeyMsg{runes("q")}, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, cmd := press(t, newABIPicker(abis, tt.host), tt.keys...)
			if p.chosen != tt.wantChosen || p.aborted != tt.wantAborted {
				t.Errorf("chosen = %d, aborted = %v; want %d, %v", p.chosen, p.aborted, tt.wantChosen, tt.wantAborted)
			}
			if cmd == nil {
				t.Error("picker did not quit")
			}
		})
	}
}

func TestABIPickerView(t *testing.T) {
	SetNoColor(true)
	t.Cleanup(func() { SetNoColor(false) })

	view := newABIPicker([]string{"arm64-v8a", "x86", "x86_64"}, 1).View()
	for _, want := range []string{"Which ABI", "  1. arm64-v8a\n", "> 2. x86 (this machine)\n", "3. x86_64"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}
