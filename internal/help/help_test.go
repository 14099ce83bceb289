package help

import (
	"strings"
	"testing"

	"github.com/mobilechromeapps/apkpack/internal/ui"
)

func TestSuggest(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"pkg", "package"},
		{"pakcage", "package"},
		{"insp", "inspect"},
		{"--verify", "verify"},
		{"build", "package"},
		{"info", "inspect"},
		{"edt", "edit"},
		{"zzzzzz", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Suggest(tt.input); got != tt.want {
			t.Errorf("Suggest(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "edit", 4},
		{"edit", "edit", 0},
		{"pakcage", "package", 2},
		{"verfy", "verify", 1},
	}
	for _, tt := range tests {
		if got := distance(tt.a, tt.b); got != tt.want {
			t.Errorf("distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestHelpMentionsFlags(t *testing.T) {
	ui.SetNoColor(true)
	t.Cleanup(func() { ui.SetNoColor(false) })

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"root", RootHelp(), []string{"package", "edit", "inspect", "verify", "--no-color"}},
		{"package", PackageHelp(), []string{"--keystore", "--native-libs", "--keep-work", "env:KEYSTORE_PASSWORD"}},
		{"edit", EditHelp(), []string{"--manifest", "--arsc", "--version-code"}},
		{"inspect", InspectHelp(), []string{"--json"}},
		{"verify", VerifyHelp(), []string{"fingerprint"}},
	}
	for _, tt := range tests {
		for _, w := range tt.want {
			if !strings.Contains(tt.text, w) {
				t.Errorf("%s help missing %q", tt.name, w)
			}
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	ui.SetNoColor(true)
	t.Cleanup(func() { ui.SetNoColor(false) })

	out, err := RenderMarkdown("# com.example.myapp\n\n| field | value |\n|---|---|\n| label | MyApp |\n")
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}
	for _, w := range []string{"com.example.myapp", "MyApp"} {
		if !strings.Contains(out, w) {
			t.Errorf("rendered report missing %q:\n%s", w, out)
		}
	}
}
