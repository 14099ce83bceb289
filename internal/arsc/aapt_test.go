package arsc

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/shogo82148/androidbinary"

	"github.com/mobilechromeapps/apkpack/internal/chunk"
	"github.com/mobilechromeapps/apkpack/internal/fixture"
)

// Tables compiled by aapt, taken from the androidbinary test suite (MIT).
var aaptTables = []struct {
	file string
	pkg  string
}{
	{"basic.arsc", "net.sorablue.shogo.FWMeasure"},
	{"helloworld.arsc", "com.example.helloworld"},
}

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestAAPTRoundTrip(t *testing.T) {
	for _, tt := range aaptTables {
		t.Run(tt.file, func(t *testing.T) {
			in := readTestdata(t, tt.file)
			tbl := mustParse(t, in)
			if got := tbl.PackageName(); got != tt.pkg {
				t.Errorf("PackageName() = %q, want %q", got, tt.pkg)
			}
			out, err := tbl.Serialize()
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			if !bytes.Equal(in, out) {
				t.Errorf("round trip changed %d input bytes into %d output bytes", len(in), len(out))
			}
		})
	}
}

func TestAAPTChangePackageName(t *testing.T) {
	for _, tt := range aaptTables {
		for _, name := range []string{"a.b", "com.example.a.much.longer.package.name"} {
			t.Run(tt.file+"/"+name, func(t *testing.T) {
				in := readTestdata(t, tt.file)
				tbl := mustParse(t, in)
				if err := tbl.ChangePackageName(name); err != nil {
					t.Fatalf("ChangePackageName() error = %v", err)
				}
				out, err := tbl.Serialize()
				if err != nil {
					t.Fatalf("Serialize() error = %v", err)
				}
				if err := chunk.Validate(out); err != nil {
					t.Fatalf("Validate() error = %v", err)
				}

				off := bytes.Index(in, fixture.PackageName(tt.pkg))
				if off < 0 {
					t.Fatal("name field not found")
				}
				end := off + 2*NameCapacity
				if !bytes.Equal(out[off:end], fixture.PackageName(name)) {
					t.Errorf("name field = %x, want the new name zero-padded", out[off:end])
				}
				if !bytes.Equal(out[:off], in[:off]) || !bytes.Equal(out[end:], in[end:]) {
					t.Error("bytes outside the name field changed")
				}

				if _, err := androidbinary.NewTableFile(bytes.NewReader(out)); err != nil {
					t.Errorf("androidbinary.NewTableFile() error = %v", err)
				}
			})
		}
	}
}
