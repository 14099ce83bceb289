package axml

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/mobilechromeapps/apkpack/internal/chunk"
	"github.com/mobilechromeapps/apkpack/internal/fixture"
)

func manifests() map[string]fixture.Manifest {
	utf8 := fixture.Template()
	utf8.UTF8 = true

	sdk := fixture.Template()
	sdk.MinSDK = 21

	shared := fixture.Template()
	shared.ActivityLabel = shared.Label

	obfuscated := fixture.Template()
	obfuscated.ObfuscateNames = true

	return map[string]fixture.Manifest{
		"template":   fixture.Template(),
		"utf8":       utf8,
		"uses-sdk":   sdk,
		"shared":     shared,
		"obfuscated": obfuscated,
	}
}

func mustParse(t *testing.T, b []byte) *Document {
	t.Helper()
	d, err := Parse(b)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return d
}

func TestRoundTrip(t *testing.T) {
	for name, m := range manifests() {
		t.Run(name, func(t *testing.T) {
			in := m.Bytes()
			d := mustParse(t, in)
			if d.State() != chunk.Parsed {
				t.Errorf("State() = %v, want parsed", d.State())
			}

			out, err := d.Serialize()
			if err != nil {
				t.Fatalf("Serialize() error = %v", err)
			}
			if !bytes.Equal(in, out) {
				t.Errorf("round trip changed %d input bytes into %d output bytes", len(in), len(out))
			}
			if d.State() != chunk.Serialized {
				t.Errorf("State() = %v, want serialized", d.State())
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	good := fixture.Template().Bytes()

	tests := []struct {
		name string
		b    func() []byte
	}{
		{"empty", func() []byte { return nil }},
		{"truncated by one byte", func() []byte { return good[:len(good)-1] }},
		{"trailing byte", func() []byte { return append(bytes.Clone(good), 0) }},
		{"wrong signature", func() []byte {
			b := bytes.Clone(good)
			binary.LittleEndian.PutUint16(b[0:], chunk.TypeTable)
			return b
		}},
		{"string pool size overruns document", func() []byte {
			b := bytes.Clone(good)
			binary.LittleEndian.PutUint32(b[12:], uint32(len(b)))
			return b
		}},
		{"root size grows", func() []byte {
			b := bytes.Clone(good)
			binary.LittleEndian.PutUint32(b[4:], uint32(len(b)+8))
			return b
		}},
		{"missing string pool", func() []byte {
			b := bytes.Clone(good)
			binary.LittleEndian.PutUint16(b[8:], chunk.TypeXMLResourceMap)
			return b
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.b())
			if !errors.Is(err, chunk.ErrMalformed) {
				t.Errorf("Parse() error = %v, want ErrMalformed", err)
			}
			if d != nil {
				t.Error("Parse() returned a document alongside an error")
			}
		})
	}
}

func TestParseUnbalanced(t *testing.T) {
	good := fixture.Template().Bytes()
	d := mustParse(t, good)

	// Drop the final end element (the one closing <manifest>) and shrink
	// the root accordingly.
	var last *endNode
	for _, n := range d.nodes {
		if e, ok := n.(*endNode); ok {
			last = e
		}
	}
	endBytes := last.appendTo(nil)
	idx := bytes.LastIndex(good, endBytes)
	if idx < 0 {
		t.Fatal("end element bytes not found")
	}
	b := append(bytes.Clone(good[:idx]), good[idx+len(endBytes):]...)
	binary.LittleEndian.PutUint32(b[4:], uint32(len(b)))

	if _, err := Parse(b); !errors.Is(err, chunk.ErrMalformed) {
		t.Errorf("Parse() error = %v, want ErrMalformed", err)
	}
}

func TestTree(t *testing.T) {
	d := mustParse(t, fixture.Template().Bytes())
	root := d.Root()
	if root == nil || root.Name() != "manifest" {
		t.Fatalf("Root() = %v", root)
	}
	app := root.Child("application")
	if app == nil {
		t.Fatal("Child(application) = nil")
	}
	if app.Parent() != root {
		t.Error("application parent is not manifest")
	}
	act := root.Find("activity")
	if act == nil || act.Parent() != app {
		t.Fatal("Find(activity) did not return the child of application")
	}
	if len(act.Children()) != 0 {
		t.Errorf("activity has %d children", len(act.Children()))
	}
	if got := d.Elements("activity"); len(got) != 1 || got[0] != act {
		t.Errorf("Elements(activity) = %v", got)
	}
	if got := d.Elements("service"); len(got) != 0 {
		t.Errorf("Elements(service) = %v, want none", got)
	}
}

func TestXML(t *testing.T) {
	m := fixture.Template()
	m.MinSDK = 19
	d := mustParse(t, m.Bytes())

	text := d.XML()
	for _, want := range []string{
		`<manifest xmlns:android="http://schemas.android.com/apk/res/android"`,
		`android:versionCode="1"`,
		`package="com.template.app"`,
		`<uses-sdk android:minSdkVersion="19" />`,
		`<activity android:name="MainActivity" />`,
		`</application>`,
		`</manifest>`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("XML() missing %q:\n%s", want, text)
		}
	}
}
