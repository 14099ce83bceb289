package workflow

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mobilechromeapps/apkpack/internal/apk"
	"github.com/mobilechromeapps/apkpack/internal/arsc"
	"github.com/mobilechromeapps/apkpack/internal/axml"
	"github.com/mobilechromeapps/apkpack/internal/chunk"
	"github.com/mobilechromeapps/apkpack/internal/help"
	"github.com/mobilechromeapps/apkpack/internal/ui"
)

// Kind is the type of file inspect understands.
type Kind string

const (
	KindAPK      Kind = "apk"
	KindManifest Kind = "manifest"
	KindTable    Kind = "table"
)

// ErrUnknownKind is returned for files that are neither an APK nor a
// compiled manifest or resource table.
var ErrUnknownKind = errors.New("not an APK, compiled XML document or resource table")

// DetectKind sniffs the first bytes of a file.
func DetectKind(head []byte) (Kind, error) {
	if bytes.HasPrefix(head, []byte("PK\x03\x04")) {
		return KindAPK, nil
	}
	if len(head) < chunk.HeaderSize {
		return "", ErrUnknownKind
	}
	switch binary.LittleEndian.Uint16(head) {
	case chunk.TypeXML:
		return KindManifest, nil
	case chunk.TypeTable:
		return KindTable, nil
	}
	return "", ErrUnknownKind
}

// ManifestSummary holds the identity fields of a compiled manifest. Fields
// that are absent or hold a resource reference are left empty.
type ManifestSummary struct {
	Package     string `json:"package,omitempty"`
	VersionName string `json:"version_name,omitempty"`
	VersionCode uint32 `json:"version_code,omitempty"`
	AppName     string `json:"app_name,omitempty"`
	Activity    string `json:"activity,omitempty"`
	MinSDK      int    `json:"min_sdk,omitempty"`
	Strings     int    `json:"strings"`

	// Outline lists the elements in document order, indented by depth.
	Outline []string `json:"outline,omitempty"`
}

// TablePackage describes one package of a resource table.
type TablePackage struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Types   []string `json:"types"`
	Entries int      `json:"entries"`
}

// Report is the outcome of Inspect.
type Report struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path"`

	APK            *apk.Info        `json:"apk,omitempty"`
	Signature      *apk.Signature   `json:"signature,omitempty"`
	SignatureError string           `json:"signature_error,omitempty"`
	Manifest       *ManifestSummary `json:"manifest,omitempty"`
	Packages       []TablePackage   `json:"packages,omitempty"`
	Strings        int              `json:"strings,omitempty"`

	xml string
}

// Inspect reads an APK, a compiled AndroidManifest.xml or a resources.arsc
// and summarizes it.
func Inspect(path string) (*Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	kind, err := DetectKind(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	r := &Report{Kind: kind, Path: path}
	switch kind {
	case KindAPK:
		info, err := apk.Inspect(path)
		if err != nil {
			return nil, err
		}
		r.APK = info
		if sig, err := apk.Verify(path); err != nil {
			r.SignatureError = err.Error()
		} else {
			r.Signature = sig
		}

	case KindManifest:
		doc, err := axml.Parse(b)
		if err != nil {
			return nil, &FileError{File: filepath.Base(path), Err: err}
		}
		r.Manifest = summarizeManifest(doc)
		r.xml = doc.XML()

	case KindTable:
		t, err := arsc.Parse(b)
		if err != nil {
			return nil, &FileError{File: filepath.Base(path), Err: err}
		}
		for _, p := range t.Packages() {
			r.Packages = append(r.Packages, TablePackage{
				ID:      fmt.Sprintf("0x%02x", p.ID),
				Name:    p.Name,
				Types:   p.Types,
				Entries: p.Entries,
			})
		}
		r.Strings = len(t.Strings())
	}
	return r, nil
}

func summarizeManifest(doc *axml.Document) *ManifestSummary {
	s := &ManifestSummary{Strings: len(doc.Strings())}
	str := func(find func() (axml.Ref, error)) string {
		ref, err := find()
		if err != nil {
			return ""
		}
		v, _ := doc.Value(ref)
		return v
	}
	s.Package = str(doc.FindPackageName)
	s.VersionName = str(doc.FindVersion)
	s.AppName = str(doc.FindAppName)
	s.Activity = str(doc.FindActivityName)
	if ref, err := doc.FindVersionCode(); err == nil {
		s.VersionCode, _ = doc.IntValue(ref)
	}
	s.MinSDK, _ = doc.MinSDK()
	if root := doc.Root(); root != nil {
		s.Outline = outline(root, 0, nil)
	}
	return s
}

func outline(e *axml.Element, depth int, lines []string) []string {
	name := e.Name()
	if ns := e.Namespace(); ns != "" {
		name = ns + ":" + name
	}
	lines = append(lines, fmt.Sprintf("%s%s (line %d)", strings.Repeat("  ", depth), name, e.Line()))
	for _, c := range e.Children() {
		lines = outline(c, depth+1, lines)
	}
	return lines
}

// Markdown formats the report for glamour.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", filepath.Base(r.Path))

	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "| %s | %s |\n", k, v)
		}
	}
	table := func() {
		b.WriteString("| Field | Value |\n|---|---|\n")
	}

	switch r.Kind {
	case KindAPK:
		a := r.APK
		table()
		row("Package", "`"+a.PackageID+"`")
		row("Label", a.Label)
		row("Version", fmt.Sprintf("%s (%d)", a.VersionName, a.VersionCode))
		row("Activity", a.Activity)
		row("SDK", fmt.Sprintf("min %d, target %d", a.MinSDK, a.TargetSDK))
		if len(a.Architectures) > 0 {
			row("ABIs", strings.Join(a.Architectures, ", "))
		} else {
			row("ABIs", "none (pure web app)")
		}
		row("Entries", fmt.Sprint(a.Entries))
		row("Size", ui.FormatBytes(a.FileSize))
		row("SHA-256", "`"+a.SHA256+"`")

		b.WriteString("\n## Signature\n\n")
		if r.Signature == nil {
			fmt.Fprintf(&b, "**Not verified:** %s\n", r.SignatureError)
			break
		}
		s := r.Signature
		table()
		row("Scheme", fmt.Sprintf("v%d", s.Scheme))
		row("Subject", s.Subject)
		row("Issuer", s.Issuer)
		row("Expires", s.NotAfter.Format("2006-01-02"))
		row("Certificate SHA-256", "`"+s.Fingerprint+"`")

	case KindManifest:
		m := r.Manifest
		table()
		row("Package", m.Package)
		row("App name", m.AppName)
		row("Activity", m.Activity)
		row("Version name", m.VersionName)
		if m.VersionCode != 0 {
			row("Version code", fmt.Sprint(m.VersionCode))
		}
		if m.MinSDK != 0 {
			row("Min SDK", fmt.Sprint(m.MinSDK))
		}
		row("Strings", fmt.Sprint(m.Strings))
		fmt.Fprintf(&b, "\n## Document\n\n```xml\n%s\n```\n", strings.TrimRight(r.xml, "\n"))

	case KindTable:
		fmt.Fprintf(&b, "%d global strings.\n\n", r.Strings)
		b.WriteString("| ID | Package | Entries | Types |\n|---|---|---|---|\n")
		for _, p := range r.Packages {
			fmt.Fprintf(&b, "| %s | `%s` | %d | %s |\n", p.ID, p.Name, p.Entries, strings.Join(p.Types, ", "))
		}
	}
	return b.String()
}

// Print writes the report to w as JSON or as rendered markdown.
func (r *Report) Print(w io.Writer, asJSON bool) error {
	if asJSON {
		return writeJSON(w, r)
	}
	out, err := help.RenderMarkdown(r.Markdown())
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// VerifyAPK checks the signature of an APK and reports its signer.
func VerifyAPK(path string) (*apk.Signature, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	return WithSpinner("Verifying "+name+"...", "Signature of "+name+" verified", func() (*apk.Signature, error) {
		return apk.Verify(path)
	})
}
