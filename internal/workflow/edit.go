package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/mobilechromeapps/apkpack/internal/arsc"
	"github.com/mobilechromeapps/apkpack/internal/axml"
	"github.com/mobilechromeapps/apkpack/internal/config"
	"github.com/mobilechromeapps/apkpack/internal/ui"
)

// defaultMinSDK is assumed when a manifest declares no minSdkVersion.
const defaultMinSDK = 1

// FileError ties an editor failure to the file and field it concerns.
type FileError struct {
	File  string
	Field string
	Err   error
}

func (e *FileError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.File, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.File, e.Field, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// ManifestEdit is the outcome of EditManifest.
type ManifestEdit struct {
	Data   []byte
	MinSDK int
}

type stringEdit struct {
	field string
	find  func(*axml.Document) (axml.Ref, error)
	value string
}

// EditManifest applies the non-empty fields of app to a compiled
// AndroidManifest.xml and returns the new bytes. Nothing is returned
// unless every edit succeeds.
func EditManifest(b []byte, app config.App) (*ManifestEdit, error) {
	const file = "AndroidManifest.xml"
	doc, err := axml.Parse(b)
	if err != nil {
		return nil, &FileError{File: file, Err: err}
	}

	edits := []stringEdit{
		{"package name", (*axml.Document).FindPackageName, app.Package},
		{"app name", (*axml.Document).FindAppName, app.Name},
		{"activity name", (*axml.Document).FindActivityName, app.ActivityName()},
		{"version name", (*axml.Document).FindVersion, app.VersionName},
	}
	for _, e := range edits {
		if e.value == "" {
			continue
		}
		ref, err := e.find(doc)
		if err != nil {
			return nil, &FileError{File: file, Field: e.field, Err: err}
		}
		old, _ := doc.Value(ref)
		if err := doc.Replace(ref, e.value); err != nil {
			return nil, &FileError{File: file, Field: e.field, Err: err}
		}
		ui.Detail("Replaced", fmt.Sprintf("%s %q -> %q", e.field, old, e.value))
	}

	if app.VersionCode != 0 {
		ref, err := doc.FindVersionCode()
		if err != nil {
			return nil, &FileError{File: file, Field: "version code", Err: err}
		}
		if err := doc.ReplaceInt(ref, app.VersionCode); err != nil {
			return nil, &FileError{File: file, Field: "version code", Err: err}
		}
		ui.Detail("Replaced", fmt.Sprintf("version code -> %d", app.VersionCode))
	}

	minSDK, ok := doc.MinSDK()
	if !ok {
		minSDK = defaultMinSDK
	}

	out, err := doc.Serialize()
	if err != nil {
		return nil, &FileError{File: file, Err: err}
	}
	ui.Debugf("manifest: %d -> %d bytes, %d strings", len(b), len(out), len(doc.Strings()))
	return &ManifestEdit{Data: out, MinSDK: minSDK}, nil
}

// EditTable renames the app package of a compiled resources.arsc.
func EditTable(b []byte, pkg string) ([]byte, error) {
	const file = "resources.arsc"
	t, err := arsc.Parse(b)
	if err != nil {
		return nil, &FileError{File: file, Err: err}
	}
	if pkg != "" {
		old := t.PackageName()
		if err := t.ChangePackageName(pkg); err != nil {
			return nil, &FileError{File: file, Field: "package name", Err: err}
		}
		ui.Detail("Replaced", fmt.Sprintf("table package %q -> %q", old, pkg))
	}
	out, err := t.Serialize()
	if err != nil {
		return nil, &FileError{File: file, Err: err}
	}
	return out, nil
}

// EditResult reports what EditFiles wrote.
type EditResult struct {
	Manifest string
	Table    string
	MinSDK   int
}

// EditFiles edits a compiled manifest and resource table concurrently. An
// empty path skips that file. Outputs go to outDir, or over the inputs when
// outDir is empty, and are written only after both edits succeed.
func EditFiles(ctx context.Context, manifestPath, tablePath, outDir string, app config.App) (*EditResult, error) {
	var (
		manifest *ManifestEdit
		table    []byte
	)

	g, ctx := errgroup.WithContext(ctx)
	if manifestPath != "" {
		g.Go(func() error {
			b, err := os.ReadFile(manifestPath)
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			manifest, err = EditManifest(b, app)
			return err
		})
	}
	if tablePath != "" {
		g.Go(func() error {
			b, err := os.ReadFile(tablePath)
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			table, err = EditTable(b, app.Package)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &EditResult{MinSDK: defaultMinSDK}
	var outputs []output
	if manifest != nil {
		res.Manifest = outputPath(manifestPath, outDir)
		res.MinSDK = manifest.MinSDK
		outputs = append(outputs, output{path: res.Manifest, data: manifest.Data})
	}
	if table != nil {
		res.Table = outputPath(tablePath, outDir)
		outputs = append(outputs, output{path: res.Table, data: table})
	}
	if err := writeAll(outputs); err != nil {
		return nil, err
	}
	return res, nil
}

func outputPath(in, outDir string) string {
	if outDir == "" {
		return in
	}
	return filepath.Join(outDir, filepath.Base(in))
}

type output struct {
	path string
	data []byte
	tmp  string
}

// writeAll stages every output in a temporary file next to its target and
// renames them into place only once all of them are staged.
func writeAll(outputs []output) error {
	defer func() {
		for _, o := range outputs {
			if o.tmp != "" {
				os.Remove(o.tmp)
			}
		}
	}()
	for i := range outputs {
		tmp, err := stage(outputs[i].path, outputs[i].data)
		if err != nil {
			return err
		}
		outputs[i].tmp = tmp
	}
	for i, o := range outputs {
		if err := os.Rename(o.tmp, o.path); err != nil {
			return err
		}
		outputs[i].tmp = ""
	}
	return nil
}

// stage writes data to a temporary file in the directory of path.
func stage(path string, data []byte) (string, error) {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".apkpack-*")
	if err != nil {
		return "", err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
