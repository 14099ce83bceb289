package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
)

// Names of the two binary files the packager edits.
const (
	ManifestFile  = "AndroidManifest.xml"
	ResourcesFile = "resources.arsc"
)

// WWWDir is where the web app lives inside the package.
const WWWDir = "assets/www"

// IsSignatureFile reports whether an entry belongs to a v1 signature.
func IsSignatureFile(name string) bool {
	dir, base := path.Split(name)
	if !strings.EqualFold(dir, "META-INF/") {
		return false
	}
	if strings.EqualFold(base, "MANIFEST.MF") {
		return true
	}
	switch strings.ToUpper(path.Ext(base)) {
	case ".SF", ".RSA", ".DSA", ".EC":
		return true
	}
	return false
}

// Prepare wipes dir and fills it with the template, which is either an
// unpacked directory or an APK. Signature files of the template are
// dropped.
func Prepare(ctx context.Context, template, dir string) error {
	fi, err := os.Stat(template)
	if err != nil {
		return fmt.Errorf("template not found: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to wipe %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	if !fi.IsDir() {
		return Extract(ctx, template, dir)
	}

	err = copy.Copy(template, dir, copy.Options{
		OnSymlink: func(string) copy.SymlinkAction { return copy.Deep },
		Skip: func(_ os.FileInfo, src, _ string) (bool, error) {
			if err := ctx.Err(); err != nil {
				return true, err
			}
			rel, err := filepath.Rel(template, src)
			if err != nil {
				return false, err
			}
			return IsSignatureFile(filepath.ToSlash(rel)), nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to copy template: %w", err)
	}
	return ctx.Err()
}

// Extract unpacks an APK into dir, skipping directories and signature
// files.
func Extract(ctx context.Context, apkPath, dir string) error {
	r, err := zip.OpenReader(apkPath)
	if err != nil {
		return fmt.Errorf("failed to open template APK: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() || IsSignatureFile(f.Name) {
			continue
		}
		if !filepath.IsLocal(f.Name) {
			return fmt.Errorf("template entry %q escapes the work directory", f.Name)
		}
		if err := extractFile(f, filepath.Join(dir, filepath.FromSlash(f.Name))); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return out.Close()
}

// MergeWWW copies the web app into assets/www of the work directory,
// overwriting files the template already has there.
func MergeWWW(ctx context.Context, www, dir string) error {
	fi, err := os.Stat(www)
	if err != nil {
		return fmt.Errorf("www directory not found: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("www path %s is not a directory", www)
	}

	err = copy.Copy(www, filepath.Join(dir, filepath.FromSlash(WWWDir)), copy.Options{
		OnSymlink:   func(string) copy.SymlinkAction { return copy.Deep },
		OnDirExists: func(string, string) copy.DirExistsAction { return copy.Merge },
		Skip: func(info os.FileInfo, _, _ string) (bool, error) {
			if err := ctx.Err(); err != nil {
				return true, err
			}
			name := info.Name()
			return name == ".git" || name == ".DS_Store", nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to merge www: %w", err)
	}
	return ctx.Err()
}
