package archive

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ProgressFunc receives the number of entries written so far.
type ProgressFunc func(done, total int)

// Files lists the entries of a work directory in archive order: the
// manifest first, then everything else sorted by name.
func Files(dir string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(names, func(i, j int) bool {
		if (names[i] == ManifestFile) != (names[j] == ManifestFile) {
			return names[i] == ManifestFile
		}
		return names[i] < names[j]
	})
	return names, nil
}

// Build writes the work directory as an unsigned APK at out. The file is
// written next to out and renamed into place once complete.
func Build(ctx context.Context, dir, out string, progress ProgressFunc) error {
	names, err := Files(dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if len(names) == 0 || names[0] != ManifestFile {
		return fmt.Errorf("%s has no %s", dir, ManifestFile)
	}

	tmp, err := os.CreateTemp(filepath.Dir(out), ".apkpack-*.apk")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	zw := NewWriter(tmp)
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			tmp.Close()
			return err
		}
		if err := addFile(zw, dir, name); err != nil {
			tmp.Close()
			return err
		}
		if progress != nil {
			progress(i+1, len(names))
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), out)
}

func addFile(zw *Writer, dir, name string) error {
	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil {
		return err
	}
	defer f.Close()
	return zw.WriteFile(name, f)
}
