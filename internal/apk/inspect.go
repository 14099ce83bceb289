// Package apk reads a built APK back: manifest metadata, native
// architectures and signature verification.
package apk

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/shogo82148/androidbinary"
	"github.com/shogo82148/androidbinary/apk"

	"github.com/mobilechromeapps/apkpack/internal/axml"
)

// maxZipFileSize is the maximum size for reading individual files from APK archives.
// This prevents memory exhaustion from malicious or corrupted APKs.
const maxZipFileSize = 650 * 1024 * 1024 // 650MB

// Info contains metadata read back from an APK file.
type Info struct {
	PackageID   string `json:"package"`
	VersionName string `json:"version_name"`
	VersionCode int64  `json:"version_code"`
	MinSDK      int32  `json:"min_sdk,omitempty"`
	TargetSDK   int32  `json:"target_sdk,omitempty"`
	Label       string `json:"label"`
	Activity    string `json:"activity,omitempty"`

	// Native architectures (e.g., ["arm64-v8a", "armeabi-v7a"])
	Architectures []string `json:"architectures,omitempty"`

	Entries  int    `json:"entries"`
	FilePath string `json:"path"`
	FileSize int64  `json:"size"`
	SHA256   string `json:"sha256"`
}

// Inspect extracts metadata from an APK file. The signature is not
// checked; see Verify.
func Inspect(path string) (*Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat APK: %w", err)
	}

	sha256Hash, err := hashFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash APK: %w", err)
	}

	pkg, err := apk.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open APK: %w", err)
	}
	defer pkg.Close()

	manifest := pkg.Manifest()
	info := &Info{
		PackageID:   manifest.Package.MustString(),
		VersionName: manifest.VersionName.MustString(),
		VersionCode: int64(manifest.VersionCode.MustInt32()),
		MinSDK:      manifest.SDK.Min.MustInt32(),
		TargetSDK:   manifest.SDK.Target.MustInt32(),
		FilePath:    path,
		FileSize:    fi.Size(),
		SHA256:      sha256Hash,
	}
	if acts := manifest.App.Activities; len(acts) > 0 {
		info.Activity = acts[0].Name.MustString()
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open APK: %w", err)
	}
	defer r.Close()

	info.Entries = len(r.File)
	info.Architectures = extractArchitectures(&r.Reader)
	info.Label = extractLabel(pkg, &r.Reader)
	return info, nil
}

// extractLabel extracts the app label from an APK.
// It handles nested resource references that the library doesn't resolve.
func extractLabel(pkg *apk.Apk, r *zip.Reader) string {
	label, err := pkg.Label(nil)
	if err == nil && label != "" {
		return label
	}
	return extractLabelWithReferences(r)
}

// extractLabelWithReferences resolves the label by following resource
// references through resources.arsc.
func extractLabelWithReferences(r *zip.Reader) string {
	manifestData, err := ReadEntry(r, "AndroidManifest.xml")
	if err != nil {
		return ""
	}
	resData, err := ReadEntry(r, "resources.arsc")
	if err != nil {
		return ""
	}

	doc, err := axml.Parse(manifestData)
	if err != nil {
		return ""
	}
	ref, err := doc.FindAppName()
	if err != nil {
		return ""
	}
	id, ok := doc.Reference(ref)
	if !ok || id == 0 {
		return ""
	}

	table, err := androidbinary.NewTableFile(bytes.NewReader(resData))
	if err != nil {
		return ""
	}
	return resolveStringResource(table, androidbinary.ResID(id), nil, 10)
}

// resolveStringResource resolves a resource ID to a string, following references.
func resolveStringResource(table *androidbinary.TableFile, id androidbinary.ResID, config *androidbinary.ResTableConfig, maxDepth int) string {
	if maxDepth <= 0 {
		return ""
	}

	val, err := table.GetResource(id, config)
	if err != nil {
		return ""
	}

	switch v := val.(type) {
	case string:
		return v
	case uint32:
		// Application package references (0x7fXXXXXX) point at another resource
		if v&0xFF000000 == 0x7F000000 {
			return resolveStringResource(table, androidbinary.ResID(v), config, maxDepth-1)
		}
		return ""
	default:
		return ""
	}
}

// ReadEntry reads one file of an APK.
func ReadEntry(r *zip.Reader, name string) ([]byte, error) {
	for _, f := range r.File {
		if f.Name == name {
			return readZipFile(f)
		}
	}
	return nil, fmt.Errorf("%s not found in APK", name)
}

// readZipFile reads the contents of a file within a zip archive.
// Returns an error if the uncompressed size exceeds maxZipFileSize.
func readZipFile(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxZipFileSize {
		return nil, fmt.Errorf("file %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, maxZipFileSize)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// Use LimitReader as defense-in-depth against incorrect UncompressedSize64
	return io.ReadAll(io.LimitReader(rc, int64(maxZipFileSize)))
}

// hashFile calculates SHA256 hash of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// extractArchitectures scans the APK's lib/ directory for native libraries.
func extractArchitectures(r *zip.Reader) []string {
	var archs []string
	for _, f := range r.File {
		rest, ok := strings.CutPrefix(f.Name, "lib/")
		if !ok {
			continue
		}
		arch, _, ok := strings.Cut(rest, "/")
		if ok && arch != "" && !slices.Contains(archs, arch) {
			archs = append(archs, arch)
		}
	}
	slices.Sort(archs)
	return archs
}

// String returns a human-readable summary of the APK.
func (a *Info) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Package: %s\n", a.PackageID)
	fmt.Fprintf(&buf, "Version: %s (%d)\n", a.VersionName, a.VersionCode)
	fmt.Fprintf(&buf, "Label: %s\n", a.Label)
	if a.Activity != "" {
		fmt.Fprintf(&buf, "Activity: %s\n", a.Activity)
	}
	fmt.Fprintf(&buf, "Min SDK: %d, Target SDK: %d\n", a.MinSDK, a.TargetSDK)
	fmt.Fprintf(&buf, "Architectures: %v\n", a.Architectures)
	fmt.Fprintf(&buf, "Entries: %d\n", a.Entries)
	fmt.Fprintf(&buf, "Size: %d bytes\n", a.FileSize)
	fmt.Fprintf(&buf, "SHA256: %s\n", a.SHA256)
	return buf.String()
}
