// Package archive prepares the template working directory and writes the
// APK zip container.
package archive

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"path"
	"strings"
	"time"
)

// Alignment of stored entry data, matching zipalign -p.
const (
	DefaultAlignment = 4
	PageAlignment    = 4096
)

const (
	localHeaderLen = 30
	alignExtraID   = 0xD935
	alignExtraLen  = 6 // id, size, alignment
)

// noCompress lists extensions aapt stores without compression.
var noCompress = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".wav": true, ".mp2": true, ".mp3": true, ".ogg": true, ".aac": true,
	".mpg": true, ".mpeg": true, ".mid": true, ".midi": true, ".smf": true,
	".jet": true, ".rtttl": true, ".imy": true, ".xmf": true, ".mp4": true,
	".m4a": true, ".m4v": true, ".3gp": true, ".3gpp": true, ".3g2": true,
	".3gpp2": true, ".amr": true, ".awb": true, ".wma": true, ".wmv": true,
	".webm": true, ".mkv": true,
}

// Stored reports whether an entry is written uncompressed.
func Stored(name string) bool {
	if name == "resources.arsc" || strings.HasSuffix(name, ".so") {
		return true
	}
	return noCompress[strings.ToLower(path.Ext(name))]
}

// Alignment returns the data alignment of a stored entry.
func Alignment(name string) int {
	if strings.HasSuffix(name, ".so") {
		return PageAlignment
	}
	return DefaultAlignment
}

// countWriter tracks the offset of the underlying file.
type countWriter struct {
	w io.Writer
	n int64
}

func (c *countWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Writer writes an APK. Stored entries are aligned with the same extra
// field zipalign uses; entries carry no timestamps.
type Writer struct {
	cw    *countWriter
	zw    *zip.Writer
	names map[string]bool
}

// NewWriter returns a Writer appending to w from offset zero.
func NewWriter(w io.Writer) *Writer {
	cw := &countWriter{w: w}
	return &Writer{cw: cw, zw: zip.NewWriter(cw), names: make(map[string]bool)}
}

func (w *Writer) claim(name string) error {
	if w.names[name] {
		return fmt.Errorf("duplicate archive entry %s", name)
	}
	w.names[name] = true
	return nil
}

// WriteFile adds an entry with the content of r. The compression method
// follows Stored.
func (w *Writer) WriteFile(name string, r io.Reader) error {
	if err := w.claim(name); err != nil {
		return err
	}
	if Stored(name) {
		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		fh := &zip.FileHeader{
			Name:               name,
			Method:             zip.Store,
			CRC32:              crc32.ChecksumIEEE(data),
			CompressedSize64:   uint64(len(data)),
			UncompressedSize64: uint64(len(data)),
		}
		return w.writeRaw(fh, bytes.NewReader(data))
	}

	dst, err := w.zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Copy adds an entry from another archive without recompressing it.
func (w *Writer) Copy(f *zip.File) error {
	if err := w.claim(f.Name); err != nil {
		return err
	}
	fh := f.FileHeader
	fh.Modified = time.Time{}
	fh.Extra = stripAlignment(fh.Extra)

	r, err := f.OpenRaw()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	return w.writeRaw(&fh, r)
}

func (w *Writer) writeRaw(fh *zip.FileHeader, r io.Reader) error {
	if fh.Method == zip.Store {
		if err := w.zw.Flush(); err != nil {
			return err
		}
		fh.Extra = append(fh.Extra, alignmentExtra(w.cw.n, fh, Alignment(fh.Name))...)
	}
	dst, err := w.zw.CreateRaw(fh)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", fh.Name, err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", fh.Name, err)
	}
	return nil
}

// alignmentExtra returns the extra field that moves the data of an entry
// whose local header starts at offset onto an align boundary.
func alignmentExtra(offset int64, fh *zip.FileHeader, align int) []byte {
	dataStart := offset + localHeaderLen + int64(len(fh.Name)) + int64(len(fh.Extra)) + alignExtraLen
	pad := (int64(align) - dataStart%int64(align)) % int64(align)

	extra := make([]byte, alignExtraLen+pad)
	binary.LittleEndian.PutUint16(extra[0:], alignExtraID)
	binary.LittleEndian.PutUint16(extra[2:], uint16(2+pad))
	binary.LittleEndian.PutUint16(extra[4:], uint16(align))
	return extra
}

// stripAlignment removes an existing alignment field from an extra block.
func stripAlignment(extra []byte) []byte {
	var out []byte
	for len(extra) >= 4 {
		id := binary.LittleEndian.Uint16(extra)
		size := int(binary.LittleEndian.Uint16(extra[2:]))
		if 4+size > len(extra) {
			break
		}
		if id != alignExtraID {
			out = append(out, extra[:4+size]...)
		}
		extra = extra[4+size:]
	}
	return out
}

// Close writes the central directory. It does not close the underlying
// writer.
func (w *Writer) Close() error {
	return w.zw.Close()
}
