package fixture

import (
	"archive/zip"
	"debug/elf"
	"os"
	"path/filepath"
)

// TemplateFiles returns the files of an unpacked app template, keyed by
// slash-separated path. It carries a stale signature that packaging must
// drop.
func TemplateFiles() map[string][]byte {
	return map[string][]byte{
		"AndroidManifest.xml":   Template().Bytes(),
		"resources.arsc":        TemplateTable().Bytes(),
		"classes.dex":           []byte("dex\n035\x00template"),
		"res/drawable/icon.png": {0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
		"assets/www/index.html": []byte("<html>template</html>\n"),
		"assets/www/cordova.js": []byte("// cordova\n"),
		"META-INF/MANIFEST.MF":  []byte("Manifest-Version: 1.0\r\n\r\n"),
		"META-INF/CERT.SF":      []byte("Signature-Version: 1.0\r\n\r\n"),
		"META-INF/CERT.RSA":     {0x30, 0x00},
	}
}

// WriteTemplateDir writes the template files under dir.
func WriteTemplateDir(dir string) error {
	for name, data := range TemplateFiles() {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// WriteTemplateAPK writes the template files as a zip archive at path.
func WriteTemplateAPK(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(f)
	for name, data := range TemplateFiles() {
		w, err := zw.Create(name)
		if err != nil {
			f.Close()
			return err
		}
		if _, err := w.Write(data); err != nil {
			f.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SharedLibrary returns the bare ELF header of a shared library for the
// given machine. ARM and x86 produce 32-bit files, anything else 64-bit.
func SharedLibrary(machine elf.Machine) []byte {
	if machine == elf.EM_ARM || machine == elf.EM_386 {
		b := []byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS32), byte(elf.ELFDATA2LSB), 1, 0}
		b = append(b, make([]byte, 8)...)
		b = le.AppendUint16(b, uint16(elf.ET_DYN))
		b = le.AppendUint16(b, uint16(machine))
		b = le.AppendUint32(b, 1)
		b = append(b, make([]byte, 12)...) // entry, phoff, shoff
		b = le.AppendUint32(b, 0)          // flags
		b = le.AppendUint16(b, 52)
		b = le.AppendUint16(b, 32)
		b = le.AppendUint16(b, 0)
		b = le.AppendUint16(b, 40)
		b = le.AppendUint16(b, 0)
		return le.AppendUint16(b, 0)
	}

	b := []byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), 1, 0}
	b = append(b, make([]byte, 8)...)
	b = le.AppendUint16(b, uint16(elf.ET_DYN))
	b = le.AppendUint16(b, uint16(machine))
	b = le.AppendUint32(b, 1)
	b = append(b, make([]byte, 24)...) // entry, phoff, shoff
	b = le.AppendUint32(b, 0)          // flags
	b = le.AppendUint16(b, 64)
	b = le.AppendUint16(b, 56)
	b = le.AppendUint16(b, 0)
	b = le.AppendUint16(b, 64)
	b = le.AppendUint16(b, 0)
	return le.AppendUint16(b, 0)
}
