// Package signer writes the v1 (JAR) signature of an APK: META-INF/MANIFEST.MF
// with a digest per entry, the signature file CERT.SF over it, and a PKCS#7
// block signing CERT.SF.
package signer

import (
	"bytes"
	"crypto"
	_ "crypto/sha1"
	_ "crypto/sha256"
	"encoding/asn1"
	"encoding/base64"
	"io"

	"go.mozilla.org/pkcs7"
)

// Paths of the signature entries.
const (
	ManifestPath  = "META-INF/MANIFEST.MF"
	SignaturePath = "META-INF/CERT.SF"
)

const createdBy = "1.0 (apkpack)"

// maxLineLen is the JAR manifest line limit in bytes, excluding CRLF.
const maxLineLen = 72

// Digest is a JAR digest algorithm.
type Digest struct {
	// Name prefixes the digest attributes, as in SHA-256-Digest.
	Name string
	Hash crypto.Hash
	OID  asn1.ObjectIdentifier
}

// Supported digests.
var (
	SHA1   = Digest{Name: "SHA1", Hash: crypto.SHA1, OID: pkcs7.OIDDigestAlgorithmSHA1}
	SHA256 = Digest{Name: "SHA-256", Hash: crypto.SHA256, OID: pkcs7.OIDDigestAlgorithmSHA256}
)

// sha256MinSDK is the first API level whose v1 verifier accepts SHA-256.
const sha256MinSDK = 18

// DigestFor picks the strongest digest every device from minSDK up can
// verify.
func DigestFor(minSDK int) Digest {
	if minSDK >= sha256MinSDK {
		return SHA256
	}
	return SHA1
}

func (d Digest) sum(r io.Reader) (string, error) {
	h := d.Hash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

func (d Digest) sumBytes(b []byte) string {
	s, _ := d.sum(bytes.NewReader(b))
	return s
}

// Manifest accumulates the per-entry digests of MANIFEST.MF in entry order.
type Manifest struct {
	digest   Digest
	main     []byte
	sections [][]byte
	names    []string
}

// NewManifest starts a manifest using digest d.
func NewManifest(d Digest) *Manifest {
	var main bytes.Buffer
	writeAttr(&main, "Manifest-Version", "1.0")
	writeAttr(&main, "Created-By", createdBy)
	main.WriteString("\r\n")
	return &Manifest{digest: d, main: main.Bytes()}
}

// Add digests the content of entry name.
func (m *Manifest) Add(name string, r io.Reader) error {
	sum, err := m.digest.sum(r)
	if err != nil {
		return err
	}
	var sec bytes.Buffer
	writeAttr(&sec, "Name", name)
	writeAttr(&sec, m.digest.Name+"-Digest", sum)
	sec.WriteString("\r\n")

	m.sections = append(m.sections, sec.Bytes())
	m.names = append(m.names, name)
	return nil
}

// Bytes returns MANIFEST.MF.
func (m *Manifest) Bytes() []byte {
	out := bytes.Clone(m.main)
	for _, s := range m.sections {
		out = append(out, s...)
	}
	return out
}

// SignatureFile returns CERT.SF for the manifest: a digest of the whole
// manifest, of its main section, and of every entry section.
func (m *Manifest) SignatureFile() []byte {
	var sf bytes.Buffer
	writeAttr(&sf, "Signature-Version", "1.0")
	writeAttr(&sf, "Created-By", createdBy)
	writeAttr(&sf, m.digest.Name+"-Digest-Manifest", m.digest.sumBytes(m.Bytes()))
	writeAttr(&sf, m.digest.Name+"-Digest-Manifest-Main-Attributes", m.digest.sumBytes(m.main))
	sf.WriteString("\r\n")

	for i, s := range m.sections {
		writeAttr(&sf, "Name", m.names[i])
		writeAttr(&sf, m.digest.Name+"-Digest", m.digest.sumBytes(s))
		sf.WriteString("\r\n")
	}
	return sf.Bytes()
}

// writeAttr writes "key: value" wrapped at 72 bytes; continuation lines
// start with a single space.
func writeAttr(w *bytes.Buffer, key, value string) {
	line := []byte(key + ": " + value)
	first := true
	for len(line) > 0 {
		n := maxLineLen
		if !first {
			w.WriteByte(' ')
			n--
		}
		n = min(n, len(line))
		w.Write(line[:n])
		w.WriteString("\r\n")
		line = line[n:]
		first = false
	}
}
