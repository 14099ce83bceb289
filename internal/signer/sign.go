package signer

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"

	"go.mozilla.org/pkcs7"

	"github.com/mobilechromeapps/apkpack/internal/archive"
	"github.com/mobilechromeapps/apkpack/internal/keystore"
)

// BlockPath returns the signature block entry name for the identity's key
// type.
func BlockPath(id *keystore.Identity) string {
	if _, ok := id.Key.(*ecdsa.PrivateKey); ok {
		return "META-INF/CERT.EC"
	}
	return "META-INF/CERT.RSA"
}

// Block signs the signature file with a detached PKCS#7 SignedData without
// signed attributes, the form v1 verifiers on every API level accept.
func Block(sf []byte, id *keystore.Identity, d Digest) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(sf)
	if err != nil {
		return nil, fmt.Errorf("failed to start signature block: %w", err)
	}
	sd.SetDigestAlgorithm(d.OID)
	if err := sd.SignWithoutAttr(id.Certificate, id.Key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	for _, c := range id.Chain {
		sd.AddCertificate(c)
	}
	sd.Detach()
	return sd.Finish()
}

// SignArchive copies the unsigned APK at src to dst, adding a v1
// signature. Entries keep their compression and stored entries stay
// aligned. dst is written next to its final path and renamed once
// complete.
func SignArchive(ctx context.Context, src, dst string, id *keystore.Identity, d Digest) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open unsigned APK: %w", err)
	}
	defer zr.Close()

	m := NewManifest(d)
	var entries []*zip.File
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() || archive.IsSignatureFile(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		err = m.Add(f.Name, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("failed to digest %s: %w", f.Name, err)
		}
		entries = append(entries, f)
	}

	sf := m.SignatureFile()
	block, err := Block(sf, id, d)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".apkpack-signed-*.apk")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := archive.NewWriter(tmp)
	write := func() error {
		for _, f := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := w.Copy(f); err != nil {
				return err
			}
		}
		for _, e := range []struct {
			name string
			data []byte
		}{
			{ManifestPath, m.Bytes()},
			{SignaturePath, sf},
			{BlockPath(id), block},
		} {
			if err := w.WriteFile(e.name, bytes.NewReader(e.data)); err != nil {
				return err
			}
		}
		return w.Close()
	}
	if err := write(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
