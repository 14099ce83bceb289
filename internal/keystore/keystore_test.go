package keystore

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/mobilechromeapps/apkpack/internal/fixture"
)

func TestLoadPEM(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key.pem")
	certPath := filepath.Join(dir, "cert.pem")
	if err := fixture.WritePEM(keyPath, certPath); err != nil {
		t.Fatalf("WritePEM() error = %v", err)
	}

	id, err := LoadPEM(keyPath, certPath)
	if err != nil {
		t.Fatalf("LoadPEM() error = %v", err)
	}
	_, cert, _ := fixture.Identity()
	if !id.Certificate.Equal(cert) {
		t.Error("LoadPEM() returned a different certificate")
	}
	if len(id.Chain) != 0 {
		t.Errorf("Chain has %d certificates, want 0", len(id.Chain))
	}
	if fp := id.Fingerprint(); len(fp) != 95 || strings.ToUpper(fp) != fp {
		t.Errorf("Fingerprint() = %q", fp)
	}
}

func TestLoadPEMErrors(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key.pem")
	certPath := filepath.Join(dir, "cert.pem")
	if err := fixture.WritePEM(keyPath, certPath); err != nil {
		t.Fatalf("WritePEM() error = %v", err)
	}

	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	der, _ := x509.MarshalECPrivateKey(other)
	otherKey := filepath.Join(dir, "other.pem")
	os.WriteFile(otherKey, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), 0o600)

	empty := filepath.Join(dir, "empty.pem")
	os.WriteFile(empty, []byte("not pem\n"), 0o600)

	tests := []struct {
		name     string
		key      string
		cert     string
		wantErr  error
		contains string
	}{
		{"mismatched key", otherKey, certPath, ErrKeyMismatch, ""},
		{"no key block", empty, certPath, nil, "no private key"},
		{"no certificate", keyPath, empty, nil, "no certificate"},
		{"missing key file", filepath.Join(dir, "nope.pem"), certPath, os.ErrNotExist, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPEM(tt.key, tt.cert)
			if err == nil {
				t.Fatal("LoadPEM() succeeded")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadPEM() error = %v, want %v", err, tt.wantErr)
			}
			if tt.contains != "" && !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("LoadPEM() error = %v, want it to mention %q", err, tt.contains)
			}
		})
	}
}

func TestLoadPKCS12(t *testing.T) {
	key, cert, err := fixture.Identity()
	if err != nil {
		t.Fatal(err)
	}
	data, err := pkcs12.Modern.Encode(key, cert, nil, "secret")
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	path := filepath.Join(t.TempDir(), "release.p12")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	id, err := LoadPKCS12File(path, "secret")
	if err != nil {
		t.Fatalf("LoadPKCS12File() error = %v", err)
	}
	if !id.Certificate.Equal(cert) {
		t.Error("LoadPKCS12File() returned a different certificate")
	}

	if _, err := LoadPKCS12(data, "wrong"); err == nil {
		t.Error("LoadPKCS12() accepted a wrong password")
	}
}

func TestLoadPKCS12DetectsJKS(t *testing.T) {
	data := append([]byte{0xFE, 0xED, 0xFE, 0xED}, make([]byte, 32)...)
	if _, err := LoadPKCS12(data, ""); !errors.Is(err, ErrJKSFormat) {
		t.Errorf("LoadPKCS12() error = %v, want ErrJKSFormat", err)
	}
}

func TestJKSConversionHelp(t *testing.T) {
	help := JKSConversionHelp("/keys/release.keystore")
	for _, want := range []string{"-srckeystore /keys/release.keystore", "-destkeystore /keys/release.p12", "--keystore /keys/release.p12"} {
		if !strings.Contains(help, want) {
			t.Errorf("JKSConversionHelp() missing %q:\n%s", want, help)
		}
	}
}
