package workflow

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/mobilechromeapps/apkpack/internal/config"
	"github.com/mobilechromeapps/apkpack/internal/fixture"
)

func writePKCS12(t *testing.T, password string) string {
	t.Helper()
	key, cert, err := fixture.Identity()
	if err != nil {
		t.Fatal(err)
	}
	data, err := pkcs12.Modern.Encode(key, cert, nil, password)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "release.p12")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadIdentityPEM(t *testing.T) {
	dir := t.TempDir()
	key, cert := filepath.Join(dir, "key.pem"), filepath.Join(dir, "cert.pem")
	if err := fixture.WritePEM(key, cert); err != nil {
		t.Fatal(err)
	}
	id, err := LoadIdentity(config.Signing{Certificate: cert, PrivateKey: key}, nil)
	if err != nil {
		t.Fatalf("LoadIdentity() error = %v", err)
	}
	_, want, _ := fixture.Identity()
	if !id.Certificate.Equal(want) {
		t.Error("loaded a different certificate")
	}
}

func TestLoadIdentityKeystore(t *testing.T) {
	path := writePKCS12(t, "hunter2")
	t.Setenv("APKPACK_TEST_STORE", "hunter2")

	prompted := func(string) (string, error) { return "hunter2", nil }
	never := func(label string) (string, error) {
		t.Errorf("unexpected prompt for %s", label)
		return "", errors.New("no prompt")
	}

	tests := []struct {
		name    string
		signing config.Signing
		prompt  Prompter
		wantErr string
	}{
		{"literal password", config.Signing{Keystore: path, StorePassword: "hunter2"}, never, ""},
		{"env password", config.Signing{Keystore: path, StorePassword: "env:APKPACK_TEST_STORE"}, never, ""},
		{"prompted", config.Signing{Keystore: path}, prompted, ""},
		{"key password retry", config.Signing{Keystore: path, StorePassword: "wrong", KeyPassword: "hunter2"}, never, ""},
		{"no password", config.Signing{Keystore: path}, nil, "Keystore password required"},
		{"missing env", config.Signing{Keystore: path, StorePassword: "env:APKPACK_TEST_UNSET"}, never, "APKPACK_TEST_UNSET"},
		{"wrong password", config.Signing{Keystore: path, StorePassword: "wrong"}, never, "release.p12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := LoadIdentity(tt.signing, tt.prompt)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("LoadIdentity() error = %v, want it to mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadIdentity() error = %v", err)
			}
			if id.Key == nil {
				t.Error("no private key")
			}
		})
	}
}

func TestLoadIdentityJKS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "release.keystore")
	data := append([]byte{0xFE, 0xED, 0xFE, 0xED}, make([]byte, 32)...)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadIdentity(config.Signing{Keystore: path, StorePassword: "x"}, nil)
	if err == nil {
		t.Fatal("LoadIdentity() accepted a JKS keystore")
	}
	for _, want := range []string{"JKS", "keytool", "-destkeystore"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}
