package workflow

import (
	"archive/zip"
	"context"
	"debug/elf"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/mobilechromeapps/apkpack/internal/apk"
	"github.com/mobilechromeapps/apkpack/internal/config"
	"github.com/mobilechromeapps/apkpack/internal/fixture"
	"github.com/mobilechromeapps/apkpack/internal/keystore"
	"github.com/mobilechromeapps/apkpack/internal/signer"
)

// newJob lays out a template, a web app and a PEM key pair under a temp dir
// and returns a config that packages them.
func newJob(t *testing.T, templateAPK bool) *config.Config {
	t.Helper()
	dir := t.TempDir()

	template := filepath.Join(dir, "template")
	if templateAPK {
		template += ".apk"
		if err := fixture.WriteTemplateAPK(template); err != nil {
			t.Fatal(err)
		}
	} else if err := fixture.WriteTemplateDir(template); err != nil {
		t.Fatal(err)
	}

	www := filepath.Join(dir, "www")
	if err := os.MkdirAll(filepath.Join(www, "js"), 0o755); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(www, "index.html"), []byte("<html>MyApp</html>\n"), 0o644)
	os.WriteFile(filepath.Join(www, "js", "app.js"), []byte("console.log('hi')\n"), 0o644)

	key, cert := filepath.Join(dir, "key.pem"), filepath.Join(dir, "cert.pem")
	if err := fixture.WritePEM(key, cert); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Template: template,
		WWW:      www,
		Output:   filepath.Join(dir, "out", "myapp.apk"),
		App:      myApp(),
		Signing:  config.Signing{Certificate: cert, PrivateKey: key},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	return cfg
}

func zipEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	entries := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		entries[f.Name] = string(b)
	}
	return entries
}

func TestPackagerExecute(t *testing.T) {
	for _, templateAPK := range []bool{false, true} {
		name := "template dir"
		if templateAPK {
			name = "template apk"
		}
		t.Run(name, func(t *testing.T) {
			cfg := newJob(t, templateAPK)

			res, err := NewPackager(cfg, Options{}).Execute(context.Background())
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if !res.Verified {
				t.Error("result not verified")
			}
			if res.Digest != signer.DigestFor(defaultMinSDK).Name {
				t.Errorf("Digest = %s, want the digest for minSdkVersion %d", res.Digest, defaultMinSDK)
			}
			_, cert, _ := fixture.Identity()
			if res.Fingerprint != keystore.Fingerprint(cert) {
				t.Errorf("Fingerprint = %s", res.Fingerprint)
			}

			info, err := apk.Inspect(cfg.Output)
			if err != nil {
				t.Fatalf("Inspect() error = %v", err)
			}
			if info.PackageID != "com.example.myapp" || info.VersionName != "2.3" || info.VersionCode != 23 {
				t.Errorf("Inspect() = %s %s (%d)", info.PackageID, info.VersionName, info.VersionCode)
			}
			if info.Label != "MyApp" {
				t.Errorf("Label = %q, want MyApp", info.Label)
			}

			entries := zipEntries(t, cfg.Output)
			if got := entries["assets/www/index.html"]; got != "<html>MyApp</html>\n" {
				t.Errorf("index.html = %q, web app not merged", got)
			}
			if _, ok := entries["assets/www/js/app.js"]; !ok {
				t.Error("assets/www/js/app.js missing")
			}
			if _, ok := entries["assets/www/cordova.js"]; !ok {
				t.Error("template file assets/www/cordova.js dropped")
			}
			if !strings.Contains(entries[signer.SignaturePath], "-Digest-Manifest") {
				t.Error("stale template signature kept")
			}

			unsigned := strings.TrimSuffix(cfg.Output, ".apk") + "-unsigned.apk"
			if _, err := os.Stat(unsigned); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("unsigned APK left behind: %v", err)
			}
		})
	}
}

func TestPackagerKeepWork(t *testing.T) {
	cfg := newJob(t, false)
	cfg.WorkDir = filepath.Join(t.TempDir(), "work")
	verify := false
	cfg.Verify = &verify

	res, err := NewPackager(cfg, Options{KeepWork: true}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Verified {
		t.Error("Verified set with verification disabled")
	}
	unsigned := strings.TrimSuffix(cfg.Output, ".apk") + "-unsigned.apk"
	if _, err := os.Stat(unsigned); err != nil {
		t.Errorf("unsigned APK not kept: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.WorkDir, "assets", "www", "index.html")); err != nil {
		t.Errorf("work directory not kept: %v", err)
	}
}

func TestPackagerNativeLibs(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(dir string)
		abi    string
		choose string
		want   []string
	}{
		{
			name: "flat with abi",
			setup: func(dir string) {
				os.WriteFile(filepath.Join(dir, "libcore.so"), fixture.SharedLibrary(elf.EM_AARCH64), 0o644)
			},
			abi:  "arm64-v8a",
			want: []string{"arm64-v8a"},
		},
		{
			name: "flat with selector",
			setup: func(dir string) {
				os.WriteFile(filepath.Join(dir, "libcore.so"), fixture.SharedLibrary(elf.EM_X86_64), 0o644)
			},
			choose: "x86_64",
			want:   []string{"x86_64"},
		},
		{
			name: "lib tree",
			setup: func(dir string) {
				for abi, m := range map[string]elf.Machine{"arm64-v8a": elf.EM_AARCH64, "armeabi-v7a": elf.EM_ARM} {
					os.MkdirAll(filepath.Join(dir, abi), 0o755)
					os.WriteFile(filepath.Join(dir, abi, "libcore.so"), fixture.SharedLibrary(m), 0o644)
				}
			},
			want: []string{"arm64-v8a", "armeabi-v7a"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newJob(t, false)
			libs := t.TempDir()
			tt.setup(libs)
			cfg.NativeLibs = &config.NativeLibs{Dir: libs, ABI: tt.abi}

			opts := Options{}
			if tt.choose != "" {
				opts.SelectABI = func(abis []string, recommended int) (int, error) {
					return slices.Index(abis, tt.choose), nil
				}
			}
			res, err := NewPackager(cfg, opts).Execute(context.Background())
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if !slices.Equal(res.ABIs, tt.want) {
				t.Errorf("ABIs = %v, want %v", res.ABIs, tt.want)
			}
			entries := zipEntries(t, cfg.Output)
			for _, abi := range tt.want {
				if _, ok := entries["lib/"+abi+"/libcore.so"]; !ok {
					t.Errorf("lib/%s/libcore.so missing", abi)
				}
			}
		})
	}
}

func TestPackagerErrors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(cfg *config.Config)
		wantErr string
	}{
		{"missing template", func(cfg *config.Config) { cfg.Template += ".missing" }, "template"},
		{"missing www", func(cfg *config.Config) { cfg.WWW += ".missing" }, "www"},
		{"bad key", func(cfg *config.Config) { cfg.Signing.PrivateKey = cfg.Signing.Certificate }, "signing"},
		{"package too long", func(cfg *config.Config) {
			cfg.App.Package = "com." + strings.Repeat("x", 130)
		}, "resources.arsc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newJob(t, false)
			tt.modify(cfg)
			_, err := NewPackager(cfg, Options{}).Execute(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Execute() error = %v, want it to mention %q", err, tt.wantErr)
			}
			if _, err := os.Stat(cfg.Output); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("output written despite failure: %v", err)
			}
		})
	}
}

func TestPackagerCancelled(t *testing.T) {
	cfg := newJob(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewPackager(cfg, Options{}).Execute(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}
