package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(*Config) bool
	}{
		{
			name: "pem signing",
			yaml: `
template: ./template
www: ./www
app:
  name: MyApp
  package: com.example.myapp
  version_name: "2.3"
  version_code: 23
signing:
  certificate: cert.pem
  private_key: key.pem
`,
			check: func(c *Config) bool {
				return c.Template == "./template" &&
					c.App.Name == "MyApp" &&
					c.App.VersionName == "2.3" &&
					c.App.VersionCode == 23 &&
					!c.Signing.UsesKeystore() &&
					c.NativeLibs == nil &&
					c.ShouldVerify()
			},
		},
		{
			name: "native_libs string",
			yaml: `native_libs: ./libs`,
			check: func(c *Config) bool {
				return c.NativeLibs != nil && c.NativeLibs.Dir == "./libs" && c.NativeLibs.ABI == ""
			},
		},
		{
			name: "native_libs map",
			yaml: `
native_libs:
  dir: ./libs
  abi: arm64-v8a
`,
			check: func(c *Config) bool {
				return c.NativeLibs != nil && c.NativeLibs.Dir == "./libs" && c.NativeLibs.ABI == "arm64-v8a"
			},
		},
		{
			name:    "native_libs list",
			yaml:    "native_libs: [a, b]",
			wantErr: true,
		},
		{
			name: "verify disabled",
			yaml: `verify: false`,
			check: func(c *Config) bool {
				return !c.ShouldVerify()
			},
		},
		{
			name: "empty document",
			yaml: ``,
			check: func(c *Config) bool {
				return c.Template == "" && c.ShouldVerify()
			},
		},
		{
			name:    "unknown field",
			yaml:    `tempalte: ./template`,
			wantErr: true,
		},
		{
			name:    "negative version code",
			yaml:    "app:\n  version_code: -1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse(strings.NewReader(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.check != nil && !tt.check(cfg) {
				t.Errorf("Parse() check failed for %+v", cfg)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Template: "template",
		WWW:      "www",
		App:      App{Name: "MyApp", Package: "com.example.myapp"},
		Signing:  Signing{Keystore: "release.p12"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid keystore", func(*Config) {}, ""},
		{"valid pem", func(c *Config) {
			c.Signing = Signing{Certificate: "cert.pem", PrivateKey: "key.pem"}
		}, ""},
		{"missing fields", func(c *Config) {
			c.Template, c.App.Name = "", ""
		}, "template, app.name"},
		{"bad package", func(c *Config) { c.App.Package = "myapp" }, "two segments"},
		{"both signing modes", func(c *Config) { c.Signing.Certificate = "cert.pem" }, "not both"},
		{"half a pem pair", func(c *Config) {
			c.Signing = Signing{Certificate: "cert.pem"}
		}, "both certificate and private_key"},
		{"native libs without dir", func(c *Config) { c.NativeLibs = &NativeLibs{ABI: "x86"} }, "dir is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"com.example.myapp", true},
		{"org.apache.cordova_app2", true},
		{"a.b", true},
		{"myapp", false},
		{"com.1example", false},
		{"com..example", false},
		{"com.example-app", false},
		{"com.example.", false},
	}
	for _, tt := range tests {
		if err := ValidatePackageName(tt.name); (err == nil) != tt.valid {
			t.Errorf("ValidatePackageName(%q) error = %v, valid %v", tt.name, err, tt.valid)
		}
	}
}

func TestLoadResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	yaml := `
template: template.apk
www: www
app:
  name: MyApp
  package: com.example.myapp
native_libs: libs
signing:
  keystore: /keys/release.p12
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Resolve()

	if cfg.Template != filepath.Join(dir, "template.apk") {
		t.Errorf("Template = %s", cfg.Template)
	}
	if cfg.NativeLibs.Dir != filepath.Join(dir, "libs") {
		t.Errorf("NativeLibs.Dir = %s", cfg.NativeLibs.Dir)
	}
	if cfg.Signing.Keystore != "/keys/release.p12" {
		t.Errorf("absolute Keystore changed to %s", cfg.Signing.Keystore)
	}
	if cfg.Output != filepath.Join(dir, "com.example.myapp.apk") {
		t.Errorf("default Output = %s", cfg.Output)
	}
	if cfg.WorkDir != "" {
		t.Errorf("WorkDir = %q, want empty", cfg.WorkDir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() error = %v, want ErrNotExist", err)
	}
}

func TestActivityName(t *testing.T) {
	if got := (App{Name: "MyApp"}).ActivityName(); got != "MyApp" {
		t.Errorf("ActivityName() = %q, want the app name", got)
	}
	if got := (App{Name: "MyApp", Activity: "MainActivity"}).ActivityName(); got != "MainActivity" {
		t.Errorf("ActivityName() = %q, want the explicit activity", got)
	}
}

func TestResolveSecret(t *testing.T) {
	t.Setenv("APKPACK_TEST_SECRET", "hunter2")

	tests := []struct {
		value   string
		want    string
		ok      bool
		wantErr error
	}{
		{"", "", false, nil},
		{"literal", "literal", true, nil},
		{"env:APKPACK_TEST_SECRET", "hunter2", true, nil},
		{"env:APKPACK_TEST_UNSET_SECRET", "", false, ErrMissingEnv},
	}
	for _, tt := range tests {
		got, ok, err := ResolveSecret(tt.value)
		if !errors.Is(err, tt.wantErr) || got != tt.want || ok != tt.ok {
			t.Errorf("ResolveSecret(%q) = %q, %v, %v; want %q, %v, %v", tt.value, got, ok, err, tt.want, tt.ok, tt.wantErr)
		}
	}
}
