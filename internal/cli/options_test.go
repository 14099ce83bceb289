package cli

import (
	"io"
	"path/filepath"
	"slices"
	"testing"

	"github.com/mobilechromeapps/apkpack/internal/config"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(*Options) bool
	}{
		{
			name:  "no args shows help",
			args:  nil,
			check: func(o *Options) bool { return o.Global.Help && o.Command == CommandNone },
		},
		{
			name:  "version",
			args:  []string{"--version"},
			check: func(o *Options) bool { return o.Global.Version },
		},
		{
			name:  "help for command",
			args:  []string{"help", "edit"},
			check: func(o *Options) bool { return o.Global.Help && o.Command == CommandEdit },
		},
		{
			name: "package with flags after config",
			args: []string{"--no-color", "package", "apkpack.yaml", "-o", "out.apk", "--version-code", "23", "--keep-work"},
			check: func(o *Options) bool {
				return o.Command == CommandPackage &&
					o.Global.NoColor &&
					slices.Equal(o.Args, []string{"apkpack.yaml"}) &&
					o.Package.Output == "out.apk" &&
					o.Package.App.VersionCode == 23 &&
					o.Package.KeepWork
			},
		},
		{
			name: "package quiet after subcommand",
			args: []string{"package", "-q", "--name=MyApp"},
			check: func(o *Options) bool {
				return o.Global.Quiet && o.Package.App.Name == "MyApp" && len(o.Args) == 0
			},
		},
		{
			name:    "package with two configs",
			args:    []string{"package", "a.yaml", "b.yaml"},
			wantErr: true,
		},
		{
			name: "edit",
			args: []string{"edit", "--manifest", "AndroidManifest.xml", "--name", "MyApp", "-o", "out"},
			check: func(o *Options) bool {
				return o.Command == CommandEdit && o.Edit.Manifest == "AndroidManifest.xml" && o.Edit.OutDir == "out"
			},
		},
		{
			name:    "edit without files",
			args:    []string{"edit", "--name", "MyApp"},
			wantErr: true,
		},
		{
			name:    "edit without changes",
			args:    []string{"edit", "--arsc", "resources.arsc"},
			wantErr: true,
		},
		{
			name:    "version code out of range",
			args:    []string{"edit", "--arsc", "resources.arsc", "--version-code", "4294967296"},
			wantErr: true,
		},
		{
			name: "inspect json",
			args: []string{"inspect", "app.apk", "--json"},
			check: func(o *Options) bool {
				return o.Command == CommandInspect && o.Inspect.JSON && o.Args[0] == "app.apk"
			},
		},
		{
			name:    "verify needs a file",
			args:    []string{"verify"},
			wantErr: true,
		},
		{
			name:    "unknown flag",
			args:    []string{"verify", "--bogus", "app.apk"},
			wantErr: true,
		},
		{
			name: "unknown command",
			args: []string{"pakage"},
			check: func(o *Options) bool {
				return o.Global.Help && o.Unknown == "pakage"
			},
		},
		{
			name:  "subcommand help",
			args:  []string{"inspect", "-h"},
			check: func(o *Options) bool { return o.Global.Help && o.Command == CommandInspect },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := Parse(tt.args, io.Discard)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(opts) {
				t.Errorf("Parse() check failed for %+v", opts)
			}
		})
	}
}

func TestPackageOptionsApply(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg := &config.Config{
		Template: "/abs/template",
		App:      config.App{Name: "Old", Package: "com.old.app", VersionName: "1.0"},
		Signing:  config.Signing{Certificate: "/abs/cert.pem", PrivateKey: "/abs/key.pem"},
	}
	opts := PackageOptions{
		App:      AppOptions{Name: "MyApp", VersionCode: 7},
		Output:   "out.apk",
		Keystore: "release.p12",
		NoVerify: true,
	}
	if err := opts.Apply(cfg); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if cfg.App.Name != "MyApp" || cfg.App.Package != "com.old.app" || cfg.App.VersionName != "1.0" || cfg.App.VersionCode != 7 {
		t.Errorf("App = %+v", cfg.App)
	}
	if cfg.Output != filepath.Join(dir, "out.apk") {
		t.Errorf("Output = %s", cfg.Output)
	}
	if cfg.Template != "/abs/template" {
		t.Errorf("Template changed to %s", cfg.Template)
	}
	if cfg.Signing.Keystore != filepath.Join(dir, "release.p12") || cfg.Signing.Certificate != "" || cfg.Signing.PrivateKey != "" {
		t.Errorf("Signing = %+v", cfg.Signing)
	}
	if cfg.ShouldVerify() {
		t.Error("--no-verify not applied")
	}
}

func TestPackageOptionsApplyABI(t *testing.T) {
	if err := (&PackageOptions{ABI: "x86"}).Apply(&config.Config{}); err == nil {
		t.Error("Apply() accepted --abi without native libraries")
	}

	cfg := &config.Config{}
	opts := PackageOptions{NativeLibs: "/libs", ABI: "arm64-v8a"}
	if err := opts.Apply(cfg); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if cfg.NativeLibs == nil || cfg.NativeLibs.Dir != "/libs" || cfg.NativeLibs.ABI != "arm64-v8a" {
		t.Errorf("NativeLibs = %+v", cfg.NativeLibs)
	}
}

func TestEditOptionsConfig(t *testing.T) {
	e := EditOptions{App: AppOptions{Name: "MyApp", Package: "com.example.myapp", VersionCode: 3}}
	app := e.Config()
	if app.Name != "MyApp" || app.Package != "com.example.myapp" || app.VersionCode != 3 || app.ActivityName() != "MyApp" {
		t.Errorf("Config() = %+v", app)
	}
}
