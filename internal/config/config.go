// Package config handles the YAML packaging job file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the job file looked up when none is given.
const DefaultFile = "apkpack.yaml"

// Config represents the apkpack.yaml job file.
type Config struct {
	// Template is an unpacked app template directory or a template APK.
	Template string `yaml:"template"`

	// WWW is the web app merged into assets/www.
	WWW string `yaml:"www"`

	// Output is the signed APK path. Defaults to <package>.apk.
	Output string `yaml:"output,omitempty"`

	// WorkDir is the playground the template is unpacked into. A temporary
	// directory is used when empty.
	WorkDir string `yaml:"work_dir,omitempty"`

	App App `yaml:"app"`

	// Native libraries - can be a directory string or NativeLibs map
	NativeLibs    *NativeLibs `yaml:"-"`
	NativeLibsRaw yaml.Node   `yaml:"native_libs,omitempty"`

	Signing Signing `yaml:"signing"`

	// Verify checks the signed APK after writing it. Defaults to true.
	Verify *bool `yaml:"verify,omitempty"`

	// BaseDir is the directory containing the config file (for relative paths).
	// Not parsed from YAML, set by Load().
	BaseDir string `yaml:"-"`
}

// App holds the identity written into the manifest and resource table.
// Empty fields keep the template's value.
type App struct {
	Name        string `yaml:"name"`
	Package     string `yaml:"package"`
	Activity    string `yaml:"activity,omitempty"`
	VersionName string `yaml:"version_name,omitempty"`
	VersionCode uint32 `yaml:"version_code,omitempty"`
}

// NativeLibs locates shared libraries to place under lib/<abi>/.
type NativeLibs struct {
	Dir string `yaml:"dir"`
	ABI string `yaml:"abi,omitempty"`
}

// Signing selects the signing key: a PKCS#12 keystore, or a PEM
// certificate and private key pair.
type Signing struct {
	Keystore      string `yaml:"keystore,omitempty"`
	StorePassword string `yaml:"store_password,omitempty"`
	KeyPassword   string `yaml:"key_password,omitempty"`
	Certificate   string `yaml:"certificate,omitempty"`
	PrivateKey    string `yaml:"private_key,omitempty"`
}

// UsesKeystore reports whether signing uses a keystore.
func (s Signing) UsesKeystore() bool {
	return s.Keystore != ""
}

// ErrMissingEnv is returned when a secret references an unset variable.
var ErrMissingEnv = errors.New("environment variable not set")

// ResolveSecret expands an env:NAME reference. The boolean is false when
// no value is configured and the caller should prompt for one.
func ResolveSecret(value string) (string, bool, error) {
	if value == "" {
		return "", false, nil
	}
	name, ok := strings.CutPrefix(value, "env:")
	if !ok {
		return value, true, nil
	}
	v, set := os.LookupEnv(name)
	if !set {
		return "", false, fmt.Errorf("%w: %s", ErrMissingEnv, name)
	}
	return v, true, nil
}

// Load reads and parses a config file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, err
	}

	// Set base directory for relative path resolution
	absPath, err := filepath.Abs(path)
	if err == nil {
		cfg.BaseDir = filepath.Dir(absPath)
	}

	return cfg, nil
}

// Parse reads and parses config from a reader.
func Parse(r io.Reader) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.parseNativeLibs(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// parseNativeLibs handles the polymorphic native_libs field.
func (c *Config) parseNativeLibs() error {
	switch c.NativeLibsRaw.Kind {
	case 0:
		return nil
	case yaml.ScalarNode:
		var dir string
		if err := c.NativeLibsRaw.Decode(&dir); err != nil {
			return fmt.Errorf("failed to parse native_libs directory: %w", err)
		}
		c.NativeLibs = &NativeLibs{Dir: dir}
	case yaml.MappingNode:
		var libs NativeLibs
		if err := c.NativeLibsRaw.Decode(&libs); err != nil {
			return fmt.Errorf("failed to parse native_libs config: %w", err)
		}
		c.NativeLibs = &libs
	default:
		return fmt.Errorf("native_libs must be a string or map")
	}
	return nil
}

// Resolve makes every path absolute against BaseDir and fills defaults.
func (c *Config) Resolve() {
	abs := func(p *string) {
		if *p == "" || filepath.IsAbs(*p) || c.BaseDir == "" {
			return
		}
		*p = filepath.Join(c.BaseDir, *p)
	}
	abs(&c.Template)
	abs(&c.WWW)
	abs(&c.WorkDir)
	abs(&c.Signing.Keystore)
	abs(&c.Signing.Certificate)
	abs(&c.Signing.PrivateKey)
	if c.NativeLibs != nil {
		abs(&c.NativeLibs.Dir)
	}

	if c.Output == "" && c.App.Package != "" {
		c.Output = c.App.Package + ".apk"
	}
	abs(&c.Output)
}

// ActivityName returns the activity name to write. It follows the app
// name unless set explicitly.
func (a App) ActivityName() string {
	if a.Activity != "" {
		return a.Activity
	}
	return a.Name
}

// ShouldVerify reports whether the signed APK is verified.
func (c *Config) ShouldVerify() bool {
	return c.Verify == nil || *c.Verify
}

// Validate checks the config has the required fields and a usable signing
// setup.
func (c *Config) Validate() error {
	var missing []string
	if c.Template == "" {
		missing = append(missing, "template")
	}
	if c.WWW == "" {
		missing = append(missing, "www")
	}
	if c.App.Name == "" {
		missing = append(missing, "app.name")
	}
	if c.App.Package == "" {
		missing = append(missing, "app.package")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	if err := ValidatePackageName(c.App.Package); err != nil {
		return err
	}

	s := c.Signing
	switch {
	case s.UsesKeystore() && (s.Certificate != "" || s.PrivateKey != ""):
		return fmt.Errorf("signing: use either keystore or certificate/private_key, not both")
	case !s.UsesKeystore() && (s.Certificate == "" || s.PrivateKey == ""):
		return fmt.Errorf("signing: need keystore, or both certificate and private_key")
	}

	if c.NativeLibs != nil && c.NativeLibs.Dir == "" {
		return fmt.Errorf("native_libs: dir is required")
	}
	return nil
}

var packageSegment = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidatePackageName checks an Android application id: at least two
// dot-separated segments, each starting with a letter.
func ValidatePackageName(name string) error {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return fmt.Errorf("invalid package name %q: need at least two segments (e.g., com.example.app)", name)
	}
	for _, p := range parts {
		if !packageSegment.MatchString(p) {
			return fmt.Errorf("invalid package name %q: segment %q must start with a letter and contain only letters, digits and _", name, p)
		}
	}
	return nil
}
