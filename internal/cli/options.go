// Package cli handles command-line interface concerns.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mobilechromeapps/apkpack/internal/config"
)

// Command represents the active subcommand.
type Command string

const (
	CommandNone    Command = ""
	CommandPackage Command = "package"
	CommandEdit    Command = "edit"
	CommandInspect Command = "inspect"
	CommandVerify  Command = "verify"
)

// Commands lists the subcommands, in help order.
var Commands = []Command{CommandPackage, CommandEdit, CommandInspect, CommandVerify}

// GlobalOptions holds flags available at root level and shared across subcommands.
type GlobalOptions struct {
	Verbose bool
	Quiet   bool
	NoColor bool
	Version bool
	Help    bool
}

// AppOptions are the identity overrides shared by package and edit.
type AppOptions struct {
	Name        string
	Package     string
	Activity    string
	VersionName string
	VersionCode uint
}

// Empty reports whether no field was given.
func (o AppOptions) Empty() bool {
	return o == AppOptions{}
}

// PackageOptions holds flags specific to the package subcommand.
// Every field overrides the corresponding config value when set.
type PackageOptions struct {
	App AppOptions

	Output     string
	Template   string
	WWW        string
	WorkDir    string
	NativeLibs string
	ABI        string

	Keystore    string
	Certificate string
	PrivateKey  string

	KeepWork bool
	NoVerify bool
}

// EditOptions holds flags specific to the edit subcommand.
type EditOptions struct {
	App      AppOptions
	Manifest string
	ARSC     string
	OutDir   string // files are edited in place when empty
}

// InspectOptions holds flags specific to the inspect subcommand.
type InspectOptions struct {
	JSON bool
}

// Options holds all CLI configuration options.
type Options struct {
	Command Command
	Args    []string // Remaining positional arguments

	// Unknown is set to the first argument when it names no command.
	Unknown string

	Global  GlobalOptions
	Package PackageOptions
	Edit    EditOptions
	Inspect InspectOptions
}

// ParseCommand parses os.Args.
func ParseCommand() (*Options, error) {
	return Parse(os.Args[1:], os.Stderr)
}

// Parse parses command-line arguments. Flag errors are reported to errOut
// and returned; a help request is not an error.
func Parse(args []string, errOut io.Writer) (*Options, error) {
	opts := &Options{}

	for len(args) > 0 {
		switch args[0] {
		case "-h", "--help", "-help", "help":
			opts.Global.Help = true
			if len(args) > 1 {
				opts.Command = Command(args[1])
			}
			return opts, nil
		case "-v", "--version", "-version", "version":
			opts.Global.Version = true
			return opts, nil
		case "--verbose":
			opts.Global.Verbose = true
		case "-q", "--quiet":
			opts.Global.Quiet = true
		case "--no-color":
			opts.Global.NoColor = true
		default:
			return parseSubcommand(opts, args, errOut)
		}
		args = args[1:]
	}

	opts.Global.Help = true
	return opts, nil
}

func parseSubcommand(opts *Options, args []string, errOut io.Writer) (*Options, error) {
	cmd := Command(args[0])
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.BoolVar(&opts.Global.Verbose, "verbose", opts.Global.Verbose, "Detailed output")
	fs.BoolVar(&opts.Global.Quiet, "q", opts.Global.Quiet, "Results and errors only")
	fs.BoolVar(&opts.Global.Quiet, "quiet", opts.Global.Quiet, "Results and errors only (alias)")
	fs.BoolVar(&opts.Global.NoColor, "no-color", opts.Global.NoColor, "Disable colored output")
	var showHelp bool
	fs.BoolVar(&showHelp, "h", false, "Show help")
	fs.BoolVar(&showHelp, "help", false, "Show help")

	switch cmd {
	case CommandPackage:
		p := &opts.Package
		appFlags(fs, &p.App)
		fs.StringVar(&p.Output, "o", "", "Output APK path")
		fs.StringVar(&p.Template, "template", "", "Template directory or APK")
		fs.StringVar(&p.WWW, "www", "", "Web app directory")
		fs.StringVar(&p.WorkDir, "work-dir", "", "Directory to assemble the package in")
		fs.StringVar(&p.NativeLibs, "native-libs", "", "Directory of native libraries")
		fs.StringVar(&p.ABI, "abi", "", "ABI of flat native libraries")
		fs.StringVar(&p.Keystore, "keystore", "", "PKCS#12 keystore")
		fs.StringVar(&p.Certificate, "cert", "", "PEM certificate")
		fs.StringVar(&p.PrivateKey, "key", "", "PEM private key")
		fs.BoolVar(&p.KeepWork, "keep-work", false, "Keep the work directory and unsigned APK")
		fs.BoolVar(&p.NoVerify, "no-verify", false, "Skip verifying the signed APK")
	case CommandEdit:
		e := &opts.Edit
		appFlags(fs, &e.App)
		fs.StringVar(&e.Manifest, "manifest", "", "Compiled AndroidManifest.xml")
		fs.StringVar(&e.ARSC, "arsc", "", "Compiled resources.arsc")
		fs.StringVar(&e.OutDir, "o", "", "Write edited files to this directory instead of in place")
	case CommandInspect:
		fs.BoolVar(&opts.Inspect.JSON, "json", false, "Print JSON instead of a report")
	case CommandVerify:
	default:
		opts.Unknown = args[0]
		opts.Global.Help = true
		return opts, nil
	}

	opts.Command = cmd
	if err := fs.Parse(reorderArgs(fs, args[1:])); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			opts.Global.Help = true
			return opts, nil
		}
		return opts, err
	}
	if showHelp {
		opts.Global.Help = true
		return opts, nil
	}
	opts.Args = fs.Args()
	return opts, opts.validate()
}

func appFlags(fs *flag.FlagSet, a *AppOptions) {
	fs.StringVar(&a.Name, "name", "", "App name")
	fs.StringVar(&a.Package, "package", "", "Package name (e.g., com.example.myapp)")
	fs.StringVar(&a.Activity, "activity", "", "Activity name (defaults to the app name)")
	fs.StringVar(&a.VersionName, "version-name", "", "Version name")
	fs.UintVar(&a.VersionCode, "version-code", 0, "Version code")
}

func (o *Options) validate() error {
	switch o.Command {
	case CommandPackage:
		if len(o.Args) > 1 {
			return fmt.Errorf("package takes at most one config file, got %d arguments", len(o.Args))
		}
		if o.Package.App.VersionCode > 1<<32-1 {
			return fmt.Errorf("--version-code %d out of range", o.Package.App.VersionCode)
		}
	case CommandEdit:
		if o.Edit.Manifest == "" && o.Edit.ARSC == "" {
			return fmt.Errorf("edit needs --manifest, --arsc or both")
		}
		if o.Edit.App.Empty() {
			return fmt.Errorf("edit: nothing to change")
		}
		if o.Edit.App.VersionCode > 1<<32-1 {
			return fmt.Errorf("--version-code %d out of range", o.Edit.App.VersionCode)
		}
	case CommandInspect, CommandVerify:
		if len(o.Args) != 1 {
			return fmt.Errorf("%s needs exactly one file", o.Command)
		}
	}
	return nil
}

// reorderArgs moves flags before positional arguments so that
// "package apkpack.yaml -o out.apk" works.
func reorderArgs(fs *flag.FlagSet, args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			positional = append(positional, arg)
			continue
		}
		flags = append(flags, arg)
		name := strings.TrimLeft(arg, "-")
		if strings.Contains(name, "=") {
			continue
		}
		if f := fs.Lookup(name); f != nil && !isBoolFlag(f) && i+1 < len(args) {
			i++
			flags = append(flags, args[i])
		}
	}
	return append(flags, positional...)
}

func isBoolFlag(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

// Apply copies the set flags over cfg. Paths given on the command line are
// relative to the working directory, so they are made absolute here.
func (o *PackageOptions) Apply(cfg *config.Config) error {
	paths := []struct {
		flag string
		dst  *string
	}{
		{o.Output, &cfg.Output},
		{o.Template, &cfg.Template},
		{o.WWW, &cfg.WWW},
		{o.WorkDir, &cfg.WorkDir},
		{o.Keystore, &cfg.Signing.Keystore},
		{o.Certificate, &cfg.Signing.Certificate},
		{o.PrivateKey, &cfg.Signing.PrivateKey},
	}
	for _, p := range paths {
		if p.flag == "" {
			continue
		}
		abs, err := filepath.Abs(p.flag)
		if err != nil {
			return err
		}
		*p.dst = abs
	}

	// The two signing modes are exclusive; a flag for one replaces the other.
	if o.Keystore != "" && o.Certificate == "" && o.PrivateKey == "" {
		cfg.Signing.Certificate, cfg.Signing.PrivateKey = "", ""
	}
	if o.Keystore == "" && (o.Certificate != "" || o.PrivateKey != "") {
		cfg.Signing.Keystore = ""
	}

	if o.NativeLibs != "" {
		abs, err := filepath.Abs(o.NativeLibs)
		if err != nil {
			return err
		}
		if cfg.NativeLibs == nil {
			cfg.NativeLibs = &config.NativeLibs{}
		}
		cfg.NativeLibs.Dir = abs
	}
	if o.ABI != "" {
		if cfg.NativeLibs == nil {
			return fmt.Errorf("--abi needs native libraries (--native-libs or native_libs in config)")
		}
		cfg.NativeLibs.ABI = o.ABI
	}

	o.App.apply(&cfg.App)
	if o.NoVerify {
		verify := false
		cfg.Verify = &verify
	}
	return nil
}

func (a AppOptions) apply(app *config.App) {
	set := func(flag string, dst *string) {
		if flag != "" {
			*dst = flag
		}
	}
	set(a.Name, &app.Name)
	set(a.Package, &app.Package)
	set(a.Activity, &app.Activity)
	set(a.VersionName, &app.VersionName)
	if a.VersionCode != 0 {
		app.VersionCode = uint32(a.VersionCode)
	}
}

// Config returns the edit identity as a config.App.
func (e *EditOptions) Config() config.App {
	var app config.App
	e.App.apply(&app)
	return app
}
