package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mobilechromeapps/apkpack/internal/cli"
	"github.com/mobilechromeapps/apkpack/internal/config"
	"github.com/mobilechromeapps/apkpack/internal/help"
	"github.com/mobilechromeapps/apkpack/internal/ui"
	"github.com/mobilechromeapps/apkpack/internal/workflow"
)

var version = "dev"

func main() {
	// Set up signal handler first - this handles Ctrl+C globally
	sigHandler := cli.NewSignalHandler()

	exitCode := run(sigHandler)
	sigHandler.Stop()
	os.Exit(exitCode)
}

func run(sigHandler *cli.SignalHandler) int {
	ctx := sigHandler.Context()
	ui.SetContext(ctx)
	ui.Version = version

	opts, err := cli.ParseCommand()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Run %s for usage.\n", ui.Code(strings.TrimSpace("apkpack help "+string(opts.Command))))
		return 1
	}

	if opts.Global.NoColor {
		ui.SetNoColor(true)
	}
	switch {
	case opts.Global.Quiet:
		ui.SetVerbosity(ui.VerbQuiet)
	case opts.Global.Verbose:
		ui.SetVerbosity(ui.VerbVerbose)
	}

	if opts.Global.Version {
		fmt.Print(ui.RenderLogo())
		fmt.Printf("apkpack version %s\n", version)
		return 0
	}
	if opts.Global.Help {
		help.HandleHelp(opts)
		if opts.Unknown != "" {
			return 1
		}
		return 0
	}

	switch opts.Command {
	case cli.CommandPackage:
		err = runPackage(ctx, opts)
	case cli.CommandEdit:
		err = runEdit(ctx, opts)
	case cli.CommandInspect:
		err = runInspect(opts)
	case cli.CommandVerify:
		err = runVerify(opts)
	}

	if err != nil {
		if errors.Is(err, ui.ErrInterrupted) || errors.Is(err, context.Canceled) || sigHandler.Interrupted() {
			ui.ErrorStatus("Interrupted", string(opts.Command))
			return cli.ExitInterrupted
		}
		printError(err)
		return 1
	}
	return 0
}

// runPackage executes the package workflow.
func runPackage(ctx context.Context, opts *cli.Options) error {
	cfg, err := loadConfig(opts.Args)
	if err != nil {
		return err
	}
	if err := opts.Package.Apply(cfg); err != nil {
		return err
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return errors.New(ui.FormatError("invalid configuration", err.Error(), "run 'apkpack help package' for the config format"))
	}

	interactive := ui.IsInteractive()
	if interactive && !ui.QuietMode {
		fmt.Fprint(os.Stderr, ui.RenderLogo())
	}

	wopts := workflow.Options{
		KeepWork:     opts.Package.KeepWork,
		ShowProgress: !ui.QuietMode,
	}
	if interactive {
		if _, err := os.Stat(cfg.Output); err == nil {
			ok, err := ui.Confirm(cfg.Output+" exists. Overwrite?", true)
			if err != nil {
				return err
			}
			if !ok {
				ui.Status("Skipped", cfg.Output)
				return nil
			}
		}
		wopts.Prompt = ui.PromptPassword
		wopts.SelectABI = ui.SelectABI
	}

	res, err := workflow.NewPackager(cfg, wopts).Execute(ctx)
	if err != nil {
		return err
	}
	return workflow.PrintResult(os.Stdout, res, false)
}

// loadConfig reads the job file named on the command line, "-" for stdin,
// or apkpack.yaml in the working directory. Without any, flags alone
// describe the job.
func loadConfig(args []string) (*config.Config, error) {
	if len(args) > 0 {
		if args[0] == "-" {
			return config.Parse(os.Stdin)
		}
		return config.Load(args[0])
	}
	if _, err := os.Stat(config.DefaultFile); err == nil {
		ui.Detail("Using", config.DefaultFile)
		return config.Load(config.DefaultFile)
	}
	return &config.Config{}, nil
}

// runEdit edits a compiled manifest and resource table outside a package run.
func runEdit(ctx context.Context, opts *cli.Options) error {
	e := opts.Edit
	app := e.Config()
	if app.Package != "" {
		if err := config.ValidatePackageName(app.Package); err != nil {
			return err
		}
	}
	res, err := workflow.EditFiles(ctx, e.Manifest, e.ARSC, e.OutDir, app)
	if err != nil {
		return err
	}
	for _, path := range []string{res.Manifest, res.Table} {
		if path != "" {
			ui.Status("Wrote", path)
		}
	}
	return nil
}

func runInspect(opts *cli.Options) error {
	if opts.Inspect.JSON {
		ui.SetJSONMode(true)
	}
	report, err := workflow.Inspect(opts.Args[0])
	if err != nil {
		return err
	}
	return report.Print(os.Stdout, opts.Inspect.JSON)
}

func runVerify(opts *cli.Options) error {
	sig, err := workflow.VerifyAPK(opts.Args[0])
	if err != nil {
		return err
	}
	return workflow.PrintSignature(os.Stdout, sig, false)
}

// printError reports err on stderr. Messages already built with
// ui.FormatError are printed as they are.
func printError(err error) {
	msg := err.Error()
	if !strings.HasPrefix(msg, "Error: ") {
		msg = "Error: " + msg
	}
	fmt.Fprintln(os.Stderr, ui.Error(msg))
}
