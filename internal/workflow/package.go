// Package workflow orchestrates packaging: template preparation, manifest
// and resource table edits, archive building, signing and verification.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/mobilechromeapps/apkpack/internal/apk"
	"github.com/mobilechromeapps/apkpack/internal/archive"
	"github.com/mobilechromeapps/apkpack/internal/config"
	"github.com/mobilechromeapps/apkpack/internal/keystore"
	"github.com/mobilechromeapps/apkpack/internal/signer"
	"github.com/mobilechromeapps/apkpack/internal/ui"
)

// Options tune a packaging run beyond the config file.
type Options struct {
	// KeepWork keeps the work directory and the unsigned APK.
	KeepWork bool

	// Prompt asks for missing passwords. Nil means fail instead.
	Prompt Prompter

	// SelectABI picks the ABI of flat native libraries when the config
	// names none. Nil means the host ABI.
	SelectABI func(abis []string, recommended int) (int, error)

	// ShowProgress draws step headers and the archive progress bar.
	ShowProgress bool
}

// Result summarizes a finished package.
type Result struct {
	Output      string
	Package     string
	VersionName string
	ABIs        []string
	Digest      string
	Fingerprint string
	Verified    bool
}

// Packager runs the package pipeline for one config.
type Packager struct {
	cfg  *config.Config
	opts Options

	identity *keystore.Identity
	workDir  string
	tempWork bool
	unsigned string
	minSDK   int
	abis     []string
}

// NewPackager creates a packager. cfg must be resolved and valid.
func NewPackager(cfg *config.Config, opts Options) *Packager {
	return &Packager{cfg: cfg, opts: opts, minSDK: defaultMinSDK}
}

// Execute builds, signs and optionally verifies the APK.
func (p *Packager) Execute(ctx context.Context) (*Result, error) {
	defer p.cleanup()

	total := 6
	if !p.cfg.ShouldVerify() {
		total--
	}
	steps := ui.NewStepTracker(total)
	step := func(name string) {
		if p.opts.ShowProgress {
			steps.StartStep(name)
		}
	}

	step("Load Signing Key")
	if err := p.loadIdentity(); err != nil {
		return nil, err
	}

	step("Prepare Template")
	if err := p.prepare(ctx); err != nil {
		return nil, err
	}

	step("Edit Manifest & Resources")
	if err := p.edit(ctx); err != nil {
		return nil, err
	}

	step("Add Web App")
	if err := p.assemble(ctx); err != nil {
		return nil, err
	}

	step("Build & Sign")
	digest, err := p.buildAndSign(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Output:      p.cfg.Output,
		Package:     p.cfg.App.Package,
		VersionName: p.cfg.App.VersionName,
		ABIs:        p.abis,
		Digest:      digest.Name,
		Fingerprint: p.identity.Fingerprint(),
	}

	if p.cfg.ShouldVerify() {
		step("Verify")
		if err := p.verify(res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (p *Packager) loadIdentity() error {
	id, err := LoadIdentity(p.cfg.Signing, p.opts.Prompt)
	if err != nil {
		return err
	}
	p.identity = id
	ui.Status("Loaded", fmt.Sprintf("%s key %s", id.Certificate.PublicKeyAlgorithm, ui.Dim(id.Fingerprint())))
	return nil
}

func (p *Packager) prepare(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.workDir = p.cfg.WorkDir
	if p.workDir == "" {
		dir, err := os.MkdirTemp("", "apkpack-work-*")
		if err != nil {
			return fmt.Errorf("failed to create work directory: %w", err)
		}
		p.workDir, p.tempWork = dir, true
	}

	_, err := WithSpinner("Unpacking template...", "", func() (struct{}, error) {
		return struct{}{}, archive.Prepare(ctx, p.cfg.Template, p.workDir)
	})
	if err != nil {
		return err
	}
	ui.Status("Prepared", fmt.Sprintf("%s from %s", p.workDir, filepath.Base(p.cfg.Template)))
	return nil
}

func (p *Packager) edit(ctx context.Context) error {
	manifest := filepath.Join(p.workDir, archive.ManifestFile)
	if _, err := os.Stat(manifest); err != nil {
		return fmt.Errorf("template has no %s: %w", archive.ManifestFile, err)
	}
	table := filepath.Join(p.workDir, archive.ResourcesFile)
	if _, err := os.Stat(table); errors.Is(err, os.ErrNotExist) {
		ui.WarningStatus("Warning", "template has no "+archive.ResourcesFile+", only the manifest is edited")
		table = ""
	}

	res, err := EditFiles(ctx, manifest, table, "", p.cfg.App)
	if err != nil {
		return err
	}
	p.minSDK = res.MinSDK
	ui.Status("Edited", fmt.Sprintf("%s (%s)", p.cfg.App.Name, p.cfg.App.Package))
	return nil
}

func (p *Packager) assemble(ctx context.Context) error {
	if err := archive.MergeWWW(ctx, p.cfg.WWW, p.workDir); err != nil {
		return err
	}
	ui.Status("Merged", p.cfg.WWW+" -> "+archive.WWWDir)

	if p.cfg.NativeLibs != nil {
		abi, err := p.resolveABI()
		if err != nil {
			return err
		}
		if _, err := archive.AddNativeLibs(ctx, p.cfg.NativeLibs.Dir, abi, p.workDir); err != nil {
			return err
		}
	}
	p.abis = archive.PresentABIs(p.workDir)
	if len(p.abis) > 0 {
		ui.Status("Native", strings.Join(p.abis, ", "))
	}
	return nil
}

// resolveABI returns the ABI for flat native libraries: the configured one,
// the user's choice, or the host's.
func (p *Packager) resolveABI() (string, error) {
	libs := p.cfg.NativeLibs
	tree, err := archive.IsLibTree(libs.Dir)
	if err != nil || tree {
		return "", err
	}
	if libs.ABI != "" {
		return libs.ABI, nil
	}

	host := archive.HostABI()
	if p.opts.SelectABI != nil {
		i, err := p.opts.SelectABI(archive.ABIs, slices.Index(archive.ABIs, host))
		if err != nil {
			return "", err
		}
		return archive.ABIs[i], nil
	}
	if host == "" {
		return "", errors.New(ui.FormatError(
			"native_libs: cannot tell which ABI the libraries are built for",
			runtime.GOARCH+" has no Android equivalent",
			"set native_libs.abi or pass --abi"))
	}
	ui.Detail("Assuming", "native libraries are "+host)
	return host, nil
}

func (p *Packager) buildAndSign(ctx context.Context) (signer.Digest, error) {
	out := p.cfg.Output
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return signer.Digest{}, err
	}
	if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
		return signer.Digest{}, fmt.Errorf("failed to remove old %s: %w", out, err)
	}
	p.unsigned = strings.TrimSuffix(out, filepath.Ext(out)) + "-unsigned.apk"

	var progress archive.ProgressFunc
	var bar *ui.Progress
	if p.opts.ShowProgress {
		bar = ui.NewProgress("Archiving", 0)
		progress = bar.Update
	}
	if err := archive.Build(ctx, p.workDir, p.unsigned, progress); err != nil {
		return signer.Digest{}, fmt.Errorf("failed to build APK: %w", err)
	}
	if bar != nil {
		bar.Done()
	}

	d := signer.DigestFor(p.minSDK)
	ui.Detail("Digest", fmt.Sprintf("%s (minSdkVersion %d)", d.Name, p.minSDK))
	spinner := ui.NewSpinner("Signing...")
	spinner.Start()
	err := signer.SignArchive(ctx, p.unsigned, out, p.identity, d)
	spinner.Stop()
	if err != nil {
		return signer.Digest{}, fmt.Errorf("failed to sign APK: %w", err)
	}
	ui.Status("Signed", out)
	return d, nil
}

func (p *Packager) verify(res *Result) error {
	sig, err := apk.Verify(p.cfg.Output)
	if err != nil {
		return err
	}
	if sig.Fingerprint != res.Fingerprint {
		return fmt.Errorf("signed APK carries certificate %s, expected %s", sig.Fingerprint, res.Fingerprint)
	}
	info, err := apk.Inspect(p.cfg.Output)
	if err != nil {
		return err
	}
	if info.PackageID != p.cfg.App.Package {
		return fmt.Errorf("built APK reports package %q, expected %q", info.PackageID, p.cfg.App.Package)
	}
	res.Verified = true
	ui.Status("Verified", fmt.Sprintf("v%d signature, %s", sig.Scheme, ui.FormatBytes(info.FileSize)))
	return nil
}

func (p *Packager) cleanup() {
	if p.opts.KeepWork {
		if p.workDir != "" {
			ui.Detail("Kept", p.workDir)
		}
		return
	}
	if p.unsigned != "" {
		os.Remove(p.unsigned)
	}
	if p.tempWork {
		os.RemoveAll(p.workDir)
	}
}
