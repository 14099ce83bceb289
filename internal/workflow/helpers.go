package workflow

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/mobilechromeapps/apkpack/internal/apk"
	"github.com/mobilechromeapps/apkpack/internal/ui"
)

// WithSpinner runs fn behind a spinner. The spinner is silent in quiet and
// JSON modes. A failure leaves a short marker line and the error itself to
// the caller; on success done is printed when set.
func WithSpinner[T any](message, done string, fn func() (T, error)) (T, error) {
	spinner := ui.NewSpinner(message)
	spinner.Start()
	result, err := fn()
	switch {
	case err != nil:
		spinner.StopWithError(strings.TrimSuffix(message, "...") + " failed")
	case done != "":
		spinner.StopWithSuccess(done)
	default:
		spinner.Stop()
	}
	return result, err
}

// writeJSON prints v as indented JSON. Output to a color terminal is
// highlighted.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	s := string(data)
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		s = ui.ColorizeJSON(s)
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

// PrintResult reports a packaging result: JSON on w, or a summary on the
// terminal followed by the output path on w.
func PrintResult(w io.Writer, res *Result, asJSON bool) error {
	if asJSON {
		return writeJSON(w, res)
	}
	verified := "skipped"
	if res.Verified {
		verified = "yes"
	}
	abis := "none"
	if len(res.ABIs) > 0 {
		abis = strings.Join(res.ABIs, ", ")
	}
	ui.PrintSummary("Packaged "+filepath.Base(res.Output), []ui.KeyValue{
		{Key: "Package", Value: res.Package},
		{Key: "Version", Value: res.VersionName},
		{Key: "ABIs", Value: abis},
		{Key: "Digest", Value: res.Digest},
		{Key: "Certificate", Value: res.Fingerprint},
		{Key: "Verified", Value: verified},
	})
	_, err := fmt.Fprintln(w, res.Output)
	return err
}

// PrintSignature reports a verified signer.
func PrintSignature(w io.Writer, sig *apk.Signature, asJSON bool) error {
	if asJSON {
		return writeJSON(w, sig)
	}
	ui.PrintSummary("Signer", []ui.KeyValue{
		{Key: "Scheme", Value: fmt.Sprintf("v%d", sig.Scheme)},
		{Key: "Subject", Value: sig.Subject},
		{Key: "Issuer", Value: sig.Issuer},
		{Key: "Expires", Value: sig.NotAfter.Format("2006-01-02")},
	})
	_, err := fmt.Fprintln(w, sig.Fingerprint)
	return err
}
