// Package help provides colorful CLI help output, command suggestions and
// rendered markdown reports.
package help

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mobilechromeapps/apkpack/internal/cli"
	"github.com/mobilechromeapps/apkpack/internal/ui"
)

var (
	green  = lipgloss.Color("35")
	purple = lipgloss.Color("54")

	grey     = lipgloss.Color("245")
	greyDark = lipgloss.Color("242")
	white    = lipgloss.Color("252")
)

func renderGreen(s string) string {
	return lipgloss.NewStyle().Foreground(green).Render(s)
}

func renderPurpleBold(s string) string {
	return lipgloss.NewStyle().Foreground(purple).Bold(true).Render(s)
}

func renderGreenBold(s string) string {
	return lipgloss.NewStyle().Foreground(green).Bold(true).Render(s)
}

func renderWhite(s string) string {
	return lipgloss.NewStyle().Foreground(white).Render(s)
}

func renderGrey(s string) string {
	return lipgloss.NewStyle().Foreground(grey).Render(s)
}

func renderGreyDark(s string) string {
	return lipgloss.NewStyle().Foreground(greyDark).Render(s)
}

// RootHelp returns the top-level --help output.
func RootHelp() string {
	var b strings.Builder

	b.WriteString(ui.RenderLogo())
	b.WriteString(renderWhite("Package a web app into a signed Android APK from a prebuilt template") + "\n\n")

	b.WriteString(renderPurpleBold("USAGE") + "\n")
	b.WriteString("  " + renderGreen("apkpack") + " <command> [options]\n\n")

	b.WriteString(renderPurpleBold("COMMANDS") + "\n")
	b.WriteString("  " + renderGreen("package") + "     " + renderWhite("Build and sign an APK from a template and a www directory") + "\n")
	b.WriteString("  " + renderGreen("edit") + "        " + renderWhite("Rewrite a compiled AndroidManifest.xml and resources.arsc") + "\n")
	b.WriteString("  " + renderGreen("inspect") + "     " + renderWhite("Show the contents of an APK, manifest or resource table") + "\n")
	b.WriteString("  " + renderGreen("verify") + "      " + renderWhite("Check an APK signature and print the signer") + "\n\n")

	b.WriteString(renderPurpleBold("EXAMPLES") + "\n")
	writeExample(&b, "apkpack package", "Build from ./apkpack.yaml")
	writeExample(&b, "apkpack package release.yaml -o app.apk", "Build from a config, custom output")
	writeExample(&b, "apkpack inspect app.apk", "Show package, version and label")
	writeExample(&b, "apkpack verify app.apk", "Print the signing certificate fingerprint")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("GLOBAL FLAGS") + "\n")
	writeFlag(&b, "-h, --help", "Show help")
	writeFlag(&b, "-v, --version", "Show version")
	writeFlag(&b, "-q, --quiet", "Results and errors only")
	writeFlag(&b, "--verbose", "Detailed output")
	writeFlag(&b, "--no-color", "Disable colored output (also NO_COLOR)")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("MORE INFO") + "\n")
	b.WriteString("  " + renderGreen("apkpack <command> --help") + "  " + renderWhite("Detailed help for a command") + "\n")

	return b.String()
}

// PackageHelp returns help for the package subcommand.
func PackageHelp() string {
	var b strings.Builder

	b.WriteString(ui.RenderLogo())
	b.WriteString(renderGreenBold("apkpack package") + " " + renderWhite("- Build and sign an APK") + "\n\n")

	b.WriteString(renderPurpleBold("USAGE") + "\n")
	b.WriteString("  " + renderGreen("apkpack package") + " [config.yaml] [options]\n\n")
	b.WriteString(renderGreyDark("  Reads ./apkpack.yaml when no config is given, or stdin when it is \"-\".") + "\n")
	b.WriteString(renderGreyDark("  Flags override config values.") + "\n")
	b.WriteString(renderGreyDark("  The template's manifest and resource table are rewritten in place, the") + "\n")
	b.WriteString(renderGreyDark("  www directory is merged into assets/www, and the result is signed.") + "\n\n")

	b.WriteString(renderPurpleBold("APP FLAGS") + "\n")
	writeAppFlags(&b)
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("INPUT FLAGS") + "\n")
	writeFlag(&b, "--template <dir|apk>", "Template directory or APK")
	writeFlag(&b, "--www <dir>", "Web app directory")
	writeFlag(&b, "--native-libs <dir>", "Native libraries (flat or lib/<abi>/ tree)")
	writeFlag(&b, "--abi <abi>", "ABI for flat libraries (default: this machine)")
	b.WriteString("                            " + renderGreyDark("arm64-v8a, armeabi-v7a, armeabi, x86, x86_64") + "\n")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("SIGNING FLAGS") + "\n")
	writeFlag(&b, "--keystore <file>", "PKCS#12 keystore (.p12, .pfx)")
	writeFlag(&b, "--cert <file>", "PEM certificate")
	writeFlag(&b, "--key <file>", "PEM private key (unencrypted)")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("OUTPUT FLAGS") + "\n")
	writeFlag(&b, "-o <file>", "Output APK (default: <package>.apk)")
	writeFlag(&b, "--work-dir <dir>", "Assemble in this directory (wiped first)")
	writeFlag(&b, "--keep-work", "Keep the work directory and unsigned APK")
	writeFlag(&b, "--no-verify", "Skip verifying the signed APK")
	b.WriteString("\n")

	b.WriteString(renderPurpleBold("CONFIGURATION") + "\n")
	b.WriteString("  " + renderGreen("template:") + "         " + renderWhite("./template.apk") + "\n")
	b.WriteString("  " + renderGreen("www:") + "              " + renderWhite("./www") + "\n")
	b.WriteString("  " + renderGreen("app:") + "\n")
	b.WriteString("    " + renderGreen("name:") + "           " + renderWhite("MyApp") + "\n")
	b.WriteString("    " + renderGreen("package:") + "        " + renderWhite("com.example.myapp") + "\n")
	b.WriteString("    " + renderGreen("version_name:") + "   " + renderWhite("\"2.3\"") + "\n")
	b.WriteString("    " + renderGreen("version_code:") + "   " + renderWhite("23") + "\n")
	b.WriteString("  " + renderGreen("native_libs:") + "      " + renderWhite("./libs") + "\n")
	b.WriteString("  " + renderGreen("signing:") + "\n")
	b.WriteString("    " + renderGreen("keystore:") + "       " + renderWhite("./release.p12") + "\n")
	b.WriteString("    " + renderGreen("store_password:") + " " + renderWhite("env:KEYSTORE_PASSWORD") + "\n\n")
	b.WriteString(renderGreyDark("  Passwords may be env:NAME references; missing ones are prompted for.") + "\n")

	return b.String()
}

// EditHelp returns help for the edit subcommand.
func EditHelp() string {
	var b strings.Builder

	b.WriteString(renderGreenBold("apkpack edit") + " " + renderWhite("- Rewrite compiled manifest and resource table") + "\n\n")

	b.WriteString(renderPurpleBold("USAGE") + "\n")
	b.WriteString("  " + renderGreen("apkpack edit") + " --manifest <file> --arsc <file> [options]\n\n")
	b.WriteString(renderGreyDark("  Files are edited in place unless -o is given. Nothing is written unless") + "\n")
	b.WriteString(renderGreyDark("  every requested change succeeds.") + "\n\n")

	b.WriteString(renderPurpleBold("FLAGS") + "\n")
	writeFlag(&b, "--manifest <file>", "Compiled AndroidManifest.xml")
	writeFlag(&b, "--arsc <file>", "Compiled resources.arsc (package name only)")
	writeAppFlags(&b)
	writeFlag(&b, "-o <dir>", "Output directory")

	return b.String()
}

// InspectHelp returns help for the inspect subcommand.
func InspectHelp() string {
	var b strings.Builder

	b.WriteString(renderGreenBold("apkpack inspect") + " " + renderWhite("- Show what an APK or compiled file contains") + "\n\n")

	b.WriteString(renderPurpleBold("USAGE") + "\n")
	b.WriteString("  " + renderGreen("apkpack inspect") + " <app.apk|AndroidManifest.xml|resources.arsc> [--json]\n\n")

	b.WriteString(renderPurpleBold("FLAGS") + "\n")
	writeFlag(&b, "--json", "Print JSON instead of a report")

	return b.String()
}

// VerifyHelp returns help for the verify subcommand.
func VerifyHelp() string {
	var b strings.Builder

	b.WriteString(renderGreenBold("apkpack verify") + " " + renderWhite("- Check an APK signature") + "\n\n")

	b.WriteString(renderPurpleBold("USAGE") + "\n")
	b.WriteString("  " + renderGreen("apkpack verify") + " <app.apk>\n\n")
	b.WriteString(renderGreyDark("  Prints the SHA-256 fingerprint of the signing certificate on success.") + "\n")

	return b.String()
}

// HandleHelp prints help for opts.Command, or a suggestion when the command
// was not recognized.
func HandleHelp(opts *cli.Options) {
	if opts.Unknown != "" {
		fmt.Fprintln(os.Stderr, ui.Error("Unknown command: "+opts.Unknown))
		if s := Suggest(opts.Unknown); s != "" {
			fmt.Fprintf(os.Stderr, "Did you mean %s?\n", renderGreen("apkpack "+s))
		}
		fmt.Fprintln(os.Stderr)
	}

	switch opts.Command {
	case cli.CommandPackage:
		fmt.Fprint(os.Stdout, PackageHelp())
	case cli.CommandEdit:
		fmt.Fprint(os.Stdout, EditHelp())
	case cli.CommandInspect:
		fmt.Fprint(os.Stdout, InspectHelp())
	case cli.CommandVerify:
		fmt.Fprint(os.Stdout, VerifyHelp())
	default:
		fmt.Fprint(os.Stdout, RootHelp())
	}
}

func writeAppFlags(b *strings.Builder) {
	writeFlag(b, "--name <name>", "App name (also the activity name)")
	writeFlag(b, "--package <id>", "Package name, e.g. com.example.myapp")
	writeFlag(b, "--activity <name>", "Activity name, if it should differ")
	writeFlag(b, "--version-name <v>", "Version name")
	writeFlag(b, "--version-code <n>", "Version code")
}

// Helper to write a flag line
func writeFlag(b *strings.Builder, flag, desc string) {
	b.WriteString("  " + renderGreen(flag))
	// Pad to align descriptions (min 1 space)
	padding := 26 - len(flag)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(renderWhite(desc) + "\n")
}

// Helper to write an example line
func writeExample(b *strings.Builder, cmd, desc string) {
	b.WriteString("  " + renderGreen(cmd))
	// Pad to align descriptions
	padding := 38 - len(cmd)
	if padding > 0 {
		b.WriteString(strings.Repeat(" ", padding))
	}
	b.WriteString(renderGrey(desc) + "\n")
}
