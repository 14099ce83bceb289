package archive

import (
	"context"
	"debug/elf"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/otiai10/copy"
)

// ABIs lists the Android ABI directory names, most common first.
var ABIs = []string{"arm64-v8a", "armeabi-v7a", "x86_64", "x86", "armeabi", "mips", "mips64"}

// IsABI reports whether name is an Android ABI directory name.
func IsABI(name string) bool {
	return slices.Contains(ABIs, name)
}

// HostABI maps the architecture apkpack runs on to an Android ABI, or ""
// when there is none.
func HostABI() string {
	switch runtime.GOARCH {
	case "arm64":
		return "arm64-v8a"
	case "arm":
		return "armeabi-v7a"
	case "amd64":
		return "x86_64"
	case "386":
		return "x86"
	default:
		return ""
	}
}

// elfABI maps ELF machine types to the Android ABI they run on.
func elfABI(machine elf.Machine, class elf.Class) string {
	switch machine {
	case elf.EM_AARCH64:
		return "arm64-v8a"
	case elf.EM_ARM:
		return "armeabi-v7a"
	case elf.EM_X86_64:
		return "x86_64"
	case elf.EM_386:
		return "x86"
	case elf.EM_MIPS:
		if class == elf.ELFCLASS64 {
			return "mips64"
		}
		return "mips"
	default:
		return ""
	}
}

// LibraryABI returns the ABI a shared library was built for.
func LibraryABI(path string) (string, error) {
	f, err := elf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer f.Close()

	if f.Type != elf.ET_DYN {
		return "", fmt.Errorf("%s is not a shared library (type: %s)", filepath.Base(path), f.Type)
	}
	abi := elfABI(f.Machine, f.Class)
	if abi == "" {
		return "", fmt.Errorf("unsupported ELF architecture: %s", f.Machine)
	}
	return abi, nil
}

// compatible reports whether a library built for have can be placed under
// want. armeabi-v7a binaries cannot be told apart from armeabi ones by
// machine type alone.
func compatible(have, want string) bool {
	return have == want || (have == "armeabi-v7a" && want == "armeabi")
}

// AddNativeLibs places shared libraries under lib/<abi>/ of the work
// directory and returns the ABIs present afterwards.
//
// When src holds ABI-named subdirectories it is treated as a lib/ tree and
// copied as-is. Otherwise the .so files directly in src are placed under
// lib/<abi>/ after checking their machine type.
func AddNativeLibs(ctx context.Context, src, abi, dir string) ([]string, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read native libs: %w", err)
	}
	libDir := filepath.Join(dir, "lib")

	if tree := abiDirs(entries); len(tree) > 0 {
		for _, name := range tree {
			if err := copy.Copy(filepath.Join(src, name), filepath.Join(libDir, name)); err != nil {
				return nil, fmt.Errorf("failed to copy lib/%s: %w", name, err)
			}
		}
		return PresentABIs(dir), ctx.Err()
	}

	if !IsABI(abi) {
		return nil, fmt.Errorf("unknown ABI %q (expected one of %s)", abi, strings.Join(ABIs, ", "))
	}
	dst := filepath.Join(libDir, abi)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".so") {
			continue
		}
		path := filepath.Join(src, e.Name())
		have, err := LibraryABI(path)
		if err != nil {
			return nil, err
		}
		if !compatible(have, abi) {
			return nil, fmt.Errorf("%s is built for %s, not %s", e.Name(), have, abi)
		}
		if err := copy.Copy(path, filepath.Join(dst, e.Name())); err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", e.Name(), err)
		}
	}
	return PresentABIs(dir), nil
}

// IsLibTree reports whether src holds ABI-named subdirectories rather than
// flat .so files.
func IsLibTree(src string) (bool, error) {
	entries, err := os.ReadDir(src)
	if err != nil {
		return false, fmt.Errorf("failed to read native libs: %w", err)
	}
	return len(abiDirs(entries)) > 0, nil
}

func abiDirs(entries []os.DirEntry) []string {
	var abis []string
	for _, e := range entries {
		if e.IsDir() && IsABI(e.Name()) {
			abis = append(abis, e.Name())
		}
	}
	return abis
}

// PresentABIs lists the ABI directories under lib/ of the work directory.
func PresentABIs(dir string) []string {
	entries, err := os.ReadDir(filepath.Join(dir, "lib"))
	if err != nil {
		return nil
	}
	return abiDirs(entries)
}
