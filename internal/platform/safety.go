package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// DevDir is the directory under the system temp dir that development runs
// are confined to.
const DevDir = "notekeep-dev"

// IsDevRun reports whether the process was started by `go run` or
// `go test`, whose binaries live in the temp directory or end in .test.
func IsDevRun() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}
	if strings.HasPrefix(strings.ToLower(exe), strings.ToLower(os.TempDir())) {
		return true
	}
	return strings.HasSuffix(exe, ".test") || strings.HasSuffix(exe, ".test.exe")
}

// ResolvePath returns the directory a notebook at userPath actually uses.
// With forceTemp, paths outside the temp directory are re-rooted under
// DevDir by their base name; paths already inside it are kept.
func ResolvePath(userPath string, forceTemp bool) string {
	if !forceTemp {
		if userPath == "" {
			return "."
		}
		return userPath
	}

	clean := filepath.Clean(userPath)
	if rel, err := filepath.Rel(os.TempDir(), clean); err == nil && filepath.IsAbs(clean) && !strings.HasPrefix(rel, "..") {
		return clean
	}

	name := filepath.Base(clean)
	if userPath == "" || name == "." || name == string(os.PathSeparator) {
		name = "default"
	}
	return filepath.Join(os.TempDir(), DevDir, name)
}
