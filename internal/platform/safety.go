package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// IsDevRun checks if the current process is running via `go run` or `go test`.
// It relies on the fact that these commands build binaries in temporary directories.
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

// ResolveStorePath returns the directory an fs store should use. When
// forceTemp is set, paths outside the system temp directory are re-rooted
// under <tmp>/docket-dev/<base name>.
func ResolveStorePath(userPath string, forceTemp bool) string {
	if userPath == "" {
		userPath = "."
	}
	if !forceTemp {
		return userPath
	}

	clean := filepath.Clean(userPath)
	// Already inside the temp directory (e.g. t.TempDir()).
	if rel, err := filepath.Rel(os.TempDir(), clean); err == nil && !strings.HasPrefix(rel, "..") {
		return clean
	}

	name := filepath.Base(clean)
	if name == "." || name == string(os.PathSeparator) {
		name = "default"
	}
	return filepath.Join(os.TempDir(), "docket-dev", name)
}
