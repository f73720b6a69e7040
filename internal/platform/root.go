package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigFileName is the name of the project configuration file.
const ConfigFileName = "docket.yaml"

// FindRoot looks upwards from startDir for a directory holding docket.yaml
// and returns its absolute path.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, ConfigFileName) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%s not found above %s", ConfigFileName, abs)
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
