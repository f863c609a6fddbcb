package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace markers recognized by FindRoot.
const (
	ConfigFileName = "notebox.yaml"
	MarkerDirName  = ".notebox"
)

// FindRoot looks upwards from startDir for a workspace marker:
// a notebox.yaml file or a .notebox directory.
// It returns the absolute path of the first directory holding one.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, ConfigFileName) || hasFile(dir, MarkerDirName) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("workspace root not found from %s", abs)
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
