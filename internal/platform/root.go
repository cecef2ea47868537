package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// MarkerDir is the directory that marks a notebook root.
const MarkerDir = ".notekeep"

// ErrRootNotFound is returned by FindRoot when no ancestor holds a marker.
var ErrRootNotFound = errors.New("notebook root not found")

// FindRoot looks upwards from startDir for a notebook root: a directory
// holding either a .notekeep directory or a notekeep.yaml file. It returns
// the absolute path of that directory.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		if hasFile(dir, MarkerDir) || hasFile(dir, ConfigFile) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", ErrRootNotFound
}

// DefaultDir picks the notebook directory for startDir: the .notekeep
// directory of the enclosing root, or a new one in startDir.
func DefaultDir(startDir string) string {
	root, err := FindRoot(startDir)
	if err != nil {
		root = startDir
	}
	return filepath.Join(root, MarkerDir)
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
