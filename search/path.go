package search

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a path resolves outside its workspace root
var ErrOutsideRoot = errors.New("path is outside the workspace root")

// Resolve joins file onto root and rejects results that leave root.
// Absolute paths are accepted when they lie inside root. An empty root
// resolves nothing and returns file as given.
func Resolve(root, file string) (string, error) {
	if root == "" {
		return file, nil
	}
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, filepath.FromSlash(file))
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, file)
	}
	return path, nil
}
