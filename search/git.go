package search

import (
	"os"
	"path/filepath"
)

// FindGitRoot finds the git repository root directory starting from the given path
func FindGitRoot(startPath string) (string, bool) {
	path := startPath
	for {
		if info, err := os.Stat(filepath.Join(path, ".git")); err == nil && info.IsDir() {
			return path, true
		}

		// Check if we've reached the filesystem root
		parent := filepath.Dir(path)
		if parent == path {
			break
		}
		path = parent
	}

	return "", false
}

// WorkspaceRoot picks the directory a session searches: the enclosing git
// repository of dir when there is one, dir otherwise. An empty dir means the
// working directory. It returns "" when the directory cannot be resolved,
// which callers treat as "no workspace".
func WorkspaceRoot(dir string) string {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	if root, ok := FindGitRoot(abs); ok {
		return root
	}
	return abs
}
