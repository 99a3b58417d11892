package util

import (
	"os"
	"path/filepath"
)

// HomeDir returns the user's home directory
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// ConfigDir returns the treesync configuration directory.
// XDG_CONFIG_HOME is honoured when set.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "treesync")
	}
	return filepath.Join(HomeDir(), ".config", "treesync")
}

// LockDir returns the directory holding per-destination run locks.
func LockDir() string {
	return filepath.Join(os.TempDir(), "treesync-locks")
}

// AbsPath resolves p to a cleaned absolute path.
func AbsPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// IsWithin reports whether path is dir itself or lies beneath it. Both must
// be cleaned absolute paths.
func IsWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel)
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && os.IsPathSeparator(rel[2])
}
