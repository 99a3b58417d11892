package util

import (
	"path/filepath"
	"testing"
)

func TestHomeDir(t *testing.T) {
	home := HomeDir()
	if home == "" {
		t.Error("HomeDir() returned empty string")
	}

	// Verify it's an absolute path
	if !filepath.IsAbs(home) {
		t.Errorf("HomeDir() returned relative path: %s", home)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("xdg", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/xdg")
		if got, want := ConfigDir(), filepath.Join("/xdg", "treesync"); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	})

	t.Run("home", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		want := filepath.Join(HomeDir(), ".config", "treesync")
		if got := ConfigDir(); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	})
}

func TestIsWithin(t *testing.T) {
	root := filepath.FromSlash("/data/src")
	tests := map[string]struct {
		path string
		want bool
	}{
		"same":          {"/data/src", true},
		"child":         {"/data/src/a", true},
		"deep child":    {"/data/src/a/b/c", true},
		"sibling":       {"/data/dst", false},
		"prefix only":   {"/data/src2", false},
		"parent":        {"/data", false},
		"dotdot prefix": {"/data/src/../..x", false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			p := filepath.Clean(filepath.FromSlash(tt.path))
			if got := IsWithin(p, root); got != tt.want {
				t.Errorf("IsWithin(%q, %q) = %v, want %v", p, root, got, tt.want)
			}
		})
	}
}

func TestAbsPath(t *testing.T) {
	got, err := AbsPath("a/../b")
	if err != nil {
		t.Fatalf("AbsPath() error = %v", err)
	}
	if !filepath.IsAbs(got) || filepath.Base(got) != "b" {
		t.Errorf("AbsPath() = %q", got)
	}
}
