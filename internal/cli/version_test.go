package cli

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"treesync", "version"}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines of output, got %d: %q", len(lines), stdout.String())
	}
	if !strings.HasPrefix(lines[0], "treesync version ") {
		t.Errorf("first line should start with 'treesync version ', got %q", lines[0])
	}
	for i, line := range lines[1:] {
		if !strings.HasPrefix(line, "  ") {
			t.Errorf("line %d should be indented with 2 spaces, got %q", i+2, line)
		}
	}

	for _, want := range []string{Version, Commit, BuildDate, runtime.Version()} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("output should contain %q, got %q", want, stdout.String())
		}
	}
}

func TestVersionVariables(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if Commit == "" {
		t.Error("Commit should not be empty")
	}
	if BuildDate == "" {
		t.Error("BuildDate should not be empty")
	}
}

func TestVersionCommandDefinition(t *testing.T) {
	cmd := versionCommand(&app{})

	if cmd.Name != "version" {
		t.Errorf("command name = %q, want %q", cmd.Name, "version")
	}
	if !strings.Contains(cmd.Usage, "version") {
		t.Errorf("usage should mention version, got %q", cmd.Usage)
	}
	if cmd.Action == nil {
		t.Error("command should have an action function")
	}
}
