package ui

import (
	"strings"
	"testing"
)

func TestStatusFunctions(t *testing.T) {
	// Disable colors for consistent test output
	DisableColors()
	defer EnableColors()

	tests := []struct {
		name     string
		fn       func(string) string
		input    string
		contains string
	}{
		{"StatusSuccess empty", StatusSuccess, "", SymbolSuccess},
		{"StatusSuccess with msg", StatusSuccess, "done", SymbolSuccess + " done"},
		{"StatusError empty", StatusError, "", SymbolError},
		{"StatusError with msg", StatusError, "failed", SymbolError + " failed"},
		{"StatusWarning empty", StatusWarning, "", SymbolWarning},
		{"StatusWarning with msg", StatusWarning, "caution", SymbolWarning + " caution"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(tt.input)
			if got != tt.contains {
				t.Errorf("got %q, want %q", got, tt.contains)
			}
		})
	}
}

func TestColorToggle(t *testing.T) {
	// Save initial state
	initial := IsColorEnabled()

	DisableColors()
	if IsColorEnabled() {
		t.Error("expected colors to be disabled")
	}

	EnableColors()
	if !IsColorEnabled() {
		t.Error("expected colors to be enabled")
	}

	// Restore initial state
	if !initial {
		DisableColors()
	}
}

func TestColorFunctions(t *testing.T) {
	// Disable colors for consistent test output
	DisableColors()
	defer EnableColors()

	// When colors are disabled, these should return the plain text
	if got := Success("test"); got != "test" {
		t.Errorf("Success() = %q, want %q", got, "test")
	}
	if got := Error("test"); got != "test" {
		t.Errorf("Error() = %q, want %q", got, "test")
	}
	if got := Warning("test"); got != "test" {
		t.Errorf("Warning() = %q, want %q", got, "test")
	}
}

func TestSetColorMode(t *testing.T) {
	initial := IsColorEnabled()
	defer func() {
		if initial {
			EnableColors()
		} else {
			DisableColors()
		}
	}()

	if err := SetColorMode("never"); err != nil {
		t.Fatalf("SetColorMode(never) error = %v", err)
	}
	if IsColorEnabled() {
		t.Error("expected colors disabled")
	}
	if err := SetColorMode("ALWAYS"); err != nil {
		t.Fatalf("SetColorMode(always) error = %v", err)
	}
	if !IsColorEnabled() {
		t.Error("expected colors enabled")
	}
	if err := SetColorMode("auto"); err != nil {
		t.Errorf("SetColorMode(auto) error = %v", err)
	}
	if err := SetColorMode("rainbow"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestHeadingPlain(t *testing.T) {
	DisableColors()
	defer EnableColors()

	if got := Heading("photos"); got != "== photos ==" {
		t.Errorf("Heading() = %q", got)
	}
	if got := Rule("----"); got != "----" {
		t.Errorf("Rule() = %q", got)
	}
}

func TestHeadingStyled(t *testing.T) {
	EnableColors()
	if got := Heading("photos"); !strings.Contains(got, "photos") {
		t.Errorf("Heading() = %q, want it to contain the text", got)
	}
}
