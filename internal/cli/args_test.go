package cli

import (
	"errors"
	"slices"
	"testing"

	"github.com/klauern/treesync/internal/model"
)

func TestTranslateArgs(t *testing.T) {
	tests := map[string]struct {
		in   []string
		want []string
	}{
		"no switches": {
			in:   []string{"treesync", "src", "dst", "*.jpg"},
			want: []string{"treesync", "src", "dst", "*.jpg"},
		},
		"mirror": {
			in:   []string{"treesync", "src", "dst", "/MIR"},
			want: []string{"treesync", "--mirror", "src", "dst"},
		},
		"case insensitive": {
			in:   []string{"treesync", "src", "dst", "/mir", "/Purge"},
			want: []string{"treesync", "--mirror", "--purge", "src", "dst"},
		},
		"flags keep order": {
			in:   []string{"treesync", "/S", "src", "/E", "dst", "/Z"},
			want: []string{"treesync", "--subdirs", "--empty-dirs", "--restartable", "src", "dst"},
		},
		"mov and move": {
			in:   []string{"treesync", "a", "b", "/MOV", "/MOVE"},
			want: []string{"treesync", "--mov", "--move", "a", "b"},
		},
		"bare threads": {
			in:   []string{"treesync", "a", "b", "/MT"},
			want: []string{"treesync", "--threads=8", "a", "b"},
		},
		"valued switches": {
			in:   []string{"treesync", "a", "b", "/MT:16", "/R:3", "/W:5", "/LOG:run.log"},
			want: []string{"treesync", "--threads=16", "--retries=3", "--wait=5s", "--log=run.log", "a", "b"},
		},
		"log keeps path case": {
			in:   []string{"treesync", "a", "b", "/log:Logs/Run.LOG"},
			want: []string{"treesync", "--log=Logs/Run.LOG", "a", "b"},
		},
		"attributes": {
			in:   []string{"treesync", "a", "b", "/A+:RH", "/A-:a"},
			want: []string{"treesync", "--attr-add=RH", "--attr-remove=a", "a", "b"},
		},
		"output switches": {
			in:   []string{"treesync", "a", "b", "/L", "/NP", "/NFL"},
			want: []string{"treesync", "--list-only", "--no-progress", "--no-file-list", "a", "b"},
		},
		"mode switches": {
			in:   []string{"treesync", "a", "b", "/EMPTY", "/CHILDONLY", "/SHRED", "/B"},
			want: []string{"treesync", "--empty-files", "--child-only", "--shred", "--backup", "a", "b"},
		},
		"absolute paths pass through": {
			in:   []string{"treesync", "/data/src", "/backup/dst", "/S"},
			want: []string{"treesync", "--subdirs", "/data/src", "/backup/dst"},
		},
		"gnu flags pass through": {
			in:   []string{"treesync", "--verbose", "a", "b", "/PURGE"},
			want: []string{"treesync", "--purge", "--verbose", "a", "b"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := TranslateArgs(tt.in)
			if err != nil {
				t.Fatalf("TranslateArgs() error = %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("TranslateArgs() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTranslateArgsErrors(t *testing.T) {
	tests := map[string]struct {
		in    []string
		field string
	}{
		"non-numeric threads": {in: []string{"treesync", "/MT:many"}, field: "/MT"},
		"negative retries":    {in: []string{"treesync", "/R:-1"}, field: "/R"},
		"empty wait":          {in: []string{"treesync", "/W:"}, field: "/W"},
		"empty log":           {in: []string{"treesync", "/LOG:"}, field: "/LOG"},
		"empty attributes":    {in: []string{"treesync", "/A+:"}, field: "/A+"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := TranslateArgs(tt.in)
			if err == nil {
				t.Fatal("expected an error")
			}
			var ae *model.ArgumentError
			if !errors.As(err, &ae) {
				t.Fatalf("expected *model.ArgumentError, got %T", err)
			}
			if ae.Field != tt.field {
				t.Errorf("Field = %q, want %q", ae.Field, tt.field)
			}
		})
	}
}

func TestTranslateArgsEmpty(t *testing.T) {
	got, err := TranslateArgs(nil)
	if err != nil || len(got) != 0 {
		t.Errorf("TranslateArgs(nil) = %q, %v", got, err)
	}
}
