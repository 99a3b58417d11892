package model

import (
	"errors"
	"testing"
)

func TestParseAttributes(t *testing.T) {
	tests := map[string]struct {
		input   string
		want    Attributes
		wantErr bool
	}{
		"empty":          {input: "", want: 0},
		"read only":      {input: "R", want: AttrReadOnly},
		"lower case":     {input: "rh", want: AttrReadOnly | AttrHidden},
		"all letters":    {input: "RASHCNETO", want: AttrReadOnly | AttrArchive | AttrSystem | AttrHidden | AttrCompressed | AttrNotIndexed | AttrEncrypted | AttrTemporary | AttrOffline},
		"duplicates":     {input: "RR", want: AttrReadOnly},
		"unknown letter": {input: "RX", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseAttributes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAttributes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				var ae *ArgumentError
				if !errors.As(err, &ae) || ae.Field != "attributes" {
					t.Errorf("expected an attributes ArgumentError, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseAttributes(%q) = %#x, want %#x", tt.input, got, tt.want)
			}
		})
	}
}

func TestAttributesString(t *testing.T) {
	a := AttrHidden | AttrReadOnly | AttrOffline
	if got := a.String(); got != "RHO" {
		t.Errorf("String() = %q, want canonical order %q", got, "RHO")
	}
	if got := Attributes(0).String(); got != "" {
		t.Errorf("String() of empty set = %q", got)
	}
}

func TestAttributesHas(t *testing.T) {
	a := AttrReadOnly | AttrHidden
	if !a.Has(AttrReadOnly) || !a.Has(AttrReadOnly|AttrHidden) {
		t.Error("Has() should report set bits")
	}
	if a.Has(AttrSystem) || a.Has(AttrReadOnly|AttrSystem) {
		t.Error("Has() should require every bit")
	}
	if a.Has(0) {
		t.Error("Has(0) should be false")
	}
}

func TestAttrPatchApply(t *testing.T) {
	tests := map[string]struct {
		patch AttrPatch
		in    Attributes
		want  Attributes
	}{
		"zero patch":   {patch: AttrPatch{}, in: AttrArchive, want: AttrArchive},
		"add":          {patch: AttrPatch{Add: AttrReadOnly}, in: AttrArchive, want: AttrArchive | AttrReadOnly},
		"remove":       {patch: AttrPatch{Remove: AttrArchive}, in: AttrArchive | AttrHidden, want: AttrHidden},
		"remove wins":  {patch: AttrPatch{Add: AttrHidden, Remove: AttrHidden}, in: 0, want: 0},
		"remove unset": {patch: AttrPatch{Remove: AttrSystem}, in: AttrHidden, want: AttrHidden},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.patch.Apply(tt.in); got != tt.want {
				t.Errorf("Apply(%s) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}

	if !(AttrPatch{}).IsZero() || (AttrPatch{Add: AttrHidden}).IsZero() {
		t.Error("IsZero() misreports")
	}
}
