package model

import (
	"fmt"
	"strings"
)

// Attributes is a set of file attribute bits. The values match the Windows
// FILE_ATTRIBUTE_* constants so they can be handed to the OS unchanged; on
// other platforms only ReadOnly (write permission) and Hidden (dot prefix) are
// observable.
type Attributes uint32

const (
	AttrReadOnly   Attributes = 0x0001
	AttrHidden     Attributes = 0x0002
	AttrSystem     Attributes = 0x0004
	AttrArchive    Attributes = 0x0020
	AttrTemporary  Attributes = 0x0100
	AttrCompressed Attributes = 0x0800
	AttrOffline    Attributes = 0x1000
	AttrNotIndexed Attributes = 0x2000
	AttrEncrypted  Attributes = 0x4000
)

// attrLetters lists the Robocopy attribute letters in their canonical order.
var attrLetters = []struct {
	letter byte
	attr   Attributes
}{
	{'R', AttrReadOnly},
	{'A', AttrArchive},
	{'S', AttrSystem},
	{'H', AttrHidden},
	{'C', AttrCompressed},
	{'N', AttrNotIndexed},
	{'E', AttrEncrypted},
	{'T', AttrTemporary},
	{'O', AttrOffline},
}

// ParseAttributes parses a string of attribute letters (any of RASHCNETO,
// case-insensitive).
func ParseAttributes(s string) (Attributes, error) {
	var attrs Attributes
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		found := false
		for _, l := range attrLetters {
			if l.letter == c {
				attrs |= l.attr
				found = true
				break
			}
		}
		if !found {
			return 0, &ArgumentError{
				Field:   "attributes",
				Message: fmt.Sprintf("unknown attribute letter %q (want any of RASHCNETO)", s[i]),
			}
		}
	}
	return attrs, nil
}

// Has reports whether every bit of other is set.
func (a Attributes) Has(other Attributes) bool {
	return other != 0 && a&other == other
}

// String renders the set as attribute letters.
func (a Attributes) String() string {
	var sb strings.Builder
	for _, l := range attrLetters {
		if a&l.attr != 0 {
			sb.WriteByte(l.letter)
		}
	}
	return sb.String()
}

// AttrPatch is applied to a destination after it has been written.
// When a bit is in both sets, Remove wins.
type AttrPatch struct {
	Add    Attributes
	Remove Attributes
}

// IsZero reports whether the patch changes nothing.
func (p AttrPatch) IsZero() bool {
	return p.Add == 0 && p.Remove == 0
}

// Apply returns attrs with the patch applied.
func (p AttrPatch) Apply(attrs Attributes) Attributes {
	return (attrs | p.Add) &^ p.Remove
}
