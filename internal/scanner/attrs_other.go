//go:build !windows

package scanner

import (
	"io/fs"
	"strings"

	"github.com/klauern/treesync/internal/model"
)

// attributes derives the two attributes a POSIX file system can express:
// read-only from missing write bits and hidden from a leading dot.
func attributes(name string, info fs.FileInfo) model.Attributes {
	var attrs model.Attributes
	if info.Mode().Perm()&0o222 == 0 {
		attrs |= model.AttrReadOnly
	}
	if strings.HasPrefix(name, ".") {
		attrs |= model.AttrHidden
	}
	return attrs
}
