//go:build windows

package scanner

import (
	"io/fs"
	"syscall"

	"github.com/klauern/treesync/internal/model"
)

func attributes(_ string, info fs.FileInfo) model.Attributes {
	if data, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return model.Attributes(data.FileAttributes)
	}
	var attrs model.Attributes
	if info.Mode().Perm()&0o200 == 0 {
		attrs |= model.AttrReadOnly
	}
	return attrs
}
