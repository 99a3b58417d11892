//go:build windows

package executor

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/klauern/treesync/internal/model"
)

// settable are the attributes SetFileAttributes accepts. Compression and
// encryption need their own APIs.
const settable = model.AttrReadOnly | model.AttrHidden | model.AttrSystem |
	model.AttrArchive | model.AttrTemporary | model.AttrOffline | model.AttrNotIndexed

func getAttributes(path string) (model.Attributes, *uint16, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, nil, err
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return 0, nil, err
	}
	return model.Attributes(attrs), p, nil
}

func setAttributes(p *uint16, attrs model.Attributes) error {
	attrs &= settable
	if attrs == 0 {
		return windows.SetFileAttributes(p, windows.FILE_ATTRIBUTE_NORMAL)
	}
	return windows.SetFileAttributes(p, uint32(attrs))
}

func applyAttributes(path string, patch model.AttrPatch) error {
	current, p, err := getAttributes(path)
	if err != nil {
		return fmt.Errorf("failed to read attributes of %q: %w", path, err)
	}
	next := patch.Apply(current)
	if next&settable == current&settable {
		return nil
	}
	if err := setAttributes(p, next); err != nil {
		return fmt.Errorf("failed to set attributes on %q: %w", path, err)
	}
	return nil
}

func clearReadOnly(path string) error {
	current, p, err := getAttributes(path)
	if err != nil {
		return err
	}
	if !current.Has(model.AttrReadOnly) {
		return nil
	}
	return setAttributes(p, current&^model.AttrReadOnly)
}
