package patch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrWrite reports a failure writing the sibling file.
var ErrWrite = errors.New("write sibling")

// EditedMarker is inserted before the extension of a saved file.
const EditedMarker = ".edited"

// SiblingPath maps name.ext to name.edited.ext. A path that already carries
// the marker maps to itself, so re-saving overwrites in place.
func SiblingPath(path string) string {
	ext := filepath.Ext(path)
	if ext == EditedMarker {
		return path
	}
	stem := strings.TrimSuffix(path, ext)
	if strings.HasSuffix(stem, EditedMarker) {
		return path
	}
	return stem + EditedMarker + ext
}

// IsSibling reports whether path is already a saved sibling.
func IsSibling(path string) bool {
	return SiblingPath(path) == path
}

// WriteAtomic writes data to path through a temporary file in the same
// directory, so readers see either the previous content or the new one.
func WriteAtomic(path string, data []byte, mode os.FileMode) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	name := tmp.Name()
	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(mode.Perm()); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	return nil
}
