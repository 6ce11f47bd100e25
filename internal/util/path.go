package util

import (
	"errors"
	"os"
)

// CheckDirectory reports whether path exists and is a directory. A missing
// path is not an error.
func CheckDirectory(path string) (exists bool, isDir bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, info.IsDir(), nil
}

// EnsureDirectory creates path if needed and fails if it exists as a file
func EnsureDirectory(path string) error {
	exists, isDir, err := CheckDirectory(path)
	if err != nil {
		return err
	}
	if exists && !isDir {
		return &os.PathError{Op: "mkdir", Path: path, Err: errors.New("not a directory")}
	}
	return os.MkdirAll(path, 0o755)
}
