// Package pathutil derives the sibling file names of a dataset.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ReplaceExt returns path with the text after its last dot replaced by ext.
// A path without an extension gets ".ext" appended. Dots in directory names are ignored.
func ReplaceExt(path, ext string) string {
	base := filepath.Base(path)
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 {
		return path + "." + ext
	}

	return path[:len(path)-len(base)+dot+1] + ext
}

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

// Resolve returns the sibling of path with extension ext, trying the lower-case then the
// upper-case spelling. When neither exists the lower-case name is returned.
func Resolve(path, ext string) string {
	lower := ReplaceExt(path, strings.ToLower(ext))
	if Exists(lower) {
		return lower
	}

	upper := ReplaceExt(path, strings.ToUpper(ext))
	if Exists(upper) {
		return upper
	}

	return lower
}
