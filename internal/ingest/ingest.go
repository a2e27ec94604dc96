// Package ingest finds receipt images on disk and moves processed ones out of the way.
package ingest

import (
	"path/filepath"
	"strings"
)

// ScanOptions controls ScanDirectory.
type ScanOptions struct {
	Recursive  bool
	SkipHidden bool
	// Exclude lists directories that are never entered, e.g. a relocation target under root.
	Exclude []string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
