// Package ingest discovers lab report documents on the local filesystem.
package ingest

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/labs-tracker/constants"
)

// FileResult is the per-file scan outcome.
type FileResult struct {
	Path      string
	Name      string
	Size      int64
	HashHex   string
	Duplicate bool // same content as an earlier file in the scan
	Err       string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned    uint32
	Matched    uint32
	Succeeded  uint32
	Duplicates uint32
	Failed     uint32
}

// Scanner walks directories for documents to extract.
type Scanner struct {
	AllowedExts map[string]struct{} // lowercased sans '.'; nil -> constants.AllowedExtensions
	SkipHidden  bool
	MaxBytes    int64 // 0 disables the size check
	Logger      *slog.Logger
}

func NewScanner(maxBytes int64, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{SkipHidden: true, MaxBytes: maxBytes, Logger: logger}
}

// Allowed checks if path has an accepted extension.
func (s *Scanner) Allowed(path string) bool {
	exts := s.AllowedExts
	if exts == nil {
		exts = constants.AllowedExtensions
	}
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return base != "." && base != ".." && strings.HasPrefix(base, ".")
}
