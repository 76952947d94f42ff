package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ScanDirectory walks root and hashes every matching file. Files whose
// content was already seen in this scan are marked Duplicate.
func (s *Scanner) ScanDirectory(ctx context.Context, root string) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}
	start := time.Now()

	var results []FileResult
	var stats DirStats
	seen := map[string]struct{}{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Name: filepath.Base(path), Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if s.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !s.Allowed(path) {
			return nil
		}
		stats.Matched++

		r, err := s.Inspect(path)
		if err != nil {
			results = append(results, FileResult{Path: path, Name: filepath.Base(path), Err: err.Error()})
			stats.Failed++
			return nil
		}
		if _, dup := seen[r.HashHex]; dup {
			r.Duplicate = true
			stats.Duplicates++
		}
		seen[r.HashHex] = struct{}{}
		results = append(results, r)
		stats.Succeeded++
		return nil
	})

	s.Logger.Info("ingest.scan.done",
		"root", root,
		"matched", stats.Matched,
		"failed", stats.Failed,
		"duplicates", stats.Duplicates,
		"elapsed_ms", time.Since(start).Milliseconds())
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

// Inspect stats and hashes a single file.
func (s *Scanner) Inspect(path string) (FileResult, error) {
	out := FileResult{Path: path, Name: filepath.Base(path)}

	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.Logger.Warn("close file error", "path", path, "error", err)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return out, err
	}
	out.Size = info.Size()
	if s.MaxBytes > 0 && out.Size > s.MaxBytes {
		return out, fmt.Errorf("file is %d bytes, limit is %d", out.Size, s.MaxBytes)
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return out, fmt.Errorf("hash: %w", err)
	}
	out.HashHex = hex.EncodeToString(h.Sum(nil))
	return out, nil
}
