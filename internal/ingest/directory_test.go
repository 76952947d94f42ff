package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "%PDF-1.4 one")
	writeFile(t, filepath.Join(root, "nested", "b.PDF"), "%PDF-1.4 one")
	writeFile(t, filepath.Join(root, "nested", "c.pdf"), "%PDF-1.4 two")
	writeFile(t, filepath.Join(root, ".cache", "d.pdf"), "%PDF-1.4 hidden")
	writeFile(t, filepath.Join(root, "notes.txt"), "not a report")
	writeFile(t, filepath.Join(root, "big.pdf"), "%PDF-1.4 this one is far too large")

	s := NewScanner(20, nil)
	results, stats, err := s.ScanDirectory(context.Background(), root)
	require.NoError(t, err)

	assert.EqualValues(t, 4, stats.Matched)
	assert.EqualValues(t, 3, stats.Succeeded)
	assert.EqualValues(t, 1, stats.Failed)
	assert.EqualValues(t, 1, stats.Duplicates)

	byName := map[string]FileResult{}
	for _, r := range results {
		byName[r.Name] = r
	}
	assert.NotContains(t, byName, "d.pdf")
	assert.NotContains(t, byName, "notes.txt")
	assert.Contains(t, byName["big.pdf"].Err, "limit")
	assert.False(t, byName["a.pdf"].Duplicate)
	assert.True(t, byName["b.PDF"].Duplicate)
	assert.Equal(t, byName["a.pdf"].HashHex, byName["b.PDF"].HashHex)
	assert.NotEqual(t, byName["a.pdf"].HashHex, byName["c.pdf"].HashHex)
	assert.EqualValues(t, 12, byName["c.pdf"].Size)
}

func TestScanDirectoryRequiresRoot(t *testing.T) {
	_, _, err := NewScanner(0, nil).ScanDirectory(context.Background(), " ")
	assert.Error(t, err)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/x/.git"))
	assert.False(t, IsHidden("."))
	assert.False(t, IsHidden("/x/report.pdf"))
}

func TestWatchEmitsExistingAndNewFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "old.pdf"), "%PDF")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewScanner(0, nil)
	events, _, err := s.Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true})
	require.NoError(t, err)

	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for watch event")
			return ""
		}
	}

	assert.Equal(t, filepath.Join(root, "old.pdf"), next())

	writeFile(t, filepath.Join(root, "ignored.txt"), "x")
	writeFile(t, filepath.Join(root, "new.pdf"), "%PDF")
	assert.Equal(t, filepath.Join(root, "new.pdf"), next())

	cancel()
	for range events {
	}
}

func TestWatchRequiresRoots(t *testing.T) {
	_, _, err := NewScanner(0, nil).Watch(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
