// Package archivetest writes jars and class directories for tests.
package archivetest

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
)

// WriteJar writes entries to dir/name and returns the jar path. Entries are
// stored in name order.
func WriteJar(t testing.TB, dir, name string, entries map[string][]byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	w := zip.NewWriter(f)
	for _, n := range sortedKeys(entries) {
		e, err := w.Create(n)
		if err != nil {
			t.Fatalf("adding %s: %v", n, err)
		}
		if _, err := e.Write(entries[n]); err != nil {
			t.Fatalf("writing %s: %v", n, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing jar writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing %s: %v", path, err)
	}
	return path
}

// WriteDir writes entries below dir/name and returns the directory.
func WriteDir(t testing.TB, dir, name string, entries map[string][]byte) string {
	t.Helper()
	root := filepath.Join(dir, name)
	for _, n := range sortedKeys(entries) {
		path := filepath.Join(root, filepath.FromSlash(n))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating %s: %v", path, err)
		}
		if err := os.WriteFile(path, entries[n], 0o644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("creating %s: %v", root, err)
	}
	return root
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
