package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zip"
)

// OverlayName is the file name of the overlay jar in the work directory.
const OverlayName = "silk-overlay.jar"

// writeOverlay stores the rewritten classes and the supplied hook classes in
// the overlay jar and returns its path, or "" when nothing was rewritten.
func (h *ArchiveHost) writeOverlay() (string, error) {
	names := h.Patched()
	if len(names) == 0 {
		return "", nil
	}
	h.mu.Lock()
	classes := make(map[string][]byte, len(names)+len(h.supplied))
	for n, b := range h.supplied {
		classes[n] = b
	}
	for n, b := range h.patched {
		classes[n] = b
	}
	h.mu.Unlock()
	names = names[:0]
	for n := range classes {
		names = append(names, n)
	}
	sort.Strings(names)

	if err := os.MkdirAll(h.workDir, 0o755); err != nil {
		return "", fmt.Errorf("loader: creating work dir: %w", err)
	}
	path := filepath.Join(h.workDir, OverlayName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("loader: creating overlay: %w", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, n := range names {
		e, err := w.CreateHeader(&zip.FileHeader{Name: n + ".class", Method: zip.Deflate})
		if err != nil {
			return "", fmt.Errorf("loader: adding %s to overlay: %w", n, err)
		}
		if _, err := e.Write(classes[n]); err != nil {
			return "", fmt.Errorf("loader: writing %s to overlay: %w", n, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("loader: closing overlay: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("loader: closing overlay: %w", err)
	}
	log.Debugf("Wrote %d classes to %s", len(names), path)
	return path, nil
}
