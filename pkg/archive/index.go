package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/elastic/go-freelru"
	"github.com/klauspost/compress/zip"
	"github.com/zeebo/xxh3"
)

// DefaultCacheSize is the number of roots whose entry sets an Index keeps.
const DefaultCacheSize = 64

// View answers resource queries against classpath roots. A root is either a
// jar file or a directory of classes.
type View interface {
	Contains(root, resource string) (bool, error)
	Open(root, resource string) ([]byte, error)
}

// entrySet lists the resources of one jar root. Directory roots are not
// listed; they are checked on the filesystem.
type entrySet map[string]struct{}

// Index is the View over the local filesystem. It is safe for concurrent use.
type Index struct {
	sets *lru.SyncedLRU[string, entrySet]
}

// hashString is the key hash for the entry set cache.
func hashString(s string) uint32 {
	return uint32(xxh3.HashString(s))
}

// NewIndex returns an Index caching the entry sets of up to size jars.
func NewIndex(size uint32) (*Index, error) {
	if size == 0 {
		size = DefaultCacheSize
	}
	sets, err := lru.NewSynced[string, entrySet](size, hashString)
	if err != nil {
		return nil, fmt.Errorf("archive: creating index cache: %w", err)
	}
	return &Index{sets: sets}, nil
}

func isDir(root string) (bool, error) {
	st, err := os.Stat(root)
	if err != nil {
		return false, err
	}
	return st.IsDir(), nil
}

// entries returns the cached entry set of a jar root, reading it on a miss.
func (x *Index) entries(root string) (entrySet, error) {
	if set, ok := x.sets.Get(root); ok {
		return set, nil
	}
	r, err := zip.OpenReader(root)
	if err != nil {
		return nil, fmt.Errorf("archive: opening %s: %w", root, err)
	}
	defer r.Close()
	set := make(entrySet, len(r.File))
	for _, f := range r.File {
		set[f.Name] = struct{}{}
	}
	x.sets.Add(root, set)
	return set, nil
}

// Contains reports whether resource exists under root. A missing root holds
// nothing.
func (x *Index) Contains(root, resource string) (bool, error) {
	dir, err := isDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("archive: %w", err)
	}
	if dir {
		_, err := os.Stat(filepath.Join(root, filepath.FromSlash(resource)))
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	}
	set, err := x.entries(root)
	if err != nil {
		return false, err
	}
	_, ok := set[resource]
	return ok, nil
}

// Open returns the content of resource under root.
func (x *Index) Open(root, resource string) ([]byte, error) {
	dir, err := isDir(root)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	if dir {
		return os.ReadFile(filepath.Join(root, filepath.FromSlash(resource)))
	}
	r, err := zip.OpenReader(root)
	if err != nil {
		return nil, fmt.Errorf("archive: opening %s: %w", root, err)
	}
	defer r.Close()
	for _, f := range r.File {
		if f.Name != resource {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("archive: opening %s!/%s: %w", root, resource, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("archive: %s!/%s: %w", root, resource, fs.ErrNotExist)
}

// Walk calls fn for every resource of root with the given suffix, in archive
// order for jars and lexical order for directories.
func (x *Index) Walk(root, suffix string, fn func(resource string) error) error {
	dir, err := isDir(root)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if dir {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(path, suffix) {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			return fn(filepath.ToSlash(rel))
		})
	}
	r, err := zip.OpenReader(root)
	if err != nil {
		return fmt.Errorf("archive: opening %s: %w", root, err)
	}
	defer r.Close()
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, suffix) && !strings.HasSuffix(f.Name, "/") {
			if err := fn(f.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Forget drops the cached entry set of root.
func (x *Index) Forget(root string) {
	x.sets.Remove(root)
}
