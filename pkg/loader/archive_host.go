package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/daimatz/silkboot/pkg/archive"
	"github.com/daimatz/silkboot/pkg/classfile"
)

const (
	entryName       = "main"
	entryDescriptor = "([Ljava/lang/String;)V"
)

// Config configures an ArchiveHost.
type Config struct {
	// Roots are the context jars and class directories, searched in order.
	Roots []string
	// WorkDir receives the overlay jar.
	WorkDir string
	Runtime Runtime
	// CacheSize bounds the archive index; 0 uses archive.DefaultCacheSize.
	CacheSize uint32
}

// ArchiveHost is the Host over local jars. Classes are defined once and
// cached by internal name.
type ArchiveHost struct {
	roots   []string
	workDir string
	runtime Runtime
	index   *archive.Index

	mu          sync.Mutex
	transformer Transformer
	cache       map[string]*classfile.ClassFile
	// patched holds the bytes of every class the transformer rewrote.
	patched map[string][]byte
	// supplied holds hook classes the transformer generated.
	supplied map[string][]byte
}

var _ ClassLoader = (*ArchiveHost)(nil)

// NewArchiveHost creates an ArchiveHost.
func NewArchiveHost(cfg Config) (*ArchiveHost, error) {
	if cfg.Runtime == nil {
		return nil, errors.New("loader: no runtime")
	}
	index, err := archive.NewIndex(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return &ArchiveHost{
		roots:    append([]string(nil), cfg.Roots...),
		workDir:  cfg.WorkDir,
		runtime:  cfg.Runtime,
		index:    index,
		cache:    make(map[string]*classfile.ClassFile),
		patched:  make(map[string][]byte),
		supplied: make(map[string][]byte),
	}, nil
}

func (h *ArchiveHost) View() archive.View { return h.index }

// Roots returns the context roots in search order.
func (h *ArchiveHost) Roots() []string {
	return append([]string(nil), h.roots...)
}

// RegisterTransformer sets the transformer for classes defined from now on.
// Classes defined before are dropped from the cache so that they go through
// it when loaded again.
func (h *ArchiveHost) RegisterTransformer(t Transformer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transformer = t
	if n := len(h.cache); n > 0 {
		log.Debugf("Dropping %d classes defined before the transformer", n)
		h.cache = make(map[string]*classfile.ClassFile)
	}
}

// LoadClass defines the class, transforming it on first load.
func (h *ArchiveHost) LoadClass(name string) (*classfile.ClassFile, error) {
	internal := classfile.InternalName(name)
	h.mu.Lock()
	defer h.mu.Unlock()
	if cf, ok := h.cache[internal]; ok {
		return cf, nil
	}
	return h.define(internal)
}

// define must be called with h.mu held.
func (h *ArchiveHost) define(internal string) (*classfile.ClassFile, error) {
	resource := internal + ".class"
	root, ok, err := archive.FindSource(h.roots, resource, h.index)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("loader: %s: %w", classfile.BinaryName(internal), ErrClassNotFound)
	}
	data, err := h.index.Open(root, resource)
	if err != nil {
		return nil, fmt.Errorf("loader: reading %s: %w", internal, err)
	}

	if h.transformer != nil {
		out, ok, err := h.transformer.OnClassLoad(classfile.BinaryName(internal), data)
		if err != nil {
			return nil, fmt.Errorf("loader: transforming %s: %w", internal, err)
		}
		if ok {
			data = out
			h.patched[internal] = out
		}
	}

	cf, err := classfile.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loader: defining %s: %w", internal, err)
	}
	h.cache[internal] = cf
	return cf, nil
}

// Patched returns the internal names of the rewritten classes in order.
func (h *ArchiveHost) Patched() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.patched))
	for n := range h.patched {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// BindEntry resolves the entry routine of className.
func (h *ArchiveHost) BindEntry(className string) (EntryFunc, error) {
	if _, err := FindEntry(h, className); err != nil {
		return nil, err
	}

	mainClass := classfile.BinaryName(classfile.InternalName(className))
	return func(ctx context.Context, args []string) error {
		if err := h.prepare(); err != nil {
			return err
		}
		if err := h.resolveHooks(); err != nil {
			return err
		}
		classpath := h.Roots()
		overlay, err := h.writeOverlay()
		if err != nil {
			return err
		}
		if overlay != "" {
			classpath = append([]string{overlay}, classpath...)
		}
		log.Infof("Launching %s", mainClass)
		return h.runtime.Run(ctx, Command{
			Classpath: classpath,
			MainClass: mainClass,
			Args:      args,
		})
	}, nil
}

// prepare defines every class the transformer wants to see, so that the
// overlay holds them before the JVM starts.
func (h *ArchiveHost) prepare() error {
	h.mu.Lock()
	t := h.transformer
	h.mu.Unlock()
	if t == nil {
		return nil
	}
	sel, _ := t.(Selective)

	seen := make(map[string]struct{})
	for _, root := range h.roots {
		err := h.index.Walk(root, ".class", func(resource string) error {
			internal := strings.TrimSuffix(resource, ".class")
			if _, ok := seen[internal]; ok {
				return nil
			}
			seen[internal] = struct{}{}
			if sel != nil && !sel.Selects(internal) {
				return nil
			}
			_, err := h.LoadClass(internal)
			return err
		})
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("loader: preparing %s: %w", root, err)
		}
	}
	return nil
}

// resolveHooks makes sure every hook class the patched classes call is
// loadable: from a context root first, else from the transformer.
func (h *ArchiveHost) resolveHooks() error {
	h.mu.Lock()
	t := h.transformer
	patched := len(h.patched)
	h.mu.Unlock()
	sup, ok := t.(HookSupplier)
	if !ok || patched == 0 {
		return nil
	}
	classes, err := sup.HookClasses()
	if err != nil {
		return fmt.Errorf("loader: %w", err)
	}

	owners := make([]string, 0, len(classes))
	for o := range classes {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	for _, owner := range owners {
		root, found, err := archive.FindSource(h.roots, owner+".class", h.index)
		if err != nil {
			return fmt.Errorf("loader: %w", err)
		}
		if found {
			log.Debugf("Hook class %s found in %s", owner, root)
			continue
		}
		data := classes[owner]
		if data == nil {
			return fmt.Errorf("loader: %s: %w", classfile.BinaryName(owner), ErrHookClassMissing)
		}
		h.mu.Lock()
		h.supplied[owner] = data
		h.mu.Unlock()
	}
	return nil
}
