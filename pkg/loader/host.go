// Package loader defines classes for the game: it reads them from the
// context jars, passes them through the registered transformer and starts
// the entry routine on a JVM.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/daimatz/silkboot/pkg/archive"
	"github.com/daimatz/silkboot/pkg/classfile"
	"github.com/daimatz/silkboot/pkg/logging"
)

var log = logging.Category("Loader")

var (
	// ErrEntryRoutineMissing means the entry class has no public static
	// main([Ljava/lang/String;)V.
	ErrEntryRoutineMissing = errors.New("entry routine missing")
	// ErrClassNotFound means no context root holds the class.
	ErrClassNotFound = errors.New("class not found")
	// ErrHookClassMissing means patched classes call into a class that
	// neither the context roots nor the transformer provide.
	ErrHookClassMissing = errors.New("hook class missing")
)

// Transformer rewrites class bytes before they are defined. A nil result
// with false means the original bytes are used.
type Transformer interface {
	OnClassLoad(name string, original []byte) ([]byte, bool, error)
}

// Selective is implemented by transformers that know in advance which
// classes they rewrite.
type Selective interface {
	Selects(name string) bool
}

// HookSupplier is implemented by transformers whose edits call into
// classes of their own. HookClasses maps internal names to class bytes; a
// nil value means the class has to be on the classpath.
type HookSupplier interface {
	HookClasses() (map[string][]byte, error)
}

// EntryFunc runs the entry routine with the given arguments.
type EntryFunc func(ctx context.Context, args []string) error

// Host is the loader the bootstrap coordinator drives.
type Host interface {
	View() archive.View
	RegisterTransformer(t Transformer)
	BindEntry(className string) (EntryFunc, error)
}

// ClassLoader loads classes by name, dotted or internal.
type ClassLoader interface {
	LoadClass(name string) (*classfile.ClassFile, error)
}

// FindEntry loads className through cl and returns its public static
// main([Ljava/lang/String;)V.
func FindEntry(cl ClassLoader, className string) (*classfile.MethodInfo, error) {
	cf, err := cl.LoadClass(className)
	if errors.Is(err, ErrClassNotFound) {
		return nil, fmt.Errorf("loader: %s: %w", className, ErrEntryRoutineMissing)
	}
	if err != nil {
		return nil, err
	}
	m := cf.FindMethod(entryName, entryDescriptor)
	const want = classfile.AccPublic | classfile.AccStatic
	if m == nil || m.AccessFlags&want != want {
		return nil, fmt.Errorf("loader: %s: %w", className, ErrEntryRoutineMissing)
	}
	return m, nil
}
