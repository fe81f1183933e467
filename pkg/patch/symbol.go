package patch

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/daimatz/silkboot/pkg/classfile"
)

// HookSymbol names the static method a hook inserts calls to.
type HookSymbol struct {
	Owner      string // internal name
	Name       string
	Descriptor string
}

func (h HookSymbol) String() string {
	return h.Owner + "." + h.Name + h.Descriptor
}

// Validate checks that the hook maps a value of type t to the same type, so
// it can sit in front of a return without changing the stack.
func (h HookSymbol) Validate(t string) error {
	if h.Owner == "" || h.Name == "" {
		return fmt.Errorf("hook %s: owner and name are required", h)
	}
	if t == "" || t == "V" {
		return fmt.Errorf("hook %s: return type %q cannot be wrapped", h, t)
	}
	params, err := classfile.ParamTypes(h.Descriptor)
	if err != nil {
		return fmt.Errorf("hook %s: %w", h, err)
	}
	ret, err := classfile.ReturnType(h.Descriptor)
	if err != nil {
		return fmt.Errorf("hook %s: %w", h, err)
	}
	if len(params) != 1 || params[0] != t || ret != t {
		return fmt.Errorf("hook %s: descriptor must be (%s)%s", h, t, t)
	}
	return nil
}

// normalized returns the symbol with a slashed owner.
func (h HookSymbol) normalized() HookSymbol {
	h.Owner = classfile.InternalName(strings.TrimSpace(h.Owner))
	return h
}

// SymbolTable registers hook symbols by key. A key resolves to one symbol
// for the lifetime of the table.
type SymbolTable struct {
	mu      sync.RWMutex
	symbols map[string]HookSymbol
}

// NewSymbolTable returns a table holding the builtin symbols.
func NewSymbolTable() *SymbolTable {
	t := &SymbolTable{symbols: make(map[string]HookSymbol)}
	_ = t.Register(BrandingKey, BrandingHook)
	return t
}

// Register binds key to sym. Registering the same symbol twice is a no-op;
// rebinding a key to another symbol fails.
func (t *SymbolTable) Register(key string, sym HookSymbol) error {
	sym = sym.normalized()
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.symbols[key]; ok && old != sym {
		return fmt.Errorf("hook symbol %q already bound to %s", key, old)
	}
	t.symbols[key] = sym
	return nil
}

// Lookup resolves key.
func (t *SymbolTable) Lookup(key string) (HookSymbol, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sym, ok := t.symbols[key]
	return sym, ok
}

// Keys returns the registered keys in order.
func (t *SymbolTable) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]string, 0, len(t.symbols))
	for k := range t.symbols {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

