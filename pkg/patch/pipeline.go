// Package patch rewrites classes on their way into the loader.
package patch

import (
	"fmt"
	"sync"

	"github.com/daimatz/silkboot/pkg/classfile"
	"github.com/daimatz/silkboot/pkg/logging"
)

var log = logging.Category("GamePatch")

// Unit is one stateless class rewrite.
type Unit interface {
	Name() string
	// Selects reports whether the unit wants to see the class, by dotted or
	// internal name.
	Selects(className string) bool
	// Apply edits cf in place and reports whether anything changed.
	Apply(cf *classfile.ClassFile) (bool, error)
}

// Pipeline runs registered units over classes. It is safe for concurrent use;
// each call owns the ClassFile it parses.
type Pipeline struct {
	mu    sync.RWMutex
	units []Unit
}

// NewPipeline returns a pipeline with units registered in order.
func NewPipeline(units ...Unit) *Pipeline {
	p := &Pipeline{}
	p.Register(units...)
	return p
}

// Register appends units. They run in registration order.
func (p *Pipeline) Register(units ...Unit) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.units = append(p.units, units...)
}

// Units returns the registered units.
func (p *Pipeline) Units() []Unit {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Unit(nil), p.units...)
}

func (p *Pipeline) selected(name string) []Unit {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Unit
	for _, u := range p.units {
		if u.Selects(name) {
			out = append(out, u)
		}
	}
	return out
}

// Selects reports whether any unit selects the class.
func (p *Pipeline) Selects(name string) bool {
	return len(p.selected(name)) > 0
}

// OnClassLoad parses the class once, runs every selecting unit on it and
// serializes it if any unit applied. Classes no unit selects are not parsed.
func (p *Pipeline) OnClassLoad(name string, original []byte) ([]byte, bool, error) {
	units := p.selected(name)
	if len(units) == 0 {
		return nil, false, nil
	}
	cf, err := classfile.ParseBytes(original)
	if err != nil {
		return nil, false, fmt.Errorf("patch: %s: %w", name, err)
	}

	applied := false
	for _, u := range units {
		ok, err := u.Apply(cf)
		if err != nil {
			return nil, false, fmt.Errorf("patch: %s on %s: %w", u.Name(), name, err)
		}
		if ok {
			log.Debugf("Applied %s to %s", u.Name(), name)
		}
		applied = applied || ok
	}
	if !applied {
		return nil, false, nil
	}
	out, err := cf.Bytes()
	if err != nil {
		return nil, false, fmt.Errorf("patch: writing %s: %w", name, err)
	}
	return out, true, nil
}

// hookUnit is a unit whose edits call into a hook class.
type hookUnit interface {
	Hook() HookSymbol
	HookClass() ([]byte, error)
}

// HookClasses maps the internal name of every hook owner the units call to
// a generated class for it. A nil value means the owner has to be found on
// the classpath.
func (p *Pipeline) HookClasses() (map[string][]byte, error) {
	classes := make(map[string][]byte)
	for _, u := range p.Units() {
		hu, ok := u.(hookUnit)
		if !ok {
			continue
		}
		owner := hu.Hook().Owner
		if classes[owner] != nil {
			continue
		}
		b, err := hu.HookClass()
		if err != nil {
			return nil, fmt.Errorf("patch: %w", err)
		}
		classes[owner] = b
	}
	return classes, nil
}
