package patch

import (
	"errors"
	"fmt"

	"github.com/daimatz/silkboot/pkg/bytecode"
	"github.com/daimatz/silkboot/pkg/classfile"
)

// ReturnHookConfig describes a ReturnHook.
type ReturnHookConfig struct {
	Name        string
	Classes     []string // exact names or glob patterns
	MethodNames []string
	ReturnType  string // field descriptor, e.g. Ljava/lang/String;
	Hook        HookSymbol
	// HookClass builds the class owning Hook, for launches where no context
	// root carries it. Nil means the class must be on the classpath.
	HookClass func() ([]byte, error)
}

// ReturnHook inserts a call to a static (T)T hook before every return of
// the named methods that return T.
type ReturnHook struct {
	name       string
	classes    *Selector
	methods    map[string]struct{}
	returnType string
	returnOp   uint8
	hook       HookSymbol
	hookClass  func() ([]byte, error)
}

// NewReturnHook validates cfg and builds the unit.
func NewReturnHook(cfg ReturnHookConfig) (*ReturnHook, error) {
	if cfg.Name == "" {
		return nil, errors.New("return hook: name is required")
	}
	classes, err := NewSelector(cfg.Classes...)
	if err != nil {
		return nil, fmt.Errorf("return hook %s: %w", cfg.Name, err)
	}
	if classes.Empty() {
		return nil, fmt.Errorf("return hook %s: no classes", cfg.Name)
	}
	if len(cfg.MethodNames) == 0 {
		return nil, fmt.Errorf("return hook %s: no methods", cfg.Name)
	}
	op, ok := bytecode.ReturnOpFor(cfg.ReturnType)
	if !ok {
		return nil, fmt.Errorf("return hook %s: invalid return type %q", cfg.Name, cfg.ReturnType)
	}
	hook := cfg.Hook.normalized()
	if err := hook.Validate(cfg.ReturnType); err != nil {
		return nil, fmt.Errorf("return hook %s: %w", cfg.Name, err)
	}

	h := &ReturnHook{
		name:       cfg.Name,
		classes:    classes,
		methods:    make(map[string]struct{}, len(cfg.MethodNames)),
		returnType: cfg.ReturnType,
		returnOp:   op,
		hook:       hook,
		hookClass:  cfg.HookClass,
	}
	for _, m := range cfg.MethodNames {
		h.methods[m] = struct{}{}
	}
	return h, nil
}

func (h *ReturnHook) Name() string { return h.name }

// Hook returns the inserted symbol.
func (h *ReturnHook) Hook() HookSymbol { return h.hook }

// HookClass returns the generated class owning the hook, or nil when the
// hook has to be found on the classpath.
func (h *ReturnHook) HookClass() ([]byte, error) {
	if h.hookClass == nil {
		return nil, nil
	}
	b, err := h.hookClass()
	if err != nil {
		return nil, fmt.Errorf("return hook %s: building %s: %w", h.name, h.hook.Owner, err)
	}
	return b, nil
}

func (h *ReturnHook) Selects(className string) bool {
	return h.classes.Match(className)
}

// Apply wraps the returns of every matching method. A return whose
// preceding instruction already calls the hook is left alone, so applying
// twice changes nothing the second time.
func (h *ReturnHook) Apply(cf *classfile.ClassFile) (bool, error) {
	className, err := cf.ClassName()
	if err != nil {
		return false, err
	}
	applied := false
	var ref uint16
	for i := range cf.Methods {
		m := &cf.Methods[i]
		if _, ok := h.methods[m.Name]; !ok || m.Code == nil {
			continue
		}
		if ret, err := classfile.ReturnType(m.Descriptor); err != nil || ret != h.returnType {
			continue
		}

		body, err := m.Body()
		if err != nil {
			return false, err
		}
		n, err := h.wrapReturns(cf, body, &ref)
		if err != nil {
			return false, fmt.Errorf("%s::%s: %w", className, m.Name, err)
		}
		if n == 0 {
			continue
		}
		log.Debugf("Applying %s hook to %s::%s (%d returns)", h.name, className, m.Name, n)
		m.MarkDirty()
		applied = true
	}
	return applied, nil
}

// wrapReturns inserts the hook call before each matching return and returns
// how many calls it inserted. *ref is the Methodref of the hook, added to
// the pool on first use.
func (h *ReturnHook) wrapReturns(cf *classfile.ClassFile, body *bytecode.Body, ref *uint16) (int, error) {
	n := 0
	var prev bytecode.Instruction
	it := body.Iterator()
	for it.HasNext() {
		in, _ := it.Next()
		if in.IsLabel() {
			// Other paths may jump here without passing the call before it.
			prev = bytecode.Instruction{}
			continue
		}
		if in.Op == h.returnOp && !h.isHookCall(cf, prev) {
			if *ref == 0 {
				idx, err := cf.AddMethodref(h.hook.Owner, h.hook.Name, h.hook.Descriptor)
				if err != nil {
					return n, err
				}
				*ref = idx
			}
			if err := it.InsertBefore(bytecode.MethodInsn(bytecode.OpInvokestatic, *ref)); err != nil {
				return n, err
			}
			n++
		}
		prev = in
	}
	return n, nil
}

func (h *ReturnHook) isHookCall(cf *classfile.ClassFile, in bytecode.Instruction) bool {
	if in.Op != bytecode.OpInvokestatic {
		return false
	}
	idx, ok := in.Index()
	if !ok {
		return false
	}
	ref, err := classfile.ResolveMethodref(cf.ConstantPool, idx)
	if err != nil {
		return false
	}
	return ref.ClassName == h.hook.Owner && ref.MethodName == h.hook.Name && ref.Descriptor == h.hook.Descriptor
}
