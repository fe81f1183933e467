package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrBranchOutOfRange is returned when an edit pushes a branch target past
// what the instruction's offset field can encode.
var ErrBranchOutOfRange = errors.New("branch offset out of range")

// Handler is an exception table entry bound to labels.
type Handler struct {
	Start, End, Handler *Label
	CatchType           uint16
}

// Body is an editable method body. Instructions refer to each other through
// labels; byte offsets only exist in the encoded form.
type Body struct {
	MaxStack     uint16
	MaxLocals    uint16
	Instructions *List
	Handlers     []Handler

	attrs  []Attribute
	tables map[int]table // keyed by attribute position
}

// table is a Code sub-attribute that carries code offsets.
type table interface {
	encode() ([]byte, error)
}

type rawInsn struct {
	pc   int
	insn Instruction
	// targets are absolute offsets; for switches the default comes first.
	targets []int
}

// Iterator returns a cursor over the body's instructions.
func (b *Body) Iterator() *Cursor {
	return b.Instructions.Iterator()
}

// Decode converts a Code attribute into an editable Body.
func Decode(c *Code) (*Body, error) {
	raws, err := scan(c.Code)
	if err != nil {
		return nil, err
	}
	starts := make(map[int]bool, len(raws)+1)
	for _, r := range raws {
		starts[r.pc] = true
	}
	starts[len(c.Code)] = true

	labels := make(map[int]*Label)
	labelAt := func(off int) (*Label, error) {
		if !starts[off] {
			return nil, fmt.Errorf("offset %d is not an instruction boundary", off)
		}
		l, ok := labels[off]
		if !ok {
			l = &Label{offset: off}
			labels[off] = l
		}
		return l, nil
	}

	for i := range raws {
		r := &raws[i]
		resolved := make([]*Label, len(r.targets))
		for j, off := range r.targets {
			if resolved[j], err = labelAt(off); err != nil {
				return nil, fmt.Errorf("%s at %d: %w", OpName(r.insn.Op), r.pc, err)
			}
		}
		switch {
		case isBranch(r.insn.Op):
			r.insn.Target = resolved[0]
		case r.insn.Op == OpTableswitch, r.insn.Op == OpLookupswitch:
			r.insn.Default = resolved[0]
			r.insn.Targets = resolved[1:]
		}
	}

	b := &Body{
		MaxStack:  c.MaxStack,
		MaxLocals: c.MaxLocals,
		attrs:     c.Attributes,
		tables:    make(map[int]table),
	}
	for _, h := range c.ExceptionHandlers {
		var bh Handler
		if bh.Start, err = labelAt(int(h.StartPC)); err != nil {
			return nil, fmt.Errorf("exception handler start: %w", err)
		}
		if bh.End, err = labelAt(int(h.EndPC)); err != nil {
			return nil, fmt.Errorf("exception handler end: %w", err)
		}
		if bh.Handler, err = labelAt(int(h.HandlerPC)); err != nil {
			return nil, fmt.Errorf("exception handler target: %w", err)
		}
		bh.CatchType = h.CatchType
		b.Handlers = append(b.Handlers, bh)
	}
	for i, a := range c.Attributes {
		var t table
		switch a.Name {
		case "StackMapTable":
			t, err = decodeStackMap(a.Data, labelAt)
		case "LineNumberTable":
			t, err = decodeLineNumbers(a.Data, labelAt)
		case "LocalVariableTable", "LocalVariableTypeTable":
			t, err = decodeLocals(a.Data, labelAt)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", a.Name, err)
		}
		b.tables[i] = t
	}

	b.Instructions = NewList()
	for _, r := range raws {
		if l, ok := labels[r.pc]; ok {
			b.Instructions.Append(LabelInsn(l))
		}
		b.Instructions.Append(r.insn)
	}
	if l, ok := labels[len(c.Code)]; ok {
		b.Instructions.Append(LabelInsn(l))
	}
	return b, nil
}

// scan walks raw bytecode and returns every instruction with its absolute
// branch targets.
func scan(code []byte) ([]rawInsn, error) {
	var out []rawInsn
	for pc := 0; pc < len(code); {
		op := code[pc]
		if OpName(op) == "" {
			return nil, fmt.Errorf("unknown opcode: 0x%02X at PC=%d", op, pc)
		}
		r := rawInsn{pc: pc, insn: Instruction{Op: op}}
		need := func(n int) error {
			if pc+n > len(code) {
				return fmt.Errorf("%s at %d: truncated operands", OpName(op), pc)
			}
			return nil
		}
		var size int
		switch {
		case isWideBranch(op):
			if err := need(5); err != nil {
				return nil, err
			}
			r.targets = []int{pc + int(int32(binary.BigEndian.Uint32(code[pc+1:])))}
			size = 5
		case isBranch(op):
			if err := need(3); err != nil {
				return nil, err
			}
			r.targets = []int{pc + int(int16(binary.BigEndian.Uint16(code[pc+1:])))}
			size = 3
		case op == OpTableswitch || op == OpLookupswitch:
			p := pc + 1 + switchPadding(pc)
			if err := need(p - pc + 8); err != nil {
				return nil, err
			}
			def := int32(binary.BigEndian.Uint32(code[p:]))
			r.targets = []int{pc + int(def)}
			if op == OpTableswitch {
				if err := need(p - pc + 12); err != nil {
					return nil, err
				}
				low := int32(binary.BigEndian.Uint32(code[p+4:]))
				high := int32(binary.BigEndian.Uint32(code[p+8:]))
				if high < low {
					return nil, fmt.Errorf("tableswitch at %d: high %d < low %d", pc, high, low)
				}
				n := int(high) - int(low) + 1
				if err := need(p - pc + 12 + 4*n); err != nil {
					return nil, err
				}
				r.insn.Low = low
				for i := 0; i < n; i++ {
					r.targets = append(r.targets, pc+int(int32(binary.BigEndian.Uint32(code[p+12+4*i:]))))
				}
				size = p - pc + 12 + 4*n
			} else {
				n := int(int32(binary.BigEndian.Uint32(code[p+4:])))
				if n < 0 {
					return nil, fmt.Errorf("lookupswitch at %d: negative npairs", pc)
				}
				if err := need(p - pc + 8 + 8*n); err != nil {
					return nil, err
				}
				for i := 0; i < n; i++ {
					at := p + 8 + 8*i
					r.insn.Keys = append(r.insn.Keys, int32(binary.BigEndian.Uint32(code[at:])))
					r.targets = append(r.targets, pc+int(int32(binary.BigEndian.Uint32(code[at+4:]))))
				}
				size = p - pc + 8 + 8*n
			}
		case op == OpWide:
			if err := need(2); err != nil {
				return nil, err
			}
			size = 4
			if code[pc+1] == OpIinc {
				size = 6
			}
			if err := need(size); err != nil {
				return nil, err
			}
			r.insn.Operands = append([]byte(nil), code[pc+1:pc+size]...)
		default:
			n := operandSize(op)
			if err := need(1 + n); err != nil {
				return nil, err
			}
			if n > 0 {
				r.insn.Operands = append([]byte(nil), code[pc+1:pc+1+n]...)
			}
			size = 1 + n
		}
		out = append(out, r)
		pc += size
	}
	return out, nil
}

// Encode lays the body out again and returns the Code attribute.
// Every label resolves to the offset of the instruction following it.
func (b *Body) Encode() (*Code, error) {
	insns := b.Instructions.Slice()
	placed := make(map[*Label]bool)
	positions := make([]int, len(insns))
	pos := 0
	for i, in := range insns {
		positions[i] = pos
		if in.IsLabel() {
			in.Label.offset = pos
			placed[in.Label] = true
			continue
		}
		pos += in.size(pos)
	}
	if pos > math.MaxUint16 {
		return nil, fmt.Errorf("code length %d exceeds 65535", pos)
	}
	offsetOf := func(l *Label) (int, error) {
		if l == nil || !placed[l] {
			return 0, errors.New("label is not placed in the instruction list")
		}
		return l.offset, nil
	}

	code := make([]byte, 0, pos)
	for i, in := range insns {
		if in.IsLabel() {
			continue
		}
		pc := positions[i]
		code = append(code, in.Op)
		switch {
		case isBranch(in.Op):
			target, err := offsetOf(in.Target)
			if err != nil {
				return nil, fmt.Errorf("%s at %d: %w", OpName(in.Op), pc, err)
			}
			rel := target - pc
			if isWideBranch(in.Op) {
				code = binary.BigEndian.AppendUint32(code, uint32(int32(rel)))
				break
			}
			if rel < math.MinInt16 || rel > math.MaxInt16 {
				return nil, fmt.Errorf("%s at %d: %w", OpName(in.Op), pc, ErrBranchOutOfRange)
			}
			code = binary.BigEndian.AppendUint16(code, uint16(int16(rel)))
		case in.Op == OpTableswitch || in.Op == OpLookupswitch:
			code = append(code, make([]byte, switchPadding(pc))...)
			def, err := offsetOf(in.Default)
			if err != nil {
				return nil, fmt.Errorf("%s at %d: %w", OpName(in.Op), pc, err)
			}
			code = binary.BigEndian.AppendUint32(code, uint32(int32(def-pc)))
			if in.Op == OpTableswitch {
				code = binary.BigEndian.AppendUint32(code, uint32(in.Low))
				code = binary.BigEndian.AppendUint32(code, uint32(in.Low+int32(len(in.Targets))-1))
			} else {
				if len(in.Keys) != len(in.Targets) {
					return nil, fmt.Errorf("lookupswitch at %d: %d keys for %d targets", pc, len(in.Keys), len(in.Targets))
				}
				code = binary.BigEndian.AppendUint32(code, uint32(len(in.Targets)))
			}
			for j, t := range in.Targets {
				off, err := offsetOf(t)
				if err != nil {
					return nil, fmt.Errorf("%s at %d: %w", OpName(in.Op), pc, err)
				}
				if in.Op == OpLookupswitch {
					code = binary.BigEndian.AppendUint32(code, uint32(in.Keys[j]))
				}
				code = binary.BigEndian.AppendUint32(code, uint32(int32(off-pc)))
			}
		default:
			code = append(code, in.Operands...)
		}
	}

	c := &Code{MaxStack: b.MaxStack, MaxLocals: b.MaxLocals, Code: code}
	for _, h := range b.Handlers {
		start, err := offsetOf(h.Start)
		if err != nil {
			return nil, fmt.Errorf("exception handler start: %w", err)
		}
		end, err := offsetOf(h.End)
		if err != nil {
			return nil, fmt.Errorf("exception handler end: %w", err)
		}
		handler, err := offsetOf(h.Handler)
		if err != nil {
			return nil, fmt.Errorf("exception handler target: %w", err)
		}
		c.ExceptionHandlers = append(c.ExceptionHandlers, ExceptionHandler{
			StartPC:   uint16(start),
			EndPC:     uint16(end),
			HandlerPC: uint16(handler),
			CatchType: h.CatchType,
		})
	}
	for i, a := range b.attrs {
		if t, ok := b.tables[i]; ok {
			data, err := t.encode()
			if err != nil {
				return nil, fmt.Errorf("encoding %s: %w", a.Name, err)
			}
			a.Data = data
		}
		c.Attributes = append(c.Attributes, a)
	}
	return c, nil
}
