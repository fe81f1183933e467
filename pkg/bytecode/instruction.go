package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Label marks a position in an instruction list. Branch targets, exception
// ranges and debug tables refer to labels, never to byte offsets; offsets are
// recomputed when the list is encoded.
type Label struct {
	offset int
}

// NewLabel creates a label that is not yet placed in any list.
func NewLabel() *Label {
	return &Label{offset: -1}
}

// Offset returns the byte offset the label resolved to during the last
// decode or encode, or -1.
func (l *Label) Offset() int {
	return l.offset
}

// Instruction is a single abstract instruction. A label pseudo instruction
// has Label set and occupies no bytes.
type Instruction struct {
	Op uint8
	// Operands holds the raw operand bytes of non-branch, non-switch
	// instructions. For wide it starts with the modified opcode.
	Operands []byte

	Target *Label

	// Switch instructions.
	Default *Label
	Targets []*Label
	Low     int32
	Keys    []int32

	Label *Label
}

// Insn creates a plain instruction with raw operands.
func Insn(op uint8, operands ...byte) Instruction {
	return Instruction{Op: op, Operands: operands}
}

// MethodInsn creates an invoke instruction referencing the constant pool
// entry at index.
func MethodInsn(op uint8, index uint16) Instruction {
	return Instruction{Op: op, Operands: []byte{byte(index >> 8), byte(index)}}
}

// Jump creates a branch instruction to target.
func Jump(op uint8, target *Label) Instruction {
	return Instruction{Op: op, Target: target}
}

// LabelInsn creates the label pseudo instruction for l.
func LabelInsn(l *Label) Instruction {
	return Instruction{Label: l}
}

// IsLabel reports whether the instruction is a label pseudo instruction.
func (in Instruction) IsLabel() bool {
	return in.Label != nil
}

// Index returns the big-endian u16 constant pool index carried by field,
// method and type instructions.
func (in Instruction) Index() (uint16, bool) {
	if in.IsLabel() || len(in.Operands) < 2 {
		return 0, false
	}
	switch {
	case in.Op >= OpGetstatic && in.Op <= OpInvokedynamic,
		in.Op == OpNew, in.Op == OpAnewarray, in.Op == OpCheckcast,
		in.Op == OpInstanceof, in.Op == OpMultianewarray, in.Op == OpLdcW, in.Op == OpLdc2W:
		return binary.BigEndian.Uint16(in.Operands), true
	}
	return 0, false
}

func (in Instruction) String() string {
	if in.IsLabel() {
		return fmt.Sprintf("L@%d", in.Label.offset)
	}
	if idx, ok := in.Index(); ok {
		return fmt.Sprintf("%s #%d", OpName(in.Op), idx)
	}
	return OpName(in.Op)
}

// size returns the encoded length of in when placed at offset pos.
func (in Instruction) size(pos int) int {
	switch {
	case in.IsLabel():
		return 0
	case isWideBranch(in.Op):
		return 5
	case isBranch(in.Op):
		return 3
	case in.Op == OpTableswitch:
		return 1 + switchPadding(pos) + 12 + 4*len(in.Targets)
	case in.Op == OpLookupswitch:
		return 1 + switchPadding(pos) + 8 + 8*len(in.Targets)
	}
	return 1 + len(in.Operands)
}

// switchPadding is the number of bytes between a switch opcode at pos and
// its 4-byte aligned operands.
func switchPadding(pos int) int {
	return (4 - (pos+1)%4) % 4
}
