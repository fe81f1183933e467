package bytecode

import (
	"encoding/binary"
	"fmt"
)

type labelResolver func(off int) (*Label, error)

type lineNumber struct {
	start *Label
	line  uint16
}

type lineNumberTable []lineNumber

func decodeLineNumbers(data []byte, labelAt labelResolver) (table, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("truncated")
	}
	n := int(binary.BigEndian.Uint16(data))
	if len(data) != 2+4*n {
		return nil, fmt.Errorf("length %d does not match %d entries", len(data), n)
	}
	t := make(lineNumberTable, n)
	for i := range t {
		at := 2 + 4*i
		l, err := labelAt(int(binary.BigEndian.Uint16(data[at:])))
		if err != nil {
			return nil, err
		}
		t[i] = lineNumber{start: l, line: binary.BigEndian.Uint16(data[at+2:])}
	}
	return t, nil
}

func (t lineNumberTable) encode() ([]byte, error) {
	out := binary.BigEndian.AppendUint16(nil, uint16(len(t)))
	for _, e := range t {
		out = binary.BigEndian.AppendUint16(out, uint16(e.start.offset))
		out = binary.BigEndian.AppendUint16(out, e.line)
	}
	return out, nil
}

// localVar covers both LocalVariableTable and LocalVariableTypeTable; they
// share a layout.
type localVar struct {
	start, end *Label
	nameIndex  uint16
	descIndex  uint16
	index      uint16
}

type localVarTable []localVar

func decodeLocals(data []byte, labelAt labelResolver) (table, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("truncated")
	}
	n := int(binary.BigEndian.Uint16(data))
	if len(data) != 2+10*n {
		return nil, fmt.Errorf("length %d does not match %d entries", len(data), n)
	}
	t := make(localVarTable, n)
	for i := range t {
		at := 2 + 10*i
		startPC := int(binary.BigEndian.Uint16(data[at:]))
		length := int(binary.BigEndian.Uint16(data[at+2:]))
		start, err := labelAt(startPC)
		if err != nil {
			return nil, err
		}
		end, err := labelAt(startPC + length)
		if err != nil {
			return nil, err
		}
		t[i] = localVar{
			start:     start,
			end:       end,
			nameIndex: binary.BigEndian.Uint16(data[at+4:]),
			descIndex: binary.BigEndian.Uint16(data[at+6:]),
			index:     binary.BigEndian.Uint16(data[at+8:]),
		}
	}
	return t, nil
}

func (t localVarTable) encode() ([]byte, error) {
	out := binary.BigEndian.AppendUint16(nil, uint16(len(t)))
	for _, e := range t {
		out = binary.BigEndian.AppendUint16(out, uint16(e.start.offset))
		out = binary.BigEndian.AppendUint16(out, uint16(e.end.offset-e.start.offset))
		out = binary.BigEndian.AppendUint16(out, e.nameIndex)
		out = binary.BigEndian.AppendUint16(out, e.descIndex)
		out = binary.BigEndian.AppendUint16(out, e.index)
	}
	return out, nil
}
