package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ExceptionHandler represents an entry in the exception table.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// Attribute is a raw attribute. Name is resolved from NameIndex at parse time.
type Attribute struct {
	NameIndex uint16
	Name      string
	Data      []byte
}

// Code represents the Code attribute of a method.
type Code struct {
	MaxStack          uint16
	MaxLocals         uint16
	Code              []byte
	ExceptionHandlers []ExceptionHandler
	Attributes        []Attribute
}

// ParseCode decodes the body of a Code attribute. nameOf resolves attribute
// name indexes against the class constant pool.
func ParseCode(data []byte, nameOf func(uint16) (string, error)) (*Code, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("Code attribute too short: %d bytes", len(data))
	}
	c := &Code{
		MaxStack:  binary.BigEndian.Uint16(data[0:2]),
		MaxLocals: binary.BigEndian.Uint16(data[2:4]),
	}
	codeLength := int(binary.BigEndian.Uint32(data[4:8]))
	offset := 8
	if len(data) < offset+codeLength+2 {
		return nil, fmt.Errorf("Code attribute data too short for code_length %d", codeLength)
	}
	c.Code = make([]byte, codeLength)
	copy(c.Code, data[offset:offset+codeLength])
	offset += codeLength

	exTableLen := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	if len(data) < offset+8*exTableLen+2 {
		return nil, fmt.Errorf("exception table truncated: %d entries", exTableLen)
	}
	c.ExceptionHandlers = make([]ExceptionHandler, exTableLen)
	for i := range c.ExceptionHandlers {
		c.ExceptionHandlers[i] = ExceptionHandler{
			StartPC:   binary.BigEndian.Uint16(data[offset : offset+2]),
			EndPC:     binary.BigEndian.Uint16(data[offset+2 : offset+4]),
			HandlerPC: binary.BigEndian.Uint16(data[offset+4 : offset+6]),
			CatchType: binary.BigEndian.Uint16(data[offset+6 : offset+8]),
		}
		offset += 8
	}

	attrCount := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	c.Attributes = make([]Attribute, attrCount)
	for i := range c.Attributes {
		if len(data) < offset+6 {
			return nil, fmt.Errorf("reading code attribute %d header: truncated", i)
		}
		nameIndex := binary.BigEndian.Uint16(data[offset:])
		length := int(binary.BigEndian.Uint32(data[offset+2:]))
		offset += 6
		if len(data) < offset+length {
			return nil, fmt.Errorf("reading code attribute %d data: truncated", i)
		}
		name, err := nameOf(nameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving code attribute %d name: %w", i, err)
		}
		attr := Attribute{NameIndex: nameIndex, Name: name, Data: make([]byte, length)}
		copy(attr.Data, data[offset:offset+length])
		c.Attributes[i] = attr
		offset += length
	}
	if offset != len(data) {
		return nil, fmt.Errorf("Code attribute has %d trailing bytes", len(data)-offset)
	}
	return c, nil
}

// Bytes encodes c as the body of a Code attribute.
func (c *Code) Bytes() []byte {
	var buf bytes.Buffer
	w := func(v any) { _ = binary.Write(&buf, binary.BigEndian, v) }
	w(c.MaxStack)
	w(c.MaxLocals)
	w(uint32(len(c.Code)))
	buf.Write(c.Code)
	w(uint16(len(c.ExceptionHandlers)))
	for _, h := range c.ExceptionHandlers {
		w(h)
	}
	w(uint16(len(c.Attributes)))
	for _, a := range c.Attributes {
		w(a.NameIndex)
		w(uint32(len(a.Data)))
		buf.Write(a.Data)
	}
	return buf.Bytes()
}
