// Package classfiletest assembles class files byte by byte for tests. It does
// not use the classfile writer, so round trips can be checked against it.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/daimatz/silkboot/pkg/bytecode"
)

// Attr is a raw attribute.
type Attr struct {
	Name string
	Data []byte
}

// Method describes one method_info. A nil Code means no Code attribute.
type Method struct {
	Flags     uint16
	Name      string
	Desc      string
	MaxStack  uint16
	MaxLocals uint16
	Code      []byte
	Handlers  []bytecode.ExceptionHandler
	CodeAttrs []Attr
	Attrs     []Attr
}

// Builder accumulates a constant pool and members.
type Builder struct {
	Major   uint16
	Flags   uint16
	entries [][]byte
	slots   uint16
	utf8    map[string]uint16
	this    uint16
	super   uint16
	fields  []Method
	methods []Method
	attrs   []Attr
}

// New starts a class with the given internal name extending java/lang/Object.
func New(name string) *Builder {
	b := &Builder{Major: 52, Flags: 0x0021, slots: 1, utf8: make(map[string]uint16)}
	b.this = b.Class(name)
	b.super = b.Class("java/lang/Object")
	return b
}

func (b *Builder) entry(data []byte, width uint16) uint16 {
	idx := b.slots
	b.entries = append(b.entries, data)
	b.slots += width
	return idx
}

func u2(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

// Utf8 interns s.
func (b *Builder) Utf8(s string) uint16 {
	if i, ok := b.utf8[s]; ok {
		return i
	}
	data := append([]byte{1}, u2(uint16(len(s)))...)
	i := b.entry(append(data, s...), 1)
	b.utf8[s] = i
	return i
}

// Class adds a Class entry.
func (b *Builder) Class(name string) uint16 {
	n := b.Utf8(name)
	return b.entry(append([]byte{7}, u2(n)...), 1)
}

// String adds a String entry.
func (b *Builder) String(s string) uint16 {
	n := b.Utf8(s)
	return b.entry(append([]byte{8}, u2(n)...), 1)
}

// Long adds a Long entry, which takes two slots.
func (b *Builder) Long(v int64) uint16 {
	return b.entry(binary.BigEndian.AppendUint64([]byte{5}, uint64(v)), 2)
}

// Double adds a Double entry.
func (b *Builder) Double(v float64) uint16 {
	return b.entry(binary.BigEndian.AppendUint64([]byte{6}, math.Float64bits(v)), 2)
}

// Methodref adds a Methodref entry with its Class and NameAndType.
func (b *Builder) Methodref(owner, name, desc string) uint16 {
	c := b.Class(owner)
	nat := append([]byte{12}, u2(b.Utf8(name))...)
	n := b.entry(append(nat, u2(b.Utf8(desc))...), 1)
	return b.entry(append(append([]byte{10}, u2(c)...), u2(n)...), 1)
}

// Field adds a field.
func (b *Builder) Field(flags uint16, name, desc string) *Builder {
	b.fields = append(b.fields, Method{Flags: flags, Name: name, Desc: desc})
	return b
}

// Method adds a method.
func (b *Builder) Method(m Method) *Builder {
	b.methods = append(b.methods, m)
	return b
}

// Main adds public static void main(String[]) that just returns.
func (b *Builder) Main() *Builder {
	return b.Method(Method{
		Flags:     0x0009,
		Name:      "main",
		Desc:      "([Ljava/lang/String;)V",
		MaxLocals: 1,
		Code:      []byte{bytecode.OpReturn},
	})
}

// Attr adds a class attribute.
func (b *Builder) Attr(name string, data []byte) *Builder {
	b.attrs = append(b.attrs, Attr{Name: name, Data: data})
	return b
}

func (b *Builder) writeAttrs(w *bytes.Buffer, attrs []Attr) {
	w.Write(u2(uint16(len(attrs))))
	for _, a := range attrs {
		w.Write(u2(b.Utf8(a.Name)))
		w.Write(binary.BigEndian.AppendUint32(nil, uint32(len(a.Data))))
		w.Write(a.Data)
	}
}

func (b *Builder) writeMembers(w *bytes.Buffer, ms []Method) {
	w.Write(u2(uint16(len(ms))))
	for _, m := range ms {
		w.Write(u2(m.Flags))
		w.Write(u2(b.Utf8(m.Name)))
		w.Write(u2(b.Utf8(m.Desc)))
		attrs := m.Attrs
		if m.Code != nil {
			var code bytes.Buffer
			code.Write(u2(m.MaxStack))
			code.Write(u2(m.MaxLocals))
			code.Write(binary.BigEndian.AppendUint32(nil, uint32(len(m.Code))))
			code.Write(m.Code)
			code.Write(u2(uint16(len(m.Handlers))))
			for _, h := range m.Handlers {
				code.Write(u2(h.StartPC))
				code.Write(u2(h.EndPC))
				code.Write(u2(h.HandlerPC))
				code.Write(u2(h.CatchType))
			}
			b.writeAttrs(&code, m.CodeAttrs)
			attrs = append([]Attr{{Name: "Code", Data: code.Bytes()}}, attrs...)
		}
		b.writeAttrs(w, attrs)
	}
}

// Bytes returns the class file.
func (b *Builder) Bytes() []byte {
	var body bytes.Buffer
	body.Write(u2(b.Flags))
	body.Write(u2(b.this))
	body.Write(u2(b.super))
	body.Write(u2(0))
	b.writeMembers(&body, b.fields)
	b.writeMembers(&body, b.methods)
	b.writeAttrs(&body, b.attrs)

	var out bytes.Buffer
	out.Write([]byte{0xCA, 0xFE, 0xBA, 0xBE, 0x00, 0x00})
	out.Write(u2(b.Major))
	out.Write(u2(b.slots))
	for _, e := range b.entries {
		out.Write(e)
	}
	out.Write(body.Bytes())
	return out.Bytes()
}
