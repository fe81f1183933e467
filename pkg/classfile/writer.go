package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Bytes serializes the class. Methods with a dirty body are re-encoded first;
// everything else is written exactly as it was read.
func (cf *ClassFile) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := cf.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo implements io.WriterTo.
func (cf *ClassFile) WriteTo(w io.Writer) (int64, error) {
	for i := range cf.Methods {
		if err := cf.Methods[i].flush(); err != nil {
			return 0, err
		}
	}

	var buf bytes.Buffer
	if err := cf.write(&buf); err != nil {
		return 0, err
	}
	return buf.WriteTo(w)
}

func (cf *ClassFile) write(w *bytes.Buffer) error {
	be := binary.BigEndian
	_ = binary.Write(w, be, uint32(classMagic))
	_ = binary.Write(w, be, cf.MinorVersion)
	_ = binary.Write(w, be, cf.MajorVersion)
	if err := writeConstantPool(w, cf.ConstantPool); err != nil {
		return fmt.Errorf("writing constant pool: %w", err)
	}
	_ = binary.Write(w, be, cf.AccessFlags)
	_ = binary.Write(w, be, cf.ThisClass)
	_ = binary.Write(w, be, cf.SuperClass)
	_ = binary.Write(w, be, uint16(len(cf.Interfaces)))
	_ = binary.Write(w, be, cf.Interfaces)

	_ = binary.Write(w, be, uint16(len(cf.Fields)))
	for _, f := range cf.Fields {
		if err := writeMember(w, f.AccessFlags, f.NameIndex, f.DescriptorIndex, f.Attributes); err != nil {
			return fmt.Errorf("writing field %s: %w", f.Name, err)
		}
	}
	_ = binary.Write(w, be, uint16(len(cf.Methods)))
	for _, m := range cf.Methods {
		if err := writeMember(w, m.AccessFlags, m.NameIndex, m.DescriptorIndex, m.Attributes); err != nil {
			return fmt.Errorf("writing method %s: %w", m.Name, err)
		}
	}
	return writeAttributes(w, cf.Attributes)
}

func writeMember(w *bytes.Buffer, flags, name, desc uint16, attrs []AttributeInfo) error {
	_ = binary.Write(w, binary.BigEndian, flags)
	_ = binary.Write(w, binary.BigEndian, name)
	_ = binary.Write(w, binary.BigEndian, desc)
	return writeAttributes(w, attrs)
}

func writeAttributes(w *bytes.Buffer, attrs []AttributeInfo) error {
	if len(attrs) > 0xFFFF {
		return fmt.Errorf("%d attributes", len(attrs))
	}
	_ = binary.Write(w, binary.BigEndian, uint16(len(attrs)))
	for _, a := range attrs {
		_ = binary.Write(w, binary.BigEndian, a.NameIndex)
		_ = binary.Write(w, binary.BigEndian, uint32(len(a.Data)))
		w.Write(a.Data)
	}
	return nil
}
