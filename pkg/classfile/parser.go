package classfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/daimatz/silkboot/pkg/bytecode"
)

const classMagic = 0xCAFEBABE

// ParseBytes parses a complete class file. Trailing bytes are an error.
func ParseBytes(b []byte) (*ClassFile, error) {
	r := bytes.NewReader(b)
	cf, err := Parse(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedClass, r.Len())
	}
	return cf, nil
}

// ParseHeader reads only the magic and version fields.
func ParseHeader(b []byte) (minor, major uint16, err error) {
	if len(b) < 8 {
		return 0, 0, fmt.Errorf("%w: %d byte header", ErrMalformedClass, len(b))
	}
	if magic := binary.BigEndian.Uint32(b); magic != classMagic {
		return 0, 0, fmt.Errorf("%w: invalid magic number: 0x%X", ErrMalformedClass, magic)
	}
	return binary.BigEndian.Uint16(b[4:]), binary.BigEndian.Uint16(b[6:]), nil
}

// Parse reads a .class file from the given reader and returns a ClassFile.
// Every failure wraps ErrMalformedClass.
func Parse(r io.Reader) (*ClassFile, error) {
	cf, err := parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedClass, err)
	}
	return cf, nil
}

func parse(r io.Reader) (*ClassFile, error) {
	cf := &ClassFile{}

	// Magic number
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("reading magic number: %w", err)
	}
	if magic != classMagic {
		return nil, fmt.Errorf("invalid magic number: 0x%X (expected 0xCAFEBABE)", magic)
	}

	// Version
	if err := binary.Read(r, binary.BigEndian, &cf.MinorVersion); err != nil {
		return nil, fmt.Errorf("reading minor version: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.MajorVersion); err != nil {
		return nil, fmt.Errorf("reading major version: %w", err)
	}

	// Constant pool
	var cpCount uint16
	if err := binary.Read(r, binary.BigEndian, &cpCount); err != nil {
		return nil, fmt.Errorf("reading constant pool count: %w", err)
	}
	pool, err := parseConstantPool(r, cpCount)
	if err != nil {
		return nil, fmt.Errorf("parsing constant pool: %w", err)
	}
	cf.ConstantPool = pool

	// Access flags, this_class, super_class
	if err := binary.Read(r, binary.BigEndian, &cf.AccessFlags); err != nil {
		return nil, fmt.Errorf("reading access flags: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.ThisClass); err != nil {
		return nil, fmt.Errorf("reading this_class: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &cf.SuperClass); err != nil {
		return nil, fmt.Errorf("reading super_class: %w", err)
	}
	if _, err := GetClassName(pool, cf.ThisClass); err != nil {
		return nil, fmt.Errorf("resolving this_class: %w", err)
	}

	// Interfaces
	var interfacesCount uint16
	if err := binary.Read(r, binary.BigEndian, &interfacesCount); err != nil {
		return nil, fmt.Errorf("reading interfaces count: %w", err)
	}
	cf.Interfaces = make([]uint16, interfacesCount)
	for i := uint16(0); i < interfacesCount; i++ {
		if err := binary.Read(r, binary.BigEndian, &cf.Interfaces[i]); err != nil {
			return nil, fmt.Errorf("reading interface %d: %w", i, err)
		}
	}

	// Fields
	var fieldsCount uint16
	if err := binary.Read(r, binary.BigEndian, &fieldsCount); err != nil {
		return nil, fmt.Errorf("reading fields count: %w", err)
	}
	cf.Fields = make([]FieldInfo, fieldsCount)
	for i := range cf.Fields {
		m, err := parseMember(r, pool, "field", i)
		if err != nil {
			return nil, fmt.Errorf("parsing fields: %w", err)
		}
		cf.Fields[i] = FieldInfo(m)
	}

	// Methods
	var methodsCount uint16
	if err := binary.Read(r, binary.BigEndian, &methodsCount); err != nil {
		return nil, fmt.Errorf("reading methods count: %w", err)
	}
	cf.Methods = make([]MethodInfo, methodsCount)
	for i := range cf.Methods {
		m, err := parseMethod(r, pool, i)
		if err != nil {
			return nil, fmt.Errorf("parsing methods: %w", err)
		}
		cf.Methods[i] = m
	}

	// Class-level attributes are kept raw
	var attrCount uint16
	if err := binary.Read(r, binary.BigEndian, &attrCount); err != nil {
		return nil, fmt.Errorf("reading class attributes count: %w", err)
	}
	cf.Attributes, err = parseAttributeInfos(r, pool, attrCount)
	if err != nil {
		return nil, fmt.Errorf("parsing class attributes: %w", err)
	}

	return cf, nil
}

// member is the layout shared by field_info and method_info.
type member struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Name            string
	Descriptor      string
	Attributes      []AttributeInfo
}

func parseMember(r io.Reader, pool []ConstantPoolEntry, kind string, i int) (member, error) {
	var m member
	var attrCount uint16
	if err := binary.Read(r, binary.BigEndian, &m.AccessFlags); err != nil {
		return m, fmt.Errorf("reading %s %d access flags: %w", kind, i, err)
	}
	if err := binary.Read(r, binary.BigEndian, &m.NameIndex); err != nil {
		return m, fmt.Errorf("reading %s %d name index: %w", kind, i, err)
	}
	if err := binary.Read(r, binary.BigEndian, &m.DescriptorIndex); err != nil {
		return m, fmt.Errorf("reading %s %d descriptor index: %w", kind, i, err)
	}
	if err := binary.Read(r, binary.BigEndian, &attrCount); err != nil {
		return m, fmt.Errorf("reading %s %d attributes count: %w", kind, i, err)
	}

	var err error
	if m.Name, err = GetUtf8(pool, m.NameIndex); err != nil {
		return m, fmt.Errorf("resolving %s %d name: %w", kind, i, err)
	}
	if m.Descriptor, err = GetUtf8(pool, m.DescriptorIndex); err != nil {
		return m, fmt.Errorf("resolving %s %d descriptor: %w", kind, i, err)
	}
	if m.Attributes, err = parseAttributeInfos(r, pool, attrCount); err != nil {
		return m, fmt.Errorf("parsing %s %d attributes: %w", kind, i, err)
	}
	return m, nil
}

func parseMethod(r io.Reader, pool []ConstantPoolEntry, i int) (MethodInfo, error) {
	mem, err := parseMember(r, pool, "method", i)
	if err != nil {
		return MethodInfo{}, err
	}
	m := MethodInfo{
		AccessFlags:     mem.AccessFlags,
		NameIndex:       mem.NameIndex,
		DescriptorIndex: mem.DescriptorIndex,
		Name:            mem.Name,
		Descriptor:      mem.Descriptor,
		Attributes:      mem.Attributes,
		codeAttr:        -1,
	}

	// Extract Code attribute
	for j, attr := range m.Attributes {
		if attr.Name == "Code" {
			code, err := bytecode.ParseCode(attr.Data, func(idx uint16) (string, error) {
				return GetUtf8(pool, idx)
			})
			if err != nil {
				return MethodInfo{}, fmt.Errorf("parsing Code attribute for method %s: %w", m.Name, err)
			}
			m.Code = code
			m.codeAttr = j
			break
		}
	}
	return m, nil
}

func parseAttributeInfos(r io.Reader, pool []ConstantPoolEntry, count uint16) ([]AttributeInfo, error) {
	attrs := make([]AttributeInfo, count)
	for i := uint16(0); i < count; i++ {
		var nameIndex uint16
		if err := binary.Read(r, binary.BigEndian, &nameIndex); err != nil {
			return nil, fmt.Errorf("reading attribute %d name index: %w", i, err)
		}
		var length uint32
		if err := binary.Read(r, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("reading attribute %d length: %w", i, err)
		}
		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("reading attribute %d data: %w", i, err)
		}

		name, err := GetUtf8(pool, nameIndex)
		if err != nil {
			return nil, fmt.Errorf("resolving attribute %d name: %w", i, err)
		}

		attrs[i] = AttributeInfo{NameIndex: nameIndex, Name: name, Data: data}
	}
	return attrs, nil
}

// ClassName returns the fully qualified name of this class.
func (cf *ClassFile) ClassName() (string, error) {
	return GetClassName(cf.ConstantPool, cf.ThisClass)
}

// FindMethod finds a method by name and descriptor.
func (cf *ClassFile) FindMethod(name, descriptor string) *MethodInfo {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name && cf.Methods[i].Descriptor == descriptor {
			return &cf.Methods[i]
		}
	}
	return nil
}
