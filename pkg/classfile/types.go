package classfile

import (
	"errors"
	"fmt"

	"github.com/daimatz/silkboot/pkg/bytecode"
)

// ErrMalformedClass is returned for input that is not a well formed class
// file. The wrapping error carries the detail.
var ErrMalformedClass = errors.New("malformed class file")

// Access flags
const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccProtected = 0x0004
	AccStatic    = 0x0008
	AccFinal     = 0x0010
	AccSuper     = 0x0020
	AccNative    = 0x0100
	AccInterface = 0x0200
	AccAbstract  = 0x0400
)

// ClassFile represents a parsed .class file.
type ClassFile struct {
	MinorVersion uint16
	MajorVersion uint16
	ConstantPool []ConstantPoolEntry
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []FieldInfo
	Methods      []MethodInfo
	Attributes   []AttributeInfo
}

// SuperClassName returns the fully qualified name of the super class.
// Returns "" if this is java/lang/Object (SuperClass == 0).
func (cf *ClassFile) SuperClassName() string {
	if cf.SuperClass == 0 {
		return ""
	}
	name, err := GetClassName(cf.ConstantPool, cf.SuperClass)
	if err != nil {
		return ""
	}
	return name
}

// ConstantPoolEntry is an interface implemented by all constant pool types.
type ConstantPoolEntry interface {
	Tag() uint8
}

type ConstantUtf8 struct {
	Value string
}

func (c *ConstantUtf8) Tag() uint8 { return TagUtf8 }

type ConstantInteger struct {
	Value int32
}

func (c *ConstantInteger) Tag() uint8 { return TagInteger }

type ConstantFloat struct {
	Value float32
}

func (c *ConstantFloat) Tag() uint8 { return TagFloat }

type ConstantLong struct {
	Value int64
}

func (c *ConstantLong) Tag() uint8 { return TagLong }

type ConstantDouble struct {
	Value float64
}

func (c *ConstantDouble) Tag() uint8 { return TagDouble }

type ConstantClass struct {
	NameIndex uint16
}

func (c *ConstantClass) Tag() uint8 { return TagClass }

type ConstantString struct {
	StringIndex uint16
}

func (c *ConstantString) Tag() uint8 { return TagString }

type ConstantFieldref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantFieldref) Tag() uint8 { return TagFieldref }

type ConstantMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantMethodref) Tag() uint8 { return TagMethodref }

type ConstantInterfaceMethodref struct {
	ClassIndex       uint16
	NameAndTypeIndex uint16
}

func (c *ConstantInterfaceMethodref) Tag() uint8 { return TagInterfaceMethodref }

type ConstantNameAndType struct {
	NameIndex       uint16
	DescriptorIndex uint16
}

func (c *ConstantNameAndType) Tag() uint8 { return TagNameAndType }

type ConstantMethodHandle struct {
	ReferenceKind  uint8
	ReferenceIndex uint16
}

func (c *ConstantMethodHandle) Tag() uint8 { return TagMethodHandle }

type ConstantMethodType struct {
	DescriptorIndex uint16
}

func (c *ConstantMethodType) Tag() uint8 { return TagMethodType }

// ConstantDynamic covers both CONSTANT_Dynamic and CONSTANT_InvokeDynamic.
type ConstantDynamic struct {
	Invoke                   bool
	BootstrapMethodAttrIndex uint16
	NameAndTypeIndex         uint16
}

func (c *ConstantDynamic) Tag() uint8 {
	if c.Invoke {
		return TagInvokeDynamic
	}
	return TagDynamic
}

// ConstantModule covers both CONSTANT_Module and CONSTANT_Package.
type ConstantModule struct {
	Package   bool
	NameIndex uint16
}

func (c *ConstantModule) Tag() uint8 {
	if c.Package {
		return TagPackage
	}
	return TagModule
}

// AttributeInfo represents a raw attribute.
type AttributeInfo = bytecode.Attribute

// ExceptionHandler represents an entry in the exception table.
type ExceptionHandler = bytecode.ExceptionHandler

// CodeAttribute represents the Code attribute of a method.
type CodeAttribute = bytecode.Code

// FieldInfo represents a field in a class file.
type FieldInfo struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Name            string
	Descriptor      string
	Attributes      []AttributeInfo
}

// MethodInfo represents a method in a class file.
type MethodInfo struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Name            string
	Descriptor      string
	Attributes      []AttributeInfo
	Code            *CodeAttribute

	codeAttr int // index of Code in Attributes, -1 if absent
	body     *bytecode.Body
	dirty    bool
}

// Body returns the editable instruction stream of the method, decoding it on
// first use. Edits are written back on serialization once MarkDirty is called.
func (m *MethodInfo) Body() (*bytecode.Body, error) {
	if m.body != nil {
		return m.body, nil
	}
	if m.Code == nil {
		return nil, fmt.Errorf("method %s%s has no Code attribute", m.Name, m.Descriptor)
	}
	b, err := bytecode.Decode(m.Code)
	if err != nil {
		return nil, fmt.Errorf("decoding %s%s: %w", m.Name, m.Descriptor, err)
	}
	m.body = b
	return b, nil
}

// MarkDirty flags the decoded body for re-encoding.
func (m *MethodInfo) MarkDirty() {
	if m.body != nil {
		m.dirty = true
	}
}

// Dirty reports whether the method body will be re-encoded.
func (m *MethodInfo) Dirty() bool {
	return m.dirty
}

// flush encodes a dirty body back into the Code attribute.
func (m *MethodInfo) flush() error {
	if !m.dirty {
		return nil
	}
	code, err := m.body.Encode()
	if err != nil {
		return fmt.Errorf("encoding %s%s: %w", m.Name, m.Descriptor, err)
	}
	m.Code = code
	m.Attributes[m.codeAttr].Data = code.Bytes()
	m.dirty = false
	return nil
}
