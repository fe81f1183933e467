package classfile

import (
	"errors"
	"fmt"
)

// ErrConstantPoolFull is returned when an addition would push the constant
// pool past 65535 entries.
var ErrConstantPoolFull = errors.New("constant pool is full")

// add appends e and returns its index. Existing entries are never moved.
func (cf *ClassFile) add(e ConstantPoolEntry) (uint16, error) {
	if len(cf.ConstantPool) == 0 {
		cf.ConstantPool = []ConstantPoolEntry{nil}
	}
	slots := 1
	if e.Tag() == TagLong || e.Tag() == TagDouble {
		slots = 2
	}
	if len(cf.ConstantPool)+slots > maxPoolCount {
		return 0, fmt.Errorf("adding %T: %w", e, ErrConstantPoolFull)
	}
	idx := uint16(len(cf.ConstantPool))
	cf.ConstantPool = append(cf.ConstantPool, e)
	if slots == 2 {
		cf.ConstantPool = append(cf.ConstantPool, nil)
	}
	return idx, nil
}

// find returns the first index whose entry satisfies match.
func (cf *ClassFile) find(match func(ConstantPoolEntry) bool) (uint16, bool) {
	for i, e := range cf.ConstantPool {
		if e != nil && match(e) {
			return uint16(i), true
		}
	}
	return 0, false
}

// AddUtf8 returns the index of a Utf8 entry holding s, adding one if needed.
func (cf *ClassFile) AddUtf8(s string) (uint16, error) {
	if i, ok := cf.find(func(e ConstantPoolEntry) bool {
		u, ok := e.(*ConstantUtf8)
		return ok && u.Value == s
	}); ok {
		return i, nil
	}
	return cf.add(&ConstantUtf8{Value: s})
}

// AddClass returns the index of a Class entry for the internal name.
func (cf *ClassFile) AddClass(internalName string) (uint16, error) {
	name, err := cf.AddUtf8(internalName)
	if err != nil {
		return 0, err
	}
	if i, ok := cf.find(func(e ConstantPoolEntry) bool {
		c, ok := e.(*ConstantClass)
		return ok && c.NameIndex == name
	}); ok {
		return i, nil
	}
	return cf.add(&ConstantClass{NameIndex: name})
}

// AddNameAndType returns the index of a NameAndType entry.
func (cf *ClassFile) AddNameAndType(name, descriptor string) (uint16, error) {
	n, err := cf.AddUtf8(name)
	if err != nil {
		return 0, err
	}
	d, err := cf.AddUtf8(descriptor)
	if err != nil {
		return 0, err
	}
	if i, ok := cf.find(func(e ConstantPoolEntry) bool {
		nat, ok := e.(*ConstantNameAndType)
		return ok && nat.NameIndex == n && nat.DescriptorIndex == d
	}); ok {
		return i, nil
	}
	return cf.add(&ConstantNameAndType{NameIndex: n, DescriptorIndex: d})
}

// AddMethodref returns the index of a Methodref entry for owner.name desc.
func (cf *ClassFile) AddMethodref(owner, name, descriptor string) (uint16, error) {
	class, err := cf.AddClass(owner)
	if err != nil {
		return 0, err
	}
	nat, err := cf.AddNameAndType(name, descriptor)
	if err != nil {
		return 0, err
	}
	if i, ok := cf.find(func(e ConstantPoolEntry) bool {
		m, ok := e.(*ConstantMethodref)
		return ok && m.ClassIndex == class && m.NameAndTypeIndex == nat
	}); ok {
		return i, nil
	}
	return cf.add(&ConstantMethodref{ClassIndex: class, NameAndTypeIndex: nat})
}

// AddString returns the index of a String entry holding s.
func (cf *ClassFile) AddString(s string) (uint16, error) {
	u, err := cf.AddUtf8(s)
	if err != nil {
		return 0, err
	}
	if i, ok := cf.find(func(e ConstantPoolEntry) bool {
		c, ok := e.(*ConstantString)
		return ok && c.StringIndex == u
	}); ok {
		return i, nil
	}
	return cf.add(&ConstantString{StringIndex: u})
}

// NewClass returns an empty public class named internalName extending
// superName.
func NewClass(internalName, superName string, major uint16) (*ClassFile, error) {
	cf := &ClassFile{MajorVersion: major, AccessFlags: AccPublic | AccSuper}
	var err error
	if cf.ThisClass, err = cf.AddClass(internalName); err != nil {
		return nil, err
	}
	if cf.SuperClass, err = cf.AddClass(superName); err != nil {
		return nil, err
	}
	return cf, nil
}

// AddMethod appends a method. A nil code adds no Code attribute, as for
// abstract and native methods.
func (cf *ClassFile) AddMethod(flags uint16, name, descriptor string, code *CodeAttribute) (*MethodInfo, error) {
	n, err := cf.AddUtf8(name)
	if err != nil {
		return nil, err
	}
	d, err := cf.AddUtf8(descriptor)
	if err != nil {
		return nil, err
	}
	m := MethodInfo{
		AccessFlags:     flags,
		NameIndex:       n,
		DescriptorIndex: d,
		Name:            name,
		Descriptor:      descriptor,
		codeAttr:        -1,
	}
	if code != nil {
		attr, err := cf.AddUtf8("Code")
		if err != nil {
			return nil, err
		}
		m.Code = code
		m.codeAttr = 0
		m.Attributes = []AttributeInfo{{NameIndex: attr, Name: "Code", Data: code.Bytes()}}
	}
	cf.Methods = append(cf.Methods, m)
	return &cf.Methods[len(cf.Methods)-1], nil
}
