// Package classfile reads the parts of a JVM class file needed to list its
// methods: the constant pool, the class header and the method table.
package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/korniloval/fierix/pkg/descriptor"
)

// Magic is the first four bytes of every class file.
const Magic uint32 = 0xCAFEBABE

// Errors returned by Parse. Callers match them with errors.Is.
var (
	ErrNotClassFile = errors.New("not a class file")
	ErrTruncated    = errors.New("truncated class file")
	ErrMalformed    = errors.New("malformed class file")
)

// Access flags shared by classes and methods.
const (
	AccPublic       uint16 = 0x0001
	AccPrivate      uint16 = 0x0002
	AccProtected    uint16 = 0x0004
	AccStatic       uint16 = 0x0008
	AccFinal        uint16 = 0x0010
	AccSynchronized uint16 = 0x0020
	AccBridge       uint16 = 0x0040
	AccVarargs      uint16 = 0x0080
	AccNative       uint16 = 0x0100
	AccInterface    uint16 = 0x0200
	AccAbstract     uint16 = 0x0400
	AccSynthetic    uint16 = 0x1000
	AccAnnotation   uint16 = 0x2000
	AccEnum         uint16 = 0x4000
	AccModule       uint16 = 0x8000
)

// Class is a parsed class file. Names are in internal form (java/lang/String).
type Class struct {
	MinorVersion uint16
	MajorVersion uint16
	AccessFlags  uint16
	Name         string
	SuperName    string // empty for java/lang/Object and module-info
	Interfaces   []string
	Methods      []Method
}

// Method is one entry of the method table.
type Method struct {
	Name        string
	Descriptor  string
	AccessFlags uint16
}

// QualifiedName returns the class name in dotted form.
func (c *Class) QualifiedName() string {
	return descriptor.QualifiedName(c.Name)
}

// IsInterface reports whether the class is an interface or annotation.
func (c *Class) IsInterface() bool {
	return c.AccessFlags&AccInterface != 0
}

// IsModule reports whether the file is a module-info descriptor.
func (c *Class) IsModule() bool {
	return c.AccessFlags&AccModule != 0
}

// IsSynthetic reports whether the compiler generated the method.
func (m Method) IsSynthetic() bool {
	return m.AccessFlags&(AccSynthetic|AccBridge) != 0
}

// IsAbstract reports whether the method has no body.
func (m Method) IsAbstract() bool {
	return m.AccessFlags&(AccAbstract|AccNative) != 0
}

// IsConstructor reports whether the method is an instance initializer.
func (m Method) IsConstructor() bool {
	return m.Name == "<init>"
}

// IsStaticInitializer reports whether the method is the class initializer.
func (m Method) IsStaticInitializer() bool {
	return m.Name == "<clinit>"
}

// IsClassFile reports whether data starts with the class file magic.
func IsClassFile(data []byte) bool {
	return len(data) >= 4 && binary.BigEndian.Uint32(data) == Magic
}

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type constant struct {
	tag   byte
	utf8  string
	index uint16 // name index of Class entries
}

// Parse reads a class file. Field and attribute contents are skipped.
func Parse(data []byte) (*Class, error) {
	r := &reader{data: data}

	magic, err := r.u4()
	if err != nil || magic != Magic {
		return nil, ErrNotClassFile
	}

	c := &Class{}
	if c.MinorVersion, err = r.u2(); err != nil {
		return nil, err
	}
	if c.MajorVersion, err = r.u2(); err != nil {
		return nil, err
	}

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}

	if c.AccessFlags, err = r.u2(); err != nil {
		return nil, err
	}

	thisIndex, err := r.u2()
	if err != nil {
		return nil, err
	}
	if c.Name, err = pool.className(thisIndex); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}

	superIndex, err := r.u2()
	if err != nil {
		return nil, err
	}
	if superIndex != 0 {
		if c.SuperName, err = pool.className(superIndex); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}

	interfaceCount, err := r.u2()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(interfaceCount); i++ {
		idx, err := r.u2()
		if err != nil {
			return nil, err
		}
		name, err := pool.className(idx)
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", i, err)
		}
		c.Interfaces = append(c.Interfaces, name)
	}

	// fields share the method layout
	if _, err := readMembers(r, pool); err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}

	if c.Methods, err = readMembers(r, pool); err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}

	return c, nil
}

type constantPool []constant

func readConstantPool(r *reader) (constantPool, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}

	// entry 0 is unused; long and double take two slots
	pool := make(constantPool, count)
	for i := 1; i < int(count); i++ {
		tag, err := r.u1()
		if err != nil {
			return nil, err
		}
		pool[i].tag = tag

		switch tag {
		case tagUtf8:
			length, err := r.u2()
			if err != nil {
				return nil, err
			}
			b, err := r.bytes(int(length))
			if err != nil {
				return nil, err
			}
			pool[i].utf8 = string(b)
		case tagClass, tagModule, tagPackage:
			if pool[i].index, err = r.u2(); err != nil {
				return nil, err
			}
		case tagString, tagMethodType:
			err = r.skip(2)
		case tagMethodHandle:
			err = r.skip(3)
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref,
			tagNameAndType, tagDynamic, tagInvokeDynamic:
			err = r.skip(4)
		case tagLong, tagDouble:
			err = r.skip(8)
			i++
		default:
			return nil, fmt.Errorf("%w: unknown constant pool tag %d at entry %d", ErrMalformed, tag, i)
		}
		if err != nil {
			return nil, err
		}
	}
	return pool, nil
}

func (p constantPool) utf8(index uint16) (string, error) {
	if int(index) <= 0 || int(index) >= len(p) || p[index].tag != tagUtf8 {
		return "", fmt.Errorf("%w: constant %d is not a UTF8 entry", ErrMalformed, index)
	}
	return p[index].utf8, nil
}

func (p constantPool) className(index uint16) (string, error) {
	if int(index) <= 0 || int(index) >= len(p) || p[index].tag != tagClass {
		return "", fmt.Errorf("%w: constant %d is not a class entry", ErrMalformed, index)
	}
	return p.utf8(p[index].index)
}

func readMembers(r *reader, pool constantPool) ([]Method, error) {
	count, err := r.u2()
	if err != nil {
		return nil, err
	}

	members := make([]Method, 0, count)
	for i := 0; i < int(count); i++ {
		var m Method
		if m.AccessFlags, err = r.u2(); err != nil {
			return nil, err
		}
		nameIndex, err := r.u2()
		if err != nil {
			return nil, err
		}
		descIndex, err := r.u2()
		if err != nil {
			return nil, err
		}
		if m.Name, err = pool.utf8(nameIndex); err != nil {
			return nil, err
		}
		if m.Descriptor, err = pool.utf8(descIndex); err != nil {
			return nil, err
		}
		if err := skipAttributes(r); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func skipAttributes(r *reader) error {
	count, err := r.u2()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if err := r.skip(2); err != nil {
			return err
		}
		length, err := r.u4()
		if err != nil {
			return err
		}
		if err := r.skip(int(length)); err != nil {
			return err
		}
	}
	return nil
}
