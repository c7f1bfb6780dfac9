package classfile

import (
	"encoding/binary"
)

// Bytes encodes c as a minimal class file: a constant pool holding only the
// names it needs, no fields, and methods without attributes. Parse(c.Bytes())
// yields an equal Class.
func (c *Class) Bytes() []byte {
	w := &writer{utf8Index: map[string]uint16{}, classIndex: map[string]uint16{}}

	thisIndex := w.class(c.Name)
	var superIndex uint16
	if c.SuperName != "" {
		superIndex = w.class(c.SuperName)
	}
	interfaces := make([]uint16, len(c.Interfaces))
	for i, name := range c.Interfaces {
		interfaces[i] = w.class(name)
	}
	type member struct{ flags, name, desc uint16 }
	methods := make([]member, len(c.Methods))
	for i, m := range c.Methods {
		methods[i] = member{m.AccessFlags, w.utf8(m.Name), w.utf8(m.Descriptor)}
	}

	out := binary.BigEndian.AppendUint32(nil, Magic)
	out = binary.BigEndian.AppendUint16(out, c.MinorVersion)
	out = binary.BigEndian.AppendUint16(out, c.MajorVersion)
	out = binary.BigEndian.AppendUint16(out, uint16(w.count+1))
	out = append(out, w.pool...)
	out = binary.BigEndian.AppendUint16(out, c.AccessFlags)
	out = binary.BigEndian.AppendUint16(out, thisIndex)
	out = binary.BigEndian.AppendUint16(out, superIndex)
	out = binary.BigEndian.AppendUint16(out, uint16(len(interfaces)))
	for _, idx := range interfaces {
		out = binary.BigEndian.AppendUint16(out, idx)
	}
	out = binary.BigEndian.AppendUint16(out, 0) // fields
	out = binary.BigEndian.AppendUint16(out, uint16(len(methods)))
	for _, m := range methods {
		out = binary.BigEndian.AppendUint16(out, m.flags)
		out = binary.BigEndian.AppendUint16(out, m.name)
		out = binary.BigEndian.AppendUint16(out, m.desc)
		out = binary.BigEndian.AppendUint16(out, 0) // attributes
	}
	out = binary.BigEndian.AppendUint16(out, 0) // class attributes
	return out
}

type writer struct {
	pool       []byte
	count      int
	utf8Index  map[string]uint16
	classIndex map[string]uint16
}

func (w *writer) utf8(s string) uint16 {
	if idx, ok := w.utf8Index[s]; ok {
		return idx
	}
	w.pool = append(w.pool, tagUtf8)
	w.pool = binary.BigEndian.AppendUint16(w.pool, uint16(len(s)))
	w.pool = append(w.pool, s...)
	w.count++
	w.utf8Index[s] = uint16(w.count)
	return uint16(w.count)
}

func (w *writer) class(name string) uint16 {
	if idx, ok := w.classIndex[name]; ok {
		return idx
	}
	nameIndex := w.utf8(name)
	w.pool = append(w.pool, tagClass)
	w.pool = binary.BigEndian.AppendUint16(w.pool, nameIndex)
	w.count++
	w.classIndex[name] = uint16(w.count)
	return uint16(w.count)
}
