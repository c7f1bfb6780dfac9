package classfile

import (
	"encoding/binary"
	"fmt"
)

// reader is a big-endian cursor over class file bytes.
type reader struct {
	data []byte
	off  int
}

func (r *reader) need(n int) error {
	if n < 0 || len(r.data)-r.off < n {
		return fmt.Errorf("%w: need %d bytes at offset %d", ErrTruncated, n, r.off)
	}
	return nil
}

func (r *reader) u1() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *reader) u2() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) u4() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}
