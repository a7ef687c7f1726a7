package io

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cfoust/resforge/pkg/ids"
)

// Buffer is a big-endian byte buffer. Reads consume from the front, writes
// append to the end.
type Buffer []byte

var order = binary.BigEndian

func (p *Buffer) Read(n []byte) (int, error) {
	numRead := copy(n, *p)
	if numRead == 0 && len(n) > 0 {
		return 0, fmt.Errorf("buffer exhausted")
	}
	(*p) = (*p)[numRead:]
	return numRead, nil
}

func (p *Buffer) Get(pieces ...interface{}) error {
	for _, piece := range pieces {
		err := binary.Read(p, order, piece)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Buffer) Put(pieces ...interface{}) error {
	var buffer bytes.Buffer
	for _, piece := range pieces {
		err := binary.Write(&buffer, order, piece)
		if err != nil {
			return err
		}
	}
	*p = append(*p, buffer.Bytes()...)
	return nil
}

func (p *Buffer) Skip(n int) bool {
	if n < 0 || n > len(*p) {
		return false
	}
	(*p) = (*p)[n:]
	return true
}

func (p *Buffer) GetUint32() (uint32, bool) {
	if len(*p) < 4 {
		return 0, false
	}
	value := order.Uint32(*p)
	(*p) = (*p)[4:]
	return value, true
}

func (p *Buffer) GetUint64() (uint64, bool) {
	if len(*p) < 8 {
		return 0, false
	}
	value := order.Uint64(*p)
	(*p) = (*p)[8:]
	return value, true
}

func (p *Buffer) GetID(length ids.IDLength) (ids.AssetID, bool) {
	if length == ids.Length32 {
		value, ok := p.GetUint32()
		return ids.AssetID(value), ok
	}
	value, ok := p.GetUint64()
	return ids.AssetID(value), ok
}

func (p *Buffer) GetFourCC() (ids.FourCC, bool) {
	value, ok := p.GetUint32()
	return ids.FourCC(value), ok
}

func (p *Buffer) GetBytes(n int) ([]byte, bool) {
	if n < 0 || n > len(*p) {
		return nil, false
	}
	value := (*p)[:n]
	(*p) = (*p)[n:]
	return value, true
}

// GetString reads a string prefixed by its 32-bit length.
func (p *Buffer) GetString() (string, bool) {
	length, ok := p.GetUint32()
	if !ok {
		return "", false
	}
	value, ok := p.GetBytes(int(length))
	return string(value), ok
}

// GetCString reads a NUL-terminated string.
func (p *Buffer) GetCString() (string, bool) {
	end := bytes.IndexByte(*p, 0)
	if end == -1 {
		return "", false
	}
	value := string((*p)[:end])
	(*p) = (*p)[end+1:]
	return value, true
}

func (p *Buffer) PutUint32(value uint32) {
	*p = order.AppendUint32(*p, value)
}

func (p *Buffer) PutUint64(value uint64) {
	*p = order.AppendUint64(*p, value)
}

func (p *Buffer) PutID(id ids.AssetID, length ids.IDLength) {
	if length == ids.Length32 {
		p.PutUint32(uint32(id))
		return
	}
	p.PutUint64(uint64(id))
}

func (p *Buffer) PutFourCC(value ids.FourCC) {
	p.PutUint32(uint32(value))
}

func (p *Buffer) PutBytes(value []byte) {
	*p = append(*p, value...)
}

func (p *Buffer) PutString(value string) {
	p.PutUint32(uint32(len(value)))
	*p = append(*p, value...)
}

func (p *Buffer) PutCString(value string) {
	*p = append(*p, value...)
	*p = append(*p, 0)
}

// SetUint32 overwrites four bytes at an absolute offset. Used to fill in
// sizes and tables that are only known after the data is written.
func (p Buffer) SetUint32(offset int, value uint32) {
	order.PutUint32(p[offset:], value)
}

func (p Buffer) SetID(offset int, id ids.AssetID, length ids.IDLength) {
	if length == ids.Length32 {
		order.PutUint32(p[offset:], uint32(id))
		return
	}
	order.PutUint64(p[offset:], uint64(id))
}

// Pad appends zeroes until the length is a multiple of alignment.
func (p *Buffer) Pad(alignment int) {
	padded := Align(len(*p), alignment)
	for len(*p) < padded {
		*p = append(*p, 0)
	}
}

// Align rounds n up to the next multiple of alignment.
func Align(n int, alignment int) int {
	if alignment <= 1 {
		return n
	}
	return (n + alignment - 1) / alignment * alignment
}
