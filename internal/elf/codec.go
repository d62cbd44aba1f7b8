// Package elf implements the System-V ELF file editor: a header and
// section arena that can be read from a mapped file, queried for
// dynamic-linking attributes, and structurally edited to change the
// embedded RUNPATH string while preserving a loadable image.
package elf

import "encoding/binary"

// Class is the ELF word size class, read from byte 4 of the ident.
type Class byte

const (
	ClassNone Class = 0
	Class32   Class = 1
	Class64   Class = 2
)

// Data is the byte order, read from byte 5 of the ident.
type Data byte

const (
	DataNone Data = 0
	Data2LSB Data = 1 // little-endian
	Data2MSB Data = 2 // big-endian
)

// codec bundles the byte order and word size needed to decode or
// encode every fixed-size structure in the file. It replaces the
// per-call-site Write2/Write4/Write8u helpers the teacher's ELF writer
// hand-rolls in elf_writer.go with one reusable, class-aware type.
type codec struct {
	order binary.ByteOrder
	class Class
}

func newCodec(class Class, data Data) codec {
	var order binary.ByteOrder = binary.LittleEndian
	if data == Data2MSB {
		order = binary.BigEndian
	}
	return codec{order: order, class: class}
}

func (c codec) u16(b []byte) uint16 { return c.order.Uint16(b) }
func (c codec) u32(b []byte) uint32 { return c.order.Uint32(b) }
func (c codec) u64(b []byte) uint64 { return c.order.Uint64(b) }

func (c codec) putU16(b []byte, v uint16) { c.order.PutUint16(b, v) }
func (c codec) putU32(b []byte, v uint32) { c.order.PutUint32(b, v) }
func (c codec) putU64(b []byte, v uint64) { c.order.PutUint64(b, v) }

// word reads a class-sized unsigned integer: 4 bytes for Class32, 8
// bytes for Class64. Used for the handful of fields (addresses,
// offsets, some dynamic tag values) whose width depends on class.
func (c codec) word(b []byte) uint64 {
	if c.class == Class32 {
		return uint64(c.u32(b))
	}
	return c.u64(b)
}

func (c codec) putWord(b []byte, v uint64) {
	if c.class == Class32 {
		c.putU32(b, uint32(v))
		return
	}
	c.putU64(b, v)
}

// wordSize returns 4 for Class32 and 8 for Class64.
func (c codec) wordSize() int64 {
	if c.class == Class32 {
		return 4
	}
	return 8
}
