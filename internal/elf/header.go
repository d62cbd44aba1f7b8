package elf

import "github.com/xyproto/elfrpath/internal/xerrors"

// ObjectFileType is the e_type field.
type ObjectFileType uint16

const (
	TypeNone ObjectFileType = 0
	TypeRel  ObjectFileType = 1
	TypeExec ObjectFileType = 2
	TypeDyn  ObjectFileType = 3
	TypeCore ObjectFileType = 4
)

// FileHeader is the fixed part of the ELF header following the ident.
type FileHeader struct {
	Ident     Ident
	Type      ObjectFileType
	Machine   uint16
	Version   uint32
	Entry     uint64
	PhOff     uint64
	ShOff     uint64
	Flags     uint32
	EhSize    uint16
	PhEntSize uint16
	PhNum     uint16
	ShEntSize uint16
	ShNum     uint16
	ShStrNdx  uint16
}

func headerSize(class Class) int64 {
	if class == Class32 {
		return 52
	}
	return 64
}

func parseFileHeader(path string, b []byte) (FileHeader, codec, error) {
	ident, err := parseIdent(path, b)
	if err != nil {
		return FileHeader{}, codec{}, err
	}
	c := newCodec(ident.Class, ident.Data)
	size := headerSize(ident.Class)
	if int64(len(b)) < size {
		return FileHeader{}, c, &xerrors.InvalidImageError{Path: path, Reason: "file shorter than the ELF header"}
	}

	h := FileHeader{Ident: ident}
	h.Type = ObjectFileType(c.u16(b[16:18]))
	h.Machine = c.u16(b[18:20])
	h.Version = c.u32(b[20:24])

	if ident.Class == Class32 {
		h.Entry = uint64(c.u32(b[24:28]))
		h.PhOff = uint64(c.u32(b[28:32]))
		h.ShOff = uint64(c.u32(b[32:36]))
		h.Flags = c.u32(b[36:40])
		h.EhSize = c.u16(b[40:42])
		h.PhEntSize = c.u16(b[42:44])
		h.PhNum = c.u16(b[44:46])
		h.ShEntSize = c.u16(b[46:48])
		h.ShNum = c.u16(b[48:50])
		h.ShStrNdx = c.u16(b[50:52])
	} else {
		h.Entry = c.u64(b[24:32])
		h.PhOff = c.u64(b[32:40])
		h.ShOff = c.u64(b[40:48])
		h.Flags = c.u32(b[48:52])
		h.EhSize = c.u16(b[52:54])
		h.PhEntSize = c.u16(b[54:56])
		h.PhNum = c.u16(b[56:58])
		h.ShEntSize = c.u16(b[58:60])
		h.ShNum = c.u16(b[60:62])
		h.ShStrNdx = c.u16(b[62:64])
	}

	if h.Type != TypeExec && h.Type != TypeDyn {
		return h, c, &xerrors.UnsupportedImageError{Path: path, Reason: "only EXEC and DYN images are editable"}
	}

	return h, c, nil
}

func (h FileHeader) put(c codec, b []byte) {
	h.Ident.put(b[0:identSize])
	c.putU16(b[16:18], uint16(h.Type))
	c.putU16(b[18:20], h.Machine)
	c.putU32(b[20:24], h.Version)

	if h.Ident.Class == Class32 {
		c.putU32(b[24:28], uint32(h.Entry))
		c.putU32(b[28:32], uint32(h.PhOff))
		c.putU32(b[32:36], uint32(h.ShOff))
		c.putU32(b[36:40], h.Flags)
		c.putU16(b[40:42], h.EhSize)
		c.putU16(b[42:44], h.PhEntSize)
		c.putU16(b[44:46], h.PhNum)
		c.putU16(b[46:48], h.ShEntSize)
		c.putU16(b[48:50], h.ShNum)
		c.putU16(b[50:52], h.ShStrNdx)
		return
	}
	c.putU64(b[24:32], h.Entry)
	c.putU64(b[32:40], h.PhOff)
	c.putU64(b[40:48], h.ShOff)
	c.putU32(b[48:52], h.Flags)
	c.putU16(b[52:54], h.EhSize)
	c.putU16(b[54:56], h.PhEntSize)
	c.putU16(b[56:58], h.PhNum)
	c.putU16(b[58:60], h.ShEntSize)
	c.putU16(b[60:62], h.ShNum)
	c.putU16(b[62:64], h.ShStrNdx)
}

// seemsValid checks the header's share of the cheap structural
// invariants: phnum/shnum must match the table lengths actually held
// by the arena. The PT_DYNAMIC and segment-coverage checks live in
// File.seemsValid.
func (h FileHeader) seemsValid(phCount, shCount int) bool {
	return int(h.PhNum) == phCount && int(h.ShNum) == shCount
}
