package elf

// SegmentType is the p_type field.
type SegmentType uint32

const (
	PTNull         SegmentType = 0
	PTLoad         SegmentType = 1
	PTDynamic      SegmentType = 2
	PTInterp       SegmentType = 3
	PTNote         SegmentType = 4
	PTShLib        SegmentType = 5
	PTPhdr         SegmentType = 6
	PTTLS          SegmentType = 7
	PTGnuEhFrame   SegmentType = 0x6474e550
	PTGnuStack     SegmentType = 0x6474e551
	PTGnuRelRo     SegmentType = 0x6474e552
)

// Segment flags (p_flags).
const (
	PFExec  uint32 = 1
	PFWrite uint32 = 2
	PFRead  uint32 = 4
)

// ProgramHeader is one entry of the program header table.
type ProgramHeader struct {
	Type   SegmentType
	Flags  uint32
	Offset uint64
	VAddr  uint64
	PAddr  uint64
	FileSz uint64
	MemSz  uint64
	Align  uint64
}

func progHeaderEntSize(class Class) int64 {
	if class == Class32 {
		return 32
	}
	return 56
}

func parseProgramHeader(c codec, b []byte) ProgramHeader {
	var p ProgramHeader
	if c.class == Class32 {
		p.Type = SegmentType(c.u32(b[0:4]))
		p.Offset = uint64(c.u32(b[4:8]))
		p.VAddr = uint64(c.u32(b[8:12]))
		p.PAddr = uint64(c.u32(b[12:16]))
		p.FileSz = uint64(c.u32(b[16:20]))
		p.MemSz = uint64(c.u32(b[20:24]))
		p.Flags = c.u32(b[24:28])
		p.Align = uint64(c.u32(b[28:32]))
		return p
	}
	p.Type = SegmentType(c.u32(b[0:4]))
	p.Flags = c.u32(b[4:8])
	p.Offset = c.u64(b[8:16])
	p.VAddr = c.u64(b[16:24])
	p.PAddr = c.u64(b[24:32])
	p.FileSz = c.u64(b[32:40])
	p.MemSz = c.u64(b[40:48])
	p.Align = c.u64(b[48:56])
	return p
}

func (p ProgramHeader) put(c codec, b []byte) {
	if c.class == Class32 {
		c.putU32(b[0:4], uint32(p.Type))
		c.putU32(b[4:8], uint32(p.Offset))
		c.putU32(b[8:12], uint32(p.VAddr))
		c.putU32(b[12:16], uint32(p.PAddr))
		c.putU32(b[16:20], uint32(p.FileSz))
		c.putU32(b[20:24], uint32(p.MemSz))
		c.putU32(b[24:28], p.Flags)
		c.putU32(b[28:32], uint32(p.Align))
		return
	}
	c.putU32(b[0:4], uint32(p.Type))
	c.putU32(b[4:8], p.Flags)
	c.putU64(b[8:16], p.Offset)
	c.putU64(b[16:24], p.VAddr)
	c.putU64(b[24:32], p.PAddr)
	c.putU64(b[32:40], p.FileSz)
	c.putU64(b[40:48], p.MemSz)
	c.putU64(b[48:56], p.Align)
}

// containsOffset reports whether the segment's file range includes
// off.
func (p ProgramHeader) containsOffset(off uint64) bool {
	return off >= p.Offset && off < p.Offset+p.FileSz
}

// endOffset is the first file offset past this segment.
func (p ProgramHeader) endOffset() uint64 { return p.Offset + p.FileSz }
