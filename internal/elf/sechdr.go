package elf

// SectionType is the sh_type field.
type SectionType uint32

const (
	SHTNull     SectionType = 0
	SHTProgBits SectionType = 1
	SHTSymTab   SectionType = 2
	SHTStrTab   SectionType = 3
	SHTRela     SectionType = 4
	SHTHash     SectionType = 5
	SHTDynamic  SectionType = 6
	SHTNote     SectionType = 7
	SHTNoBits   SectionType = 8
	SHTRel      SectionType = 9
	SHTShLib    SectionType = 10
	SHTDynSym   SectionType = 11
	SHTInitArray SectionType = 14
	SHTFiniArray SectionType = 15
	SHTGnuHash  SectionType = 0x6ffffff6
	SHTGnuVerDef SectionType = 0x6ffffffd
	SHTGnuVerNeed SectionType = 0x6ffffffe
	SHTGnuVerSym SectionType = 0x6fffffff
)

// Section flags (sh_flags), the bits this editor cares about.
const (
	SHFWrite uint64 = 0x1
	SHFAlloc uint64 = 0x2
)

// SHNLoreserve is the first reserved special section index; symbol
// shndx values at or above this are not ordinary section references.
const SHNLoreserve uint16 = 0xff00

// SectionHeader is one entry of the section header table. It does not
// record its own index; after a sort, the SectionIndexChangeMap says
// where each entry went.
type SectionHeader struct {
	Name      uint32 // offset into the section name string table
	NameStr   string // resolved name, populated by the arena after parse
	Type      SectionType
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntSize   uint64
}

func secHeaderEntSize(class Class) int64 {
	if class == Class32 {
		return 40
	}
	return 64
}

func parseSectionHeader(c codec, b []byte) SectionHeader {
	var s SectionHeader
	if c.class == Class32 {
		s.Name = c.u32(b[0:4])
		s.Type = SectionType(c.u32(b[4:8]))
		s.Flags = uint64(c.u32(b[8:12]))
		s.Addr = uint64(c.u32(b[12:16]))
		s.Offset = uint64(c.u32(b[16:20]))
		s.Size = uint64(c.u32(b[20:24]))
		s.Link = c.u32(b[24:28])
		s.Info = c.u32(b[28:32])
		s.AddrAlign = uint64(c.u32(b[32:36]))
		s.EntSize = uint64(c.u32(b[36:40]))
		return s
	}
	s.Name = c.u32(b[0:4])
	s.Type = SectionType(c.u32(b[4:8]))
	s.Flags = c.u64(b[8:16])
	s.Addr = c.u64(b[16:24])
	s.Offset = c.u64(b[24:32])
	s.Size = c.u64(b[32:40])
	s.Link = c.u32(b[40:44])
	s.Info = c.u32(b[44:48])
	s.AddrAlign = c.u64(b[48:56])
	s.EntSize = c.u64(b[56:64])
	return s
}

func (s SectionHeader) put(c codec, b []byte) {
	if c.class == Class32 {
		c.putU32(b[0:4], s.Name)
		c.putU32(b[4:8], uint32(s.Type))
		c.putU32(b[8:12], uint32(s.Flags))
		c.putU32(b[12:16], uint32(s.Addr))
		c.putU32(b[16:20], uint32(s.Offset))
		c.putU32(b[20:24], uint32(s.Size))
		c.putU32(b[24:28], s.Link)
		c.putU32(b[28:32], s.Info)
		c.putU32(b[32:36], uint32(s.AddrAlign))
		c.putU32(b[36:40], uint32(s.EntSize))
		return
	}
	c.putU32(b[0:4], s.Name)
	c.putU32(b[4:8], uint32(s.Type))
	c.putU64(b[8:16], s.Flags)
	c.putU64(b[16:24], s.Addr)
	c.putU64(b[24:32], s.Offset)
	c.putU64(b[32:40], s.Size)
	c.putU32(b[40:44], s.Link)
	c.putU32(b[44:48], s.Info)
	c.putU64(b[48:56], s.AddrAlign)
	c.putU64(b[56:64], s.EntSize)
}

// linkIsSectionIndex reports whether sh_link holds a section header
// table index for this section's type, so the layout sort knows to
// remap it.
func (s SectionHeader) linkIsSectionIndex() bool {
	switch s.Type {
	case SHTDynamic, SHTHash, SHTGnuHash, SHTSymTab, SHTDynSym, SHTRel, SHTRela, SHTGnuVerDef, SHTGnuVerNeed, SHTGnuVerSym:
		return true
	default:
		return false
	}
}

// infoIsSectionIndex reports whether sh_info holds a section header
// table index for this section's type (true only for relocation
// sections, whose sh_info names the section being relocated).
func (s SectionHeader) infoIsSectionIndex() bool {
	return s.Type == SHTRel || s.Type == SHTRela
}

func (s SectionHeader) endOffset() uint64 { return s.Offset + s.Size }
