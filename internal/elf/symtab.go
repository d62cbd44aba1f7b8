package elf

// SymbolTableEntry is one fixed-size entry of a .symtab/.dynsym
// section: 16 bytes for Class32, 24 bytes for Class64.
type SymbolTableEntry struct {
	Name  uint32
	Info  byte
	Other byte
	Shndx uint16
	Value uint64
	Size  uint64
}

func symEntSize(class Class) int64 {
	if class == Class32 {
		return 16
	}
	return 24
}

func parseSymbolTableEntry(c codec, b []byte) SymbolTableEntry {
	var s SymbolTableEntry
	if c.class == Class32 {
		s.Name = c.u32(b[0:4])
		s.Value = uint64(c.u32(b[4:8]))
		s.Size = uint64(c.u32(b[8:12]))
		s.Info = b[12]
		s.Other = b[13]
		s.Shndx = c.u16(b[14:16])
		return s
	}
	s.Name = c.u32(b[0:4])
	s.Info = b[4]
	s.Other = b[5]
	s.Shndx = c.u16(b[6:8])
	s.Value = c.u64(b[8:16])
	s.Size = c.u64(b[16:24])
	return s
}

func (s SymbolTableEntry) put(c codec, b []byte) {
	if c.class == Class32 {
		c.putU32(b[0:4], s.Name)
		c.putU32(b[4:8], uint32(s.Value))
		c.putU32(b[8:12], uint32(s.Size))
		b[12] = s.Info
		b[13] = s.Other
		c.putU16(b[14:16], s.Shndx)
		return
	}
	c.putU32(b[0:4], s.Name)
	b[4] = s.Info
	b[5] = s.Other
	c.putU16(b[6:8], s.Shndx)
	c.putU64(b[8:16], s.Value)
	c.putU64(b[16:24], s.Size)
}

// isRelatedToSection reports whether this entry's shndx names an
// ordinary section header table slot, per the rule spec.md's symbol
// value-patching invariant depends on: shndx != SHN_UNDEF and shndx
// is below the reserved range.
func (s SymbolTableEntry) isRelatedToSection() bool {
	return s.Shndx != 0 && s.Shndx < SHNLoreserve
}

// PartialSymbolTable is a .symtab or .dynsym section: the entries this
// editor must patch when a section they reference moves, without
// needing to understand the rest of the symbol's semantics.
type PartialSymbolTable struct {
	Entries []SymbolTableEntry
}

func parseSymbolTable(c codec, b []byte) PartialSymbolTable {
	entSize := int(symEntSize(c.class))
	var st PartialSymbolTable
	for off := 0; off+entSize <= len(b); off += entSize {
		st.Entries = append(st.Entries, parseSymbolTableEntry(c, b[off:off+entSize]))
	}
	return st
}

func (st PartialSymbolTable) put(c codec, b []byte) {
	entSize := int(symEntSize(c.class))
	for i, e := range st.Entries {
		e.put(c, b[i*entSize:(i+1)*entSize])
	}
}

func (st PartialSymbolTable) byteCount(c codec) int64 {
	return int64(len(st.Entries)) * symEntSize(c.class)
}

// patchSectionMove rewrites every entry related to the section that
// used to sit at oldShndx, now moved to newVAddr: its Shndx becomes
// newShndx and its value shifts by the same delta applied to the
// section. A symbol at the section's base address (the "value ==
// section vaddr" convention _DYNAMIC and other section-defining
// symbols use) lands on the new base; one inside the section keeps
// its offset from the base.
func (st *PartialSymbolTable) patchSectionMove(oldShndx, newShndx uint16, oldVAddr, newVAddr uint64) {
	delta := int64(newVAddr) - int64(oldVAddr)
	for i := range st.Entries {
		e := &st.Entries[i]
		if !e.isRelatedToSection() || e.Shndx != oldShndx {
			continue
		}
		e.Shndx = newShndx
		e.Value = uint64(int64(e.Value) + delta)
	}
}

// remapShndx rewrites every entry's Shndx through a full section sort
// remap, leaving Value untouched (used once after
// sortSectionHeadersByFileOffset, before any section relocation).
func (st *PartialSymbolTable) remapShndx(m SectionIndexChangeMap) {
	for i := range st.Entries {
		e := &st.Entries[i]
		if e.isRelatedToSection() {
			e.Shndx = m.IndexForOldIndex(e.Shndx)
		}
	}
}
