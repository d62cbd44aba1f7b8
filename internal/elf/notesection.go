package elf

// NoteSection is one ELF note (e.g. .note.gnu.build-id,
// .note.ABI-tag): a name, a type, and an opaque descriptor, preserved
// byte-for-byte by this editor. Only its placement (offset/vaddr)
// is ever rewritten.
type NoteSection struct {
	Header       SectionHeader
	HeaderIndex  int // index into the arena's section header table
	Raw          []byte
}

// noteGroup is a run of note sections that must be relocated together
// as a single contiguous block, matching moveNoteSectionsToEnd in the
// original FileAllHeaders: each subsequent note follows the previous
// one's end, after any padding its own alignment needs, and the
// PT_NOTE segment is re-covered to span the whole group afterward.
type noteGroup struct {
	notes []NoteSection
}

func (g noteGroup) totalSize() uint64 {
	var total uint64
	for _, n := range g.notes {
		total += n.Header.Size
	}
	return total
}

// noteForHeaderIndex returns the parsed NoteSection backed by section
// header table index idx, or nil if idx does not name a note section.
func (f *File) noteForHeaderIndex(idx int) *NoteSection {
	for i := range f.Notes {
		if f.Notes[i].HeaderIndex == idx {
			return &f.Notes[i]
		}
	}
	return nil
}
