package elf

// moveFirstCountSectionsToEnd relocates sections at table indices
// 1..count (the null section at 0 never moves) to the end of the
// file, in order. The first section actually moved uses NextPage
// alignment so the new trailing region starts on a page boundary;
// every section after that uses its own sh_addralign. Contiguous note
// sections are moved together as one group, matching
// moveNoteSectionsToEnd in the original FileAllHeaders.
func (f *File) moveFirstCountSectionsToEnd(count int, pageSize uint64) error {
	first := true
	i := 1
	for ; i <= count && i < len(f.SectionHeaders); i++ {
		if f.SectionHeaders[i].Type == SHTNote {
			moved, err := f.moveNoteGroupStartingAt(i, first, pageSize)
			if err != nil {
				return err
			}
			i += moved - 1
			first = false
			continue
		}

		mode := SectionAlignment
		if first {
			mode = NextPage
		}
		if err := f.moveSectionToEnd(i, mode); err != nil {
			return err
		}
		first = false
	}
	return nil
}

// moveSectionToEnd relocates the bytes of section idx to the file's
// current end and updates its header in place. Generic sections carry
// their existing bytes verbatim; the handful of typed sections this
// editor interprets are re-serialized from their current in-memory
// value instead, since their content may already have been edited
// this call (e.g. .dynstr).
func (f *File) moveSectionToEnd(idx int, mode MoveSectionAlignment) error {
	sh := &f.SectionHeaders[idx]
	align := sh.AddrAlign
	size := sh.Size

	var content []byte
	switch {
	case idx == f.idxDynStr:
		content = f.DynStr.Bytes()
		size = uint64(len(content))
	case idx == f.idxDynamic:
		content = make([]byte, f.Dynamic.byteCount(f.codec))
		f.Dynamic.put(f.codec, content)
		size = uint64(len(content))
	case idx == f.idxGnuHash:
		content = make([]byte, f.GnuHash.byteCount(f.codec.class))
		f.GnuHash.put(f.codec, content)
		size = uint64(len(content))
	case idx == f.idxSymTab:
		content = make([]byte, f.SymTab.byteCount(f.codec))
		f.SymTab.put(f.codec, content)
	case idx == f.idxDynSym:
		content = make([]byte, f.DynSym.byteCount(f.codec))
		f.DynSym.put(f.codec, content)
	default:
		if n := f.noteForHeaderIndex(idx); n != nil {
			content = append([]byte(nil), n.Raw...)
		} else {
			raw, err := f.slice(sh.Offset, sh.Size)
			if err != nil {
				return err
			}
			content = append([]byte(nil), raw...)
		}
	}

	oldOffset, oldVAddr := sh.Offset, sh.Addr
	newOffset, newVAddr := f.cursor.place(size, align, mode)
	f.appendBytes(newOffset, content)

	sh.Offset = newOffset
	sh.Addr = newVAddr
	sh.Size = size
	f.movedThisCall[idx] = true

	if n := f.noteForHeaderIndex(idx); n != nil {
		n.Header = *sh
	}
	if idx == f.idxInterp {
		f.recoverInterpSegment(*sh)
	}

	f.patchMovedSectionReferences(idx, uint16(idx), oldOffset, newOffset, oldVAddr, newVAddr)
	return nil
}

// recoverInterpSegment re-covers PT_INTERP after .interp has moved, so
// the segment names .interp's current location exactly (spec.md §4.6:
// "moving .interp also moves PT_INTERP and the segment size matches
// the section exactly").
func (f *File) recoverInterpSegment(sh SectionHeader) {
	for i := range f.ProgramHeaders {
		ph := &f.ProgramHeaders[i]
		if ph.Type != PTInterp {
			continue
		}
		ph.Offset = sh.Offset
		ph.VAddr = sh.Addr
		ph.PAddr = sh.Addr
		ph.FileSz = sh.Size
		ph.MemSz = sh.Size
	}
}

// moveNoteGroupStartingAt moves the contiguous run of note sections
// beginning at idx as one block, preserving their relative order (the
// original gaps between them are not kept; each lands at the next
// offset its own alignment allows), and returns how many sections it
// consumed.
func (f *File) moveNoteGroupStartingAt(idx int, first bool, pageSize uint64) (int, error) {
	start := idx
	end := idx
	for end < len(f.SectionHeaders) && f.SectionHeaders[end].Type == SHTNote {
		end++
	}

	mode := SectionAlignment
	if first {
		mode = NextPage
	}

	for i := start; i < end; i++ {
		m := mode
		if i > start {
			m = SectionAlignment
		}
		if err := f.moveSectionToEnd(i, m); err != nil {
			return 0, err
		}
	}
	f.recoverNoteSegment(start, end)
	return end - start, nil
}

// recoverNoteSegment resizes PT_NOTE to span the contiguous note
// sections [start, end) after moveNoteGroupStartingAt has relocated
// them, matching moveNoteSectionsToEnd in the original FileAllHeaders.
// Sections within a group can pick up small alignment gaps between
// each other, so the span is measured from the first section's new
// offset to the last section's new end rather than assumed contiguous;
// noteGroup.totalSize provides a floor in case that measurement ever
// undercounts.
func (f *File) recoverNoteSegment(start, end int) {
	if start >= end {
		return
	}
	var group noteGroup
	for i := start; i < end; i++ {
		if n := f.noteForHeaderIndex(i); n != nil {
			group.notes = append(group.notes, *n)
		}
	}

	first := f.SectionHeaders[start]
	last := f.SectionHeaders[end-1]
	span := last.endOffset() - first.Offset
	if floor := group.totalSize(); floor > span {
		span = floor
	}

	for i := range f.ProgramHeaders {
		ph := &f.ProgramHeaders[i]
		if ph.Type != PTNote {
			continue
		}
		ph.Offset = first.Offset
		ph.VAddr = first.Addr
		ph.PAddr = first.Addr
		ph.FileSz = span
		ph.MemSz = span
	}
}

// moveDynamicSectionToEnd relocates .dynamic if its current layout
// position would otherwise be left behind by the sections already
// moved (or if it simply needs to grow past its original slot).
// PT_DYNAMIC is moved in lock-step so the segment always names the
// section's current location.
func (f *File) moveDynamicSectionToEnd(pageSize uint64) error {
	if f.idxDynamic < 0 {
		return nil
	}
	sh := &f.SectionHeaders[f.idxDynamic]
	requiredSize := uint64(f.Dynamic.byteCount(f.codec))
	if requiredSize <= sh.Size && uint64(sh.Offset)+requiredSize <= uint64(len(f.buf)) && !f.sectionWasDisplaced(f.idxDynamic) {
		sh.Size = requiredSize
		f.Dynamic.put(f.codec, f.buf[sh.Offset:sh.Offset+requiredSize])
		return nil
	}

	if err := f.moveSectionToEnd(f.idxDynamic, SectionAlignment); err != nil {
		return err
	}
	for i := range f.ProgramHeaders {
		if f.ProgramHeaders[i].Type == PTDynamic {
			f.ProgramHeaders[i].Offset = sh.Offset
			f.ProgramHeaders[i].VAddr = sh.Addr
			f.ProgramHeaders[i].PAddr = sh.Addr
			f.ProgramHeaders[i].FileSz = sh.Size
			f.ProgramHeaders[i].MemSz = sh.Size
		}
	}
	return nil
}

// moveDynamicStringTableToEnd relocates .dynstr if it grew past its
// original size, patching DT_STRTAB to the section's new address.
func (f *File) moveDynamicStringTableToEnd(pageSize uint64) error {
	if f.idxDynStr < 0 {
		return nil
	}
	sh := &f.SectionHeaders[f.idxDynStr]
	requiredSize := uint64(f.DynStr.Size())
	if requiredSize <= sh.Size && !f.sectionWasDisplaced(f.idxDynStr) {
		sh.Size = requiredSize
		copy(f.buf[sh.Offset:], f.DynStr.Bytes())
		return nil
	}

	if err := f.moveSectionToEnd(f.idxDynStr, SectionAlignment); err != nil {
		return err
	}
	f.Dynamic.setValue(DTStrTab, sh.Addr)
	if f.idxDynamic >= 0 {
		dsh := &f.SectionHeaders[f.idxDynamic]
		f.Dynamic.put(f.codec, f.buf[dsh.Offset:dsh.Offset+dsh.Size])
	}
	return nil
}

// sectionWasDisplaced reports whether idx's section was already
// relocated earlier in the in-progress relayout.
func (f *File) sectionWasDisplaced(idx int) bool {
	return f.movedThisCall[idx]
}

// patchMovedSectionReferences updates every cross-reference that named
// the section by its old index, old file offset, or old virtual
// address: symbol table entries whose value pointed into the section,
// and GOT/GOT.PLT's first entry when it held the (moved) dynamic
// section's address.
func (f *File) patchMovedSectionReferences(oldIdx int, newIdx uint16, oldOffset, newOffset, oldVAddr, newVAddr uint64) {
	f.SymTab.patchSectionMove(uint16(oldIdx), newIdx, oldVAddr, newVAddr)
	f.DynSym.patchSectionMove(uint16(oldIdx), newIdx, oldVAddr, newVAddr)

	if oldIdx == f.idxDynamic {
		f.patchGotFirstEntry(f.idxGot, oldVAddr, newVAddr)
		f.patchGotFirstEntry(f.idxGotPlt, oldVAddr, newVAddr)
	}
	if oldIdx == f.idxGnuHash && f.Dynamic.has(DTGnuHash) {
		f.Dynamic.setValue(DTGnuHash, newVAddr)
		if f.idxDynamic >= 0 {
			dsh := &f.SectionHeaders[f.idxDynamic]
			f.Dynamic.put(f.codec, f.buf[dsh.Offset:dsh.Offset+dsh.Size])
		}
	}
}

// patchGotFirstEntry rewrites GOT/GOT.PLT's first word if it currently
// holds oldVAddr, the convention by which those sections point at the
// dynamic section.
func (f *File) patchGotFirstEntry(idx int, oldVAddr, newVAddr uint64) {
	if idx < 0 {
		return
	}
	sh := f.SectionHeaders[idx]
	if sh.Size < uint64(f.codec.wordSize()) {
		return
	}
	entry, err := f.slice(sh.Offset, uint64(f.codec.wordSize()))
	if err != nil {
		return
	}
	if f.codec.word(entry) == oldVAddr {
		f.codec.putWord(f.buf[sh.Offset:sh.Offset+uint64(f.codec.wordSize())], newVAddr)
	}
}

// tryMoveProgramHeaderTable relocates the program header table itself
// when no amount of moving leading sections can free room for a new
// entry. The relocated table's offset must equal its vaddr exactly,
// not merely modulo the page size — patchelf's BUGS file and PR #117
// document a glibc rtld.c crash when that exact equality is violated.
// That equality is only achievable for ET_DYN images, where p_vaddr is
// itself link-relative and a fresh, unused value can be chosen freely;
// ET_EXEC images (a fixed, non-zero load bias) cannot satisfy it, so
// this returns false for them and the caller reports MoveSectionError.
func (f *File) tryMoveProgramHeaderTable(pageSize uint64) bool {
	if f.Header.Type != TypeDyn || f.idxPhdr < 0 {
		return false
	}

	newOffset := alignUp(uint64(len(f.buf)), pageSize)
	size := uint64(len(f.ProgramHeaders)+1) * uint64(progHeaderEntSize(f.codec.class))
	f.buf = append(f.buf, make([]byte, int(newOffset)-len(f.buf)+int(size))...)

	f.ProgramHeaders[f.idxPhdr].Offset = newOffset
	f.ProgramHeaders[f.idxPhdr].VAddr = newOffset
	f.ProgramHeaders[f.idxPhdr].PAddr = newOffset
	f.ProgramHeaders[f.idxPhdr].FileSz = size
	f.ProgramHeaders[f.idxPhdr].MemSz = size
	f.Header.PhOff = newOffset
	return true
}

// appendLoadSegmentCoveringMovedRegion synthesizes one new PT_LOAD
// program header spanning everything relocated past the original
// end-of-file, and grows the program header table in place (the room
// freed by moveFirstCountSectionsToEnd).
func (f *File) appendLoadSegmentCoveringMovedRegion() {
	if f.cursor == nil {
		return
	}
	start := f.movedRegionStartOffset()
	if start >= uint64(f.cursor.offset) {
		return
	}

	startVAddr := start - f.cursor.offset + f.cursor.vaddr
	size := f.cursor.offset - start

	f.ProgramHeaders = append(f.ProgramHeaders, ProgramHeader{
		Type:   PTLoad,
		Flags:  PFRead | PFWrite,
		Offset: start,
		VAddr:  startVAddr,
		PAddr:  startVAddr,
		FileSz: size,
		MemSz:  size,
		Align:  pageSizeConst,
	})
	f.Header.PhNum = uint16(len(f.ProgramHeaders))
}

const pageSizeConst = 0x1000

// movedRegionStartOffset is the lowest file offset any section landed
// at during this relayout; everything from there to the current file
// end needs a covering PT_LOAD.
func (f *File) movedRegionStartOffset() uint64 {
	var min uint64
	found := false
	for _, sh := range f.SectionHeaders {
		if sh.Offset >= f.originalFileEnd {
			if !found || sh.Offset < min {
				min = sh.Offset
				found = true
			}
		}
	}
	if !found {
		return f.originalFileEnd
	}
	return min
}

