package elf

import (
	"github.com/xyproto/elfrpath/internal/xerrors"
)

// placementCursor tracks where the next relocated section's bytes land
// in both file-offset space and virtual-address space. Every section
// appended through one cursor keeps the same offset-to-vaddr delta the
// cursor started with, so once that delta is page-aligned (the
// NextPage-aligned first placement), every later SectionAlignment
// placement through the same cursor stays congruent too — the
// invariant a trailing PT_LOAD needs to cover the whole group with one
// segment.
type placementCursor struct {
	offset uint64
	vaddr  uint64
}

func (f *File) newPlacementCursor(pageSize uint64) placementCursor {
	offset := alignUp(uint64(len(f.buf)), pageSize)
	vaddr := alignUp(f.globalVAddrEnd(), pageSize)
	return placementCursor{offset: offset, vaddr: vaddr}
}

func (c *placementCursor) place(size uint64, align uint64, mode MoveSectionAlignment) (offset, vaddr uint64) {
	if mode == NextPage {
		align = maxU64(align, 1)
	}
	if align == 0 {
		align = 1
	}
	c.offset = alignUp(c.offset, align)
	c.vaddr = alignUp(c.vaddr, align)
	offset, vaddr = c.offset, c.vaddr
	c.offset += size
	c.vaddr += size
	return offset, vaddr
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// globalVAddrEnd is the highest vaddr+memsz over every program header,
// the point past which new virtual address space is free to use.
func (f *File) globalVAddrEnd() uint64 {
	var end uint64
	for _, ph := range f.ProgramHeaders {
		if e := ph.VAddr + ph.MemSz; e > end {
			end = e
		}
	}
	return end
}

// appendBytes grows buf to hold content at the given offset, zero
// padding any gap, and copies content there.
func (f *File) appendBytes(offset uint64, content []byte) {
	need := int(offset) + len(content)
	if need > len(f.buf) {
		f.buf = append(f.buf, make([]byte, need-len(f.buf))...)
	}
	copy(f.buf[offset:], content)
}

// GetRunPath returns the current DT_RUNPATH value, falling back to the
// legacy DT_RPATH if no DT_RUNPATH entry exists, or "" if neither is
// present.
func (f *File) GetRunPath() string {
	if off, ok := f.Dynamic.value(DTRunPath); ok {
		return f.DynStr.String(uint32(off))
	}
	if off, ok := f.Dynamic.value(DTRPath); ok {
		return f.DynStr.String(uint32(off))
	}
	return ""
}

// GetSoName returns the DT_SONAME value, or "" if absent.
func (f *File) GetSoName() string {
	if off, ok := f.Dynamic.value(DTSoName); ok {
		return f.DynStr.String(uint32(off))
	}
	return ""
}

// GetNeededSharedLibraries returns the DT_NEEDED library names, in the
// order they appear in the dynamic section.
func (f *File) GetNeededSharedLibraries() []string {
	var names []string
	for _, off := range f.Dynamic.neededValues() {
		names = append(names, f.DynStr.String(uint32(off)))
	}
	return names
}

// IsExecutableOrSharedLibrary reports whether this image is an EXEC or
// DYN object (REL, CORE and unknown types are not editable here).
func (f *File) IsExecutableOrSharedLibrary() bool {
	return f.Header.Type == TypeExec || f.Header.Type == TypeDyn
}

// ContainsDebugSymbols does the rudimentary check spec.md promises: a
// non-stripped .symtab (as opposed to only .dynsym), or the presence
// of a .debug_info section.
func (f *File) ContainsDebugSymbols() bool {
	if f.idxSymTab >= 0 {
		return true
	}
	for _, sh := range f.SectionHeaders {
		if sh.NameStr == ".debug_info" {
			return true
		}
	}
	return false
}

// runpathTag returns whichever of DT_RUNPATH/DT_RPATH is already
// present, preferring DT_RUNPATH, or DT_RUNPATH if neither exists yet
// (new RUNPATH entries are always written as the modern tag).
func (f *File) runpathTag() DynamicTag {
	if f.Dynamic.has(DTRunPath) {
		return DTRunPath
	}
	if f.Dynamic.has(DTRPath) {
		return DTRPath
	}
	return DTRunPath
}

// SetRunPath changes the embedded RUNPATH to newPath, relaying out the
// file if the new string does not fit in the existing .dynstr pool.
// This is the central algorithm of the whole repository, grounded on
// FileWriterFile::setRunPath: apply the string edit, recompute sizes,
// and if nothing grew, stop there (shrinking never forces a move).
// Otherwise: sort sections by file offset, find how many sections must
// move to free one program-header-entry's worth of space right after
// the (unmoved) program header table, move those sections plus
// .dynamic and .dynstr to the end of the file, patch every
// cross-reference the move invalidated, and append a new PT_LOAD
// segment covering everything that moved.
func (f *File) SetRunPath(pageSize uint64, newPath string) error {
	if !f.HasDynamicSection() {
		return &xerrors.UnsupportedImageError{Path: f.Path, Reason: "image has no dynamic section"}
	}

	if newPath == "" {
		return f.clearRunPath()
	}

	tag := f.runpathTag()
	oldDynStrSize := f.DynStr.Size()
	oldDynamicSize := f.Dynamic.byteCount(f.codec)

	if off, ok := f.Dynamic.value(tag); ok {
		f.DynStr.Replace(uint32(off), newPath)
	} else {
		off := f.DynStr.Append(newPath)
		f.Dynamic.insertBeforeNull(DynamicEntry{Tag: tag, Val: uint64(off)})
	}
	f.Dynamic.setValue(DTStrSz, uint64(f.DynStr.Size()))

	newDynStrSize := f.DynStr.Size()
	newDynamicSize := f.Dynamic.byteCount(f.codec)

	dynStrGrew := newDynStrSize > oldDynStrSize
	dynamicGrew := newDynamicSize > oldDynamicSize

	if !dynStrGrew && !dynamicGrew {
		f.rewriteDynStrInPlace()
		f.rewriteDynamicInPlace()
		f.serializeHeaders()
		return f.validateAfterEdit()
	}

	return f.relayoutForGrowth(pageSize)
}

// clearRunPath removes the DT_RUNPATH entry, if one exists, leaving
// DT_RPATH untouched. A bare RUNPATH clear never grows either section,
// so it always rewrites in place (spec.md §4.4: "leaving RPath alone
// if any").
func (f *File) clearRunPath() error {
	if !f.Dynamic.has(DTRunPath) {
		return f.validateAfterEdit()
	}
	f.Dynamic.removeEntry(DTRunPath)
	f.Dynamic.setValue(DTStrSz, uint64(f.DynStr.Size()))
	f.rewriteDynamicInPlace()
	f.serializeHeaders()
	return f.validateAfterEdit()
}

// validateAfterEdit enforces spec.md §7's all-or-nothing write rule:
// every mutation is followed by a structural check, and a failure is
// fatal rather than letting an inconsistent image reach Bytes.
func (f *File) validateAfterEdit() error {
	if !f.seemsValid() {
		return &xerrors.InvalidImageError{Path: f.Path, Reason: "edited image failed structural validation"}
	}
	return nil
}

// Bytes returns the current in-memory image, reflecting every edit
// applied so far. Callers write this back to the target file.
func (f *File) Bytes() []byte { return f.buf }

// serializeHeaders writes the file header, program header table and
// section header table back into buf at their current offsets. The
// section header table is assumed to sit at the tail of the file
// (true of every binary produced by a standard linker, and never
// itself one of the sections this editor relocates), so it is always
// rewritten in place rather than moved.
func (f *File) serializeHeaders() {
	phEntSize := uint64(progHeaderEntSize(f.codec.class))
	f.growTo(f.Header.PhOff + uint64(len(f.ProgramHeaders))*phEntSize)
	for i, ph := range f.ProgramHeaders {
		ph.put(f.codec, f.buf[f.Header.PhOff+uint64(i)*phEntSize:f.Header.PhOff+uint64(i+1)*phEntSize])
	}

	shEntSize := uint64(secHeaderEntSize(f.codec.class))
	f.growTo(f.Header.ShOff + uint64(len(f.SectionHeaders))*shEntSize)
	for i, sh := range f.SectionHeaders {
		sh.put(f.codec, f.buf[f.Header.ShOff+uint64(i)*shEntSize:f.Header.ShOff+uint64(i+1)*shEntSize])
	}

	f.Header.PhNum = uint16(len(f.ProgramHeaders))
	f.Header.ShNum = uint16(len(f.SectionHeaders))

	hdrBuf := make([]byte, headerSize(f.codec.class))
	f.Header.put(f.codec, hdrBuf)
	copy(f.buf, hdrBuf)
}

func (f *File) growTo(size uint64) {
	if size > uint64(len(f.buf)) {
		f.buf = append(f.buf, make([]byte, size-uint64(len(f.buf)))...)
	}
}

// rewriteDynStrInPlace rewrites .dynstr's bytes at its current offset;
// valid only when the pool did not grow past its old size.
func (f *File) rewriteDynStrInPlace() {
	sh := &f.SectionHeaders[f.idxDynStr]
	sh.Size = uint64(f.DynStr.Size())
	copy(f.buf[sh.Offset:], f.DynStr.Bytes())
}

func (f *File) rewriteDynamicInPlace() {
	sh := &f.SectionHeaders[f.idxDynamic]
	sh.Size = uint64(f.Dynamic.byteCount(f.codec))
	f.Dynamic.put(f.codec, f.buf[sh.Offset:sh.Offset+sh.Size])
}

// relayoutForGrowth performs the full move-and-patch sequence needed
// when .dynstr and/or .dynamic grew past their original size.
func (f *File) relayoutForGrowth(pageSize uint64) error {
	cursor := f.newPlacementCursor(pageSize)
	f.cursor = &cursor
	f.originalFileEnd = uint64(len(f.buf))
	f.movedThisCall = make(map[int]bool)
	defer func() {
		f.cursor = nil
		f.movedThisCall = nil
	}()

	indexChange := sortSectionHeadersByFileOffset(f.SectionHeaders)
	f.remapAfterSort(indexChange)

	phEntSize := uint64(progHeaderEntSize(f.codec.class))
	k := findCountOfSectionsToMoveToFreeSize(f.SectionHeaders, phEntSize)
	if int(k) >= len(f.SectionHeaders) {
		if moved := f.tryMoveProgramHeaderTable(pageSize); !moved {
			return &xerrors.MoveSectionError{Reason: "not enough trailing sections to free room for a new program header entry"}
		}
	} else if k > 0 {
		if err := f.moveFirstCountSectionsToEnd(int(k), pageSize); err != nil {
			return err
		}
	}

	if err := f.moveDynamicSectionToEnd(pageSize); err != nil {
		return err
	}
	if err := f.moveDynamicStringTableToEnd(pageSize); err != nil {
		return err
	}

	f.appendLoadSegmentCoveringMovedRegion()
	f.serializeHeaders()
	return f.validateAfterEdit()
}

// MinimumSizeToWriteFile is the smallest byte length an output image
// must have to hold the current layout: the high-water mark of every
// section's and segment's file range, and of both header tables.
// Callers use it to confirm a relayout produced a coherent image
// before trusting Bytes (spec.md §4.7: setRunPath either leaves the
// model such that this reflects a valid layout, or raises an error).
func (f *File) MinimumSizeToWriteFile() uint64 {
	var end uint64
	grow := func(e uint64) {
		if e > end {
			end = e
		}
	}

	for _, sh := range f.SectionHeaders {
		if sh.Type == SHTNoBits {
			continue
		}
		grow(sh.endOffset())
	}
	for _, ph := range f.ProgramHeaders {
		grow(ph.endOffset())
	}
	grow(f.Header.PhOff + uint64(len(f.ProgramHeaders))*uint64(progHeaderEntSize(f.codec.class)))
	grow(f.Header.ShOff + uint64(len(f.SectionHeaders))*uint64(secHeaderEntSize(f.codec.class)))
	return end
}

func (f *File) remapAfterSort(m SectionIndexChangeMap) {
	if int(f.Header.ShStrNdx) < 0xffff {
		f.Header.ShStrNdx = m.IndexForOldIndex(f.Header.ShStrNdx)
	}
	f.idxShStrTab = int(f.Header.ShStrNdx)

	remapIdx := func(idx int) int {
		if idx < 0 {
			return idx
		}
		return int(m.IndexForOldIndex(uint16(idx)))
	}
	f.idxDynamic = remapIdx(f.idxDynamic)
	f.idxDynStr = remapIdx(f.idxDynStr)
	f.idxSymTab = remapIdx(f.idxSymTab)
	f.idxDynSym = remapIdx(f.idxDynSym)
	f.idxGot = remapIdx(f.idxGot)
	f.idxGotPlt = remapIdx(f.idxGotPlt)
	f.idxInterp = remapIdx(f.idxInterp)
	f.idxGnuHash = remapIdx(f.idxGnuHash)
	for i := range f.idxNotes {
		f.idxNotes[i] = remapIdx(f.idxNotes[i])
	}
	for i := range f.Notes {
		f.Notes[i].HeaderIndex = remapIdx(f.Notes[i].HeaderIndex)
	}

	f.SymTab.remapShndx(m)
	f.DynSym.remapShndx(m)
}
