package elf

// buildMinimalDynFile assembles a minimal, valid little-endian ELF64
// ET_DYN image by hand: one PT_LOAD segment covering the whole file,
// one PT_DYNAMIC segment, and three sections (.dynstr, .dynamic,
// .shstrtab) besides the mandatory null section. DT_NEEDED names
// "libfoo.so.1" and DT_RUNPATH/DT_RPATH (selected by useRPath) names
// runpath. p_vaddr is kept equal to p_offset throughout (a zero load
// bias). The image has no PT_PHDR segment, so
// tryMoveProgramHeaderTable declines it.
func buildMinimalDynFile(runpath string, useRPath bool) []byte {
	c := newCodec(Class64, Data2LSB)

	dynstr := StringTable{data: []byte{0}}
	neededOff := dynstr.Append("libfoo.so.1")
	runpathOff := dynstr.Append(runpath)

	runpathTag := DTRunPath
	if useRPath {
		runpathTag = DTRPath
	}

	const (
		ehSize    = 64
		phEntSize = 56
		phCount   = 2
	)
	phOff := uint64(ehSize)
	dynstrOff := phOff + phEntSize*phCount
	dynstrSize := uint64(dynstr.Size())

	dyn := DynamicSection{Entries: []DynamicEntry{
		{Tag: DTNeeded, Val: uint64(neededOff)},
		{Tag: runpathTag, Val: uint64(runpathOff)},
		{Tag: DTStrTab, Val: dynstrOff}, // vaddr == offset, zero bias
		{Tag: DTStrSz, Val: dynstrSize},
		{Tag: DTNull},
	}}
	dynOff := dynstrOff + dynstrSize
	dynSize := uint64(dyn.byteCount(c))

	shstrtab := StringTable{data: []byte{0}}
	dynstrNameOff := shstrtab.Append(".dynstr")
	dynamicNameOff := shstrtab.Append(".dynamic")
	shstrtabNameOff := shstrtab.Append(".shstrtab")
	shstrOff := dynOff + dynSize
	shstrSize := uint64(shstrtab.Size())

	shOff := alignUp(shstrOff+shstrSize, 8)
	const shEntSize = 64
	const shCount = 4
	fileSize := shOff + shEntSize*shCount

	sections := []SectionHeader{
		{}, // null section
		{
			Name: dynstrNameOff, NameStr: ".dynstr", Type: SHTStrTab, Flags: SHFAlloc,
			Addr: dynstrOff, Offset: dynstrOff, Size: dynstrSize, AddrAlign: 1,
		},
		{
			Name: dynamicNameOff, NameStr: ".dynamic", Type: SHTDynamic, Flags: SHFAlloc | SHFWrite,
			Addr: dynOff, Offset: dynOff, Size: dynSize, Link: 1, AddrAlign: 8, EntSize: 16,
		},
		{
			Name: shstrtabNameOff, NameStr: ".shstrtab", Type: SHTStrTab,
			Offset: shstrOff, Size: shstrSize, AddrAlign: 1,
		},
	}

	progHeaders := []ProgramHeader{
		{Type: PTLoad, Flags: PFRead | PFWrite, Offset: 0, VAddr: 0, PAddr: 0, FileSz: fileSize, MemSz: fileSize, Align: 0x1000},
		{Type: PTDynamic, Flags: PFRead | PFWrite, Offset: dynOff, VAddr: dynOff, PAddr: dynOff, FileSz: dynSize, MemSz: dynSize, Align: 8},
	}

	header := FileHeader{
		Ident:     Ident{Class: Class64, Data: Data2LSB, Version: 1},
		Type:      TypeDyn,
		Machine:   0x3e,
		Version:   1,
		PhOff:     phOff,
		ShOff:     shOff,
		EhSize:    ehSize,
		PhEntSize: phEntSize,
		PhNum:     phCount,
		ShEntSize: shEntSize,
		ShNum:     shCount,
		ShStrNdx:  3,
	}

	buf := make([]byte, fileSize)
	header.put(c, buf[0:ehSize])
	for i, ph := range progHeaders {
		ph.put(c, buf[phOff+uint64(i)*phEntSize:phOff+uint64(i+1)*phEntSize])
	}
	copy(buf[dynstrOff:], dynstr.Bytes())
	dyn.put(c, buf[dynOff:dynOff+dynSize])
	copy(buf[shstrOff:], shstrtab.Bytes())
	for i, sh := range sections {
		sh.put(c, buf[shOff+uint64(i)*shEntSize:shOff+uint64(i+1)*shEntSize])
	}

	return buf
}

// buildDynFileWithInterpAndNotes is buildMinimalDynFile plus a leading
// .interp and .note.gnu.build-id section, each covered exactly by its
// own PT_INTERP/PT_NOTE segment, so a forced relayout exercises
// moveSectionToEnd's interp and note special cases.
func buildDynFileWithInterpAndNotes(runpath string) []byte {
	c := newCodec(Class64, Data2LSB)

	interp := append([]byte("/lib64/ld-linux-x86-64.so.2"), 0)
	note := []byte{
		4, 0, 0, 0, // namesz
		4, 0, 0, 0, // descsz
		3, 0, 0, 0, // type: NT_GNU_BUILD_ID
		'G', 'N', 'U', 0,
		0xde, 0xad, 0xbe, 0xef,
	}

	dynstr := StringTable{data: []byte{0}}
	neededOff := dynstr.Append("libfoo.so.1")
	runpathOff := dynstr.Append(runpath)

	const (
		ehSize    = 64
		phEntSize = 56
		phCount   = 4
	)
	phOff := uint64(ehSize)
	interpOff := phOff + phEntSize*phCount
	interpSize := uint64(len(interp))
	noteOff := interpOff + interpSize
	noteSize := uint64(len(note))
	dynstrOff := noteOff + noteSize
	dynstrSize := uint64(dynstr.Size())

	dyn := DynamicSection{Entries: []DynamicEntry{
		{Tag: DTNeeded, Val: uint64(neededOff)},
		{Tag: DTRunPath, Val: uint64(runpathOff)},
		{Tag: DTStrTab, Val: dynstrOff},
		{Tag: DTStrSz, Val: dynstrSize},
		{Tag: DTNull},
	}}
	dynOff := dynstrOff + dynstrSize
	dynSize := uint64(dyn.byteCount(c))

	shstrtab := StringTable{data: []byte{0}}
	interpNameOff := shstrtab.Append(".interp")
	noteNameOff := shstrtab.Append(".note.gnu.build-id")
	dynstrNameOff := shstrtab.Append(".dynstr")
	dynamicNameOff := shstrtab.Append(".dynamic")
	shstrtabNameOff := shstrtab.Append(".shstrtab")
	shstrOff := dynOff + dynSize
	shstrSize := uint64(shstrtab.Size())

	shOff := alignUp(shstrOff+shstrSize, 8)
	const shEntSize = 64
	const shCount = 6
	fileSize := shOff + shEntSize*shCount

	sections := []SectionHeader{
		{}, // null section
		{
			Name: interpNameOff, NameStr: ".interp", Type: SHTProgBits, Flags: SHFAlloc,
			Addr: interpOff, Offset: interpOff, Size: interpSize, AddrAlign: 1,
		},
		{
			Name: noteNameOff, NameStr: ".note.gnu.build-id", Type: SHTNote, Flags: SHFAlloc,
			Addr: noteOff, Offset: noteOff, Size: noteSize, AddrAlign: 4,
		},
		{
			Name: dynstrNameOff, NameStr: ".dynstr", Type: SHTStrTab, Flags: SHFAlloc,
			Addr: dynstrOff, Offset: dynstrOff, Size: dynstrSize, AddrAlign: 1,
		},
		{
			Name: dynamicNameOff, NameStr: ".dynamic", Type: SHTDynamic, Flags: SHFAlloc | SHFWrite,
			Addr: dynOff, Offset: dynOff, Size: dynSize, Link: 3, AddrAlign: 8, EntSize: 16,
		},
		{
			Name: shstrtabNameOff, NameStr: ".shstrtab", Type: SHTStrTab,
			Offset: shstrOff, Size: shstrSize, AddrAlign: 1,
		},
	}

	progHeaders := []ProgramHeader{
		{Type: PTLoad, Flags: PFRead | PFWrite, Offset: 0, VAddr: 0, PAddr: 0, FileSz: fileSize, MemSz: fileSize, Align: 0x1000},
		{Type: PTInterp, Flags: PFRead, Offset: interpOff, VAddr: interpOff, PAddr: interpOff, FileSz: interpSize, MemSz: interpSize, Align: 1},
		{Type: PTNote, Flags: PFRead, Offset: noteOff, VAddr: noteOff, PAddr: noteOff, FileSz: noteSize, MemSz: noteSize, Align: 4},
		{Type: PTDynamic, Flags: PFRead | PFWrite, Offset: dynOff, VAddr: dynOff, PAddr: dynOff, FileSz: dynSize, MemSz: dynSize, Align: 8},
	}

	header := FileHeader{
		Ident:     Ident{Class: Class64, Data: Data2LSB, Version: 1},
		Type:      TypeDyn,
		Machine:   0x3e,
		Version:   1,
		PhOff:     phOff,
		ShOff:     shOff,
		EhSize:    ehSize,
		PhEntSize: phEntSize,
		PhNum:     phCount,
		ShEntSize: shEntSize,
		ShNum:     shCount,
		ShStrNdx:  5,
	}

	buf := make([]byte, fileSize)
	header.put(c, buf[0:ehSize])
	for i, ph := range progHeaders {
		ph.put(c, buf[phOff+uint64(i)*phEntSize:phOff+uint64(i+1)*phEntSize])
	}
	copy(buf[interpOff:], interp)
	copy(buf[noteOff:], note)
	copy(buf[dynstrOff:], dynstr.Bytes())
	dyn.put(c, buf[dynOff:dynOff+dynSize])
	copy(buf[shstrOff:], shstrtab.Bytes())
	for i, sh := range sections {
		sh.put(c, buf[shOff+uint64(i)*shEntSize:shOff+uint64(i+1)*shEntSize])
	}

	return buf
}
