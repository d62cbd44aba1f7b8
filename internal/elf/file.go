package elf

import (
	"fmt"

	"github.com/xyproto/elfrpath/internal/xerrors"
)

// File is the arena holding every header and every section this
// editor understands, plus the raw bytes of everything it does not.
// All cross-references are plain integer indices into the slices
// below; there is no pointer-based ownership graph to keep consistent,
// matching spec.md §9's "Cyclic references between headers" design
// note.
type File struct {
	Path   string
	Header FileHeader
	codec  codec

	ProgramHeaders []ProgramHeader
	SectionHeaders []SectionHeader

	ShStrTab StringTable
	DynStr   StringTable
	Dynamic  DynamicSection
	SymTab   PartialSymbolTable
	DynSym   PartialSymbolTable
	GnuHash  GnuHashTable
	Notes    []NoteSection

	// buf holds the full file image. Section and segment byte ranges
	// are read from and written back into it directly; only the
	// handful of sections this editor interprets are ever re-derived
	// from their typed fields before a write.
	buf []byte

	idxDynamic  int
	idxDynStr   int
	idxSymTab   int
	idxDynSym   int
	idxGot      int
	idxGotPlt   int
	idxInterp   int
	idxGnuHash  int
	idxNotes    []int
	idxShStrTab int
	idxPhdr     int // index of the PT_PHDR program header, or -1

	cursor          *placementCursor // live only during a relayout
	originalFileEnd uint64           // file size before the in-progress relayout, 0 otherwise
	movedThisCall   map[int]bool     // section indices relocated during the in-progress relayout
}

const invalidIndex = -1

// Parse builds a File arena from a full file image.
func Parse(path string, data []byte) (*File, error) {
	header, c, err := parseFileHeader(path, data)
	if err != nil {
		return nil, err
	}

	f := &File{
		Path:        path,
		Header:      header,
		codec:       c,
		buf:         data,
		idxDynamic:  invalidIndex,
		idxDynStr:   invalidIndex,
		idxSymTab:   invalidIndex,
		idxDynSym:   invalidIndex,
		idxGot:      invalidIndex,
		idxGotPlt:   invalidIndex,
		idxInterp:   invalidIndex,
		idxGnuHash:  invalidIndex,
		idxShStrTab: invalidIndex,
		idxPhdr:     invalidIndex,
	}

	if err := f.parseProgramHeaders(); err != nil {
		return nil, err
	}
	if err := f.parseSectionHeaders(); err != nil {
		return nil, err
	}
	f.indexKnownSections()
	if err := f.parseKnownSectionContents(); err != nil {
		return nil, err
	}

	return f, nil
}

func (f *File) slice(offset, size uint64) ([]byte, error) {
	end := offset + size
	if end < offset || end > uint64(len(f.buf)) {
		return nil, &xerrors.InvalidImageError{Path: f.Path, Reason: fmt.Sprintf("range [%d,%d) outside file of size %d", offset, end, len(f.buf))}
	}
	return f.buf[offset:end], nil
}

func (f *File) parseProgramHeaders() error {
	entSize := progHeaderEntSize(f.codec.class)
	table, err := f.slice(f.Header.PhOff, uint64(entSize)*uint64(f.Header.PhNum))
	if err != nil {
		return err
	}
	for i := 0; i < int(f.Header.PhNum); i++ {
		ph := parseProgramHeader(f.codec, table[int64(i)*entSize:int64(i+1)*entSize])
		if ph.Type == PTPhdr {
			f.idxPhdr = i
		}
		f.ProgramHeaders = append(f.ProgramHeaders, ph)
	}
	return nil
}

func (f *File) parseSectionHeaders() error {
	if f.Header.ShNum == 0 {
		return nil
	}
	entSize := secHeaderEntSize(f.codec.class)
	table, err := f.slice(f.Header.ShOff, uint64(entSize)*uint64(f.Header.ShNum))
	if err != nil {
		return err
	}
	for i := 0; i < int(f.Header.ShNum); i++ {
		sh := parseSectionHeader(f.codec, table[int64(i)*entSize:int64(i+1)*entSize])
		f.SectionHeaders = append(f.SectionHeaders, sh)
	}

	if int(f.Header.ShStrNdx) < len(f.SectionHeaders) {
		f.idxShStrTab = int(f.Header.ShStrNdx)
		strTabHdr := f.SectionHeaders[f.idxShStrTab]
		raw, err := f.slice(strTabHdr.Offset, strTabHdr.Size)
		if err != nil {
			return err
		}
		f.ShStrTab = parseStringTable(raw)
		for i := range f.SectionHeaders {
			f.SectionHeaders[i].NameStr = f.ShStrTab.String(f.SectionHeaders[i].Name)
		}
	}
	return nil
}

// indexKnownSections scans the section header table once, the way
// FileAllHeaders.indexKnownSectionHeaders does, caching the index of
// every section kind this editor interprets.
func (f *File) indexKnownSections() {
	for i, sh := range f.SectionHeaders {
		switch {
		case sh.Type == SHTDynamic:
			f.idxDynamic = i
		case sh.Type == SHTSymTab:
			f.idxSymTab = i
		case sh.Type == SHTDynSym:
			f.idxDynSym = i
		case sh.Type == SHTGnuHash || sh.NameStr == ".gnu.hash":
			f.idxGnuHash = i
		case sh.NameStr == ".got":
			f.idxGot = i
		case sh.NameStr == ".got.plt":
			f.idxGotPlt = i
		case sh.NameStr == ".interp":
			f.idxInterp = i
		case sh.Type == SHTNote:
			f.idxNotes = append(f.idxNotes, i)
		}
	}

	if f.idxDynamic >= 0 {
		link := f.SectionHeaders[f.idxDynamic].Link
		if int(link) < len(f.SectionHeaders) {
			f.idxDynStr = int(link)
		}
	}
}

func (f *File) parseKnownSectionContents() error {
	if f.idxDynamic >= 0 {
		sh := f.SectionHeaders[f.idxDynamic]
		raw, err := f.slice(sh.Offset, sh.Size)
		if err != nil {
			return err
		}
		f.Dynamic = parseDynamicSection(f.codec, raw)
	}
	if f.idxDynStr >= 0 {
		sh := f.SectionHeaders[f.idxDynStr]
		raw, err := f.slice(sh.Offset, sh.Size)
		if err != nil {
			return err
		}
		f.DynStr = parseStringTable(raw)
	}
	if f.idxSymTab >= 0 {
		sh := f.SectionHeaders[f.idxSymTab]
		raw, err := f.slice(sh.Offset, sh.Size)
		if err != nil {
			return err
		}
		f.SymTab = parseSymbolTable(f.codec, raw)
	}
	if f.idxDynSym >= 0 {
		sh := f.SectionHeaders[f.idxDynSym]
		raw, err := f.slice(sh.Offset, sh.Size)
		if err != nil {
			return err
		}
		f.DynSym = parseSymbolTable(f.codec, raw)
	}
	if f.idxGnuHash >= 0 {
		sh := f.SectionHeaders[f.idxGnuHash]
		raw, err := f.slice(sh.Offset, sh.Size)
		if err != nil {
			return err
		}
		f.GnuHash = parseGnuHashTable(f.codec, raw)
	}
	for _, idx := range f.idxNotes {
		sh := f.SectionHeaders[idx]
		raw, err := f.slice(sh.Offset, sh.Size)
		if err != nil {
			return err
		}
		cp := make([]byte, len(raw))
		copy(cp, raw)
		f.Notes = append(f.Notes, NoteSection{Header: sh, HeaderIndex: idx, Raw: cp})
	}
	return nil
}

// HasDynamicSection reports whether this image carries a .dynamic
// section at all (static executables do not).
func (f *File) HasDynamicSection() bool { return f.idxDynamic >= 0 }

// seemsValid checks the structural invariants spec.md §8 names as
// cheap-to-verify: phnum/shnum match the table lengths actually held,
// a Dynamic section implies a PT_DYNAMIC program header, and every
// segment that is supposed to cover a known section still does
// (invariant 1).
func (f *File) seemsValid() bool {
	if !f.Header.seemsValid(len(f.ProgramHeaders), len(f.SectionHeaders)) {
		return false
	}
	if f.HasDynamicSection() {
		found := false
		for _, ph := range f.ProgramHeaders {
			if ph.Type == PTDynamic {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return f.coveringSegmentsContainTheirSections()
}

// coveringSegmentsContainTheirSections checks spec.md §8 invariant 1
// for the section kinds this editor relocates in lock-step with a
// segment: PT_DYNAMIC must contain .dynamic, PT_INTERP must contain
// .interp, and PT_NOTE must contain every note section. A segment type
// that is absent has nothing to check.
func (f *File) coveringSegmentsContainTheirSections() bool {
	contains := func(phType SegmentType, sh SectionHeader) bool {
		for _, ph := range f.ProgramHeaders {
			if ph.Type != phType {
				continue
			}
			return ph.Offset <= sh.Offset && sh.endOffset() <= ph.endOffset()
		}
		return true
	}

	if f.idxDynamic >= 0 && !contains(PTDynamic, f.SectionHeaders[f.idxDynamic]) {
		return false
	}
	if f.idxInterp >= 0 && !contains(PTInterp, f.SectionHeaders[f.idxInterp]) {
		return false
	}
	for _, idx := range f.idxNotes {
		if !contains(PTNote, f.SectionHeaders[idx]) {
			return false
		}
	}
	return true
}
