package elf

// DynamicTag is the d_tag field of a dynamic section entry.
type DynamicTag int64

const (
	DTNull            DynamicTag = 0
	DTNeeded          DynamicTag = 1
	DTPltRelSz        DynamicTag = 2
	DTPltGot          DynamicTag = 3
	DTHash            DynamicTag = 4
	DTStrTab          DynamicTag = 5
	DTSymTab          DynamicTag = 6
	DTRela            DynamicTag = 7
	DTRelaSz          DynamicTag = 8
	DTRelaEnt         DynamicTag = 9
	DTStrSz           DynamicTag = 10
	DTSymEnt          DynamicTag = 11
	DTInit            DynamicTag = 12
	DTFini            DynamicTag = 13
	DTSoName          DynamicTag = 14
	DTRPath           DynamicTag = 15
	DTSymbolic        DynamicTag = 16
	DTRel             DynamicTag = 17
	DTRelSz           DynamicTag = 18
	DTRelEnt          DynamicTag = 19
	DTDebug           DynamicTag = 21
	DTRunPath         DynamicTag = 29
	DTGnuHash         DynamicTag = 0x6ffffef5
)

// DynamicEntry is one tag/value pair of the .dynamic section.
type DynamicEntry struct {
	Tag DynamicTag
	Val uint64
}

// DynamicSection is the parsed .dynamic section: an ordered list of
// entries, always terminated by a DT_NULL entry (spec.md §2 [C4]'s
// Null-terminator invariant).
type DynamicSection struct {
	Entries []DynamicEntry
}

func parseDynamicSection(c codec, b []byte) DynamicSection {
	entSize := int(2 * c.wordSize())
	var ds DynamicSection
	for off := 0; off+entSize <= len(b); off += entSize {
		tag := int64(c.word(b[off : off+int(c.wordSize())]))
		val := c.word(b[off+int(c.wordSize()) : off+entSize])
		ds.Entries = append(ds.Entries, DynamicEntry{Tag: DynamicTag(tag), Val: val})
		if DynamicTag(tag) == DTNull {
			break
		}
	}
	return ds
}

func (ds DynamicSection) byteCount(c codec) int64 {
	return int64(len(ds.Entries)) * 2 * c.wordSize()
}

func (ds DynamicSection) put(c codec, b []byte) {
	entSize := int(2 * c.wordSize())
	for i, e := range ds.Entries {
		off := i * entSize
		c.putWord(b[off:off+int(c.wordSize())], uint64(e.Tag))
		c.putWord(b[off+int(c.wordSize()):off+entSize], e.Val)
	}
}

// find returns the index of the first entry with the given tag, or -1.
func (ds DynamicSection) find(tag DynamicTag) int {
	for i, e := range ds.Entries {
		if e.Tag == tag {
			return i
		}
	}
	return -1
}

func (ds DynamicSection) has(tag DynamicTag) bool { return ds.find(tag) >= 0 }

func (ds DynamicSection) value(tag DynamicTag) (uint64, bool) {
	i := ds.find(tag)
	if i < 0 {
		return 0, false
	}
	return ds.Entries[i].Val, true
}

// setValue overwrites the value of the first entry with tag, or
// appends a new entry just before DT_NULL if none exists yet.
func (ds *DynamicSection) setValue(tag DynamicTag, val uint64) {
	if i := ds.find(tag); i >= 0 {
		ds.Entries[i].Val = val
		return
	}
	ds.insertBeforeNull(DynamicEntry{Tag: tag, Val: val})
}

// removeEntry deletes the first entry with the given tag, if present.
// The DT_NULL terminator, if any, is left where it is.
func (ds *DynamicSection) removeEntry(tag DynamicTag) {
	i := ds.find(tag)
	if i < 0 {
		return
	}
	ds.Entries = append(ds.Entries[:i], ds.Entries[i+1:]...)
}

func (ds *DynamicSection) insertBeforeNull(e DynamicEntry) {
	nullIdx := ds.find(DTNull)
	if nullIdx < 0 {
		ds.Entries = append(ds.Entries, e, DynamicEntry{Tag: DTNull})
		return
	}
	ds.Entries = append(ds.Entries[:nullIdx], append([]DynamicEntry{e}, ds.Entries[nullIdx:]...)...)
}

// neededValues returns the DT_NEEDED entries' raw string-table
// offsets, in file order.
func (ds DynamicSection) neededValues() []uint64 {
	var out []uint64
	for _, e := range ds.Entries {
		if e.Tag == DTNeeded {
			out = append(out, e.Val)
		}
	}
	return out
}
