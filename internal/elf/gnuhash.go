package elf

// GnuHashTable is the .gnu.hash section layout:
//
//	uint32 nbuckets
//	uint32 symoffset
//	uint32 bloomSize
//	uint32 bloomShift
//	word   bloom[bloomSize]   // 8 bytes per entry on Class64, 4 on Class32
//	uint32 buckets[nbuckets]
//	uint32 chain[]
//
// https://flapenguin.me/elf-dt-gnu-hash
type GnuHashTable struct {
	SymOffset  uint32
	BloomShift uint32
	Bloom      []uint64
	Buckets    []uint32
	Chain      []uint32
}

func bloomEntryByteCount(class Class) int64 {
	if class == Class32 {
		return 4
	}
	return 8
}

func parseGnuHashTable(c codec, b []byte) GnuHashTable {
	nbuckets := c.u32(b[0:4])
	symoffset := c.u32(b[4:8])
	bloomSize := c.u32(b[8:12])
	bloomShift := c.u32(b[12:16])

	var t GnuHashTable
	t.SymOffset = symoffset
	t.BloomShift = bloomShift

	off := 16
	bloomEntSize := int(bloomEntryByteCount(c.class))
	for i := uint32(0); i < bloomSize; i++ {
		t.Bloom = append(t.Bloom, c.word(b[off:off+bloomEntSize]))
		off += bloomEntSize
	}
	for i := uint32(0); i < nbuckets; i++ {
		t.Buckets = append(t.Buckets, c.u32(b[off:off+4]))
		off += 4
	}
	for off+4 <= len(b) {
		t.Chain = append(t.Chain, c.u32(b[off:off+4]))
		off += 4
	}
	return t
}

// byteCount mirrors the original C++ GnuHashTable::byteCount formula
// exactly: 16 (fixed header) + bloom entries + 4 bytes per bucket +
// 4 bytes per chain entry.
func (t GnuHashTable) byteCount(class Class) int64 {
	return 16 + bloomEntryByteCount(class)*int64(len(t.Bloom)) + 4*int64(len(t.Buckets)) + 4*int64(len(t.Chain))
}

func (t GnuHashTable) put(c codec, b []byte) {
	c.putU32(b[0:4], uint32(len(t.Buckets)))
	c.putU32(b[4:8], t.SymOffset)
	c.putU32(b[8:12], uint32(len(t.Bloom)))
	c.putU32(b[12:16], t.BloomShift)

	off := 16
	bloomEntSize := int(bloomEntryByteCount(c.class))
	for _, w := range t.Bloom {
		c.putWord(b[off:off+bloomEntSize], w)
		off += bloomEntSize
	}
	for _, bucket := range t.Buckets {
		c.putU32(b[off:off+4], bucket)
		off += 4
	}
	for _, chain := range t.Chain {
		c.putU32(b[off:off+4], chain)
		off += 4
	}
}
