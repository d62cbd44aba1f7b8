package elf

import "bytes"

// StringTable is a NUL-terminated string pool, used for both .dynstr
// and .shstrtab. Offset 0 always holds the empty string, matching the
// ELF convention every reader and writer in this package relies on.
type StringTable struct {
	data []byte
}

func parseStringTable(b []byte) StringTable {
	data := make([]byte, len(b))
	copy(data, b)
	if len(data) == 0 {
		data = []byte{0}
	}
	return StringTable{data: data}
}

// String returns the NUL-terminated string starting at off.
func (t StringTable) String(off uint32) string {
	if int(off) >= len(t.data) {
		return ""
	}
	end := int(off)
	for end < len(t.data) && t.data[end] != 0 {
		end++
	}
	return string(t.data[off:end])
}

// Size is the current byte length of the pool, including the leading
// and every trailing NUL.
func (t StringTable) Size() int64 { return int64(len(t.data)) }

func (t StringTable) Bytes() []byte { return t.data }

// Replace overwrites the string at off with s, growing or shrinking
// the pool if s is not byte-identical in stored length to what was
// there before. Strings after off shift accordingly; offsets of
// strings before off are unaffected. Returns the size delta in bytes
// (positive on growth, negative on shrink, zero if unchanged).
func (t *StringTable) Replace(off uint32, s string) int64 {
	oldEnd := int(off)
	for oldEnd < len(t.data) && t.data[oldEnd] != 0 {
		oldEnd++
	}
	oldLen := oldEnd - int(off)
	newBytes := append([]byte(s), 0)

	before := t.data[:off]
	after := t.data[oldEnd+1:] // skip the old NUL terminator too
	t.data = append(append(append([]byte{}, before...), newBytes...), after...)

	return int64(len(newBytes)-1) - int64(oldLen)
}

// Append adds s to the end of the pool and returns its offset.
func (t *StringTable) Append(s string) uint32 {
	off := uint32(len(t.data))
	t.data = append(t.data, append([]byte(s), 0)...)
	return off
}

// IndexOf returns the offset of the first occurrence of the exact
// NUL-terminated string s, or -1.
func (t StringTable) IndexOf(s string) int64 {
	needle := append([]byte(s), 0)
	i := bytes.Index(t.data, needle)
	if i < 0 {
		return -1
	}
	return int64(i)
}
