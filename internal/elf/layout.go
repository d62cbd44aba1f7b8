package elf

import "sort"

// MoveSectionAlignment selects how a relocated section's new virtual
// address is aligned relative to its new file offset.
type MoveSectionAlignment int

const (
	// SectionAlignment rounds up to the section's own sh_addralign.
	SectionAlignment MoveSectionAlignment = iota
	// NextPage forces alignment to a full page boundary, required for
	// the first section moved in a layout change so the new trailing
	// PT_LOAD segment can satisfy offset%pageSize == vaddr%pageSize.
	NextPage
)

func alignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	if rem := v % align; rem != 0 {
		return v + (align - rem)
	}
	return v
}

// sectionHeadersSortedByFileOffset reports whether headers are already
// in non-decreasing offset order.
func sectionHeadersSortedByFileOffset(headers []SectionHeader) bool {
	return sort.SliceIsSorted(headers, func(i, j int) bool {
		return headers[i].Offset < headers[j].Offset
	})
}

// sortSectionHeadersByFileOffset sorts headers in place by file offset
// using a selection sort so every swap can be mirrored into the
// returned SectionIndexChangeMap — the same approach
// SectionHeaderTable.h uses and explains: std::sort would lose track
// of which original index ended up where, and the table is small
// enough (tens of entries) that O(n^2) is fine. sh_link/sh_info fields
// that hold section table indices are then remapped through the same
// change map.
func sortSectionHeadersByFileOffset(headers []SectionHeader) SectionIndexChangeMap {
	m := NewSectionIndexChangeMap(len(headers))
	if sectionHeadersSortedByFileOffset(headers) {
		return m
	}

	for i := range headers {
		minIdx := i
		for j := i + 1; j < len(headers); j++ {
			if headers[j].Offset < headers[minIdx].Offset {
				minIdx = j
			}
		}
		if minIdx != i {
			m.SwapIndexes(uint16(i), uint16(minIdx))
			headers[i], headers[minIdx] = headers[minIdx], headers[i]
		}
	}

	for i := range headers {
		if headers[i].linkIsSectionIndex() {
			headers[i].Link = uint32(m.IndexForOldIndex(uint16(headers[i].Link)))
		}
		if headers[i].infoIsSectionIndex() {
			headers[i].Info = uint32(m.IndexForOldIndex(uint16(headers[i].Info)))
		}
	}

	return m
}

// findCountOfSectionsToMoveToFreeSize walks headers (already sorted by
// file offset) accumulating the gaps between sections plus the
// sections' own sizes, and returns how many leading sections (after
// the null section) must be relocated to free up size bytes. If size
// exceeds everything the table can free, the returned count is
// len(headers)+1, signaling "not possible" to the caller.
func findCountOfSectionsToMoveToFreeSize(headers []SectionHeader, size uint64) uint16 {
	startIdx := -1
	for i, h := range headers {
		if h.Offset > 0 {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return uint16(len(headers) + 1)
	}

	sectionCount := uint16(startIdx)
	var totalSize uint64
	previousEnd := headers[startIdx].Offset

	for i := startIdx; i < len(headers); i++ {
		h := headers[i]
		totalSize += h.Offset - previousEnd
		if size <= totalSize {
			return sectionCount - 1
		}
		totalSize += h.Size
		if size <= totalSize {
			return sectionCount
		}
		previousEnd = h.Offset + h.Size
		sectionCount++
	}

	return uint16(len(headers) + 1)
}
