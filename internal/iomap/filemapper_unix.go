//go:build linux || darwin || freebsd || netbsd || openbsd

package iomap

import (
	"os"

	"golang.org/x/sys/unix"
)

// FileMapper memory-maps a window of an open file and only remaps when
// the requested window is not already covered by the current mapping.
// Mirrors the original implementation's FileMapper: the caller asks
// for a region, and the mapper decides whether the previous mmap
// already satisfies it.
type FileMapper struct {
	// Writable selects PROT_READ|PROT_WRITE mappings; the file must
	// have been opened O_RDWR. Readers leave this false.
	Writable bool

	data   []byte
	offset int64
	size   int64
}

// MapIfRequired returns a byte slice covering [offset, offset+size) of
// file, remapping only if that window does not already lie inside the
// current mapping.
func (m *FileMapper) MapIfRequired(file *os.File, offset, size int64) ([]byte, error) {
	if !m.needToRemap(offset, size) {
		return m.data[offset-m.offset : offset-m.offset+size], nil
	}
	if m.data != nil {
		if err := m.unmap(); err != nil {
			return nil, err
		}
	}

	pageSize := int64(os.Getpagesize())
	alignedOffset := (offset / pageSize) * pageSize
	alignedSize := size + (offset - alignedOffset)

	prot := unix.PROT_READ
	if m.Writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(file.Fd()), alignedOffset, int(alignedSize), prot, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	m.data = data
	m.offset = alignedOffset
	m.size = alignedSize

	return m.data[offset-alignedOffset : offset-alignedOffset+size], nil
}

// Unmap releases the current mapping, if any.
func (m *FileMapper) Unmap() error {
	if m.data == nil {
		return nil
	}
	return m.unmap()
}

func (m *FileMapper) unmap() error {
	err := unix.Munmap(m.data)
	m.data = nil
	m.offset = 0
	m.size = 0
	return err
}

// needToRemap reports whether [offset, offset+size) is not already
// contained in the current mapping.
func (m *FileMapper) needToRemap(offset, size int64) bool {
	if m.data == nil {
		return true
	}
	if offset < m.offset {
		return true
	}
	return offset+size > m.offset+m.size
}
