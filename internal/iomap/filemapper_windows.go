//go:build windows

package iomap

import "os"

// FileMapper on Windows falls back to a plain buffered read/write of
// the requested window instead of a native mapping. The editor only
// ever runs on the build host, never inside the target's own loader,
// so there is no correctness requirement pulling in
// golang.org/x/sys/windows's CreateFileMapping/MapViewOfFile.
type FileMapper struct {
	Writable bool

	data   []byte
	offset int64
	size   int64
}

func (m *FileMapper) MapIfRequired(file *os.File, offset, size int64) ([]byte, error) {
	if !m.needToRemap(offset, size) {
		return m.data[offset-m.offset : offset-m.offset+size], nil
	}

	buf := make([]byte, size)
	if _, err := file.ReadAt(buf, offset); err != nil {
		return nil, err
	}

	m.data = buf
	m.offset = offset
	m.size = size

	return m.data, nil
}

// Unmap drops the buffered window without writing anything back;
// FlushTo must be called explicitly for that, since there is no
// kernel-backed page cache tying this buffer to the file.
func (m *FileMapper) Unmap() error {
	m.data = nil
	m.offset = 0
	m.size = 0
	return nil
}

// FlushTo writes the current buffer back to file. Only meaningful on
// the Windows build; the unix build relies on MAP_SHARED instead.
func (m *FileMapper) FlushTo(file *os.File) error {
	if m.data == nil {
		return nil
	}
	_, err := file.WriteAt(m.data, m.offset)
	return err
}

func (m *FileMapper) needToRemap(offset, size int64) bool {
	if m.data == nil {
		return true
	}
	if offset < m.offset {
		return true
	}
	return offset+size > m.offset+m.size
}
