// Package execfile is the format-dispatching façade the CLI talks to:
// it sniffs whether a target is ELF or PE and routes every query or
// edit to the matching internal/elf or internal/pe implementation,
// presenting both under one small API. Grounded on the original
// ExecutableFileReader/ExecutableFileWriter split, which does the same
// dispatch over Qt's QFileDevice rather than Go's os.File.
package execfile

import (
	"os"

	"github.com/xyproto/elfrpath/internal/config"
	"github.com/xyproto/elfrpath/internal/elf"
	"github.com/xyproto/elfrpath/internal/iomap"
	"github.com/xyproto/elfrpath/internal/pe"
	"github.com/xyproto/elfrpath/internal/platform"
	"github.com/xyproto/elfrpath/internal/xerrors"
)

const sniffLen = 64

func sniffFormat(path string) (platform.ExecutableFileFormat, error) {
	file, err := os.Open(path)
	if err != nil {
		return platform.FormatUnknown, &xerrors.FileOpenError{Path: path, Err: err}
	}
	defer file.Close()

	header := make([]byte, sniffLen)
	n, err := file.Read(header)
	if err != nil && n == 0 {
		return platform.FormatUnknown, &xerrors.FileReadError{Path: path, Err: err}
	}
	return platform.Sniff(header[:n]), nil
}

// readWholeFile loads path through a FileMapper instead of os.ReadFile,
// so the whole image is brought in through one map-if-required call
// the way the original FileWriterFile reads its target before editing.
// The mapping is copied out and released immediately: the editor holds
// its own buffer for the rest of the run rather than keeping the file
// mapped for the lifetime of an edit that may resize it.
func readWholeFile(path string, writable bool) ([]byte, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	file, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, &xerrors.FileOpenError{Path: path, Err: err}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, &xerrors.FileReadError{Path: path, Err: err}
	}

	mapper := &iomap.FileMapper{Writable: writable}
	mapped, err := mapper.MapIfRequired(file, 0, info.Size())
	if err != nil {
		return nil, &xerrors.FileReadError{Path: path, Err: err}
	}
	data := make([]byte, len(mapped))
	copy(data, mapped)
	if err := mapper.Unmap(); err != nil {
		return nil, &xerrors.FileReadError{Path: path, Err: err}
	}
	return data, nil
}

// Reader is a read-only view over either an ELF or a PE image.
type Reader struct {
	format platform.ExecutableFileFormat
	elf    *elf.File
	pe     *pe.Reader
}

// OpenReader opens path and classifies its format, without requiring
// write access to it.
func OpenReader(path string) (*Reader, error) {
	format, err := sniffFormat(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case platform.FormatElf:
		data, err := readWholeFile(path, false)
		if err != nil {
			return nil, err
		}
		f, err := elf.Parse(path, data)
		if err != nil {
			return nil, err
		}
		return &Reader{format: format, elf: f}, nil
	case platform.FormatPe:
		r, err := pe.Open(path)
		if err != nil {
			return nil, err
		}
		return &Reader{format: format, pe: r}, nil
	default:
		return nil, &xerrors.UnsupportedImageError{Path: path, Reason: "neither ELF nor PE magic found"}
	}
}

// Close releases any resources the reader holds open (PE images keep
// their file open for lazy import-table reads; ELF images are fully
// buffered at open time and need no closing).
func (r *Reader) Close() error {
	if r.pe != nil {
		return r.pe.Close()
	}
	return nil
}

// Format reports which container this reader opened.
func (r *Reader) Format() platform.ExecutableFileFormat { return r.format }

// IsExecutableOrSharedLibrary reports whether the image is a kind this
// editor can meaningfully inspect (an EXEC or DYN ELF object, or any
// opened PE image — PE support never distinguishes EXE from DLL here).
func (r *Reader) IsExecutableOrSharedLibrary() bool {
	if r.elf != nil {
		return r.elf.IsExecutableOrSharedLibrary()
	}
	return r.pe != nil
}

// ContainsDebugSymbols reports whether the image carries unstripped
// debug information. Always false for PE, which this package never
// inspects beyond the import table.
func (r *Reader) ContainsDebugSymbols() bool {
	if r.elf != nil {
		return r.elf.ContainsDebugSymbols()
	}
	return false
}

// GetNeededSharedLibraries lists the dynamic libraries this image
// depends on: DT_NEEDED entries for ELF, import-descriptor DLL names
// for PE.
func (r *Reader) GetNeededSharedLibraries() ([]string, error) {
	if r.elf != nil {
		return r.elf.GetNeededSharedLibraries(), nil
	}
	return r.pe.NeededLibraries()
}

// GetRunPath returns the embedded RUNPATH/RPATH string, or "" if the
// image has none (including every PE image, which has no equivalent
// concept).
func (r *Reader) GetRunPath() string {
	if r.elf != nil {
		return r.elf.GetRunPath()
	}
	return ""
}

// SoName returns the DT_SONAME value, or "" if absent or not ELF.
func (r *Reader) SoName() string {
	if r.elf != nil {
		return r.elf.GetSoName()
	}
	return ""
}

// Writer is a mutable view over a target image. Only ELF images
// support writes; PE is read-only by scope.
type Writer struct {
	path string
	elf  *elf.File
}

// OpenWriter opens path for an in-place RUNPATH edit. PE targets are
// rejected with UnsupportedImageError, matching spec.md's read-only PE
// scope.
func OpenWriter(path string) (*Writer, error) {
	format, err := sniffFormat(path)
	if err != nil {
		return nil, err
	}
	if format != platform.FormatElf {
		return nil, &xerrors.UnsupportedImageError{Path: path, Reason: "only ELF images support writing"}
	}

	data, err := readWholeFile(path, true)
	if err != nil {
		return nil, err
	}
	f, err := elf.Parse(path, data)
	if err != nil {
		return nil, err
	}
	return &Writer{path: path, elf: f}, nil
}

// SetRunPath rewrites the embedded RUNPATH/RPATH, relaying out the
// image in memory if needed. Call Save afterward to persist the
// result.
func (w *Writer) SetRunPath(cfg config.Config, newPath string) error {
	return w.elf.SetRunPath(uint64(cfg.PageSize), newPath)
}

// GetNeededSharedLibraries exposes the same read as Reader, useful for
// CLI subcommands that open with OpenWriter directly for an edit-then-
// inspect sequence.
func (w *Writer) GetNeededSharedLibraries() []string {
	return w.elf.GetNeededSharedLibraries()
}

// GetRunPath exposes the current in-memory RUNPATH, including any edit
// already applied through SetRunPath.
func (w *Writer) GetRunPath() string { return w.elf.GetRunPath() }

// Save writes the edited image back to its original path.
func (w *Writer) Save() error {
	info, err := os.Stat(w.path)
	if err != nil {
		return &xerrors.FileWriteError{Path: w.path, Err: err}
	}
	if err := os.WriteFile(w.path, w.elf.Bytes(), info.Mode()); err != nil {
		return &xerrors.FileWriteError{Path: w.path, Err: err}
	}
	return nil
}
