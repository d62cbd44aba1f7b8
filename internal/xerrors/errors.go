// Package xerrors defines the closed set of error kinds this editor can
// return. Callers distinguish fatal-and-abort-the-edit errors from
// benign presence checks with errors.As, not string matching.
package xerrors

import "fmt"

// InvalidImageError means the bytes do not form a file of the expected
// format (bad magic, truncated header, inconsistent header fields).
type InvalidImageError struct {
	Path   string
	Reason string
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("%s: invalid image: %s", e.Path, e.Reason)
}

// UnsupportedImageError means the bytes are a well-formed image of a
// kind this editor does not handle (wrong class, wrong file type,
// REL object, archive, core dump, cross-endian target).
type UnsupportedImageError struct {
	Path   string
	Reason string
}

func (e *UnsupportedImageError) Error() string {
	return fmt.Sprintf("%s: unsupported image: %s", e.Path, e.Reason)
}

// MoveSectionError means a structural edit could not find enough
// sections to relocate to free the requested number of bytes, or was
// asked to move a section kind with no known relocation strategy.
type MoveSectionError struct {
	Reason string
}

func (e *MoveSectionError) Error() string {
	return fmt.Sprintf("cannot relocate sections: %s", e.Reason)
}

// FileOpenError wraps a failure to open or map the target file.
type FileOpenError struct {
	Path string
	Err  error
}

func (e *FileOpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Path, e.Err)
}

func (e *FileOpenError) Unwrap() error { return e.Err }

// FileReadError wraps a failure to read from the target file.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// FileWriteError wraps a failure to write or resize the target file.
type FileWriteError struct {
	Path string
	Err  error
}

func (e *FileWriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *FileWriteError) Unwrap() error { return e.Err }
