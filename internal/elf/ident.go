package elf

import "github.com/xyproto/elfrpath/internal/xerrors"

const identSize = 16

// Ident is the 16-byte e_ident prefix of the ELF header.
type Ident struct {
	Class      Class
	Data       Data
	Version    byte
	OSABI      byte
	ABIVersion byte
}

func parseIdent(path string, b []byte) (Ident, error) {
	if len(b) < identSize {
		return Ident{}, &xerrors.InvalidImageError{Path: path, Reason: "file shorter than the ELF ident"}
	}
	if b[0] != 0x7f || b[1] != 'E' || b[2] != 'L' || b[3] != 'F' {
		return Ident{}, &xerrors.InvalidImageError{Path: path, Reason: "bad ELF magic"}
	}
	class := Class(b[4])
	if class != Class32 && class != Class64 {
		return Ident{}, &xerrors.InvalidImageError{Path: path, Reason: "unknown ELF class"}
	}
	data := Data(b[5])
	if data != Data2LSB && data != Data2MSB {
		return Ident{}, &xerrors.InvalidImageError{Path: path, Reason: "unknown ELF data encoding"}
	}
	return Ident{
		Class:      class,
		Data:       data,
		Version:    b[6],
		OSABI:      b[7],
		ABIVersion: b[8],
	}, nil
}

func (id Ident) put(b []byte) {
	b[0], b[1], b[2], b[3] = 0x7f, 'E', 'L', 'F'
	b[4] = byte(id.Class)
	b[5] = byte(id.Data)
	b[6] = id.Version
	b[7] = id.OSABI
	b[8] = id.ABIVersion
	for i := 9; i < identSize; i++ {
		b[i] = 0
	}
}
