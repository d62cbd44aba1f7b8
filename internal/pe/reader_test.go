package pe

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// buildMinimalPE assembles a minimal PE32+ image on disk with one
// section holding an import directory naming a single DLL, so
// NeededLibraries can be exercised without a real Windows binary
// fixture (the teacher's own pe_reader_test.go instead skips without
// a checked-in SDL3.dll; this test is self-contained).
func buildMinimalPE(t *testing.T, dllName string) string {
	t.Helper()

	const sectionRVA = 0x2000
	const sectionFileOffset = 0x400

	descOffset := uint32(0)
	nameOffset := uint32(40) // one descriptor (20 bytes), the null descriptor (20 bytes), then the name
	sectionContent := make([]byte, 64)
	binary.LittleEndian.PutUint32(sectionContent[descOffset+0:], 0)           // OriginalFirstThunk
	binary.LittleEndian.PutUint32(sectionContent[descOffset+4:], 0)           // TimeDateStamp
	binary.LittleEndian.PutUint32(sectionContent[descOffset+8:], 0)           // ForwarderChain
	binary.LittleEndian.PutUint32(sectionContent[descOffset+12:], sectionRVA+nameOffset) // Name RVA
	binary.LittleEndian.PutUint32(sectionContent[descOffset+16:], 0)          // FirstThunk
	copy(sectionContent[nameOffset:], dllName)
	// bytes 20..40 stay zero, forming the terminating null descriptor

	var buf []byte
	put16 := func(v uint16) { buf = binary.LittleEndian.AppendUint16(buf, v) }
	put32 := func(v uint32) { buf = binary.LittleEndian.AppendUint32(buf, v) }
	put64 := func(v uint64) { buf = binary.LittleEndian.AppendUint64(buf, v) }

	// DOS header: magic at 0, e_lfanew at 0x3C.
	buf = make([]byte, 0x40)
	binary.LittleEndian.PutUint16(buf[0:], 0x5A4D)
	binary.LittleEndian.PutUint32(buf[0x3C:], uint32(len(buf)))

	put32(0x00004550) // "PE\0\0"

	// COFF header (20 bytes).
	put16(0x8664) // Machine: x86-64
	put16(1)      // NumberOfSections
	put32(0)      // TimeDateStamp
	put32(0)      // PointerToSymbolTable
	put32(0)      // NumberOfSymbols
	optHdrSizeOffset := len(buf)
	put16(0) // SizeOfOptionalHeader, patched below
	put16(0) // Characteristics

	optHdrStart := len(buf)
	put16(0x020B) // Magic: PE32+
	buf = append(buf, 0, 0) // MajorLinkerVersion, MinorLinkerVersion
	put32(0)                // SizeOfCode
	put32(0)                // SizeOfInitializedData
	put32(0)                // SizeOfUninitializedData
	put32(0)                // AddressOfEntryPoint
	put32(0)                // BaseOfCode
	put64(0x140000000)      // ImageBase
	put32(0x1000)           // SectionAlignment
	put32(0x200)            // FileAlignment
	put16(0)                // MajorOSVersion
	put16(0)                // MinorOSVersion
	put16(0)                // MajorImageVersion
	put16(0)                // MinorImageVersion
	put16(6)                // MajorSubsystemVersion
	put16(0)                // MinorSubsystemVersion
	put32(0)                // Win32VersionValue
	put32(0x3000)           // SizeOfImage
	put32(uint32(sectionFileOffset)) // SizeOfHeaders
	put32(0)                // CheckSum
	put16(3)                // Subsystem
	put16(0)                // DllCharacteristics
	put64(0x100000)         // SizeOfStackReserve
	put64(0x1000)           // SizeOfStackCommit
	put64(0x100000)         // SizeOfHeapReserve
	put64(0x1000)           // SizeOfHeapCommit
	put32(0)                // LoaderFlags
	put32(16)               // NumberOfRvaAndSizes
	for i := 0; i < 16; i++ {
		if i == directoryImport {
			put32(sectionRVA)
			put32(uint32(len(sectionContent)))
		} else {
			put32(0)
			put32(0)
		}
	}

	optHdrSize := len(buf) - optHdrStart
	binary.LittleEndian.PutUint16(buf[optHdrSizeOffset:], uint16(optHdrSize))

	// Section header (40 bytes): .idata-like section covering the import table.
	name := make([]byte, 8)
	copy(name, ".idata")
	buf = append(buf, name...)
	put32(uint32(len(sectionContent))) // VirtualSize
	put32(sectionRVA)                  // VirtualAddress
	put32(uint32(len(sectionContent))) // SizeOfRawData
	put32(uint32(sectionFileOffset))   // PointerToRawData
	put32(0)                           // PointerToRelocations
	put32(0)                           // PointerToLinenumbers
	put16(0)                           // NumberOfRelocations
	put16(0)                           // NumberOfLinenumbers
	put32(0)                           // Characteristics

	if len(buf) > sectionFileOffset {
		t.Fatalf("headers overran the fixed section file offset: %d > %d", len(buf), sectionFileOffset)
	}
	buf = append(buf, make([]byte, sectionFileOffset-len(buf))...)
	buf = append(buf, sectionContent...)

	path := filepath.Join(t.TempDir(), "test.dll")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestOpenAndNeededLibraries(t *testing.T) {
	path := buildMinimalPE(t, "KERNEL32.dll")

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if !r.IsMachine64() {
		t.Fatal("IsMachine64() = false, want true for a PE32+ image")
	}

	names, err := r.NeededLibraries()
	if err != nil {
		t.Fatalf("NeededLibraries: %v", err)
	}
	if len(names) != 1 || names[0] != "KERNEL32.dll" {
		t.Fatalf("NeededLibraries() = %v, want [KERNEL32.dll]", names)
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notpe.bin")
	if err := os.WriteFile(path, []byte("not a pe file at all"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected Open to reject a file with no DOS magic")
	}
}
