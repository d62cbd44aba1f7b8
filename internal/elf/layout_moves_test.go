package elf

import "testing"

// TestRelayoutRecoversInterpAndNoteSegments covers spec.md scenario S2
// and §8 invariant 1: once a relayout relocates .interp and
// .note.gnu.build-id, PT_INTERP and PT_NOTE must be resized to cover
// their sections' new locations exactly, not the stale original range.
func TestRelayoutRecoversInterpAndNoteSegments(t *testing.T) {
	buf := buildDynFileWithInterpAndNotes("/old/rpath")
	f, err := Parse("test", buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	originalInterpOff := f.SectionHeaders[f.idxInterp].Offset
	noteIdx := f.idxNotes[0]
	originalNoteOff := f.SectionHeaders[noteIdx].Offset

	longPath := "/a/very/long/replacement/runpath/that/does/not/fit/in/the/original/dynstr/pool"
	if err := f.SetRunPath(0x1000, longPath); err != nil {
		t.Fatalf("SetRunPath: %v", err)
	}

	if !f.seemsValid() {
		t.Fatal("file no longer seems structurally valid after relayout")
	}

	interpSh := f.SectionHeaders[f.idxInterp]
	if interpSh.Offset == originalInterpOff {
		t.Fatal(".interp did not move during relayout, test does not exercise the fix")
	}
	var interpSeg *ProgramHeader
	for i := range f.ProgramHeaders {
		if f.ProgramHeaders[i].Type == PTInterp {
			interpSeg = &f.ProgramHeaders[i]
		}
	}
	if interpSeg == nil {
		t.Fatal("PT_INTERP missing")
	}
	if interpSeg.Offset != interpSh.Offset || interpSeg.FileSz != interpSh.Size {
		t.Fatalf("PT_INTERP = {offset:%d filesz:%d}, want {offset:%d filesz:%d}",
			interpSeg.Offset, interpSeg.FileSz, interpSh.Offset, interpSh.Size)
	}

	noteSh := f.SectionHeaders[noteIdx]
	if noteSh.Offset == originalNoteOff {
		t.Fatal(".note.gnu.build-id did not move during relayout, test does not exercise the fix")
	}
	var noteSeg *ProgramHeader
	for i := range f.ProgramHeaders {
		if f.ProgramHeaders[i].Type == PTNote {
			noteSeg = &f.ProgramHeaders[i]
		}
	}
	if noteSeg == nil {
		t.Fatal("PT_NOTE missing")
	}
	if noteSeg.Offset != noteSh.Offset || noteSh.endOffset() > noteSeg.endOffset() {
		t.Fatalf("PT_NOTE = {offset:%d end:%d}, want to cover note section {offset:%d end:%d}",
			noteSeg.Offset, noteSeg.endOffset(), noteSh.Offset, noteSh.endOffset())
	}

	reparsed, err := Parse("test", f.Bytes())
	if err != nil {
		t.Fatalf("reparse after relayout: %v", err)
	}
	if got := reparsed.GetRunPath(); got != longPath {
		t.Fatalf("GetRunPath() after relayout = %q, want %q", got, longPath)
	}
}

// TestSetRunPathEmptyRemovesRunPathOnly covers spec.md §4.4: clearing
// RUNPATH with "" removes the DT_RUNPATH entry. The fixture carries no
// DT_RPATH; TestSetRunPathEmptyLeavesRPathAlone covers that tag.
func TestSetRunPathEmptyRemovesRunPathOnly(t *testing.T) {
	buf := buildMinimalDynFile("/old/rpath", false)
	f, err := Parse("test.so", buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if err := f.SetRunPath(0x1000, ""); err != nil {
		t.Fatalf("SetRunPath(\"\"): %v", err)
	}
	if f.Dynamic.has(DTRunPath) {
		t.Fatal("DT_RUNPATH still present after clearing")
	}

	reparsed, err := Parse("test.so", f.Bytes())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if got := reparsed.GetRunPath(); got != "" {
		t.Fatalf("GetRunPath() after clear = %q, want empty", got)
	}
}

// TestSetRunPathEmptyLeavesRPathAlone covers the same spec.md §4.4
// clause for a binary that only ever had the legacy DT_RPATH tag:
// setRunPath("") must be a no-op, not blank the RPATH string.
func TestSetRunPathEmptyLeavesRPathAlone(t *testing.T) {
	buf := buildMinimalDynFile("/old/rpath", true)
	f, err := Parse("test.so", buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if err := f.SetRunPath(0x1000, ""); err != nil {
		t.Fatalf("SetRunPath(\"\"): %v", err)
	}

	reparsed, err := Parse("test.so", f.Bytes())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if got := reparsed.GetRunPath(); got != "/old/rpath" {
		t.Fatalf("GetRunPath() after clearing RUNPATH = %q, want /old/rpath (RPath left alone)", got)
	}
}

func TestMinimumSizeToWriteFile(t *testing.T) {
	buf := buildMinimalDynFile("/old/rpath", false)
	f, err := Parse("test.so", buf)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := f.MinimumSizeToWriteFile(); got == 0 || got > uint64(len(f.Bytes())) {
		t.Fatalf("MinimumSizeToWriteFile() = %d, want in (0, %d]", got, len(f.Bytes()))
	}
}
