package elf

import "testing"

func TestDynamicSectionSetValueOverwriteAndInsert(t *testing.T) {
	ds := DynamicSection{Entries: []DynamicEntry{
		{Tag: DTNeeded, Val: 1},
		{Tag: DTNull},
	}}

	ds.setValue(DTNeeded, 99)
	if v, ok := ds.value(DTNeeded); !ok || v != 99 {
		t.Fatalf("setValue overwrite failed: got %d, ok=%v", v, ok)
	}

	ds.setValue(DTStrSz, 42)
	if v, ok := ds.value(DTStrSz); !ok || v != 42 {
		t.Fatalf("setValue insert failed: got %d, ok=%v", v, ok)
	}
	if ds.Entries[len(ds.Entries)-1].Tag != DTNull {
		t.Fatalf("DT_NULL must remain the last entry, got %v", ds.Entries[len(ds.Entries)-1].Tag)
	}
}

func TestDynamicSectionInsertBeforeNullNoExistingNull(t *testing.T) {
	ds := DynamicSection{}
	ds.insertBeforeNull(DynamicEntry{Tag: DTSoName, Val: 5})
	if len(ds.Entries) != 2 || ds.Entries[0].Tag != DTSoName || ds.Entries[1].Tag != DTNull {
		t.Fatalf("unexpected entries: %+v", ds.Entries)
	}
}

func TestDynamicSectionNeededValues(t *testing.T) {
	ds := DynamicSection{Entries: []DynamicEntry{
		{Tag: DTNeeded, Val: 1},
		{Tag: DTSoName, Val: 2},
		{Tag: DTNeeded, Val: 3},
		{Tag: DTNull},
	}}
	needed := ds.neededValues()
	if len(needed) != 2 || needed[0] != 1 || needed[1] != 3 {
		t.Fatalf("neededValues() = %v, want [1 3]", needed)
	}
}

func TestDynamicSectionRoundTrip(t *testing.T) {
	c := newCodec(Class64, Data2LSB)
	ds := DynamicSection{Entries: []DynamicEntry{
		{Tag: DTNeeded, Val: 1},
		{Tag: DTRunPath, Val: 2},
		{Tag: DTNull},
	}}
	buf := make([]byte, ds.byteCount(c))
	ds.put(c, buf)
	got := parseDynamicSection(c, buf)
	if len(got.Entries) != len(ds.Entries) {
		t.Fatalf("round trip entry count = %d, want %d", len(got.Entries), len(ds.Entries))
	}
	for i := range ds.Entries {
		if got.Entries[i] != ds.Entries[i] {
			t.Fatalf("entry %d mismatch: got %+v, want %+v", i, got.Entries[i], ds.Entries[i])
		}
	}
}
