package trace

import (
	"bytes"
	"testing"
)

func TestItemTrace_Record_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for items
	tr := NewItemTrace(TraceConfig{Level: TraceLevelItems})

	// WHEN a create record is recorded
	tr.Record(ItemRecord{Time: 1, ItemID: "src-1", Component: "src", Kind: KindCreate})

	// THEN the trace contains one record with correct data
	if len(tr.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(tr.Records))
	}
	if tr.Records[0].ItemID != "src-1" {
		t.Errorf("expected item ID src-1, got %s", tr.Records[0].ItemID)
	}
	if tr.Records[0].Kind != KindCreate {
		t.Errorf("expected kind create, got %s", tr.Records[0].Kind)
	}
}

func TestItemTrace_LevelNone_RecordsNothing(t *testing.T) {
	// GIVEN a trace with level none
	tr := NewItemTrace(TraceConfig{Level: TraceLevelNone})

	// WHEN a record is added
	tr.Record(ItemRecord{Time: 1, ItemID: "src-1", Component: "src", Kind: KindCreate})

	// THEN nothing is kept
	if len(tr.Records) != 0 {
		t.Errorf("expected 0 records, got %d", len(tr.Records))
	}
}

func TestItemTrace_ComponentFilter(t *testing.T) {
	// GIVEN a trace restricted to the sink
	tr := NewItemTrace(TraceConfig{Level: TraceLevelItems, Components: []string{"sink"}})

	// WHEN records from several components arrive
	tr.Record(ItemRecord{Time: 1, ItemID: "a", Component: "src", Kind: KindCreate})
	tr.Record(ItemRecord{Time: 3, ItemID: "a", Component: "sink", Kind: KindAbsorb})

	// THEN only the sink record is kept
	if len(tr.Records) != 1 || tr.Records[0].Component != "sink" {
		t.Fatalf("expected only the sink record, got %v", tr.Records)
	}
}

func TestItemTrace_ForItem_PreservesOrder(t *testing.T) {
	tr := NewItemTrace(TraceConfig{Level: TraceLevelItems})
	tr.Record(ItemRecord{Time: 1, ItemID: "a", Component: "src", Kind: KindCreate})
	tr.Record(ItemRecord{Time: 1, ItemID: "b", Component: "src", Kind: KindCreate})
	tr.Record(ItemRecord{Time: 2, ItemID: "a", Component: "buf", Kind: KindEnter})

	got := tr.ForItem("a")
	if len(got) != 2 {
		t.Fatalf("expected 2 records for a, got %d", len(got))
	}
	if got[0].Kind != KindCreate || got[1].Kind != KindEnter {
		t.Errorf("order not preserved: %v", got)
	}
}

func TestItemTrace_WriteTo_TabSeparated(t *testing.T) {
	tr := NewItemTrace(TraceConfig{Level: TraceLevelItems})
	tr.Record(ItemRecord{Time: 1, ItemID: "a", Component: "src", Kind: KindCreate})
	tr.Record(ItemRecord{Time: 2.5, ItemID: "a", Component: "buf", Kind: KindEnter})

	var buf bytes.Buffer
	if _, err := tr.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	want := "1.000\ta\tcreate\tsrc\n2.500\ta\tenter\tbuf\n"
	if buf.String() != want {
		t.Errorf("WriteTo = %q, want %q", buf.String(), want)
	}
}

func TestIsValidTraceLevel_ValidLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"items", true},
		{"", true},
		{"decisions", false},
		{"ITEMS", false},
	}
	for _, tt := range tests {
		if got := IsValidTraceLevel(tt.level); got != tt.valid {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
		}
	}
}
