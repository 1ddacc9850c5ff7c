package trace

import (
	"bufio"
	"io"
)

// TraceLevel controls the verbosity of item tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelItems captures every item lifecycle event.
	TraceLevelItems TraceLevel = "items"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:  true,
	TraceLevelItems: true,
	"":              true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	// Components restricts recording to the listed component IDs (empty = all).
	Components []string
}

// ItemTrace collects item lifecycle records during a run.
type ItemTrace struct {
	Config  TraceConfig
	Records []ItemRecord

	filter map[string]bool
}

// NewItemTrace creates an ItemTrace ready for recording.
func NewItemTrace(config TraceConfig) *ItemTrace {
	t := &ItemTrace{
		Config:  config,
		Records: make([]ItemRecord, 0),
	}
	if len(config.Components) > 0 {
		t.filter = make(map[string]bool, len(config.Components))
		for _, c := range config.Components {
			t.filter[c] = true
		}
	}
	return t
}

// Record appends a record unless the level is none or the component is filtered out.
func (t *ItemTrace) Record(record ItemRecord) {
	if t.Config.Level != TraceLevelItems {
		return
	}
	if t.filter != nil && !t.filter[record.Component] {
		return
	}
	t.Records = append(t.Records, record)
}

// ForItem returns the records of one item in recording order.
func (t *ItemTrace) ForItem(itemID string) []ItemRecord {
	var out []ItemRecord
	for _, r := range t.Records {
		if r.ItemID == itemID {
			out = append(out, r)
		}
	}
	return out
}

// WriteTo writes the trace as tab-separated lines: time, item, kind, component.
func (t *ItemTrace) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, r := range t.Records {
		k, err := bw.WriteString(r.String() + "\n")
		n += int64(k)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}
