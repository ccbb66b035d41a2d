package models

const (
	LogEntryKindBlock LogEntryKind = "block"
	LogEntryKindLine  LogEntryKind = "line"
	LogEntryKindError LogEntryKind = "error"
)

type LogEntryKind string

func (m LogEntryKind) String() string {
	return string(m)
}

// LogEntry is a single entry in an environment's structured log file.
// Block entries define a named block (typically one per command); line and
// error entries nominate the block they belong to via ParentBlockName.
type LogEntry struct {
	Kind      LogEntryKind `json:"kind"`
	SeqNo     int          `json:"seq_no"`
	LineNo    int          `json:"line_no,omitempty"`
	Timestamp Time         `json:"timestamp"`
	Text      string       `json:"text"`
	// Name is set on block entries only and must be unique within the log.
	Name ResourceName `json:"name,omitempty"`
	// ParentBlockName nominates the block this entry appears under, if any.
	ParentBlockName *ResourceName `json:"parent_block_name,omitempty"`
}

func NewLogEntryBlock(timestamp Time, text string, name ResourceName, parentBlockName *ResourceName) *LogEntry {
	return &LogEntry{
		Kind:            LogEntryKindBlock,
		Timestamp:       timestamp,
		Text:            text,
		Name:            name,
		ParentBlockName: parentBlockName,
	}
}

func NewLogEntryLine(timestamp Time, text string, parentBlockName *ResourceName) *LogEntry {
	return &LogEntry{
		Kind:            LogEntryKindLine,
		Timestamp:       timestamp,
		Text:            text,
		ParentBlockName: parentBlockName,
	}
}

func NewLogEntryError(timestamp Time, text string, parentBlockName *ResourceName) *LogEntry {
	return &LogEntry{
		Kind:            LogEntryKindError,
		Timestamp:       timestamp,
		Text:            text,
		ParentBlockName: parentBlockName,
	}
}

// IsPlainText returns true if the entry carries user-visible text that is
// subject to secret scrubbing and line numbering.
func (m *LogEntry) IsPlainText() bool {
	return m.Kind == LogEntryKindLine || m.Kind == LogEntryKindError
}
