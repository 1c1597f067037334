package filebased

import (
	"fmt"
	"time"
)

// Timestamp layouts.
const (
	// CursorTimeLayout formats timestamps in cursor state and record fields.
	CursorTimeLayout = "2006-01-02T15:04:05.000000Z"
)

// Fields added to every record and stream schema.
const (
	FieldLastModified = "_ab_source_file_last_modified"
	FieldFileURL      = "_ab_source_file_url"
)

// RemoteFile identifies one file served by a StreamReader.
type RemoteFile struct {
	URI          string
	LastModified time.Time
}

// InMemoryFile is a file held by the in-memory stream reader.
//
// Contents depends on the source's file type:
//   - csv: rows ([][]any, [][]string or []any of []any), first row is the header
//   - jsonl: records ([]map[string]any or []any of objects)
//   - any type: a string or []byte is served verbatim
type InMemoryFile struct {
	Contents     any    `json:"contents" yaml:"contents"`
	LastModified string `json:"last_modified" yaml:"last_modified"`
}

// ParseTime parses an RFC 3339 timestamp with optional fractional seconds.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatTime formats t with CursorTimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(CursorTimeLayout)
}
