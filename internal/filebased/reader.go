package filebased

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/roach88/filescenario/internal/canonical"
)

// StreamReader lists and opens the files behind a stream.
type StreamReader interface {
	// GetMatchingFiles returns files matching any of the globs, sorted by
	// last modification time then URI.
	GetMatchingFiles(ctx context.Context, globs []string) ([]RemoteFile, error)

	// Open returns the file's serialized contents.
	Open(ctx context.Context, file RemoteFile) (io.ReadCloser, error)
}

// InMemoryStreamReader serves InMemoryFiles, serializing their contents for
// the configured file type.
type InMemoryStreamReader struct {
	files        map[string]InMemoryFile
	fileType     string
	writeOptions map[string]any
}

// NewInMemoryStreamReader creates a reader over files. writeOptions tune
// csv serialization: "delimiter" (single character) and "line_terminator"
// ("\n" or "\r\n").
func NewInMemoryStreamReader(files map[string]InMemoryFile, fileType string, writeOptions map[string]any) *InMemoryStreamReader {
	return &InMemoryStreamReader{files: files, fileType: fileType, writeOptions: writeOptions}
}

// Clone returns a reader over deep copies of the files and write options.
func (r *InMemoryStreamReader) Clone() StreamReader {
	var files map[string]InMemoryFile
	if r.files != nil {
		files = make(map[string]InMemoryFile, len(r.files))
		for uri, f := range r.files {
			files[uri] = InMemoryFile{Contents: canonical.DeepCopy(f.Contents), LastModified: f.LastModified}
		}
	}
	return &InMemoryStreamReader{files: files, fileType: r.fileType, writeOptions: canonical.CopyMap(r.writeOptions)}
}

// GetMatchingFiles implements StreamReader.
func (r *InMemoryStreamReader) GetMatchingFiles(ctx context.Context, globs []string) ([]RemoteFile, error) {
	var matched []RemoteFile
	for uri, f := range r.files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := matchesAny(globs, uri)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		lastModified, err := ParseTime(f.LastModified)
		if err != nil {
			return nil, newError(CodeInvalidFile, "", uri, "bad last_modified", err)
		}
		matched = append(matched, RemoteFile{URI: uri, LastModified: lastModified})
	}
	sortFiles(matched)
	return matched, nil
}

// Open implements StreamReader.
func (r *InMemoryStreamReader) Open(ctx context.Context, file RemoteFile) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, ok := r.files[file.URI]
	if !ok {
		return nil, newError(CodeInvalidFile, "", file.URI, "file not found", nil)
	}
	data, err := r.serialize(f.Contents)
	if err != nil {
		return nil, newError(CodeInvalidFile, "", file.URI, "cannot serialize contents", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (r *InMemoryStreamReader) serialize(contents any) ([]byte, error) {
	switch c := contents.(type) {
	case string:
		return []byte(c), nil
	case []byte:
		return c, nil
	case nil:
		return nil, nil
	}
	switch r.fileType {
	case "csv":
		rows, err := toRows(contents)
		if err != nil {
			return nil, err
		}
		return r.writeCSV(rows)
	case "jsonl":
		records, err := toRecords(contents)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		for _, rec := range records {
			line, err := json.Marshal(rec)
			if err != nil {
				return nil, err
			}
			buf.Write(line)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("file type %q needs string or []byte contents, got %T", r.fileType, contents)
	}
}

func (r *InMemoryStreamReader) writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if d, ok := r.writeOptions["delimiter"].(string); ok && d != "" {
		runes := []rune(d)
		if len(runes) != 1 {
			return nil, fmt.Errorf("delimiter must be a single character, got %q", d)
		}
		w.Comma = runes[0]
	}
	if lt, ok := r.writeOptions["line_terminator"].(string); ok && lt == "\r\n" {
		w.UseCRLF = true
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// toRows accepts the row shapes produced by Go literals and YAML decoding.
func toRows(contents any) ([][]string, error) {
	switch c := contents.(type) {
	case [][]string:
		return c, nil
	case [][]any:
		rows := make([][]string, len(c))
		for i, row := range c {
			rows[i] = cellsToStrings(row)
		}
		return rows, nil
	case []any:
		rows := make([][]string, len(c))
		for i, row := range c {
			cells, ok := row.([]any)
			if !ok {
				return nil, fmt.Errorf("row %d: expected a list of cells, got %T", i, row)
			}
			rows[i] = cellsToStrings(cells)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("csv contents must be rows, got %T", contents)
	}
}

func cellsToStrings(cells []any) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c == nil {
			continue
		}
		out[i] = fmt.Sprint(c)
	}
	return out
}

func toRecords(contents any) ([]map[string]any, error) {
	switch c := contents.(type) {
	case []map[string]any:
		return c, nil
	case []any:
		records := make([]map[string]any, len(c))
		for i, rec := range c {
			m, ok := rec.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("record %d: expected an object, got %T", i, rec)
			}
			records[i] = m
		}
		return records, nil
	default:
		return nil, fmt.Errorf("jsonl contents must be records, got %T", contents)
	}
}

func matchesAny(globs []string, uri string) (bool, error) {
	for _, g := range globs {
		ok, err := doublestar.Match(g, uri)
		if err != nil {
			return false, fmt.Errorf("invalid glob %q: %w", g, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func sortFiles(files []RemoteFile) {
	sort.Slice(files, func(i, j int) bool {
		if !files[i].LastModified.Equal(files[j].LastModified) {
			return files[i].LastModified.Before(files[j].LastModified)
		}
		return files[i].URI < files[j].URI
	})
}
