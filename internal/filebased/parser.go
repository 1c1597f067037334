package filebased

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// FileTypeParser turns files of one type into records and schemas.
type FileTypeParser interface {
	// InferSchema returns an object schema describing the file's records.
	InferSchema(ctx context.Context, cfg StreamConfig, file RemoteFile, reader StreamReader) (map[string]any, error)

	// ParseRecords returns the file's records. schema, when non-nil, is the
	// stream schema and may be used to cast values.
	ParseRecords(ctx context.Context, cfg StreamConfig, file RemoteFile, reader StreamReader, schema map[string]any) ([]map[string]any, error)
}

// Parsers maps a file type to its parser.
type Parsers map[string]FileTypeParser

// DefaultParsers returns the built-in csv and jsonl parsers.
func DefaultParsers() Parsers {
	return Parsers{
		"csv":   CSVParser{},
		"jsonl": JSONLParser{},
	}
}

// Copy returns a shallow copy of the registry.
func (p Parsers) Copy() Parsers {
	if p == nil {
		return nil
	}
	out := make(Parsers, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// CSVParser reads delimited text with a header row. Every column is
// inferred as a string; values are cast when a schema declares other types.
//
// Format options: "delimiter" (default ","), "skip_rows_before_header"
// (default 0), "null_values" (strings read as null).
type CSVParser struct{}

type csvOptions struct {
	delimiter  rune
	skipRows   int
	nullValues []string
}

func parseCSVOptions(format map[string]any) (csvOptions, error) {
	opts := csvOptions{delimiter: ','}
	if d, ok := format["delimiter"].(string); ok && d != "" {
		if d == `\t` {
			d = "\t"
		}
		runes := []rune(d)
		if len(runes) != 1 {
			return opts, fmt.Errorf("delimiter must be a single character, got %q", d)
		}
		opts.delimiter = runes[0]
	}
	switch n := format["skip_rows_before_header"].(type) {
	case int:
		opts.skipRows = n
	case float64:
		opts.skipRows = int(n)
	}
	if values, ok := format["null_values"].([]any); ok {
		for _, v := range values {
			if s, ok := v.(string); ok {
				opts.nullValues = append(opts.nullValues, s)
			}
		}
	}
	return opts, nil
}

// read returns the header and data rows of a file.
func (CSVParser) read(ctx context.Context, cfg StreamConfig, file RemoteFile, reader StreamReader) ([]string, [][]string, error) {
	opts, err := parseCSVOptions(cfg.Format)
	if err != nil {
		return nil, nil, newError(CodeRecordParse, cfg.Name, file.URI, "invalid csv format options", err)
	}
	rc, err := reader.Open(ctx, file)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	r := csv.NewReader(rc)
	r.Comma = opts.delimiter
	r.FieldsPerRecord = -1

	var header []string
	var rows [][]string
	for line := 0; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, newError(CodeRecordParse, cfg.Name, file.URI, "error parsing record", err)
		}
		if line < opts.skipRows {
			continue
		}
		if header == nil {
			header = row
			continue
		}
		if len(row) != len(header) {
			return nil, nil, newError(CodeRecordParse, cfg.Name, file.URI,
				fmt.Sprintf("row %d has %d fields, header has %d", line+1, len(row), len(header)), nil)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// InferSchema implements FileTypeParser.
func (p CSVParser) InferSchema(ctx context.Context, cfg StreamConfig, file RemoteFile, reader StreamReader) (map[string]any, error) {
	header, _, err := p.read(ctx, cfg, file, reader)
	if err != nil {
		return nil, err
	}
	props := make(map[string]any, len(header))
	for _, col := range header {
		props[col] = map[string]any{"type": typeString}
	}
	return newObjectSchema(props), nil
}

// ParseRecords implements FileTypeParser.
func (p CSVParser) ParseRecords(ctx context.Context, cfg StreamConfig, file RemoteFile, reader StreamReader, schema map[string]any) ([]map[string]any, error) {
	opts, err := parseCSVOptions(cfg.Format)
	if err != nil {
		return nil, newError(CodeRecordParse, cfg.Name, file.URI, "invalid csv format options", err)
	}
	header, rows, err := p.read(ctx, cfg, file, reader)
	if err != nil {
		return nil, err
	}
	props := schemaProperties(schema)
	records := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		rec := make(map[string]any, len(header))
		for i, col := range header {
			if slices.Contains(opts.nullValues, row[i]) {
				rec[col] = nil
				continue
			}
			rec[col] = castCSVValue(row[i], schemaTypes(props[col]))
		}
		records = append(records, rec)
	}
	return records, nil
}

// castCSVValue converts a cell to the first declared non-string type it
// parses as. Cells that fail to parse stay strings.
func castCSVValue(cell string, types []string) any {
	for _, t := range types {
		switch t {
		case typeString:
			return cell
		case typeInteger:
			if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
				return n
			}
		case typeNumber:
			if f, err := strconv.ParseFloat(cell, 64); err == nil {
				return f
			}
		case typeBoolean:
			switch strings.ToLower(cell) {
			case "true", "1", "yes", "y", "t":
				return true
			case "false", "0", "no", "n", "f":
				return false
			}
		case typeObject, typeArray:
			var v any
			if err := json.Unmarshal([]byte(cell), &v); err == nil {
				return v
			}
		}
	}
	return cell
}

// JSONLParser reads one JSON object per line. Blank lines are skipped.
type JSONLParser struct{}

const maxJSONLLine = 10 << 20

func (JSONLParser) read(ctx context.Context, cfg StreamConfig, file RemoteFile, reader StreamReader) ([]map[string]any, error) {
	rc, err := reader.Open(ctx, file)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, newError(CodeRecordParse, cfg.Name, file.URI, fmt.Sprintf("error parsing record at line %d", line), err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, newError(CodeRecordParse, cfg.Name, file.URI, "error reading file", err)
	}
	return records, nil
}

// InferSchema implements FileTypeParser.
func (p JSONLParser) InferSchema(ctx context.Context, cfg StreamConfig, file RemoteFile, reader StreamReader) (map[string]any, error) {
	records, err := p.read(ctx, cfg, file, reader)
	if err != nil {
		return nil, err
	}
	schema := newObjectSchema(nil)
	for _, rec := range records {
		schema, err = mergeSchemas(schema, inferRecordSchema(rec))
		if err != nil {
			return nil, newError(CodeSchemaInference, cfg.Name, file.URI, "cannot merge record schemas", err)
		}
	}
	return schema, nil
}

// ParseRecords implements FileTypeParser.
func (p JSONLParser) ParseRecords(ctx context.Context, cfg StreamConfig, file RemoteFile, reader StreamReader, _ map[string]any) ([]map[string]any, error) {
	return p.read(ctx, cfg, file, reader)
}
