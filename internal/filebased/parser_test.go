package filebased

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimestamp = "2023-06-05T03:54:07.000Z"

func csvStream() StreamConfig {
	return StreamConfig{Name: "stream1", FileType: "csv", Globs: []string{"**"}}
}

func jsonlStream() StreamConfig {
	return StreamConfig{Name: "stream1", FileType: "jsonl", Globs: []string{"**"}}
}

func memFile(t *testing.T, uri string) RemoteFile {
	t.Helper()
	ts, err := ParseTime(testTimestamp)
	require.NoError(t, err)
	return RemoteFile{URI: uri, LastModified: ts}
}

func TestCSVParser_InfersStringColumns(t *testing.T) {
	reader := NewInMemoryStreamReader(map[string]InMemoryFile{
		"a.csv": {Contents: [][]any{{"col1", "col2"}, {"val11", 12}}, LastModified: testTimestamp},
	}, "csv", nil)

	schema, err := CSVParser{}.InferSchema(context.Background(), csvStream(), memFile(t, "a.csv"), reader)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"type": "object",
		"properties": map[string]any{
			"col1": map[string]any{"type": "string"},
			"col2": map[string]any{"type": "string"},
		},
	}, schema)
}

func TestCSVParser_ParseRecords(t *testing.T) {
	reader := NewInMemoryStreamReader(map[string]InMemoryFile{
		"a.csv": {Contents: [][]any{{"col1", "col2"}, {"val11", "val12"}, {"val21", "val22"}}, LastModified: testTimestamp},
	}, "csv", nil)

	records, err := CSVParser{}.ParseRecords(context.Background(), csvStream(), memFile(t, "a.csv"), reader, nil)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"col1": "val11", "col2": "val12"},
		{"col1": "val21", "col2": "val22"},
	}, records)
}

func TestCSVParser_CastsToSchemaTypes(t *testing.T) {
	reader := NewInMemoryStreamReader(map[string]InMemoryFile{
		"a.csv": {Contents: "id,price,active,tags,name\n1,2.5,true,\"[1,2]\",x\nnope,3,0,[],y\n", LastModified: testTimestamp},
	}, "csv", nil)
	schema := newObjectSchema(map[string]any{
		"id":     map[string]any{"type": "integer"},
		"price":  map[string]any{"type": "number"},
		"active": map[string]any{"type": "boolean"},
		"tags":   map[string]any{"type": "array"},
		"name":   map[string]any{"type": "string"},
	})

	records, err := CSVParser{}.ParseRecords(context.Background(), csvStream(), memFile(t, "a.csv"), reader, schema)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, int64(1), records[0]["id"])
	assert.Equal(t, 2.5, records[0]["price"])
	assert.Equal(t, true, records[0]["active"])
	assert.Equal(t, []any{float64(1), float64(2)}, records[0]["tags"])
	assert.Equal(t, "x", records[0]["name"])

	// unparsable cells stay strings
	assert.Equal(t, "nope", records[1]["id"])
	assert.Equal(t, false, records[1]["active"])
}

func TestCSVParser_FormatOptions(t *testing.T) {
	reader := NewInMemoryStreamReader(map[string]InMemoryFile{
		"a.csv": {Contents: "generated by exporter\ncol1;col2\nval11;NULL\n", LastModified: testTimestamp},
	}, "csv", nil)
	cfg := csvStream()
	cfg.Format = map[string]any{
		"delimiter":               ";",
		"skip_rows_before_header": 1,
		"null_values":             []any{"NULL"},
	}

	records, err := CSVParser{}.ParseRecords(context.Background(), cfg, memFile(t, "a.csv"), reader, nil)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"col1": "val11", "col2": nil}}, records)
}

func TestCSVParser_RowLengthMismatch(t *testing.T) {
	reader := NewInMemoryStreamReader(map[string]InMemoryFile{
		"a.csv": {Contents: "col1,col2\nval11\n", LastModified: testTimestamp},
	}, "csv", nil)

	_, err := CSVParser{}.ParseRecords(context.Background(), csvStream(), memFile(t, "a.csv"), reader, nil)
	require.Error(t, err)
	assert.Equal(t, CodeRecordParse, CodeOf(err))
}

func TestCSVParser_BadDelimiter(t *testing.T) {
	reader := NewInMemoryStreamReader(map[string]InMemoryFile{
		"a.csv": {Contents: "col1\nv\n", LastModified: testTimestamp},
	}, "csv", nil)
	cfg := csvStream()
	cfg.Format = map[string]any{"delimiter": ";;"}

	_, err := CSVParser{}.InferSchema(context.Background(), cfg, memFile(t, "a.csv"), reader)
	assert.Equal(t, CodeRecordParse, CodeOf(err))
}

func TestJSONLParser_InfersAndWidens(t *testing.T) {
	reader := NewInMemoryStreamReader(map[string]InMemoryFile{
		"a.jsonl": {Contents: []any{
			map[string]any{"col1": "val11", "col2": 1, "col3": nil},
			map[string]any{"col1": "val21", "col2": 1.5, "col3": true, "col4": map[string]any{"k": "v"}},
			map[string]any{"col5": []any{1}},
		}, LastModified: testTimestamp},
	}, "jsonl", nil)

	schema, err := JSONLParser{}.InferSchema(context.Background(), jsonlStream(), memFile(t, "a.jsonl"), reader)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"col1": map[string]any{"type": "string"},
		"col2": map[string]any{"type": "number"},
		"col3": map[string]any{"type": "boolean"},
		"col4": map[string]any{"type": "object"},
		"col5": map[string]any{"type": "array"},
	}, schemaProperties(schema))
}

func TestJSONLParser_ConflictingTypes(t *testing.T) {
	reader := NewInMemoryStreamReader(map[string]InMemoryFile{
		"a.jsonl": {Contents: "{\"col1\": \"a\"}\n{\"col1\": 2}\n", LastModified: testTimestamp},
	}, "jsonl", nil)

	_, err := JSONLParser{}.InferSchema(context.Background(), jsonlStream(), memFile(t, "a.jsonl"), reader)
	assert.Equal(t, CodeSchemaInference, CodeOf(err))
}

func TestJSONLParser_SkipsBlankLinesAndReportsBadLine(t *testing.T) {
	reader := NewInMemoryStreamReader(map[string]InMemoryFile{
		"good.jsonl": {Contents: "{\"a\": 1}\n\n{\"a\": 2}\n", LastModified: testTimestamp},
		"bad.jsonl":  {Contents: "{\"a\": 1}\n{not json\n", LastModified: testTimestamp},
	}, "jsonl", nil)

	records, err := JSONLParser{}.ParseRecords(context.Background(), jsonlStream(), memFile(t, "good.jsonl"), reader, nil)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"a": float64(1)}, {"a": float64(2)}}, records)

	_, err = JSONLParser{}.ParseRecords(context.Background(), jsonlStream(), memFile(t, "bad.jsonl"), reader, nil)
	require.Error(t, err)
	assert.Equal(t, CodeRecordParse, CodeOf(err))
	assert.Contains(t, err.Error(), "line 2")
}

func TestInMemoryStreamReader_GlobsAndOrdering(t *testing.T) {
	reader := NewInMemoryStreamReader(map[string]InMemoryFile{
		"b.csv":           {Contents: "", LastModified: "2023-06-05T03:54:07.000Z"},
		"a.csv":           {Contents: "", LastModified: "2023-06-05T03:54:07.000Z"},
		"old.csv":         {Contents: "", LastModified: "2023-06-04T03:54:07.000Z"},
		"nested/deep.csv": {Contents: "", LastModified: "2023-06-06T03:54:07.000Z"},
		"notes.txt":       {Contents: "", LastModified: "2023-06-06T03:54:07.000Z"},
	}, "csv", nil)

	files, err := reader.GetMatchingFiles(context.Background(), []string{"**/*.csv"})
	require.NoError(t, err)
	uris := make([]string, len(files))
	for i, f := range files {
		uris[i] = f.URI
	}
	assert.Equal(t, []string{"old.csv", "a.csv", "b.csv", "nested/deep.csv"}, uris)

	files, err = reader.GetMatchingFiles(context.Background(), []string{"*.csv"})
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestInMemoryStreamReader_BadTimestamp(t *testing.T) {
	reader := NewInMemoryStreamReader(map[string]InMemoryFile{
		"a.csv": {Contents: "", LastModified: "yesterday"},
	}, "csv", nil)

	_, err := reader.GetMatchingFiles(context.Background(), []string{"**"})
	assert.Equal(t, CodeInvalidFile, CodeOf(err))
}

func TestInMemoryStreamReader_WriteOptions(t *testing.T) {
	reader := NewInMemoryStreamReader(map[string]InMemoryFile{
		"a.csv": {Contents: [][]string{{"col1", "col2"}, {"v1", "v2"}}, LastModified: testTimestamp},
	}, "csv", map[string]any{"delimiter": "\t", "line_terminator": "\r\n"})

	rc, err := reader.Open(context.Background(), memFile(t, "a.csv"))
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "col1\tcol2\r\nv1\tv2\r\n", string(data))
}

func TestInMemoryStreamReader_MissingFile(t *testing.T) {
	reader := NewInMemoryStreamReader(nil, "csv", nil)

	_, err := reader.Open(context.Background(), memFile(t, "a.csv"))
	assert.True(t, errors.Is(err, ErrorForCode(CodeInvalidFile)))
}
