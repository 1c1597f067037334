package filebased

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamConfig(fields map[string]any) map[string]any {
	s := map[string]any{"name": "stream1", "file_type": "csv"}
	for k, v := range fields {
		s[k] = v
	}
	return map[string]any{"streams": []any{s}}
}

func TestParseConfig_AppliesDefaults(t *testing.T) {
	cfg, err := ParseConfig(streamConfig(nil))
	require.NoError(t, err)
	require.Len(t, cfg.Streams, 1)

	s := cfg.Streams[0]
	assert.Equal(t, "stream1", s.Name)
	assert.Equal(t, "csv", s.FileType)
	assert.Equal(t, []string{"**"}, s.Globs)
	assert.Equal(t, PolicyEmitRecord, s.ValidationPolicy)
	assert.Equal(t, DefaultDaysToSyncIfHistoryIsFull, s.DaysToSyncIfHistoryIsFull)
}

func TestParseConfig_KeepsExplicitValues(t *testing.T) {
	cfg, err := ParseConfig(streamConfig(map[string]any{
		"globs":                           []any{"*.csv"},
		"validation_policy":               PolicySkipRecord,
		"input_schema":                    `{"col1": "string"}`,
		"primary_key":                     "col1",
		"days_to_sync_if_history_is_full": 7,
		"format":                          map[string]any{"delimiter": ";"},
	}))
	require.NoError(t, err)

	s := cfg.Streams[0]
	assert.Equal(t, []string{"*.csv"}, s.Globs)
	assert.Equal(t, PolicySkipRecord, s.ValidationPolicy)
	assert.Equal(t, "col1", s.PrimaryKey)
	assert.Equal(t, 7, s.DaysToSyncIfHistoryIsFull)
	assert.Equal(t, ";", s.Format["delimiter"])
}

func TestParseConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"missing streams", map[string]any{}},
		{"empty streams", map[string]any{"streams": []any{}}},
		{"unknown top-level key", map[string]any{
			"streams": []any{map[string]any{"name": "s", "file_type": "csv"}},
			"bucket":  "b",
		}},
		{"unknown stream key", streamConfig(map[string]any{"compression": "gzip"})},
		{"missing file type", map[string]any{"streams": []any{map[string]any{"name": "s"}}}},
		{"empty name", map[string]any{"streams": []any{map[string]any{"name": "", "file_type": "csv"}}}},
		{"bad validation policy", streamConfig(map[string]any{"validation_policy": "Drop Everything"})},
		{"days below one", streamConfig(map[string]any{"days_to_sync_if_history_is_full": 0})},
		{"fractional days", streamConfig(map[string]any{"days_to_sync_if_history_is_full": 1.5})},
		{"duplicate names", map[string]any{"streams": []any{
			map[string]any{"name": "s", "file_type": "csv"},
			map[string]any{"name": "s", "file_type": "jsonl"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrorForCode(CodeConfigValidation)), "got %v", err)
		})
	}
}

func TestParseConfig_FractionalDaysRejectedBySchema(t *testing.T) {
	_, err := ParseConfig(streamConfig(map[string]any{"days_to_sync_if_history_is_full": 1.5}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config does not match schema")
	assert.Contains(t, err.Error(), "days_to_sync_if_history_is_full")
}

func TestConfig_Stream(t *testing.T) {
	cfg, err := ParseConfig(streamConfig(nil))
	require.NoError(t, err)

	s, ok := cfg.Stream("stream1")
	assert.True(t, ok)
	assert.Equal(t, "stream1", s.Name)

	_, ok = cfg.Stream("missing")
	assert.False(t, ok)
}

func TestConnectorSpec_ListsConfigFields(t *testing.T) {
	spec := ConnectorSpec()
	assert.Equal(t, DocumentationURL, spec.DocumentationURL)

	props := spec.ConnectionSpecification["properties"].(map[string]any)
	assert.Contains(t, props, "streams")
	assert.Contains(t, props, "start_date")

	items := props["streams"].(map[string]any)["items"].(map[string]any)
	streamProps := items["properties"].(map[string]any)
	for _, field := range []string{"name", "file_type", "globs", "validation_policy", "input_schema", "primary_key", "days_to_sync_if_history_is_full", "format"} {
		assert.Contains(t, streamProps, field)
	}
}

func TestSourceError_MatchesByCode(t *testing.T) {
	err := newError(CodeEmptyStream, "stream1", "a.csv", "no files", nil)

	assert.True(t, errors.Is(err, ErrorForCode(CodeEmptyStream)))
	assert.False(t, errors.Is(err, ErrorForCode(CodeRecordParse)))
	assert.Equal(t, CodeEmptyStream, CodeOf(err))
	assert.Equal(t, "EMPTY_STREAM: no files (stream=stream1, file=a.csv)", err.Error())
}

func TestSourceError_UnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := newError(CodeRecordParse, "stream1", "", "bad row", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "RECORD_PARSE_ERROR: bad row (stream=stream1): boom", err.Error())
}

func TestKnownCode(t *testing.T) {
	assert.True(t, KnownCode("EMPTY_STREAM"))
	assert.True(t, KnownCode("STOP_SYNC_PER_SCHEMA_VALIDATION_POLICY"))
	assert.False(t, KnownCode("NOT_A_CODE"))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}
