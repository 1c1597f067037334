package store

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filescenario/internal/protocol"
)

func writeTestRun(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.WriteRun(t.Context(), Run{ID: id, Scenario: "csv_single_stream", SyncMode: protocol.SyncModeFullRefresh, Seq: 1}))
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := t.Context()

	run := Run{ID: "run-1", Scenario: "first", SyncMode: protocol.SyncModeIncremental, Seq: 1}
	require.NoError(t, s.WriteRun(ctx, run))

	run.Scenario = "second"
	require.NoError(t, s.WriteRun(ctx, run))

	got, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Scenario)
	assert.Equal(t, protocol.SyncModeIncremental, got.SyncMode)
}

func TestWriteRun_RejectsUnknownSyncMode(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteRun(t.Context(), Run{ID: "run-1", Scenario: "s", SyncMode: "sometimes"})
	assert.Error(t, err)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(t.Context(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestWriteMessage_RequiresRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteMessage(t.Context(), "missing", 1, protocol.NewLog(protocol.LogLevelInfo, "hello"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write message")
}

func TestWriteMessage_DuplicateSeq(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")
	ctx := t.Context()

	require.NoError(t, s.WriteMessage(ctx, "run-1", 1, protocol.NewLog(protocol.LogLevelInfo, "a")))
	assert.Error(t, s.WriteMessage(ctx, "run-1", 1, protocol.NewLog(protocol.LogLevelInfo, "b")))
}

func TestWriteMessage_RejectsMissingPayload(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")

	err := s.WriteMessage(t.Context(), "run-1", 1, protocol.Message{Type: protocol.MessageTypeRecord})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECORD message has no payload")

	err = s.WriteMessage(t.Context(), "run-1", 2, protocol.Message{Type: "TRACE"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown message type "TRACE"`)
}

func TestWriteMessage_CanonicalPayload(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")

	msg := protocol.NewRecord(protocol.RecordMessage{
		Stream: "stream1",
		Data:   map[string]any{"b": "<2>", "a": 1},
	})
	require.NoError(t, s.WriteMessage(t.Context(), "run-1", 1, msg))

	var stream, payload string
	require.NoError(t, s.DB().QueryRow(`SELECT stream, payload FROM messages WHERE run_id = ?`, "run-1").Scan(&stream, &payload))
	assert.Equal(t, "stream1", stream)
	assert.Equal(t, `{"data":{"a":1,"b":"<2>"},"stream":"stream1"}`, payload)
}

func TestWriteMessages_Atomic(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")
	ctx := t.Context()

	seq := int64(0)
	next := func() int64 { seq++; return seq }

	_, err := s.WriteMessages(ctx, "run-1", []protocol.Message{
		protocol.NewLog(protocol.LogLevelInfo, "ok"),
		{Type: protocol.MessageTypeState},
	}, next)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message 1")

	n, err := s.CountMessages(ctx, "run-1")
	require.NoError(t, err)
	assert.Zero(t, n, "failed batch must not leave partial writes")

	n, err = s.WriteMessages(ctx, "run-1", []protocol.Message{
		protocol.NewLog(protocol.LogLevelInfo, "one"),
		protocol.NewLog(protocol.LogLevelInfo, "two"),
	}, next)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	msgs, err := s.ReadMessages(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	// Both messages of the failed batch drew a seq.
	assert.Equal(t, int64(3), msgs[0].Seq)
	assert.Equal(t, int64(4), msgs[1].Seq)
}
