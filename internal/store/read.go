package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/filescenario/internal/protocol"
)

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var run Run
	var mode string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, sync_mode, seq
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Scenario, &mode, &run.Seq)
	if err != nil {
		return Run{}, err
	}
	run.SyncMode = protocol.SyncMode(mode)
	return run, nil
}

// ReadMessages returns every message of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run has no messages.
func (s *Store) ReadMessages(ctx context.Context, runID string) ([]StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, type, payload
		FROM messages
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return scanMessages(rows)
}

// ReadRecords returns the records of a run in emission order.
func (s *Store) ReadRecords(ctx context.Context, runID string) ([]protocol.RecordMessage, error) {
	msgs, err := s.readType(ctx, runID, protocol.MessageTypeRecord)
	if err != nil {
		return nil, err
	}
	records := make([]protocol.RecordMessage, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, *m.Message.Record)
	}
	return records, nil
}

// ReadLogs returns the log messages of a run in emission order.
func (s *Store) ReadLogs(ctx context.Context, runID string) ([]protocol.LogMessage, error) {
	msgs, err := s.readType(ctx, runID, protocol.MessageTypeLog)
	if err != nil {
		return nil, err
	}
	logs := make([]protocol.LogMessage, 0, len(msgs))
	for _, m := range msgs {
		logs = append(logs, *m.Message.Log)
	}
	return logs, nil
}

// LatestStates returns the last state emitted for each stream of a run,
// keyed by stream name.
//
// Returns an empty map (not nil) if the run emitted no state.
func (s *Store) LatestStates(ctx context.Context, runID string) (map[string]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.run_id, m.seq, m.type, m.payload
		FROM messages m
		WHERE m.run_id = ? AND m.type = ?
		  AND m.seq = (
			SELECT MAX(seq) FROM messages
			WHERE run_id = m.run_id AND type = m.type AND stream = m.stream
		  )
		ORDER BY m.stream COLLATE BINARY ASC
	`, runID, string(protocol.MessageTypeState))
	if err != nil {
		return nil, fmt.Errorf("query latest states: %w", err)
	}
	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	states := make(map[string]map[string]any, len(msgs))
	for _, m := range msgs {
		states[m.Message.State.Stream] = m.Message.State.State
	}
	return states, nil
}

// CountMessages returns the number of messages of a run.
func (s *Store) CountMessages(ctx context.Context, runID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

func (s *Store) readType(ctx context.Context, runID string, typ protocol.MessageType) ([]StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, type, payload
		FROM messages
		WHERE run_id = ? AND type = ?
		ORDER BY seq ASC
	`, runID, string(typ))
	if err != nil {
		return nil, fmt.Errorf("query %s messages: %w", typ, err)
	}
	return scanMessages(rows)
}

// scanMessages drains and closes rows.
func scanMessages(rows *sql.Rows) ([]StoredMessage, error) {
	defer rows.Close()

	msgs := []StoredMessage{}
	for rows.Next() {
		var m StoredMessage
		var typ, payload string
		if err := rows.Scan(&m.RunID, &m.Seq, &typ, &payload); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg, err := unmarshalPayload(protocol.MessageType(typ), payload)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", m.Seq, err)
		}
		m.Message = msg
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

// NextRunSeq returns the seq to assign to the next run: one past the
// highest stored run seq.
func (s *Store) NextRunSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next run seq: %w", err)
	}
	return seq, nil
}

// ListRuns returns every run ordered by seq.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, sync_mode, seq
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		var mode string
		if err := rows.Scan(&run.ID, &run.Scenario, &mode, &run.Seq); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.SyncMode = protocol.SyncMode(mode)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
