package store

import (
	"context"
	"fmt"

	"github.com/roach88/filescenario/internal/protocol"
)

// Run identifies one read of a scenario.
type Run struct {
	ID       string
	Scenario string
	SyncMode protocol.SyncMode

	// Seq orders runs within a store.
	Seq int64
}

// StoredMessage is a message with its position in a run.
type StoredMessage struct {
	RunID   string
	Seq     int64
	Message protocol.Message
}

// WriteRun inserts a run record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, sync_mode, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Scenario, string(run.SyncMode), run.Seq)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteMessage appends msg to the log of a run at position seq.
// The payload is serialized to canonical JSON.
//
// Note: The run referenced by runID must exist (foreign key constraint), and
// seq must be unique within the run.
func (s *Store) WriteMessage(ctx context.Context, runID string, seq int64, msg protocol.Message) error {
	payload, err := marshalPayload(msg)
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (run_id, seq, type, stream, payload)
		VALUES (?, ?, ?, ?, ?)
	`, runID, seq, string(msg.Type), msg.StreamName(), payload)
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// WriteMessages appends msgs in a single transaction, numbering them with
// next. next is called once per attempted message, so a failed batch leaves
// a gap in the sequence. It returns the number of messages written.
func (s *Store) WriteMessages(ctx context.Context, runID string, msgs []protocol.Message, next func() int64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write messages: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (run_id, seq, type, stream, payload)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("write messages: prepare: %w", err)
	}
	defer stmt.Close()

	for i, msg := range msgs {
		// The seq is drawn before marshalling, so a rejected message still
		// consumes one.
		seq := next()
		payload, err := marshalPayload(msg)
		if err != nil {
			return 0, fmt.Errorf("write messages: message %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, seq, string(msg.Type), msg.StreamName(), payload); err != nil {
			return 0, fmt.Errorf("write messages: message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write messages: commit: %w", err)
	}
	return len(msgs), nil
}
