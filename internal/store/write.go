package store

import (
	"context"
	"fmt"

	"github.com/roach88/umicp/internal/envelope"
)

// Record is one logged envelope.
type Record struct {
	Seq       int64
	Hash      string
	MessageID string
	From      string
	To        string
	Operation envelope.Operation
	Canonical string
}

// Envelope decodes the stored canonical form.
func (r Record) Envelope() (*envelope.Envelope, error) {
	return envelope.Deserialize([]byte(r.Canonical))
}

// WriteEnvelope appends env to the log. Returns the record and whether a
// new row was inserted.
//
// The envelope must be valid. Rows are keyed by hash, so writing an
// identical envelope again is a no-op that returns the original record
// with inserted=false. New rows take seq = MAX(seq)+1.
func (s *Store) WriteEnvelope(ctx context.Context, env *envelope.Envelope) (rec Record, inserted bool, err error) {
	if err := env.Check(); err != nil {
		return Record{}, false, fmt.Errorf("write envelope: %w", err)
	}
	data, err := env.Serialize()
	if err != nil {
		return Record{}, false, fmt.Errorf("write envelope: %w", err)
	}
	hash, err := env.Hash()
	if err != nil {
		return Record{}, false, fmt.Errorf("write envelope: %w", err)
	}
	code, _ := env.Operation().Code()

	// Use a transaction to ensure atomicity of insert-or-select
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, false, fmt.Errorf("write envelope: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO envelopes
		(hash, seq, message_id, sender, recipient, operation, canonical)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM envelopes), ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`,
		hash,
		env.MessageID(),
		env.From(),
		env.To(),
		code,
		string(data),
	)
	if err != nil {
		return Record{}, false, fmt.Errorf("write envelope: insert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return Record{}, false, fmt.Errorf("write envelope: rows affected: %w", err)
	}

	rec, err = scanRecord(tx.QueryRowContext(ctx, selectRecord+` WHERE hash = ?`, hash))
	if err != nil {
		return Record{}, false, fmt.Errorf("write envelope: read back: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, false, fmt.Errorf("write envelope: commit: %w", err)
	}

	return rec, rows > 0, nil
}

// CursorKind selects which side of a stream a cursor belongs to.
type CursorKind int

const (
	// ReceiveCursors hold the next sequence a receiver expects.
	ReceiveCursors CursorKind = iota
	// SendCursors hold the next sequence a sequencer issues.
	SendCursors
)

func (k CursorKind) table() (string, error) {
	switch k {
	case ReceiveCursors:
		return "stream_cursors", nil
	case SendCursors:
		return "send_cursors", nil
	default:
		return "", fmt.Errorf("unknown cursor kind %d", int(k))
	}
}

// SaveCursor records the next sequence for streamID, replacing any earlier
// value.
func (s *Store) SaveCursor(ctx context.Context, kind CursorKind, streamID uint32, next uint64) error {
	return s.SaveCursors(ctx, kind, map[uint32]uint64{streamID: next})
}

// SaveCursors records every cursor in one transaction.
func (s *Store) SaveCursors(ctx context.Context, kind CursorKind, cursors map[uint32]uint64) error {
	table, err := kind.table()
	if err != nil {
		return fmt.Errorf("save cursors: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save cursors: begin tx: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (stream_id, next_seq)
		VALUES (?, ?)
		ON CONFLICT(stream_id) DO UPDATE SET next_seq = excluded.next_seq
	`, table)
	for id, next := range cursors {
		if next > 1<<63-1 {
			return fmt.Errorf("save cursors: stream %d sequence %d out of range", id, next)
		}
		if _, err := tx.ExecContext(ctx, query, int64(id), int64(next)); err != nil {
			return fmt.Errorf("save cursors: stream %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save cursors: commit: %w", err)
	}
	return nil
}
