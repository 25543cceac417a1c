package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/umicp/internal/envelope"
)

const selectRecord = `
	SELECT seq, hash, message_id, sender, recipient, operation, canonical
	FROM envelopes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var code int64
	err := row.Scan(&rec.Seq, &rec.Hash, &rec.MessageID, &rec.From, &rec.To, &code, &rec.Canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan envelope: %w", err)
	}
	rec.Operation = envelope.OperationFromCode(code)
	return rec, nil
}

// ReadEnvelope retrieves a single record by hash.
// Returns ErrNotFound if absent.
func (s *Store) ReadEnvelope(ctx context.Context, hash string) (Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectRecord+` WHERE hash = ?`, hash))
	if err != nil {
		return Record{}, fmt.Errorf("read envelope %s: %w", hash, err)
	}
	return rec, nil
}

// Filter narrows ListEnvelopes. Zero fields match everything.
type Filter struct {
	From      string
	To        string
	MessageID string
	Operation envelope.Operation // OperationUnset matches all
	AfterSeq  int64
	Limit     int
}

// ListEnvelopes returns matching records ordered by seq ASC, hash ASC.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListEnvelopes(ctx context.Context, f Filter) ([]Record, error) {
	var where []string
	var args []any

	if f.From != "" {
		where = append(where, "sender = ?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "recipient = ?")
		args = append(args, f.To)
	}
	if f.MessageID != "" {
		where = append(where, "message_id = ?")
		args = append(args, f.MessageID)
	}
	if f.Operation != envelope.OperationUnset {
		code, ok := f.Operation.Code()
		if !ok {
			return nil, fmt.Errorf("list envelopes: unrecognized operation %s", f.Operation)
		}
		where = append(where, "operation = ?")
		args = append(args, code)
	}
	if f.AfterSeq > 0 {
		where = append(where, "seq > ?")
		args = append(args, f.AfterSeq)
	}

	query := selectRecord
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC, hash COLLATE BINARY ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate envelopes: %w", err)
	}

	return records, nil
}

// LatestSeq returns the highest seq in the log, 0 when empty.
func (s *Store) LatestSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM envelopes`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("latest seq: %w", err)
	}
	return seq, nil
}

// LoadCursors returns every persisted cursor of the given kind.
func (s *Store) LoadCursors(ctx context.Context, kind CursorKind) (map[uint32]uint64, error) {
	table, err := kind.table()
	if err != nil {
		return nil, fmt.Errorf("load cursors: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT stream_id, next_seq
		FROM %s
		ORDER BY stream_id ASC
	`, table))
	if err != nil {
		return nil, fmt.Errorf("load cursors: %w", err)
	}
	defer rows.Close()

	cursors := make(map[uint32]uint64)
	for rows.Next() {
		var id, next int64
		if err := rows.Scan(&id, &next); err != nil {
			return nil, fmt.Errorf("scan cursor: %w", err)
		}
		cursors[uint32(id)] = uint64(next)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cursors: %w", err)
	}

	return cursors, nil
}
