package retain

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"time"
)

// enqueueTx inserts an offline operation inside an existing transaction so
// the entity write and its pending remote mirror commit or roll back together.
func enqueueTx(tx *sql.Tx, kind OperationKind, payload []byte) error {
	_, err := tx.Exec(`
		INSERT INTO offline_queue (kind, payload, created_at, attempt_count)
		VALUES (?, ?, ?, 0)
	`, string(kind), payload, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return &PersistenceError{Op: "enqueue " + string(kind), Err: err}
	}
	return nil
}

// EnqueueOperation appends a standalone offline operation to the queue.
func (s *Store) EnqueueOperation(kind OperationKind, payload json.RawMessage) (*OfflineOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	now := time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO offline_queue (kind, payload, created_at, attempt_count)
		VALUES (?, ?, ?, 0)
	`, string(kind), []byte(payload), now.Format(time.RFC3339))
	if err != nil {
		return nil, &PersistenceError{Op: "enqueue " + string(kind), Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, &PersistenceError{Op: "enqueue " + string(kind), Err: err}
	}

	return &OfflineOperation{
		ID:        id,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: now,
	}, nil
}

// PeekQueue returns pending operations in FIFO order without removing them.
// A limit of 0 returns the whole queue.
func (s *Store) PeekQueue(limit int) ([]OfflineOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `
		SELECT id, kind, payload, created_at, last_attempt, attempt_count
		FROM offline_queue ORDER BY id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []OfflineOperation
	for rows.Next() {
		var (
			op          OfflineOperation
			kind        string
			payload     []byte
			createdAt   string
			lastAttempt sql.NullString
		)
		if err := rows.Scan(&op.ID, &kind, &payload, &createdAt, &lastAttempt, &op.AttemptCount); err != nil {
			return nil, err
		}
		op.Kind = OperationKind(kind)
		op.Payload = json.RawMessage(payload)
		op.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if lastAttempt.Valid {
			t, _ := time.Parse(time.RFC3339, lastAttempt.String)
			op.LastAttempt = &t
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// CompleteOperation removes an operation after its remote write succeeded.
// Removal only after confirmed success is what makes a mid-sync crash safe:
// the operation is simply retried on the next pass.
func (s *Store) CompleteOperation(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	res, err := s.db.Exec("DELETE FROM offline_queue WHERE id = ?", id)
	if err != nil {
		return &PersistenceError{Op: "complete operation", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordAttempt marks a failed delivery attempt. Once the operation reaches
// MaxQueueAttempts it is removed and counted under dropped_operations; the
// returned flag reports that drop so callers can surface the loss.
func (s *Store) RecordAttempt(id int64, at time.Time) (dropped bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrStoreClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return false, &PersistenceError{Op: "record attempt", Err: err}
	}
	defer tx.Rollback()

	var attempts int
	err = tx.QueryRow("SELECT attempt_count FROM offline_queue WHERE id = ?", id).Scan(&attempts)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}

	attempts++
	if attempts >= MaxQueueAttempts {
		if _, err := tx.Exec("DELETE FROM offline_queue WHERE id = ?", id); err != nil {
			return false, &PersistenceError{Op: "drop operation", Err: err}
		}
		if err := incrementMetadataTx(tx, metadataKeyDroppedOps); err != nil {
			return false, err
		}
		if err := tx.Commit(); err != nil {
			return false, &PersistenceError{Op: "record attempt", Err: err}
		}
		return true, nil
	}

	_, err = tx.Exec(`
		UPDATE offline_queue SET attempt_count = ?, last_attempt = ? WHERE id = ?
	`, attempts, at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return false, &PersistenceError{Op: "record attempt", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return false, &PersistenceError{Op: "record attempt", Err: err}
	}
	return false, nil
}

// ClearQueue removes every pending operation (used by sync reset).
func (s *Store) ClearQueue() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec("DELETE FROM offline_queue")
	return err
}

// QueueLength returns the number of pending offline operations.
func (s *Store) QueueLength() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM offline_queue").Scan(&count)
	return count, err
}

func incrementMetadataTx(tx *sql.Tx, key string) error {
	var value sql.NullString
	err := tx.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	n := 0
	if value.Valid {
		n, _ = strconv.Atoi(value.String)
	}
	n++

	_, err = tx.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, strconv.Itoa(n))
	return err
}
