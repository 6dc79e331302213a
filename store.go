package retain

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
	"github.com/scribeworks/retain/internal/store/migrations"
	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// Metadata keys used by the store and sync engine.
const (
	metadataKeyLastSync   = "last_sync"
	metadataKeyDroppedOps = "dropped_operations"
)

// Store manages the local SQLite learning database. It is the single source
// of truth for sessions, patterns, preferences, and the offline queue. All
// writes go through one writer lock and are durable before returning.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewStore opens or creates a local learning store.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL keeps the apply path readable while the sync tick writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("store: set goose dialect: %w", err)
	}
	if err := goose.Up(s.db, "."); err != nil {
		return fmt.Errorf("store: run migrations: %w", err)
	}

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', ?)
	`, schemaVersion)
	return err
}

// SaveSession atomically inserts a learning session and its save_session
// offline operation in one transaction. Sessions are immutable after this
// except for the synced flag, which the queue processor flips on delivery.
func (s *Store) SaveSession(sess *LearningSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if sess.OriginalText == "" {
		return ErrEmptyText
	}
	if !sess.SessionType.IsValid() {
		return ErrInvalidSessionType
	}

	if sess.ID == "" {
		sess.ID = ulid.Make().String()
	}
	if sess.Timestamp.IsZero() {
		sess.Timestamp = time.Now().UTC()
	}
	if sess.TextLength == 0 {
		sess.TextLength = len([]rune(sess.OriginalText))
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &PersistenceError{Op: "save session", Err: err}
	}
	defer tx.Rollback() // no-op if committed

	_, err = tx.Exec(`
		INSERT INTO sessions (id, created_at, original_text, refined_text, final_text, mode, text_length, session_type, was_skipped, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`,
		sess.ID,
		sess.Timestamp.Format(time.RFC3339),
		sess.OriginalText,
		sess.AIRefinedText,
		sess.UserFinalText,
		nullString(sess.Mode),
		sess.TextLength,
		string(sess.SessionType),
		boolToInt(sess.WasSkipped),
	)
	if err != nil {
		return &PersistenceError{Op: "insert session", Err: err}
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return &PersistenceError{Op: "encode session", Err: err}
	}
	if err := enqueueTx(tx, OpSaveSession, payload); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "save session", Err: err}
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(id string) (*LearningSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRow(`
		SELECT id, created_at, original_text, refined_text, final_text, mode, text_length, session_type, was_skipped, synced
		FROM sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

// ListSessions returns sessions ordered oldest first. A limit of 0 returns all.
func (s *Store) ListSessions(limit int) ([]LearningSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `
		SELECT id, created_at, original_text, refined_text, final_text, mode, text_length, session_type, was_skipped, synced
		FROM sessions ORDER BY created_at
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var results []LearningSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *sess)
	}
	return results, rows.Err()
}

// SessionCount returns the number of recorded sessions, skipped included.
// The review decision policy keys off this number.
func (s *Store) SessionCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
	return count, err
}

// MarkSessionSynced flips a session's synced flag after confirmed delivery.
func (s *Store) MarkSessionSynced(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec("UPDATE sessions SET synced = 1 WHERE id = ?", id)
	return err
}

// UpsertPattern records a detected correction. A pattern with the same phrase
// pair is reinforced: occurrence count incremented, last seen refreshed,
// confidence raised by ConfidenceReinforceDelta (capped at ConfidenceMax).
// A new pair is inserted at ConfidenceInitial. The matching save_pattern
// offline operation is enqueued in the same transaction.
func (s *Store) UpsertPattern(originalPhrase, correctedPhrase, mode string) (*LearnedPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	if originalPhrase == "" || correctedPhrase == "" {
		return nil, ErrEmptyText
	}

	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, &PersistenceError{Op: "upsert pattern", Err: err}
	}
	defer tx.Rollback()

	existing, err := getPatternByPhrases(tx, originalPhrase, correctedPhrase)
	if err != nil && err != ErrNotFound {
		return nil, err
	}

	var pattern *LearnedPattern
	if existing != nil {
		existing.OccurrenceCount++
		existing.LastSeen = now
		existing.Confidence = clamp(existing.Confidence+ConfidenceReinforceDelta, ConfidenceMin, ConfidenceMax)
		_, err = tx.Exec(`
			UPDATE patterns SET occurrence_count = ?, last_seen = ?, confidence = ? WHERE id = ?
		`, existing.OccurrenceCount, now.Format(time.RFC3339), existing.Confidence, existing.ID)
		if err != nil {
			return nil, &PersistenceError{Op: "reinforce pattern", Err: err}
		}
		pattern = existing
	} else {
		pattern = &LearnedPattern{
			ID:              ulid.Make().String(),
			OriginalPhrase:  originalPhrase,
			CorrectedPhrase: correctedPhrase,
			OccurrenceCount: 1,
			FirstSeen:       now,
			LastSeen:        now,
			Mode:            mode,
			Confidence:      ConfidenceInitial,
		}
		_, err = tx.Exec(`
			INSERT INTO patterns (id, original_phrase, corrected_phrase, occurrence_count, first_seen, last_seen, mode, confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			pattern.ID,
			pattern.OriginalPhrase,
			pattern.CorrectedPhrase,
			pattern.OccurrenceCount,
			pattern.FirstSeen.Format(time.RFC3339),
			pattern.LastSeen.Format(time.RFC3339),
			nullString(pattern.Mode),
			pattern.Confidence,
		)
		if err != nil {
			return nil, &PersistenceError{Op: "insert pattern", Err: err}
		}
	}

	payload, err := json.Marshal(pattern)
	if err != nil {
		return nil, &PersistenceError{Op: "encode pattern", Err: err}
	}
	if err := enqueueTx(tx, OpSavePattern, payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, &PersistenceError{Op: "upsert pattern", Err: err}
	}
	return pattern, nil
}

// GetPattern retrieves a pattern by ID.
func (s *Store) GetPattern(id string) (*LearnedPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRow(`
		SELECT id, original_phrase, corrected_phrase, occurrence_count, first_seen, last_seen, mode, confidence
		FROM patterns WHERE id = ?
	`, id)
	return scanPattern(row)
}

// ListPatterns returns all patterns ordered by confidence then occurrences,
// both descending.
func (s *Store) ListPatterns() ([]LearnedPattern, error) {
	return s.listPatterns(false)
}

// ListActivePatterns returns only patterns eligible for application,
// ordered by confidence desc, then occurrence count desc.
func (s *Store) ListActivePatterns() ([]LearnedPattern, error) {
	return s.listPatterns(true)
}

func (s *Store) listPatterns(activeOnly bool) ([]LearnedPattern, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	query := `
		SELECT id, original_phrase, corrected_phrase, occurrence_count, first_seen, last_seen, mode, confidence
		FROM patterns
	`
	args := []any{}
	if activeOnly {
		query += " WHERE occurrence_count >= ? AND confidence > ?"
		args = append(args, ActiveMinOccurrences, ActiveMinConfidence)
	}
	query += " ORDER BY confidence DESC, occurrence_count DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	var results []LearnedPattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *p)
	}
	return results, rows.Err()
}

// DeletePattern removes a pattern and enqueues the matching remote delete.
func (s *Store) DeletePattern(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &PersistenceError{Op: "delete pattern", Err: err}
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM patterns WHERE id = ?", id)
	if err != nil {
		return &PersistenceError{Op: "delete pattern", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	payload, _ := json.Marshal(map[string]string{"id": id})
	if err := enqueueTx(tx, OpDeletePattern, payload); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "delete pattern", Err: err}
	}
	return nil
}

// MergeRemotePattern reconciles a pattern pulled from the remote store.
// Reinforcement history from either device is preserved: occurrence count and
// confidence take the max of both sides, first seen the earlier, last seen
// the later. No offline operation is enqueued; this is a replica update.
func (s *Store) MergeRemotePattern(remote *LearnedPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if remote.Confidence < ConfidenceMin || remote.Confidence > ConfidenceMax {
		return ErrInvalidConfidence
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &PersistenceError{Op: "merge pattern", Err: err}
	}
	defer tx.Rollback()

	local, err := getPatternByPhrases(tx, remote.OriginalPhrase, remote.CorrectedPhrase)
	if err != nil && err != ErrNotFound {
		return err
	}

	if local == nil {
		id := remote.ID
		if id == "" {
			id = ulid.Make().String()
		}
		_, err = tx.Exec(`
			INSERT INTO patterns (id, original_phrase, corrected_phrase, occurrence_count, first_seen, last_seen, mode, confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id,
			remote.OriginalPhrase,
			remote.CorrectedPhrase,
			remote.OccurrenceCount,
			remote.FirstSeen.Format(time.RFC3339),
			remote.LastSeen.Format(time.RFC3339),
			nullString(remote.Mode),
			remote.Confidence,
		)
		if err != nil {
			return &PersistenceError{Op: "insert merged pattern", Err: err}
		}
		return tx.Commit()
	}

	merged := *local
	merged.OccurrenceCount = maxInt(local.OccurrenceCount, remote.OccurrenceCount)
	merged.Confidence = maxFloat(local.Confidence, remote.Confidence)
	if remote.FirstSeen.Before(local.FirstSeen) {
		merged.FirstSeen = remote.FirstSeen
	}
	if remote.LastSeen.After(local.LastSeen) {
		merged.LastSeen = remote.LastSeen
	}

	_, err = tx.Exec(`
		UPDATE patterns SET occurrence_count = ?, first_seen = ?, last_seen = ?, confidence = ? WHERE id = ?
	`,
		merged.OccurrenceCount,
		merged.FirstSeen.Format(time.RFC3339),
		merged.LastSeen.Format(time.RFC3339),
		merged.Confidence,
		local.ID,
	)
	if err != nil {
		return &PersistenceError{Op: "update merged pattern", Err: err}
	}
	return tx.Commit()
}

// ApplyPreferenceDelta applies one smoothed update to a preference:
// value = clamp(value + delta*alpha, -1, 1). The row is created at zero on
// first update. The new state is enqueued as a save_preference operation.
func (s *Store) ApplyPreferenceDelta(ptype PreferenceType, delta, alpha float64) (*UserPreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if !ptype.IsValid() {
		return nil, ErrInvalidPreferenceType
	}

	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, &PersistenceError{Op: "update preference", Err: err}
	}
	defer tx.Rollback()

	pref, err := getPreferenceTx(tx, ptype)
	if err != nil && err != ErrNotFound {
		return nil, err
	}
	if pref == nil {
		pref = &UserPreference{
			ID:   ulid.Make().String(),
			Type: ptype,
		}
		_, err = tx.Exec(`
			INSERT INTO preferences (id, preference_type, value, sample_count, last_updated)
			VALUES (?, ?, 0, 0, ?)
		`, pref.ID, string(ptype), now.Format(time.RFC3339))
		if err != nil {
			return nil, &PersistenceError{Op: "insert preference", Err: err}
		}
	}

	pref.Value = clamp(pref.Value+delta*alpha, -1, 1)
	pref.SampleCount++
	pref.LastUpdated = now

	_, err = tx.Exec(`
		UPDATE preferences SET value = ?, sample_count = ?, last_updated = ? WHERE preference_type = ?
	`, pref.Value, pref.SampleCount, now.Format(time.RFC3339), string(ptype))
	if err != nil {
		return nil, &PersistenceError{Op: "update preference", Err: err}
	}

	payload, err := json.Marshal(pref)
	if err != nil {
		return nil, &PersistenceError{Op: "encode preference", Err: err}
	}
	if err := enqueueTx(tx, OpSavePreference, payload); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, &PersistenceError{Op: "update preference", Err: err}
	}
	return pref, nil
}

// GetPreference retrieves a preference by type. Returns ErrNotFound when no
// edit has ever touched it.
func (s *Store) GetPreference(ptype PreferenceType) (*UserPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRow(`
		SELECT id, preference_type, value, sample_count, last_updated
		FROM preferences WHERE preference_type = ?
	`, string(ptype))
	return scanPreference(row)
}

// ListPreferences returns all tracked preferences.
func (s *Store) ListPreferences() ([]UserPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT id, preference_type, value, sample_count, last_updated
		FROM preferences ORDER BY preference_type
	`)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	var results []UserPreference
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *p)
	}
	return results, rows.Err()
}

// MergeRemotePreference reconciles a preference pulled from the remote store.
// The remote value wins only when its last update is newer; sample counts take
// the max of both sides. No offline operation is enqueued.
func (s *Store) MergeRemotePreference(remote *UserPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if !remote.Type.IsValid() {
		return ErrInvalidPreferenceType
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &PersistenceError{Op: "merge preference", Err: err}
	}
	defer tx.Rollback()

	local, err := getPreferenceTx(tx, remote.Type)
	if err != nil && err != ErrNotFound {
		return err
	}

	if local == nil {
		id := remote.ID
		if id == "" {
			id = ulid.Make().String()
		}
		_, err = tx.Exec(`
			INSERT INTO preferences (id, preference_type, value, sample_count, last_updated)
			VALUES (?, ?, ?, ?, ?)
		`, id, string(remote.Type), clamp(remote.Value, -1, 1), remote.SampleCount, remote.LastUpdated.Format(time.RFC3339))
		if err != nil {
			return &PersistenceError{Op: "insert merged preference", Err: err}
		}
		return tx.Commit()
	}

	value := local.Value
	lastUpdated := local.LastUpdated
	if remote.LastUpdated.After(local.LastUpdated) {
		value = clamp(remote.Value, -1, 1)
		lastUpdated = remote.LastUpdated
	}
	samples := maxInt(local.SampleCount, remote.SampleCount)

	_, err = tx.Exec(`
		UPDATE preferences SET value = ?, sample_count = ?, last_updated = ? WHERE preference_type = ?
	`, value, samples, lastUpdated.Format(time.RFC3339), string(remote.Type))
	if err != nil {
		return &PersistenceError{Op: "update merged preference", Err: err}
	}
	return tx.Commit()
}

// ResetAll clears every table, returning the store to its initial state.
// Learning history, patterns, preferences, and pending operations are gone.
func (s *Store) ResetAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return &PersistenceError{Op: "reset", Err: err}
	}
	defer tx.Rollback()

	for _, table := range []string{"sessions", "patterns", "preferences", "offline_queue"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return &PersistenceError{Op: "reset " + table, Err: err}
		}
	}
	if _, err := tx.Exec("DELETE FROM metadata WHERE key != 'schema_version'"); err != nil {
		return &PersistenceError{Op: "reset metadata", Err: err}
	}

	return tx.Commit()
}

// GetMetadata returns the value for a metadata key, or "" when absent.
func (s *Store) GetMetadata(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetMetadata upserts a metadata key.
func (s *Store) SetMetadata(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// DeleteMetadata removes a metadata key if present.
func (s *Store) DeleteMetadata(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.Exec("DELETE FROM metadata WHERE key = ?", key)
	return err
}

// LastSync returns the recorded last full sync time, zero when never synced.
func (s *Store) LastSync() (time.Time, error) {
	value, err := s.GetMetadata(metadataKeyLastSync)
	if err != nil || value == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, nil
	}
	return t, nil
}

// SetLastSync records the last full sync time.
func (s *Store) SetLastSync(t time.Time) error {
	return s.SetMetadata(metadataKeyLastSync, t.UTC().Format(time.RFC3339))
}

// DroppedOperations returns how many offline operations have been discarded
// after exhausting their retries.
func (s *Store) DroppedOperations() (int, error) {
	value, err := s.GetMetadata(metadataKeyDroppedOps)
	if err != nil || value == "" {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Stats returns store statistics.
func (s *Store) Stats() (*StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	stats := &StoreStats{SchemaVersion: schemaVersion}

	counts := []struct {
		query string
		dest  *int
		args  []any
	}{
		{"SELECT COUNT(*) FROM sessions", &stats.Sessions, nil},
		{"SELECT COUNT(*) FROM patterns", &stats.Patterns, nil},
		{"SELECT COUNT(*) FROM patterns WHERE occurrence_count >= ? AND confidence > ?", &stats.ActivePatterns, []any{ActiveMinOccurrences, ActiveMinConfidence}},
		{"SELECT COUNT(*) FROM preferences", &stats.Preferences, nil},
		{"SELECT COUNT(*) FROM offline_queue", &stats.PendingOperations, nil},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query, c.args...).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	var lastSyncStr sql.NullString
	s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", metadataKeyLastSync).Scan(&lastSyncStr)
	if lastSyncStr.Valid {
		stats.LastSync, _ = time.Parse(time.RFC3339, lastSyncStr.String)
	}

	var droppedStr sql.NullString
	s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", metadataKeyDroppedOps).Scan(&droppedStr)
	if droppedStr.Valid {
		stats.DroppedOperations, _ = strconv.Atoi(droppedStr.String)
	}

	return stats, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

// querier abstracts *sql.DB and *sql.Tx for shared lookup helpers.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
}

func getPatternByPhrases(q querier, originalPhrase, correctedPhrase string) (*LearnedPattern, error) {
	row := q.QueryRow(`
		SELECT id, original_phrase, corrected_phrase, occurrence_count, first_seen, last_seen, mode, confidence
		FROM patterns WHERE original_phrase = ? AND corrected_phrase = ?
	`, originalPhrase, correctedPhrase)
	return scanPattern(row)
}

func getPreferenceTx(q querier, ptype PreferenceType) (*UserPreference, error) {
	row := q.QueryRow(`
		SELECT id, preference_type, value, sample_count, last_updated
		FROM preferences WHERE preference_type = ?
	`, string(ptype))
	return scanPreference(row)
}

// scanner abstracts the Scan method shared by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*LearningSession, error) {
	var (
		sess        LearningSession
		createdAt   string
		mode        sql.NullString
		sessionType string
		skipped     int
		synced      int
	)

	err := sc.Scan(
		&sess.ID,
		&createdAt,
		&sess.OriginalText,
		&sess.AIRefinedText,
		&sess.UserFinalText,
		&mode,
		&sess.TextLength,
		&sessionType,
		&skipped,
		&synced,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	sess.Timestamp, _ = time.Parse(time.RFC3339, createdAt)
	if mode.Valid {
		sess.Mode = mode.String
	}
	sess.SessionType = SessionType(sessionType)
	sess.WasSkipped = skipped != 0
	sess.Synced = synced != 0
	return &sess, nil
}

func scanPattern(sc scanner) (*LearnedPattern, error) {
	var (
		p         LearnedPattern
		firstSeen string
		lastSeen  string
		mode      sql.NullString
	)

	err := sc.Scan(
		&p.ID,
		&p.OriginalPhrase,
		&p.CorrectedPhrase,
		&p.OccurrenceCount,
		&firstSeen,
		&lastSeen,
		&mode,
		&p.Confidence,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
	p.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
	if mode.Valid {
		p.Mode = mode.String
	}
	return &p, nil
}

func scanPreference(sc scanner) (*UserPreference, error) {
	var (
		p           UserPreference
		ptype       string
		lastUpdated string
	)

	err := sc.Scan(&p.ID, &ptype, &p.Value, &p.SampleCount, &lastUpdated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Type = PreferenceType(ptype)
	p.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
	return &p, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
