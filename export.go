package retain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ExportVersion is the current version of the export format.
const ExportVersion = "1.0"

// ExportFormat is the top-level structure for JSON exports.
type ExportFormat struct {
	Version     string             `json:"version"`
	ExportedAt  time.Time          `json:"exported_at"`
	Patterns    []ExportPattern    `json:"patterns"`
	Preferences []ExportPreference `json:"preferences"`
	Sessions    []ExportSession    `json:"sessions"`
}

// ExportPattern is a learned pattern in export format.
type ExportPattern struct {
	ID              string    `json:"id"`
	OriginalPhrase  string    `json:"original_phrase"`
	CorrectedPhrase string    `json:"corrected_phrase"`
	OccurrenceCount int       `json:"occurrence_count"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	Mode            string    `json:"mode,omitempty"`
	Confidence      float64   `json:"confidence"`
}

// ExportPreference is a preference dimension in export format.
type ExportPreference struct {
	ID             string    `json:"id"`
	PreferenceType string    `json:"preference_type"`
	Value          float64   `json:"value"`
	SampleCount    int       `json:"sample_count"`
	LastUpdated    time.Time `json:"last_updated"`
}

// ExportSession is a learning session in export format.
type ExportSession struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	OriginalText  string    `json:"original_text"`
	AIRefinedText string    `json:"ai_refined_text"`
	UserFinalText string    `json:"user_final_text"`
	Mode          string    `json:"mode,omitempty"`
	TextLength    int       `json:"text_length"`
	SessionType   string    `json:"session_type"`
	WasSkipped    bool      `json:"was_skipped"`
}

// ImportResult summarizes an import operation.
type ImportResult struct {
	Patterns    int      `json:"patterns"`
	Preferences int      `json:"preferences"`
	Sessions    int      `json:"sessions"`
	Skipped     int      `json:"skipped"`
	Errors      []string `json:"errors,omitempty"`
}

// Total returns the number of entities applied from the snapshot.
func (r *ImportResult) Total() int {
	return r.Patterns + r.Preferences + r.Sessions
}

// ExportJSON streams all learning data as JSON to the writer.
// This uses cursor-based iteration to avoid loading all data into memory.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	header := fmt.Sprintf(`{"version":"%s","exported_at":"%s","patterns":[`,
		ExportVersion,
		time.Now().UTC().Format(time.RFC3339),
	)
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	enc := json.NewEncoder(w)

	if err := s.streamPatterns(ctx, w, enc); err != nil {
		return err
	}
	if _, err := io.WriteString(w, `],"preferences":[`); err != nil {
		return fmt.Errorf("write separator: %w", err)
	}
	if err := s.streamPreferences(ctx, w, enc); err != nil {
		return err
	}
	if _, err := io.WriteString(w, `],"sessions":[`); err != nil {
		return fmt.Errorf("write separator: %w", err)
	}
	if err := s.streamSessions(ctx, w, enc); err != nil {
		return err
	}

	if _, err := io.WriteString(w, "]}"); err != nil {
		return fmt.Errorf("write footer: %w", err)
	}
	return nil
}

func (s *Store) streamPatterns(ctx context.Context, w io.Writer, enc *json.Encoder) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, original_phrase, corrected_phrase, occurrence_count, first_seen, last_seen, mode, confidence
		FROM patterns
		ORDER BY first_seen
	`)
	if err != nil {
		return fmt.Errorf("query patterns: %w", err)
	}
	defer rows.Close()

	first := true
	for rows.Next() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var (
			p                   ExportPattern
			mode                *string
			firstSeen, lastSeen string
		)
		if err := rows.Scan(&p.ID, &p.OriginalPhrase, &p.CorrectedPhrase, &p.OccurrenceCount, &firstSeen, &lastSeen, &mode, &p.Confidence); err != nil {
			return fmt.Errorf("scan pattern: %w", err)
		}
		if mode != nil {
			p.Mode = *mode
		}
		p.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
		p.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)

		if !first {
			if _, err := io.WriteString(w, ","); err != nil {
				return fmt.Errorf("write separator: %w", err)
			}
		}
		first = false

		if err := enc.Encode(&p); err != nil {
			return fmt.Errorf("encode pattern: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate patterns: %w", err)
	}
	return nil
}

func (s *Store) streamPreferences(ctx context.Context, w io.Writer, enc *json.Encoder) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, preference_type, value, sample_count, last_updated
		FROM preferences
		ORDER BY preference_type
	`)
	if err != nil {
		return fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	first := true
	for rows.Next() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var (
			p           ExportPreference
			lastUpdated string
		)
		if err := rows.Scan(&p.ID, &p.PreferenceType, &p.Value, &p.SampleCount, &lastUpdated); err != nil {
			return fmt.Errorf("scan preference: %w", err)
		}
		p.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)

		if !first {
			if _, err := io.WriteString(w, ","); err != nil {
				return fmt.Errorf("write separator: %w", err)
			}
		}
		first = false

		if err := enc.Encode(&p); err != nil {
			return fmt.Errorf("encode preference: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate preferences: %w", err)
	}
	return nil
}

func (s *Store) streamSessions(ctx context.Context, w io.Writer, enc *json.Encoder) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, original_text, refined_text, final_text, mode, text_length, session_type, was_skipped
		FROM sessions
		ORDER BY created_at
	`)
	if err != nil {
		return fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	first := true
	for rows.Next() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var (
			sess       ExportSession
			mode       *string
			createdAt  string
			wasSkipped int
		)
		if err := rows.Scan(&sess.ID, &createdAt, &sess.OriginalText, &sess.AIRefinedText, &sess.UserFinalText, &mode, &sess.TextLength, &sess.SessionType, &wasSkipped); err != nil {
			return fmt.Errorf("scan session: %w", err)
		}
		if mode != nil {
			sess.Mode = *mode
		}
		sess.Timestamp, _ = time.Parse(time.RFC3339, createdAt)
		sess.WasSkipped = wasSkipped != 0

		if !first {
			if _, err := io.WriteString(w, ","); err != nil {
				return fmt.Errorf("write separator: %w", err)
			}
		}
		first = false

		if err := enc.Encode(&sess); err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate sessions: %w", err)
	}
	return nil
}

// ExportSQLite copies the store to a standalone SQLite database file.
// A WAL checkpoint runs first so the copy is self-contained.
func (s *Store) ExportSQLite(ctx context.Context, destPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint WAL: %w", err)
	}

	srcFile, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer srcFile.Close()

	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, srcFile); err != nil {
		_ = os.Remove(destPath)
		return fmt.Errorf("copy database: %w", err)
	}

	return destFile.Sync()
}
