package retain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
)

// ImportJSON applies a JSON snapshot to the local store. Entities are
// upserted one at a time and nothing is queued for sync: an import is a
// restore of local state, not new user activity. A bad entry is recorded in
// the result and skipped so a truncated or partially corrupt snapshot still
// restores what it can.
//
// The store's write lock is held for the whole import, blocking other
// operations until it completes.
func (s *Store) ImportJSON(ctx context.Context, r io.Reader) (*ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	dec := json.NewDecoder(r)
	result := &ImportResult{}

	token, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read opening token: %w", err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected opening brace, got %v", token)
	}

	var version string
	for dec.More() {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		token, err := dec.Token()
		if err != nil {
			return result, fmt.Errorf("read field name: %w", err)
		}
		fieldName, ok := token.(string)
		if !ok {
			return result, fmt.Errorf("expected field name, got %v", token)
		}

		switch fieldName {
		case "version":
			if err := dec.Decode(&version); err != nil {
				return result, fmt.Errorf("decode version: %w", err)
			}
			if version != ExportVersion {
				return nil, fmt.Errorf("unsupported export version %q (expected %q)", version, ExportVersion)
			}

		case "patterns":
			if err := importArray(ctx, dec, result, "pattern", s.importPattern); err != nil {
				return result, fmt.Errorf("import patterns: %w", err)
			}

		case "preferences":
			if err := importArray(ctx, dec, result, "preference", s.importPreference); err != nil {
				return result, fmt.Errorf("import preferences: %w", err)
			}

		case "sessions":
			if err := importArray(ctx, dec, result, "session", s.importSession); err != nil {
				return result, fmt.Errorf("import sessions: %w", err)
			}

		default:
			var discard any
			if err := dec.Decode(&discard); err != nil {
				return result, fmt.Errorf("decode %s: %w", fieldName, err)
			}
		}
	}

	if version == "" {
		return result, fmt.Errorf("missing version field in export file")
	}

	return result, nil
}

// importArray walks one entity array, applying each element and recording
// failures without aborting the rest of the array.
func importArray(ctx context.Context, dec *json.Decoder, result *ImportResult, label string, apply func(*json.Decoder, *ImportResult) error) error {
	token, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read %s array start: %w", label, err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '[' {
		return fmt.Errorf("expected %s array, got %v", label, token)
	}

	for dec.More() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := apply(dec, result); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", label, err))
		}
	}

	token, err = dec.Token()
	if err != nil {
		return fmt.Errorf("read %s array end: %w", label, err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != ']' {
		return fmt.Errorf("expected %s array end, got %v", label, token)
	}
	return nil
}

// importPattern upserts one pattern by phrase pair. On conflict the evidence
// merges the same way remote conflicts do: higher count and confidence win,
// the observation window widens.
func (s *Store) importPattern(dec *json.Decoder, result *ImportResult) error {
	var p ExportPattern
	if err := dec.Decode(&p); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if p.OriginalPhrase == "" || p.CorrectedPhrase == "" {
		return fmt.Errorf("empty phrase")
	}
	if p.Confidence < ConfidenceMin || p.Confidence > ConfidenceMax {
		return ErrInvalidConfidence
	}

	if p.ID == "" {
		p.ID = ulid.Make().String()
	}
	if p.OccurrenceCount < 1 {
		p.OccurrenceCount = 1
	}
	now := time.Now().UTC()
	if p.FirstSeen.IsZero() {
		p.FirstSeen = now
	}
	if p.LastSeen.IsZero() {
		p.LastSeen = p.FirstSeen
	}

	_, err := s.db.Exec(`
		INSERT INTO patterns (id, original_phrase, corrected_phrase, occurrence_count, first_seen, last_seen, mode, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(original_phrase, corrected_phrase) DO UPDATE SET
			occurrence_count = MAX(occurrence_count, excluded.occurrence_count),
			first_seen = MIN(first_seen, excluded.first_seen),
			last_seen = MAX(last_seen, excluded.last_seen),
			mode = COALESCE(excluded.mode, mode),
			confidence = MAX(confidence, excluded.confidence)
	`,
		p.ID,
		p.OriginalPhrase,
		p.CorrectedPhrase,
		p.OccurrenceCount,
		p.FirstSeen.UTC().Format(time.RFC3339),
		p.LastSeen.UTC().Format(time.RFC3339),
		nullString(p.Mode),
		p.Confidence,
	)
	if err != nil {
		return err
	}
	result.Patterns++
	return nil
}

// importPreference upserts one preference dimension; the newer observation
// wins the value, the larger sample count survives.
func (s *Store) importPreference(dec *json.Decoder, result *ImportResult) error {
	var p ExportPreference
	if err := dec.Decode(&p); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if !PreferenceType(p.PreferenceType).IsValid() {
		return ErrInvalidPreferenceType
	}
	if p.Value < -1 || p.Value > 1 {
		return fmt.Errorf("value %v out of range", p.Value)
	}

	if p.ID == "" {
		p.ID = ulid.Make().String()
	}
	if p.LastUpdated.IsZero() {
		p.LastUpdated = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO preferences (id, preference_type, value, sample_count, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(preference_type) DO UPDATE SET
			value = CASE WHEN excluded.last_updated >= last_updated THEN excluded.value ELSE value END,
			sample_count = MAX(sample_count, excluded.sample_count),
			last_updated = MAX(last_updated, excluded.last_updated)
	`,
		p.ID,
		p.PreferenceType,
		p.Value,
		p.SampleCount,
		p.LastUpdated.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}
	result.Preferences++
	return nil
}

// importSession inserts one session. Sessions are immutable history, so an
// existing ID is left untouched.
func (s *Store) importSession(dec *json.Decoder, result *ImportResult) error {
	var sess ExportSession
	if err := dec.Decode(&sess); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if sess.OriginalText == "" {
		return ErrEmptyText
	}
	if !SessionType(sess.SessionType).IsValid() {
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

	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO sessions (id, created_at, original_text, refined_text, final_text, mode, text_length, session_type, was_skipped, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`,
		sess.ID,
		sess.Timestamp.UTC().Format(time.RFC3339),
		sess.OriginalText,
		sess.AIRefinedText,
		sess.UserFinalText,
		nullString(sess.Mode),
		sess.TextLength,
		sess.SessionType,
		boolToInt(sess.WasSkipped),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		result.Skipped++
		return nil
	}
	result.Sessions++
	return nil
}
