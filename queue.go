package retain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/scribeworks/retain/internal/remote"
)

// QueueResult summarizes one drain pass over the offline operation queue.
type QueueResult struct {
	Succeeded int `json:"succeeded"`
	Pending   int `json:"pending"`
	Dropped   int `json:"dropped"`
}

// ProcessQueue attempts every pending offline operation against the remote
// store in FIFO order. Confirmed deliveries are removed; failures record an
// attempt and, at MaxQueueAttempts, the operation is dropped and counted.
// A transport-level failure aborts the pass since connectivity is gone.
// Re-running on an empty queue is a no-op.
func ProcessQueue(ctx context.Context, store *Store, client remote.Client, log *DebugLogger) (QueueResult, error) {
	result := QueueResult{}

	if client == nil {
		pending, err := store.QueueLength()
		result.Pending = pending
		if err != nil {
			return result, err
		}
		return result, ErrOffline
	}

	ops, err := store.PeekQueue(0)
	if err != nil {
		return result, err
	}

	for i := range ops {
		op := &ops[i]
		err := dispatchOperation(ctx, store, client, op)
		if err == nil {
			if cerr := store.CompleteOperation(op.ID); cerr != nil && cerr != ErrNotFound {
				return result, cerr
			}
			result.Succeeded++
			continue
		}

		log.Log("QUEUE [%s] op %d attempt %d failed: %v", op.Kind, op.ID, op.AttemptCount+1, err)

		dropped, aerr := store.RecordAttempt(op.ID, time.Now().UTC())
		if aerr != nil && aerr != ErrNotFound {
			return result, aerr
		}
		if dropped {
			result.Dropped++
			log.Log("QUEUE [%s] op %d dropped after %d attempts", op.Kind, op.ID, MaxQueueAttempts)
		}

		if isTransportError(err) {
			break
		}
	}

	pending, err := store.QueueLength()
	if err != nil {
		return result, err
	}
	result.Pending = pending
	return result, nil
}

// dispatchOperation decodes one queued payload and performs the matching
// remote write. A successful save_session also flips the local synced flag.
func dispatchOperation(ctx context.Context, store *Store, client remote.Client, op *OfflineOperation) error {
	switch op.Kind {
	case OpSaveSession:
		var sess LearningSession
		if err := json.Unmarshal(op.Payload, &sess); err != nil {
			return fmt.Errorf("decode session payload: %w", err)
		}
		if err := client.PushSession(ctx, sessionToPayload(&sess)); err != nil {
			return err
		}
		return store.MarkSessionSynced(sess.ID)

	case OpSavePattern:
		var pattern LearnedPattern
		if err := json.Unmarshal(op.Payload, &pattern); err != nil {
			return fmt.Errorf("decode pattern payload: %w", err)
		}
		return client.PushPattern(ctx, patternToPayload(&pattern))

	case OpSavePreference:
		var pref UserPreference
		if err := json.Unmarshal(op.Payload, &pref); err != nil {
			return fmt.Errorf("decode preference payload: %w", err)
		}
		return client.PushPreference(ctx, preferenceToPayload(&pref))

	case OpSaveAssignment:
		var assignment Assignment
		if err := json.Unmarshal(op.Payload, &assignment); err != nil {
			return fmt.Errorf("decode assignment payload: %w", err)
		}
		return client.PushAssignment(ctx, assignmentToPayload(&assignment))

	case OpDeletePattern:
		var ref struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(op.Payload, &ref); err != nil {
			return fmt.Errorf("decode delete payload: %w", err)
		}
		return client.DeletePattern(ctx, ref.ID)

	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// isTransportError reports whether the failure was connectivity-level rather
// than a remote rejection, so the drain pass can stop early.
func isTransportError(err error) bool {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 0
	}
	return false
}

func sessionToPayload(sess *LearningSession) *remote.SessionPayload {
	return &remote.SessionPayload{
		ID:            sess.ID,
		Timestamp:     sess.Timestamp.Format(time.RFC3339),
		OriginalText:  sess.OriginalText,
		AIRefinedText: sess.AIRefinedText,
		UserFinalText: sess.UserFinalText,
		Mode:          sess.Mode,
		TextLength:    sess.TextLength,
		SessionType:   string(sess.SessionType),
		WasSkipped:    sess.WasSkipped,
	}
}

func patternToPayload(pattern *LearnedPattern) *remote.PatternPayload {
	return &remote.PatternPayload{
		ID:              pattern.ID,
		OriginalPhrase:  pattern.OriginalPhrase,
		CorrectedPhrase: pattern.CorrectedPhrase,
		OccurrenceCount: pattern.OccurrenceCount,
		FirstSeen:       pattern.FirstSeen.Format(time.RFC3339),
		LastSeen:        pattern.LastSeen.Format(time.RFC3339),
		Mode:            pattern.Mode,
		Confidence:      pattern.Confidence,
	}
}

func payloadToPattern(payload *remote.PatternPayload) *LearnedPattern {
	firstSeen, _ := time.Parse(time.RFC3339, payload.FirstSeen)
	lastSeen, _ := time.Parse(time.RFC3339, payload.LastSeen)
	return &LearnedPattern{
		ID:              payload.ID,
		OriginalPhrase:  payload.OriginalPhrase,
		CorrectedPhrase: payload.CorrectedPhrase,
		OccurrenceCount: payload.OccurrenceCount,
		FirstSeen:       firstSeen,
		LastSeen:        lastSeen,
		Mode:            payload.Mode,
		Confidence:      payload.Confidence,
	}
}

func preferenceToPayload(pref *UserPreference) *remote.PreferencePayload {
	return &remote.PreferencePayload{
		ID:             pref.ID,
		PreferenceType: string(pref.Type),
		Value:          pref.Value,
		SampleCount:    pref.SampleCount,
		LastUpdated:    pref.LastUpdated.Format(time.RFC3339),
	}
}

func payloadToPreference(payload *remote.PreferencePayload) *UserPreference {
	lastUpdated, _ := time.Parse(time.RFC3339, payload.LastUpdated)
	return &UserPreference{
		ID:          payload.ID,
		Type:        PreferenceType(payload.PreferenceType),
		Value:       payload.Value,
		SampleCount: payload.SampleCount,
		LastUpdated: lastUpdated,
	}
}

func assignmentToPayload(assignment *Assignment) *remote.AssignmentPayload {
	return &remote.AssignmentPayload{
		SessionID: assignment.SessionID,
		OptionA:   assignment.OptionA,
		OptionB:   assignment.OptionB,
		Selected:  assignment.Selected,
		Mode:      assignment.Mode,
		CreatedAt: assignment.CreatedAt.Format(time.RFC3339),
	}
}
