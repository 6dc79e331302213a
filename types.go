package retain

import (
	"encoding/json"
	"time"
)

// LearningSession records one review or forced-choice interaction.
// Rows are append-only history; only the Synced flag changes after creation.
type LearningSession struct {
	ID            string      `json:"id"`
	Timestamp     time.Time   `json:"timestamp"`
	OriginalText  string      `json:"original_text"`
	AIRefinedText string      `json:"ai_refined_text"`
	UserFinalText string      `json:"user_final_text"`
	Mode          string      `json:"mode,omitempty"`
	TextLength    int         `json:"text_length"`
	SessionType   SessionType `json:"session_type"`
	WasSkipped    bool        `json:"was_skipped"`
	Synced        bool        `json:"synced"`
}

// SessionType classifies how the user's final text was produced.
type SessionType string

const (
	SessionEditReview SessionType = "edit_review"
	SessionABTest     SessionType = "ab_test"
)

// IsValid checks if the session type is known.
func (t SessionType) IsValid() bool {
	return t == SessionEditReview || t == SessionABTest
}

// LearnedPattern is a (originalPhrase -> correctedPhrase) substitution rule
// observed from the user's edits. Unique on the phrase pair; reinforcement
// only ever increases confidence, up to ConfidenceMax.
type LearnedPattern struct {
	ID              string    `json:"id"`
	OriginalPhrase  string    `json:"original_phrase"`
	CorrectedPhrase string    `json:"corrected_phrase"`
	OccurrenceCount int       `json:"occurrence_count"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	Mode            string    `json:"mode,omitempty"`
	Confidence      float64   `json:"confidence"`
}

// Active reports whether the pattern is eligible for application.
func (p *LearnedPattern) Active() bool {
	return p.OccurrenceCount >= ActiveMinOccurrences && p.Confidence > ActiveMinConfidence
}

// PreferenceType identifies a scalar stylistic preference.
type PreferenceType string

const (
	PreferenceFormality    PreferenceType = "formality"
	PreferenceConciseness  PreferenceType = "conciseness"
	PreferenceContractions PreferenceType = "contractions"
	PreferencePunctuation  PreferenceType = "punctuation"
)

// ValidPreferenceTypes returns all known preference types.
func ValidPreferenceTypes() []PreferenceType {
	return []PreferenceType{
		PreferenceFormality,
		PreferenceConciseness,
		PreferenceContractions,
		PreferencePunctuation,
	}
}

// IsValid checks if the preference type is known.
func (t PreferenceType) IsValid() bool {
	for _, valid := range ValidPreferenceTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// UserPreference is a continuously smoothed stylistic lean in [-1, 1].
// One row exists per preference type.
type UserPreference struct {
	ID          string         `json:"id"`
	Type        PreferenceType `json:"preference_type"`
	Value       float64        `json:"value"`
	SampleCount int            `json:"sample_count"`
	LastUpdated time.Time      `json:"last_updated"`
}

// OperationKind tags the payload variant of an offline operation.
type OperationKind string

const (
	OpSaveSession    OperationKind = "save_session"
	OpSavePattern    OperationKind = "save_pattern"
	OpSavePreference OperationKind = "save_preference"
	OpSaveAssignment OperationKind = "save_assignment"
	OpDeletePattern  OperationKind = "delete_pattern"
)

// OfflineOperation is a pending remote write. It is removed on confirmed
// success or dropped after MaxQueueAttempts failed attempts.
type OfflineOperation struct {
	ID           int64           `json:"id"`
	Kind         OperationKind   `json:"kind"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
	LastAttempt  *time.Time      `json:"last_attempt,omitempty"`
	AttemptCount int             `json:"attempt_count"`
}

// Assignment captures a forced-choice presentation for remote history.
// It lives only in queue payloads and the remote store; the local canonical
// record is the corresponding LearningSession.
type Assignment struct {
	SessionID string    `json:"session_id"`
	OptionA   string    `json:"option_a"`
	OptionB   string    `json:"option_b"`
	Selected  string    `json:"selected"`
	Mode      string    `json:"mode,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewDecision tells the UI what interaction, if any, to request.
type ReviewDecision string

const (
	DecisionNone       ReviewDecision = "none"
	DecisionEditReview ReviewDecision = "edit_review"
	DecisionABTest     ReviewDecision = "ab_test"
)

// ReviewRequest pairs a decision with an advisory deadline. The engine never
// enforces the deadline; a UI may auto-skip once it passes and report the
// outcome via SubmitEditReview/SubmitABTest with the skip flag set.
type ReviewRequest struct {
	Decision ReviewDecision `json:"decision"`
	Deadline time.Time      `json:"deadline,omitempty"`
}

// SyncState describes the sync engine's connectivity state machine.
type SyncState string

const (
	SyncUnknown      SyncState = "unknown"
	SyncConnecting   SyncState = "connecting"
	SyncConnected    SyncState = "connected"
	SyncDisconnected SyncState = "disconnected"
	SyncOffline      SyncState = "offline"
	SyncErrored      SyncState = "error"
)

// SyncStatus is the user-visible, non-blocking sync indicator.
type SyncStatus struct {
	State             SyncState `json:"state"`
	Message           string    `json:"message,omitempty"`
	LastSync          time.Time `json:"last_sync,omitempty"`
	PendingOperations int       `json:"pending_operations"`
	DroppedOperations int       `json:"dropped_operations"`
}

// StoreStats summarizes the local store contents.
type StoreStats struct {
	Sessions          int       `json:"sessions"`
	Patterns          int       `json:"patterns"`
	ActivePatterns    int       `json:"active_patterns"`
	Preferences       int       `json:"preferences"`
	PendingOperations int       `json:"pending_operations"`
	DroppedOperations int       `json:"dropped_operations"`
	LastSync          time.Time `json:"last_sync"`
	SchemaVersion     string    `json:"schema_version"`
}

// Confidence policy constants.
const (
	ConfidenceInitial        = 0.3
	ConfidenceReinforceDelta = 0.2 // third consistent correction crosses the activation gate
	ConfidenceModeBonus      = 0.1
	ConfidenceMin            = 0.0
	ConfidenceMax            = 1.0

	ActiveMinOccurrences = 3
	ActiveMinConfidence  = 0.6
)

// Preference smoothing constants.
const (
	PreferenceAlpha     = 0.1
	ChoiceWeight        = 0.5 // an A/B selection carries half the signal of an edit
	AdjustmentThreshold = 0.5 // hysteresis band before prefs affect output
)

// MaxQueueAttempts is how many times an offline operation is retried before
// it is dropped and counted in dropped_operations.
const MaxQueueAttempts = 5

// Review decision policy.
const (
	EditReviewSessionThreshold = 10 // always review while under this many sessions
	ReviewSampleRate           = 5  // afterwards, 1-in-N chance of review
	ABTestSessionCap           = 50 // stop requesting A/B tests past this
	MinReviewWords             = 20 // edit review only for texts this long
)
