package remote

// Wire types for the remote learning store API. Every row on the remote side
// is scoped by the owning user; the client sends the user ID as a header and
// never embeds it in payloads.

// ProbeResponse from GET /api/v1/health
type ProbeResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	SchemaVersion string `json:"schema_version"`
}

// SessionPayload for POST /api/v1/sessions
type SessionPayload struct {
	ID            string `json:"id"`
	Timestamp     string `json:"timestamp"`
	OriginalText  string `json:"original_text"`
	AIRefinedText string `json:"ai_refined_text"`
	UserFinalText string `json:"user_final_text"`
	Mode          string `json:"mode,omitempty"`
	TextLength    int    `json:"text_length"`
	SessionType   string `json:"session_type"`
	WasSkipped    bool   `json:"was_skipped"`
}

// PatternPayload for POST /api/v1/patterns and GET /api/v1/patterns
type PatternPayload struct {
	ID              string  `json:"id"`
	OriginalPhrase  string  `json:"original_phrase"`
	CorrectedPhrase string  `json:"corrected_phrase"`
	OccurrenceCount int     `json:"occurrence_count"`
	FirstSeen       string  `json:"first_seen"`
	LastSeen        string  `json:"last_seen"`
	Mode            string  `json:"mode,omitempty"`
	Confidence      float64 `json:"confidence"`
}

// PreferencePayload for POST /api/v1/preferences and GET /api/v1/preferences
type PreferencePayload struct {
	ID             string  `json:"id"`
	PreferenceType string  `json:"preference_type"`
	Value          float64 `json:"value"`
	SampleCount    int     `json:"sample_count"`
	LastUpdated    string  `json:"last_updated"`
}

// AssignmentPayload for POST /api/v1/assignments
type AssignmentPayload struct {
	SessionID string `json:"session_id"`
	OptionA   string `json:"option_a"`
	OptionB   string `json:"option_b"`
	Selected  string `json:"selected"`
	Mode      string `json:"mode,omitempty"`
	CreatedAt string `json:"created_at"`
}

// PatternsResponse from GET /api/v1/patterns
type PatternsResponse struct {
	Patterns []PatternPayload `json:"patterns"`
}

// PreferencesResponse from GET /api/v1/preferences
type PreferencesResponse struct {
	Preferences []PreferencePayload `json:"preferences"`
}
