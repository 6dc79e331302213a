package retain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/scribeworks/retain/internal/remote"
)

// Engine is the main interface to the learning and synchronization engine.
// One instance is constructed at startup and passed to collaborators; there
// is no process-wide shared state.
type Engine struct {
	store  *Store
	syncer *Syncer
	log    *DebugLogger
	config Config

	mu     sync.Mutex
	paused bool

	// sample picks a uniform int in [0, n); swappable in tests.
	sample func(n int) int
}

// New creates a learning engine from the given configuration.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := NewDebugLogger(cfg.Debug, cfg.DebugLogPath)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(cfg.LocalPath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	var client remote.Client
	if !cfg.IsOffline() {
		client = remote.NewHTTPClient(cfg.RemoteURL, cfg.APIKey, cfg.UserID)
	}

	e := &Engine{
		store:  store,
		syncer: NewSyncer(store, client, log, cfg.SyncInterval),
		log:    log,
		config: cfg,
		sample: rand.IntN,
	}

	if cfg.AutoSync {
		e.syncer.Start()
	}

	return e, nil
}

// ProcessCompletedTranscription decides whether the UI should request a
// review interaction for the just-refined text. While the engine is young
// (under EditReviewSessionThreshold sessions) every sufficiently long text
// gets an edit review; afterwards reviews are sampled 1-in-ReviewSampleRate
// and shorter texts get A/B tests until ABTestSessionCap sessions exist.
func (e *Engine) ProcessCompletedTranscription(original, refined, mode string) (ReviewRequest, error) {
	none := ReviewRequest{Decision: DecisionNone}

	if original == "" || refined == "" {
		return none, ErrEmptyText
	}
	if e.Paused() {
		return none, nil
	}

	count, err := e.store.SessionCount()
	if err != nil {
		// Decision failures never block the text path.
		e.log.LogError("process_transcription", err)
		return none, nil
	}

	words := wordCount(refined)
	deadline := time.Now().Add(e.config.ReviewWindow)

	switch {
	case words >= MinReviewWords && count < EditReviewSessionThreshold:
		return ReviewRequest{Decision: DecisionEditReview, Deadline: deadline}, nil
	case words >= MinReviewWords && e.sample(ReviewSampleRate) == 0:
		return ReviewRequest{Decision: DecisionEditReview, Deadline: deadline}, nil
	case words < MinReviewWords && count < ABTestSessionCap:
		return ReviewRequest{Decision: DecisionABTest, Deadline: deadline}, nil
	default:
		return none, nil
	}
}

// SubmitEditReview records the outcome of an edit review. The session row is
// always persisted (audit trail); pattern and preference learning run only
// for a real, unskipped edit. Local persistence failure is fatal to this
// call; learning failures are logged and degrade to no model update.
func (e *Engine) SubmitEditReview(original, aiRefined, userFinal, mode string, skipLearning bool) error {
	if original == "" || aiRefined == "" {
		return ErrEmptyText
	}

	skipped := skipLearning || userFinal == ""
	finalText := userFinal
	if finalText == "" {
		finalText = aiRefined
	}

	sess := &LearningSession{
		OriginalText:  original,
		AIRefinedText: aiRefined,
		UserFinalText: finalText,
		Mode:          mode,
		SessionType:   SessionEditReview,
		WasSkipped:    skipped,
	}
	if err := e.store.SaveSession(sess); err != nil {
		return err
	}

	if !skipped && !e.Paused() {
		if n, err := ExtractPatterns(e.store, aiRefined, userFinal, mode); err != nil {
			e.log.LogError("extract_patterns", err)
		} else if n > 0 {
			e.log.LogLearning("extract_patterns", fmt.Sprintf("session %s touched %d patterns", sess.ID, n))
		}

		if err := AnalyzePreferences(e.store, aiRefined, userFinal); err != nil {
			e.log.LogError("analyze_preferences", err)
		}
	}

	e.syncer.Kick()
	return nil
}

// SubmitABTest records a forced-choice selection between two refinement
// variants. The chosen text becomes the session's final text, an assignment
// operation is queued for the remote store, and preferences update at half
// weight.
func (e *Engine) SubmitABTest(original, optionA, optionB, selected, mode string) error {
	if original == "" || optionA == "" || optionB == "" {
		return ErrEmptyText
	}

	var rejected string
	switch selected {
	case optionA:
		rejected = optionB
	case optionB:
		rejected = optionA
	default:
		return ErrSelectionMismatch
	}

	sess := &LearningSession{
		OriginalText:  original,
		AIRefinedText: optionA,
		UserFinalText: selected,
		Mode:          mode,
		SessionType:   SessionABTest,
	}
	if err := e.store.SaveSession(sess); err != nil {
		return err
	}

	assignment := Assignment{
		SessionID: sess.ID,
		OptionA:   optionA,
		OptionB:   optionB,
		Selected:  selected,
		Mode:      mode,
		CreatedAt: sess.Timestamp,
	}
	payload, err := json.Marshal(&assignment)
	if err == nil {
		_, err = e.store.EnqueueOperation(OpSaveAssignment, payload)
	}
	if err != nil {
		e.log.LogError("enqueue_assignment", err)
	}

	if !e.Paused() {
		if err := LearnFromChoice(e.store, selected, rejected); err != nil {
			e.log.LogError("learn_from_choice", err)
		}
	}

	e.syncer.Kick()
	return nil
}

// ApplyLearnedAdjustments rewrites refined text using learned patterns and
// preferences. It sits on the critical path before pasting, never performs
// network I/O, and fails open: any error returns the text unmodified.
func (e *Engine) ApplyLearnedAdjustments(text, mode string) string {
	if text == "" || e.Paused() {
		return text
	}

	adjusted, err := ApplyPatterns(e.store, text, mode)
	if err != nil {
		e.log.LogError("apply_patterns", err)
		return text
	}

	result, err := AdjustForPreferences(e.store, adjusted)
	if err != nil {
		e.log.LogError("adjust_preferences", err)
		return adjusted
	}
	return result
}

// ResetAllLearning clears every table: sessions, patterns, preferences, and
// the offline queue. Irreversible.
func (e *Engine) ResetAllLearning() error {
	return e.store.ResetAll()
}

// DeletePattern removes one learned pattern locally and queues the remote
// delete.
func (e *Engine) DeletePattern(id string) error {
	if err := e.store.DeletePattern(id); err != nil {
		return err
	}
	e.syncer.Kick()
	return nil
}

// Pause suspends learning and adjustment. Sessions submitted while paused
// are still recorded.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

// Resume re-enables learning and adjustment.
func (e *Engine) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
}

// Paused reports whether learning is currently suspended.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// SyncNow performs a full manual sync pass and returns the resulting status.
func (e *Engine) SyncNow(ctx context.Context) SyncStatus {
	return e.syncer.SyncNow(ctx)
}

// SyncStatus returns the current sync indicator without touching the network.
func (e *Engine) SyncStatus() SyncStatus {
	return e.syncer.Status()
}

// ResetSync discards pending operations and sync bookkeeping, then performs
// a fresh manual sync.
func (e *Engine) ResetSync(ctx context.Context) SyncStatus {
	return e.syncer.ResetSync(ctx)
}

// ListPatterns returns all learned patterns, most confident first.
func (e *Engine) ListPatterns() ([]LearnedPattern, error) {
	return e.store.ListPatterns()
}

// ListPreferences returns all tracked preferences.
func (e *Engine) ListPreferences() ([]UserPreference, error) {
	return e.store.ListPreferences()
}

// ExportSnapshot writes a versioned JSON snapshot of all learning data.
func (e *Engine) ExportSnapshot(ctx context.Context, w io.Writer) error {
	return e.store.ExportJSON(ctx, w)
}

// ImportSnapshot upserts entities from a JSON snapshot into the local store.
func (e *Engine) ImportSnapshot(ctx context.Context, r io.Reader) (*ImportResult, error) {
	return e.store.ImportJSON(ctx, r)
}

// Stats returns local store statistics.
func (e *Engine) Stats() (*StoreStats, error) {
	return e.store.Stats()
}

// Close stops background sync and closes the store. In-flight remote writes
// are abandoned; the queue retries them on next start.
func (e *Engine) Close() error {
	e.syncer.Stop()
	e.log.Close()
	return e.store.Close()
}
