package retain

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Config{
		LocalPath: filepath.Join(t.TempDir(), "retain.db"),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// seedSessions fills the store with synthetic history so decision thresholds
// can be exercised.
func seedSessions(t *testing.T, e *Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		sess := &LearningSession{
			OriginalText:  "seed text",
			AIRefinedText: "seed text",
			UserFinalText: "seed text",
			SessionType:   SessionEditReview,
			WasSkipped:    true,
		}
		if err := e.store.SaveSession(sess); err != nil {
			t.Fatalf("seed session %d failed: %v", i, err)
		}
	}
}

const longText = "this dictated passage easily clears the minimum word count used to " +
	"decide whether a full edit review is worth asking the user for today"

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{
		LocalPath:    filepath.Join(t.TempDir(), "retain.db"),
		SyncInterval: -time.Second,
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestProcessCompletedTranscription_EmptyText(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.ProcessCompletedTranscription("", "refined", ""); !errors.Is(err, ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestProcessCompletedTranscription_YoungEngineAlwaysReviews(t *testing.T) {
	e := newTestEngine(t)

	req, err := e.ProcessCompletedTranscription("raw", longText, "")
	if err != nil {
		t.Fatalf("ProcessCompletedTranscription failed: %v", err)
	}
	if req.Decision != DecisionEditReview {
		t.Errorf("expected %s, got %s", DecisionEditReview, req.Decision)
	}
	if !req.Deadline.After(time.Now()) {
		t.Error("expected a future deadline")
	}
}

func TestProcessCompletedTranscription_MatureEngineSamplesReviews(t *testing.T) {
	e := newTestEngine(t)
	seedSessions(t, e, EditReviewSessionThreshold)

	e.sample = func(n int) int { return 1 }
	req, err := e.ProcessCompletedTranscription("raw", longText, "")
	if err != nil {
		t.Fatalf("ProcessCompletedTranscription failed: %v", err)
	}
	if req.Decision != DecisionNone {
		t.Errorf("unsampled text still requested %s", req.Decision)
	}

	e.sample = func(n int) int { return 0 }
	req, err = e.ProcessCompletedTranscription("raw", longText, "")
	if err != nil {
		t.Fatalf("ProcessCompletedTranscription failed: %v", err)
	}
	if req.Decision != DecisionEditReview {
		t.Errorf("sampled text got %s, want %s", req.Decision, DecisionEditReview)
	}
}

func TestProcessCompletedTranscription_ShortTextGetsABTest(t *testing.T) {
	e := newTestEngine(t)

	req, err := e.ProcessCompletedTranscription("raw", "send the report now", "")
	if err != nil {
		t.Fatalf("ProcessCompletedTranscription failed: %v", err)
	}
	if req.Decision != DecisionABTest {
		t.Errorf("expected %s, got %s", DecisionABTest, req.Decision)
	}
}

func TestProcessCompletedTranscription_ABTestsCapOut(t *testing.T) {
	e := newTestEngine(t)
	seedSessions(t, e, ABTestSessionCap)

	req, err := e.ProcessCompletedTranscription("raw", "send the report now", "")
	if err != nil {
		t.Fatalf("ProcessCompletedTranscription failed: %v", err)
	}
	if req.Decision != DecisionNone {
		t.Errorf("expected %s after cap, got %s", DecisionNone, req.Decision)
	}
}

func TestProcessCompletedTranscription_PausedNeverInterrupts(t *testing.T) {
	e := newTestEngine(t)
	e.Pause()

	req, err := e.ProcessCompletedTranscription("raw", longText, "")
	if err != nil {
		t.Fatalf("ProcessCompletedTranscription failed: %v", err)
	}
	if req.Decision != DecisionNone {
		t.Errorf("paused engine requested %s", req.Decision)
	}
}

// TestSubmitEditReview_RepeatedCorrectionActivates walks the full learning
// path: the same correction three reviews in a row, then the rewrite shows up
// in adjusted output.
func TestSubmitEditReview_RepeatedCorrectionActivates(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < 3; i++ {
		err := e.SubmitEditReview(
			"hey can you send that over",
			"hey can you send that over",
			"hello can you send that over",
			"", false,
		)
		if err != nil {
			t.Fatalf("SubmitEditReview %d failed: %v", i, err)
		}
	}

	patterns, err := e.ListPatterns()
	if err != nil {
		t.Fatalf("ListPatterns failed: %v", err)
	}
	if len(patterns) != 1 || !patterns[0].Active() {
		t.Fatalf("expected 1 active pattern, got %+v", patterns)
	}

	if got := e.ApplyLearnedAdjustments("hey there", ""); got != "hello there" {
		t.Errorf("expected %q, got %q", "hello there", got)
	}
}

// TestSubmitEditReview_UnchangedTextQueuesOnlySession covers a review where
// the user accepted the refinement untouched: the session is still recorded
// and queued, but no learning artifacts are produced.
func TestSubmitEditReview_UnchangedTextQueuesOnlySession(t *testing.T) {
	e := newTestEngine(t)

	text := "the numbers look strong this quarter"
	if err := e.SubmitEditReview(text, text, text, "", false); err != nil {
		t.Fatalf("SubmitEditReview failed: %v", err)
	}

	ops, err := e.store.PeekQueue(0)
	if err != nil {
		t.Fatalf("PeekQueue failed: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("expected exactly 1 queued operation, got %d", len(ops))
	}
	if ops[0].Kind != OpSaveSession {
		t.Errorf("expected %s, got %s", OpSaveSession, ops[0].Kind)
	}

	patterns, _ := e.ListPatterns()
	if len(patterns) != 0 {
		t.Errorf("no-op review produced %d patterns", len(patterns))
	}
}

func TestSubmitEditReview_SkipRecordsWithoutLearning(t *testing.T) {
	e := newTestEngine(t)

	err := e.SubmitEditReview("hey there", "hey there", "hello there", "", true)
	if err != nil {
		t.Fatalf("SubmitEditReview failed: %v", err)
	}

	sessions, err := e.store.ListSessions(0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 1 || !sessions[0].WasSkipped {
		t.Fatalf("expected 1 skipped session, got %+v", sessions)
	}

	patterns, _ := e.ListPatterns()
	if len(patterns) != 0 {
		t.Errorf("skipped review produced %d patterns", len(patterns))
	}
}

func TestSubmitEditReview_EmptyFinalFallsBack(t *testing.T) {
	e := newTestEngine(t)

	if err := e.SubmitEditReview("hey there", "hey there", "", "", false); err != nil {
		t.Fatalf("SubmitEditReview failed: %v", err)
	}

	sessions, _ := e.store.ListSessions(0)
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].UserFinalText != "hey there" || !sessions[0].WasSkipped {
		t.Errorf("expected refined text carried as final and marked skipped, got %+v", sessions[0])
	}
}

func TestSubmitABTest(t *testing.T) {
	e := newTestEngine(t)

	optionA := "send the report now"
	optionB := "please could you send the full report over to me now"
	if err := e.SubmitABTest("raw text", optionA, optionB, optionA, ""); err != nil {
		t.Fatalf("SubmitABTest failed: %v", err)
	}

	sessions, _ := e.store.ListSessions(0)
	if len(sessions) != 1 || sessions[0].SessionType != SessionABTest {
		t.Fatalf("expected 1 ab_test session, got %+v", sessions)
	}
	if sessions[0].UserFinalText != optionA {
		t.Errorf("selected option not recorded as final text: %q", sessions[0].UserFinalText)
	}

	ops, _ := e.store.PeekQueue(0)
	kinds := map[OperationKind]int{}
	for _, op := range ops {
		kinds[op.Kind]++
	}
	if kinds[OpSaveSession] != 1 || kinds[OpSaveAssignment] != 1 {
		t.Errorf("unexpected queued kinds: %v", kinds)
	}

	// Picking the shorter option moves conciseness.
	pref, err := e.store.GetPreference(PreferenceConciseness)
	if err != nil {
		t.Fatalf("GetPreference failed: %v", err)
	}
	if pref.Value <= 0 {
		t.Errorf("expected positive conciseness drift, got %v", pref.Value)
	}
}

func TestSubmitABTest_SelectionMismatch(t *testing.T) {
	e := newTestEngine(t)

	err := e.SubmitABTest("raw", "option a", "option b", "something else", "")
	if !errors.Is(err, ErrSelectionMismatch) {
		t.Fatalf("expected ErrSelectionMismatch, got %v", err)
	}

	sessions, _ := e.store.ListSessions(0)
	if len(sessions) != 0 {
		t.Errorf("mismatched selection recorded %d sessions", len(sessions))
	}
}

func TestPauseResume(t *testing.T) {
	e := newTestEngine(t)
	activatePattern(t, e.store, "hey", "hello", "")

	e.Pause()
	if got := e.ApplyLearnedAdjustments("hey there", ""); got != "hey there" {
		t.Errorf("paused engine adjusted text: %q", got)
	}

	// Sessions are still recorded while paused; models are not.
	if err := e.SubmitEditReview("teh report", "teh report", "the report", "", false); err != nil {
		t.Fatalf("SubmitEditReview failed: %v", err)
	}
	patterns, _ := e.ListPatterns()
	if len(patterns) != 1 {
		t.Errorf("paused review changed the pattern set: %d patterns", len(patterns))
	}
	sessions, _ := e.store.ListSessions(0)
	if len(sessions) != 1 {
		t.Errorf("paused review lost the session: %d sessions", len(sessions))
	}

	e.Resume()
	if got := e.ApplyLearnedAdjustments("hey there", ""); got != "hello there" {
		t.Errorf("resumed engine did not adjust: %q", got)
	}
}

func TestApplyLearnedAdjustments_FailsOpen(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := e.ApplyLearnedAdjustments("hey there", ""); got != "hey there" {
		t.Errorf("closed engine altered text: %q", got)
	}
}

func TestDeletePattern(t *testing.T) {
	e := newTestEngine(t)
	activatePattern(t, e.store, "hey", "hello", "")

	patterns, _ := e.ListPatterns()
	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(patterns))
	}

	if err := e.DeletePattern(patterns[0].ID); err != nil {
		t.Fatalf("DeletePattern failed: %v", err)
	}
	if got := e.ApplyLearnedAdjustments("hey there", ""); got != "hey there" {
		t.Errorf("deleted pattern still applied: %q", got)
	}
	if err := e.DeletePattern(patterns[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResetAllLearning(t *testing.T) {
	e := newTestEngine(t)
	activatePattern(t, e.store, "hey", "hello", "")

	if err := e.ResetAllLearning(); err != nil {
		t.Fatalf("ResetAllLearning failed: %v", err)
	}

	stats, err := e.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Patterns != 0 || stats.Sessions != 0 || stats.PendingOperations != 0 {
		t.Errorf("learning state survived reset: %+v", stats)
	}
}

func TestEngine_OfflineSyncStatus(t *testing.T) {
	e := newTestEngine(t)

	status := e.SyncStatus()
	if status.State != SyncOffline {
		t.Errorf("expected %s without remote credentials, got %s", SyncOffline, status.State)
	}
}

func TestEngine_ExportImportSnapshot(t *testing.T) {
	e := newTestEngine(t)
	activatePattern(t, e.store, "hey", "hello", "")

	var buf strings.Builder
	if err := e.ExportSnapshot(context.Background(), &buf); err != nil {
		t.Fatalf("ExportSnapshot failed: %v", err)
	}

	fresh := newTestEngine(t)
	result, err := fresh.ImportSnapshot(context.Background(), strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ImportSnapshot failed: %v", err)
	}
	if result.Patterns != 1 {
		t.Errorf("expected 1 pattern restored, got %d", result.Patterns)
	}
	if got := fresh.ApplyLearnedAdjustments("hey there", ""); got != "hello there" {
		t.Errorf("restored pattern not applied: %q", got)
	}
}
