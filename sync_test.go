package retain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scribeworks/retain/internal/remote"
)

// syncTestHandler serves the full remote API surface with empty pull results.
func syncTestHandler(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/health":
		_ = json.NewEncoder(w).Encode(remote.ProbeResponse{Status: "ok"})
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/patterns":
		_ = json.NewEncoder(w).Encode(remote.PatternsResponse{})
	case r.Method == http.MethodGet && r.URL.Path == "/api/v1/preferences":
		_ = json.NewEncoder(w).Encode(remote.PreferencesResponse{})
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func TestNewSyncer_NilClientPinsOffline(t *testing.T) {
	store := newTestStore(t)
	syncer := NewSyncer(store, nil, nil, 0)

	if syncer.State() != SyncOffline {
		t.Errorf("expected %s, got %s", SyncOffline, syncer.State())
	}

	status := syncer.SyncNow(context.Background())
	if status.State != SyncOffline {
		t.Errorf("SyncNow moved state to %s", status.State)
	}

	// Start must be a no-op without a client; Stop still safe.
	syncer.Start()
	syncer.Stop()
	syncer.Stop()
}

func TestConnect_StateTransitions(t *testing.T) {
	store := newTestStore(t)

	t.Run("reachable", func(t *testing.T) {
		client, _ := newRemoteServer(t, syncTestHandler)
		syncer := NewSyncer(store, client, nil, 0)
		if state := syncer.Connect(context.Background()); state != SyncConnected {
			t.Errorf("expected %s, got %s", SyncConnected, state)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(syncTestHandler))
		url := srv.URL
		srv.Close()
		syncer := NewSyncer(store, remote.NewHTTPClient(url, "k", "u"), nil, 0)
		if state := syncer.Connect(context.Background()); state != SyncDisconnected {
			t.Errorf("expected %s, got %s", SyncDisconnected, state)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		client, _ := newRemoteServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		syncer := NewSyncer(store, client, nil, 0)
		if state := syncer.Connect(context.Background()); state != SyncErrored {
			t.Errorf("expected %s, got %s", SyncErrored, state)
		}
		if syncer.Status().Message == "" {
			t.Error("expected error message in status")
		}
	})
}

func TestSyncNow_FullPass(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.UpsertPattern("teh", "the", ""); err != nil {
		t.Fatalf("UpsertPattern failed: %v", err)
	}

	// The remote holds a reinforced copy of one pattern and a preference the
	// local store has never seen. Both must land locally after the pass.
	remotePattern := remote.PatternPayload{
		ID:              "01REMOTE",
		OriginalPhrase:  "teh",
		CorrectedPhrase: "the",
		OccurrenceCount: 9,
		FirstSeen:       time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339),
		LastSeen:        time.Now().UTC().Format(time.RFC3339),
		Confidence:      0.9,
	}
	remotePref := remote.PreferencePayload{
		ID:             "01REMOTEPREF",
		PreferenceType: string(PreferenceFormality),
		Value:          0.4,
		SampleCount:    12,
		LastUpdated:    time.Now().UTC().Format(time.RFC3339),
	}

	client, _ := newRemoteServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/health":
			_ = json.NewEncoder(w).Encode(remote.ProbeResponse{Status: "ok"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/patterns":
			_ = json.NewEncoder(w).Encode(remote.PatternsResponse{Patterns: []remote.PatternPayload{remotePattern}})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/preferences":
			_ = json.NewEncoder(w).Encode(remote.PreferencesResponse{Preferences: []remote.PreferencePayload{remotePref}})
		default:
			w.WriteHeader(http.StatusOK)
		}
	})

	syncer := NewSyncer(store, client, nil, 0)
	status := syncer.SyncNow(context.Background())

	if status.State != SyncConnected {
		t.Fatalf("expected %s, got %s (%s)", SyncConnected, status.State, status.Message)
	}
	if status.PendingOperations != 0 {
		t.Errorf("expected drained queue, got %d pending", status.PendingOperations)
	}
	if status.LastSync.IsZero() {
		t.Error("expected sync time recorded")
	}

	// Pull merged the stronger remote pattern copy.
	patterns, err := store.ListPatterns()
	if err != nil {
		t.Fatalf("ListPatterns failed: %v", err)
	}
	if len(patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(patterns))
	}
	if patterns[0].OccurrenceCount != 9 || patterns[0].Confidence != 0.9 {
		t.Errorf("remote copy not merged: %+v", patterns[0])
	}

	pref, err := store.GetPreference(PreferenceFormality)
	if err != nil {
		t.Fatalf("GetPreference failed: %v", err)
	}
	if pref.Value != 0.4 {
		t.Errorf("remote preference not merged: %+v", pref)
	}

	// Merging must not re-enqueue anything.
	if n, _ := store.QueueLength(); n != 0 {
		t.Errorf("pull enqueued %d operations", n)
	}
}

func TestSyncNow_UnreachableLeavesQueue(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.UpsertPattern("teh", "the", ""); err != nil {
		t.Fatalf("UpsertPattern failed: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(syncTestHandler))
	url := srv.URL
	srv.Close()

	syncer := NewSyncer(store, remote.NewHTTPClient(url, "k", "u"), nil, 0)
	status := syncer.SyncNow(context.Background())

	if status.State != SyncDisconnected {
		t.Errorf("expected %s, got %s", SyncDisconnected, status.State)
	}
	if status.PendingOperations != 1 {
		t.Errorf("expected queue preserved, got %d pending", status.PendingOperations)
	}
	if !status.LastSync.IsZero() {
		t.Error("sync time must not advance on a failed pass")
	}
}

func TestResetSync(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.UpsertPattern("teh", "the", ""); err != nil {
		t.Fatalf("UpsertPattern failed: %v", err)
	}
	if err := store.SetLastSync(time.Now().UTC()); err != nil {
		t.Fatalf("SetLastSync failed: %v", err)
	}

	client, _ := newRemoteServer(t, syncTestHandler)
	syncer := NewSyncer(store, client, nil, 0)

	status := syncer.ResetSync(context.Background())
	if status.State != SyncConnected {
		t.Fatalf("expected %s, got %s (%s)", SyncConnected, status.State, status.Message)
	}
	if status.PendingOperations != 0 {
		t.Errorf("expected cleared queue, got %d pending", status.PendingOperations)
	}
}

func TestResetSync_OfflineClearsState(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.UpsertPattern("teh", "the", ""); err != nil {
		t.Fatalf("UpsertPattern failed: %v", err)
	}
	if err := store.SetLastSync(time.Now().UTC()); err != nil {
		t.Fatalf("SetLastSync failed: %v", err)
	}

	syncer := NewSyncer(store, nil, nil, 0)
	status := syncer.ResetSync(context.Background())

	if status.State != SyncOffline {
		t.Errorf("expected %s, got %s", SyncOffline, status.State)
	}
	if status.PendingOperations != 0 {
		t.Errorf("expected cleared queue, got %d pending", status.PendingOperations)
	}
	if !status.LastSync.IsZero() {
		t.Error("expected cleared sync time")
	}
}

func TestSyncer_KickNeverBlocks(t *testing.T) {
	store := newTestStore(t)
	syncer := NewSyncer(store, nil, nil, 0)

	// Without a running loop the buffered kick must still not block.
	for i := 0; i < 10; i++ {
		syncer.Kick()
	}
}

func TestSyncer_StartStop(t *testing.T) {
	store := newTestStore(t)
	client, _ := newRemoteServer(t, syncTestHandler)

	syncer := NewSyncer(store, client, nil, time.Hour)
	syncer.Start()
	syncer.Stop()
	syncer.Stop()

	// A stopped syncer never restarts.
	syncer.Start()
}
