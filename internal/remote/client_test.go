package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, "test-key", "test-user")
}

func TestHTTPClient_Headers(t *testing.T) {
	var got http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_ = json.NewEncoder(w).Encode(ProbeResponse{Status: "ok"})
	})

	if err := client.Probe(context.Background()); err != nil {
		t.Fatalf("Probe failed: %v", err)
	}

	if auth := got.Get("Authorization"); auth != "Bearer test-key" {
		t.Errorf("Authorization = %q", auth)
	}
	if user := got.Get("X-Retain-User"); user != "test-user" {
		t.Errorf("X-Retain-User = %q", user)
	}
	if ua := got.Get("User-Agent"); !strings.HasPrefix(ua, "retain-client/") {
		t.Errorf("User-Agent = %q", ua)
	}
}

func TestHTTPClient_PushPattern(t *testing.T) {
	var (
		gotPath        string
		gotContentType string
		gotPayload     PatternPayload
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		w.WriteHeader(http.StatusCreated)
	})

	payload := &PatternPayload{
		ID:              "01TEST",
		OriginalPhrase:  "teh",
		CorrectedPhrase: "the",
		OccurrenceCount: 4,
		Confidence:      0.7,
	}
	if err := client.PushPattern(context.Background(), payload); err != nil {
		t.Fatalf("PushPattern failed: %v", err)
	}

	if gotPath != "/api/v1/patterns" {
		t.Errorf("path = %q", gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	if gotPayload.OriginalPhrase != "teh" || gotPayload.Confidence != 0.7 {
		t.Errorf("payload lost in transit: %+v", gotPayload)
	}
}

func TestHTTPClient_ErrorCarriesStatusCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such user", http.StatusUnauthorized)
	})

	err := client.PushSession(context.Background(), &SessionPayload{ID: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Error(), "no such user") {
		t.Errorf("response body missing from error: %v", apiErr)
	}
}

func TestHTTPClient_TransportErrorHasZeroStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewHTTPClient(url, "k", "u")
	err := client.Probe(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != 0 {
		t.Errorf("transport failure carried status %d, want 0", apiErr.StatusCode)
	}
}

func TestHTTPClient_DeletePattern(t *testing.T) {
	var gotMethod, gotPath string
	status := http.StatusNoContent
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(status)
	})

	if err := client.DeletePattern(context.Background(), "01ABC"); err != nil {
		t.Fatalf("DeletePattern failed: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/v1/patterns/01ABC" {
		t.Errorf("request was %s %s", gotMethod, gotPath)
	}

	// A pattern that never reached the remote must not wedge retries.
	status = http.StatusNotFound
	if err := client.DeletePattern(context.Background(), "01MISSING"); err != nil {
		t.Errorf("404 should be treated as success, got %v", err)
	}

	status = http.StatusInternalServerError
	if err := client.DeletePattern(context.Background(), "01ABC"); err == nil {
		t.Error("expected error for server failure")
	}
}

func TestHTTPClient_FetchPatterns(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/patterns" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(PatternsResponse{Patterns: []PatternPayload{
			{ID: "01A", OriginalPhrase: "teh", CorrectedPhrase: "the", OccurrenceCount: 3, Confidence: 0.7},
			{ID: "01B", OriginalPhrase: "hey", CorrectedPhrase: "hello", OccurrenceCount: 5, Confidence: 0.9},
		}})
	})

	patterns, err := client.FetchPatterns(context.Background())
	if err != nil {
		t.Fatalf("FetchPatterns failed: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("expected 2 patterns, got %d", len(patterns))
	}
	if patterns[1].OriginalPhrase != "hey" || patterns[1].Confidence != 0.9 {
		t.Errorf("pattern fields lost: %+v", patterns[1])
	}
}

func TestHTTPClient_FetchPreferences(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(PreferencesResponse{Preferences: []PreferencePayload{
			{ID: "01P", PreferenceType: "formality", Value: 0.4, SampleCount: 12},
		}})
	})

	prefs, err := client.FetchPreferences(context.Background())
	if err != nil {
		t.Fatalf("FetchPreferences failed: %v", err)
	}
	if len(prefs) != 1 || prefs[0].PreferenceType != "formality" {
		t.Errorf("unexpected preferences: %+v", prefs)
	}
}

func TestHTTPClient_TrailingSlashTrimmed(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(ProbeResponse{Status: "ok"})
	}))
	t.Cleanup(srv.Close)

	client := NewHTTPClient(srv.URL+"/", "k", "u")
	if err := client.Probe(context.Background()); err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if gotPath != "/api/v1/health" {
		t.Errorf("path = %q, want /api/v1/health", gotPath)
	}
}
