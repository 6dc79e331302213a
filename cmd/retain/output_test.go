package main

import (
	"errors"
	"strings"
	"testing"
)

func TestScrubSensitiveData(t *testing.T) {
	orig := cfgAPIKey
	defer func() { cfgAPIKey = orig }()

	cfgAPIKey = "sk-super-secret"
	got := scrubSensitiveData("remote: push failed: bad key sk-super-secret rejected")
	if strings.Contains(got, "sk-super-secret") {
		t.Errorf("API key leaked: %q", got)
	}
	if !strings.Contains(got, "[REDACTED]") {
		t.Errorf("expected redaction marker, got %q", got)
	}

	cfgAPIKey = ""
	msg := "plain error message"
	if got := scrubSensitiveData(msg); got != msg {
		t.Errorf("message altered without a key configured: %q", got)
	}
}

func TestOutputError(t *testing.T) {
	var sb strings.Builder
	outputError(&sb, errors.New("something broke"))
	if sb.String() != "Error: something broke\n" {
		t.Errorf("unexpected output: %q", sb.String())
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("01HXYZABCDEF"); got != "01HXYZAB" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("short input altered: %q", got)
	}
}
