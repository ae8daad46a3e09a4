package logging

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestFromContext_FallsBackToSharedLogger(t *testing.T) {
	entry := FromContext(context.Background())
	if entry.Logger != Log {
		t.Fatal("expected fallback entry to use the shared logger")
	}
}

func TestFromContext_ReturnsStoredEntry(t *testing.T) {
	stored := Log.WithField("request_id", "abc")
	ctx := WithEntry(context.Background(), stored)

	if got := FromContext(ctx); got != stored {
		t.Fatal("expected stored entry to be returned")
	}
}

func TestStage_AddsFields(t *testing.T) {
	entry := Stage(context.Background(), "speech", "p-1")
	if entry.Data["stage"] != "speech" || entry.Data["project_id"] != "p-1" {
		t.Errorf("unexpected fields: %v", entry.Data)
	}
}

func TestRequestID_RoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	if got := RequestIDFromContext(ctx); got != "req-42" {
		t.Errorf("expected req-42, got %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}

func TestInit_InvalidLevelDefaultsToInfo(t *testing.T) {
	defer Log.SetLevel(logrus.InfoLevel)

	Init("not-a-level", "production")
	if Log.GetLevel() != logrus.InfoLevel {
		t.Errorf("expected info level, got %v", Log.GetLevel())
	}

	Init("debug", "production")
	if Log.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug level, got %v", Log.GetLevel())
	}
}
