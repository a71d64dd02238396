package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewDefaults(t *testing.T) {
	l, err := New("", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info enabled by default")
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug disabled by default")
	}
}

func TestNewLevel(t *testing.T) {
	l, err := New("debug", "json")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug enabled")
	}
}

func TestNewRejectsUnknown(t *testing.T) {
	if _, err := New("loud", "console"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected a logger")
	}
}
