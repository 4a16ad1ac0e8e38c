package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker", "test"} {
		l, err := NewLogger(env)
		if err != nil {
			t.Fatalf("%s: %v", env, err)
		}
		if l == nil {
			t.Fatalf("%s: nil logger", env)
		}
	}

	if _, err := NewLogger("staging"); err == nil {
		t.Error("expected error for unknown env")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "warn")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled")
	}

	if _, err := NewLogger("prod", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background(), nil) == nil {
		t.Fatal("FromContext must never return nil")
	}
	fallback := zap.NewExample()
	if FromContext(context.Background(), fallback) != fallback {
		t.Error("expected fallback outside a request")
	}

	l := zap.NewExample()
	ctx := NewContext(context.Background(), l)
	if FromContext(ctx, fallback) != l {
		t.Error("logger not round-tripped through context")
	}
}
