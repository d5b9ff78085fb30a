package main

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestRedactURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: ""},
		{name: "postgres with password", raw: "postgres://creator:s3cret@db:5432/creatorlink", want: "postgres://creator@db:5432/creatorlink"},
		{name: "redis password only", raw: "redis://:s3cret@cache:6379/0", want: "redis://redacted@cache:6379/0"},
		{name: "no credentials", raw: "redis://cache:6379", want: "redis://cache:6379"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redactURL(tt.raw); got != tt.want {
				t.Errorf("redactURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	dsn := "postgres://creator:s3cret@db:5432/creatorlink"
	err := errors.New("connect " + dsn + " failed: password=s3cret rejected")

	got := sanitizeError(err, dsn)

	if strings.Contains(got, "s3cret") {
		t.Errorf("sanitizeError leaked the secret: %q", got)
	}
	if sanitizeError(nil, dsn) != "" {
		t.Error("sanitizeError(nil) should be empty")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
