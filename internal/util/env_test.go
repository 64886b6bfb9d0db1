package util

import (
	"testing"
	"time"
)

func TestGetEnvInt(t *testing.T) {
	t.Setenv("UNIGRAPH_TEST_INT", " 42 ")
	if got := GetEnvInt("UNIGRAPH_TEST_INT", 7); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}

	t.Setenv("UNIGRAPH_TEST_INT", "forty-two")
	if got := GetEnvInt("UNIGRAPH_TEST_INT", 7); got != 7 {
		t.Fatalf("expected default 7, got %d", got)
	}

	if got := GetEnvInt("UNIGRAPH_TEST_INT_MISSING", 3); got != 3 {
		t.Fatalf("expected default 3, got %d", got)
	}
}

func TestGetEnvString(t *testing.T) {
	t.Setenv("UNIGRAPH_TEST_STR", "")
	if got := GetEnvString("UNIGRAPH_TEST_STR", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback for empty value, got %q", got)
	}
	t.Setenv("UNIGRAPH_TEST_STR", "set")
	if got := GetEnvString("UNIGRAPH_TEST_STR", "fallback"); got != "set" {
		t.Fatalf("expected set, got %q", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"false", true, false},
		{"yes", true, true},
		{"yes", false, false},
	}
	for _, tt := range tests {
		t.Setenv("UNIGRAPH_TEST_BOOL", tt.value)
		if got := GetEnvBool("UNIGRAPH_TEST_BOOL", tt.def); got != tt.want {
			t.Fatalf("value %q default %v: got %v", tt.value, tt.def, got)
		}
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("UNIGRAPH_TEST_DUR", "90s")
	if got := GetEnvDuration("UNIGRAPH_TEST_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
	t.Setenv("UNIGRAPH_TEST_DUR", "soon")
	if got := GetEnvDuration("UNIGRAPH_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("expected default, got %v", got)
	}
}
