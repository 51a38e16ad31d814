package logutil

import (
	"log"
	"os"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "好きなだけ", "好きなだけ"},
		{"newlines", "a\nb\r\nc", `a\nb\n\nc`},
		{"tab", "a\tb", `a\tb`},
		{"control", "a\x01b", "a?b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeTruncatesOnRuneBoundary(t *testing.T) {
	got := Sanitize(strings.Repeat("字", 150))
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation marker, got %q", got)
	}
	if n := len([]rune(strings.TrimSuffix(got, "..."))); n != 100 {
		t.Errorf("expected 100 runes kept, got %d", n)
	}
}

func TestRedactKey(t *testing.T) {
	if got := RedactKey("short"); got != "********" {
		t.Errorf("RedactKey(short) = %q", got)
	}
	if got := RedactKey("sk-or-1234567890abcd"); got != "sk-o...abcd" {
		t.Errorf("RedactKey = %q", got)
	}
}

func TestSetupStderr(t *testing.T) {
	prevFlags, prevOut := log.Flags(), log.Writer()
	defer func() {
		log.SetFlags(prevFlags)
		log.SetOutput(prevOut)
	}()

	log.SetFlags(0)
	SetupStderr()
	if log.Writer() != os.Stderr {
		t.Error("expected log output on stderr")
	}
	if want := log.LstdFlags | log.Lshortfile; log.Flags() != want {
		t.Errorf("flags = %d, want %d", log.Flags(), want)
	}
}
