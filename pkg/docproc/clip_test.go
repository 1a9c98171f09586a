package docproc

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClipRespectsRuneBoundaries(t *testing.T) {
	s := "Fougère accord"

	// A cut landing inside the two-byte è must back up to the rune start.
	if got := clip(s, 5); got != "Foug" {
		t.Fatalf("expected %q, got %q", "Foug", got)
	}
	// A cut landing on a boundary keeps the full rune.
	if got := clip(s, 6); got != "Fougè" {
		t.Fatalf("expected %q, got %q", "Fougè", got)
	}

	for max := 1; max <= len(s); max++ {
		got := clip(s, max)
		if !utf8.ValidString(got) {
			t.Fatalf("clip(%d) produced invalid UTF-8: %q", max, got)
		}
		if len(got) > max {
			t.Fatalf("clip(%d) returned %d bytes", max, len(got))
		}
		if !strings.HasPrefix(s, got) {
			t.Fatalf("clip(%d) is not a prefix: %q", max, got)
		}
	}
}

func TestClipNoopCases(t *testing.T) {
	s := "Lavender 12%"
	if clip(s, 0) != s || clip(s, -1) != s {
		t.Fatal("non-positive budget must return the input unchanged")
	}
	if clip(s, len(s)) != s || clip(s, 1000) != s {
		t.Fatal("a budget at or above the length must return the input unchanged")
	}
}
