package docproc_test

import (
	"strings"
	"testing"

	"github.com/robypag/scentsmith/pkg/docproc"
)

func TestChunkerEmptyInput(t *testing.T) {
	c := docproc.NewChunker(100, 20)
	if chunks := c.Split("   \n  "); len(chunks) != 0 {
		t.Fatalf("expected no chunks for blank input, got %d", len(chunks))
	}
}

func TestChunkerShortTextSingleChunk(t *testing.T) {
	c := docproc.NewChunker(100, 20)
	chunks := c.Split("a short note")
	if len(chunks) != 1 || chunks[0] != "a short note" {
		t.Fatalf("expected the input back as one chunk, got %+v", chunks)
	}
}

func TestChunkerBoundsChunkSize(t *testing.T) {
	c := docproc.NewChunker(50, 10)
	text := strings.Repeat("lavender bergamot vetiver oakmoss ", 40)

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		// A chunk may exceed the target by at most one piece plus the
		// carried overlap; it must never be unbounded.
		if len(chunk) > 2*c.ChunkSize {
			t.Fatalf("chunk %d is %d chars, far over the %d target", i, len(chunk), c.ChunkSize)
		}
	}
}

func TestChunkerPrefersParagraphBoundaries(t *testing.T) {
	c := docproc.NewChunker(40, 0)
	text := "first paragraph about neroli\n\nsecond paragraph about ambergris\n\nthird paragraph about musk"

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected paragraph-level split, got %+v", chunks)
	}
	for _, chunk := range chunks {
		if strings.HasPrefix(chunk, "\n") || strings.HasSuffix(chunk, "\n") {
			t.Fatalf("chunk has dangling newline: %q", chunk)
		}
	}
}

func TestChunkerUnstructuredTextOverlaps(t *testing.T) {
	c := docproc.NewChunker(20, 5)
	text := strings.Repeat("x", 100)

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected character-level split, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 20 {
			t.Fatalf("chunk %d exceeds size: %d", i, len(chunk))
		}
	}
	// Consecutive character-split chunks share the overlap region.
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	if total <= len(text) {
		t.Fatal("expected overlapping chunks to cover more than the input length")
	}
}

func TestChunkerClampsBadOverlap(t *testing.T) {
	c := docproc.NewChunker(100, 500)
	if c.ChunkOverlap >= c.ChunkSize {
		t.Fatalf("overlap %d not clamped below size %d", c.ChunkOverlap, c.ChunkSize)
	}
}
