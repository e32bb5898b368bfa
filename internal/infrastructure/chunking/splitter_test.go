package chunking

import (
	"strings"
	"testing"
)

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	s := NewSplitter(100, 20)
	chunks := s.Split("short protocol text")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Start != 0 || chunks[0].End != len("short protocol text") {
		t.Fatalf("unexpected offsets: %+v", chunks[0])
	}
}

func TestSplitOffsetsIndexIntoOriginal(t *testing.T) {
	text := strings.Repeat("abcde ", 100)
	s := NewSplitter(50, 10)

	for _, chunk := range s.Split(text) {
		if chunk.Start < 0 || chunk.End > len(text) {
			t.Fatalf("offsets out of bounds: %+v", chunk)
		}
		if text[chunk.Start:chunk.End] != chunk.Text {
			t.Fatalf("offsets do not match chunk text: %+v", chunk)
		}
	}
}

func TestSplitOverlapCoversWholeText(t *testing.T) {
	text := strings.Repeat("x", 250)
	s := NewSplitter(100, 25)

	chunks := s.Split(text)
	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(chunks))
	}
	if chunks[len(chunks)-1].End != len(text) {
		t.Fatalf("last chunk does not reach end: %+v", chunks[len(chunks)-1])
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(100, 20)
	if chunks := s.Split(""); chunks != nil {
		t.Fatalf("expected nil for empty text, got %v", chunks)
	}
}
