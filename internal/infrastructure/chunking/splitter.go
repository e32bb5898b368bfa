package chunking

import "strings"

// Chunk is a slice of a source document with its byte offsets into the
// original text, so evidence spans can be mapped back to the document.
type Chunk struct {
	Text  string
	Start int
	End   int
}

type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Split cuts text into overlapping chunks of at most ChunkSize runes,
// preserving the byte offsets of each chunk in the original text.
func (s *Splitter) Split(text string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	// Byte offset of each rune, plus the end sentinel.
	offsets := make([]int, len(runes)+1)
	pos := 0
	for i, r := range runes {
		offsets[i] = pos
		pos += len(string(r))
	}
	offsets[len(runes)] = pos

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		raw := string(runes[start:end])
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			leading := len(raw) - len(strings.TrimLeft(raw, " \t\n\r"))
			chunkStart := offsets[start] + leading
			out = append(out, Chunk{
				Text:  trimmed,
				Start: chunkStart,
				End:   chunkStart + len(trimmed),
			})
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
