package docproc

import "strings"

// Chunker splits extracted text into bounded, overlapping chunks. It
// prefers paragraph and line boundaries, falling back to word and then
// character splits for unstructured text.
type Chunker struct {
	ChunkSize    int
	ChunkOverlap int
	separators   []string
}

// NewChunker creates a chunker with the given size and overlap in
// characters. Overlap is clamped below size.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1200
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 6
	}
	return &Chunker{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		separators:   []string{"\n\n", "\n", " ", ""},
	}
}

// Split breaks text into chunks. Empty input yields no chunks.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= c.ChunkSize {
		return []string{text}
	}

	for _, separator := range c.separators {
		if separator == "" {
			return c.splitByCharacter(text)
		}
		parts := strings.Split(text, separator)
		if len(parts) > 1 {
			return c.merge(parts, separator)
		}
	}
	return c.splitByCharacter(text)
}

// merge packs separator-delimited pieces into chunks up to ChunkSize,
// carrying ChunkOverlap characters from the end of each chunk into the
// next.
func (c *Chunker) merge(parts []string, separator string) []string {
	var result []string
	current := ""

	for _, part := range parts {
		if part == "" {
			continue
		}
		piece := part
		if current != "" {
			piece = separator + part
		}

		if current != "" && len(current)+len(piece) > c.ChunkSize {
			result = append(result, strings.TrimSpace(current))
			if c.ChunkOverlap > 0 && len(current) > c.ChunkOverlap {
				current = current[len(current)-c.ChunkOverlap:] + piece
			} else {
				current = part
			}
		} else {
			current += piece
		}
	}

	if strings.TrimSpace(current) != "" {
		result = append(result, strings.TrimSpace(current))
	}
	return result
}

func (c *Chunker) splitByCharacter(text string) []string {
	var result []string
	runes := []rune(text)
	step := c.ChunkSize - c.ChunkOverlap

	for i := 0; i < len(runes); i += step {
		end := i + c.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		result = append(result, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return result
}
