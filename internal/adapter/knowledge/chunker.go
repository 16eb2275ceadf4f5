package knowledge

import "strings"

// sentence terminators recognized when looking for a clean split point.
const sentenceBoundaries = ".!?。！？"

// Chunker splits documents into overlapping pieces sized for embedding.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. Non-positive or inconsistent values fall
// back to a 500-rune window with a 50-rune overlap.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 || overlap >= size {
		overlap = 50
		if overlap >= size {
			overlap = size / 10
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split cuts content into chunks of at most size runes, preferring to end a
// chunk at a sentence boundary in the trailing third of the window. Adjacent
// chunks share overlap runes of context.
func (c *Chunker) Split(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	runes := []rune(content)
	if len(runes) <= c.size {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		// Walk back to the nearest sentence boundary, but not past the
		// trailing third of the window.
		cut := end
		limit := start + c.size*2/3
		for i := end - 1; i > limit; i-- {
			if strings.ContainsRune(sentenceBoundaries, runes[i]) {
				cut = i + 1
				break
			}
		}

		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := cut - c.overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}
