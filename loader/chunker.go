package loader

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"visitassist/types"
)

const (
	ChunkSize    = 1000
	ChunkOverlap = 200
)

// boundary preference when cutting a chunk, best first.
var separators = []string{"\n\n", "\n", ". ", " "}

// SplitText splits text into segments of at most size characters with
// roughly overlap characters shared between neighbours, so a fact sitting
// on a boundary stays recoverable from at least one segment. Cutting
// prefers paragraph, then line, then sentence, then word boundaries and
// only hard-cuts when a window has none. Deterministic; never returns an
// empty segment.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = ChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = ChunkOverlap
	}

	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return nil
	}

	var segments []string
	start := 0
	for start < len(cleaned) {
		end := start + size
		if end >= len(cleaned) {
			if seg := strings.TrimSpace(cleaned[start:]); seg != "" {
				segments = append(segments, seg)
			}
			break
		}

		cut := findCut(cleaned, start, end)
		if seg := strings.TrimSpace(cleaned[start:cut]); seg != "" {
			segments = append(segments, seg)
		}

		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return segments
}

// findCut picks the cut position within (start, end], preferring the last
// separator occurrence inside the window. A hard cut backs off to a rune
// boundary.
func findCut(text string, start, end int) int {
	window := text[start:end]
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return start + idx + len(sep)
		}
	}
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}
	return end
}

// ChunkPages turns extracted page texts into retrieval chunks. Pages are
// split independently so every chunk keeps its page number; the chunk
// index runs across the whole document.
func ChunkPages(docID uuid.UUID, title string, pages []string) []types.Chunk {
	var chunks []types.Chunk
	index := 0
	for pageNo, page := range pages {
		for _, seg := range SplitText(page, ChunkSize, ChunkOverlap) {
			chunks = append(chunks, types.Chunk{
				ID:       uuid.New(),
				DocID:    docID,
				DocTitle: title,
				Index:    index,
				Page:     pageNo + 1,
				Content:  seg,
			})
			index++
		}
	}
	return chunks
}
