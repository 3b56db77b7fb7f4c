// Package chunker splits raw document text into overlapping segments
// suitable for embedding and similarity search.
package chunker

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/nidhi-ai/nidhi/internal/domain"
)

// Chunker produces overlapping text chunks with boundary-aware cut points.
// Each chunk is a contiguous slice of the input: when a chunk does not end
// the text, its end is pulled back to the nearest paragraph break, then
// sentence end, then word break inside the window, falling through to a raw
// character cut. The next chunk starts exactly overlap characters before
// the previous end, so cross-boundary context is preserved. All sizes and
// offsets count characters, never bytes, so cuts cannot land inside a
// multi-byte rune.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a Chunker. chunkSize must be positive and overlap must be in
// [0, chunkSize).
func New(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w",
			chunkSize, domain.ErrInvalidArgument)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d: %w",
			chunkSize, overlap, domain.ErrInvalidArgument)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split cuts text into chunks of at most chunkSize characters. Empty input
// yields nil.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + c.chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}

		end = c.cutPoint(runes, start, end)
		chunks = append(chunks, string(runes[start:end]))
		start = end - c.overlap
	}
}

// Chunks splits text and wraps each piece with the document metadata plus
// its zero-based index and character length.
func (c *Chunker) Chunks(text string, meta domain.ChunkMetadata) []domain.Chunk {
	pieces := c.Split(text)
	if len(pieces) == 0 {
		return nil
	}

	if meta.SourceTime.IsZero() {
		meta.SourceTime = time.Now().UTC()
	}

	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		m := meta
		m.ChunkIndex = i
		m.ChunkSize = utf8.RuneCountInString(piece)
		chunks[i] = domain.Chunk{Text: piece, Metadata: m}
	}
	return chunks
}

// boundary separators, coarsest first.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune(" "),
}

// cutPoint moves end back to the best boundary inside (start+overlap, end].
// A boundary closer to start than the overlap would stall progress, so such
// candidates are rejected and the next finer separator is tried.
func (c *Chunker) cutPoint(runes []rune, start, end int) int {
	min := start + c.overlap + 1
	for _, sep := range separators {
		idx := lastIndex(runes[start:end], sep)
		if idx < 0 {
			continue
		}
		cut := start + idx + len(sep)
		if cut >= min {
			return cut
		}
	}
	return end
}

// lastIndex reports the index of the last occurrence of sep in s, or -1.
func lastIndex(s, sep []rune) int {
	for i := len(s) - len(sep); i >= 0; i-- {
		matched := true
		for j := range sep {
			if s[i+j] != sep[j] {
				matched = false
				break
			}
		}
		if matched {
			return i
		}
	}
	return -1
}
