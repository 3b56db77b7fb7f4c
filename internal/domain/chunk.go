package domain

import "time"

// ChunkMetadata carries the provenance of a chunk back to its source document.
type ChunkMetadata struct {
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"file_type"`
	ChunkIndex int       `json:"chunk_index"`
	ChunkSize  int       `json:"chunk_size"`
	SourceTime time.Time `json:"source_timestamp"`
}

// Chunk is a bounded slice of a document's text plus its provenance.
// Immutable once created; owned by the index after insertion.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// MatchesFilter reports whether the chunk's metadata matches every
// key/value pair in the filter exactly. An empty filter matches everything.
func (c Chunk) MatchesFilter(filter map[string]string) bool {
	for key, want := range filter {
		if c.metadataField(key) != want {
			return false
		}
	}
	return true
}

func (c Chunk) metadataField(key string) string {
	switch key {
	case "document_id":
		return c.Metadata.DocumentID
	case "filename":
		return c.Metadata.Filename
	case "file_type":
		return c.Metadata.FileType
	default:
		return ""
	}
}

// RetrievalResult pairs a chunk with its similarity score for one query.
type RetrievalResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
