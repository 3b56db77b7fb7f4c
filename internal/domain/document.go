package domain

import "time"

// Document is the registered raw text of an uploaded file. The registry is
// the source of truth for documents; the vector index is derived from it and
// can always be rebuilt.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"file_type"`
	SizeBytes  int64     `json:"size_bytes"`
	Text       string    `json:"text"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// DocumentInfo is the metadata view of a Document, without the raw text.
type DocumentInfo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	FileType   string    `json:"file_type"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Info strips the raw text from a Document.
func (d Document) Info() DocumentInfo {
	return DocumentInfo{
		ID:         d.ID,
		Filename:   d.Filename,
		FileType:   d.FileType,
		SizeBytes:  d.SizeBytes,
		UploadedAt: d.UploadedAt,
	}
}
