// Package registry stores raw document text durably. It is the source of
// truth the vector index is rebuilt from.
package registry

import (
	"context"

	"github.com/nidhi-ai/nidhi/internal/domain"
)

type Registry interface {
	// Put stores or replaces a document.
	Put(ctx context.Context, doc domain.Document) error
	// Get returns a document by id, or domain.ErrDocumentNotFound.
	Get(ctx context.Context, id string) (domain.Document, error)
	// List returns all documents, order unspecified.
	List(ctx context.Context) ([]domain.Document, error)
	// Delete removes a document by id, or domain.ErrDocumentNotFound.
	Delete(ctx context.Context, id string) error
}
