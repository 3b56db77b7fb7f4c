// Package ingest registers documents and feeds them into the vector index.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nidhi-ai/nidhi/internal/chunker"
	"github.com/nidhi-ai/nidhi/internal/domain"
	"github.com/nidhi-ai/nidhi/internal/registry"
)

var allowedTypes = map[string]bool{
	"pdf":  true,
	"docx": true,
	"xlsx": true,
	"txt":  true,
}

// Indexer is the slice of the vector index the service needs.
type Indexer interface {
	Add(ctx context.Context, chunks []domain.Chunk) error
	Clear(ctx context.Context) error
	Len() int
}

// Stats summarizes the corpus.
type Stats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

type Service struct {
	registry registry.Registry
	indexer  Indexer
	chunker  *chunker.Chunker
	maxBytes int64
	logger   *zap.Logger
}

func New(
	reg registry.Registry,
	indexer Indexer,
	ch *chunker.Chunker,
	maxBytes int64,
	logger *zap.Logger,
) *Service {
	return &Service{
		registry: reg,
		indexer:  indexer,
		chunker:  ch,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Ingest validates, registers, chunks and indexes one document. The registry
// write and the index write succeed or fail together: on an index failure the
// registry entry is rolled back so a later rebuild cannot resurrect a
// document the caller saw rejected.
func (s *Service) Ingest(
	ctx context.Context, filename, fileType, content string,
) (domain.DocumentInfo, error) {
	if err := s.validate(filename, fileType, content); err != nil {
		return domain.DocumentInfo{}, err
	}

	doc := domain.Document{
		ID:         uuid.NewString(),
		Filename:   filename,
		FileType:   fileType,
		SizeBytes:  int64(len(content)),
		Text:       content,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.registry.Put(ctx, doc); err != nil {
		return domain.DocumentInfo{}, fmt.Errorf("register document: %w", err)
	}

	if err := s.indexDocument(ctx, doc); err != nil {
		if delErr := s.registry.Delete(ctx, doc.ID); delErr != nil {
			s.logger.Error("Rollback of registry entry failed",
				zap.String("document_id", doc.ID),
				zap.Error(delErr),
			)
		}
		return domain.DocumentInfo{}, err
	}

	s.logger.Info("Document ingested",
		zap.String("document_id", doc.ID),
		zap.String("filename", filename),
		zap.Int64("size_bytes", doc.SizeBytes),
	)
	return doc.Info(), nil
}

// Delete removes a document from the registry and rebuilds the index from
// the remaining documents. The index supports no single-document removal, so
// delete always costs a full rebuild.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.registry.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.rebuild(ctx); err != nil {
		return fmt.Errorf("rebuild after delete: %w", err)
	}
	s.logger.Info("Document deleted", zap.String("document_id", id))
	return nil
}

// Reindex drops the index and re-ingests every registered document.
func (s *Service) Reindex(ctx context.Context) error {
	return s.rebuild(ctx)
}

func (s *Service) List(ctx context.Context) ([]domain.DocumentInfo, error) {
	docs, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	infos := make([]domain.DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		infos = append(infos, doc.Info())
	}
	return infos, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	docs, err := s.registry.List(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list documents: %w", err)
	}
	return Stats{Documents: len(docs), Chunks: s.indexer.Len()}, nil
}

func (s *Service) rebuild(ctx context.Context) error {
	docs, err := s.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	if err := s.indexer.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	for _, doc := range docs {
		if err := s.indexDocument(ctx, doc); err != nil {
			return err
		}
	}
	s.logger.Info("Index rebuilt", zap.Int("documents", len(docs)))
	return nil
}

func (s *Service) indexDocument(ctx context.Context, doc domain.Document) error {
	chunks := s.chunker.Chunks(doc.Text, domain.ChunkMetadata{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		FileType:   doc.FileType,
		SourceTime: doc.UploadedAt,
	})
	if err := s.indexer.Add(ctx, chunks); err != nil {
		return fmt.Errorf("index document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *Service) validate(filename, fileType, content string) error {
	if filename == "" {
		return fmt.Errorf("filename is required: %w", domain.ErrInvalidArgument)
	}
	if !allowedTypes[fileType] {
		return fmt.Errorf("file type %q is not supported: %w", fileType, domain.ErrInvalidArgument)
	}
	if content == "" {
		return fmt.Errorf("document has no content: %w", domain.ErrInvalidArgument)
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return fmt.Errorf("document exceeds %d bytes: %w", s.maxBytes, domain.ErrInvalidArgument)
	}
	return nil
}
