// Package retrieval turns similarity search results into prompt-ready context.
package retrieval

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/nidhi-ai/nidhi/internal/domain"
	"github.com/nidhi-ai/nidhi/internal/metrics"
)

// Searcher is the slice of the vector index the engine needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int, filter map[string]string) ([]domain.RetrievalResult, error)
}

// Engine retrieves chunks relevant to a query and formats them as a
// context block for the generation backend.
type Engine struct {
	searcher  Searcher
	maxChunks int
	logger    *zap.Logger
}

func New(searcher Searcher, maxChunks int, logger *zap.Logger) *Engine {
	if maxChunks <= 0 {
		maxChunks = 3
	}
	return &Engine{
		searcher:  searcher,
		maxChunks: maxChunks,
		logger:    logger,
	}
}

// Search exposes raw similarity search, bounded by k.
func (e *Engine) Search(
	ctx context.Context, query string, k int, filter map[string]string,
) ([]domain.RetrievalResult, error) {
	return e.searcher.Search(ctx, query, k, filter)
}

// Context assembles the retrieval context for a query. An optional filter
// restricts candidates by chunk metadata. Retrieval failures degrade to an
// empty context rather than failing the request, so a broken index never
// blocks generation.
func (e *Engine) Context(ctx context.Context, query string, filter map[string]string) string {
	results, err := e.searcher.Search(ctx, query, e.maxChunks, filter)
	if err != nil {
		e.logger.Error("Context retrieval failed", zap.Error(err))
		metrics.RetrievalChunksReturned.Observe(0)
		return ""
	}
	metrics.RetrievalChunksReturned.Observe(float64(len(results)))
	if len(results) == 0 {
		return ""
	}

	parts := make([]string, 0, len(results)*3)
	for _, r := range results {
		filename := r.Chunk.Metadata.Filename
		if filename == "" {
			filename = "Unknown"
		}
		parts = append(parts, "Document: "+filename)
		parts = append(parts, "Content: "+r.Chunk.Text)
		parts = append(parts, "---")
	}

	e.logger.Info("Assembled retrieval context", zap.Int("chunks", len(results)))
	return strings.Join(parts, "\n")
}
