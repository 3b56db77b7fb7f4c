// Package index owns the embedding-backed similarity index: insertion,
// brute-force cosine search with metadata filtering, and durable
// persistence to a path-addressed JSON snapshot.
package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/nidhi-ai/nidhi/internal/domain"
)

// seedText is the placeholder entry a fresh index is created with, so the
// index file always has at least one entry. The seed carries no vector and
// is never returned by Search.
const seedText = "Initial document"

type entry struct {
	Vector []float32    `json:"vector"`
	Chunk  domain.Chunk `json:"chunk"`
	Seed   bool         `json:"seed,omitempty"`
}

// Index is the one shared mutable resource of the pipeline. A writer lock
// covers Add/Clear and the persistence they trigger; searches take the
// read lock and may run concurrently with each other.
type Index struct {
	mu            sync.RWMutex
	path          string
	dim           int
	entries       []entry
	docEmbedder   domain.Embedder
	queryEmbedder domain.Embedder
	logger        *zap.Logger
}

// New creates an index persisting to path. Embeddings are always computed
// by the injected embedders, never locally. Document and query embedders
// are separate so each can carry its own instruction prefix.
func New(docEmbedder, queryEmbedder domain.Embedder, path string, logger *zap.Logger) *Index {
	return &Index{
		path:          path,
		docEmbedder:   docEmbedder,
		queryEmbedder: queryEmbedder,
		logger:        logger,
	}
}

// Add embeds the chunks and appends them to the index, then persists.
// The batch is all-or-nothing: any embedding failure, including a vector
// of unexpected dimensionality, leaves the index untouched.
func (ix *Index) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ix.embedAll(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	// Validate the whole batch before pinning ix.dim: a rejected batch must
	// leave the index dimensionality untouched.
	dim := ix.dim
	for _, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return fmt.Errorf("got vector of %d dimensions, index has %d: %w",
				len(v), dim, domain.ErrVectorDimMismatch)
		}
	}
	ix.dim = dim

	added := make([]entry, len(chunks))
	for i, c := range chunks {
		added[i] = entry{Vector: vectors[i], Chunk: c}
	}
	ix.entries = append(ix.entries, added...)

	if err := ix.persistLocked(); err != nil {
		return fmt.Errorf("persist after add: %w", err)
	}

	ix.logger.Info("Added chunks to index",
		zap.Int("chunks", len(chunks)),
		zap.Int("total_entries", ix.liveLocked()),
	)
	return nil
}

// Search embeds the query and returns up to k results by descending cosine
// similarity. An optional filter restricts candidates to entries whose
// metadata matches every key exactly. An empty index or a filter that
// matches nothing yields an empty result, not an error.
func (ix *Index) Search(
	ctx context.Context, query string, k int, filter map[string]string,
) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d: %w", k, domain.ErrInvalidArgument)
	}

	ix.mu.RLock()
	empty := ix.liveLocked() == 0
	ix.mu.RUnlock()
	if empty {
		return nil, nil
	}

	res, err := ix.queryEmbedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var results []domain.RetrievalResult
	for _, e := range ix.entries {
		if e.Seed {
			continue
		}
		if !e.Chunk.MatchesFilter(filter) {
			continue
		}
		results = append(results, domain.RetrievalResult{
			Chunk: e.Chunk,
			Score: cosine(res.Embedding, e.Vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Clear replaces the index with a fresh seeded one and persists immediately.
func (ix *Index) Clear(_ context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.entries = []entry{seedEntry()}
	ix.dim = 0

	if err := ix.persistLocked(); err != nil {
		return fmt.Errorf("persist after clear: %w", err)
	}
	ix.logger.Info("Index cleared")
	return nil
}

// Persist writes the current index state durably. May block on disk I/O.
func (ix *Index) Persist() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.persistLocked()
}

// Len reports the number of live (non-seed) entries.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.liveLocked()
}

func (ix *Index) liveLocked() int {
	n := 0
	for _, e := range ix.entries {
		if !e.Seed {
			n++
		}
	}
	return n
}

func (ix *Index) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if be, ok := ix.docEmbedder.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, err
		}
		return res.Embeddings, nil
	}
	res, err := domain.BatchFallback(ctx, ix.docEmbedder, texts)
	if err != nil {
		return nil, err
	}
	return res.Embeddings, nil
}

func seedEntry() entry {
	return entry{
		Chunk: domain.Chunk{Text: seedText},
		Seed:  true,
	}
}

// cosine computes cosine similarity without assuming normalized vectors.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
