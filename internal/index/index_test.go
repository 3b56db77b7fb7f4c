package index

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/nidhi-ai/nidhi/internal/domain"
)

// --- Mocks ---

type stubEmbedder struct {
	vectors     map[string][]float32
	fallbackVec []float32
	err         error
	calls       int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	s.calls++
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return domain.EmbeddingResult{Embedding: v}, nil
	}
	return domain.EmbeddingResult{Embedding: s.fallbackVec}, nil
}

func newTestIndex(t *testing.T, embedder domain.Embedder) *Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.json")
	ix := New(embedder, embedder, path, zap.NewNop())
	if err := ix.LoadOrCreate(); err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	return ix
}

func chunkWith(text, docID, filename string) domain.Chunk {
	return domain.Chunk{
		Text: text,
		Metadata: domain.ChunkMetadata{
			DocumentID: docID,
			Filename:   filename,
			FileType:   "txt",
		},
	}
}

// --- Tests ---

func TestAdd_ThenSearch_SortedDescending(t *testing.T) {
	embedder := &stubEmbedder{
		vectors: map[string][]float32{
			"close":   {1, 0, 0},
			"mid":     {1, 1, 0},
			"far":     {0, 1, 0},
			"a query": {1, 0, 0},
		},
	}
	ix := newTestIndex(t, embedder)

	chunks := []domain.Chunk{
		chunkWith("far", "d1", "a.txt"),
		chunkWith("close", "d1", "a.txt"),
		chunkWith("mid", "d2", "b.txt"),
	}
	if err := ix.Add(context.Background(), chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := ix.Search(context.Background(), "a query", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Chunk.Text != "close" {
		t.Errorf("expected closest chunk first, got %q", results[0].Chunk.Text)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted by descending score at %d", i)
		}
	}
}

func TestSearch_RespectsK(t *testing.T) {
	embedder := &stubEmbedder{fallbackVec: []float32{1, 0}}
	ix := newTestIndex(t, embedder)

	chunks := []domain.Chunk{
		chunkWith("one", "d", "f.txt"),
		chunkWith("two", "d", "f.txt"),
		chunkWith("three", "d", "f.txt"),
	}
	if err := ix.Add(context.Background(), chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := ix.Search(context.Background(), "q", 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestSearch_InvalidK(t *testing.T) {
	ix := newTestIndex(t, &stubEmbedder{fallbackVec: []float32{1}})

	_, err := ix.Search(context.Background(), "q", 0, nil)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	embedder := &stubEmbedder{fallbackVec: []float32{1}}
	ix := newTestIndex(t, embedder)

	results, err := ix.Search(context.Background(), "q", 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results from empty index, got %d", len(results))
	}
	if embedder.calls != 0 {
		t.Errorf("expected no embedding call for empty index, got %d", embedder.calls)
	}
}

func TestSearch_MetadataFilter(t *testing.T) {
	embedder := &stubEmbedder{fallbackVec: []float32{1, 0}}
	ix := newTestIndex(t, embedder)

	chunks := []domain.Chunk{
		chunkWith("bank txt", "d1", "bank.txt"),
		chunkWith("fund txt", "d2", "fund.txt"),
	}
	if err := ix.Add(context.Background(), chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := ix.Search(context.Background(), "q", 5, map[string]string{"document_id": "d2"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Metadata.DocumentID != "d2" {
		t.Fatalf("expected only d2 chunks, got %+v", results)
	}

	results, err = ix.Search(context.Background(), "q", 5, map[string]string{"document_id": "nope"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for non-matching filter, got %d", len(results))
	}
}

func TestAdd_EmbeddingFailureIsAllOrNothing(t *testing.T) {
	embedder := &stubEmbedder{fallbackVec: []float32{1, 0}}
	ix := newTestIndex(t, embedder)

	embedder.err = errors.New("provider unreachable")
	err := ix.Add(context.Background(), []domain.Chunk{chunkWith("x", "d", "f.txt")})
	if err == nil {
		t.Fatal("expected error from failing embedder")
	}
	if ix.Len() != 0 {
		t.Errorf("expected no partial commit, index has %d entries", ix.Len())
	}
}

func TestAdd_DimensionMismatch(t *testing.T) {
	embedder := &stubEmbedder{
		vectors: map[string][]float32{
			"a": {1, 0, 0},
			"b": {1, 0},
		},
	}
	ix := newTestIndex(t, embedder)

	err := ix.Add(context.Background(), []domain.Chunk{
		chunkWith("a", "d", "f.txt"),
		chunkWith("b", "d", "f.txt"),
	})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
	if ix.Len() != 0 {
		t.Errorf("expected no partial commit, index has %d entries", ix.Len())
	}
}

func TestAdd_RejectedBatchDoesNotPinDimensionality(t *testing.T) {
	embedder := &stubEmbedder{
		vectors: map[string][]float32{
			"a": {1, 0, 0},
			"b": {1, 0},
			"c": {0, 1},
			"d": {1, 1},
		},
	}
	ix := newTestIndex(t, embedder)

	err := ix.Add(context.Background(), []domain.Chunk{
		chunkWith("a", "d1", "f.txt"),
		chunkWith("b", "d1", "f.txt"),
	})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}

	// The failed batch must not have fixed the index at 3 dimensions: a
	// consistent 2-dimensional batch still goes in.
	err = ix.Add(context.Background(), []domain.Chunk{
		chunkWith("c", "d2", "g.txt"),
		chunkWith("d", "d2", "g.txt"),
	})
	if err != nil {
		t.Fatalf("consistent batch after rejected batch: %v", err)
	}
	if ix.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", ix.Len())
	}
}

func TestPersist_Idempotent(t *testing.T) {
	embedder := &stubEmbedder{fallbackVec: []float32{0.5, 0.5}}
	path := filepath.Join(t.TempDir(), "index.json")
	ix := New(embedder, embedder, path, zap.NewNop())
	if err := ix.LoadOrCreate(); err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if err := ix.Add(context.Background(), []domain.Chunk{chunkWith("x", "d", "f.txt")}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := ix.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	if err := ix.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Error("expected byte-identical snapshots for back-to-back persists")
	}
}

func TestLoadOrCreate_Reload(t *testing.T) {
	embedder := &stubEmbedder{fallbackVec: []float32{1, 2}}
	path := filepath.Join(t.TempDir(), "index.json")

	ix := New(embedder, embedder, path, zap.NewNop())
	if err := ix.LoadOrCreate(); err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	if err := ix.Add(context.Background(), []domain.Chunk{chunkWith("persisted", "d", "f.txt")}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	reloaded := New(embedder, embedder, path, zap.NewNop())
	if err := reloaded.LoadOrCreate(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Len() != 1 {
		t.Fatalf("expected 1 entry after reload, got %d", reloaded.Len())
	}

	results, err := reloaded.Search(context.Background(), "q", 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Text != "persisted" {
		t.Errorf("expected persisted chunk, got %+v", results)
	}
}

func TestLoadOrCreate_CorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	stub := &stubEmbedder{fallbackVec: []float32{1}}
	ix := New(stub, stub, path, zap.NewNop())
	if err := ix.LoadOrCreate(); err != nil {
		t.Fatalf("expected corrupt index to be recovered, got %v", err)
	}
	if ix.Len() != 0 {
		t.Errorf("expected fresh empty index, got %d entries", ix.Len())
	}
}

func TestClear(t *testing.T) {
	embedder := &stubEmbedder{fallbackVec: []float32{1, 0}}
	ix := newTestIndex(t, embedder)

	if err := ix.Add(context.Background(), []domain.Chunk{chunkWith("x", "d", "f.txt")}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := ix.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if ix.Len() != 0 {
		t.Errorf("expected empty index after clear, got %d", ix.Len())
	}

	results, err := ix.Search(context.Background(), "q", 5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results after clear, got %d", len(results))
	}
}
