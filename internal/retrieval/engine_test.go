package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/nidhi-ai/nidhi/internal/chunker"
	"github.com/nidhi-ai/nidhi/internal/domain"
	"github.com/nidhi-ai/nidhi/internal/index"
)

type stubSearcher struct {
	results    []domain.RetrievalResult
	err        error
	lastK      int
	lastFilter map[string]string
}

func (s *stubSearcher) Search(
	_ context.Context, _ string, k int, filter map[string]string,
) ([]domain.RetrievalResult, error) {
	s.lastK = k
	s.lastFilter = filter
	return s.results, s.err
}

func result(filename, text string) domain.RetrievalResult {
	return domain.RetrievalResult{
		Chunk: domain.Chunk{
			Text:     text,
			Metadata: domain.ChunkMetadata{Filename: filename},
		},
		Score: 0.9,
	}
}

func TestContext_FormatsChunks(t *testing.T) {
	searcher := &stubSearcher{results: []domain.RetrievalResult{
		result("tax.txt", "80C allows deductions up to 1.5 lakh."),
		result("savings.txt", "Keep six months of expenses liquid."),
	}}
	engine := New(searcher, 3, zap.NewNop())

	got := engine.Context(context.Background(), "how to save tax", nil)
	want := "Document: tax.txt\n" +
		"Content: 80C allows deductions up to 1.5 lakh.\n" +
		"---\n" +
		"Document: savings.txt\n" +
		"Content: Keep six months of expenses liquid.\n" +
		"---"
	if got != want {
		t.Errorf("unexpected context:\n%s\nwant:\n%s", got, want)
	}
}

func TestContext_MissingFilename(t *testing.T) {
	searcher := &stubSearcher{results: []domain.RetrievalResult{result("", "orphan chunk")}}
	engine := New(searcher, 3, zap.NewNop())

	got := engine.Context(context.Background(), "q", nil)
	want := "Document: Unknown\nContent: orphan chunk\n---"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestContext_EmptyOnNoResults(t *testing.T) {
	engine := New(&stubSearcher{}, 3, zap.NewNop())

	if got := engine.Context(context.Background(), "q", nil); got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
}

func TestContext_EmptyOnSearchError(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("index unavailable")}
	engine := New(searcher, 3, zap.NewNop())

	if got := engine.Context(context.Background(), "q", nil); got != "" {
		t.Errorf("expected empty context on error, got %q", got)
	}
}

func TestContext_UsesMaxChunks(t *testing.T) {
	searcher := &stubSearcher{}
	engine := New(searcher, 7, zap.NewNop())

	engine.Context(context.Background(), "q", nil)
	if searcher.lastK != 7 {
		t.Errorf("expected k=7, got %d", searcher.lastK)
	}
}

func TestContext_PropagatesFilter(t *testing.T) {
	searcher := &stubSearcher{}
	engine := New(searcher, 3, zap.NewNop())

	engine.Context(context.Background(), "q", map[string]string{"document_id": "doc-1"})
	if searcher.lastFilter["document_id"] != "doc-1" {
		t.Errorf("expected document filter to reach the searcher, got %v", searcher.lastFilter)
	}
}

// fixedEmbedder returns the same vector for every text.
type fixedEmbedder struct {
	vec []float32
}

func (e fixedEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: e.vec}, nil
}

func TestContext_AgainstRealIndex(t *testing.T) {
	embedder := fixedEmbedder{vec: []float32{0.6, 0.8}}
	path := filepath.Join(t.TempDir(), "index.json")
	ix := index.New(embedder, embedder, path, zap.NewNop())
	if err := ix.LoadOrCreate(); err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	engine := New(ix, 3, zap.NewNop())

	// Empty index yields an empty context, not an error.
	if got := engine.Context(context.Background(), "how to save tax", nil); got != "" {
		t.Fatalf("expected empty context for empty index, got %q", got)
	}

	ch, err := chunker.New(80, 16)
	if err != nil {
		t.Fatalf("chunker.New: %v", err)
	}
	chunks := ch.Chunks(
		"Section 80C allows deductions up to 1.5 lakh. ELSS funds qualify and carry a three year lock-in period.",
		domain.ChunkMetadata{DocumentID: "doc-1", Filename: "tax-guide.txt", FileType: "txt"},
	)
	if err := ix.Add(context.Background(), chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got := engine.Context(context.Background(), "how to save tax", nil)
	if got == "" {
		t.Fatal("expected non-empty context after ingesting a document")
	}
	if !strings.HasPrefix(got, "Document: tax-guide.txt\nContent: ") {
		t.Errorf("context not formatted from the indexed document:\n%s", got)
	}
	if !strings.Contains(got, "80C") {
		t.Errorf("context missing document text:\n%s", got)
	}
	if !strings.HasSuffix(got, "---") {
		t.Errorf("context missing trailing separator:\n%s", got)
	}
}
