package embcache

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/nidhi-ai/nidhi/internal/db/memory"
	"github.com/nidhi-ai/nidhi/internal/domain"
)

type countingEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (e *countingEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	e.calls++
	if e.err != nil {
		return domain.EmbeddingResult{}, e.err
	}
	return domain.EmbeddingResult{Embedding: e.vec, TotalTokens: 7}, nil
}

func TestEmbed_CachesSecondCall(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{0.1, -2.5, 3}}
	cached := New(inner, memory.NewStore(), nil, zap.NewNop())
	ctx := context.Background()

	first, err := cached.Embed(ctx, "emergency fund basics")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := cached.Embed(ctx, "emergency fund basics")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("expected one provider call, got %d", inner.calls)
	}
	if len(second.Embedding) != len(first.Embedding) {
		t.Fatalf("vector length changed: %d vs %d", len(second.Embedding), len(first.Embedding))
	}
	for i := range first.Embedding {
		if first.Embedding[i] != second.Embedding[i] {
			t.Errorf("vector[%d] mismatch: %v vs %v", i, first.Embedding[i], second.Embedding[i])
		}
	}
	if second.TotalTokens != 0 {
		t.Errorf("cache hit should report zero tokens, got %d", second.TotalTokens)
	}
}

func TestEmbed_DistinctTextsMiss(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{1}}
	cached := New(inner, memory.NewStore(), nil, zap.NewNop())
	ctx := context.Background()

	if _, err := cached.Embed(ctx, "first"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if _, err := cached.Embed(ctx, "second"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected two provider calls for distinct texts, got %d", inner.calls)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("provider down")}
	cached := New(inner, memory.NewStore(), nil, zap.NewNop())

	_, err := cached.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error from inner embedder")
	}
}

func TestVectorCacheRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, err := bytesToVector(vectorToCacheBytes(in))
	if err != nil {
		t.Fatalf("bytesToVector: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: %d vs %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("vector[%d]: %v != %v", i, in[i], out[i])
		}
	}
}

func TestBytesToVector_InvalidLength(t *testing.T) {
	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}
