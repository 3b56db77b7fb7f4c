package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nidhi-ai/nidhi/internal/db/memory"
	"github.com/nidhi-ai/nidhi/internal/domain"
)

func testDoc(id string) domain.Document {
	return domain.Document{
		ID:         id,
		Filename:   "portfolio.txt",
		FileType:   "txt",
		SizeBytes:  10,
		Text:       "sip 5000/mo",
		UploadedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPutGetDelete(t *testing.T) {
	reg := New(memory.NewStore())
	ctx := context.Background()

	doc := testDoc("d1")
	if err := reg.Put(ctx, doc); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := reg.Get(ctx, "d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != doc {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, doc)
	}

	if err := reg.Delete(ctx, "d1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := reg.Get(ctx, "d1"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound after delete, got %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	reg := New(memory.NewStore())

	err := reg.Delete(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	kv := memory.NewStore()
	reg := New(kv)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := reg.Put(ctx, testDoc(id)); err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}
	// Unrelated keys must not leak into the listing.
	if err := kv.Set(ctx, "nidhi:emb:deadbeef", []byte("[]")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	docs, err := reg.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 documents, got %d", len(docs))
	}
}
