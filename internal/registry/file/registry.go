// Package file implements the document registry as one JSON file per
// document under a directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nidhi-ai/nidhi/internal/domain"
)

type Registry struct {
	dir string
}

func New(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}
	return &Registry{dir: dir}, nil
}

func (r *Registry) Put(_ context.Context, doc domain.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ID, err)
	}

	// Write-then-rename so a crash never leaves a half-written document.
	tmp, err := os.CreateTemp(r.dir, ".doc-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write document %s: %w", doc.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path(doc.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store document %s: %w", doc.ID, err)
	}
	return nil
}

func (r *Registry) Get(_ context.Context, id string) (domain.Document, error) {
	data, err := os.ReadFile(r.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Document{}, fmt.Errorf("document %s: %w", id, domain.ErrDocumentNotFound)
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("read document %s: %w", id, err)
	}

	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	return doc, nil
}

func (r *Registry) List(ctx context.Context) ([]domain.Document, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read registry dir: %w", err)
	}

	var docs []domain.Document
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		doc, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *Registry) Delete(_ context.Context, id string) error {
	err := os.Remove(r.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("document %s: %w", id, domain.ErrDocumentNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

func (r *Registry) path(id string) string {
	// Document ids are uuids; Base guards against path traversal anyway.
	return filepath.Join(r.dir, filepath.Base(id)+".json")
}
