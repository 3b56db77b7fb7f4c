// Package redis implements the document registry on the shared KV store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nidhi-ai/nidhi/internal/db"
	"github.com/nidhi-ai/nidhi/internal/domain"
)

const keyPrefix = "nidhi:doc:"

type Registry struct {
	kv db.KV
}

func New(kv db.KV) *Registry {
	return &Registry{kv: kv}
}

func (r *Registry) Put(ctx context.Context, doc domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ID, err)
	}
	if err := r.kv.Set(ctx, keyPrefix+doc.ID, data); err != nil {
		return fmt.Errorf("store document %s: %w", doc.ID, err)
	}
	return nil
}

func (r *Registry) Get(ctx context.Context, id string) (domain.Document, error) {
	data, err := r.kv.Get(ctx, keyPrefix+id)
	if errors.Is(err, db.ErrKeyNotFound) {
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
	keys, err := r.kv.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}

	var docs []domain.Document
	for _, key := range keys {
		doc, err := r.Get(ctx, strings.TrimPrefix(key, keyPrefix))
		if errors.Is(err, domain.ErrDocumentNotFound) {
			// Deleted between scan and read.
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	// DEL is a no-op on missing keys, so check existence first to keep the
	// not-found contract.
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	if err := r.kv.Del(ctx, keyPrefix+id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}
