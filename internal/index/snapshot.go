package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// snapshot is the on-disk representation of the index. The format is an
// internal implementation detail; only this package reads or writes it.
type snapshot struct {
	Dim     int     `json:"dim"`
	Entries []entry `json:"entries"`
}

// LoadOrCreate acquires the on-disk index at the configured path. A missing
// file produces a fresh index seeded with a placeholder entry; a corrupt
// file is logged and replaced with a fresh index rather than failing
// startup.
func (ix *Index) LoadOrCreate() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	data, err := os.ReadFile(ix.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		ix.logger.Info("No index found, creating a new one", zap.String("path", ix.path))
	case err != nil:
		ix.logger.Warn("Failed to read index, starting fresh",
			zap.String("path", ix.path), zap.Error(err))
	default:
		var snap snapshot
		if jsonErr := json.Unmarshal(data, &snap); jsonErr != nil {
			ix.logger.Warn("Corrupt index file, starting fresh",
				zap.String("path", ix.path), zap.Error(jsonErr))
		} else {
			ix.dim = snap.Dim
			ix.entries = snap.Entries
			ix.logger.Info("Loaded index",
				zap.String("path", ix.path),
				zap.Int("entries", ix.liveLocked()),
				zap.Int("dimensions", ix.dim),
			)
			return nil
		}
	}

	ix.dim = 0
	ix.entries = []entry{seedEntry()}
	if err := ix.persistLocked(); err != nil {
		return fmt.Errorf("persist fresh index: %w", err)
	}
	return nil
}

// persistLocked writes the snapshot atomically (temp file + rename).
// Two consecutive persists with no intervening mutation produce
// byte-identical files. Callers must hold the write lock.
func (ix *Index) persistLocked() error {
	data, err := json.Marshal(snapshot{Dim: ix.dim, Entries: ix.entries})
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	dir := filepath.Dir(ix.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".index-*")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmpName, ix.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}
