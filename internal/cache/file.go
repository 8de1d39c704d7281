package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

var _ Cache = (*FileCache)(nil)

// FileCache keeps all entries in one JSON document on disk.
// A FileCache with an empty path lives only in memory.
type FileCache struct {
	mu      sync.Mutex
	path    string
	entries map[string]json.RawMessage
}

// OpenFile loads the cache document at path, creating its directory if needed.
func OpenFile(path string) (*FileCache, error) {
	c := &FileCache{path: path, entries: map[string]json.RawMessage{}}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("parse cache file %s: %w", path, err)
	}
	return c, nil
}

// NewMemory returns a FileCache that never touches disk.
func NewMemory() *FileCache {
	return &FileCache{entries: map[string]json.RawMessage{}}
}

func (c *FileCache) Get(_ context.Context, key string, dst any) error {
	c.mu.Lock()
	raw, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return ErrMiss
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (c *FileCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return c.flushLocked()
}

func (c *FileCache) Remove(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	return c.flushLocked()
}

func (c *FileCache) Close() error { return nil }

// flushLocked writes the document atomically via a temp file in the same directory.
func (c *FileCache) flushLocked() error {
	if c.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".cache-*.json")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
