// Package cache stores rendered lookup reports as JSON files, sharded by
// ID prefix.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dotcommander/airport/internal/airport"
)

// Type names a cache directory.
type Type string

// Cache types.
const (
	ReportCache Type = "reports"
)

const (
	cacheExt       = ".json"
	shardPrefixLen = 2
)

var errInvalidID = errors.New("invalid id")

// Cache stores values of type T as JSON files.
type Cache[T any] struct {
	baseDir string
	cType   Type
}

// New creates a cache rooted at baseDir/cacheType.
func New[T any](baseDir string, cacheType Type) (*Cache[T], error) {
	dir := filepath.Join(baseDir, string(cacheType))
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Cache[T]{baseDir: baseDir, cType: cacheType}, nil
}

func (c *Cache[T]) filePath(id string) string {
	dir := filepath.Join(c.baseDir, string(c.cType))
	if len(id) < shardPrefixLen {
		return filepath.Join(dir, id+cacheExt)
	}
	return filepath.Join(dir, id[:shardPrefixLen], id+cacheExt)
}

// Read loads the value stored under id.
func (c *Cache[T]) Read(id string) (T, error) {
	var v T
	if id == "" {
		return v, fmt.Errorf("read: %w", errInvalidID)
	}
	bts, err := os.ReadFile(c.filePath(id))
	if err != nil {
		return v, fmt.Errorf("read: %w", err)
	}
	if err := json.Unmarshal(bts, &v); err != nil {
		return v, fmt.Errorf("read: %w", err)
	}
	return v, nil
}

// Write atomically stores v under id.
func (c *Cache[T]) Write(id string, v T) error {
	if id == "" {
		return fmt.Errorf("write: %w", errInvalidID)
	}

	path := c.filePath(id)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Delete removes the value stored under id. A missing value is not an
// error.
func (c *Cache[T]) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("delete: %w", errInvalidID)
	}
	if err := os.Remove(c.filePath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// Report is the stored output of one pipeline invocation.
type Report struct {
	Kind      string         `json:"kind"`
	Query     string         `json:"query"`
	Record    airport.Record `json:"record"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"created_at"`
}

// Reports is the report cache.
type Reports = Cache[Report]

// NewReports opens the report cache under baseDir.
func NewReports(baseDir string) (*Reports, error) {
	return New[Report](baseDir, ReportCache)
}
