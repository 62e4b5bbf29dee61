// Package storage keeps the lookup history: an append-only JSONL index of
// past queries guarded by a file lock.
package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

var (
	// ErrNoMatches is returned when no history entry matches the input.
	ErrNoMatches = errors.New("no lookups found")
	// ErrManyMatches is returned when several entries match the input.
	ErrManyMatches = errors.New("multiple lookups matched the input")
)

// Entry kinds.
const (
	KindLookup = "lookup"
	KindBrief  = "brief"
)

const (
	indexFileName      = "index.jsonl"
	compactMinOps      = 256
	compactScaleFactor = 4
)

// Entry is a recorded pipeline invocation.
type Entry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Query     string    `json:"query"`
	Code      string    `json:"code,omitempty"`
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Title is how the entry is shown in lists.
func (e Entry) Title() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Name, e.Code)
	}
	return e.Name
}

type event struct {
	Op    string `json:"op"`
	ID    string `json:"id,omitempty"`
	Entry *Entry `json:"entry,omitempty"`
}

// DB is the history index.
type DB struct {
	mu             sync.RWMutex
	indexPath      string
	lock           *flock.Flock
	entries        map[string]Entry
	ops            int
	cleanupTempDir string
}

// Open loads the history index stored in dir. The special value ":memory:"
// uses a temporary directory removed on Close.
func Open(dir string) (*DB, error) {
	var cleanup string
	if dir == ":memory:" {
		tmp, err := os.MkdirTemp("", "airport-history-*")
		if err != nil {
			return nil, fmt.Errorf("could not create temp history directory: %w", err)
		}
		dir, cleanup = tmp, tmp
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create history directory: %w", err)
	}

	db := &DB{
		indexPath:      filepath.Join(dir, indexFileName),
		lock:           flock.New(filepath.Join(dir, "index.lock")),
		entries:        map[string]Entry{},
		cleanupTempDir: cleanup,
	}
	if err := db.load(); err != nil {
		return nil, err
	}
	return db, nil
}

// Close releases temporary resources.
func (db *DB) Close() error {
	if db.cleanupTempDir == "" {
		return nil
	}
	if err := os.RemoveAll(db.cleanupTempDir); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Save upserts e, stamping UpdatedAt.
func (db *DB) Save(e Entry) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("save: %w", errors.New("empty id"))
	}
	if strings.TrimSpace(e.Query) == "" {
		return fmt.Errorf("save: %w", errors.New("empty query"))
	}
	e.UpdatedAt = time.Now().UTC()

	db.mu.Lock()
	defer db.mu.Unlock()

	db.entries[e.ID] = e
	if err := db.appendLocked(event{Op: "upsert", Entry: &e}); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	if err := db.compactIfNeededLocked(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// Delete removes the entry with the given ID. Unknown IDs are ignored.
func (db *DB) Delete(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("delete: %w", errors.New("empty id"))
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.entries[id]; !ok {
		return nil
	}
	delete(db.entries, id)
	if err := db.appendLocked(event{Op: "delete", ID: id}); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if err := db.compactIfNeededLocked(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// List returns every entry, most recent first.
func (db *DB) List() []Entry {
	return db.filter(func(Entry) bool { return true })
}

// ListOlderThan returns entries last updated more than d ago.
func (db *DB) ListOlderThan(d time.Duration) []Entry {
	cutoff := time.Now().Add(-d)
	return db.filter(func(e Entry) bool { return e.UpdatedAt.Before(cutoff) })
}

// Latest returns the most recent entry.
func (db *DB) Latest() (*Entry, error) {
	list := db.List()
	if len(list) == 0 {
		return nil, fmt.Errorf("latest: %w", ErrNoMatches)
	}
	return &list[0], nil
}

// Find resolves an entry by ID prefix (at least IDMinLen characters) or by
// exact query, case-insensitively.
func (db *DB) Find(in string) (*Entry, error) {
	matches := db.filter(func(e Entry) bool {
		if strings.EqualFold(e.Query, in) {
			return true
		}
		return len(in) >= IDMinLen && strings.HasPrefix(e.ID, in)
	})
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNoMatches, in)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrManyMatches, in)
	}
}

// Completions returns shell completion candidates for IDs and queries.
func (db *DB) Completions(in string) []string {
	set := map[string]struct{}{}
	for _, e := range db.List() {
		short := e.ID
		if len(short) > IDShort {
			short = short[:IDShort]
		}
		if strings.HasPrefix(e.ID, in) {
			set[short+"\t"+e.Title()] = struct{}{}
		}
		if strings.HasPrefix(e.Query, in) {
			set[e.Query+"\t"+short] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (db *DB) filter(keep func(Entry) bool) []Entry {
	db.mu.RLock()
	out := make([]Entry, 0, len(db.entries))
	for _, e := range db.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	db.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (db *DB) load() error {
	if err := db.lock.Lock(); err != nil {
		return fmt.Errorf("could not lock history index: %w", err)
	}
	defer func() { _ = db.lock.Unlock() }()

	file, err := os.Open(db.indexPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not open history index: %w", err)
	}
	defer file.Close() //nolint:errcheck

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var evt event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			return fmt.Errorf("could not parse history event: %w", err)
		}
		if err := db.apply(evt); err != nil {
			return err
		}
		db.ops++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("could not scan history index: %w", err)
	}
	return nil
}

func (db *DB) apply(evt event) error {
	switch evt.Op {
	case "upsert":
		if evt.Entry == nil || strings.TrimSpace(evt.Entry.ID) == "" {
			return fmt.Errorf("invalid upsert event: missing entry")
		}
		db.entries[evt.Entry.ID] = *evt.Entry
	case "delete":
		if strings.TrimSpace(evt.ID) == "" {
			return fmt.Errorf("invalid delete event: empty id")
		}
		delete(db.entries, evt.ID)
	default:
		return fmt.Errorf("invalid history event op: %q", evt.Op)
	}
	return nil
}

func (db *DB) appendLocked(evt event) error {
	if err := db.lock.Lock(); err != nil {
		return fmt.Errorf("lock index: %w", err)
	}
	defer func() { _ = db.lock.Unlock() }()

	file, err := os.OpenFile(db.indexPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer func() { _ = file.Close() }()

	bts, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal index event: %w", err)
	}
	if _, err := file.Write(append(bts, '\n')); err != nil {
		return fmt.Errorf("write index event: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync index: %w", err)
	}
	db.ops++
	return nil
}

func (db *DB) compactIfNeededLocked() error {
	if db.ops < compactMinOps {
		return nil
	}
	if len(db.entries) > 0 && db.ops < len(db.entries)*compactScaleFactor {
		return nil
	}
	return db.compactLocked()
}

// compactLocked rewrites the index with one upsert per live entry.
func (db *DB) compactLocked() error {
	if err := db.lock.Lock(); err != nil {
		return fmt.Errorf("lock index: %w", err)
	}
	defer func() { _ = db.lock.Unlock() }()

	items := make([]Entry, 0, len(db.entries))
	for _, e := range db.entries {
		items = append(items, e)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].UpdatedAt.Before(items[j].UpdatedAt) })

	tmpPath := db.indexPath + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open compacted index: %w", err)
	}
	enc := json.NewEncoder(file)
	for i := range items {
		if err := enc.Encode(event{Op: "upsert", Entry: &items[i]}); err != nil {
			_ = file.Close()
			return fmt.Errorf("write compacted index: %w", err)
		}
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("sync compacted index: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close compacted index: %w", err)
	}
	if err := os.Rename(tmpPath, db.indexPath); err != nil {
		return fmt.Errorf("replace index with compacted version: %w", err)
	}
	db.ops = len(db.entries)
	return nil
}
