package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/komsit37/mf/pkg/mf/types"
)

// Store persists cache entries by key.
type Store interface {
	Get(ctx context.Context, key string) (types.CacheEntry, bool, error)
	Put(ctx context.Context, entry types.CacheEntry) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]types.CacheEntry, error)
	Close() error
}

// BadgerStore keeps entries in a Badger database on local disk so they
// survive process restarts.
type BadgerStore struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	path   string
}

// OpenBadger opens (creating if needed) the database directory at path.
func OpenBadger(path string, logger arbor.ILogger) (*BadgerStore, error) {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Opening cache database")

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database %s: %w", path, err)
	}
	return &BadgerStore{store: store, logger: logger, path: path}, nil
}

func (s *BadgerStore) Get(ctx context.Context, key string) (types.CacheEntry, bool, error) {
	var entry types.CacheEntry
	err := s.store.Get(key, &entry)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return types.CacheEntry{}, false, nil
	}
	if err != nil {
		return types.CacheEntry{}, false, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}
	return entry, true, nil
}

func (s *BadgerStore) Put(ctx context.Context, entry types.CacheEntry) error {
	if err := s.store.Upsert(entry.Key, &entry); err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", entry.Key, err)
	}
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	err := s.store.Delete(key, &types.CacheEntry{})
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

// List returns all entries ordered by key.
func (s *BadgerStore) List(ctx context.Context) ([]types.CacheEntry, error) {
	var entries []types.CacheEntry
	if err := s.store.Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (s *BadgerStore) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// MemoryStore is a process-local Store, used when persistence is disabled.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]types.CacheEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]types.CacheEntry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (types.CacheEntry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[key]
	return e, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, entry types.CacheEntry) error {
	m.mu.Lock()
	m.items[entry.Key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]types.CacheEntry, error) {
	m.mu.RLock()
	out := make([]types.CacheEntry, 0, len(m.items))
	for _, e := range m.items {
		out = append(out, e)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
