package cache

import (
	"context"
	"sync"

	"github.com/dsfg/calendar/internal/model"
)

// MemoryStore はプロセス内メモリに保持するStore実装。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]model.CacheEntry
}

// NewMemoryStore はMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]model.CacheEntry)}
}

// Load は指定キーのエントリのコピーを返す。見つからない場合はnilを返す。
func (s *MemoryStore) Load(_ context.Context, key string) (*model.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	entry.Events = append([]model.ExtractedEvent(nil), entry.Events...)
	return &entry, nil
}

// Save はエントリのコピーを保存する。
func (s *MemoryStore) Save(_ context.Context, key string, entry *model.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *entry
	stored.Events = append([]model.ExtractedEvent(nil), entry.Events...)
	s.entries[key] = stored
	return nil
}
