// Package cache はイベント一覧のTTL付きキャッシュを提供する。
// 有効期限は読み取り時にのみ判定し、バックグラウンドでの掃除は行わない。
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dsfg/calendar/internal/clock"
	"github.com/dsfg/calendar/internal/model"
)

const (
	// DefaultKey はJSEイベント一覧のキャッシュキー。
	DefaultKey = "jse-events"
	// DefaultTTL はキャッシュエントリの有効期間。
	DefaultTTL = time.Hour
)

// Store はキャッシュエントリの永続化インターフェース。
// 期限の判定は行わず、保存されたエントリをそのまま返す。
type Store interface {
	// Load は指定キーのエントリを取得する。見つからない場合はnilを返す。
	Load(ctx context.Context, key string) (*model.CacheEntry, error)
	// Save は指定キーのエントリを上書き保存する。
	Save(ctx context.Context, key string, entry *model.CacheEntry) error
}

// Recorder はキャッシュのヒット/ミスを記録するインターフェース。
type Recorder interface {
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
}

// Cache はStoreの上にTTL判定を加えたキャッシュ。
type Cache struct {
	store    Store
	clock    clock.Clock
	ttl      time.Duration
	recorder Recorder
}

// NewCache はCacheを生成する。ttlが0以下の場合はDefaultTTLを使用する。
// recorderはnilでもよい。
func NewCache(store Store, c clock.Clock, ttl time.Duration, recorder Recorder) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:    store,
		clock:    c,
		ttl:      ttl,
		recorder: recorder,
	}
}

// TTL は有効期間を返す。
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get は指定キーの有効なエントリを返す。
// エントリが存在しない、または取得からTTLを超えて経過している場合は
// model.ErrCacheMissを返す。
func (c *Cache) Get(ctx context.Context, key string) (*model.CacheEntry, error) {
	entry, err := c.store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("キャッシュの読み込みに失敗: %w", err)
	}
	if entry == nil || c.isExpired(entry) {
		c.recordMiss(key)
		return nil, model.ErrCacheMiss
	}
	c.recordHit(key)
	return entry, nil
}

// Put はイベント一覧を現在時刻付きで保存する。
func (c *Cache) Put(ctx context.Context, key string, events []model.ExtractedEvent) (*model.CacheEntry, error) {
	if events == nil {
		events = []model.ExtractedEvent{}
	}
	entry := &model.CacheEntry{
		Events:    events,
		FetchedAt: c.clock.Now(),
	}
	if err := c.store.Save(ctx, key, entry); err != nil {
		return nil, fmt.Errorf("キャッシュの保存に失敗: %w", err)
	}
	return entry, nil
}

func (c *Cache) isExpired(entry *model.CacheEntry) bool {
	return c.clock.Now().Sub(entry.FetchedAt) > c.ttl
}

func (c *Cache) recordHit(key string) {
	if c.recorder != nil {
		c.recorder.RecordCacheHit(key)
	}
}

func (c *Cache) recordMiss(key string) {
	if c.recorder != nil {
		c.recorder.RecordCacheMiss(key)
	}
}
