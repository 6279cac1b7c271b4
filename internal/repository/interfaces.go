// Package repository はデータ永続化のインターフェースと実装を提供する。
package repository

import (
	"context"

	"github.com/dsfg/calendar/internal/model"
)

// EventCacheRepository はイベントキャッシュエントリの永続化インターフェース。
// cache.Storeを満たす。
type EventCacheRepository interface {
	// Load は指定キーのエントリを取得する。見つからない場合はnilを返す。
	Load(ctx context.Context, key string) (*model.CacheEntry, error)

	// Save は指定キーのエントリをUPSERTする。
	Save(ctx context.Context, key string, entry *model.CacheEntry) error
}
