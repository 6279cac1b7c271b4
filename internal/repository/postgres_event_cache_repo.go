package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dsfg/calendar/internal/model"
)

// PostgresEventCacheRepo はPostgreSQLを使用したイベントキャッシュリポジトリ。
// イベント一覧はJSONB列にそのまま保存する。
type PostgresEventCacheRepo struct {
	db *sql.DB
}

// NewPostgresEventCacheRepo はPostgresEventCacheRepoを生成する。
func NewPostgresEventCacheRepo(db *sql.DB) *PostgresEventCacheRepo {
	return &PostgresEventCacheRepo{db: db}
}

// Load は指定キーのエントリを取得する。見つからない場合はnilを返す。
func (r *PostgresEventCacheRepo) Load(ctx context.Context, key string) (*model.CacheEntry, error) {
	var raw []byte
	entry := &model.CacheEntry{}

	err := r.db.QueryRowContext(ctx,
		`SELECT events, fetched_at FROM event_cache WHERE cache_key = $1`,
		key,
	).Scan(&raw, &entry.FetchedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("イベントキャッシュの取得に失敗しました: %w", err)
	}

	events, err := decodeEvents(raw)
	if err != nil {
		return nil, err
	}
	entry.Events = events

	return entry, nil
}

// Save は指定キーのエントリをUPSERTする。
func (r *PostgresEventCacheRepo) Save(ctx context.Context, key string, entry *model.CacheEntry) error {
	raw, err := encodeEvents(entry.Events)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_cache (cache_key, events, fetched_at, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (cache_key) DO UPDATE SET
		    events = EXCLUDED.events,
		    fetched_at = EXCLUDED.fetched_at,
		    updated_at = now()`,
		key, raw, entry.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("イベントキャッシュの保存に失敗しました: %w", err)
	}
	return nil
}

// encodeEvents はイベント一覧をJSONB列用にエンコードする。nilは空配列として保存する。
func encodeEvents(events []model.ExtractedEvent) ([]byte, error) {
	if events == nil {
		events = []model.ExtractedEvent{}
	}
	raw, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧のエンコードに失敗しました: %w", err)
	}
	return raw, nil
}

// decodeEvents はJSONB列の値をイベント一覧にデコードする。
func decodeEvents(raw []byte) ([]model.ExtractedEvent, error) {
	events := []model.ExtractedEvent{}
	if len(raw) == 0 {
		return events, nil
	}
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("イベント一覧のデコードに失敗しました: %w", err)
	}
	return events, nil
}
