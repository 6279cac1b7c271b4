package calendar

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dsfg/calendar/internal/clock"
	"github.com/dsfg/calendar/internal/model"
)

// FeedFetcher はフィード取得のインターフェース。
type FeedFetcher interface {
	FetchAll(ctx context.Context) ([]model.RawFeedItem, error)
}

// EventExtractor はイベント抽出のインターフェース。
type EventExtractor interface {
	Extract(items []model.RawFeedItem, now time.Time) []model.ExtractedEvent
}

// EventCache はTTL付きイベントキャッシュのインターフェース。
type EventCache interface {
	Get(ctx context.Context, key string) (*model.CacheEntry, error)
	Put(ctx context.Context, key string, events []model.ExtractedEvent) (*model.CacheEntry, error)
}

// Recorder はサービスが記録するメトリクスのインターフェース。
type Recorder interface {
	RecordEventsExtracted(count int)
}

// Service はキャッシュ、取得、抽出をつないでカレンダーを組み立てる。
// 同じキーに対する再構築は同時に1つだけ実行される。
type Service struct {
	fetcher   FeedFetcher
	extractor EventExtractor
	cache     EventCache
	clock     clock.Clock
	loc       *time.Location
	key       string
	metrics   Recorder
	logger    *slog.Logger

	group singleflight.Group
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい。
func NewService(
	fetcher FeedFetcher,
	extractor EventExtractor,
	cache EventCache,
	clk clock.Clock,
	loc *time.Location,
	key string,
	metrics Recorder,
	logger *slog.Logger,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		fetcher:   fetcher,
		extractor: extractor,
		cache:     cache,
		clock:     clk,
		loc:       loc,
		key:       key,
		metrics:   metrics,
		logger:    logger,
	}
}

// Today は設定タイムゾーンにおける今日の日付を返す。
func (s *Service) Today() model.Date {
	return model.DateOf(s.clock.Now(), s.loc)
}

// Load は有効なキャッシュがあればそれを返し、無ければフィードを取得して再構築する。
// 取得に失敗した場合はエラーを返し、既存のキャッシュは変更しない。
func (s *Service) Load(ctx context.Context) (*model.CacheEntry, error) {
	entry, err := s.cache.Get(ctx, s.key)
	switch {
	case err == nil:
		return entry, nil
	case !errors.Is(err, model.ErrCacheMiss):
		s.logger.Warn("キャッシュの読み込みに失敗したため再取得します",
			slog.String("cache_key", s.key),
			slog.String("error", err.Error()),
		)
	}
	return s.rebuildShared(ctx)
}

// Refresh はキャッシュの有効期限に関わらずフィードを取得して再構築する。
func (s *Service) Refresh(ctx context.Context) (*model.CacheEntry, error) {
	return s.rebuildShared(ctx)
}

// Calendar はイベントを読み込み、表示条件に従って振り分ける。
// forceがtrueの場合はキャッシュを使わずに再取得する。
func (s *Service) Calendar(ctx context.Context, view View, force bool) (*Calendar, *model.CacheEntry, error) {
	load := s.Load
	if force {
		load = s.Refresh
	}

	entry, err := load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return Present(entry.Events, s.clock.Now(), s.loc, view), entry, nil
}

// rebuildShared は同時に到着した再構築要求を1回の取得にまとめる。
// 取得自体は要求元のキャンセルから切り離し、要求元はキャンセル時に待機だけをやめる。
func (s *Service) rebuildShared(ctx context.Context) (*model.CacheEntry, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(s.key, func() (any, error) {
		return s.rebuild(detached)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.CacheEntry), nil
	}
}

func (s *Service) rebuild(ctx context.Context) (*model.CacheEntry, error) {
	start := s.clock.Now()

	items, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		s.logger.Error("イベントの取得に失敗しました",
			slog.String("cache_key", s.key),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	now := s.clock.Now()
	events := s.extractor.Extract(items, now)
	if s.metrics != nil {
		s.metrics.RecordEventsExtracted(len(events))
	}

	entry, err := s.cache.Put(ctx, s.key, events)
	if err != nil {
		// 書き込めなくても取得したイベントは返す
		s.logger.Error("キャッシュの書き込みに失敗しました",
			slog.String("cache_key", s.key),
			slog.String("error", err.Error()),
		)
		entry = &model.CacheEntry{Events: events, FetchedAt: now}
	}

	s.logger.Info("イベントキャッシュを再構築しました",
		slog.String("cache_key", s.key),
		slog.Int("item_count", len(items)),
		slog.Int("event_count", len(events)),
		slog.Float64("duration_ms", float64(s.clock.Now().Sub(start).Milliseconds())),
	)
	return entry, nil
}
