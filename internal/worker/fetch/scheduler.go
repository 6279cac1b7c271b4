// Package fetch はフィードの取得処理とキャッシュの定期更新を提供する。
// フェッチャー、ステータス分類、フィードリンク検出、スケジューラを含む。
package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/dsfg/calendar/internal/model"
)

// CacheWarmer はキャッシュを強制的に再構築するインターフェース。
type CacheWarmer interface {
	Refresh(ctx context.Context) (*model.CacheEntry, error)
}

// Scheduler は一定間隔でイベントキャッシュを再構築する。
// リクエスト時のフェッチ待ちを減らすためのもので、TTLの判定はキャッシュ側で行う。
type Scheduler struct {
	warmer CacheWarmer
	logger *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(warmer CacheWarmer, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		warmer: warmer,
		logger: logger,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("キャッシュ更新スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("キャッシュ更新に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("キャッシュ更新スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("キャッシュ更新に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はキャッシュを1回再構築する。
// 失敗時は既存のキャッシュエントリを変更しない。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	entry, err := s.warmer.Refresh(ctx)
	if err != nil {
		return err
	}

	s.logger.Info("キャッシュ更新が完了しました",
		slog.Int("event_count", len(entry.Events)),
		slog.Time("fetched_at", entry.FetchedAt),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
