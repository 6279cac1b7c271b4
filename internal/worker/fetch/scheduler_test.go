package fetch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dsfg/calendar/internal/model"
)

// --- モック定義 ---

// mockWarmer はCacheWarmerのテスト用モック。
type mockWarmer struct {
	calls       atomic.Int32
	refreshFunc func(ctx context.Context) (*model.CacheEntry, error)
}

func (m *mockWarmer) Refresh(ctx context.Context) (*model.CacheEntry, error) {
	m.calls.Add(1)
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx)
	}
	return &model.CacheEntry{Events: []model.ExtractedEvent{}, FetchedAt: time.Now()}, nil
}

// newTestLogger はテスト用のJSONロガーを生成する。
func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestNewScheduler_ReturnsNonNil(t *testing.T) {
	var buf bytes.Buffer
	if s := NewScheduler(&mockWarmer{}, newTestLogger(&buf)); s == nil {
		t.Fatal("NewScheduler は nil を返してはならない")
	}
}

func TestScheduler_RunOnce_RefreshesCache(t *testing.T) {
	var buf bytes.Buffer
	warmer := &mockWarmer{
		refreshFunc: func(ctx context.Context) (*model.CacheEntry, error) {
			return &model.CacheEntry{
				Events:    []model.ExtractedEvent{{ID: "a"}, {ID: "b"}},
				FetchedAt: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
			}, nil
		},
	}

	s := NewScheduler(warmer, newTestLogger(&buf))
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() がエラーを返した: %v", err)
	}

	if warmer.calls.Load() != 1 {
		t.Errorf("Refresh 呼び出し回数 = %d, want 1", warmer.calls.Load())
	}
	if !strings.Contains(buf.String(), `"event_count":2`) {
		t.Errorf("ログにイベント数が含まれるべき: %s", buf.String())
	}
}

func TestScheduler_RunOnce_PropagatesError(t *testing.T) {
	var buf bytes.Buffer
	fetchErr := &model.FetchError{Source: "jse", URL: "https://www.jamstockex.com/feed/", StatusCode: 429}
	warmer := &mockWarmer{
		refreshFunc: func(ctx context.Context) (*model.CacheEntry, error) {
			return nil, fetchErr
		},
	}

	s := NewScheduler(warmer, newTestLogger(&buf))
	err := s.RunOnce(context.Background())

	var fe *model.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("FetchError が返されるべき: %v", err)
	}
}

func TestScheduler_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	warmer := &mockWarmer{}
	s := NewScheduler(warmer, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, time.Hour)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for warmer.calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("起動直後にRefreshが呼ばれるべき")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("コンテキストのキャンセルでスケジューラは停止するべき")
	}
}

func TestScheduler_Start_ContinuesAfterError(t *testing.T) {
	var buf bytes.Buffer
	warmer := &mockWarmer{
		refreshFunc: func(ctx context.Context) (*model.CacheEntry, error) {
			return nil, errors.New("upstream down")
		},
	}
	s := NewScheduler(warmer, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx, 10*time.Millisecond)

	deadline := time.After(2 * time.Second)
	for warmer.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("エラー後もティッカーで再実行されるべき: calls=%d", warmer.calls.Load())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}
