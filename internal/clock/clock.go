// Package clock は現在時刻の取得を抽象化する。
// キャッシュのTTL判定やカレンダーの日付区分は壁時計を直接参照せず、
// このパッケージのClockを注入して使用する。
package clock

import (
	"sync"
	"time"
)

// Clock は現在時刻を返すインターフェース。
type Clock interface {
	Now() time.Time
}

// System はシステム時刻を返すClock。
type System struct{}

// Now は現在のシステム時刻を返す。
func (System) Now() time.Time { return time.Now() }

// Fixed はテスト用の手動で進めるClock。
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed は指定時刻で停止したClockを生成する。
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

// Now は保持している時刻を返す。
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set は時刻を変更する。
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance は時刻をdだけ進める。
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
