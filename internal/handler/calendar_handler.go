// Package handler はHTTP APIのルーティングとハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dsfg/calendar/internal/calendar"
	"github.com/dsfg/calendar/internal/clock"
	"github.com/dsfg/calendar/internal/model"
)

// CalendarService はカレンダー組み立てのインターフェース。
type CalendarService interface {
	Calendar(ctx context.Context, view calendar.View, force bool) (*calendar.Calendar, *model.CacheEntry, error)
	Today() model.Date
}

// CalendarHandler はイベントカレンダーのHTTPハンドラー。
type CalendarHandler struct {
	service CalendarService
	clock   clock.Clock
}

// NewCalendarHandler はCalendarHandlerの新しいインスタンスを生成する。
func NewCalendarHandler(service CalendarService, clk clock.Clock) *CalendarHandler {
	if clk == nil {
		clk = clock.System{}
	}
	return &CalendarHandler{service: service, clock: clk}
}

// calendarResponse はカレンダー取得のレスポンス。
type calendarResponse struct {
	*calendar.Calendar
	GeneratedAt time.Time `json:"generated_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// GetCalendar はGET /api/calendarのハンドラー。
// クエリパラメータ view（all|month）と month（YYYY-MM）で表示条件を指定する。
func (h *CalendarHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	h.serveCalendar(w, r, false)
}

// RefreshCalendar はPOST /api/calendar/refreshのハンドラー。
// キャッシュの有効期限に関わらずフィードを再取得する。
func (h *CalendarHandler) RefreshCalendar(w http.ResponseWriter, r *http.Request) {
	h.serveCalendar(w, r, true)
}

func (h *CalendarHandler) serveCalendar(w http.ResponseWriter, r *http.Request, force bool) {
	q := r.URL.Query()
	view, err := calendar.ParseView(q.Get("view"), q.Get("month"), h.service.Today())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	cal, entry, err := h.service.Calendar(r.Context(), view, force)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := calendarResponse{
		Calendar:    cal,
		GeneratedAt: h.clock.Now().UTC(),
		FetchedAt:   entry.FetchedAt.UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// ListEventTypes はGET /api/event-typesのハンドラー。
// 全イベント種別と表示色を分類の優先順で返す。
func (h *CalendarHandler) ListEventTypes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(calendar.Palette())
}
