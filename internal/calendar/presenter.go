// Package calendar はイベントの読み込み、日付による振り分け、表示を提供する。
package calendar

import (
	"sort"
	"time"

	"github.com/dsfg/calendar/internal/model"
)

// PresentedEvent は表示色付きのイベント。
type PresentedEvent struct {
	model.ExtractedEvent
	Color string `json:"color"`
}

// Calendar は表示用に振り分けられたイベント一覧。
// Pastは表示モードがViewMonthの場合のみ値を持つ。
type Calendar struct {
	View     ViewMode         `json:"view"`
	Month    string           `json:"month,omitempty"`
	Date     model.Date       `json:"date"`
	Today    []PresentedEvent `json:"today"`
	Upcoming []PresentedEvent `json:"upcoming"`
	Past     []PresentedEvent `json:"past"`
}

// Len は全バケットのイベント数を返す。
func (c *Calendar) Len() int {
	return len(c.Today) + len(c.Upcoming) + len(c.Past)
}

// SortEvents はeventDateの昇順で並べ替えたコピーを返す。
// 日付未定のイベントは末尾に置き、同日のイベントは元の順序を保つ。
func SortEvents(events []model.ExtractedEvent) []model.ExtractedEvent {
	sorted := make([]model.ExtractedEvent, len(events))
	copy(sorted, events)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].EventDate, sorted[j].EventDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return sorted
}

// Present はイベントをlocにおける「今日」を基準にtoday/upcoming/pastへ振り分ける。
//
// ViewAllでは日付未定・今日・今日以降のイベントのみを残し、pastは常に空になる。
// ViewMonthでは対象月のイベントと日付未定のイベントを残し、過去分はpastに入る。
// 日付未定のイベントはupcomingとして扱う。
func Present(events []model.ExtractedEvent, now time.Time, loc *time.Location, view View) *Calendar {
	today := model.DateOf(now, loc)

	cal := &Calendar{
		View:     view.Mode,
		Date:     today,
		Today:    []PresentedEvent{},
		Upcoming: []PresentedEvent{},
		Past:     []PresentedEvent{},
	}
	if view.Mode == ViewMonth {
		cal.Month = view.Month.String()
	}

	for _, ev := range SortEvents(events) {
		if view.Mode == ViewMonth && ev.EventDate != nil && !view.Month.Contains(*ev.EventDate) {
			continue
		}

		pe := PresentedEvent{ExtractedEvent: ev, Color: ColorFor(ev.EventType)}
		switch {
		case ev.EventDate == nil || ev.EventDate.After(today):
			cal.Upcoming = append(cal.Upcoming, pe)
		case ev.EventDate.Equal(today):
			cal.Today = append(cal.Today, pe)
		case view.Mode == ViewMonth:
			cal.Past = append(cal.Past, pe)
		}
	}

	return cal
}
