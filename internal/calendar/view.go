package calendar

import (
	"fmt"
	"time"

	"github.com/dsfg/calendar/internal/model"
)

// ViewMode はカレンダーの表示モード。
type ViewMode string

const (
	// ViewAll は日付未定と今日以降のイベントをすべて表示する。
	ViewAll ViewMode = "all"
	// ViewMonth は選択した月のイベントを過去分も含めて表示する。
	ViewMonth ViewMode = "month"
)

// MonthFormat はMonthの文字列表現。
const MonthFormat = "2006-01"

// Month は暦上の年月を表す。
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf はdが属する年月を返す。
func MonthOf(d model.Date) Month {
	return Month{Year: d.Year, Month: d.Month}
}

// ParseMonth はYYYY-MM形式の文字列をMonthに変換する。
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthFormat, s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// Contains はdがこの月に含まれるかを返す。
func (m Month) Contains(d model.Date) bool {
	return d.Year == m.Year && d.Month == m.Month
}

// String はYYYY-MM形式で返す。
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// View は表示モードと対象月の組。MonthはViewMonthの場合のみ使用する。
type View struct {
	Mode  ViewMode
	Month Month
}

// ParseView はクエリ文字列から表示条件を組み立てる。
// modeが空の場合はViewAll、monthが空の場合はtodayの月を使用する。
// 不正な値は*model.APIErrorを返す。
func ParseView(mode, month string, today model.Date) (View, error) {
	v := View{Mode: ViewAll, Month: MonthOf(today)}

	switch ViewMode(mode) {
	case "", ViewAll:
	case ViewMonth:
		v.Mode = ViewMonth
	default:
		return View{}, model.NewInvalidViewError(mode)
	}

	if month != "" {
		m, err := ParseMonth(month)
		if err != nil {
			return View{}, model.NewInvalidMonthError(month)
		}
		v.Month = m
	}

	return v, nil
}
