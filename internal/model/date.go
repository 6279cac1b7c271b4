package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateFormat はDateの文字列表現（ISO-8601）。
const DateFormat = "2006-01-02"

// Date は時刻を持たない暦日を表す。
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate は正規化済みのDateを返す。存在しない日付は繰り上がる。
func NewDate(year int, month time.Month, day int) Date {
	y, m, d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Date()
	return Date{Year: y, Month: m, Day: d}
}

// ValidDate は指定の年月日が実在する暦日の場合にDateを返す。
func ValidDate(year int, month time.Month, day int) (Date, bool) {
	if month < time.January || month > time.December || day < 1 {
		return Date{}, false
	}
	d := NewDate(year, month, day)
	if d.Year != year || d.Month != month || d.Day != day {
		return Date{}, false
	}
	return d, true
}

// DateOf はtをlocのタイムゾーンで見たときの暦日を返す。
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Midnight はlocにおけるその日の0時を返す。
func (d Date) Midnight(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Before はdがxより前の日かを返す。
func (d Date) Before(x Date) bool { return d.compare(x) < 0 }

// After はdがxより後の日かを返す。
func (d Date) After(x Date) bool { return d.compare(x) > 0 }

// Equal はdとxが同じ日かを返す。
func (d Date) Equal(x Date) bool { return d.compare(x) == 0 }

// SameMonth はdとxが同じ年月に属するかを返す。
func (d Date) SameMonth(x Date) bool { return d.Year == x.Year && d.Month == x.Month }

func (d Date) compare(x Date) int {
	switch {
	case d.Year != x.Year:
		return d.Year - x.Year
	case d.Month != x.Month:
		return int(d.Month) - int(x.Month)
	default:
		return d.Day - x.Day
	}
}

// String はYYYY-MM-DD形式で返す。
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseDate はYYYY-MM-DD形式の文字列をDateに変換する。
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t, time.UTC), nil
}

// MarshalJSON はDateをYYYY-MM-DD文字列として出力する。
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON はYYYY-MM-DD文字列からDateを読み込む。
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
