// Package extract はフィード記事のテキストから企業イベントを抽出する。
// 日付パターンの正規表現マッチ、キーワード規則表による種別分類、
// 先頭の大文字語による企業名推定を行う。
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dsfg/calendar/internal/model"
)

const monthNames = `(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sept|Sep|Oct|Nov|Dec)`

var (
	// 12 May 2026
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+` + monthNames + `\s+(\d{4})\b`)
	// May 12, 2026
	monthDayYearRe = regexp.MustCompile(`(?i)\b` + monthNames + `\s+(\d{1,2}),?\s+(\d{4})\b`)
	// 12/05/2026, 12-05-2026
	dmyNumericRe = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{4}\b`)
	// 2026/05/12, 2026-05-12, 2026-05-12T10:00:00Z
	ymdNumericRe = regexp.MustCompile(`\b(\d{4}[/-]\d{1,2}[/-]\d{1,2})(?:\b|T)`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}

// ExtractDatesFromText はテキスト中の日付表現を全パターンで走査し、
// nowより厳密に後の日付のみを出現順に返す。
// 暦日の判定はlocのタイムゾーンで行う（その日の0時がnowより後であること）。
// 同一テキスト内で重複する日付は最初の1件に集約する。
func ExtractDatesFromText(text string, now time.Time, loc *time.Location) []model.Date {
	var candidates []model.Date

	for _, m := range dayMonthYearRe.FindAllStringSubmatch(text, -1) {
		if d, ok := namedMonthDate(m[3], m[2], m[1]); ok {
			candidates = append(candidates, d)
		}
	}
	for _, m := range monthDayYearRe.FindAllStringSubmatch(text, -1) {
		if d, ok := namedMonthDate(m[3], m[1], m[2]); ok {
			candidates = append(candidates, d)
		}
	}
	for _, s := range dmyNumericRe.FindAllString(text, -1) {
		if d, ok := parseNumericDate(s); ok {
			candidates = append(candidates, d)
		}
	}
	for _, m := range ymdNumericRe.FindAllStringSubmatch(text, -1) {
		if d, ok := parseNumericDate(m[1]); ok {
			candidates = append(candidates, d)
		}
	}

	var dates []model.Date
	seen := make(map[model.Date]bool, len(candidates))
	for _, d := range candidates {
		if seen[d] || !d.Midnight(loc).After(now) {
			continue
		}
		seen[d] = true
		dates = append(dates, d)
	}
	return dates
}

// namedMonthDate は年・月名・日の文字列から暦日を組み立てる。
func namedMonthDate(yearStr, monthStr, dayStr string) (model.Date, bool) {
	month, ok := monthsByPrefix[strings.ToLower(monthStr)[:3]]
	if !ok {
		return model.Date{}, false
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return model.Date{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return model.Date{}, false
	}
	return model.ValidDate(year, month, day)
}

// parseNumericDate は数値の日付表現を dd/MM/yyyy、次に yyyy-MM-dd の順で解釈する。
// 区切り文字は / と - のどちらでもよい。
// 03/04/2026 のような表記は常に日/月として解釈される。
func parseNumericDate(s string) (model.Date, bool) {
	if t, err := time.Parse("2/1/2006", strings.ReplaceAll(s, "-", "/")); err == nil {
		return model.DateOf(t, time.UTC), true
	}
	if t, err := time.Parse("2006-1-2", strings.ReplaceAll(s, "/", "-")); err == nil {
		return model.DateOf(t, time.UTC), true
	}
	return model.Date{}, false
}
