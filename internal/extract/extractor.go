package extract

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dsfg/calendar/internal/model"
)

// TextSanitizer はHTMLをプレーンテキストに変換するインターフェース。
type TextSanitizer interface {
	Sanitize(rawHTML string) string
}

// Extractor はフィード記事の一覧からイベント一覧を生成する。
type Extractor struct {
	sanitizer TextSanitizer
	loc       *time.Location
	logger    *slog.Logger
}

// NewExtractor はExtractorを生成する。
// locは日付の暦日判定に使うタイムゾーン。
func NewExtractor(sanitizer TextSanitizer, loc *time.Location, logger *slog.Logger) *Extractor {
	if loc == nil {
		loc = time.UTC
	}
	return &Extractor{
		sanitizer: sanitizer,
		loc:       loc,
		logger:    logger,
	}
}

// Extract は各記事のタイトルと本文から日付と分類を抽出する。
// 未来の日付ごとに1件のイベントを生成し、未来の日付が無い記事は
// EventDateがnil（日付未定）のイベント1件になる。
// 同一IDのイベントは最初の1件のみ残す。
func (e *Extractor) Extract(items []model.RawFeedItem, now time.Time) []model.ExtractedEvent {
	events := make([]model.ExtractedEvent, 0, len(items))
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		text := e.sanitizer.Sanitize(item.Title + " " + item.Description)
		class := Classify(text)
		dates := ExtractDatesFromText(text, now, e.loc)

		if len(dates) == 0 {
			events = appendUnique(events, seen, newEvent(item, nil, class))
			continue
		}
		for i := range dates {
			events = appendUnique(events, seen, newEvent(item, &dates[i], class))
		}
	}

	e.logger.Info("イベント抽出が完了しました",
		slog.Int("items", len(items)),
		slog.Int("events", len(events)),
	)

	return events
}

func appendUnique(events []model.ExtractedEvent, seen map[string]bool, ev model.ExtractedEvent) []model.ExtractedEvent {
	if seen[ev.ID] {
		return events
	}
	seen[ev.ID] = true
	return append(events, ev)
}

func newEvent(item model.RawFeedItem, date *model.Date, class Classification) model.ExtractedEvent {
	return model.ExtractedEvent{
		ID:              EventID(item.Link, item.Title, date),
		Title:           item.Title,
		Link:            item.Link,
		PublicationDate: item.PublishedAt,
		EventDate:       date,
		EventType:       class.EventType,
		Company:         class.Company,
	}
}

// EventID はリンク・タイトル・イベント日から決定的なUUIDv5を生成する。
// 複数フィードに同じ記事が載った場合の重複排除に使う。
func EventID(link, title string, date *model.Date) string {
	key := link + "|" + title + "|"
	if date != nil {
		key += date.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}
