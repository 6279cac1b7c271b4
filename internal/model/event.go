package model

import "time"

// EventType は企業イベントの種別を表す。
type EventType string

const (
	EventTypeAGM            EventType = "AGM"
	EventTypeBoardMeeting   EventType = "Board Meeting"
	EventTypeEarnings       EventType = "Earnings"
	EventTypeStockSplit     EventType = "Stock Split"
	EventTypeRightsIssue    EventType = "Rights Issue"
	EventTypeIPO            EventType = "IPO"
	EventTypeDividend       EventType = "Dividend"
	EventTypeMerger         EventType = "Merger"
	EventTypeAcquisition    EventType = "Acquisition"
	EventTypeCorporateEvent EventType = "Corporate Event"
)

// EventTypes は全イベント種別を分類の優先順で返す。
// 末尾のEventTypeCorporateEventはどの規則にも一致しない場合のデフォルト。
func EventTypes() []EventType {
	return []EventType{
		EventTypeAGM,
		EventTypeBoardMeeting,
		EventTypeEarnings,
		EventTypeStockSplit,
		EventTypeRightsIssue,
		EventTypeIPO,
		EventTypeDividend,
		EventTypeMerger,
		EventTypeAcquisition,
		EventTypeCorporateEvent,
	}
}

// ExtractedEvent はフィード記事から抽出された企業イベントを表す。
// EventDateがnilの場合は日付未定（TBD）を意味する。
type ExtractedEvent struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Link            string     `json:"link"`
	PublicationDate *time.Time `json:"publicationDate"`
	EventDate       *Date      `json:"eventDate"`
	EventType       EventType  `json:"eventType"`
	Company         string     `json:"company"`
}

// CacheEntry はキャッシュされたイベント一覧と取得時刻を保持する。
type CacheEntry struct {
	Events    []ExtractedEvent `json:"events"`
	FetchedAt time.Time        `json:"fetchedAt"`
}
