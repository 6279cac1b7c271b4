package calendar

import "github.com/dsfg/calendar/internal/model"

// defaultColor はパレットに無い種別に使う色。
const defaultColor = "#6B7280"

var palette = map[model.EventType]string{
	model.EventTypeAGM:            "#2563EB",
	model.EventTypeBoardMeeting:   "#7C3AED",
	model.EventTypeEarnings:       "#059669",
	model.EventTypeStockSplit:     "#D97706",
	model.EventTypeRightsIssue:    "#DB2777",
	model.EventTypeIPO:            "#DC2626",
	model.EventTypeDividend:       "#16A34A",
	model.EventTypeMerger:         "#0891B2",
	model.EventTypeAcquisition:    "#4F46E5",
	model.EventTypeCorporateEvent: defaultColor,
}

// ColorFor はイベント種別の表示色（#RRGGBB）を返す。
func ColorFor(t model.EventType) string {
	if c, ok := palette[t]; ok {
		return c
	}
	return defaultColor
}

// EventTypeInfo はイベント種別と表示色の組。
type EventTypeInfo struct {
	Type  model.EventType `json:"type"`
	Color string          `json:"color"`
}

// Palette は全イベント種別の表示色を分類の優先順で返す。
func Palette() []EventTypeInfo {
	types := model.EventTypes()
	infos := make([]EventTypeInfo, 0, len(types))
	for _, t := range types {
		infos = append(infos, EventTypeInfo{Type: t, Color: ColorFor(t)})
	}
	return infos
}
