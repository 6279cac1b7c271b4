package extract

import (
	"regexp"
	"strings"

	"github.com/dsfg/calendar/internal/model"
)

// Classification はテキストから推定したイベント種別と企業名。
type Classification struct {
	EventType model.EventType
	Company   string
}

// classificationRule は1つの分類規則。matchがtrueを返した最初の規則が採用される。
type classificationRule struct {
	match     func(lower string) bool
	eventType model.EventType
}

// containsAny は小文字化済みテキストがいずれかのキーワードを含むかを判定する述語を返す。
func containsAny(keywords ...string) func(string) bool {
	return func(lower string) bool {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}
}

// classificationRules はEventTypeの優先順に並んだ規則表。
var classificationRules = []classificationRule{
	{containsAny("agm", "annual general meeting"), model.EventTypeAGM},
	{containsAny("board meeting", "meeting of the board"), model.EventTypeBoardMeeting},
	{containsAny("earnings", "financial results", "quarterly results", "audited results"), model.EventTypeEarnings},
	{containsAny("stock split", "share split"), model.EventTypeStockSplit},
	{containsAny("rights issue"), model.EventTypeRightsIssue},
	{containsAny("ipo", "initial public offering"), model.EventTypeIPO},
	{containsAny("dividend"), model.EventTypeDividend},
	{containsAny("merger"), model.EventTypeMerger},
	{containsAny("acquisition", "acquire"), model.EventTypeAcquisition},
}

// companyRe はテキスト先頭の大文字始まりの語の連なりにマッチする。
// 大文字の略称（NCBなど）を許すのは先頭の語のみで、続く語は先頭だけが大文字の語に限る。
// 固有名詞で始まらないテキストでは空または誤った企業名になる。
var companyRe = regexp.MustCompile(`^[A-Z][A-Za-z&]+(?:\s+[A-Z][a-z&]+)*`)

// Classify はテキストのイベント種別と企業名を推定する。
// 同じテキストに対して常に同じ結果を返す。
func Classify(text string) Classification {
	lower := strings.ToLower(text)

	eventType := model.EventTypeCorporateEvent
	for _, rule := range classificationRules {
		if rule.match(lower) {
			eventType = rule.eventType
			break
		}
	}

	return Classification{
		EventType: eventType,
		Company:   companyRe.FindString(text),
	}
}
