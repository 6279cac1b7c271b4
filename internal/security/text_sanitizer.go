package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はフィード記事のHTMLをプレーンテキストに変換する。
// RSSのdescriptionはHTML断片を含むことが多く、
// 日付やキーワードの正規表現マッチの前にタグを取り除く必要がある。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
// bluemondayのStrictPolicyで全タグを除去する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はHTMLタグを除去し、文字参照を復元し、空白を1つにまとめたテキストを返す。
// 同一入力に対して常に同一出力を返す。
func (s *TextSanitizer) Sanitize(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	// ブロック要素の境界で単語が連結しないよう、タグを空白に置き換えてから除去する
	spaced := strings.NewReplacer("<", " <", ">", "> ").Replace(rawHTML)
	text := html.UnescapeString(s.policy.Sanitize(spaced))
	return strings.Join(strings.Fields(text), " ")
}
