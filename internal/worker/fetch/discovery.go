package fetch

import (
	"bytes"
	"mime"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// FeedType はフィードの種類（RSS/Atom）を表す。
type FeedType string

const (
	FeedTypeRSS  FeedType = "rss"
	FeedTypeAtom FeedType = "atom"
)

// FeedCandidate はHTMLから検出されたフィード候補を表す。
type FeedCandidate struct {
	URL      string
	FeedType FeedType
	Title    string
}

// isHTMLResponse はContent-Typeまたはボディ先頭からHTMLレスポンスかを判定する。
// 取得元によってはContent-Typeが付かないため、ボディも確認する。
func isHTMLResponse(contentType string, body []byte) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	if strings.Contains(strings.ToLower(mediaType), "html") {
		return true
	}

	checkSize := 1024
	if len(body) < checkSize {
		checkSize = len(body)
	}
	prefix := strings.ToLower(strings.TrimSpace(string(body[:checkSize])))
	return strings.HasPrefix(prefix, "<!doctype html") || strings.HasPrefix(prefix, "<html")
}

// ParseFeedLinksFromHTML はHTMLのheadタグからRSS/Atomフィードリンクを検出する。
// 相対URLはbaseURLを基準に絶対URLに解決される。
func ParseFeedLinksFromHTML(htmlBody []byte, baseURL string) []FeedCandidate {
	var candidates []FeedCandidate

	baseU, err := url.Parse(baseURL)
	if err != nil {
		return candidates
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inHead := false

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return candidates

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "head" {
				inHead = true
				continue
			}
			if tagName == "body" {
				return candidates
			}
			if !inHead || tagName != "link" || !hasAttr {
				continue
			}

			var rel, linkType, href, title string
			for {
				key, val, more := tokenizer.TagAttr()
				v := string(val)
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(v)
				case "type":
					linkType = strings.ToLower(v)
				case "href":
					href = v
				case "title":
					title = v
				}
				if !more {
					break
				}
			}

			if rel != "alternate" || href == "" {
				continue
			}

			var feedType FeedType
			switch linkType {
			case "application/rss+xml":
				feedType = FeedTypeRSS
			case "application/atom+xml":
				feedType = FeedTypeAtom
			default:
				continue
			}

			ref, err := url.Parse(href)
			if err != nil {
				continue
			}

			candidates = append(candidates, FeedCandidate{
				URL:      baseU.ResolveReference(ref).String(),
				FeedType: feedType,
				Title:    title,
			})

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return candidates
			}
		}
	}
}

// SelectBestFeed は複数のフィード候補から優先順位に従って最適なフィードを選択する。
// 優先順位: 同一ホスト > RSS > Atom > 先頭
// 取引所のニュースはRSSで配信されるため、同一ホスト内ではRSSを優先する。
func SelectBestFeed(candidates []FeedCandidate, pageURL string) *FeedCandidate {
	if len(candidates) == 0 {
		return nil
	}

	pageHost := extractHost(pageURL)

	bestIdx := 0
	bestScore := -1

	for i, c := range candidates {
		score := 0
		if extractHost(c.URL) == pageHost {
			score += 100
		}
		if c.FeedType == FeedTypeRSS {
			score += 10
		}
		// 同スコアの場合は先頭を残す
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	return &candidates[bestIdx]
}

// extractHost はURLからホスト名を抽出する。
func extractHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
