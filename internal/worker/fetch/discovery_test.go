package fetch

import "testing"

func TestIsHTMLResponse_ContentType(t *testing.T) {
	if !isHTMLResponse("text/html; charset=utf-8", nil) {
		t.Error("text/html はHTMLと判定されるべき")
	}
	if isHTMLResponse("application/rss+xml", []byte(`<?xml version="1.0"?><rss></rss>`)) {
		t.Error("RSSはHTMLと判定されるべきではない")
	}
}

// Content-Typeが欠落していてもボディ先頭で判定する。
func TestIsHTMLResponse_SniffsBody(t *testing.T) {
	if !isHTMLResponse("", []byte("  <!DOCTYPE html><html><head></head></html>")) {
		t.Error("DOCTYPEで始まるボディはHTMLと判定されるべき")
	}
}

func TestParseFeedLinksFromHTML_SingleRSSLink(t *testing.T) {
	page := `<html><head>
		<link rel="alternate" type="application/rss+xml" title="JSE News" href="https://www.jamstockex.com/feed/">
	</head><body></body></html>`

	links := ParseFeedLinksFromHTML([]byte(page), "https://www.jamstockex.com/news/")

	if len(links) != 1 {
		t.Fatalf("期待: 1リンク, 結果: %d リンク", len(links))
	}
	if links[0].URL != "https://www.jamstockex.com/feed/" {
		t.Errorf("期待URL: https://www.jamstockex.com/feed/, 結果: %s", links[0].URL)
	}
	if links[0].FeedType != FeedTypeRSS {
		t.Errorf("期待タイプ: RSS, 結果: %s", links[0].FeedType)
	}
}

// TestParseFeedLinksFromHTML_RelativeURL は相対URLが正しく絶対URLに解決されることをテストする。
func TestParseFeedLinksFromHTML_RelativeURL(t *testing.T) {
	page := `<html><head>
		<link rel="alternate" type="application/atom+xml" href="/news/atom.xml">
	</head><body></body></html>`

	links := ParseFeedLinksFromHTML([]byte(page), "https://www.jamstockex.com/news/")

	if len(links) != 1 {
		t.Fatalf("期待: 1リンク, 結果: %d リンク", len(links))
	}
	if links[0].URL != "https://www.jamstockex.com/news/atom.xml" {
		t.Errorf("期待URL: https://www.jamstockex.com/news/atom.xml, 結果: %s", links[0].URL)
	}
}

// TestParseFeedLinksFromHTML_IgnoreNonAlternate はrel="alternate"以外のlinkタグを無視することをテストする。
func TestParseFeedLinksFromHTML_IgnoreNonAlternate(t *testing.T) {
	page := `<html><head>
		<link rel="stylesheet" type="text/css" href="/style.css">
		<link rel="icon" href="/favicon.ico">
		<link rel="alternate" type="application/rss+xml" href="/feed.xml">
	</head><body></body></html>`

	links := ParseFeedLinksFromHTML([]byte(page), "https://example.com")

	if len(links) != 1 {
		t.Fatalf("期待: 1リンク, 結果: %d リンク", len(links))
	}
}

// body内のlinkは検出対象外。
func TestParseFeedLinksFromHTML_StopsAtBody(t *testing.T) {
	page := `<html><head><title>x</title></head><body>
		<link rel="alternate" type="application/rss+xml" href="/feed.xml">
	</body></html>`

	if links := ParseFeedLinksFromHTML([]byte(page), "https://example.com"); len(links) != 0 {
		t.Errorf("期待: 0リンク, 結果: %d リンク", len(links))
	}
}

func TestSelectBestFeed_SameHostPreferred(t *testing.T) {
	candidates := []FeedCandidate{
		{URL: "https://other.com/feed.xml", FeedType: FeedTypeRSS},
		{URL: "https://example.com/atom.xml", FeedType: FeedTypeAtom},
	}

	best := SelectBestFeed(candidates, "https://example.com/news")

	if best.URL != "https://example.com/atom.xml" {
		t.Errorf("同一ホストのフィードが優先されるべき。結果: %s", best.URL)
	}
}

func TestSelectBestFeed_RSSPreferredOverAtom(t *testing.T) {
	candidates := []FeedCandidate{
		{URL: "https://example.com/atom.xml", FeedType: FeedTypeAtom},
		{URL: "https://example.com/rss.xml", FeedType: FeedTypeRSS},
	}

	best := SelectBestFeed(candidates, "https://example.com")

	if best.URL != "https://example.com/rss.xml" {
		t.Errorf("同一ホスト内ではRSSが優先されるべき。結果: %s", best.URL)
	}
}

func TestSelectBestFeed_FirstWhenSameCondition(t *testing.T) {
	candidates := []FeedCandidate{
		{URL: "https://example.com/feed1.xml", FeedType: FeedTypeRSS},
		{URL: "https://example.com/feed2.xml", FeedType: FeedTypeRSS},
	}

	best := SelectBestFeed(candidates, "https://example.com")

	if best.URL != "https://example.com/feed1.xml" {
		t.Errorf("同条件なら先頭が選択されるべき。結果: %s", best.URL)
	}
}

func TestSelectBestFeed_EmptyCandidates(t *testing.T) {
	if best := SelectBestFeed(nil, "https://example.com"); best != nil {
		t.Error("候補が0件の場合はnilを返すべき")
	}
}
