// Package model はドメインモデルを定義する。
package model

import "time"

// FeedSource は取得対象のフィードエンドポイントを表す。
type FeedSource struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	UseProxy bool   `yaml:"use_proxy"`
}

// RawFeedItem はフィードから取得した1件の記事を表す。
// フェッチ直後に生成され、イベント抽出で即座に消費される。
type RawFeedItem struct {
	Source      string
	Title       string
	Link        string
	PublishedAt *time.Time
	Description string // 未サニタイズのHTMLを含みうる
}
