package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/dsfg/calendar/internal/model"
)

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// MetricsRecorder はフェッチャーが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordFetchSuccess(source string)
	RecordFetchFailure(source string, reason string)
	RecordParseFailure(source string)
	RecordProxyFetch(source string)
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordFetchSuccess(string)         {}
func (noopRecorder) RecordFetchFailure(string, string) {}
func (noopRecorder) RecordParseFailure(string)         {}
func (noopRecorder) RecordProxyFetch(string)           {}
func (noopRecorder) RecordHTTPStatus(int)              {}
func (noopRecorder) RecordFetchLatency(time.Duration)  {}

const (
	userAgent    = "DSFG-Calendar/1.0 (+corporate events)"
	acceptHeader = "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.8, */*;q=0.5"
)

// Fetcher は設定されたフィードソースを取得し、記事一覧に変換する。
// 取得はソースごとに1回で、拒否された場合のみ中継プロキシを1回経由する。
// キャッシュには一切触れない。
type Fetcher struct {
	sources       []model.FeedSource
	ssrfGuard     SSRFValidator
	proxyURL      string
	metrics       MetricsRecorder
	logger        *slog.Logger
	timeout       time.Duration
	maxBodySize   int64
	maxConcurrent int
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// proxyURLが空の場合は中継プロキシを使用しない。
// maxConcurrentが0以下の場合はデフォルト値4を使用する。
func NewFetcher(
	sources []model.FeedSource,
	ssrfGuard SSRFValidator,
	proxyURL string,
	metrics MetricsRecorder,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
	maxConcurrent int,
) *Fetcher {
	if metrics == nil {
		metrics = noopRecorder{}
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Fetcher{
		sources:       sources,
		ssrfGuard:     ssrfGuard,
		proxyURL:      proxyURL,
		metrics:       metrics,
		logger:        logger,
		timeout:       timeout,
		maxBodySize:   maxBodySize,
		maxConcurrent: maxConcurrent,
	}
}

// Sources は設定済みのフィードソースを返す。
func (f *Fetcher) Sources() []model.FeedSource {
	return f.sources
}

type sourceResult struct {
	items []model.RawFeedItem
	err   error
}

// FetchAll は全ソースを並列に取得し、ソース順に記事を連結して返す。
// 全ソースの取得に失敗した場合のみ*model.FetchErrorを返す。
// 本文を解釈できなかったソースは記事0件として扱う。
func (f *Fetcher) FetchAll(ctx context.Context) ([]model.RawFeedItem, error) {
	if len(f.sources) == 0 {
		return nil, errors.New("no feed sources configured")
	}

	start := time.Now()
	results := make([]sourceResult, len(f.sources))

	sem := make(chan struct{}, f.maxConcurrent)
	var wg sync.WaitGroup

	for i, src := range f.sources {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, src model.FeedSource) {
			defer wg.Done()
			defer func() { <-sem }()

			items, err := f.fetchSource(ctx, src)
			results[i] = sourceResult{items: items, err: err}
		}(i, src)
	}

	wg.Wait()

	var (
		items    []model.RawFeedItem
		firstErr error
		failed   int
	)
	for _, r := range results {
		if r.err != nil {
			failed++
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		items = append(items, r.items...)
	}

	if failed == len(f.sources) {
		return nil, firstErr
	}

	f.logger.Info("フィード取得が完了しました",
		slog.Int("source_count", len(f.sources)),
		slog.Int("failed_count", failed),
		slog.Int("item_count", len(items)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	if items == nil {
		items = []model.RawFeedItem{}
	}
	return items, nil
}

// fetchSource は1つのソースを取得してパースする。
// 返すエラーは取得失敗（*model.FetchError）のみで、パース失敗は記事0件として扱う。
func (f *Fetcher) fetchSource(ctx context.Context, src model.FeedSource) ([]model.RawFeedItem, error) {
	start := time.Now()
	defer func() { f.metrics.RecordFetchLatency(time.Since(start)) }()

	viaProxy := src.UseProxy && f.proxyURL != ""
	target := src.URL
	if viaProxy {
		target = f.proxied(src.URL)
		f.metrics.RecordProxyFetch(src.Name)
	}

	resp, err := f.get(ctx, src, target)
	if err != nil && !viaProxy && f.proxyURL != "" && ctx.Err() == nil && shouldRouteViaProxy(err) {
		f.logger.Warn("直接取得が拒否されたため中継プロキシ経由で取得します",
			slog.String("source", src.Name),
			slog.String("feed_url", src.URL),
			slog.String("error", err.Error()),
		)
		viaProxy = true
		f.metrics.RecordProxyFetch(src.Name)
		resp, err = f.get(ctx, src, f.proxied(src.URL))
	}
	if err != nil {
		f.metrics.RecordFetchFailure(src.Name, failureReason(err))
		f.logger.Error("フィード取得に失敗しました",
			slog.String("source", src.Name),
			slog.String("feed_url", src.URL),
			slog.Bool("via_proxy", viaProxy),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	f.metrics.RecordFetchSuccess(src.Name)

	items, err := f.interpret(ctx, src, resp, viaProxy)
	if err != nil {
		f.metrics.RecordParseFailure(src.Name)
		f.logger.Error("フィードのパースに失敗しました",
			slog.String("source", src.Name),
			slog.String("feed_url", src.URL),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	f.logger.Info("フィードを取得しました",
		slog.String("source", src.Name),
		slog.String("feed_url", src.URL),
		slog.Bool("via_proxy", viaProxy),
		slog.Int("items_total", len(items)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return items, nil
}

type fetchedBody struct {
	body        []byte
	contentType string
}

// get は対象URLにGETリクエストを1回送信する。
// 2xx以外の応答と通信エラーは*model.FetchErrorとして返す。
func (f *Fetcher) get(ctx context.Context, src model.FeedSource, target string) (*fetchedBody, error) {
	if err := f.ssrfGuard.ValidateURL(target); err != nil {
		return nil, &model.FetchError{
			Source: src.Name,
			URL:    target,
			Err:    fmt.Errorf("%w: %v", errURLRejected, err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &model.FetchError{Source: src.Name, URL: target, Err: fmt.Errorf("リクエスト作成に失敗: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	client := f.ssrfGuard.NewSafeClient(f.timeout, f.maxBodySize)
	resp, err := client.Do(req)
	if err != nil {
		return nil, &model.FetchError{Source: src.Name, URL: target, Err: err}
	}
	defer resp.Body.Close()

	f.metrics.RecordHTTPStatus(resp.StatusCode)

	if result := ClassifyHTTPStatus(resp.StatusCode); result != FetchResultOK {
		return nil, &model.FetchError{
			Source:     src.Name,
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTPステータス %d (%s)", resp.StatusCode, result),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, &model.FetchError{Source: src.Name, URL: target, Err: fmt.Errorf("レスポンス読み取りに失敗: %w", err)}
	}

	return &fetchedBody{body: body, contentType: resp.Header.Get("Content-Type")}, nil
}

// interpret は取得した本文をフィードとして解釈する。
// 本文がHTMLの場合はheadのフィードリンクを検出し、最適な候補を1回だけ取得する。
func (f *Fetcher) interpret(ctx context.Context, src model.FeedSource, fb *fetchedBody, viaProxy bool) ([]model.RawFeedItem, error) {
	parser := gofeed.NewParser()
	parsed, err := parser.Parse(bytes.NewReader(fb.body))
	if err == nil {
		return convertGofeedItems(src.Name, parsed.Items), nil
	}

	if !isHTMLResponse(fb.contentType, fb.body) {
		return nil, &model.ParseError{Source: src.Name, Err: err}
	}

	best := SelectBestFeed(ParseFeedLinksFromHTML(fb.body, src.URL), src.URL)
	if best == nil {
		return nil, &model.ParseError{Source: src.Name, Err: errors.New("HTMLにフィードリンクがありません")}
	}

	f.logger.Info("HTMLからフィードリンクを検出しました",
		slog.String("source", src.Name),
		slog.String("page_url", src.URL),
		slog.String("feed_url", best.URL),
	)

	target := best.URL
	if viaProxy {
		target = f.proxied(best.URL)
	}
	discovered, err := f.get(ctx, src, target)
	if err != nil {
		return nil, &model.ParseError{Source: src.Name, Err: fmt.Errorf("検出したフィードの取得に失敗: %w", err)}
	}

	parsed, err = parser.Parse(bytes.NewReader(discovered.body))
	if err != nil {
		return nil, &model.ParseError{Source: src.Name, Err: err}
	}
	return convertGofeedItems(src.Name, parsed.Items), nil
}

// proxied は中継プロキシ経由のURLを組み立てる。
func (f *Fetcher) proxied(rawURL string) string {
	return f.proxyURL + url.QueryEscape(rawURL)
}

// convertGofeedItems はgofeedの記事をmodel.RawFeedItemに変換する。
func convertGofeedItems(source string, items []*gofeed.Item) []model.RawFeedItem {
	raw := make([]model.RawFeedItem, 0, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}

		r := model.RawFeedItem{
			Source:      source,
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
		}

		// 公開日時
		if item.PublishedParsed != nil {
			t := *item.PublishedParsed
			r.PublishedAt = &t
		} else if item.UpdatedParsed != nil {
			t := *item.UpdatedParsed
			r.PublishedAt = &t
		}

		// Descriptionが空の場合はContentを使用
		if r.Description == "" {
			r.Description = item.Content
		}

		// LinkがなくGUIDがURL形式の場合はGUIDをLinkとして使用
		if r.Link == "" && (strings.HasPrefix(item.GUID, "http://") || strings.HasPrefix(item.GUID, "https://")) {
			r.Link = item.GUID
		}

		raw = append(raw, r)
	}

	return raw
}
