// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// フェッチャー、キャッシュ、カレンダーサービスから利用する。
type MetricsCollector interface {
	RecordFetchSuccess(source string)
	RecordFetchFailure(source string, reason string)
	RecordParseFailure(source string)
	RecordProxyFetch(source string)
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
	RecordEventsExtracted(count int)
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	fetchSuccess    *prometheus.CounterVec
	fetchFail       *prometheus.CounterVec
	parseFail       *prometheus.CounterVec
	proxyFetch      *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	fetchLatency    prometheus.Histogram
	eventsExtracted prometheus.Counter
	cacheHit        *prometheus.CounterVec
	cacheMiss       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dsfg_fetch_success_total",
			Help: "フィードフェッチ成功の合計数",
		}, []string{"source"}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dsfg_fetch_fail_total",
			Help: "フィードフェッチ失敗の合計数",
		}, []string{"source", "reason"}),
		parseFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dsfg_parse_fail_total",
			Help: "フィードパース失敗の合計数",
		}, []string{"source"}),
		proxyFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dsfg_proxy_fetch_total",
			Help: "中継プロキシ経由で行ったフェッチの合計数",
		}, []string{"source"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dsfg_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dsfg_fetch_latency_seconds",
			Help:    "フィードフェッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		eventsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dsfg_events_extracted_total",
			Help: "抽出されたイベントの合計数",
		}),
		cacheHit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dsfg_cache_hit_total",
			Help: "有効なキャッシュエントリが返された回数",
		}, []string{"key"}),
		cacheMiss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dsfg_cache_miss_total",
			Help: "キャッシュが存在しない、または期限切れだった回数",
		}, []string{"key"}),
	}

	reg.MustRegister(
		c.fetchSuccess,
		c.fetchFail,
		c.parseFail,
		c.proxyFetch,
		c.httpStatus,
		c.fetchLatency,
		c.eventsExtracted,
		c.cacheHit,
		c.cacheMiss,
	)

	return c
}

// RecordFetchSuccess はフェッチ成功を記録する。
func (c *Collector) RecordFetchSuccess(source string) {
	c.fetchSuccess.WithLabelValues(source).Inc()
}

// RecordFetchFailure はフェッチ失敗を記録する。
func (c *Collector) RecordFetchFailure(source string, reason string) {
	c.fetchFail.WithLabelValues(source, reason).Inc()
}

// RecordParseFailure はパース失敗を記録する。
func (c *Collector) RecordParseFailure(source string) {
	c.parseFail.WithLabelValues(source).Inc()
}

// RecordProxyFetch は中継プロキシ経由のフェッチを記録する。
func (c *Collector) RecordProxyFetch(source string) {
	c.proxyFetch.WithLabelValues(source).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency はフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordEventsExtracted は抽出されたイベント数を記録する。
func (c *Collector) RecordEventsExtracted(count int) {
	c.eventsExtracted.Add(float64(count))
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit(key string) {
	c.cacheHit.WithLabelValues(key).Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss(key string) {
	c.cacheMiss.WithLabelValues(key).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
