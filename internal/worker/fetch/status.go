package fetch

import (
	"context"
	"errors"

	"github.com/dsfg/calendar/internal/model"
)

// FetchResult はHTTPステータスコードに基づくフェッチ結果の分類。
type FetchResult int

const (
	// FetchResultOK はフェッチ成功（2xx）。
	FetchResultOK FetchResult = iota
	// FetchResultBlocked は取得元に拒否された状態（403/429）。中継プロキシ経由での取得対象になる。
	FetchResultBlocked
	// FetchResultFailed はその他の失敗ステータス。
	FetchResultFailed
)

// String はログ・メトリクス用のラベルを返す。
func (r FetchResult) String() string {
	switch r {
	case FetchResultOK:
		return "ok"
	case FetchResultBlocked:
		return "blocked"
	default:
		return "failed"
	}
}

// ClassifyHTTPStatus はHTTPステータスコードをフェッチ結果に分類する。
func ClassifyHTTPStatus(statusCode int) FetchResult {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return FetchResultOK
	case statusCode == 403 || statusCode == 429:
		return FetchResultBlocked
	default:
		return FetchResultFailed
	}
}

// errURLRejected は送信前のURL検証で拒否されたことを示す。
var errURLRejected = errors.New("URL rejected by SSRF guard")

// shouldRouteViaProxy は直接取得の失敗が中継プロキシで回避できる種類かを判定する。
// HTTP 403/429 と、応答が得られなかったネットワークエラーが対象。
// URL検証による拒否と呼び出し元のキャンセルは対象外。
func shouldRouteViaProxy(err error) bool {
	var fe *model.FetchError
	if !errors.As(err, &fe) {
		return false
	}
	if errors.Is(err, errURLRejected) || errors.Is(err, context.Canceled) {
		return false
	}
	if fe.StatusCode == 0 {
		return true
	}
	return ClassifyHTTPStatus(fe.StatusCode) == FetchResultBlocked
}

// failureReason はメトリクスに記録する失敗理由を返す。
func failureReason(err error) string {
	var fe *model.FetchError
	if !errors.As(err, &fe) {
		return "error"
	}
	switch {
	case errors.Is(err, errURLRejected):
		return "rejected"
	case fe.StatusCode == 0:
		return "network"
	default:
		return ClassifyHTTPStatus(fe.StatusCode).String()
	}
}
