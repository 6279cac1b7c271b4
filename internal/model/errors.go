package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code      string // エラーコード
	Message   string // エラーメッセージ
	Category  string // カテゴリ: validation, feed, system
	Action    string // ユーザー向け対処方法
	Retryable bool   // 再試行で解消しうるか
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeFetchFailed  = "FETCH_FAILED"
	ErrCodeInvalidView  = "INVALID_VIEW"
	ErrCodeInvalidMonth = "INVALID_MONTH"
	ErrCodeRateLimited  = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrCacheMiss はキャッシュにエントリが無い、または期限切れであることを示す。
// エラーではなく制御フロー上のシグナルとして扱う。
var ErrCacheMiss = errors.New("cache miss")

// FetchError はフィード取得時のネットワーク/HTTPエラーを表す。
// StatusCodeはHTTP応答が得られなかった場合0になる。
type FetchError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

// Error はerrorインターフェースを実装する。
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *FetchError) Unwrap() error { return e.Err }

// ParseError はフィード本文を解釈できなかったことを表す。
type ParseError struct {
	Source string
	Err    error
}

// Error はerrorインターフェースを実装する。
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse feed %s: %v", e.Source, e.Err)
}

// Unwrap は元のエラーを返す。
func (e *ParseError) Unwrap() error { return e.Err }

// NewFetchFailedError はフェッチ失敗のAPIエラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:      ErrCodeFetchFailed,
		Message:   fmt.Sprintf("Could not load corporate events: %s", reason),
		Category:  "feed",
		Action:    "Dismiss this message and retry, or reload the page.",
		Retryable: true,
	}
}

// NewInvalidViewError は無効な表示モードのエラーを生成する。
func NewInvalidViewError(view string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidView,
		Message:  fmt.Sprintf("Invalid view: %s", view),
		Category: "validation",
		Action:   "Use view=all or view=month.",
	}
}

// NewInvalidMonthError は無効な月指定のエラーを生成する。
func NewInvalidMonthError(month string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidMonth,
		Message:  fmt.Sprintf("Invalid month: %s", month),
		Category: "validation",
		Action:   "Specify the month as YYYY-MM.",
	}
}
