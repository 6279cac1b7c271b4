package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dsfg/calendar/internal/middleware"
	"github.com/dsfg/calendar/internal/model"
)

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// フィード取得の失敗は空のカレンダーではなく、再試行可能なエラーとして返す。
// 本文のパース失敗はフェッチャー内で記事0件として扱われるため、ここには届かない。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	var fetchErr *model.FetchError
	if errors.As(err, &fetchErr) {
		apiErr := model.NewFetchFailedError(fetchFailureReason(fetchErr))
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// 要求元が切断した場合は応答を書かない
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		slog.Info("request canceled by client", slog.String("path", r.URL.Path))
		return
	}

	// それ以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// fetchFailureReason は利用者向けの失敗理由を組み立てる。
func fetchFailureReason(err *model.FetchError) string {
	switch {
	case err.StatusCode == http.StatusTooManyRequests:
		return "the feed provider is rate limiting requests (HTTP 429)"
	case err.StatusCode == http.StatusForbidden:
		return "the feed provider refused the request (HTTP 403)"
	case err.StatusCode != 0:
		return fmt.Sprintf("the feed provider returned HTTP %d", err.StatusCode)
	default:
		return "the feed provider could not be reached"
	}
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeFetchFailed:
		return http.StatusBadGateway
	case model.ErrCodeInvalidView, model.ErrCodeInvalidMonth:
		return http.StatusBadRequest
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
