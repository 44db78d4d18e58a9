package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/releasecal/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// errorStatus はエラーコードごとのHTTPステータス。
var errorStatus = map[string]int{
	model.ErrCodeInvalidQuery:     http.StatusBadRequest,
	model.ErrCodeMethodNotAllowed: http.StatusMethodNotAllowed,
	model.ErrCodeSerieNotFound:    http.StatusNotFound,
	model.ErrCodeUpstreamFailed:   http.StatusBadGateway,
	model.ErrCodeSnapshotMissing:  http.StatusServiceUnavailable,
}

// StatusFor はAPIErrorに対応するHTTPステータスを返す。未知のコードは500。
func StatusFor(apiErr *model.APIError) int {
	if status, ok := errorStatus[apiErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteAPIError はエラーコードから決まるステータスで統一エラーを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusFor(apiErr), apiErr)
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// エラーはキャッシュさせない。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部エラーを返す。詳細はログのみに記録する。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "Đã có lỗi xảy ra.",
		Category: "system",
		Action:   "Vui lòng thử lại sau ít phút.",
	})
}
