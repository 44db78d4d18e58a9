package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidQuery     = "INVALID_QUERY"
	ErrCodeUpstreamFailed   = "UPSTREAM_FAILED"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeSerieNotFound    = "SERIE_NOT_FOUND"
	ErrCodeSnapshotMissing  = "SNAPSHOT_MISSING"
)

// NewInvalidQueryError は不正なクエリパラメータのエラーを生成する。
func NewInvalidQueryError(param, value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuery,
		Message:  fmt.Sprintf("Tham số không hợp lệ: %s=%q", param, value),
		Category: "validation",
		Action:   "Ngày phải có dạng YYYY-MM-DD, thứ tự là ascending hoặc descending.",
	}
}

// NewUpstreamFailedError は上流APIの取得失敗エラーを生成する。
func NewUpstreamFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailed,
		Message:  "Không lấy được dữ liệu lịch phát hành.",
		Category: "upstream",
		Action:   "Vui lòng tải lại trang sau ít phút.",
	}
}

// NewMethodNotAllowedError は許可されていないHTTPメソッドのエラーを生成する。
func NewMethodNotAllowedError(method string) *APIError {
	return &APIError{
		Code:     ErrCodeMethodNotAllowed,
		Message:  fmt.Sprintf("Method %s Not Allowed", method),
		Category: "validation",
		Action:   "Chỉ hỗ trợ GET.",
	}
}

// NewSerieNotFoundError は作品が見つからない場合のエラーを生成する。
func NewSerieNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeSerieNotFound,
		Message:  fmt.Sprintf("Không tìm thấy bộ truyện: %s", id),
		Category: "upstream",
		Action:   "Kiểm tra lại đường dẫn.",
	}
}

// NewSnapshotMissingError は参照データのスナップショットが未取得の場合のエラーを生成する。
func NewSnapshotMissingError() *APIError {
	return &APIError{
		Code:     ErrCodeSnapshotMissing,
		Message:  "Dữ liệu nhà xuất bản chưa sẵn sàng.",
		Category: "system",
		Action:   "Vui lòng thử lại sau ít phút.",
	}
}
