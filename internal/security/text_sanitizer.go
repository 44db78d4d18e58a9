package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は上流APIから受け取ったテキスト項目を表示用のプレーンテキストに変換する。
type TextSanitizerService interface {
	// Sanitize は全てのHTMLタグを除去したテキストを返す。
	// 出力はテンプレート側でエスケープされる前提のため、エンティティはデコード済みで返す。
	Sanitize(s string) string
}

// textSanitizer はbluemondayのStrictPolicyを使用するTextSanitizerServiceの実装。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize はタグを除去し、前後の空白を取り除いたテキストを返す。
func (s *textSanitizer) Sanitize(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}
