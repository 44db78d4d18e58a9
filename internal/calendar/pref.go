package calendar

import (
	"encoding/json"
	"net/http"
	"time"
)

// ViewCookieName はビュー設定を保存するCookie名。
// 値はJSONの真偽値（true = グリッド、false = リスト）。
const ViewCookieName = "RELEASES_VIEW"

// viewCookieMaxAge はビュー設定Cookieの有効期間。
const viewCookieMaxAge = 365 * 24 * time.Hour

// ReadViewPreference はリクエストのCookieからビュー設定を読む。
// Cookieがない、または値が不正な場合はdefが返る。
func ReadViewPreference(r *http.Request, def bool) bool {
	c, err := r.Cookie(ViewCookieName)
	if err != nil {
		return def
	}
	var grid bool
	if err := json.Unmarshal([]byte(c.Value), &grid); err != nil {
		return def
	}
	return grid
}

// WriteViewPreference はビュー設定をCookieに保存する。
func WriteViewPreference(w http.ResponseWriter, grid bool, secure bool) {
	value, _ := json.Marshal(grid)
	http.SetCookie(w, &http.Cookie{
		Name:     ViewCookieName,
		Value:    string(value),
		Path:     "/",
		MaxAge:   int(viewCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
