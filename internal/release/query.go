// Package release は発売スケジュールの取得・キャッシュ・状態管理と、直近の発売日の算出を提供する。
package release

import (
	"net/url"
	"time"

	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/model"
	"github.com/hitoshi/releasecal/internal/upstream"
)

// Query は発売スケジュールの取得条件。
// Filteredがfalseの場合、Publishersには既知の全出版社が入る。
type Query struct {
	Period     model.Period
	Ascending  bool
	Publishers []string
	Filtered   bool
}

// Key はキャッシュと状態管理に使用するキー。全パラメータの組を表す。
// 出版社の順序もキーに含む（上流APIへ渡す順序がそのまま変わるため）。
func (q Query) Key() string {
	v := url.Values{}
	v.Set("period", q.Period.String())
	v.Set("order", q.Order())
	for _, id := range q.Publishers {
		v.Add("publisher", id)
	}
	return v.Encode()
}

// Order は上流APIのorderパラメータの値を返す。
func (q Query) Order() string {
	if q.Ascending {
		return upstream.OrderAscending
	}
	return upstream.OrderDescending
}

// Range は対象月の初日と末日を返す。
func (q Query) Range(loc *time.Location) (time.Time, time.Time) {
	return dateutil.MonthRange(q.Period, loc)
}

// Params は上流APIへのリクエストパラメータに変換する。
func (q Query) Params(loc *time.Location) upstream.ReleaseParams {
	start, end := q.Range(loc)
	publishers := make([]string, len(q.Publishers))
	copy(publishers, q.Publishers)
	return upstream.ReleaseParams{
		Start:      start,
		End:        end,
		Order:      q.Order(),
		Publishers: publishers,
	}
}
