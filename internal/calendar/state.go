// Package calendar はカレンダーページの表示状態を管理する。
// 状態はすべてページURLのクエリに符号化し、操作ごとに新しいURLを生成する。
package calendar

import (
	"net/url"
	"strconv"
	"time"

	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/filter"
	"github.com/hitoshi/releasecal/internal/model"
	"github.com/hitoshi/releasecal/internal/release"
)

// クエリパラメータ名。
const (
	paramYear      = "year"
	paramMonth     = "month"
	paramOrder     = "order"
	paramView      = "view"
	paramPublisher = "publisher"
	paramFiltered  = "filtered"
	paramEntry     = "entry"
	paramFilter    = "filter"
	paramDraft     = "draft"
	paramDrafted   = "drafted"
	paramReload    = "reload"
)

const (
	orderDesc  = "desc"
	viewGrid   = "grid"
	viewList   = "list"
	filterOpen = "open"
)

// Defaults はURLで指定されなかった項目の既定値。
type Defaults struct {
	// Today は基準日。期間の既定値は今日の属する月。
	Today time.Time
	// Publishers は既知の全出版社ID。フィルタ未適用時の選択状態になる。
	Publishers []string
	// Grid はビューの既定値（Cookieの保存値など）。
	Grid bool
}

// State はカレンダーページの表示状態。
// Publishersは適用済みの出版社フィルタ、Draftはフィルタモーダル内で編集中の選択。
type State struct {
	Path       string
	Period     model.Period
	Ascending  bool
	Publishers *filter.Set
	Filtered   bool
	Grid       bool
	// ViewExplicit はビューがURLで明示されたかを表す。明示された場合は設定を保存する。
	ViewExplicit bool
	EntryID      string
	FilterOpen   bool
	Draft        *filter.Set
	// Reload はキャッシュを破棄して再取得する要求。一度きりの指示のためURLには残さない。
	Reload bool
}

// FromRequest はクエリから状態を復元する。不正な値は既定値で補う。
func FromRequest(path string, q url.Values, d Defaults) State {
	s := State{
		Path:      path,
		Period:    dateutil.PeriodOf(d.Today),
		Ascending: q.Get(paramOrder) != orderDesc,
		Grid:      d.Grid,
		EntryID:   q.Get(paramEntry),
		Reload:    q.Get(paramReload) == "1",
	}
	if s.Path == "" {
		s.Path = "/"
	}

	year, yerr := strconv.Atoi(q.Get(paramYear))
	month, merr := strconv.Atoi(q.Get(paramMonth))
	if yerr == nil && merr == nil {
		if p := (model.Period{Year: year, Month: month}); p.Valid() {
			s.Period = p
		}
	}

	switch q.Get(paramView) {
	case viewGrid:
		s.Grid, s.ViewExplicit = true, true
	case viewList:
		s.Grid, s.ViewExplicit = false, true
	}

	if q.Get(paramFiltered) == "1" {
		s.Filtered = true
		s.Publishers = filter.NewSet(q[paramPublisher]...)
	} else {
		s.Publishers = filter.NewSet(d.Publishers...)
	}

	if q.Get(paramFilter) == filterOpen {
		s.FilterOpen = true
		if q.Get(paramDrafted) == "1" {
			s.Draft = filter.NewSet(q[paramDraft]...)
		} else {
			s.Draft = s.Publishers.Clone()
		}
	}

	return s
}

// Query は発売スケジュールの取得条件に変換する。
func (s State) Query() release.Query {
	return release.Query{
		Period:     s.Period,
		Ascending:  s.Ascending,
		Publishers: s.Publishers.IDs(),
		Filtered:   s.Filtered,
	}
}

// Values は状態をクエリに符号化する。既定値と同じ項目も期間は常に含める。
func (s State) Values() url.Values {
	q := url.Values{}
	q.Set(paramYear, strconv.Itoa(s.Period.Year))
	q.Set(paramMonth, strconv.Itoa(s.Period.Month))
	if !s.Ascending {
		q.Set(paramOrder, orderDesc)
	}
	if s.ViewExplicit {
		if s.Grid {
			q.Set(paramView, viewGrid)
		} else {
			q.Set(paramView, viewList)
		}
	}
	if s.Filtered {
		q.Set(paramFiltered, "1")
		for _, id := range s.Publishers.IDs() {
			q.Add(paramPublisher, id)
		}
	}
	if s.EntryID != "" {
		q.Set(paramEntry, s.EntryID)
	}
	if s.FilterOpen {
		q.Set(paramFilter, filterOpen)
		if s.Draft != nil && !s.Draft.Equal(s.Publishers) {
			q.Set(paramDrafted, "1")
			for _, id := range s.Draft.IDs() {
				q.Add(paramDraft, id)
			}
		}
	}
	return q
}

// URL は状態を表すページURLを返す。
func (s State) URL() string {
	return s.Path + "?" + s.Values().Encode()
}

// ReloadURL は同じ状態のまま発売スケジュールを再取得するURLを返す。
func (s State) ReloadURL() string {
	q := s.Values()
	q.Set(paramReload, "1")
	return s.Path + "?" + q.Encode()
}

// Anchor は日付グループへのリンクを返す。グループのアンカーIDはISO日付。
func (s State) Anchor(date string) string {
	return s.URL() + "#" + date
}

// clone はフィルタ集合を複製した状態を返す。遷移の起点として使用する。
func (s State) clone() State {
	n := s
	n.Publishers = s.Publishers.Clone()
	if s.Draft != nil {
		n.Draft = s.Draft.Clone()
	}
	return n
}
