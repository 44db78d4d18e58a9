package series

import (
	"net/url"

	"github.com/hitoshi/releasecal/internal/filter"
	"github.com/hitoshi/releasecal/internal/model"
	"github.com/hitoshi/releasecal/internal/upstream"
)

// クエリパラメータ名。
const (
	paramPublisher = "publisher"
	paramType      = "type"
	paramStatus    = "status"
	paramFiltered  = "filtered"
)

// Dimension はフィルタの対象項目。
type Dimension string

const (
	DimensionPublisher Dimension = paramPublisher
	DimensionType      Dimension = paramType
	DimensionStatus    Dimension = paramStatus
)

// Filter はライセンス作品一覧のフィルタ状態。
// 未適用の場合は全出版社・全種別・ステータスLicensedを選択した状態になる。
type Filter struct {
	Path       string
	Publishers *filter.Set
	Types      *filter.Set
	Status     *filter.Set
	Filtered   bool
}

// FromRequest はクエリからフィルタ状態を復元する。
func FromRequest(path string, q url.Values, publishers, types []string) Filter {
	f := Filter{Path: path}
	if f.Path == "" {
		f.Path = "/series"
	}
	if q.Get(paramFiltered) == "1" {
		f.Filtered = true
		f.Publishers = filter.NewSet(q[paramPublisher]...)
		f.Types = filter.NewSet(q[paramType]...)
		f.Status = filter.NewSet(q[paramStatus]...)
		return f
	}
	f.Publishers = filter.NewSet(publishers...)
	f.Types = filter.NewSet(types...)
	f.Status = filter.NewSet(string(model.StatusLicensed))
	return f
}

// Params は上流APIの取得条件に変換する。
func (f Filter) Params() upstream.SeriesParams {
	p := upstream.SeriesParams{
		Publishers: f.Publishers.IDs(),
		Types:      f.Types.IDs(),
	}
	for _, s := range f.Status.IDs() {
		p.Status = append(p.Status, model.Status(s))
	}
	return p
}

// Values はフィルタ状態をクエリに符号化する。未適用の場合は空。
func (f Filter) Values() url.Values {
	q := url.Values{}
	if !f.Filtered {
		return q
	}
	q.Set(paramFiltered, "1")
	for _, id := range f.Publishers.IDs() {
		q.Add(paramPublisher, id)
	}
	for _, id := range f.Types.IDs() {
		q.Add(paramType, id)
	}
	for _, s := range f.Status.IDs() {
		q.Add(paramStatus, s)
	}
	return q
}

// URL はフィルタ状態を表すページURLを返す。
func (f Filter) URL() string {
	q := f.Values()
	if len(q) == 0 {
		return f.Path
	}
	return f.Path + "?" + q.Encode()
}

// Checked は項目が選択されているかを返す。
func (f Filter) Checked(d Dimension, id string) bool {
	return f.set(d).Contains(id)
}

// Toggle は項目の選択を切り替えたフィルタを返す。切り替えた時点で適用済みになる。
func (f Filter) Toggle(d Dimension, id string, checked bool) Filter {
	n := f.clone()
	n.Filtered = true
	n.set(d).Toggle(id, checked)
	return n
}

func (f Filter) set(d Dimension) *filter.Set {
	switch d {
	case DimensionPublisher:
		return f.Publishers
	case DimensionType:
		return f.Types
	default:
		return f.Status
	}
}

func (f Filter) clone() Filter {
	n := f
	n.Publishers = f.Publishers.Clone()
	n.Types = f.Types.Clone()
	n.Status = f.Status.Clone()
	return n
}
