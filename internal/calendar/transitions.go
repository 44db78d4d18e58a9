package calendar

import (
	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/model"
)

// ChangeDate は表示期間を変更する。開いている詳細モーダルは閉じる。
func (s State) ChangeDate(p model.Period) State {
	n := s.clone()
	if p.Valid() {
		n.Period = p
	}
	n.EntryID = ""
	return n
}

// PrevMonth は前月へ移動する。
func (s State) PrevMonth() State {
	return s.ChangeDate(dateutil.AddMonths(s.Period, -1))
}

// NextMonth は翌月へ移動する。
func (s State) NextMonth() State {
	return s.ChangeDate(dateutil.AddMonths(s.Period, 1))
}

// ToggleOrder は昇順と降順を切り替える。
func (s State) ToggleOrder() State {
	n := s.clone()
	n.Ascending = !s.Ascending
	return n
}

// ToggleView はグリッド表示とリスト表示を切り替える。切り替え後のビューは保存対象になる。
func (s State) ToggleView() State {
	n := s.clone()
	n.Grid = !s.Grid
	n.ViewExplicit = true
	return n
}

// OpenEntry は発売エントリの詳細モーダルを開く。
func (s State) OpenEntry(id string) State {
	n := s.clone()
	n.EntryID = id
	n.FilterOpen = false
	n.Draft = nil
	return n
}

// CloseModal は詳細モーダルとフィルタモーダルを閉じる。
func (s State) CloseModal() State {
	n := s.clone()
	n.EntryID = ""
	n.FilterOpen = false
	n.Draft = nil
	return n
}

// OpenFilter はフィルタモーダルを開く。下書きは適用済みの選択から始まる。
func (s State) OpenFilter() State {
	n := s.clone()
	n.EntryID = ""
	n.FilterOpen = true
	n.Draft = s.Publishers.Clone()
	return n
}

// CloseFilter はフィルタモーダルを閉じ、下書きを破棄する。
func (s State) CloseFilter() State {
	n := s.clone()
	n.FilterOpen = false
	n.Draft = nil
	return n
}

// ToggleFilter は下書き内の出版社の選択を切り替える。
func (s State) ToggleFilter(id string, checked bool) State {
	n := s.draftState()
	n.Draft.Toggle(id, checked)
	return n
}

// SelectAll は下書きを指定した全出版社に置き換える。
func (s State) SelectAll(ids []string) State {
	n := s.draftState()
	n.Draft.SelectAll(ids)
	return n
}

// SelectNone は下書きを空にする。
func (s State) SelectNone() State {
	n := s.draftState()
	n.Draft.SelectNone()
	return n
}

// ApplyFilter は下書きを適用済みフィルタにしてモーダルを閉じる。
// 空の選択もそのまま適用する。
func (s State) ApplyFilter() State {
	n := s.draftState()
	n.Publishers = n.Draft
	n.Filtered = true
	n.FilterOpen = false
	n.Draft = nil
	return n
}

func (s State) draftState() State {
	n := s.clone()
	n.FilterOpen = true
	if n.Draft == nil {
		n.Draft = s.Publishers.Clone()
	}
	return n
}
