// Package filter はフィルタ条件として「チェック済み」のID集合を管理する。
// 出版社・種別・ステータスのいずれのフィルタにも使用する。
package filter

// Set はチェック済みIDの集合。挿入順を保持する。
// 変更はToggle・SelectAll・SelectNoneのみで行い、参照データの変化に応じた自動的な削除は行わない。
// ゼロ値は空集合として使用できる。
type Set struct {
	ids   []string
	index map[string]struct{}
}

// NewSet は指定IDで初期化した集合を生成する。重複は除外する。
func NewSet(ids ...string) *Set {
	s := &Set{}
	s.SelectAll(ids)
	return s
}

// Toggle はcheckedがtrueなら追加、falseなら削除する。
// 現在の所属状態に関わらず結果が決まるため冪等。
func (s *Set) Toggle(id string, checked bool) {
	if checked {
		s.add(id)
		return
	}
	s.remove(id)
}

// SelectAll は集合をallIDsと完全に同じ内容に置き換える。
func (s *Set) SelectAll(allIDs []string) {
	s.ids = make([]string, 0, len(allIDs))
	s.index = make(map[string]struct{}, len(allIDs))
	for _, id := range allIDs {
		s.add(id)
	}
}

// SelectNone は集合を空にする。
func (s *Set) SelectNone() {
	s.ids = nil
	s.index = nil
}

// Contains はIDがチェック済みかを返す。
func (s *Set) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// IDs はチェック済みIDを挿入順で返す。戻り値は呼び出し側で変更してよい。
func (s *Set) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len は要素数を返す。
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// Equal は順序を無視して2つの集合が同じ要素を持つかを返す。
func (s *Set) Equal(other *Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, id := range s.IDs() {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// Clone は独立したコピーを返す。
func (s *Set) Clone() *Set {
	return NewSet(s.IDs()...)
}

func (s *Set) add(id string) {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
}

func (s *Set) remove(id string) {
	if _, ok := s.index[id]; !ok {
		return
	}
	delete(s.index, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			break
		}
	}
}
