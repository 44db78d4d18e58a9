package view

import (
	"time"

	"github.com/hitoshi/releasecal/internal/calendar"
	"github.com/hitoshi/releasecal/internal/model"
	"github.com/hitoshi/releasecal/internal/release"
	"github.com/hitoshi/releasecal/internal/site"
)

// スケルトン表示のグループ数とグループあたりの件数。
const (
	gridSkeletonGroups = 8
	gridSkeletonCards  = 6
	listSkeletonGroups = 4
	listSkeletonRows   = 5
)

// PageStatus はページ本体の表示状態。
type PageStatus string

const (
	PageLoading  PageStatus = "loading"
	PageError    PageStatus = "error"
	PageNotFound PageStatus = "notfound"
	PageReady    PageStatus = "ready"
)

// pageStatus はローダーの状態から表示状態を決める。
// 0件かつ読み込み中でない場合はエラーではなく「見つからない」表示にする。
func pageStatus(s release.State) PageStatus {
	switch {
	case s.Status == release.StatusError:
		return PageError
	case s.Status != release.StatusReady:
		return PageLoading
	case s.Empty():
		return PageNotFound
	default:
		return PageReady
	}
}

// Skeleton はスケルトン表示の寸法。
type Skeleton struct {
	Groups int
	Items  int
}

// EntryModal は詳細モーダル。Cardがnilの場合はスケルトンを表示する。
type EntryModal struct {
	Card     *Card
	CloseURL string
}

// FilterOption はフィルタモーダルの選択肢1件。
type FilterOption struct {
	ID        string
	Name      string
	Color     string
	Checked   bool
	ToggleURL string
}

// FilterModal は出版社フィルタのモーダル。選択の変更は下書きに対して行い、ApplyURLで適用する。
type FilterModal struct {
	Options       []FilterOption
	SelectAllURL  string
	SelectNoneURL string
	ApplyURL      string
	CloseURL      string
}

// CalendarPage はカレンダーページの表示用データ。
type CalendarPage struct {
	Site  *site.Content
	Title string

	Status   PageStatus
	Grid     bool
	Groups   []DayGroup
	Skeleton Skeleton
	// RefreshSeconds が0より大きい場合はメタリフレッシュで再読み込みする。
	RefreshSeconds int

	Period      model.Period
	PeriodLabel string
	Ascending   bool
	MonthSelect []calendar.MonthOption
	MonthPicker []calendar.PickerYear
	PrevURL     string
	NextURL     string
	OrderURL    string
	ViewURL     string
	FilterURL   string
	Filtered    bool
	NearestURL  string
	// ReloadURL はエラー時にキャッシュを破棄して再取得するリンク。
	ReloadURL string

	Upcoming []Card

	Entry  *EntryModal
	Filter *FilterModal
}

// CalendarInput はカレンダーページの組み立てに必要な入力。
type CalendarInput struct {
	State      calendar.State
	Today      time.Time
	Load       release.State
	Nearest    string
	Publishers []model.Publisher
	Upcoming   []model.PublicationByDate
	// RefreshSeconds は読み込み中の再読み込み間隔。
	RefreshSeconds int
}

// CalendarPage はカレンダーページの表示用データを組み立てる。
func (b *Builder) CalendarPage(in CalendarInput) CalendarPage {
	s := in.State
	page := CalendarPage{
		Site:        b.site,
		Title:       b.site.PageTitle(b.site.Title),
		Status:      pageStatus(in.Load),
		Grid:        s.Grid,
		Period:      s.Period,
		PeriodLabel: s.Period.String(),
		Ascending:   s.Ascending,
		MonthSelect: s.MonthSelect(in.Today),
		MonthPicker: s.MonthPicker(in.Today),
		PrevURL:     s.PrevMonth().URL(),
		NextURL:     s.NextMonth().URL(),
		OrderURL:    s.ToggleOrder().URL(),
		ViewURL:     s.ToggleView().URL(),
		FilterURL:   s.OpenFilter().URL(),
		Filtered:    s.Filtered,
	}

	openURL := func(id string) string { return s.OpenEntry(id).URL() }

	switch page.Status {
	case PageLoading:
		page.RefreshSeconds = in.RefreshSeconds
		page.Skeleton = Skeleton{Groups: listSkeletonGroups, Items: listSkeletonRows}
		if s.Grid {
			page.Skeleton = Skeleton{Groups: gridSkeletonGroups, Items: gridSkeletonCards}
		}
	case PageError:
		page.ReloadURL = s.ReloadURL()
	case PageReady:
		page.Groups = b.Groups(in.Load.Groups, in.Today, in.Nearest, openURL)
		if in.Nearest != "" {
			page.NearestURL = s.Anchor(b.isoDay(in.Nearest))
		}
	}

	for _, g := range in.Upcoming {
		for _, p := range g.Entries {
			page.Upcoming = append(page.Upcoming, b.Card(p, in.Today, openURL(p.ID.String())))
		}
	}

	if s.EntryID != "" {
		modal := &EntryModal{CloseURL: s.CloseModal().URL()}
		if p, ok := FindEntry(in.Load.Groups, s.EntryID); ok {
			card := b.Card(p, in.Today, "")
			card.Cover = b.images.Cover(p.Image(), card.Name, sizesModal)
			modal.Card = &card
		} else if p, ok := FindEntry(in.Upcoming, s.EntryID); ok {
			card := b.Card(p, in.Today, "")
			card.Cover = b.images.Cover(p.Image(), card.Name, sizesModal)
			modal.Card = &card
		}
		page.Entry = modal
	}

	if s.FilterOpen {
		page.Filter = b.filterModal(s, in.Publishers)
	}

	return page
}

func (b *Builder) filterModal(s calendar.State, publishers []model.Publisher) *FilterModal {
	ids := make([]string, 0, len(publishers))
	for _, p := range publishers {
		ids = append(ids, p.ID)
	}

	m := &FilterModal{
		SelectAllURL:  s.SelectAll(ids).URL(),
		SelectNoneURL: s.SelectNone().URL(),
		ApplyURL:      s.ApplyFilter().URL(),
		CloseURL:      s.CloseFilter().URL(),
	}
	for _, p := range publishers {
		checked := s.Draft.Contains(p.ID)
		m.Options = append(m.Options, FilterOption{
			ID:        p.ID,
			Name:      b.sanitizer.Sanitize(p.Name),
			Color:     p.Color,
			Checked:   checked,
			ToggleURL: s.ToggleFilter(p.ID, !checked).URL(),
		})
	}
	return m
}
