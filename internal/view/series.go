package view

import (
	"fmt"
	"time"

	"github.com/hitoshi/releasecal/internal/calendar"
	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/model"
	"github.com/hitoshi/releasecal/internal/series"
	"github.com/hitoshi/releasecal/internal/site"
)

// statusLabels はライセンス状況の表示名。
var statusLabels = map[model.Status]string{
	model.StatusLicensed:  "Đã mua bản quyền",
	model.StatusPublished: "Đang phát hành",
	model.StatusFinished:  "Đã hoàn thành",
}

// StatusLabel はライセンス状況の表示名を返す。未知の値はそのまま返す。
func StatusLabel(s model.Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// SerieCard は作品一覧の1件。
type SerieCard struct {
	Name           string
	URL            string
	TypeName       string
	PublisherName  string
	PublisherColor string
	StatusLabel    string
	Cover          Cover
}

// FilterGroup は作品一覧のフィルタ項目群。
type FilterGroup struct {
	Label   string
	Options []FilterOption
}

// SeriesPage はライセンス作品一覧ページの表示用データ。
type SeriesPage struct {
	Site    *site.Content
	Title   string
	Status  PageStatus
	Filters []FilterGroup
	Series  []SerieCard
}

// SeriesInput は作品一覧ページの組み立てに必要な入力。
type SeriesInput struct {
	Filter     series.Filter
	Publishers []model.Publisher
	Types      []model.SerieType
	Series     []model.Serie
	Err        error
}

// SeriesPage はライセンス作品一覧ページの表示用データを組み立てる。
func (b *Builder) SeriesPage(in SeriesInput) SeriesPage {
	page := SeriesPage{
		Site:   b.site,
		Title:  b.site.PageTitle("Thông tin bản quyền"),
		Status: PageReady,
	}

	f := in.Filter
	pubs := FilterGroup{Label: "Nhà phát hành"}
	for _, p := range in.Publishers {
		pubs.Options = append(pubs.Options, b.seriesOption(f, series.DimensionPublisher, p.ID, p.Name, p.Color))
	}
	types := FilterGroup{Label: "Loại"}
	for _, t := range in.Types {
		types.Options = append(types.Options, b.seriesOption(f, series.DimensionType, t.ID, t.Name, ""))
	}
	status := FilterGroup{Label: "Tình trạng"}
	for _, s := range model.AllStatuses() {
		status.Options = append(status.Options, b.seriesOption(f, series.DimensionStatus, string(s), StatusLabel(s), ""))
	}
	page.Filters = []FilterGroup{pubs, types, status}

	switch {
	case in.Err != nil:
		page.Status = PageError
	case len(in.Series) == 0:
		page.Status = PageNotFound
	}

	for _, s := range in.Series {
		name := b.sanitizer.Sanitize(s.Name)
		page.Series = append(page.Series, SerieCard{
			Name:           name,
			URL:            "/series/" + s.ID.String(),
			TypeName:       b.sanitizer.Sanitize(s.Type.Name),
			PublisherName:  b.sanitizer.Sanitize(s.Publisher.Name),
			PublisherColor: s.Publisher.Color,
			StatusLabel:    StatusLabel(s.Status),
			Cover:          b.images.Cover(s.Image(), name, sizesCard),
		})
	}
	return page
}

func (b *Builder) seriesOption(f series.Filter, d series.Dimension, id, name, color string) FilterOption {
	checked := f.Checked(d, id)
	return FilterOption{
		ID:        id,
		Name:      b.sanitizer.Sanitize(name),
		Color:     color,
		Checked:   checked,
		ToggleURL: f.Toggle(d, id, !checked).URL(),
	}
}

// TimelineStep は作品詳細のタイムライン1段。
type TimelineStep struct {
	Label   string
	Detail  string
	Reached bool
}

// SeriePage は作品詳細ページの表示用データ。
type SeriePage struct {
	Site           *site.Content
	Title          string
	Name           string
	TypeName       string
	PublisherName  string
	PublisherColor string
	StatusLabel    string
	Cover          Cover
	LicenseSource  string
	Timeline       []TimelineStep
	Publications   []Card
}

// SeriePage は作品詳細ページの表示用データを組み立てる。
func (b *Builder) SeriePage(d *model.SerieDetail, today time.Time) SeriePage {
	today = today.In(b.location)
	name := b.sanitizer.Sanitize(d.Name)
	page := SeriePage{
		Site:           b.site,
		Title:          b.site.PageTitle(name),
		Name:           name,
		TypeName:       b.sanitizer.Sanitize(d.Type.Name),
		PublisherName:  b.sanitizer.Sanitize(d.Publisher.Name),
		PublisherColor: d.Publisher.Color,
		StatusLabel:    StatusLabel(d.Status),
		Cover:          b.images.Cover(d.Image(), name, sizesHero),
	}
	if d.Licensed != nil && d.Licensed.Source != nil {
		page.LicenseSource = *d.Licensed.Source
	}

	progress := series.Compute(d, today)
	licensed := TimelineStep{Label: "Đã mua bản quyền", Reached: true}
	if !progress.LicensedOn.IsZero() {
		licensed.Detail = dateutil.FormatShort(progress.LicensedOn)
		if progress.Stage == series.StageLicensed && progress.DaysSinceLicensed >= 0 {
			licensed.Detail += fmt.Sprintf(". Hiện tại đã được %d ngày kể từ hôm ấy.", progress.DaysSinceLicensed)
		}
	}
	page.Timeline = []TimelineStep{
		licensed,
		{Label: "Đã có lịch phát hành", Reached: progress.Reached(series.StageScheduled)},
		{Label: "Đã phát hành", Reached: progress.Reached(series.StageReleased)},
	}

	for _, p := range d.Publications {
		page.Publications = append(page.Publications, b.Card(p, today, b.calendarEntryURL(p)))
	}
	return page
}

// calendarEntryURL は発売月のカレンダーでエントリの詳細を開くURLを返す。
func (b *Builder) calendarEntryURL(p model.Publication) string {
	d, err := dateutil.ParseISODate(p.Date, b.location)
	if err != nil {
		return ""
	}
	s := calendar.State{Path: "/", Period: dateutil.PeriodOf(d), Ascending: true}
	return s.OpenEntry(p.ID.String()).URL()
}
