package view

import (
	"time"

	"github.com/hitoshi/releasecal/internal/currency"
	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/model"
	"github.com/hitoshi/releasecal/internal/security"
	"github.com/hitoshi/releasecal/internal/site"
)

// 表紙画像のsizes属性。
const (
	sizesCard  = "(max-width: 768px) 40vw, 200px"
	sizesModal = "(max-width: 768px) 80vw, (max-width: 1024px) 25vw, 15vw"
	sizesHero  = "(max-width: 768px) 80vw, 300px"
)

// StoreLink は販売店の検索リンク。
type StoreLink struct {
	Name string
	URL  string
}

// Card は発売エントリ1件の表示用データ。
type Card struct {
	ID             string
	Name           string
	Date           string
	DateLabel      string
	Edition        string
	Price          string
	PublisherName  string
	PublisherColor string
	Wide           bool
	Released       bool
	Cover          Cover
	OpenURL        string
	Stores         []StoreLink
}

// DayGroup は同じ発売日のカードをまとめた表示用データ。
type DayGroup struct {
	Date      string
	Heading   string
	DateLabel string
	Released  bool
	Nearest   bool
	Cards     []Card
}

// Builder はドメインモデルから表示用データを組み立てる。
// 上流APIのテキスト項目はここでタグを除去する。
type Builder struct {
	images    ImageBuilder
	sanitizer security.TextSanitizerService
	site      *site.Content
	location  *time.Location
}

// NewBuilder はBuilderを生成する。
func NewBuilder(images ImageBuilder, sanitizer security.TextSanitizerService, content *site.Content, loc *time.Location) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{images: images, sanitizer: sanitizer, site: content, location: loc}
}

// Site はサイトコンテンツを返す。
func (b *Builder) Site() *site.Content {
	return b.site
}

// Card は発売エントリの表示用データを組み立てる。openURLは詳細を開くリンク。
func (b *Builder) Card(p model.Publication, today time.Time, openURL string) Card {
	name := b.sanitizer.Sanitize(p.Name)
	c := Card{
		ID:             p.ID.String(),
		Name:           name,
		Date:           p.Date,
		Edition:        b.sanitizer.Sanitize(p.EditionLabel()),
		Price:          currency.FormatVND(p.Price),
		PublisherName:  b.sanitizer.Sanitize(p.Publisher.Name),
		PublisherColor: p.Publisher.Color,
		Wide:           p.Wide,
		Cover:          b.images.Cover(p.Image(), name, sizesCard),
		OpenURL:        openURL,
	}
	if d, err := dateutil.ParseISODate(p.Date, b.location); err == nil {
		c.DateLabel = dateutil.FormatShort(d)
		c.Released = d.Before(dateutil.StartOfDay(today.In(b.location)))
	}
	for _, s := range b.site.Stores {
		c.Stores = append(c.Stores, StoreLink{Name: s.Name, URL: s.SearchLink(name)})
	}
	return c
}

// Groups は日付グループの表示用データを組み立てる。グループとエントリの順序は変更しない。
// openURLはエントリIDから詳細を開くリンクを返す。
func (b *Builder) Groups(groups []model.PublicationByDate, today time.Time, nearest string, openURL func(id string) string) []DayGroup {
	start := dateutil.StartOfDay(today.In(b.location))
	nearest = b.isoDay(nearest)
	out := make([]DayGroup, 0, len(groups))
	for _, g := range groups {
		dg := DayGroup{Date: g.Date, Heading: g.Date, DateLabel: g.Date}
		if d, err := dateutil.ParseISODate(g.Date, b.location); err == nil {
			dg.Date = dateutil.ISODate(d)
			dg.Heading = dateutil.FormatWeekdayDay(d)
			dg.DateLabel = dateutil.FormatShort(d)
			dg.Released = d.Before(start)
		}
		dg.Nearest = nearest != "" && dg.Date == nearest
		for _, p := range g.Entries {
			dg.Cards = append(dg.Cards, b.Card(p, today, openURL(p.ID.String())))
		}
		out = append(out, dg)
	}
	return out
}

// isoDay は日付文字列をアンカーIDと同じISO日付に揃える。解釈できない場合はそのまま返す。
func (b *Builder) isoDay(s string) string {
	if d, err := dateutil.ParseISODate(s, b.location); err == nil {
		return dateutil.ISODate(d)
	}
	return s
}

// FindEntry はグループ内からIDが一致するエントリを探す。
func FindEntry(groups []model.PublicationByDate, id string) (model.Publication, bool) {
	for _, g := range groups {
		for _, p := range g.Entries {
			if p.ID.String() == id {
				return p, true
			}
		}
	}
	return model.Publication{}, false
}
