package calendar

import (
	"time"

	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/model"
)

// firstPickerYear は月選択で選べる最初の年。
const firstPickerYear = 2021

// MonthOption は月選択の1項目。
type MonthOption struct {
	Label    string
	Period   model.Period
	URL      string
	Selected bool
}

// MonthSelect は今日を基準とした前月・今月・翌月の選択肢を返す。
func (s State) MonthSelect(today time.Time) []MonthOption {
	this := dateutil.PeriodOf(today)
	periods := []model.Period{
		dateutil.AddMonths(this, -1),
		this,
		dateutil.AddMonths(this, 1),
	}

	opts := make([]MonthOption, 0, len(periods))
	for _, p := range periods {
		opts = append(opts, MonthOption{
			Label:    dateutil.MonthLabel(p.Month),
			Period:   p,
			URL:      s.ChangeDate(p).URL(),
			Selected: p == s.Period,
		})
	}
	return opts
}

// PickerYear は月選択ピッカーの1年分。
type PickerYear struct {
	Year     int
	Selected bool
	Months   []MonthOption
}

// MonthPicker は2021年から今日の翌年までの年ごとの月選択肢を返す。
func (s State) MonthPicker(today time.Time) []PickerYear {
	last := today.Year() + 1
	years := make([]PickerYear, 0, last-firstPickerYear+1)
	for y := firstPickerYear; y <= last; y++ {
		py := PickerYear{Year: y, Selected: y == s.Period.Year}
		for m := 1; m <= 12; m++ {
			p := model.Period{Year: y, Month: m}
			py.Months = append(py.Months, MonthOption{
				Label:    dateutil.MonthLabel(m),
				Period:   p,
				URL:      s.ChangeDate(p).URL(),
				Selected: p == s.Period,
			})
		}
		years = append(years, py)
	}
	return years
}
