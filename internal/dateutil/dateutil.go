// Package dateutil は日付のパース、月単位の計算、ベトナム語ロケールでの整形を提供する。
// 日付は全て日単位の精度で扱い、時刻成分は切り捨てる。
package dateutil

import (
	"fmt"
	"time"

	"github.com/hitoshi/releasecal/internal/model"
)

// isoDateLayout はISO-8601の日付（日精度）のレイアウト。
const isoDateLayout = "2006-01-02"

// DefaultTimezone はサイトの既定タイムゾーン。
const DefaultTimezone = "Asia/Ho_Chi_Minh"

// Clock は現在時刻を提供するインターフェース。
// テスト時に固定時刻へ差し替え可能。
type Clock interface {
	Now() time.Time
}

// SystemClock は指定ロケーションのシステム時刻を返すClock。
type SystemClock struct {
	Location *time.Location
}

// Now は現在時刻を返す。
func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock は常に同じ時刻を返すClock。
type FixedClock struct {
	T time.Time
}

// Now は固定時刻を返す。
func (c FixedClock) Now() time.Time {
	return c.T
}

// LoadLocation はタイムゾーン名からロケーションを読み込む。
// 空文字列の場合はDefaultTimezoneを使用する。
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return loc, nil
}

// ParseISODate はISO-8601の日付文字列を指定ロケーションの0時としてパースする。
// "YYYY-MM-DD" とRFC3339の両方を受け付け、RFC3339の場合は日付に切り捨てる。
func ParseISODate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(isoDateLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ISO date %q: %w", s, err)
	}
	return StartOfDay(t.In(loc)), nil
}

// ISODate は日付を "YYYY-MM-DD" 形式で返す。
func ISODate(t time.Time) string {
	return t.Format(isoDateLayout)
}

// StartOfDay は同じロケーションでの当日0時を返す。
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// PeriodOf は時刻が属する年月を返す。
func PeriodOf(t time.Time) model.Period {
	return model.Period{Year: t.Year(), Month: int(t.Month())}
}

// MonthRange は年月の初日と末日（いずれも0時、両端を含む）を返す。
// 月の日数（28〜31日）と閏年を考慮する。
func MonthRange(p model.Period, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, -1)
	return start, end
}

// AddMonths は年月にn か月を加算した年月を返す。nは負数も可。
func AddMonths(p model.Period, n int) model.Period {
	t := time.Date(p.Year, time.Month(p.Month)+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return PeriodOf(t)
}

// SameMonth は2つの時刻が同じ年月に属するかを返す。
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// DaysBetween はfromからtoまでの暦日差を返す。toが過去なら負数。
// タイムゾーンのオフセット差やサマータイムの影響を受けないよう、暦日をUTCに写してから計算する。
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
