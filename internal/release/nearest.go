package release

import (
	"sync"
	"time"

	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/model"
)

// Nearest は今日と同じ年月に属し、今日以降で最も近い日付のグループを探す。
// 今日のグループも対象（差0日）。差が同じ場合は先に現れたグループを選ぶ。
// 戻り値はISO日付（YYYY-MM-DD）に正規化する。該当がない場合はfalseを返す。
func Nearest(groups []model.PublicationByDate, today time.Time) (string, bool) {
	best := ""
	bestDiff := -1
	for _, g := range groups {
		d, err := dateutil.ParseISODate(g.Date, today.Location())
		if err != nil {
			continue
		}
		if !dateutil.SameMonth(d, today) {
			continue
		}
		diff := dateutil.DaysBetween(today, d)
		if diff < 0 {
			continue
		}
		if bestDiff < 0 || diff < bestDiff {
			best = dateutil.ISODate(d)
			bestDiff = diff
		}
	}
	return best, bestDiff >= 0
}

// NearestTracker は直近の発売日を保持する。
// 該当するグループがない結果を観測した場合は前回の値を維持する。
type NearestTracker struct {
	mu    sync.Mutex
	value string
}

// Observe は取得結果から直近の発売日を更新する。更新した場合はtrueを返す。
func (t *NearestTracker) Observe(groups []model.PublicationByDate, today time.Time) bool {
	date, ok := Nearest(groups, today)
	if !ok {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.value = date
	return true
}

// Value は現在の直近の発売日を返す。未設定の場合は空文字列。
func (t *NearestTracker) Value() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}
