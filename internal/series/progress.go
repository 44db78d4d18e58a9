// Package series はライセンス作品の進捗段階を算出する。
package series

import (
	"time"

	"github.com/hitoshi/releasecal/internal/dateutil"
	"github.com/hitoshi/releasecal/internal/model"
)

// Stage は作品の進捗段階。タイムライン表示の到達位置になる。
type Stage int

const (
	// StageLicensed はライセンス取得のみで発売予定がない段階。
	StageLicensed Stage = 1
	// StageScheduled は発売予定があるが、まだ1冊も発売されていない段階。
	StageScheduled Stage = 2
	// StageReleased は最初の1冊が今日までに発売された段階。
	StageReleased Stage = 3
)

// Progress は作品詳細の進捗情報。
type Progress struct {
	Stage Stage
	// LicensedOn はライセンス取得日。不明な場合はゼロ値。
	LicensedOn time.Time
	// DaysSinceLicensed はライセンス取得日から今日までの日数。取得日が不明な場合は-1。
	DaysSinceLicensed int
}

// Reached はタイムライン上の段階に到達しているかを返す。
func (p Progress) Reached(s Stage) bool {
	return p.Stage >= s
}

// Compute は作品詳細と今日の日付から進捗を算出する。
// 発売日が解析できないエントリは判定から除外する。
func Compute(d *model.SerieDetail, today time.Time) Progress {
	p := Progress{Stage: StageLicensed, DaysSinceLicensed: -1}
	loc := today.Location()

	if d.Licensed != nil && d.Licensed.Timestamp != "" {
		if t, err := dateutil.ParseISODate(d.Licensed.Timestamp, loc); err == nil {
			p.LicensedOn = t
			p.DaysSinceLicensed = dateutil.DaysBetween(t, today)
		}
	}

	if len(d.Publications) == 0 {
		return p
	}
	p.Stage = StageScheduled

	for _, pub := range d.Publications {
		date, err := dateutil.ParseISODate(pub.Date, loc)
		if err != nil {
			continue
		}
		if dateutil.DaysBetween(date, today) >= 0 {
			p.Stage = StageReleased
			break
		}
	}
	return p
}
