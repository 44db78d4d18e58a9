package dateutil

import (
	"fmt"
	"time"
)

// weekdayNames はベトナム語の曜日名（time.Weekday順）。
var weekdayNames = [7]string{
	"Chủ Nhật",
	"Thứ Hai",
	"Thứ Ba",
	"Thứ Tư",
	"Thứ Năm",
	"Thứ Sáu",
	"Thứ Bảy",
}

// WeekdayName は曜日のベトナム語名を返す。
func WeekdayName(d time.Weekday) string {
	return weekdayNames[d]
}

// FormatWeekdayDay はグリッド見出し用に "Thứ Hai - 05/02" 形式で整形する。
func FormatWeekdayDay(t time.Time) string {
	return WeekdayName(t.Weekday()) + " - " + t.Format("02/01")
}

// FormatShort は "05/02/2024" 形式（vi-VNの短い日付）で整形する。
func FormatShort(t time.Time) string {
	return t.Format("02/01/2006")
}

// MonthLabel は "Tháng 2" 形式の月名を返す。
func MonthLabel(month int) string {
	return fmt.Sprintf("Tháng %d", month)
}
