package util

import "time"

// krxHolidays lists fixed-date KRX market closures. Lunar-calendar holidays
// (Seollal, Chuseok) move every year and are handled by the collectors simply
// finding no data for the date, so they are not enumerated here.
var krxHolidays = map[string]bool{
	"01-01": true, // New Year's Day
	"03-01": true, // Independence Movement Day
	"05-01": true, // Labor Day (market closed)
	"05-05": true, // Children's Day
	"06-06": true, // Memorial Day
	"08-15": true, // Liberation Day
	"10-03": true, // National Foundation Day
	"10-09": true, // Hangul Day
	"12-25": true, // Christmas
	"12-31": true, // last trading day is Dec 30 or earlier
}

// IsKRXTradingDay reports whether t falls on a regular KRX trading day. It
// rules out weekends and fixed-date holidays only; a "true" result still only
// means the collector should try the date, not that data must exist.
func IsKRXTradingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !krxHolidays[t.Format("01-02")]
}

// PrevKRXTradingDay returns the closest regular trading day at or before t.
func PrevKRXTradingDay(t time.Time) time.Time {
	for !IsKRXTradingDay(t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}
