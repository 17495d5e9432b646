package util

import (
	"time"
)

// ISTLocation returns the Asia/Kolkata location, falling back to a fixed
// UTC+5:30 zone when the tzdata lookup fails.
func ISTLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

// TradingCalendar provides NSE market-hours awareness. The regular cash
// session runs 9:15 AM to 3:30 PM IST, Monday through Friday. Exchange
// holidays are not modelled; the upstream feed simply goes quiet on them.
type TradingCalendar struct {
	loc *time.Location
}

// NewTradingCalendar creates a calendar pinned to IST.
func NewTradingCalendar() *TradingCalendar {
	return &TradingCalendar{loc: ISTLocation()}
}

// IsMarketOpen returns whether the NSE cash session is open at time t.
func (tc *TradingCalendar) IsMarketOpen(t time.Time) bool {
	t = t.In(tc.loc)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	open := time.Date(t.Year(), t.Month(), t.Day(), 9, 15, 0, 0, tc.loc)
	close := time.Date(t.Year(), t.Month(), t.Day(), 15, 30, 0, 0, tc.loc)
	return !t.Before(open) && !t.After(close)
}

// NextOpen returns the next session open at or after t.
func (tc *TradingCalendar) NextOpen(t time.Time) time.Time {
	t = t.In(tc.loc)
	for {
		open := time.Date(t.Year(), t.Month(), t.Day(), 9, 15, 0, 0, tc.loc)
		if t.Weekday() != time.Saturday && t.Weekday() != time.Sunday && !t.After(open) {
			return open
		}
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, tc.loc).AddDate(0, 0, 1)
	}
}
