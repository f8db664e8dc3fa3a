package session

import (
	"time"

	"github.com/scmhub/calendar"
)

// ID identifies one trading session: the exchange-local trading date,
// formatted as YYYY-MM-DD.
type ID string

const dateLayout = "2006-01-02"

// NSE closes at 15:30 IST. Observations after the close belong to the next
// identifiable trading session rather than creating a spurious evening session.
const (
	closeHour   = 15
	closeMinute = 30
)

// Clock maps timestamps to trading sessions for the NSE. It is a pure
// function of its inputs and keeps no state.
//
// Trading days come from scmhub/calendar: the XNSE calendar when available,
// else XBOM (the BSE shares the NSE holiday schedule), else a plain Mon-Fri
// calendar in exchange-local time.
type Clock struct {
	cal *calendar.Calendar
	loc *time.Location
}

// NewClock creates a session clock for the NSE.
func NewClock() *Clock {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// IST has no DST; a fixed offset is an exact substitute.
		loc = time.FixedZone("IST", 5*3600+1800)
	}

	cal := calendar.GetCalendar("xnse")
	if cal == nil {
		cal = calendar.GetCalendar("xbom")
	}
	if cal != nil && cal.Loc != nil {
		loc = cal.Loc
	}

	return &Clock{cal: cal, loc: loc}
}

// SessionOf returns the trading session a timestamp belongs to. Timestamps
// in non-trading periods (after the close, weekends, holidays) map to the
// next identifiable trading session.
func (c *Clock) SessionOf(t time.Time) ID {
	local := t.In(c.loc)

	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	afterClose := local.Hour() > closeHour ||
		(local.Hour() == closeHour && local.Minute() >= closeMinute)

	if afterClose || !c.isTradingDay(day) {
		day = c.nextTradingDay(day)
	}

	return ID(day.Format(dateLayout))
}

// IsNewSession reports whether a timestamp falls in a later session than prev.
func (c *Clock) IsNewSession(prev ID, t time.Time) bool {
	if prev == "" {
		return false
	}
	return c.SessionOf(t) > prev
}

// SessionsSince counts trading sessions elapsed between s and the session
// of t. Returns 0 when t still falls within s, negative never (clamped).
func (c *Clock) SessionsSince(s ID, t time.Time) int {
	cur := c.SessionOf(t)
	if cur <= s {
		return 0
	}

	from, err := time.ParseInLocation(dateLayout, string(s), c.loc)
	if err != nil {
		return 0
	}
	to, err := time.ParseInLocation(dateLayout, string(cur), c.loc)
	if err != nil {
		return 0
	}

	n := 0
	for d := from.AddDate(0, 0, 1); !d.After(to); d = d.AddDate(0, 0, 1) {
		if c.isTradingDay(d) {
			n++
		}
	}
	return n
}

func (c *Clock) isTradingDay(day time.Time) bool {
	if c.cal != nil {
		return c.cal.IsBusinessDay(day)
	}
	wd := day.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func (c *Clock) nextTradingDay(day time.Time) time.Time {
	// Bounded: the longest NSE closures are a handful of days.
	for i := 0; i < 30; i++ {
		day = day.AddDate(0, 0, 1)
		if c.isTradingDay(day) {
			return day
		}
	}
	return day
}
