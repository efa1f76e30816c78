package leaderboarddomain

import "time"

// PeriodWindow is one weekly accumulation window, [Start, End) in UTC.
type PeriodWindow struct {
	Start time.Time
	End   time.Time
}

// Key is the window's identity for snapshots and lookups, the start date in
// ISO form.
func (w PeriodWindow) Key() string {
	return w.Start.Format("2006-01-02")
}

// WeekWindow returns the window containing t. Weeks start Monday 00:00 UTC.
func WeekWindow(t time.Time) PeriodWindow {
	t = t.UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -daysSinceMonday)
	return PeriodWindow{Start: start, End: start.AddDate(0, 0, 7)}
}

// PreviousWeekWindow returns the window that ended most recently before the
// one containing t. Rollover snapshots are keyed by it.
func PreviousWeekWindow(t time.Time) PeriodWindow {
	current := WeekWindow(t)
	return PeriodWindow{Start: current.Start.AddDate(0, 0, -7), End: current.Start}
}
