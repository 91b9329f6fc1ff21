package aggregate

import "time"

// Period is a time window [Start, End], both ends inclusive, expressed
// in an explicit reference location. Boundary assignment uses the
// period's own instants, never the process's local timezone.
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthToDate returns the period from the first calendar day of now's
// month (midnight in loc) through now.
func MonthToDate(now time.Time, loc *time.Location) Period {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return Period{Start: start, End: now}
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}
