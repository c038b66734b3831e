package calendar

import "time"

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date is a shorthand for a UTC midnight date
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar date of now in loc
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Day(now.In(loc))
}

// DaysBetween counts calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// Workdays binds a Checker to a holiday region
type Workdays struct {
	checker Checker
	region  string
}

// For returns working-day arithmetic over c for region
func For(c Checker, region string) Workdays {
	return Workdays{checker: c, region: region}
}

// Region returns the holiday region in use
func (w Workdays) Region() string {
	return w.region
}

// IsWorkingDay reports whether d is a working day
func (w Workdays) IsWorkingDay(d time.Time) bool {
	return w.checker.IsWorkingDay(Day(d), w.region)
}

// Add moves n working days from start. Negative n moves backwards.
// Add(start, 0) returns start unchanged even when it is not a working day.
func (w Workdays) Add(start time.Time, n int) (time.Time, error) {
	d := Day(start)
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	skipped := 0
	for n > 0 {
		d = d.AddDate(0, 0, step)
		if w.IsWorkingDay(d) {
			n--
			skipped = 0
			continue
		}
		skipped++
		if skipped > maxScan {
			return time.Time{}, ErrNoWorkingDays
		}
	}
	return d, nil
}

// Next returns d when it is a working day, otherwise the next working day after it
func (w Workdays) Next(d time.Time) (time.Time, error) {
	d = Day(d)
	for i := 0; i <= maxScan; i++ {
		if w.IsWorkingDay(d) {
			return d, nil
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Time{}, ErrNoWorkingDays
}

// Count returns the number of working days in [a, b). It is negative when b is before a.
func (w Workdays) Count(a, b time.Time) int {
	a, b = Day(a), Day(b)
	sign := 1
	if b.Before(a) {
		a, b = b, a
		sign = -1
	}
	n := 0
	for d := a; d.Before(b); d = d.AddDate(0, 0, 1) {
		if w.IsWorkingDay(d) {
			n++
		}
	}
	return sign * n
}
