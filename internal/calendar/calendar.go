package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrNoWorkingDays is returned when a calendar cannot reach a working day
var ErrNoWorkingDays = errors.New("calendar has no working days")

// maxScan bounds how many consecutive non-working days are skipped before giving up
const maxScan = 3660

// Checker answers whether a date is a working day in a holiday region
type Checker interface {
	IsWorkingDay(date time.Time, region string) bool
}

// Calendar is a weekly working pattern plus regional public holidays
type Calendar struct {
	working  [7]bool
	holidays map[string]map[time.Time]string
}

// New builds a calendar that works on the given weekdays
func New(workingDays []time.Weekday) (*Calendar, error) {
	c := &Calendar{holidays: make(map[string]map[time.Time]string)}
	for _, d := range workingDays {
		c.working[d] = true
	}
	for _, w := range c.working {
		if w {
			return c, nil
		}
	}
	return nil, ErrNoWorkingDays
}

// AddHoliday marks date as non-working in region
func (c *Calendar) AddHoliday(region string, date time.Time, name string) {
	region = strings.ToUpper(region)
	if c.holidays[region] == nil {
		c.holidays[region] = make(map[time.Time]string)
	}
	c.holidays[region][Day(date)] = name
}

// Holiday returns the holiday name for date in region, if any
func (c *Calendar) Holiday(date time.Time, region string) (string, bool) {
	name, ok := c.holidays[strings.ToUpper(region)][Day(date)]
	return name, ok
}

// IsWorkingDay implements Checker
func (c *Calendar) IsWorkingDay(date time.Time, region string) bool {
	if !c.working[date.Weekday()] {
		return false
	}
	_, holiday := c.Holiday(date, region)
	return !holiday
}

// WorkingWeekdays returns the configured weekdays in Sunday-first order
func (c *Calendar) WorkingWeekdays() []time.Weekday {
	var out []time.Weekday
	for d, w := range c.working {
		if w {
			out = append(out, time.Weekday(d))
		}
	}
	return out
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWorkingDays parses names like "mon,tue,wed" or a slice of them
func ParseWorkingDays(names ...string) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]bool)
	for _, group := range names {
		for _, name := range strings.Split(group, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			d, ok := weekdayNames[name]
			if !ok {
				return nil, fmt.Errorf("unknown weekday %q", name)
			}
			seen[d] = true
		}
	}
	if len(seen) == 0 {
		return nil, ErrNoWorkingDays
	}
	out := make([]time.Weekday, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// FormatWorkingDays is the inverse of ParseWorkingDays
func FormatWorkingDays(days []time.Weekday) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strings.ToLower(d.String()[:3]))
	}
	return strings.Join(parts, ",")
}
