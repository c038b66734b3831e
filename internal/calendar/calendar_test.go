package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdays(t *testing.T) *Calendar {
	t.Helper()
	days, err := ParseWorkingDays("mon,tue,wed,thu,fri")
	require.NoError(t, err)
	c, err := New(days)
	require.NoError(t, err)
	return c
}

func TestNewRequiresWorkingDay(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoWorkingDays)
}

func TestParseWorkingDays(t *testing.T) {
	days, err := ParseWorkingDays("Fri, mon", "wednesday")
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, days)
	assert.Equal(t, "mon,wed,fri", FormatWorkingDays(days))

	_, err = ParseWorkingDays("funday")
	assert.Error(t, err)
	_, err = ParseWorkingDays(" , ")
	assert.ErrorIs(t, err, ErrNoWorkingDays)
}

func TestAddSkipsWeekendsAndHolidays(t *testing.T) {
	c := weekdays(t)
	c.AddHoliday("qld", Date(2025, time.March, 12), "Show day")
	w := For(c, "QLD")

	// Monday 10 March 2025
	monday := Date(2025, time.March, 10)

	tests := []struct {
		name  string
		start time.Time
		n     int
		want  time.Time
	}{
		{"zero keeps start", monday, 0, monday},
		{"one day", monday, 1, Date(2025, time.March, 11)},
		{"skips holiday", monday, 2, Date(2025, time.March, 13)},
		{"crosses weekend", monday, 4, Date(2025, time.March, 17)},
		{"backwards over weekend", monday, -1, Date(2025, time.March, 7)},
		{"backwards over holiday", Date(2025, time.March, 13), -1, Date(2025, time.March, 11)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := w.Add(tt.start, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHolidayIsRegional(t *testing.T) {
	c := weekdays(t)
	c.AddHoliday("NSW", Date(2025, time.March, 12), "Local")

	assert.True(t, c.IsWorkingDay(Date(2025, time.March, 12), "QLD"))
	assert.False(t, c.IsWorkingDay(Date(2025, time.March, 12), "NSW"))
}

func TestNextAndCount(t *testing.T) {
	w := For(weekdays(t), DefaultRegion)
	saturday := Date(2025, time.March, 15)

	next, err := w.Next(saturday)
	require.NoError(t, err)
	assert.Equal(t, Date(2025, time.March, 17), next)

	assert.Equal(t, 5, w.Count(Date(2025, time.March, 10), Date(2025, time.March, 17)))
	assert.Equal(t, -5, w.Count(Date(2025, time.March, 17), Date(2025, time.March, 10)))
}

type never struct{}

func (never) IsWorkingDay(time.Time, string) bool { return false }

func TestAddGivesUpWithoutWorkingDays(t *testing.T) {
	w := For(never{}, "")
	_, err := w.Add(Date(2025, time.January, 1), 1)
	assert.ErrorIs(t, err, ErrNoWorkingDays)
	_, err = w.Next(Date(2025, time.January, 1))
	assert.ErrorIs(t, err, ErrNoWorkingDays)
}

func TestRegionForTimezone(t *testing.T) {
	assert.Equal(t, "NSW", RegionForTimezone("Australia/Sydney"))
	assert.Equal(t, "WA", RegionForTimezone("Australia/Perth"))
	assert.Equal(t, DefaultRegion, RegionForTimezone("Europe/London"))
}

func TestToday(t *testing.T) {
	loc, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)
	// 20:00 UTC on 9 March is already 10 March in Sydney
	now := time.Date(2025, time.March, 9, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, Date(2025, time.March, 10), Today(now, loc))
	assert.Equal(t, Date(2025, time.March, 9), Today(now, nil))
}
