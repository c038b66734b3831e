package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// StartSpec is a parsed start: either an absolute date or a day offset from the job start
type StartSpec struct {
	Date   *time.Time
	Offset *int
}

var (
	dmyRegex      = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	isoRegex      = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	offsetRegex   = regexp.MustCompile(`^\+?(\d+)$`)
	relativeRegex = regexp.MustCompile(`^\+?(\d+)\s*(d|day|days|w|wk|week|weeks)$`)
)

// ParseStart parses the start formats accepted by the CLI and the API
// Supported formats:
// - dd/mm/yyyy (e.g., "15/12/2025")
// - yyyy-mm-dd (e.g., "2025-12-15")
// - N or +N, a day offset from the job start (e.g., "5", "+5")
// - X days / X weeks from the job start (e.g., "3 days", "2 weeks")
func ParseStart(input string) (*StartSpec, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return nil, nil
	}

	if d, err := parseDate(input); err == nil {
		return &StartSpec{Date: d}, nil
	} else if dmyRegex.MatchString(input) || isoRegex.MatchString(input) {
		return nil, err
	}

	if m := offsetRegex.FindStringSubmatch(input); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("invalid offset")
		}
		return &StartSpec{Offset: &n}, nil
	}

	if n, err := parseRelative(input); err == nil {
		return &StartSpec{Offset: &n}, nil
	} else if relativeRegex.MatchString(input) {
		return nil, err
	}

	return nil, fmt.Errorf("invalid start %q. Use: dd/mm/yyyy, yyyy-mm-dd, +N, X days or X weeks", input)
}

// ParseDate parses an absolute date in dd/mm/yyyy or yyyy-mm-dd form
func ParseDate(input string) (time.Time, error) {
	d, err := parseDate(strings.TrimSpace(input))
	if err != nil {
		return time.Time{}, err
	}
	return *d, nil
}

func parseDate(input string) (*time.Time, error) {
	var day, month, year int
	if m := dmyRegex.FindStringSubmatch(input); m != nil {
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
	} else if m := isoRegex.FindStringSubmatch(input); m != nil {
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
	} else {
		return nil, fmt.Errorf("invalid date format")
	}

	if day < 1 || day > 31 {
		return nil, fmt.Errorf("day must be between 1 and 31")
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("month must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return nil, fmt.Errorf("year must be between 2000 and 2100")
	}

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)

	// Check if date is valid (handles leap years, etc.)
	if date.Day() != day || date.Month() != time.Month(month) || date.Year() != year {
		return nil, fmt.Errorf("invalid date")
	}
	return &date, nil
}

// parseRelative parses "3 days" or "2 weeks" into calendar days
func parseRelative(input string) (int, error) {
	m := relativeRegex.FindStringSubmatch(input)
	if m == nil {
		return 0, fmt.Errorf("invalid relative format")
	}
	amount, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("invalid number")
	}

	switch m[2] {
	case "d", "day", "days":
		if amount > 3650 {
			return 0, fmt.Errorf("days must be at most 3650")
		}
		return amount, nil
	case "w", "wk", "week", "weeks":
		if amount > 520 {
			return 0, fmt.Errorf("weeks must be at most 520")
		}
		return amount * 7, nil
	default:
		return 0, fmt.Errorf("unsupported time unit")
	}
}

// FormatStart describes a start date relative to today for display
func FormatStart(start, today time.Time) string {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	todayDay := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	daysDiff := int(startDay.Sub(todayDay).Hours() / 24)

	// Always show the actual date to avoid confusion
	dateStr := start.Format("02/01/2006")

	switch {
	case daysDiff < -1:
		return fmt.Sprintf("%s (%d days ago)", dateStr, -daysDiff)
	case daysDiff == -1:
		return fmt.Sprintf("%s (yesterday)", dateStr)
	case daysDiff == 0:
		return fmt.Sprintf("%s (today)", dateStr)
	case daysDiff == 1:
		return fmt.Sprintf("%s (tomorrow)", dateStr)
	case daysDiff <= 7:
		return fmt.Sprintf("%s (in %d days)", dateStr, daysDiff)
	default:
		return dateStr
	}
}
