package calendar

import "strings"

// DefaultRegion is used when a timezone does not map to a known region
const DefaultRegion = "QLD"

var timezoneRegions = map[string]string{
	"Australia/Brisbane":  "QLD",
	"Australia/Sydney":    "NSW",
	"Australia/Melbourne": "NSW",
	"Australia/Adelaide":  "SA",
	"Australia/Perth":     "WA",
	"Australia/Hobart":    "TAS",
	"Australia/Darwin":    "NT",
	"Pacific/Auckland":    "NZ",
}

// RegionForTimezone maps an IANA timezone to a public holiday region
func RegionForTimezone(tz string) string {
	if r, ok := timezoneRegions[strings.TrimSpace(tz)]; ok {
		return r
	}
	return DefaultRegion
}
