// Package timeutil keeps calendar dates stable across client time zones.
package timeutil

import (
	"fmt"
	"time"
)

// DefaultZone is the clinic's civil time zone.
const DefaultZone = "America/Lima"

// LoadZone loads name, falling back to a fixed UTC-5 zone when the tz
// database is unavailable (Lima has no daylight saving).
func LoadZone(name string) *time.Location {
	if name == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, -5*60*60)
	}
	return loc
}

// CivilDate returns midnight of t's calendar day as observed in loc.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// ParseCivilDate accepts "2006-01-02" or an RFC3339 timestamp and returns the
// calendar day in loc. A bare date is taken as-is; a timestamp is converted
// to loc first, so "1990-05-10T03:00:00Z" becomes 1990-05-09 in Lima.
func ParseCivilDate(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return CivilDate(t, loc), nil
}

// ParseClock parses "15:04" into a duration since midnight.
func ParseClock(raw string) (time.Duration, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
