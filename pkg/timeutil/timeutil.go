// Package timeutil provides time zone aware calendar helpers for LearnHub.
// Streaks are counted in calendar days and the early/late study flags use the
// local hour, so both are evaluated in one configured location
// (Africa/Freetown by default, UTC+0 with no DST).
package timeutil

import (
	"fmt"
	"time"

	// Embedded zone database so LoadLocation works in minimal containers.
	_ "time/tzdata"
)

// DefaultTimezone is the learners' home time zone.
const DefaultTimezone = "Africa/Freetown"

// DayLayout is the persisted calendar day format (lastStudyDate).
const DayLayout = "2006-01-02"

// FreetownTZ is the default location. Sierra Leone has no DST, so a fixed zone
// is used if the zone database lookup ever fails.
var FreetownTZ = mustLocation(DefaultTimezone, time.FixedZone(DefaultTimezone, 0))

func mustLocation(name string, fallback *time.Location) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	return loc
}

// LoadLocation resolves a zone name. Empty means the default zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == DefaultTimezone {
		return FreetownTZ, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeutil: unknown time zone %q: %w", name, err)
	}
	return loc, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Clock
// ═══════════════════════════════════════════════════════════════════════════

// Clock abstracts the current time so callers can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant. Set T to move it.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant.
func (c *FixedClock) Now() time.Time { return c.T }

// Advance moves the fixed clock forward by d.
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// ═══════════════════════════════════════════════════════════════════════════
// Calendar days
// ═══════════════════════════════════════════════════════════════════════════

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// FormatDay renders t's calendar day in loc as YYYY-MM-DD.
func FormatDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// ParseDay parses a YYYY-MM-DD string as midnight in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: invalid day %q: %w", s, err)
	}
	return t, nil
}

// DaysBetween returns the number of calendar days from one YYYY-MM-DD day to
// another. The result is negative when to is before from. Both days are
// interpreted as civil dates, so DST shifts never change the count.
func DaysBetween(from, to string) (int, error) {
	a, err := ParseDay(from, time.UTC)
	if err != nil {
		return 0, err
	}
	b, err := ParseDay(to, time.UTC)
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}

// HourIn returns the hour of day (0-23) of t in loc.
func HourIn(t time.Time, loc *time.Location) int {
	return t.In(loc).Hour()
}

// ═══════════════════════════════════════════════════════════════════════════
// Relative formatting
// ═══════════════════════════════════════════════════════════════════════════

// FormatRelative returns a short human-readable age such as "5m ago".
func FormatRelative(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%dd ago", days)
	}
}
