// Package timeutil normalizes the mixed timestamp representations found in
// document records into time.Time at the snapshot boundary, so downstream
// aggregation and scoring only ever see one instant type.
package timeutil

import (
	"fmt"
	"time"
)

// Display formatting constants.
const (
	// DefaultOffsetMinutes renders display strings at UTC+5:30 regardless
	// of the process's local zone. The dashboards this feeds always show
	// IST; keep the fixed offset rather than the system locale.
	DefaultOffsetMinutes = 330

	minutesPerHour = 60
)

// Value is a raw timestamp as it appears on a document record: a string, an
// epoch-seconds struct, anything exposing a Time() accessor, a time.Time, or
// nil when the field is absent.
type Value any

// EpochSeconds mirrors the document store's native timestamp shape.
type EpochSeconds struct {
	Seconds int64
	Nanos   int64
}

// TimeProvider is satisfied by values that resolve themselves lazily.
type TimeProvider interface {
	Time() time.Time
}

// stringLayouts are tried in order when resolving string values.
var stringLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Resolve converts a raw Value into an absolute instant. The second return
// is false when the value is absent or cannot be parsed; Resolve never
// panics and never returns a partial result.
func Resolve(v Value) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t, true
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case EpochSeconds:
		return time.Unix(t.Seconds, t.Nanos).UTC(), true
	case *EpochSeconds:
		if t == nil {
			return time.Time{}, false
		}
		return time.Unix(t.Seconds, t.Nanos).UTC(), true
	case TimeProvider:
		return resolveLazy(t)
	case string:
		return parseString(t)
	default:
		return time.Time{}, false
	}
}

// resolveLazy invokes a provider's accessor. Providers are caller-supplied
// and may sit on nil receivers, so a panic here is swallowed into not-ok.
func resolveLazy(p TimeProvider) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	resolved := p.Time()
	if resolved.IsZero() {
		return time.Time{}, false
	}
	return resolved, true
}

func parseString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range stringLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// FormatDisplay renders an instant as "YYYY-MM-DD HH:MM AM/PM" at the given
// fixed UTC offset in minutes.
func FormatDisplay(t time.Time, offsetMinutes int) string {
	zone := time.FixedZone(fmt.Sprintf("UTC%+03d:%02d", offsetMinutes/minutesPerHour, abs(offsetMinutes)%minutesPerHour), offsetMinutes*minutesPerHour)
	return t.In(zone).Format("2006-01-02 03:04 PM")
}

// EndOfDay clamps an instant's time-of-day to 23:59:59.999 in its own
// location. Used by the overdue classifier's grace-period rule; anything
// past the last millisecond of the day counts as the next day.
func EndOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 23, 59, 59, int(time.Second-time.Millisecond), t.Location())
}

// DateKey returns the calendar-date bucket key for an instant.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// MonthKey returns the year-month bucket key for an instant.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
