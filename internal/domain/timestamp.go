package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrTimestamp = errors.New("invalid timestamp")

const abbrevLayout = "2006-01-02T15:04:05.000MST"

// Layouts tried in order. Zone abbreviations resolve against the local zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	abbrevLayout,
	"2006-01-02T15:04:05.000-0700",
}

// ParseTimestamp parses a message timestamp as an instant.
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrTimestamp)
	}
	for _, layout := range timestampLayouts {
		ts, err := time.ParseInLocation(layout, s, time.Local)
		if err != nil {
			continue
		}
		if layout == abbrevLayout && !knownZone(ts) {
			name, _ := ts.Zone()
			return time.Time{}, fmt.Errorf("%w: zone %q unknown to local zone %s", ErrTimestamp, name, time.Local)
		}
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrTimestamp, raw)
}

// knownZone rejects the zero-offset zone time.Parse invents for an
// abbreviation the local zone does not define. UTC and GMT[+-h] carry their
// own offset.
func knownZone(ts time.Time) bool {
	loc := ts.Location()
	if loc == time.Local || loc == time.UTC {
		return true
	}
	name, _ := ts.Zone()
	return strings.HasPrefix(name, "GMT")
}

// Time parses the message's own timestamp.
func (m Message) Time() (time.Time, error) {
	return ParseTimestamp(m.Timestamp)
}
