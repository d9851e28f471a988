package booking

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnrecognizedTime is returned when a time token matches neither the
// 24-hour nor the 12-hour grammar.
var ErrUnrecognizedTime = errors.New("booking: unrecognized time format")

// TimeFormat tags a time string with the grammar it was written in. Time
// strings that cross a component boundary travel with their tag so the
// receiver never has to re-infer the format from content.
type TimeFormat int

const (
	FormatUnknown TimeFormat = iota
	Format24h                // "14:30"
	Format12h                // "2:30 PM"
)

func (f TimeFormat) String() string {
	switch f {
	case Format24h:
		return "24h"
	case Format12h:
		return "12h"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (f TimeFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *TimeFormat) UnmarshalText(b []byte) error {
	switch string(b) {
	case "24h":
		*f = Format24h
	case "12h":
		*f = Format12h
	case "", "unknown":
		*f = FormatUnknown
	default:
		return fmt.Errorf("booking: unknown time format tag %q", string(b))
	}
	return nil
}

const minutesPerDay = 24 * 60

var (
	pattern24h = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)(?::[0-5]\d)?$`)
	pattern12h = regexp.MustCompile(`^(0?[1-9]|1[0-2]):([0-5]\d) ([AaPp][Mm])$`)
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from an hour in 0..23 and a minute in 0..59.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d out of range", ErrUnrecognizedTime, hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// Hour returns the hour in 0..23.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute in 0..59.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Format24 renders the zero-padded 24-hour token used on the wire.
func (t TimeOfDay) Format24() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Format12 renders the human 12-hour form: 0 -> 12 AM, 12 -> 12 PM,
// 13..23 -> h-12 PM. The hour is not padded, minutes always are.
func (t TimeOfDay) Format12() string {
	h := t.Hour()
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	display := h % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, t.Minute(), period)
}

// Format renders t in the requested grammar.
func (t TimeOfDay) Format(f TimeFormat) string {
	if f == Format12h {
		return t.Format12()
	}
	return t.Format24()
}

// AddMinutes returns t advanced by d minutes. Results wrap past midnight:
// hours are taken mod 24 and minutes mod 60.
func (t TimeOfDay) AddMinutes(d int) TimeOfDay {
	total := ((int(t)+d)%minutesPerDay + minutesPerDay) % minutesPerDay
	hours := (total / 60) % 24
	minutes := total % 60
	return TimeOfDay(hours*60 + minutes)
}

// ParseTimeOfDay parses s using the grammar named by format.
func ParseTimeOfDay(s string, format TimeFormat) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	switch format {
	case Format24h:
		m := pattern24h.FindStringSubmatch(s)
		if m == nil {
			return 0, fmt.Errorf("%w: %q is not HH:MM", ErrUnrecognizedTime, s)
		}
		h, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return NewTimeOfDay(h, minute)
	case Format12h:
		m := pattern12h.FindStringSubmatch(s)
		if m == nil {
			return 0, fmt.Errorf("%w: %q is not H:MM AM/PM", ErrUnrecognizedTime, s)
		}
		h, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		pm := strings.EqualFold(m[3], "PM")
		switch {
		case h == 12 && !pm:
			h = 0
		case h != 12 && pm:
			h += 12
		}
		return NewTimeOfDay(h, minute)
	default:
		return 0, fmt.Errorf("%w: %q has no format tag", ErrUnrecognizedTime, s)
	}
}

// DetectTimeFormat classifies an untagged token by full-grammar match. It is
// only meant for the boundary with systems that send untagged times; the
// result should be carried as a TaggedTime from then on.
func DetectTimeFormat(s string) TimeFormat {
	s = strings.TrimSpace(s)
	switch {
	case pattern24h.MatchString(s):
		return Format24h
	case pattern12h.MatchString(s):
		return Format12h
	default:
		return FormatUnknown
	}
}

// TaggedTime is a time string paired with its grammar.
type TaggedTime struct {
	Value  string     `json:"value"`
	Format TimeFormat `json:"format"`
}

// Tag classifies an untagged token once and returns it tagged.
func Tag(s string) TaggedTime {
	return TaggedTime{Value: strings.TrimSpace(s), Format: DetectTimeFormat(s)}
}

// Tagged24 wraps a 24-hour token.
func Tagged24(t TimeOfDay) TaggedTime {
	return TaggedTime{Value: t.Format24(), Format: Format24h}
}

// Parse parses the value using its tag.
func (tt TaggedTime) Parse() (TimeOfDay, error) {
	return ParseTimeOfDay(tt.Value, tt.Format)
}

// IsZero reports whether no time was set.
func (tt TaggedTime) IsZero() bool {
	return tt.Value == ""
}
