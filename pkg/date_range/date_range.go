package date_range

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the calendar-date format used for every stored and exchanged date.
const Layout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")
var ErrInvalidRange = errors.New("invalid date range")
var ErrUnknownPreset = errors.New("unknown date range preset")
var ErrCustomRangeRequired = errors.New("custom range requires explicit start and end dates")

type Preset string

const (
	ThisMonth Preset = "thisMonth"
	LastMonth Preset = "lastMonth"
	Custom    Preset = "custom"
)

// Range is a closed interval of calendar dates, both ends inclusive.
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ParseDate parses a YYYY-MM-DD string. Anything that does not round-trip to the
// same string (e.g. "2024-2-1") is rejected.
func ParseDate(date string) (time.Time, error) {
	parsed, err := time.Parse(Layout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if parsed.Format(Layout) != date {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return parsed, nil
}

// FormatDate renders the calendar date of t in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(Layout)
}

// ValidateRange checks that both bounds are valid dates and start is not after end.
func ValidateRange(start, end string) error {
	startDate, err := ParseDate(start)
	if err != nil {
		return err
	}
	endDate, err := ParseDate(end)
	if err != nil {
		return err
	}
	if startDate.After(endDate) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start, end)
	}
	return nil
}

// NewCustomRange builds a caller-supplied range, rejecting unparseable or reversed bounds.
func NewCustomRange(start, end string) (Range, error) {
	if err := ValidateRange(start, end); err != nil {
		return Range{}, err
	}
	return Range{Start: start, End: end}, nil
}

// Resolve turns a symbolic preset into concrete bounds relative to now.
// Custom ranges bypass this and go through NewCustomRange.
func Resolve(preset Preset, now time.Time) (Range, error) {
	switch preset {
	case ThisMonth:
		return monthOf(now), nil
	case LastMonth:
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return monthOf(firstOfMonth.AddDate(0, -1, 0)), nil
	case Custom:
		return Range{}, ErrCustomRangeRequired
	default:
		return Range{}, fmt.Errorf("%w: %q", ErrUnknownPreset, preset)
	}
}

// ParsePreset maps the wire name of a preset to a Preset.
func ParsePreset(value string) (Preset, error) {
	switch Preset(value) {
	case ThisMonth, LastMonth, Custom:
		return Preset(value), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPreset, value)
	}
}

func monthOf(t time.Time) Range {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1)
	return Range{Start: FormatDate(first), End: FormatDate(last)}
}

// Days lists every calendar date in r, ascending. r must already be valid.
func (r Range) Days() ([]string, error) {
	start, err := ParseDate(r.Start)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(r.End)
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, r.Start, r.End)
	}
	days := make([]string, 0, int(end.Sub(start).Hours()/24)+1)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		days = append(days, FormatDate(day))
	}
	return days, nil
}
