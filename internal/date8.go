package internal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chrisconley/couponfeat/specs"
)

const secondsPerDay = 24 * 60 * 60

// Date8 is a calendar date encoded as YYYYMMDD.
type Date8 struct {
	value time.Time
}

// ParseDate8 parses an 8-digit YYYYMMDD value. A trailing ".0", left behind
// when a date column passed through a float-typed CSV writer, is accepted.
func ParseDate8(s string) (Date8, error) {
	digits := strings.TrimSuffix(strings.TrimSpace(s), ".0")
	if len(digits) != 8 {
		return Date8{}, fmt.Errorf("%w: %q is not YYYYMMDD", ErrMalformedDate, s)
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return Date8{}, fmt.Errorf("%w: %q is not YYYYMMDD", ErrMalformedDate, s)
	}

	year, month, day := n/10000, (n/100)%100, n%100
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (Feb 30 -> Mar 1); reject instead.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Date8{}, fmt.Errorf("%w: %q is not a calendar date", ErrMalformedDate, s)
	}
	return Date8{value: t}, nil
}

// parseOptionalDate8 parses a nullable raw date, mapping missing markers to nil.
func parseOptionalDate8(raw *string) (*Date8, error) {
	if raw == nil || specs.IsMissing(*raw) {
		return nil, nil
	}
	d, err := ParseDate8(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (d Date8) Year() int { return d.value.Year() }

func (d Date8) Month() int { return int(d.value.Month()) }

func (d Date8) Day() int { return d.value.Day() }

func (d Date8) String() string {
	return d.value.Format("20060102")
}

// DayGap returns used minus received in whole calendar days, or -1 when either
// date is missing. -1 is a sentinel, not a gap: callers must check for missing
// dates before treating the result as a distance.
func DayGap(received, used *Date8) int {
	if received == nil || used == nil {
		return -1
	}
	// Both values are UTC midnights, so the difference is an exact number of days.
	return int((used.value.Unix() - received.value.Unix()) / secondsPerDay)
}
