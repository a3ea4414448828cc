package calendar

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

// DayLayout is the format of a day-key.
const DayLayout = "2006-01-02"

// Calendar resolves civil days in one fixed reference timezone.
// Streak bookkeeping compares day-keys, never UTC instants.
type Calendar interface {
	DayKey(t time.Time) string
	DayDiff(from, to string) (int, error)
	EndOfDay(day string) (time.Time, error)
}

// Fixed is a Calendar pinned to a single location.
type Fixed struct {
	loc *time.Location
}

// New loads the named IANA timezone, e.g. "Asia/Ho_Chi_Minh".
func New(timezone string) (*Fixed, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", timezone, err)
	}
	return &Fixed{loc: loc}, nil
}

// NewWithLocation wraps an already resolved location.
func NewWithLocation(loc *time.Location) *Fixed {
	return &Fixed{loc: loc}
}

func (c *Fixed) Location() *time.Location {
	return c.loc
}

// DayKey returns the civil date of t in the reference timezone.
func (c *Fixed) DayKey(t time.Time) string {
	return t.In(c.loc).Format(DayLayout)
}

// DayDiff returns the number of calendar days from one key to another.
// Keys are compared as plain dates so DST transitions never skew the count.
func (c *Fixed) DayDiff(from, to string) (int, error) {
	a, err := time.Parse(DayLayout, from)
	if err != nil {
		return 0, fmt.Errorf("invalid day key %q: %w", from, err)
	}
	b, err := time.Parse(DayLayout, to)
	if err != nil {
		return 0, fmt.Errorf("invalid day key %q: %w", to, err)
	}
	return int(b.Sub(a).Hours() / 24), nil
}

// EndOfDay returns the last instant of day in the reference timezone.
func (c *Fixed) EndOfDay(day string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, day, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", day, err)
	}
	return now.With(t).EndOfDay(), nil
}
