package backtest

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"time"
)

const readDateFormat = "2006-1-2" // Permissive read date format (allows single-digit month/day).

// DateFormat is the format used to represent dates as strings in ISO-8601 format.
const DateFormat = "2006-01-02" // write date format

// Date represents a trading date with day-level granularity.
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date for the given year, month, and day.
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// time returns a time.Time that is a canonical representation of that day (at midnight UTC).
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Year returns the year of the date.
func (d Date) Year() int { return d.y }

// Month returns the month of the date.
func (d Date) Month() time.Month { return d.time().Month() }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// IsZero returns true if the date is the zero value.
func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

// Before reports whether the day d is before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether the day d is after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// Compare returns -1, 0 or 1 depending on whether d is before, equal to or after x.
func (d Date) Compare(x Date) int { return d.time().Compare(x.time()) }

// Add returns a new Date with the given number of days added.
func (d Date) Add(i int) Date { return NewDate(d.y, d.m, d.d+i) }

// String formats the date in its standard ISO-8601 format.
func (d Date) String() string { return d.time().Format(DateFormat) }

// ParseDate parses a Date from a string. It is lenient and accepts formats like "2025-7-1".
func ParseDate(str string) (Date, error) {
	on, err := time.Parse(readDateFormat, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, readDateFormat, err)
	}
	return NewDate(on.Date()), nil
}

// MustParseDate is like ParseDate but panics on error.
func MustParseDate(str string) Date {
	d, err := ParseDate(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// UnmarshalJSON parses a date from its json string representation.
func (d *Date) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	p, err := ParseDate(str)
	if err != nil {
		return err
	}
	*d = p
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	str := d.String()
	return json.Marshal(&str)
}

// check that a Date pointer is a valid json marshall/unmarshaller type.
var _ json.Marshaler = (*Date)(nil)
var _ json.Unmarshaler = (*Date)(nil)

// Calendar is the ordered, deduplicated sequence of trading dates that defines
// a simulation run. The last date of the calendar is special: it forces a
// final rebalance.
type Calendar struct {
	days []Date
}

// NewCalendar creates a calendar from the given dates, sorting and
// deduplicating them.
func NewCalendar(days ...Date) *Calendar {
	sorted := slices.Clone(days)
	slices.SortFunc(sorted, Date.Compare)
	sorted = slices.Compact(sorted)
	return &Calendar{days: sorted}
}

// Len returns the number of trading dates in the calendar.
func (c *Calendar) Len() int { return len(c.days) }

// At returns the i-th trading date.
func (c *Calendar) At(i int) Date { return c.days[i] }

// Last returns the final trading date of the calendar.
func (c *Calendar) Last() Date { return c.days[len(c.days)-1] }

// Days returns an iterator over (index, date) pairs in chronological order.
func (c *Calendar) Days() iter.Seq2[int, Date] {
	return func(yield func(int, Date) bool) {
		for i, on := range c.days {
			if !yield(i, on) {
				return
			}
		}
	}
}

// FirstOfYear reports whether 'on' is the first January trading date of its
// year in this calendar. Used by the annual reset policy.
func (c *Calendar) FirstOfYear(on Date) bool {
	if on.Month() != time.January {
		return false
	}
	for _, d := range c.days {
		if d.Year() == on.Year() {
			return d == on
		}
	}
	return false
}

// Series stores a chronological series of float values, each associated with a
// date. Dates are unique and the series is always sorted. It holds the
// benchmark index levels.
type Series struct {
	days   []Date
	levels []float64
}

// Len returns the number of points in the series.
func (s *Series) Len() int { return len(s.days) }

// Append adds a point to the series. An existing value at that date is
// overwritten.
func (s *Series) Append(on Date, level float64) *Series {
	i, found := slices.BinarySearchFunc(s.days, on, Date.Compare)
	if found {
		s.levels[i] = level
		return s
	}
	s.days = slices.Insert(s.days, i, on)
	s.levels = slices.Insert(s.levels, i, level)
	return s
}

// Get returns the value at 'day' and true, or zero and false.
func (s *Series) Get(day Date) (float64, bool) {
	i, found := slices.BinarySearchFunc(s.days, day, Date.Compare)
	if found {
		return s.levels[i], true
	}
	return 0, false
}

// AsOf returns the value on a given day, or the most recent value before it.
func (s *Series) AsOf(day Date) (float64, bool) {
	i, found := slices.BinarySearchFunc(s.days, day, Date.Compare)
	if found {
		return s.levels[i], true
	}
	if i == 0 {
		return 0, false // No date on or before the given day.
	}
	return s.levels[i-1], true
}

// Values returns an iterator over all date/value pairs in chronological order.
func (s *Series) Values() iter.Seq2[Date, float64] {
	return func(yield func(Date, float64) bool) {
		for i, on := range s.days {
			if !yield(on, s.levels[i]) {
				return
			}
		}
	}
}
