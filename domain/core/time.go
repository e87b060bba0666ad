package core

import (
	"fmt"
	"time"
)

// Timestamp represents a point in time with timezone awareness
type Timestamp time.Time

// NewTimestamp creates a new timestamp from time.Time
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t)
}

// Now returns the current timestamp
func Now() Timestamp {
	return Timestamp(time.Now())
}

// Time returns the underlying time.Time
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// IsZero checks if the timestamp is zero
func (t Timestamp) IsZero() bool {
	return time.Time(t).IsZero()
}

// Before returns true if t is before u
func (t Timestamp) Before(u Timestamp) bool {
	return time.Time(t).Before(time.Time(u))
}

// After returns true if t is after u
func (t Timestamp) After(u Timestamp) bool {
	return time.Time(t).After(time.Time(u))
}

// Equal reports whether t and u denote the same instant
func (t Timestamp) Equal(u Timestamp) bool {
	return time.Time(t).Equal(time.Time(u))
}

// JSON marshaling for Timestamp
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return time.Time(t).MarshalJSON()
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var tm time.Time
	if err := tm.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = Timestamp(tm)
	return nil
}

// String returns the RFC3339 representation
func (t Timestamp) String() string { return t.Time().Format(time.RFC3339) }

// YearWeek identifies one ISO-8601 calendar week.
type YearWeek struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// WeekOf returns the ISO year and week containing t.
func WeekOf(t time.Time) YearWeek {
	y, w := t.ISOWeek()
	return YearWeek{Year: y, Week: w}
}

// Before orders YearWeeks chronologically.
func (yw YearWeek) Before(other YearWeek) bool {
	if yw.Year != other.Year {
		return yw.Year < other.Year
	}
	return yw.Week < other.Week
}

// String returns the compact ISO form, e.g. "2025-W07".
func (yw YearWeek) String() string {
	return fmt.Sprintf("%04d-W%02d", yw.Year, yw.Week)
}
