package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a validity bound. It is either a calendar day (stored as "YYYY-MM-DD",
// covering the whole day in UTC) or an exact RFC3339 instant.
type Date struct {
	Time    time.Time
	DayOnly bool
}

// NewDay returns a whole-day bound for the given calendar date.
func NewDay(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), DayOnly: true}
}

// NewInstant returns an exact bound.
func NewInstant(t time.Time) Date {
	return Date{Time: t}
}

// IsZero reports whether the bound is unset.
func (d Date) IsZero() bool {
	return d.Time.IsZero()
}

// Start is the first instant covered by the bound.
func (d Date) Start() time.Time {
	return d.Time
}

// End is the last instant covered by the bound.
func (d Date) End() time.Time {
	if d.DayOnly {
		return d.Time.Add(24*time.Hour - time.Nanosecond)
	}
	return d.Time
}

// ParseDate accepts either "YYYY-MM-DD" or RFC3339.
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t, DayOnly: true}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC3339", s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	if d.DayOnly {
		return d.Time.Format(dateLayout)
	}
	return d.Time.Format(time.RFC3339)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
