// Package calendar provides a day-precision date without time of day or zone.
package calendar

import (
	"database/sql/driver"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Layout is the canonical text form of a Date.
const Layout = "2006-01-02"

// Date is a calendar date. It is stored as "YYYY-MM-DD" text and marshals to JSON the same way.
type Date struct {
	civil.Date
}

func New(year int, month time.Month, day int) Date {
	return Date{civil.Date{Year: year, Month: month, Day: day}}
}

// Parse reads a "YYYY-MM-DD" string.
func Parse(s string) (Date, error) {
	d, err := civil.ParseDate(s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{d}, nil
}

// FromTime returns the date of t in t's location.
func FromTime(t time.Time) Date {
	return Date{civil.DateOf(t)}
}

// Today returns the current date in loc.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return FromTime(time.Now().In(loc))
}

func (d Date) IsZero() bool {
	return d.Date == civil.Date{}
}

// Weekday uses Go numbering: 0 is Sunday.
func (d Date) Weekday() time.Weekday {
	return d.In(time.UTC).Weekday()
}

// MonthDay is the day of month, 1-31.
func (d Date) MonthDay() int {
	return d.Day
}

// YearDay is the day of year, 1-366.
func (d Date) YearDay() int {
	return d.In(time.UTC).YearDay()
}

func (d Date) AddDays(n int) Date {
	return Date{d.Date.AddDays(n)}
}

// DaysSince returns the signed number of days from s to d.
func (d Date) DaysSince(s Date) int {
	return d.Date.DaysSince(s.Date)
}

func (d Date) Before(o Date) bool {
	return d.Date.Before(o.Date)
}

func (d Date) After(o Date) bool {
	return d.Date.After(o.Date)
}

func (d Date) Equal(o Date) bool {
	return d.Date == o.Date
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case time.Time:
		*d = Date{civil.DateOf(v)}
		return nil
	default:
		return fmt.Errorf("scan date: unsupported type %T", value)
	}
}

func (d *Date) scanString(s string) error {
	if s == "" {
		*d = Date{}
		return nil
	}
	if len(s) > len(Layout) {
		s = s[:len(Layout)]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
