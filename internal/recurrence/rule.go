// Package recurrence decides whether a scheduled plan or goal is due on a calendar date.
//
// One Rule shape serves every schedulable entity. Rules are checked with Validate
// before they are stored; evaluation never coerces a malformed rule into a
// different meaning.
package recurrence

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"habit-planner/internal/calendar"
)

// Frequency selects how SelectedDays and Interval are interpreted.
type Frequency string

const (
	OneTime     Frequency = "one-time"
	EveryDay    Frequency = "every-day"
	DaysOfWeek  Frequency = "specific-days-week"
	DaysOfMonth Frequency = "specific-days-month"
	DaysOfYear  Frequency = "specific-days-year"
	Periodic    Frequency = "some-days-period"
	Repeat      Frequency = "repeat"
)

// Frequencies lists every accepted frequency in display order.
var Frequencies = []Frequency{OneTime, EveryDay, DaysOfWeek, DaysOfMonth, DaysOfYear, Periodic, Repeat}

// ParseFrequency accepts the canonical names plus "none" and "" for OneTime.
func ParseFrequency(raw string) (Frequency, error) {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case "", "none":
		return OneTime, nil
	default:
		f := Frequency(s)
		if slices.Contains(Frequencies, f) {
			return f, nil
		}
		return "", fmt.Errorf("unknown frequency %q", raw)
	}
}

// dayRange returns the valid SelectedDays bounds for f, ok=false when f takes no days.
func (f Frequency) dayRange() (lo, hi int, ok bool) {
	switch f {
	case DaysOfWeek:
		return 0, 6, true
	case DaysOfMonth:
		return 1, 31, true
	case DaysOfYear:
		return 1, 366, true
	default:
		return 0, 0, false
	}
}

// Rule is the stored scheduling rule of a plan or goal.
// Weekdays use Go numbering, 0 is Sunday.
type Rule struct {
	Frequency    Frequency      `gorm:"type:varchar(32);not null;default:'one-time'" json:"frequency"`
	SelectedDays []int          `gorm:"type:text;serializer:json" json:"selected_days"`
	Interval     int            `gorm:"not null;default:0" json:"interval,omitempty"`
	StartDate    calendar.Date  `gorm:"type:varchar(10);index" json:"start_date"`
	EndDate      *calendar.Date `gorm:"type:varchar(10);index" json:"end_date"`
	IsFlexible   bool           `gorm:"not null;default:false" json:"is_flexible"`
}

// FieldErrors maps a rule field to the reason it was rejected.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "invalid rule: " + strings.Join(parts, "; ")
}

// Validate reports every inconsistency in r. The returned error is FieldErrors.
func (r Rule) Validate() error {
	errs := FieldErrors{}

	if !slices.Contains(Frequencies, r.Frequency) {
		errs["frequency"] = fmt.Sprintf("unknown frequency %q", r.Frequency)
	}
	if r.StartDate.IsZero() {
		errs["start_date"] = "is required"
	} else if !r.StartDate.IsValid() {
		errs["start_date"] = "is not a valid date"
	}
	if r.EndDate != nil && !r.StartDate.IsZero() && r.EndDate.Before(r.StartDate) {
		errs["end_date"] = "must not be before start_date"
	}

	lo, hi, takesDays := r.Frequency.dayRange()
	switch {
	case takesDays:
		for i, d := range r.SelectedDays {
			if d < lo || d > hi {
				errs[fmt.Sprintf("selected_days[%d]", i)] = fmt.Sprintf("out of range %d-%d for %s", lo, hi, r.Frequency)
			}
		}
	case len(r.SelectedDays) > 0:
		errs["selected_days"] = fmt.Sprintf("not used by %s", r.Frequency)
	}

	switch {
	case r.Frequency == Periodic && r.Interval < 1:
		errs["interval"] = "must be at least 1 day for " + string(Periodic)
	case r.Frequency != Periodic && r.Interval != 0:
		errs["interval"] = "only used by " + string(Periodic)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Normalize sorts SelectedDays and drops duplicates.
func (r Rule) Normalize() Rule {
	if len(r.SelectedDays) == 0 {
		r.SelectedDays = nil
		return r
	}
	days := slices.Clone(r.SelectedDays)
	slices.Sort(days)
	r.SelectedDays = slices.Compact(days)
	return r
}

// InRange reports whether d lies within [StartDate, EndDate].
func (r Rule) InRange(d calendar.Date) bool {
	if d.Before(r.StartDate) {
		return false
	}
	if r.EndDate != nil && d.After(*r.EndDate) {
		return false
	}
	return true
}

// Due reports whether an entity with this rule is due on d.
//
// Flexible rules are due every day, before StartDate included. Otherwise the date
// must fall inside the rule's range, StartDate itself is always due, and the
// frequency decides the rest.
func (r Rule) Due(d calendar.Date) bool {
	if r.IsFlexible {
		return true
	}
	if !r.InRange(d) {
		return false
	}
	if d.Equal(r.StartDate) {
		return true
	}

	switch r.Frequency {
	case EveryDay:
		return true
	case DaysOfWeek:
		return slices.Contains(r.SelectedDays, int(d.Weekday()))
	case DaysOfMonth:
		return slices.Contains(r.SelectedDays, d.MonthDay())
	case DaysOfYear:
		return slices.Contains(r.SelectedDays, d.YearDay())
	case Periodic:
		if r.Interval < 1 {
			return false
		}
		return d.DaysSince(r.StartDate)%r.Interval == 0
	default:
		// OneTime and Repeat fire on StartDate only.
		return false
	}
}

// IsDue is the function form of Rule.Due.
func IsDue(r Rule, d calendar.Date) bool {
	return r.Due(d)
}

// NextDue returns the first due date in [from, from+horizon).
func (r Rule) NextDue(from calendar.Date, horizon int) (calendar.Date, bool) {
	if !r.IsFlexible && from.Before(r.StartDate) {
		from = r.StartDate
	}
	for i := 0; i < horizon; i++ {
		d := from.AddDays(i)
		if r.EndDate != nil && !r.IsFlexible && d.After(*r.EndDate) {
			break
		}
		if r.Due(d) {
			return d, true
		}
	}
	return calendar.Date{}, false
}
