package recurrence

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"habit-planner/internal/calendar"
)

// LegacyRepetition is the older goal "repetition" object kept by rows created
// before rules were unified. It is read only by FromLegacy.
type LegacyRepetition struct {
	IsRecurring    bool       `json:"isRecurring"`
	SelectedOption string     `json:"selectedOption,omitempty"`
	SelectedDate   string     `json:"selectedDate,omitempty"`
	SelectedDays   LegacyDays `json:"selectedDays,omitempty"`
	TimesPerDay    int        `json:"timesPerDay,omitempty"`
	PeriodicValue  int        `json:"periodicValue,omitempty"`
	PeriodicUnit   int        `json:"periodicUnit,omitempty"`
	SelectedMonth  string     `json:"selectedMonth,omitempty"`
	WeekOfMonth    string     `json:"weekOfMonth,omitempty"`
	DayOfWeek      string     `json:"dayOfWeek,omitempty"`
}

// LegacyDays holds weekdays that were stored either as numbers or as names.
type LegacyDays []string

func (d *LegacyDays) UnmarshalJSON(data []byte) error {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode legacy days: %w", err)
	}
	out := make(LegacyDays, 0, len(raw))
	for _, v := range raw {
		switch x := v.(type) {
		case string:
			out = append(out, x)
		case float64:
			out = append(out, strconv.Itoa(int(x)))
		default:
			return fmt.Errorf("decode legacy days: unexpected %T", v)
		}
	}
	*d = out
	return nil
}

var weekdayNames = map[string]time.Weekday{}

func init() {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		weekdayNames[name] = wd
		weekdayNames[name[:3]] = wd
	}
}

// ParseWeekday accepts 0-6 (0 is Sunday) or an English weekday name.
func ParseWeekday(raw string) (time.Weekday, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("weekday %d out of range 0-6", n)
		}
		return time.Weekday(n), nil
	}
	if wd, ok := weekdayNames[s]; ok {
		return wd, nil
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

var monthNames = map[string]time.Month{}

func init() {
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		monthNames[name] = m
		monthNames[name[:3]] = m
	}
}

// parseMonth accepts 1-12 or an English month name.
func parseMonth(raw string) (time.Month, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("month %d out of range 1-12", n)
		}
		return time.Month(n), nil
	}
	if m, ok := monthNames[s]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("unknown month %q", raw)
}

// FromLegacy converts a legacy repetition into a Rule. fallbackStart is used when
// the legacy object carries no selectedDate. The result is normalized and
// validated. Schedules the unified rule cannot express are rejected with
// FieldErrors keyed by the legacy field name.
func FromLegacy(rep LegacyRepetition, fallbackStart calendar.Date) (Rule, error) {
	start := fallbackStart
	if rep.SelectedDate != "" {
		raw := rep.SelectedDate
		if len(raw) > len(calendar.Layout) {
			raw = raw[:len(calendar.Layout)]
		}
		d, err := calendar.Parse(raw)
		if err != nil {
			return Rule{}, FieldErrors{"selectedDate": "is not a valid date"}
		}
		start = d
	}

	rule := Rule{Frequency: OneTime, StartDate: start}
	switch {
	case !rep.IsRecurring:
	case rep.SelectedOption == "Daily":
		days, err := legacyWeekdays(rep.SelectedDays)
		if err != nil {
			return Rule{}, err
		}
		rule.Frequency = EveryDay
		if len(days) > 0 && len(days) < 7 {
			rule.Frequency = DaysOfWeek
			rule.SelectedDays = days
		}
	case rep.SelectedOption == "Weekly", rep.SelectedOption == "Specific Days":
		days, err := legacyWeekdays(rep.SelectedDays)
		if err != nil {
			return Rule{}, err
		}
		rule.Frequency = DaysOfWeek
		rule.SelectedDays = days
		if len(rule.SelectedDays) == 0 {
			rule.SelectedDays = []int{int(start.Weekday())}
		}
	case rep.SelectedOption == "Monthly":
		// only "every month" maps onto a day-of-month rule
		if every := legacyPeriod(rep); every > 1 {
			return Rule{}, FieldErrors{"periodicValue": fmt.Sprintf("every %d months cannot be converted, only monthly", every)}
		}
		rule.Frequency = DaysOfMonth
		rule.SelectedDays = []int{start.MonthDay()}
	case rep.SelectedOption == "Yearly":
		if rep.WeekOfMonth != "" || rep.DayOfWeek != "" {
			return Rule{}, FieldErrors{"weekOfMonth": "a weekday of a week in the month cannot be converted"}
		}
		if rep.SelectedMonth != "" {
			m, err := parseMonth(rep.SelectedMonth)
			if err != nil {
				return Rule{}, FieldErrors{"selectedMonth": err.Error()}
			}
			if m != start.Month {
				return Rule{}, FieldErrors{"selectedMonth": "does not match selectedDate"}
			}
		}
		rule.Frequency = DaysOfYear
		rule.SelectedDays = []int{start.YearDay()}
	case rep.SelectedOption == "Periodic":
		rule.Frequency = Periodic
		rule.Interval = rep.PeriodicValue * max(rep.PeriodicUnit, 1)
	default:
		return Rule{}, FieldErrors{"selectedOption": fmt.Sprintf("unknown legacy option %q", rep.SelectedOption)}
	}

	rule = rule.Normalize()
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

func legacyWeekdays(raw LegacyDays) ([]int, error) {
	days := make([]int, 0, len(raw))
	for _, r := range raw {
		wd, err := ParseWeekday(r)
		if err != nil {
			return nil, FieldErrors{"selectedDays": err.Error()}
		}
		if !slices.Contains(days, int(wd)) {
			days = append(days, int(wd))
		}
	}
	return days, nil
}

// legacyPeriod is periodicValue scaled by periodicUnit. Missing values count as 1.
func legacyPeriod(rep LegacyRepetition) int {
	return max(rep.PeriodicValue, 1) * max(rep.PeriodicUnit, 1)
}
