package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habit-planner/internal/calendar"
)

func day(y int, m time.Month, d int) calendar.Date {
	return calendar.New(y, m, d)
}

func ptr(d calendar.Date) *calendar.Date {
	return &d
}

func TestFlexibleIsAnOverride(t *testing.T) {
	rule := Rule{
		Frequency:    DaysOfWeek,
		SelectedDays: []int{1},
		StartDate:    day(2024, time.March, 1),
		EndDate:      ptr(day(2024, time.March, 10)),
		IsFlexible:   true,
	}

	for _, d := range []calendar.Date{
		day(2024, time.February, 1), // before start
		day(2024, time.March, 5),    // Tuesday, not selected
		day(2024, time.April, 1),    // after end
	} {
		assert.True(t, rule.Due(d), "flexible rule must be due on %s", d)
	}
}

func TestFlexibleIsNotAFallback(t *testing.T) {
	// A fallback reading would make a non-flexible rule due when its pattern misses.
	rule := Rule{Frequency: DaysOfWeek, SelectedDays: []int{1}, StartDate: day(2024, time.January, 1)}
	assert.False(t, rule.Due(day(2024, time.January, 2)))

	// And a flexible rule must not be limited to days where the pattern misses.
	rule.IsFlexible = true
	assert.True(t, rule.Due(day(2024, time.January, 8)))
	assert.True(t, rule.Due(day(2024, time.January, 9)))
}

func TestStartDateAlwaysDue(t *testing.T) {
	start := day(2024, time.January, 2) // Tuesday, day 2
	rules := []Rule{
		{Frequency: OneTime},
		{Frequency: EveryDay},
		{Frequency: DaysOfWeek, SelectedDays: []int{0}},
		{Frequency: DaysOfWeek},
		{Frequency: DaysOfMonth, SelectedDays: []int{15}},
		{Frequency: DaysOfYear, SelectedDays: []int{200}},
		{Frequency: Periodic, Interval: 10},
		{Frequency: Repeat},
	}
	for _, r := range rules {
		r.StartDate = start
		assert.True(t, r.Due(start), "frequency %s", r.Frequency)
	}
}

func TestDue(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		date calendar.Date
		want bool
	}{
		{
			name: "weekday selected monday",
			rule: Rule{Frequency: DaysOfWeek, SelectedDays: []int{1, 3, 5}, StartDate: day(2023, time.December, 1)},
			date: day(2024, time.January, 1),
			want: true,
		},
		{
			name: "weekday not selected tuesday",
			rule: Rule{Frequency: DaysOfWeek, SelectedDays: []int{1, 3, 5}, StartDate: day(2023, time.December, 1)},
			date: day(2024, time.January, 2),
			want: false,
		},
		{
			name: "sunday is zero",
			rule: Rule{Frequency: DaysOfWeek, SelectedDays: []int{0}, StartDate: day(2023, time.December, 1)},
			date: day(2024, time.January, 7),
			want: true,
		},
		{
			name: "day 31 skipped in 30 day month",
			rule: Rule{Frequency: DaysOfMonth, SelectedDays: []int{31}, StartDate: day(2024, time.January, 1)},
			date: day(2024, time.April, 30),
			want: false,
		},
		{
			name: "day 31 in 31 day month",
			rule: Rule{Frequency: DaysOfMonth, SelectedDays: []int{31}, StartDate: day(2024, time.January, 1)},
			date: day(2024, time.May, 31),
			want: true,
		},
		{
			name: "day 366 in leap year",
			rule: Rule{Frequency: DaysOfYear, SelectedDays: []int{366}, StartDate: day(2023, time.January, 1)},
			date: day(2024, time.December, 31),
			want: true,
		},
		{
			name: "day 366 never in common year",
			rule: Rule{Frequency: DaysOfYear, SelectedDays: []int{366}, StartDate: day(2022, time.January, 1)},
			date: day(2023, time.December, 31),
			want: false,
		},
		{
			name: "empty selected days never match by pattern",
			rule: Rule{Frequency: DaysOfWeek, StartDate: day(2024, time.January, 1)},
			date: day(2024, time.January, 8),
			want: false,
		},
		{
			name: "every day",
			rule: Rule{Frequency: EveryDay, StartDate: day(2024, time.January, 1)},
			date: day(2024, time.June, 17),
			want: true,
		},
		{
			name: "periodic on interval",
			rule: Rule{Frequency: Periodic, Interval: 3, StartDate: day(2024, time.February, 27)},
			date: day(2024, time.March, 4),
			want: true,
		},
		{
			name: "periodic off interval",
			rule: Rule{Frequency: Periodic, Interval: 3, StartDate: day(2024, time.February, 27)},
			date: day(2024, time.March, 3),
			want: false,
		},
		{
			name: "repeat only on start date",
			rule: Rule{Frequency: Repeat, StartDate: day(2024, time.January, 1)},
			date: day(2024, time.January, 2),
			want: false,
		},
		{
			name: "one time only on start date",
			rule: Rule{Frequency: OneTime, StartDate: day(2024, time.January, 1)},
			date: day(2025, time.January, 1),
			want: false,
		},
		{
			name: "before start",
			rule: Rule{Frequency: EveryDay, StartDate: day(2024, time.January, 10)},
			date: day(2024, time.January, 9),
			want: false,
		},
		{
			name: "after end",
			rule: Rule{Frequency: EveryDay, StartDate: day(2024, time.January, 1), EndDate: ptr(day(2024, time.January, 5))},
			date: day(2024, time.January, 6),
			want: false,
		},
		{
			name: "end date inclusive",
			rule: Rule{Frequency: EveryDay, StartDate: day(2024, time.January, 1), EndDate: ptr(day(2024, time.January, 5))},
			date: day(2024, time.January, 5),
			want: true,
		},
		{
			name: "end equals start single day",
			rule: Rule{Frequency: EveryDay, StartDate: day(2024, time.January, 1), EndDate: ptr(day(2024, time.January, 1))},
			date: day(2024, time.January, 2),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDue(tt.rule, tt.date))
		})
	}
}

func TestEndEqualsStartIsDueOnThatDay(t *testing.T) {
	d := day(2024, time.January, 1)
	rule := Rule{Frequency: DaysOfWeek, SelectedDays: []int{3}, StartDate: d, EndDate: ptr(d)}
	assert.True(t, rule.Due(d))
}

func TestValidate(t *testing.T) {
	start := day(2024, time.January, 1)

	tests := []struct {
		name   string
		rule   Rule
		fields []string
	}{
		{name: "valid weekly", rule: Rule{Frequency: DaysOfWeek, SelectedDays: []int{0, 6}, StartDate: start}},
		{name: "valid periodic", rule: Rule{Frequency: Periodic, Interval: 2, StartDate: start}},
		{name: "unknown frequency", rule: Rule{Frequency: "hourly", StartDate: start}, fields: []string{"frequency"}},
		{name: "missing start", rule: Rule{Frequency: EveryDay}, fields: []string{"start_date"}},
		{name: "weekday out of unit", rule: Rule{Frequency: DaysOfWeek, SelectedDays: []int{1, 7}, StartDate: start}, fields: []string{"selected_days[1]"}},
		{name: "month day zero", rule: Rule{Frequency: DaysOfMonth, SelectedDays: []int{0}, StartDate: start}, fields: []string{"selected_days[0]"}},
		{name: "year day 367", rule: Rule{Frequency: DaysOfYear, SelectedDays: []int{367}, StartDate: start}, fields: []string{"selected_days[0]"}},
		{name: "days on every-day", rule: Rule{Frequency: EveryDay, SelectedDays: []int{1}, StartDate: start}, fields: []string{"selected_days"}},
		{name: "periodic without interval", rule: Rule{Frequency: Periodic, StartDate: start}, fields: []string{"interval"}},
		{name: "interval on weekly", rule: Rule{Frequency: DaysOfWeek, Interval: 3, StartDate: start}, fields: []string{"interval"}},
		{name: "end before start", rule: Rule{Frequency: EveryDay, StartDate: start, EndDate: ptr(start.AddDays(-1))}, fields: []string{"end_date"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}
			var fe FieldErrors
			require.ErrorAs(t, err, &fe)
			for _, f := range tt.fields {
				assert.Contains(t, fe, f)
			}
		})
	}
}

func TestParseFrequency(t *testing.T) {
	f, err := ParseFrequency("none")
	require.NoError(t, err)
	assert.Equal(t, OneTime, f)

	f, err = ParseFrequency("")
	require.NoError(t, err)
	assert.Equal(t, OneTime, f)

	f, err = ParseFrequency("Specific-Days-Week")
	require.NoError(t, err)
	assert.Equal(t, DaysOfWeek, f)

	_, err = ParseFrequency("fortnightly")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	r := Rule{SelectedDays: []int{5, 1, 5, 3}}.Normalize()
	assert.Equal(t, []int{1, 3, 5}, r.SelectedDays)
	assert.Nil(t, Rule{SelectedDays: []int{}}.Normalize().SelectedDays)
}

func TestNextDue(t *testing.T) {
	rule := Rule{Frequency: DaysOfWeek, SelectedDays: []int{5}, StartDate: day(2024, time.January, 1)}

	next, ok := rule.NextDue(day(2024, time.January, 2), 14)
	require.True(t, ok)
	assert.Equal(t, day(2024, time.January, 5), next)

	next, ok = rule.NextDue(day(2023, time.December, 1), 14)
	require.True(t, ok)
	assert.Equal(t, day(2024, time.January, 1), next)

	ended := Rule{Frequency: EveryDay, StartDate: day(2024, time.January, 1), EndDate: ptr(day(2024, time.January, 3))}
	_, ok = ended.NextDue(day(2024, time.January, 4), 30)
	assert.False(t, ok)
}
