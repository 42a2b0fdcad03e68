package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	d, err := Parse("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())
	assert.Equal(t, 60, d.YearDay())
	assert.Equal(t, time.Thursday, d.Weekday())

	_, err = Parse("2024-13-01")
	assert.Error(t, err)
}

func TestDayArithmetic(t *testing.T) {
	start := New(2023, time.December, 30)
	end := start.AddDays(3)
	assert.Equal(t, New(2024, time.January, 2), end)
	assert.Equal(t, 3, end.DaysSince(start))
	assert.Equal(t, -3, start.DaysSince(end))
	assert.True(t, start.Before(end))
	assert.True(t, end.After(start))
	assert.True(t, end.Equal(New(2024, time.January, 2)))
}

func TestYearDayLeapYear(t *testing.T) {
	assert.Equal(t, 366, New(2024, time.December, 31).YearDay())
	assert.Equal(t, 365, New(2023, time.December, 31).YearDay())
}

func TestScanValue(t *testing.T) {
	d := New(2024, time.March, 5)
	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", v)

	var scanned Date
	require.NoError(t, scanned.Scan("2024-03-05"))
	assert.Equal(t, d, scanned)

	require.NoError(t, scanned.Scan([]byte("2024-03-06")))
	assert.Equal(t, New(2024, time.March, 6), scanned)

	require.NoError(t, scanned.Scan(time.Date(2024, time.March, 7, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, New(2024, time.March, 7), scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.True(t, scanned.IsZero())

	zero, err := Date{}.Value()
	require.NoError(t, err)
	assert.Nil(t, zero)

	assert.Error(t, scanned.Scan(42))
}

func TestJSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		On Date `json:"on"`
	}{On: New(2024, time.May, 1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"on":"2024-05-01"}`, string(payload))

	var decoded struct {
		On Date `json:"on"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"on":"2024-06-30"}`), &decoded))
	assert.Equal(t, New(2024, time.June, 30), decoded.On)
}
