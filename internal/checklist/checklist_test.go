package checklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollUp(t *testing.T) {
	ids := []string{"a", "b", "c"}

	tests := []struct {
		name        string
		cond        SuccessCondition
		n           int
		ids         []string
		completions map[string]bool
		want        bool
	}{
		{name: "all complete", cond: All, ids: ids, completions: map[string]bool{"a": true, "b": true, "c": true}, want: true},
		{name: "all missing one", cond: All, ids: ids, completions: map[string]bool{"a": true, "b": true}, want: false},
		{name: "any one", cond: Any, ids: ids, completions: map[string]bool{"c": true}, want: true},
		{name: "any none", cond: Any, ids: ids, completions: map[string]bool{"a": false}, want: false},
		{name: "at least two of three", cond: AtLeast, n: 2, ids: ids, completions: map[string]bool{"a": true, "b": true, "c": false}, want: true},
		{name: "at least two with one", cond: AtLeast, n: 2, ids: []string{"a"}, completions: map[string]bool{"a": true}, want: false},
		{name: "at least counts more than n", cond: AtLeast, n: 1, ids: ids, completions: map[string]bool{"a": true, "b": true}, want: true},
		{name: "orphan ids ignored", cond: All, ids: []string{"a"}, completions: map[string]bool{"a": true, "gone": false}, want: true},
		{name: "orphan true does not count", cond: AtLeast, n: 2, ids: []string{"a", "b"}, completions: map[string]bool{"a": true, "gone": true}, want: false},
		{name: "nil completions", cond: Any, ids: ids, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RollUp(tt.cond, tt.n, tt.ids, tt.completions))
		})
	}
}

func TestParseCondition(t *testing.T) {
	cond, n, err := ParseCondition("7", 0)
	require.NoError(t, err)
	assert.Equal(t, AtLeast, cond)
	assert.Equal(t, 7, n)

	cond, n, err = ParseCondition("number", 3)
	require.NoError(t, err)
	assert.Equal(t, AtLeast, cond)
	assert.Equal(t, 3, n)

	cond, _, err = ParseCondition("", 0)
	require.NoError(t, err)
	assert.Equal(t, All, cond)

	_, _, err = ParseCondition("number", 0)
	assert.Error(t, err)

	_, _, err = ParseCondition("11", 0)
	assert.Error(t, err)

	_, _, err = ParseCondition("most", 0)
	assert.Error(t, err)
}

func TestAddRemove(t *testing.T) {
	var c Checklist
	first := c.Add("stretch", "yes-no")
	second := c.Add("run", "")

	require.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []string{first.ID, second.ID}, c.IDs())
	assert.True(t, c.Has(second.ID))

	assert.True(t, c.Remove(first.ID))
	assert.False(t, c.Remove(first.ID))
	assert.Equal(t, []string{second.ID}, c.IDs())
}

func TestNormalize(t *testing.T) {
	c, err := Checklist{
		Items:            []Item{{Text: " water "}, {ID: "fixed", Text: "read"}},
		SuccessCondition: "2",
	}.Normalize()
	require.NoError(t, err)

	assert.NotEmpty(t, c.Items[0].ID)
	assert.Equal(t, "water", c.Items[0].Text)
	assert.Equal(t, "fixed", c.Items[1].ID)
	assert.Equal(t, AtLeast, c.SuccessCondition)
	assert.Equal(t, 2, c.Number)

	_, err = Checklist{Items: []Item{{ID: "x"}, {ID: "x"}}}.Normalize()
	assert.Error(t, err)
}
