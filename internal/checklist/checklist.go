// Package checklist holds checklist definitions and the roll-up of per-item completion.
package checklist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// SuccessCondition decides when a set of item completions counts as done.
type SuccessCondition string

const (
	All SuccessCondition = "all"
	Any SuccessCondition = "any"
	// AtLeast is satisfied when N or more items are complete. Stored as "number".
	AtLeast SuccessCondition = "number"
)

const maxLegacyCount = 10

// ParseCondition accepts "all", "any", "number" with n, and the legacy "1".."10" forms.
func ParseCondition(raw string, n int) (SuccessCondition, int, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch SuccessCondition(s) {
	case "", All:
		return All, 0, nil
	case Any:
		return Any, 0, nil
	case AtLeast:
		if n < 1 {
			return "", 0, fmt.Errorf("number must be at least 1")
		}
		return AtLeast, n, nil
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 1 && v <= maxLegacyCount {
		return AtLeast, v, nil
	}
	return "", 0, fmt.Errorf("unknown success condition %q", raw)
}

// Item is one checklist entry.
type Item struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`
	EvaluationType   string   `json:"evaluation_type,omitempty"`
	NumericCondition string   `json:"numeric_condition,omitempty"`
	NumericValue     *float64 `json:"numeric_value,omitempty"`
	NumericUnit      string   `json:"numeric_unit,omitempty"`
}

// Checklist is the definition attached to a plan or goal. Completion state lives elsewhere.
type Checklist struct {
	Items            []Item           `json:"items"`
	SuccessCondition SuccessCondition `json:"success_condition"`
	Number           int              `json:"number,omitempty"`
	Note             string           `json:"note,omitempty"`
}

// IDs returns item ids in definition order.
func (c Checklist) IDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ID)
	}
	return ids
}

func (c Checklist) Has(id string) bool {
	for _, it := range c.Items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func (c Checklist) Empty() bool {
	return len(c.Items) == 0
}

// Satisfied rolls completions up against the current items.
func (c Checklist) Satisfied(completions map[string]bool) bool {
	return RollUp(c.SuccessCondition, c.Number, c.IDs(), completions)
}

// Add appends an item with a fresh id and returns it.
func (c *Checklist) Add(text, evaluationType string) Item {
	item := Item{ID: uuid.NewString(), Text: text, EvaluationType: evaluationType}
	c.Items = append(c.Items, item)
	return item
}

// Remove deletes the item with id and reports whether it existed.
func (c *Checklist) Remove(id string) bool {
	for i, it := range c.Items {
		if it.ID == id {
			c.Items = append(c.Items[:i:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Normalize assigns ids to items missing one and resolves legacy condition strings.
func (c Checklist) Normalize() (Checklist, error) {
	items := make([]Item, len(c.Items))
	seen := make(map[string]bool, len(c.Items))
	for i, it := range c.Items {
		it.Text = strings.TrimSpace(it.Text)
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if seen[it.ID] {
			return Checklist{}, fmt.Errorf("duplicate checklist item id %q", it.ID)
		}
		seen[it.ID] = true
		items[i] = it
	}
	cond, n, err := ParseCondition(string(c.SuccessCondition), c.Number)
	if err != nil {
		return Checklist{}, err
	}
	c.Items = items
	c.SuccessCondition = cond
	c.Number = n
	return c, nil
}

// RollUp evaluates cond over itemIDs. Ids absent from completions count as incomplete.
func RollUp(cond SuccessCondition, n int, itemIDs []string, completions map[string]bool) bool {
	done := 0
	for _, id := range itemIDs {
		if completions[id] {
			done++
		}
	}

	switch cond {
	case Any:
		return done > 0
	case AtLeast:
		return n > 0 && done >= n
	default:
		return done == len(itemIDs)
	}
}
