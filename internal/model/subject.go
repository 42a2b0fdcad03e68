package model

import (
	"time"

	"habit-planner/internal/checklist"
	"habit-planner/internal/recurrence"
)

// SubjectKind names the family a schedulable entity belongs to.
type SubjectKind string

const (
	KindPlan SubjectKind = "plan"
	KindGoal SubjectKind = "goal"
)

// SubjectRef identifies a plan or goal.
type SubjectRef struct {
	Kind SubjectKind `json:"kind"`
	ID   uint        `json:"id"`
}

// Subject is what the due query and the completion ledger need from a plan or goal.
type Subject interface {
	Ref() SubjectRef
	OwnerID() uint
	Label() string
	CategoryName() string
	PriorityRank() int
	Schedule() recurrence.Rule
	ChecklistDefinition() checklist.Checklist
	Created() time.Time
}

// Priority values, most urgent first.
const (
	PriorityMust      = "Must"
	PriorityImportant = "Important"
	PriorityShould    = "Should"
	PriorityCould     = "Could"
	PriorityWould     = "Would"
)

var priorityRanks = map[string]int{
	PriorityMust:      0,
	PriorityImportant: 1,
	PriorityShould:    2,
	PriorityCould:     3,
	PriorityWould:     4,
}

func rankOf(priority string) int {
	if r, ok := priorityRanks[priority]; ok {
		return r
	}
	return len(priorityRanks)
}

// Evaluation types.
const (
	EvalYesNo     = "yes-no"
	EvalNumeric   = "numeric"
	EvalChecklist = "checklist"
)

// NumericTarget is the goal value of a numeric plan, e.g. "at least 8 glasses".
type NumericTarget struct {
	Condition string  `json:"condition"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit,omitempty"`
}

// BlockTime is a clock-time window reserved for the item.
type BlockTime struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
