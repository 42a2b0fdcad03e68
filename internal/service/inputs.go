package service

import (
	"strings"

	"habit-planner/internal/calendar"
	"habit-planner/internal/checklist"
	"habit-planner/internal/model"
	"habit-planner/internal/recurrence"
)

// RuleInput carries the scheduling fields shared by plans and goals.
type RuleInput struct {
	Frequency    string `json:"frequency" validate:"omitempty,frequency"`
	SelectedDays []int  `json:"selected_days"`
	Interval     int    `json:"interval" validate:"gte=0"`
	StartDate    string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	IsFlexible   bool   `json:"is_flexible"`
}

// rule builds a normalized, validated rule. Unit errors on selected days are reported per index.
func (in RuleInput) rule() (recurrence.Rule, error) {
	freq, err := recurrence.ParseFrequency(in.Frequency)
	if err != nil {
		return recurrence.Rule{}, invalidField("frequency", err.Error())
	}
	r := recurrence.Rule{
		Frequency:    freq,
		SelectedDays: in.SelectedDays,
		Interval:     in.Interval,
		IsFlexible:   in.IsFlexible,
	}
	if err := in.applyDates(&r); err != nil {
		return recurrence.Rule{}, err
	}
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return recurrence.Rule{}, ruleError(err, "")
	}
	return r, nil
}

func (in RuleInput) applyDates(r *recurrence.Rule) error {
	if in.StartDate != "" {
		d, err := calendar.Parse(in.StartDate)
		if err != nil {
			return invalidField("start_date", "is not a valid date")
		}
		r.StartDate = d
	}
	if in.EndDate != "" {
		d, err := calendar.Parse(in.EndDate)
		if err != nil {
			return invalidField("end_date", "is not a valid date")
		}
		r.EndDate = &d
	}
	return nil
}

// ChecklistInput is a checklist definition as submitted by a client.
type ChecklistInput struct {
	Items            []ChecklistItemInput `json:"items" validate:"dive"`
	SuccessCondition string               `json:"success_condition" validate:"omitempty,condition"`
	Number           int                  `json:"number" validate:"required_if=SuccessCondition number,gte=0"`
	Note             string               `json:"note"`
}

type ChecklistItemInput struct {
	ID               string   `json:"id" validate:"max=64"`
	Text             string   `json:"text" validate:"required,max=255"`
	EvaluationType   string   `json:"evaluation_type" validate:"omitempty,oneof=yes-no numeric"`
	NumericCondition string   `json:"numeric_condition" validate:"max=32"`
	NumericValue     *float64 `json:"numeric_value"`
	NumericUnit      string   `json:"numeric_unit" validate:"max=64"`
}

func (in *ChecklistInput) build() (checklist.Checklist, error) {
	if in == nil {
		return checklist.Checklist{SuccessCondition: checklist.All}, nil
	}
	c := checklist.Checklist{
		SuccessCondition: checklist.SuccessCondition(in.SuccessCondition),
		Number:           in.Number,
		Note:             in.Note,
	}
	for _, it := range in.Items {
		c.Items = append(c.Items, checklist.Item{
			ID:               it.ID,
			Text:             it.Text,
			EvaluationType:   it.EvaluationType,
			NumericCondition: it.NumericCondition,
			NumericValue:     it.NumericValue,
			NumericUnit:      it.NumericUnit,
		})
	}
	c, err := c.Normalize()
	if err != nil {
		return checklist.Checklist{}, invalidField("checklist", err.Error())
	}
	return c, nil
}

// ChecklistItemCreate adds one item to an existing checklist.
type ChecklistItemCreate struct {
	Text           string `json:"text" validate:"required,max=255"`
	EvaluationType string `json:"evaluation_type" validate:"omitempty,oneof=yes-no numeric"`
}

// ConditionInput replaces a checklist's success condition.
type ConditionInput struct {
	SuccessCondition string  `json:"success_condition" validate:"required,condition"`
	Number           int     `json:"number" validate:"required_if=SuccessCondition number,gte=0"`
	Note             *string `json:"note"`
}

type NumericTargetInput struct {
	Condition string  `json:"condition" validate:"required,max=32"`
	Value     float64 `json:"value" validate:"gte=0"`
	Unit      string  `json:"unit" validate:"max=64"`
}

type BlockTimeInput struct {
	Start string `json:"start" validate:"required,datetime=15:04"`
	End   string `json:"end" validate:"required,datetime=15:04"`
}

func (in *BlockTimeInput) build() *model.BlockTime {
	if in == nil {
		return nil
	}
	return &model.BlockTime{Start: in.Start, End: in.End}
}

// ReminderInput configures the optional reminder of a plan.
type ReminderInput struct {
	Enabled          bool   `json:"enabled"`
	Time             string `json:"time" validate:"required,datetime=15:04"`
	Type             string `json:"type" validate:"required,oneof=dont-remind notification alarm"`
	Schedule         string `json:"schedule" validate:"required,oneof=always-enabled specific-days days-before"`
	SelectedWeekDays []int  `json:"selected_week_days" validate:"omitempty,dive,min=0,max=6"`
	DaysBeforeCount  *int   `json:"days_before_count" validate:"omitempty,gte=0"`
	HoursBeforeCount *int   `json:"hours_before_count" validate:"omitempty,gte=0"`
}

func (in *ReminderInput) build() *model.PlanReminder {
	if in == nil {
		return nil
	}
	r := &model.PlanReminder{
		Enabled:          in.Enabled,
		Time:             in.Time,
		Type:             in.Type,
		Schedule:         in.Schedule,
		DaysBeforeCount:  in.DaysBeforeCount,
		HoursBeforeCount: in.HoursBeforeCount,
	}
	if in.Schedule == model.ReminderSpecificDays {
		r.SelectedWeekDays = recurrence.Rule{SelectedDays: in.SelectedWeekDays}.Normalize().SelectedDays
	}
	return r
}

// PlanInput creates or fully replaces a daily plan.
type PlanInput struct {
	Category       string `json:"category" validate:"required,max=255"`
	TaskType       string `json:"task_type" validate:"required,max=255"`
	EvaluationType string `json:"evaluation_type" validate:"required,oneof=yes-no numeric checklist"`
	Habit          string `json:"habit" validate:"required,max=255"`
	Description    string `json:"description"`

	RuleInput

	Duration      int                 `json:"duration" validate:"gte=0"`
	Priority      string              `json:"priority" validate:"required,oneof=Must Should Could Would Important"`
	NumericTarget *NumericTargetInput `json:"numeric_target"`
	BlockTime     *BlockTimeInput     `json:"block_time"`
	Pomodoro      int                 `json:"pomodoro" validate:"gte=0"`
	Checklist     *ChecklistInput     `json:"checklist"`
	AddToCalendar bool                `json:"add_to_calendar"`
	AddReminder   bool                `json:"add_reminder"`
	AddPomodoro   bool                `json:"add_pomodoro"`
	Reminder      *ReminderInput      `json:"reminder"`
}

// build validates the input and returns the plan it describes, without an owner or id.
func (in PlanInput) build() (*model.DailyPlan, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	rule, err := in.rule()
	if err != nil {
		return nil, err
	}
	list, err := in.Checklist.build()
	if err != nil {
		return nil, err
	}

	plan := &model.DailyPlan{
		Category:       strings.TrimSpace(in.Category),
		TaskType:       in.TaskType,
		EvaluationType: in.EvaluationType,
		Habit:          strings.TrimSpace(in.Habit),
		Description:    in.Description,
		Rule:           rule,
		Duration:       in.Duration,
		Priority:       in.Priority,
		BlockTime:      in.BlockTime.build(),
		Pomodoro:       in.Pomodoro,
		Checklist:      list,
		AddToCalendar:  in.AddToCalendar,
		AddReminder:    in.AddReminder,
		AddPomodoro:    in.AddPomodoro,
		Reminder:       in.Reminder.build(),
	}
	if in.NumericTarget != nil {
		plan.NumericTarget = &model.NumericTarget{
			Condition: in.NumericTarget.Condition,
			Value:     in.NumericTarget.Value,
			Unit:      in.NumericTarget.Unit,
		}
	}
	return plan, nil
}

// GoalInput creates or fully replaces a recurring goal. The schedule comes either
// from the rule fields or from a legacy repetition object.
type GoalInput struct {
	Title          string `json:"title" validate:"required,max=255"`
	Note           string `json:"note"`
	Category       string `json:"category" validate:"max=255"`
	Color          string `json:"color" validate:"max=255"`
	Priority       string `json:"priority" validate:"omitempty,oneof=Must Should Could Would Important"`
	EvaluationType string `json:"evaluation_type" validate:"omitempty,oneof=yes-no numeric checklist"`

	RuleInput
	Repetition *recurrence.LegacyRepetition `json:"repetition"`

	Target          string          `json:"target" validate:"max=255"`
	SelectedUnit    string          `json:"selected_unit" validate:"max=64"`
	BlockTime       *BlockTimeInput `json:"block_time"`
	StartTime       string          `json:"start_time" validate:"omitempty,datetime=15:04:05"`
	EndTime         string          `json:"end_time" validate:"omitempty,datetime=15:04:05"`
	DurationMinutes *int            `json:"duration_minutes" validate:"omitempty,gte=0"`
	AddToCalendar   bool            `json:"add_to_calendar"`
	AddReminder     bool            `json:"add_reminder"`
	AddPomodoro     bool            `json:"add_pomodoro"`
	Checklist       *ChecklistInput `json:"checklist"`
	IsActive        *bool           `json:"is_active"`
}

func (in GoalInput) build() (*model.RecurringGoal, error) {
	if err := check(in); err != nil {
		return nil, err
	}
	rule, err := in.goalRule()
	if err != nil {
		return nil, err
	}
	list, err := in.Checklist.build()
	if err != nil {
		return nil, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	evaluation := in.EvaluationType
	if evaluation == "" {
		evaluation = model.EvalYesNo
	}
	return &model.RecurringGoal{
		Title:           strings.TrimSpace(in.Title),
		Note:            in.Note,
		Category:        strings.TrimSpace(in.Category),
		Color:           in.Color,
		Priority:        in.Priority,
		EvaluationType:  evaluation,
		Rule:            rule,
		Target:          in.Target,
		SelectedUnit:    in.SelectedUnit,
		BlockTime:       in.BlockTime.build(),
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		DurationMinutes: in.DurationMinutes,
		AddToCalendar:   in.AddToCalendar,
		AddReminder:     in.AddReminder,
		AddPomodoro:     in.AddPomodoro,
		Checklist:       list,
		IsActive:        active,
	}, nil
}

// goalRule converts a legacy repetition when one is given. start_date then only
// fills in a missing selectedDate, while end_date and is_flexible still apply.
func (in GoalInput) goalRule() (recurrence.Rule, error) {
	if in.Repetition == nil {
		return in.rule()
	}

	var bounds recurrence.Rule
	if err := in.applyDates(&bounds); err != nil {
		return recurrence.Rule{}, err
	}
	r, err := recurrence.FromLegacy(*in.Repetition, bounds.StartDate)
	if err != nil {
		return recurrence.Rule{}, ruleError(err, "repetition.")
	}
	r.EndDate = bounds.EndDate
	r.IsFlexible = in.IsFlexible
	if err := r.Validate(); err != nil {
		return recurrence.Rule{}, ruleError(err, "")
	}
	return r, nil
}

// RegisterInput creates a local account.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginInput authenticates a local account.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// GenderInput updates the profile gender.
type GenderInput struct {
	Gender string `json:"gender" validate:"required,oneof=male female other"`
}
