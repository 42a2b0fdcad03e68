package model

import (
	"slices"
	"time"

	"habit-planner/internal/calendar"
	"habit-planner/internal/recurrence"
)

// Reminder types and schedules.
const (
	ReminderDontRemind   = "dont-remind"
	ReminderNotification = "notification"
	ReminderAlarm        = "alarm"

	ReminderAlways       = "always-enabled"
	ReminderSpecificDays = "specific-days"
	ReminderDaysBefore   = "days-before"
)

// PlanReminder describes when to notify about a plan. It never affects whether the plan is due.
type PlanReminder struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	DailyPlanID      uint      `gorm:"uniqueIndex;not null" json:"daily_plan_id"`
	Enabled          bool      `json:"enabled"`
	Time             string    `gorm:"size:5" json:"time"`
	Type             string    `gorm:"size:16" json:"type"`
	Schedule         string    `gorm:"size:16" json:"schedule"`
	SelectedWeekDays []int     `gorm:"type:text;serializer:json" json:"selected_week_days"`
	DaysBeforeCount  *int      `json:"days_before_count"`
	HoursBeforeCount *int      `json:"hours_before_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FiresOn reports whether the reminder should go out on d for a plan scheduled by rule.
func (r PlanReminder) FiresOn(rule recurrence.Rule, d calendar.Date) bool {
	if !r.Enabled || r.Type == ReminderDontRemind {
		return false
	}
	switch r.Schedule {
	case ReminderSpecificDays:
		return rule.Due(d) && slices.Contains(r.SelectedWeekDays, int(d.Weekday()))
	case ReminderDaysBefore:
		n := 0
		if r.DaysBeforeCount != nil {
			n = *r.DaysBeforeCount
		}
		return rule.Due(d.AddDays(n))
	default:
		return rule.Due(d)
	}
}
