package model

import (
	"time"

	"habit-planner/internal/checklist"
	"habit-planner/internal/recurrence"
)

// DailyPlan is a habit or task with a schedule. Deleting it is permanent.
type DailyPlan struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	UserID         uint   `gorm:"index;not null" json:"user_id"`
	Category       string `gorm:"size:255" json:"category"`
	TaskType       string `gorm:"size:255" json:"task_type"`
	EvaluationType string `gorm:"type:varchar(16);not null" json:"evaluation_type"`
	Habit          string `gorm:"size:255;not null" json:"habit"`
	Description    string `json:"description"`

	recurrence.Rule `gorm:"embedded"`

	Duration      int                 `json:"duration"`
	Priority      string              `gorm:"size:16" json:"priority"`
	NumericTarget *NumericTarget      `gorm:"type:text;serializer:json" json:"numeric_target,omitempty"`
	BlockTime     *BlockTime          `gorm:"type:text;serializer:json" json:"block_time,omitempty"`
	Pomodoro      int                 `json:"pomodoro"`
	Checklist     checklist.Checklist `gorm:"type:text;serializer:json" json:"checklist"`
	AddToCalendar bool                `json:"add_to_calendar"`
	AddReminder   bool                `json:"add_reminder"`
	AddPomodoro   bool                `json:"add_pomodoro"`
	Reminder      *PlanReminder       `gorm:"foreignKey:DailyPlanID;constraint:OnDelete:CASCADE" json:"reminder,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (p *DailyPlan) Ref() SubjectRef { return SubjectRef{Kind: KindPlan, ID: p.ID} }
func (p *DailyPlan) OwnerID() uint { return p.UserID }
func (p *DailyPlan) Label() string { return p.Habit }
func (p *DailyPlan) CategoryName() string { return p.Category }
func (p *DailyPlan) PriorityRank() int { return rankOf(p.Priority) }
func (p *DailyPlan) Schedule() recurrence.Rule { return p.Rule }
func (p *DailyPlan) ChecklistDefinition() checklist.Checklist { return p.Checklist }
func (p *DailyPlan) Created() time.Time { return p.CreatedAt }
