package model

import (
	"time"

	"gorm.io/gorm"

	"habit-planner/internal/checklist"
	"habit-planner/internal/recurrence"
)

// RecurringGoal is a long-running goal with a schedule. Deletion is soft and can be undone.
type RecurringGoal struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	UserID         uint   `gorm:"index;not null" json:"user_id"`
	Title          string `gorm:"size:255;not null" json:"title"`
	Note           string `json:"note"`
	Category       string `gorm:"size:255" json:"category"`
	Color          string `gorm:"size:255" json:"color"`
	Priority       string `gorm:"size:16" json:"priority"`
	EvaluationType string `gorm:"type:varchar(16)" json:"evaluation_type"`

	recurrence.Rule `gorm:"embedded"`

	Target          string              `json:"target"`
	SelectedUnit    string              `json:"selected_unit"`
	BlockTime       *BlockTime          `gorm:"type:text;serializer:json" json:"block_time,omitempty"`
	StartTime       string              `gorm:"size:8" json:"start_time"`
	EndTime         string              `gorm:"size:8" json:"end_time"`
	DurationMinutes *int                `json:"duration_minutes"`
	AddToCalendar   bool                `json:"add_to_calendar"`
	AddReminder     bool                `json:"add_reminder"`
	AddPomodoro     bool                `json:"add_pomodoro"`
	Checklist       checklist.Checklist `gorm:"type:text;serializer:json" json:"checklist"`
	IsActive        bool                `gorm:"not null" json:"is_active"`
	// Repetition is set only on rows still awaiting conversion to the rule columns.
	Repetition *recurrence.LegacyRepetition `gorm:"type:text;serializer:json" json:"-"`
	CreatedAt  time.Time                    `json:"created_at"`
	UpdatedAt  time.Time                    `json:"updated_at"`
	DeletedAt  gorm.DeletedAt               `gorm:"index" json:"deleted_at,omitempty"`
}

func (g *RecurringGoal) Ref() SubjectRef { return SubjectRef{Kind: KindGoal, ID: g.ID} }
func (g *RecurringGoal) OwnerID() uint { return g.UserID }
func (g *RecurringGoal) Label() string { return g.Title }
func (g *RecurringGoal) CategoryName() string { return g.Category }
func (g *RecurringGoal) PriorityRank() int { return rankOf(g.Priority) }
func (g *RecurringGoal) Schedule() recurrence.Rule { return g.Rule }
func (g *RecurringGoal) ChecklistDefinition() checklist.Checklist { return g.Checklist }
func (g *RecurringGoal) Created() time.Time { return g.CreatedAt }
