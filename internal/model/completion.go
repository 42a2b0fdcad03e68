package model

import (
	"time"

	"habit-planner/internal/calendar"
)

// Completion is the state of one plan or goal on one calendar date.
type Completion struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	SubjectKind          SubjectKind     `gorm:"type:varchar(8);not null;uniqueIndex:uidx_completion_subject_date,priority:1" json:"subject_kind"`
	SubjectID            uint            `gorm:"not null;uniqueIndex:uidx_completion_subject_date,priority:2" json:"subject_id"`
	CompletionDate       calendar.Date   `gorm:"type:varchar(10);not null;uniqueIndex:uidx_completion_subject_date,priority:3" json:"completion_date"`
	UserID               uint            `gorm:"index;not null" json:"user_id"`
	IsCompleted          bool            `gorm:"not null;default:false" json:"is_completed"`
	ChecklistCompletions map[string]bool `gorm:"type:text;serializer:json" json:"checklist_completions"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func (c Completion) Ref() SubjectRef {
	return SubjectRef{Kind: c.SubjectKind, ID: c.SubjectID}
}
