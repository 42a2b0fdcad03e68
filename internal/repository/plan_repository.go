package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-planner/internal/calendar"
	"habit-planner/internal/model"
)

// PlanRepository handles CRUD for daily plans and their reminders.
type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// Create inserts the plan together with its reminder, if any.
func (r *PlanRepository) Create(ctx context.Context, plan *model.DailyPlan) error {
	if err := r.db.WithContext(ctx).Create(plan).Error; err != nil {
		return fmt.Errorf("create plan: %w", err)
	}
	return nil
}

func (r *PlanRepository) FindByID(ctx context.Context, userID, planID uint) (*model.DailyPlan, error) {
	var plan model.DailyPlan
	if err := r.db.WithContext(ctx).Preload("Reminder").
		Where("user_id = ? AND id = ?", userID, planID).
		First(&plan).Error; err != nil {
		return nil, fmt.Errorf("find plan: %w", notFound(err))
	}
	return &plan, nil
}

func (r *PlanRepository) ListByUser(ctx context.Context, userID uint) ([]model.DailyPlan, error) {
	var plans []model.DailyPlan
	if err := r.db.WithContext(ctx).Preload("Reminder").
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// ListCandidates returns plans whose stored range can contain date, plus every flexible plan.
// The recurrence rule still has to be checked by the caller.
func (r *PlanRepository) ListCandidates(ctx context.Context, userID uint, date calendar.Date) ([]model.DailyPlan, error) {
	var plans []model.DailyPlan
	if err := r.db.WithContext(ctx).Preload("Reminder").
		Where("user_id = ?", userID).
		Where(candidateClause, true, date, date).
		Order("created_at ASC, id ASC").
		Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("list plans for %s: %w", date, err)
	}
	return plans, nil
}

// candidateClause keeps rows without a start date so broken rules surface instead of vanishing.
const candidateClause = "is_flexible = ? OR start_date IS NULL OR (start_date <= ? AND (end_date IS NULL OR end_date >= ?))"

// Update saves every column of the plan. The reminder is managed by ReplaceReminder.
func (r *PlanRepository) Update(ctx context.Context, plan *model.DailyPlan) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(plan).Error; err != nil {
		return fmt.Errorf("update plan: %w", err)
	}
	return nil
}

// ReplaceReminder drops the plan's reminder and stores reminder in its place. A nil reminder just removes it.
func (r *PlanRepository) ReplaceReminder(ctx context.Context, planID uint, reminder *model.PlanReminder) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("daily_plan_id = ?", planID).Delete(&model.PlanReminder{}).Error; err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if reminder == nil {
		return nil
	}
	reminder.ID = 0
	reminder.DailyPlanID = planID
	if err := db.Create(reminder).Error; err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

// Delete removes the plan, its reminder, and its completion history.
func (r *PlanRepository) Delete(ctx context.Context, userID, planID uint) error {
	db := r.db.WithContext(ctx)
	res := db.Where("user_id = ? AND id = ?", userID, planID).Delete(&model.DailyPlan{})
	if res.Error != nil {
		return fmt.Errorf("delete plan: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	if err := db.Where("daily_plan_id = ?", planID).Delete(&model.PlanReminder{}).Error; err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if err := db.Where("subject_kind = ? AND subject_id = ?", model.KindPlan, planID).Delete(&model.Completion{}).Error; err != nil {
		return fmt.Errorf("delete plan completions: %w", err)
	}
	return nil
}
