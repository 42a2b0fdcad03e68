package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-planner/internal/calendar"
	"habit-planner/internal/model"
)

// GoalRepository handles CRUD for recurring goals. Deleted goals stay restorable.
type GoalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

func (r *GoalRepository) Create(ctx context.Context, goal *model.RecurringGoal) error {
	if err := r.db.WithContext(ctx).Create(goal).Error; err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

func (r *GoalRepository) FindByID(ctx context.Context, userID, goalID uint) (*model.RecurringGoal, error) {
	var goal model.RecurringGoal
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, goalID).First(&goal).Error; err != nil {
		return nil, fmt.Errorf("find goal: %w", notFound(err))
	}
	return &goal, nil
}

func (r *GoalRepository) ListByUser(ctx context.Context, userID uint) ([]model.RecurringGoal, error) {
	var goals []model.RecurringGoal
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

// ListDeleted returns the user's soft-deleted goals, most recently deleted first.
func (r *GoalRepository) ListDeleted(ctx context.Context, userID uint) ([]model.RecurringGoal, error) {
	var goals []model.RecurringGoal
	if err := r.db.WithContext(ctx).Unscoped().
		Where("user_id = ? AND deleted_at IS NOT NULL", userID).
		Order("deleted_at DESC").
		Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("list deleted goals: %w", err)
	}
	return goals, nil
}

// ListCandidates returns active goals whose stored range can contain date, plus every flexible goal.
func (r *GoalRepository) ListCandidates(ctx context.Context, userID uint, date calendar.Date) ([]model.RecurringGoal, error) {
	var goals []model.RecurringGoal
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Where(candidateClause, true, date, date).
		Order("created_at ASC, id ASC").
		Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("list goals for %s: %w", date, err)
	}
	return goals, nil
}

func (r *GoalRepository) Update(ctx context.Context, goal *model.RecurringGoal) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(goal).Error; err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return nil
}

// Delete soft-deletes the goal.
func (r *GoalRepository) Delete(ctx context.Context, userID, goalID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, goalID).Delete(&model.RecurringGoal{})
	if res.Error != nil {
		return fmt.Errorf("delete goal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Restore undoes a soft delete.
func (r *GoalRepository) Restore(ctx context.Context, userID, goalID uint) error {
	res := r.db.WithContext(ctx).Unscoped().Model(&model.RecurringGoal{}).
		Where("user_id = ? AND id = ? AND deleted_at IS NOT NULL", userID, goalID).
		Update("deleted_at", nil)
	if res.Error != nil {
		return fmt.Errorf("restore goal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLegacy returns goals, deleted ones included, that still carry a legacy repetition.
func (r *GoalRepository) ListLegacy(ctx context.Context) ([]model.RecurringGoal, error) {
	var goals []model.RecurringGoal
	if err := r.db.WithContext(ctx).Unscoped().
		Where("repetition IS NOT NULL AND repetition <> ?", "null").
		Order("id ASC").
		Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("list legacy goals: %w", err)
	}
	return goals, nil
}

// SaveMigrated stores a converted rule and clears the legacy repetition.
func (r *GoalRepository) SaveMigrated(ctx context.Context, goal *model.RecurringGoal) error {
	goal.Repetition = nil
	if err := r.db.WithContext(ctx).Unscoped().Omit(clause.Associations).Save(goal).Error; err != nil {
		return fmt.Errorf("save migrated goal %d: %w", goal.ID, err)
	}
	return nil
}
