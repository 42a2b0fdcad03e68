package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-planner/internal/model"
)

// CategoryRepository manages the per-user category catalog.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetOrCreate returns the user's category with name, creating it if missing.
// An empty name yields nil.
func (r *CategoryRepository) GetOrCreate(ctx context.Context, userID uint, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	db := r.db.WithContext(ctx)
	category := model.Category{UserID: userID, Name: name}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&category).Error; err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	if category.ID != 0 {
		return &category, nil
	}

	if err := db.Where("user_id = ? AND name = ?", userID, name).First(&category).Error; err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &category, nil
}

func (r *CategoryRepository) ListByUser(ctx context.Context, userID uint) ([]model.Category, error) {
	var categories []model.Category
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// CategoryUsage is a category with the number of plans and live goals filed under it.
type CategoryUsage struct {
	model.Category
	Plans int64 `json:"plans"`
	Goals int64 `json:"goals"`
}

// ListUsage returns the user's categories with usage counts, ordered by name.
func (r *CategoryRepository) ListUsage(ctx context.Context, userID uint) ([]CategoryUsage, error) {
	plans := r.db.Model(&model.DailyPlan{}).Select("COUNT(*)").
		Where("daily_plans.user_id = categories.user_id AND daily_plans.category = categories.name")
	goals := r.db.Model(&model.RecurringGoal{}).Select("COUNT(*)").
		Where("recurring_goals.user_id = categories.user_id AND recurring_goals.category = categories.name AND recurring_goals.deleted_at IS NULL")

	var out []CategoryUsage
	err := r.db.WithContext(ctx).Model(&model.Category{}).
		Select("categories.*, (?) AS plans, (?) AS goals", plans, goals).
		Where("categories.user_id = ?", userID).
		Order("categories.name ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list category usage: %w", err)
	}
	return out, nil
}
