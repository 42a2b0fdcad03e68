package service

import (
	"context"

	"habit-planner/internal/repository"
)

// CategoryService lists the categories plans and goals are filed under.
// Categories are created implicitly when a plan or goal names one.
type CategoryService struct {
	repo *repository.CategoryRepository
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// List returns the user's categories with how many plans and goals use each.
func (s *CategoryService) List(ctx context.Context, userID uint) ([]repository.CategoryUsage, error) {
	categories, err := s.repo.ListUsage(ctx, userID)
	if err != nil {
		return nil, storageErr("list categories", err)
	}
	return categories, nil
}
