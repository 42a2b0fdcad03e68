package service

import (
	"context"
	"log/slog"

	"habit-planner/internal/model"
	"habit-planner/internal/repository"
)

// PlanService wraps daily plan business logic.
type PlanService struct {
	store *repository.Store
	log   *slog.Logger
}

func NewPlanService(store *repository.Store, log *slog.Logger) *PlanService {
	return &PlanService{store: store, log: log}
}

// Create stores the plan, its category and its reminder in one transaction.
func (s *PlanService) Create(ctx context.Context, userID uint, in PlanInput) (*model.DailyPlan, error) {
	plan, err := in.build()
	if err != nil {
		return nil, err
	}
	plan.UserID = userID

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Categories.GetOrCreate(ctx, userID, plan.Category); err != nil {
			return err
		}
		return tx.Plans.Create(ctx, plan)
	})
	if err != nil {
		return nil, storageErr("create plan", err)
	}
	s.log.Info("plan created", "user_id", userID, "plan_id", plan.ID, "frequency", plan.Frequency)
	return plan, nil
}

func (s *PlanService) Get(ctx context.Context, userID, planID uint) (*model.DailyPlan, error) {
	plan, err := s.store.Plans.FindByID(ctx, userID, planID)
	if err != nil {
		return nil, storageErr("get plan", err)
	}
	return plan, nil
}

func (s *PlanService) List(ctx context.Context, userID uint) ([]model.DailyPlan, error) {
	plans, err := s.store.Plans.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageErr("list plans", err)
	}
	return plans, nil
}

// Update replaces every field of the plan, reminder included.
func (s *PlanService) Update(ctx context.Context, userID, planID uint, in PlanInput) (*model.DailyPlan, error) {
	next, err := in.build()
	if err != nil {
		return nil, err
	}

	var out *model.DailyPlan
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Plans.FindByID(ctx, userID, planID)
		if err != nil {
			return err
		}
		next.ID = current.ID
		next.UserID = current.UserID
		next.CreatedAt = current.CreatedAt

		if _, err := tx.Categories.GetOrCreate(ctx, userID, next.Category); err != nil {
			return err
		}
		reminder := next.Reminder
		next.Reminder = nil
		if err := tx.Plans.Update(ctx, next); err != nil {
			return err
		}
		if err := tx.Plans.ReplaceReminder(ctx, next.ID, reminder); err != nil {
			return err
		}
		next.Reminder = reminder
		out = next
		return nil
	})
	if err != nil {
		return nil, storageErr("update plan", err)
	}
	return out, nil
}

// Delete removes the plan permanently, with its reminder and completion history.
func (s *PlanService) Delete(ctx context.Context, userID, planID uint) error {
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		return tx.Plans.Delete(ctx, userID, planID)
	})
	if err != nil {
		return storageErr("delete plan", err)
	}
	s.log.Info("plan deleted", "user_id", userID, "plan_id", planID)
	return nil
}
