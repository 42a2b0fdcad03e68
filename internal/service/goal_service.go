package service

import (
	"context"
	"log/slog"

	"habit-planner/internal/calendar"
	"habit-planner/internal/model"
	"habit-planner/internal/recurrence"
	"habit-planner/internal/repository"
)

// GoalService wraps recurring goal business logic.
type GoalService struct {
	store *repository.Store
	log   *slog.Logger
}

func NewGoalService(store *repository.Store, log *slog.Logger) *GoalService {
	return &GoalService{store: store, log: log}
}

func (s *GoalService) Create(ctx context.Context, userID uint, in GoalInput) (*model.RecurringGoal, error) {
	goal, err := in.build()
	if err != nil {
		return nil, err
	}
	goal.UserID = userID

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Categories.GetOrCreate(ctx, userID, goal.Category); err != nil {
			return err
		}
		return tx.Goals.Create(ctx, goal)
	})
	if err != nil {
		return nil, storageErr("create goal", err)
	}
	s.log.Info("goal created", "user_id", userID, "goal_id", goal.ID, "frequency", goal.Frequency)
	return goal, nil
}

func (s *GoalService) Get(ctx context.Context, userID, goalID uint) (*model.RecurringGoal, error) {
	goal, err := s.store.Goals.FindByID(ctx, userID, goalID)
	if err != nil {
		return nil, storageErr("get goal", err)
	}
	return goal, nil
}

func (s *GoalService) List(ctx context.Context, userID uint) ([]model.RecurringGoal, error) {
	goals, err := s.store.Goals.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageErr("list goals", err)
	}
	return goals, nil
}

func (s *GoalService) ListDeleted(ctx context.Context, userID uint) ([]model.RecurringGoal, error) {
	goals, err := s.store.Goals.ListDeleted(ctx, userID)
	if err != nil {
		return nil, storageErr("list deleted goals", err)
	}
	return goals, nil
}

// Update replaces every field of the goal.
func (s *GoalService) Update(ctx context.Context, userID, goalID uint, in GoalInput) (*model.RecurringGoal, error) {
	next, err := in.build()
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		current, err := tx.Goals.FindByID(ctx, userID, goalID)
		if err != nil {
			return err
		}
		next.ID = current.ID
		next.UserID = current.UserID
		next.CreatedAt = current.CreatedAt

		if _, err := tx.Categories.GetOrCreate(ctx, userID, next.Category); err != nil {
			return err
		}
		return tx.Goals.Update(ctx, next)
	})
	if err != nil {
		return nil, storageErr("update goal", err)
	}
	return next, nil
}

// Delete soft-deletes the goal. Its completion history is kept for Restore.
func (s *GoalService) Delete(ctx context.Context, userID, goalID uint) error {
	if err := s.store.Goals.Delete(ctx, userID, goalID); err != nil {
		return storageErr("delete goal", err)
	}
	s.log.Info("goal deleted", "user_id", userID, "goal_id", goalID)
	return nil
}

func (s *GoalService) Restore(ctx context.Context, userID, goalID uint) (*model.RecurringGoal, error) {
	var goal *model.RecurringGoal
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Goals.Restore(ctx, userID, goalID); err != nil {
			return err
		}
		var err error
		goal, err = tx.Goals.FindByID(ctx, userID, goalID)
		return err
	})
	if err != nil {
		return nil, storageErr("restore goal", err)
	}
	s.log.Info("goal restored", "user_id", userID, "goal_id", goalID)
	return goal, nil
}

// BackfillReport summarizes a legacy rule migration.
type BackfillReport struct {
	Converted int
	Failed    map[uint]string
}

// BackfillLegacyRules rewrites every goal still holding a legacy repetition into
// rule columns. Goals that cannot be converted are left untouched and reported.
// Rows without a usable date fall back to their creation date.
func (s *GoalService) BackfillLegacyRules(ctx context.Context) (BackfillReport, error) {
	report := BackfillReport{Failed: map[uint]string{}}
	goals, err := s.store.Goals.ListLegacy(ctx)
	if err != nil {
		return report, storageErr("list legacy goals", err)
	}

	for i := range goals {
		goal := &goals[i]
		fallback := goal.StartDate
		if fallback.IsZero() {
			fallback = calendar.FromTime(goal.CreatedAt)
		}
		rule, err := recurrence.FromLegacy(*goal.Repetition, fallback)
		if err != nil {
			report.Failed[goal.ID] = err.Error()
			s.log.Warn("legacy rule not converted", "goal_id", goal.ID, "err", err)
			continue
		}
		rule.EndDate = goal.EndDate
		rule.IsFlexible = goal.IsFlexible
		if err := rule.Validate(); err != nil {
			report.Failed[goal.ID] = err.Error()
			s.log.Warn("legacy rule not converted", "goal_id", goal.ID, "err", err)
			continue
		}
		goal.Rule = rule
		if err := s.store.Goals.SaveMigrated(ctx, goal); err != nil {
			return report, storageErr("save migrated goal", err)
		}
		report.Converted++
	}
	s.log.Info("legacy backfill finished", "converted", report.Converted, "failed", len(report.Failed))
	return report, nil
}
