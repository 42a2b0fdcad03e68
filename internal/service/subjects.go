package service

import (
	"context"
	"fmt"

	"habit-planner/internal/checklist"
	"habit-planner/internal/model"
	"habit-planner/internal/repository"
)

// loadSubject fetches the plan or goal behind ref, scoped to userID.
func loadSubject(ctx context.Context, tx *repository.Store, userID uint, ref model.SubjectRef) (model.Subject, error) {
	switch ref.Kind {
	case model.KindPlan:
		plan, err := tx.Plans.FindByID(ctx, userID, ref.ID)
		if err != nil {
			return nil, storageErr("load plan", err)
		}
		return plan, nil
	case model.KindGoal:
		goal, err := tx.Goals.FindByID(ctx, userID, ref.ID)
		if err != nil {
			return nil, storageErr("load goal", err)
		}
		return goal, nil
	default:
		return nil, ErrNotFound
	}
}

// saveChecklist stores a new checklist definition on subject.
func saveChecklist(ctx context.Context, tx *repository.Store, subject model.Subject, list checklist.Checklist) error {
	switch s := subject.(type) {
	case *model.DailyPlan:
		s.Checklist = list
		return storageErr("save plan checklist", tx.Plans.Update(ctx, s))
	case *model.RecurringGoal:
		s.Checklist = list
		return storageErr("save goal checklist", tx.Goals.Update(ctx, s))
	default:
		return fmt.Errorf("save checklist: unexpected subject %T", subject)
	}
}
