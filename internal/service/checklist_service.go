package service

import (
	"context"

	"habit-planner/internal/checklist"
	"habit-planner/internal/model"
	"habit-planner/internal/repository"
)

// ChecklistService edits checklist definitions of plans and goals.
// Completion records that mention removed items are left alone.
type ChecklistService struct {
	store *repository.Store
}

func NewChecklistService(store *repository.Store) *ChecklistService {
	return &ChecklistService{store: store}
}

func (s *ChecklistService) AddItem(ctx context.Context, userID uint, ref model.SubjectRef, in ChecklistItemCreate) (checklist.Item, error) {
	if err := check(in); err != nil {
		return checklist.Item{}, err
	}

	var item checklist.Item
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		subject, err := loadSubject(ctx, tx, userID, ref)
		if err != nil {
			return err
		}
		list := subject.ChecklistDefinition()
		list.Items = append([]checklist.Item(nil), list.Items...)
		item = list.Add(in.Text, in.EvaluationType)
		if list.SuccessCondition == "" {
			list.SuccessCondition = checklist.All
		}
		return saveChecklist(ctx, tx, subject, list)
	})
	if err != nil {
		return checklist.Item{}, storageErr("add checklist item", err)
	}
	return item, nil
}

func (s *ChecklistService) RemoveItem(ctx context.Context, userID uint, ref model.SubjectRef, itemID string) error {
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		subject, err := loadSubject(ctx, tx, userID, ref)
		if err != nil {
			return err
		}
		list := subject.ChecklistDefinition()
		list.Items = append([]checklist.Item(nil), list.Items...)
		if !list.Remove(itemID) {
			return ErrNotFound
		}
		return saveChecklist(ctx, tx, subject, list)
	})
	return storageErr("remove checklist item", err)
}

// UpdateCondition sets how item completions roll up, and optionally the checklist note.
func (s *ChecklistService) UpdateCondition(ctx context.Context, userID uint, ref model.SubjectRef, in ConditionInput) (checklist.Checklist, error) {
	if err := check(in); err != nil {
		return checklist.Checklist{}, err
	}
	cond, n, err := checklist.ParseCondition(in.SuccessCondition, in.Number)
	if err != nil {
		return checklist.Checklist{}, invalidField("success_condition", err.Error())
	}

	var out checklist.Checklist
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		subject, err := loadSubject(ctx, tx, userID, ref)
		if err != nil {
			return err
		}
		list := subject.ChecklistDefinition()
		list.SuccessCondition = cond
		list.Number = n
		if in.Note != nil {
			list.Note = *in.Note
		}
		out = list
		return saveChecklist(ctx, tx, subject, list)
	})
	if err != nil {
		return checklist.Checklist{}, storageErr("update success condition", err)
	}
	return out, nil
}
