package service

import (
	"context"
	"log/slog"

	"habit-planner/internal/calendar"
	"habit-planner/internal/metrics"
	"habit-planner/internal/model"
	"habit-planner/internal/repository"
)

// CompletionService records what was done on which date. Every write checks that
// both the plan or goal and the record belong to the caller.
type CompletionService struct {
	store   *repository.Store
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewCompletionService(store *repository.Store, log *slog.Logger, m *metrics.Metrics) *CompletionService {
	return &CompletionService{store: store, log: log, metrics: m}
}

// GetOrCreate returns the record for (ref, date), creating a blank one on first use.
func (s *CompletionService) GetOrCreate(ctx context.Context, userID uint, ref model.SubjectRef, date calendar.Date) (*model.Completion, error) {
	var rec *model.Completion
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := loadSubject(ctx, tx, userID, ref); err != nil {
			return err
		}
		var err error
		rec, err = s.getOrCreate(ctx, tx, userID, ref, date)
		return err
	})
	if err != nil {
		return nil, storageErr("get completion", err)
	}
	return rec, nil
}

// SetCompletion sets the overall flag. Completing also marks every current checklist
// item done for that date; un-completing leaves item state as it was.
func (s *CompletionService) SetCompletion(ctx context.Context, userID uint, ref model.SubjectRef, date calendar.Date, completed bool) (*model.Completion, error) {
	var rec *model.Completion
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		subject, err := loadSubject(ctx, tx, userID, ref)
		if err != nil {
			return err
		}
		rec, err = s.getOrCreate(ctx, tx, userID, ref, date)
		if err != nil {
			return err
		}

		rec.IsCompleted = completed
		if completed {
			for _, id := range subject.ChecklistDefinition().IDs() {
				rec.ChecklistCompletions[id] = true
			}
		}
		return tx.Completions.Save(ctx, rec)
	})
	if err != nil {
		return nil, storageErr("set completion", err)
	}
	s.metrics.CompletionWrite("set")
	s.log.Debug("completion set", "user_id", userID, "kind", ref.Kind, "id", ref.ID, "date", date, "completed", completed)
	return rec, nil
}

// ToggleChecklistItem flips one item for date and recomputes the overall flag from
// every current item. Unknown items fail with ErrNotFound before anything is written.
func (s *CompletionService) ToggleChecklistItem(ctx context.Context, userID uint, ref model.SubjectRef, date calendar.Date, itemID string) (*model.Completion, error) {
	var rec *model.Completion
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		subject, err := loadSubject(ctx, tx, userID, ref)
		if err != nil {
			return err
		}
		list := subject.ChecklistDefinition()
		if !list.Has(itemID) {
			return ErrNotFound
		}

		rec, err = s.getOrCreate(ctx, tx, userID, ref, date)
		if err != nil {
			return err
		}
		rec.ChecklistCompletions[itemID] = !rec.ChecklistCompletions[itemID]
		rec.IsCompleted = list.Satisfied(rec.ChecklistCompletions)
		return tx.Completions.Save(ctx, rec)
	})
	if err != nil {
		return nil, storageErr("toggle checklist item", err)
	}
	s.metrics.CompletionWrite("toggle")
	return rec, nil
}

// History lists the records of one plan or goal within [from, to].
func (s *CompletionService) History(ctx context.Context, userID uint, ref model.SubjectRef, from, to calendar.Date) ([]model.Completion, error) {
	if to.Before(from) {
		return nil, invalidField("to", "must not be before from")
	}
	if _, err := loadSubject(ctx, s.store, userID, ref); err != nil {
		return nil, err
	}
	recs, err := s.store.Completions.ListBySubject(ctx, userID, ref, from, to)
	if err != nil {
		return nil, storageErr("completion history", err)
	}
	return recs, nil
}

func (s *CompletionService) getOrCreate(ctx context.Context, tx *repository.Store, userID uint, ref model.SubjectRef, date calendar.Date) (*model.Completion, error) {
	rec, created, err := tx.Completions.GetOrCreate(ctx, userID, ref, date)
	if err != nil {
		return nil, err
	}
	if created {
		s.metrics.CompletionWrite("create")
	}
	return rec, nil
}
