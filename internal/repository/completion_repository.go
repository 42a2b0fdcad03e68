package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"habit-planner/internal/calendar"
	"habit-planner/internal/model"
)

// CompletionRepository stores per-date completion records.
type CompletionRepository struct {
	db         *gorm.DB
	onConflict func()
}

func NewCompletionRepository(db *gorm.DB, onConflict func()) *CompletionRepository {
	return &CompletionRepository{db: db, onConflict: onConflict}
}

var completionKey = []clause.Column{{Name: "subject_kind"}, {Name: "subject_id"}, {Name: "completion_date"}}

// GetOrCreate returns the record for (ref, date), inserting a blank one if none exists.
// created reports whether this call inserted it. The insert is atomic on the unique
// key, so concurrent callers always end up with the same row. An insert that finds
// the key taken lost a race with another caller and fires the conflict hook.
func (r *CompletionRepository) GetOrCreate(ctx context.Context, userID uint, ref model.SubjectRef, date calendar.Date) (rec *model.Completion, created bool, err error) {
	existing, err := r.Find(ctx, ref, date)
	switch {
	case err == nil:
		if existing.UserID != userID {
			return nil, false, ErrNotFound
		}
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	fresh := model.Completion{
		SubjectKind:          ref.Kind,
		SubjectID:            ref.ID,
		CompletionDate:       date,
		UserID:               userID,
		ChecklistCompletions: map[string]bool{},
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{Columns: completionKey, DoNothing: true}).Create(&fresh)
	switch {
	case res.Error == nil && res.RowsAffected > 0:
		return &fresh, true, nil
	case res.Error == nil, errors.Is(res.Error, gorm.ErrDuplicatedKey):
		if r.onConflict != nil {
			r.onConflict()
		}
	default:
		return nil, false, fmt.Errorf("create completion: %w", res.Error)
	}

	existing, err = r.Find(ctx, ref, date)
	if err != nil {
		return nil, false, err
	}
	if existing.UserID != userID {
		return nil, false, ErrNotFound
	}
	return existing, false, nil
}

// Find loads the record for (ref, date). On PostgreSQL the row is locked until the
// surrounding transaction ends.
func (r *CompletionRepository) Find(ctx context.Context, ref model.SubjectRef, date calendar.Date) (*model.Completion, error) {
	var rec model.Completion
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("subject_kind = ? AND subject_id = ? AND completion_date = ?", ref.Kind, ref.ID, date).
		First(&rec).Error
	if err != nil {
		return nil, fmt.Errorf("find completion: %w", notFound(err))
	}
	if rec.ChecklistCompletions == nil {
		rec.ChecklistCompletions = map[string]bool{}
	}
	return &rec, nil
}

// Save writes the completion flag and checklist map.
func (r *CompletionRepository) Save(ctx context.Context, rec *model.Completion) error {
	if err := r.db.WithContext(ctx).Model(rec).
		Select("is_completed", "checklist_completions", "updated_at").
		Updates(rec).Error; err != nil {
		return fmt.Errorf("save completion: %w", err)
	}
	return nil
}

// ListForDate returns the user's records on date, keyed by subject.
func (r *CompletionRepository) ListForDate(ctx context.Context, userID uint, date calendar.Date) (map[model.SubjectRef]model.Completion, error) {
	var recs []model.Completion
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND completion_date = ?", userID, date).
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list completions for %s: %w", date, err)
	}
	out := make(map[model.SubjectRef]model.Completion, len(recs))
	for _, rec := range recs {
		out[rec.Ref()] = rec
	}
	return out, nil
}

// ListBySubject returns the history of one plan or goal within [from, to], oldest first.
func (r *CompletionRepository) ListBySubject(ctx context.Context, userID uint, ref model.SubjectRef, from, to calendar.Date) ([]model.Completion, error) {
	var recs []model.Completion
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND subject_kind = ? AND subject_id = ?", userID, ref.Kind, ref.ID).
		Where("completion_date >= ? AND completion_date <= ?", from, to).
		Order("completion_date ASC").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return recs, nil
}
