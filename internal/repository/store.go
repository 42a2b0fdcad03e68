package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories that share one connection or transaction.
type Store struct {
	db         *gorm.DB
	onConflict func()

	Users       *UserRepository
	Categories  *CategoryRepository
	Plans       *PlanRepository
	Goals       *GoalRepository
	Completions *CompletionRepository
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithConflictHook registers fn to run whenever a completion insert loses a race.
func WithConflictHook(fn func()) StoreOption {
	return func(s *Store) { s.onConflict = fn }
}

func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s.bind(db)
}

func (s *Store) bind(db *gorm.DB) *Store {
	out := &Store{db: db, onConflict: s.onConflict}
	out.Users = NewUserRepository(db)
	out.Categories = NewCategoryRepository(db)
	out.Plans = NewPlanRepository(db)
	out.Goals = NewGoalRepository(db)
	out.Completions = NewCompletionRepository(db, s.onConflict)
	return out
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn with repositories bound to one transaction.
// Any error returned by fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.bind(tx))
	})
}
