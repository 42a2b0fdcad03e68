package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"habit-planner/internal/calendar"
	"habit-planner/internal/checklist"
	"habit-planner/internal/metrics"
	"habit-planner/internal/model"
	"habit-planner/internal/repository"
)

// SortOrder selects how agenda entries are ordered.
type SortOrder string

const (
	SortCreated  SortOrder = "created"
	SortPriority SortOrder = "priority"
	SortTitle    SortOrder = "title"
)

// ParseSortOrder maps a query value to a SortOrder; empty means creation order.
func ParseSortOrder(raw string) (SortOrder, error) {
	switch s := SortOrder(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return SortCreated, nil
	case SortCreated, SortPriority, SortTitle:
		return s, nil
	default:
		return "", invalidField("sort", "must be one of: created, priority, title")
	}
}

// AgendaQuery narrows the agenda. An empty Kind includes plans and goals.
type AgendaQuery struct {
	Date calendar.Date
	Kind model.SubjectKind
	Sort SortOrder
}

// ItemState is a checklist item together with its completion on the agenda date.
type ItemState struct {
	checklist.Item
	Completed bool `json:"completed"`
}

// AgendaEntry is one due plan or goal with its completion state for the date.
type AgendaEntry struct {
	Kind        model.SubjectKind `json:"kind"`
	ID          uint              `json:"id"`
	Title       string            `json:"title"`
	Category    string            `json:"category"`
	IsCompleted bool              `json:"is_completed"`
	Checklist   []ItemState       `json:"checklist_state,omitempty"`
	Item        model.Subject     `json:"item"`
}

// AgendaService answers "what is due on this date".
type AgendaService struct {
	store   *repository.Store
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewAgendaService(store *repository.Store, log *slog.Logger, m *metrics.Metrics) *AgendaService {
	return &AgendaService{store: store, log: log, metrics: m}
}

// DueItems returns the user's plans and active goals that are due on date, in
// creation order. Entities whose stored rule is invalid are skipped and logged.
func (s *AgendaService) DueItems(ctx context.Context, userID uint, date calendar.Date) ([]model.Subject, error) {
	items, err := s.dueItems(ctx, userID, date, "")
	s.metrics.DueQuery(err)
	return items, err
}

func (s *AgendaService) dueItems(ctx context.Context, userID uint, date calendar.Date, kind model.SubjectKind) ([]model.Subject, error) {
	var candidates []model.Subject
	if kind == "" || kind == model.KindPlan {
		plans, err := s.store.Plans.ListCandidates(ctx, userID, date)
		if err != nil {
			return nil, storageErr("due plans", err)
		}
		for i := range plans {
			candidates = append(candidates, &plans[i])
		}
	}
	if kind == "" || kind == model.KindGoal {
		goals, err := s.store.Goals.ListCandidates(ctx, userID, date)
		if err != nil {
			return nil, storageErr("due goals", err)
		}
		for i := range goals {
			candidates = append(candidates, &goals[i])
		}
	}

	due := make([]model.Subject, 0, len(candidates))
	for _, c := range candidates {
		rule := c.Schedule()
		if err := rule.Validate(); err != nil {
			ref := c.Ref()
			s.log.Error("skipping item with invalid rule", "kind", ref.Kind, "id", ref.ID, "user_id", userID, "err", err)
			s.metrics.InvalidRule(string(ref.Kind))
			continue
		}
		if rule.Due(date) {
			due = append(due, c)
		}
	}
	sortSubjects(due, SortCreated)
	return due, nil
}

// Agenda returns the due items of q.Date with their completion state. It never
// creates completion records.
func (s *AgendaService) Agenda(ctx context.Context, userID uint, q AgendaQuery) ([]AgendaEntry, error) {
	if q.Kind != "" && q.Kind != model.KindPlan && q.Kind != model.KindGoal {
		return nil, invalidField("kind", fmt.Sprintf("unknown kind %q", q.Kind))
	}
	items, err := s.dueItems(ctx, userID, q.Date, q.Kind)
	s.metrics.DueQuery(err)
	if err != nil {
		return nil, err
	}
	sortSubjects(items, q.Sort)

	completions, err := s.store.Completions.ListForDate(ctx, userID, q.Date)
	if err != nil {
		return nil, storageErr("agenda completions", err)
	}

	entries := make([]AgendaEntry, 0, len(items))
	for _, item := range items {
		ref := item.Ref()
		rec := completions[ref]
		entry := AgendaEntry{
			Kind:        ref.Kind,
			ID:          ref.ID,
			Title:       item.Label(),
			Category:    item.CategoryName(),
			IsCompleted: rec.IsCompleted,
			Item:        item,
		}
		for _, it := range item.ChecklistDefinition().Items {
			entry.Checklist = append(entry.Checklist, ItemState{Item: it, Completed: rec.ChecklistCompletions[it.ID]})
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func sortSubjects(items []model.Subject, order SortOrder) {
	byCreation := func(a, b model.Subject) int {
		if c := a.Created().Compare(b.Created()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Ref().Kind, b.Ref().Kind); c != 0 {
			return -c // plans before goals on ties
		}
		return cmp.Compare(a.Ref().ID, b.Ref().ID)
	}

	switch order {
	case SortPriority:
		slices.SortStableFunc(items, func(a, b model.Subject) int {
			if c := cmp.Compare(a.PriorityRank(), b.PriorityRank()); c != 0 {
				return c
			}
			return byCreation(a, b)
		})
	case SortTitle:
		slices.SortStableFunc(items, func(a, b model.Subject) int {
			if c := strings.Compare(strings.ToLower(a.Label()), strings.ToLower(b.Label())); c != 0 {
				return c
			}
			return byCreation(a, b)
		})
	default:
		slices.SortStableFunc(items, byCreation)
	}
}
