package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"habit-planner/internal/calendar"
	"habit-planner/internal/metrics"
	"habit-planner/internal/model"
	"habit-planner/internal/recurrence"
	"habit-planner/internal/repository"
)

type testEnv struct {
	store       *repository.Store
	plans       *PlanService
	goals       *GoalService
	checklists  *ChecklistService
	completions *CompletionService
	agenda      *AgendaService
	reminders   *ReminderService
	users       *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "planner.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	m := metrics.New(prometheus.NewRegistry())
	store := repository.NewStore(db, repository.WithConflictHook(m.CompletionConflict))
	agenda := NewAgendaService(store, log, m)
	return &testEnv{
		store:       store,
		plans:       NewPlanService(store, log),
		goals:       NewGoalService(store, log),
		checklists:  NewChecklistService(store),
		completions: NewCompletionService(store, log, m),
		agenda:      agenda,
		reminders:   NewReminderService(agenda, store.Plans),
		users:       NewUserService(store, log),
	}
}

func (e *testEnv) user(t *testing.T, name string) *model.User {
	t.Helper()
	u := &model.User{Name: name, PasswordHash: "x"}
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	return u
}

func planInput(habit string) PlanInput {
	return PlanInput{
		Category:       "Health",
		TaskType:       "habit",
		EvaluationType: model.EvalYesNo,
		Habit:          habit,
		RuleInput:      RuleInput{Frequency: string(recurrence.EveryDay), StartDate: "2024-03-01"},
		Priority:       model.PriorityShould,
	}
}

func checklistPlanInput(habit string, texts ...string) PlanInput {
	in := planInput(habit)
	in.EvaluationType = model.EvalChecklist
	in.Checklist = &ChecklistInput{SuccessCondition: "all"}
	for _, text := range texts {
		in.Checklist.Items = append(in.Checklist.Items, ChecklistItemInput{Text: text})
	}
	return in
}

var day = calendar.New(2024, time.March, 4)

func TestPlanCreateValidation(t *testing.T) {
	e := newTestEnv(t)
	u := e.user(t, "ann")

	in := planInput("read")
	in.EvaluationType = model.EvalNumeric
	in.Frequency = string(recurrence.DaysOfWeek)
	in.SelectedDays = []int{1, 9}
	in.AddReminder = true
	in.Reminder = &ReminderInput{Time: "25:00", Type: model.ReminderNotification, Schedule: model.ReminderAlways}

	_, err := e.plans.Create(context.Background(), u.ID, in)
	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "numeric_target")
	assert.Contains(t, verr.Fields, "reminder.time")

	in.NumericTarget = &NumericTargetInput{Condition: "at-least", Value: 8}
	in.Reminder.Time = "08:30"
	_, err = e.plans.Create(context.Background(), u.ID, in)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{"selected_days[1]": "out of range 0-6 for specific-days-week"}, verr.Fields)
}

func TestPlanCreateStoresCategoryAndReminder(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	in := planInput("stretch")
	in.AddReminder = true
	in.Reminder = &ReminderInput{Enabled: true, Time: "07:00", Type: model.ReminderAlarm, Schedule: model.ReminderAlways}
	plan, err := e.plans.Create(ctx, u.ID, in)
	require.NoError(t, err)

	got, err := e.plans.Get(ctx, u.ID, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Reminder)
	assert.Equal(t, "07:00", got.Reminder.Time)

	cats, err := e.store.Categories.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Health", cats[0].Name)
}

func TestPlanCreateRollsBackOnFailure(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	err := e.store.DB().Callback().Create().Before("gorm:create").Register("test:fail_reminders", func(db *gorm.DB) {
		if db.Statement.Schema != nil && db.Statement.Schema.Table == "plan_reminders" {
			db.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	in := planInput("stretch")
	in.Category = "Fresh"
	in.AddReminder = true
	in.Reminder = &ReminderInput{Enabled: true, Time: "07:00", Type: model.ReminderAlarm, Schedule: model.ReminderAlways}
	_, err = e.plans.Create(ctx, u.ID, in)
	require.ErrorIs(t, err, ErrPersistence)

	plans, err := e.plans.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, plans)
	cats, err := e.store.Categories.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestPlanUpdateAndDelete(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")
	other := e.user(t, "bob")

	plan, err := e.plans.Create(ctx, u.ID, planInput("read"))
	require.NoError(t, err)

	next := planInput("read more")
	next.Frequency = string(recurrence.Periodic)
	next.Interval = 3
	_, err = e.plans.Update(ctx, other.ID, plan.ID, next)
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := e.plans.Update(ctx, u.ID, plan.ID, next)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, updated.ID)
	assert.Equal(t, recurrence.Periodic, updated.Frequency)
	assert.Equal(t, plan.CreatedAt.Unix(), updated.CreatedAt.Unix())

	_, err = e.completions.SetCompletion(ctx, u.ID, updated.Ref(), day, true)
	require.NoError(t, err)

	assert.ErrorIs(t, e.plans.Delete(ctx, other.ID, plan.ID), ErrNotFound)
	require.NoError(t, e.plans.Delete(ctx, u.ID, plan.ID))
	_, err = e.plans.Get(ctx, u.ID, plan.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	recs, err := e.store.Completions.ListForDate(ctx, u.ID, day)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSetCompletionIsAsymmetric(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	plan, err := e.plans.Create(ctx, u.ID, checklistPlanInput("morning", "water", "stretch"))
	require.NoError(t, err)
	ids := plan.Checklist.IDs()
	require.Len(t, ids, 2)

	rec, err := e.completions.SetCompletion(ctx, u.ID, plan.Ref(), day, true)
	require.NoError(t, err)
	assert.True(t, rec.IsCompleted)
	assert.Equal(t, map[string]bool{ids[0]: true, ids[1]: true}, rec.ChecklistCompletions)

	rec, err = e.completions.SetCompletion(ctx, u.ID, plan.Ref(), day, false)
	require.NoError(t, err)
	assert.False(t, rec.IsCompleted)
	assert.Equal(t, map[string]bool{ids[0]: true, ids[1]: true}, rec.ChecklistCompletions)
}

func TestToggleChecklistItemRecomputesFlag(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	plan, err := e.plans.Create(ctx, u.ID, checklistPlanInput("morning", "water", "stretch"))
	require.NoError(t, err)
	ids := plan.Checklist.IDs()

	rec, err := e.completions.ToggleChecklistItem(ctx, u.ID, plan.Ref(), day, ids[0])
	require.NoError(t, err)
	assert.False(t, rec.IsCompleted)

	rec, err = e.completions.ToggleChecklistItem(ctx, u.ID, plan.Ref(), day, ids[1])
	require.NoError(t, err)
	assert.True(t, rec.IsCompleted)

	rec, err = e.completions.ToggleChecklistItem(ctx, u.ID, plan.Ref(), day, ids[1])
	require.NoError(t, err)
	assert.False(t, rec.IsCompleted)
	assert.False(t, rec.ChecklistCompletions[ids[1]])
}

func TestToggleUnknownItemWritesNothing(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	plan, err := e.plans.Create(ctx, u.ID, checklistPlanInput("morning", "water"))
	require.NoError(t, err)

	_, err = e.completions.ToggleChecklistItem(ctx, u.ID, plan.Ref(), day, "nope")
	require.ErrorIs(t, err, ErrNotFound)

	recs, err := e.store.Completions.ListForDate(ctx, u.ID, day)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRemovedItemsSurviveInRecords(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	plan, err := e.plans.Create(ctx, u.ID, checklistPlanInput("morning", "water", "stretch"))
	require.NoError(t, err)
	ids := plan.Checklist.IDs()

	_, err = e.completions.ToggleChecklistItem(ctx, u.ID, plan.Ref(), day, ids[0])
	require.NoError(t, err)
	require.NoError(t, e.checklists.RemoveItem(ctx, u.ID, plan.Ref(), ids[0]))
	assert.ErrorIs(t, e.checklists.RemoveItem(ctx, u.ID, plan.Ref(), ids[0]), ErrNotFound)

	rec, err := e.completions.GetOrCreate(ctx, u.ID, plan.Ref(), day)
	require.NoError(t, err)
	assert.True(t, rec.ChecklistCompletions[ids[0]])

	// Only the remaining item decides the flag now.
	rec, err = e.completions.ToggleChecklistItem(ctx, u.ID, plan.Ref(), day, ids[1])
	require.NoError(t, err)
	assert.True(t, rec.IsCompleted)
}

func TestChecklistEditing(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	plan, err := e.plans.Create(ctx, u.ID, checklistPlanInput("morning", "water"))
	require.NoError(t, err)

	item, err := e.checklists.AddItem(ctx, u.ID, plan.Ref(), ChecklistItemCreate{Text: "read"})
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)

	list, err := e.checklists.UpdateCondition(ctx, u.ID, plan.Ref(), ConditionInput{SuccessCondition: "number", Number: 1})
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)

	_, err = e.checklists.UpdateCondition(ctx, u.ID, plan.Ref(), ConditionInput{SuccessCondition: "number"})
	assert.ErrorIs(t, err, ErrValidation)

	rec, err := e.completions.ToggleChecklistItem(ctx, u.ID, plan.Ref(), day, item.ID)
	require.NoError(t, err)
	assert.True(t, rec.IsCompleted)
}

func TestCompletionOwnership(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")
	other := e.user(t, "bob")

	plan, err := e.plans.Create(ctx, u.ID, planInput("read"))
	require.NoError(t, err)

	_, err = e.completions.SetCompletion(ctx, other.ID, plan.Ref(), day, true)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.completions.GetOrCreate(ctx, other.ID, plan.Ref(), day)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.completions.GetOrCreate(ctx, u.ID, model.SubjectRef{Kind: "task", ID: plan.ID}, day)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompletionHistory(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	plan, err := e.plans.Create(ctx, u.ID, planInput("read"))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := e.completions.SetCompletion(ctx, u.ID, plan.Ref(), day.AddDays(i), true)
		require.NoError(t, err)
	}

	recs, err := e.completions.History(ctx, u.ID, plan.Ref(), day.AddDays(1), day.AddDays(5))
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = e.completions.History(ctx, u.ID, plan.Ref(), day, day.AddDays(-1))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAgendaSkipsInvalidRulesAndCreatesNothing(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	good, err := e.plans.Create(ctx, u.ID, planInput("read"))
	require.NoError(t, err)

	broken := &model.DailyPlan{
		UserID:         u.ID,
		Habit:          "broken",
		EvaluationType: model.EvalYesNo,
		Rule:           recurrence.Rule{Frequency: recurrence.DaysOfWeek, SelectedDays: []int{12}, StartDate: calendar.New(2024, time.March, 1)},
	}
	require.NoError(t, e.store.Plans.Create(ctx, broken))

	items, err := e.agenda.DueItems(ctx, u.ID, day)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, good.Ref(), items[0].Ref())

	entries, err := e.agenda.Agenda(ctx, u.ID, AgendaQuery{Date: day})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsCompleted)

	recs, err := e.store.Completions.ListForDate(ctx, u.ID, day)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestAgendaFlexibleAndRange(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	flexible := planInput("anytime")
	flexible.Frequency = string(recurrence.OneTime)
	flexible.StartDate = "2024-06-01"
	flexible.IsFlexible = true
	_, err := e.plans.Create(ctx, u.ID, flexible)
	require.NoError(t, err)

	ended := planInput("ended")
	ended.EndDate = "2024-03-02"
	_, err = e.plans.Create(ctx, u.ID, ended)
	require.NoError(t, err)

	items, err := e.agenda.DueItems(ctx, u.ID, day)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "anytime", items[0].Label())
}

func TestAgendaOrderingAndOverlay(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	could := planInput("b-could")
	could.Priority = model.PriorityCould
	p1, err := e.plans.Create(ctx, u.ID, could)
	require.NoError(t, err)

	must := planInput("c-must")
	must.Priority = model.PriorityMust
	_, err = e.plans.Create(ctx, u.ID, must)
	require.NoError(t, err)

	goal, err := e.goals.Create(ctx, u.ID, GoalInput{
		Title:     "a-goal",
		Priority:  model.PriorityImportant,
		RuleInput: RuleInput{Frequency: string(recurrence.EveryDay), StartDate: "2024-03-01"},
	})
	require.NoError(t, err)

	_, err = e.completions.SetCompletion(ctx, u.ID, p1.Ref(), day, true)
	require.NoError(t, err)

	labels := func(entries []AgendaEntry) []string {
		out := make([]string, len(entries))
		for i, en := range entries {
			out[i] = en.Title
		}
		return out
	}

	byPriority, err := e.agenda.Agenda(ctx, u.ID, AgendaQuery{Date: day, Sort: SortPriority})
	require.NoError(t, err)
	assert.Equal(t, []string{"c-must", "a-goal", "b-could"}, labels(byPriority))
	assert.True(t, byPriority[2].IsCompleted)

	byTitle, err := e.agenda.Agenda(ctx, u.ID, AgendaQuery{Date: day, Sort: SortTitle})
	require.NoError(t, err)
	assert.Equal(t, []string{"a-goal", "b-could", "c-must"}, labels(byTitle))

	goalsOnly, err := e.agenda.Agenda(ctx, u.ID, AgendaQuery{Date: day, Kind: model.KindGoal})
	require.NoError(t, err)
	require.Len(t, goalsOnly, 1)
	assert.Equal(t, goal.ID, goalsOnly[0].ID)

	_, err = e.agenda.Agenda(ctx, u.ID, AgendaQuery{Date: day, Kind: "task"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGoalSoftDeleteAndRestore(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	goal, err := e.goals.Create(ctx, u.ID, GoalInput{
		Title:     "run",
		RuleInput: RuleInput{Frequency: string(recurrence.EveryDay), StartDate: "2024-03-01"},
	})
	require.NoError(t, err)
	assert.True(t, goal.IsActive)
	assert.Equal(t, model.EvalYesNo, goal.EvaluationType)

	_, err = e.completions.SetCompletion(ctx, u.ID, goal.Ref(), day, true)
	require.NoError(t, err)

	require.NoError(t, e.goals.Delete(ctx, u.ID, goal.ID))
	items, err := e.agenda.DueItems(ctx, u.ID, day)
	require.NoError(t, err)
	assert.Empty(t, items)
	deleted, err := e.goals.ListDeleted(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, deleted, 1)

	restored, err := e.goals.Restore(ctx, u.ID, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, goal.ID, restored.ID)

	entries, err := e.agenda.Agenda(ctx, u.ID, AgendaQuery{Date: day})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsCompleted)
}

func TestGoalFromLegacyRepetition(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	goal, err := e.goals.Create(ctx, u.ID, GoalInput{
		Title: "gym",
		Repetition: &recurrence.LegacyRepetition{
			IsRecurring:    true,
			SelectedOption: "Weekly",
			SelectedDays:   recurrence.LegacyDays{"Monday", "Thursday"},
			SelectedDate:   "2024-03-01",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, recurrence.DaysOfWeek, goal.Frequency)
	assert.Equal(t, []int{1, 4}, goal.SelectedDays)

	_, err = e.goals.Create(ctx, u.ID, GoalInput{
		Title:      "both",
		RuleInput:  RuleInput{Frequency: string(recurrence.EveryDay), StartDate: "2024-03-01"},
		Repetition: &recurrence.LegacyRepetition{IsRecurring: true, SelectedOption: "Daily"},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "repetition")
}

func TestBackfillLegacyRules(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	legacy := &model.RecurringGoal{
		UserID:         u.ID,
		Title:          "legacy",
		EvaluationType: model.EvalYesNo,
		IsActive:       true,
		Repetition:     &recurrence.LegacyRepetition{IsRecurring: true, SelectedOption: "Daily", SelectedDate: "2024-03-01"},
	}
	require.NoError(t, e.store.Goals.Create(ctx, legacy))

	bad := &model.RecurringGoal{
		UserID:         u.ID,
		Title:          "bad",
		EvaluationType: model.EvalYesNo,
		IsActive:       true,
		Repetition:     &recurrence.LegacyRepetition{IsRecurring: true, SelectedOption: "Fortnightly", SelectedDate: "2024-03-01"},
	}
	require.NoError(t, e.store.Goals.Create(ctx, bad))

	nthWeekday := &model.RecurringGoal{
		UserID:         u.ID,
		Title:          "second tuesday of march",
		EvaluationType: model.EvalYesNo,
		IsActive:       true,
		Repetition: &recurrence.LegacyRepetition{
			IsRecurring: true, SelectedOption: "Yearly", SelectedDate: "2024-01-10",
			SelectedMonth: "March", WeekOfMonth: "second", DayOfWeek: "Tuesday",
		},
	}
	require.NoError(t, e.store.Goals.Create(ctx, nthWeekday))

	report, err := e.goals.BackfillLegacyRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Converted)
	assert.Contains(t, report.Failed, bad.ID)
	assert.Contains(t, report.Failed[nthWeekday.ID], "weekOfMonth")

	got, err := e.goals.Get(ctx, u.ID, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, recurrence.EveryDay, got.Frequency)
	assert.Nil(t, got.Repetition)

	report, err = e.goals.BackfillLegacyRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Converted)
	assert.Len(t, report.Failed, 2)
}

func TestUserRegisterAndAuthenticate(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	u, err := e.users.Register(ctx, RegisterInput{Name: "Ann", Email: "Ann@Example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", *u.Email)

	_, err = e.users.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrValidation)

	got, err := e.users.Authenticate(ctx, LoginInput{Email: "ann@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = e.users.Authenticate(ctx, LoginInput{Email: "ann@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = e.users.Authenticate(ctx, LoginInput{Email: "nobody@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	updated, err := e.users.UpdateGender(ctx, u.ID, GenderInput{Gender: model.GenderFemale})
	require.NoError(t, err)
	assert.Equal(t, model.GenderFemale, updated.Gender)
}

func TestFieldKey(t *testing.T) {
	assert.Equal(t, "reminder.time", fieldKey("PlanInput.reminder.time"))
	assert.Equal(t, "start_date", fieldKey("PlanInput.RuleInput.start_date"))
	assert.Equal(t, "checklist.items[0].text", fieldKey("GoalInput.checklist.items[0].text"))
}
