package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habit-planner/internal/model"
)

func TestDailySummary(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	plan, err := e.plans.Create(ctx, u.ID, checklistPlanInput("<morning>", "water", "stretch"))
	require.NoError(t, err)
	_, err = e.completions.ToggleChecklistItem(ctx, u.ID, plan.Ref(), day, plan.Checklist.IDs()[0])
	require.NoError(t, err)

	summary, err := e.reminders.DailySummary(ctx, *u, day)
	require.NoError(t, err)
	assert.Contains(t, summary, "04.03.2024 · выполнено 0 из 1")
	assert.Contains(t, summary, "⬜️ &lt;morning&gt; <i>(Health)</i>")
	assert.Contains(t, summary, "чек-лист: 1/2")
	assert.Contains(t, summary, "нет целей на сегодня")
	assert.NotContains(t, summary, "Напоминания")
}

func TestDueReminders(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u := e.user(t, "ann")

	withReminder := func(habit string, r ReminderInput) {
		in := planInput(habit)
		in.AddReminder = true
		in.Reminder = &r
		_, err := e.plans.Create(ctx, u.ID, in)
		require.NoError(t, err)
	}
	withReminder("monday", ReminderInput{Enabled: true, Time: "08:00", Type: model.ReminderNotification, Schedule: model.ReminderSpecificDays, SelectedWeekDays: []int{1}})
	withReminder("tuesday", ReminderInput{Enabled: true, Time: "08:00", Type: model.ReminderNotification, Schedule: model.ReminderSpecificDays, SelectedWeekDays: []int{2}})
	withReminder("muted", ReminderInput{Enabled: true, Time: "08:00", Type: model.ReminderDontRemind, Schedule: model.ReminderAlways})
	_, err := e.plans.Create(ctx, u.ID, planInput("no reminder"))
	require.NoError(t, err)

	plans, err := e.reminders.DueReminders(ctx, u.ID, day)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "monday", plans[0].Habit)

	summary, err := e.reminders.DailySummary(ctx, *u, day)
	require.NoError(t, err)
	assert.Contains(t, summary, "🔔 monday в 08:00")
}
