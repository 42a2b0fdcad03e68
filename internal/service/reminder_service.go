package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"habit-planner/internal/calendar"
	"habit-planner/internal/model"
	"habit-planner/internal/repository"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	agenda *AgendaService
	plans  *repository.PlanRepository
}

func NewReminderService(agenda *AgendaService, plans *repository.PlanRepository) *ReminderService {
	return &ReminderService{agenda: agenda, plans: plans}
}

// DailySummary renders the user's agenda for date as Telegram HTML.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, date calendar.Date) (string, error) {
	entries, err := s.agenda.Agenda(ctx, user.ID, AgendaQuery{Date: date, Sort: SortPriority})
	if err != nil {
		return "", err
	}
	reminders, err := s.DueReminders(ctx, user.ID, date)
	if err != nil {
		return "", err
	}

	var plans, goals []AgendaEntry
	done := 0
	for _, e := range entries {
		if e.IsCompleted {
			done++
		}
		if e.Kind == model.KindPlan {
			plans = append(plans, e)
		} else {
			goals = append(goals, e)
		}
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Ежедневный отчёт</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s · выполнено %d из %d\n\n", formatDate(date), done, len(entries)))

	builder.WriteString("🔥 <b>Планы на день</b>\n")
	if len(plans) == 0 {
		builder.WriteString("— на сегодня ничего не запланировано\n")
	} else {
		for _, e := range plans {
			builder.WriteString(formatEntry(e))
		}
	}

	builder.WriteString("\n♻️ <b>Регулярные цели</b>\n")
	if len(goals) == 0 {
		builder.WriteString("— нет целей на сегодня\n")
	} else {
		for _, e := range goals {
			builder.WriteString(formatEntry(e))
		}
	}

	if len(reminders) > 0 {
		builder.WriteString("\n⏰ <b>Напоминания</b>\n")
		for _, p := range reminders {
			builder.WriteString(fmt.Sprintf("🔔 %s в %s\n", html.EscapeString(strings.TrimSpace(p.Habit)), html.EscapeString(p.Reminder.Time)))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// DueReminders returns the plans whose reminder fires on date. Plans with an
// invalid rule never fire.
func (s *ReminderService) DueReminders(ctx context.Context, userID uint, date calendar.Date) ([]model.DailyPlan, error) {
	plans, err := s.plans.ListByUser(ctx, userID)
	if err != nil {
		return nil, storageErr("due reminders", err)
	}
	var out []model.DailyPlan
	for _, p := range plans {
		if p.Reminder == nil || p.Rule.Validate() != nil {
			continue
		}
		if p.Reminder.FiresOn(p.Rule, date) {
			out = append(out, p)
		}
	}
	return out, nil
}

func formatEntry(e AgendaEntry) string {
	var sb strings.Builder

	icon := "⬜️"
	if e.IsCompleted {
		icon = "✅"
	}
	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(e.Title))))

	if trimmed := strings.TrimSpace(e.Category); trimmed != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(trimmed)))
	}

	if len(e.Checklist) > 0 {
		checked := 0
		for _, it := range e.Checklist {
			if it.Completed {
				checked++
			}
		}
		sb.WriteString(fmt.Sprintf("\n   ☑️ чек-лист: %d/%d", checked, len(e.Checklist)))
	}

	if bt := blockTimeOf(e.Item); bt != nil {
		sb.WriteString(fmt.Sprintf("\n   🕒 %s–%s", html.EscapeString(bt.Start), html.EscapeString(bt.End)))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func blockTimeOf(item model.Subject) *model.BlockTime {
	switch v := item.(type) {
	case *model.DailyPlan:
		return v.BlockTime
	case *model.RecurringGoal:
		return v.BlockTime
	}
	return nil
}

func formatDate(d calendar.Date) string {
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, int(d.Month), d.Year)
}
