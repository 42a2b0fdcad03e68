package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"habit-planner/internal/model"
	"habit-planner/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbUndoPrefix     = "undo:"
	cbDeletePrefix   = "delete:"
)

// parseRef reads "12" or "p12" as a plan and "g12" as a goal.
func parseRef(raw string) (model.SubjectRef, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	kind := model.KindPlan
	switch {
	case strings.HasPrefix(value, "g"):
		kind = model.KindGoal
		value = value[1:]
	case strings.HasPrefix(value, "p"):
		value = value[1:]
	}
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil || id == 0 {
		return model.SubjectRef{}, fmt.Errorf("invalid reference %q", raw)
	}
	return model.SubjectRef{Kind: kind, ID: uint(id)}, nil
}

func refToken(ref model.SubjectRef) string {
	if ref.Kind == model.KindGoal {
		return fmt.Sprintf("g%d", ref.ID)
	}
	return fmt.Sprintf("p%d", ref.ID)
}

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendAgenda(ctx, msg.Chat.ID, user)
}

// sendAgenda lists today's plans and goals grouped by category, with a toggle button per entry.
func (b *Bot) sendAgenda(ctx context.Context, chatID int64, user *model.User) error {
	entries, err := b.svc.Agenda.Agenda(ctx, user.ID, service.AgendaQuery{
		Date: b.today(),
		Sort: service.SortPriority,
	})
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить планы: %s", describe(err)))
	}
	if len(entries) == 0 {
		return b.sendText(chatID, "На сегодня ничего не запланировано. Добавь план через /newplan.")
	}

	type categoryGroup struct {
		Name    string
		Entries []service.AgendaEntry
	}
	groups := make(map[string]*categoryGroup)
	order := make([]string, 0, len(entries))
	for _, entry := range entries {
		key, display := normalizedCategory(entry.Category)
		group, ok := groups[key]
		if !ok {
			group = &categoryGroup{Name: display}
			groups[key] = group
			order = append(order, key)
		}
		group.Entries = append(group.Entries, entry)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i] == noCategoryKey {
			return false
		}
		if order[j] == noCategoryKey {
			return true
		}
		return strings.Compare(groups[order[i]].Name, groups[order[j]].Name) < 0
	})

	var builder strings.Builder
	builder.WriteString("📋 <b>На сегодня</b>\n")
	builder.WriteString("Нажми на кнопку, чтобы отметить выполнение или снять отметку.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, key := range order {
		section := groups[key]
		builder.WriteString(fmt.Sprintf("<b>%s</b>\n", section.Name))
		for _, entry := range section.Entries {
			builder.WriteString(formatAgendaEntry(entry))
			buttons = append(buttons, entryButtons(entry))
		}
		builder.WriteByte('\n')
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = b.client.Send(msg)
	return err
}

func formatAgendaEntry(entry service.AgendaEntry) string {
	icon := "⬜️"
	if entry.IsCompleted {
		icon = "✅"
	}
	prefix := "#"
	if entry.Kind == model.KindGoal {
		prefix = "♻️ g"
	}
	line := fmt.Sprintf("%s <b>%s%d</b> %s\n", icon, prefix, entry.ID, escape(normalizeTitle(entry.Title)))
	if len(entry.Checklist) > 0 {
		done := 0
		for _, item := range entry.Checklist {
			if item.Completed {
				done++
			}
		}
		line += fmt.Sprintf("   ☑️ %d/%d\n", done, len(entry.Checklist))
	}
	return line
}

func entryButtons(entry service.AgendaEntry) []tgbotapi.InlineKeyboardButton {
	ref := model.SubjectRef{Kind: entry.Kind, ID: entry.ID}
	var row []tgbotapi.InlineKeyboardButton
	if entry.IsCompleted {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("↩️ "+shortTitle(entry.Title, 20), cbUndoPrefix+refToken(ref)))
	} else {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("✅ "+shortTitle(entry.Title, 20), cbCompletePrefix+refToken(ref)))
	}
	if entry.Kind == model.KindPlan {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить", fmt.Sprintf("%s%d", cbDeletePrefix, entry.ID)))
	}
	return row
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	b.ack(cb, "")
	data := cb.Data
	b.log.Info("callback", "telegram_id", cb.From.ID, "data", data)

	switch {
	case strings.HasPrefix(data, cbCompletePrefix):
		ref, err := parseRef(strings.TrimPrefix(data, cbCompletePrefix))
		if err != nil {
			return nil
		}
		return b.setCompletionAndRefresh(ctx, cb.Message.Chat.ID, cb.From, ref, true)
	case strings.HasPrefix(data, cbUndoPrefix):
		ref, err := parseRef(strings.TrimPrefix(data, cbUndoPrefix))
		if err != nil {
			return nil
		}
		return b.setCompletionAndRefresh(ctx, cb.Message.Chat.ID, cb.From, ref, false)
	case strings.HasPrefix(data, cbDeletePrefix):
		planID, err := strconv.ParseUint(strings.TrimPrefix(data, cbDeletePrefix), 10, 64)
		if err != nil {
			return nil
		}
		return b.askDeleteConfirmation(ctx, cb.Message.Chat.ID, cb.From, uint(planID))
	default:
		return nil
	}
}

func (b *Bot) setCompletionAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, ref model.SubjectRef, completed bool) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	if _, err := b.svc.Completions.SetCompletion(ctx, user.ID, ref, b.today(), completed); err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось обновить отметку: %s", describe(err)))
	}
	return b.sendAgenda(ctx, chatID, user)
}

// handleComplete отмечает план или цель выполненными за сегодня.
func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Укажи номер: /complete 12 или /complete g3 для цели.")
	}
	ref, err := parseRef(args)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Номер должен быть числом, для цели с префиксом g.")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if _, err := b.svc.Completions.SetCompletion(ctx, user.ID, ref, b.today(), true); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendText(msg.Chat.ID, "Не найдено.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось отметить: %s", describe(err)))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🎉 Отмечено: %s", refToken(ref)))
}

// handleDelete удаляет план вместе с историей выполнения.
func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Укажи ID плана: /delete 12")
	}
	planID, err := strconv.ParseUint(args, 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "ID плана должен быть числом.")
	}
	return b.askDeleteConfirmation(ctx, msg.Chat.ID, msg.From, uint(planID))
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, planID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	plan, err := b.svc.Plans.Get(ctx, user.ID, planID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return b.sendText(chatID, "План не найден.")
		}
		return b.sendText(chatID, fmt.Sprintf("Ошибка: %s", describe(err)))
	}
	b.clearConversation(from.ID)
	b.setConfirmation(from.ID, confirmationRequest{planID: planID, action: actionDelete})
	text := fmt.Sprintf("Удалить план <b>#%d</b> «%s» вместе с историей?", plan.ID, escape(normalizeTitle(plan.Habit)))
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	switch {
	case isConfirmInput(msg.Text):
		b.clearConfirmation(msg.From.ID)
		if req.action == actionDelete {
			return b.deletePlan(ctx, msg.Chat.ID, msg.From, req.planID)
		}
		return nil
	case isCancelInput(msg.Text):
		b.clearConfirmation(msg.From.ID)
		return b.sendTextWithRemove(msg.Chat.ID, "Хорошо, ничего не меняю.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Подтверди или отмени действие.", confirmKeyboard())
	}
}

func (b *Bot) deletePlan(ctx context.Context, chatID int64, from *tgbotapi.User, planID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	if err := b.svc.Plans.Delete(ctx, user.ID, planID); err != nil {
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Не удалось удалить план: %s", describe(err)))
	}
	return b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 План #%d удалён.", planID))
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewPlan):
		return true, b.startNewPlanConversation(ctx, msg)
	case strings.ToLower(menuLabelToday):
		return true, b.handleToday(ctx, msg)
	case strings.ToLower(menuLabelCategories):
		return true, b.handleCategories(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}
