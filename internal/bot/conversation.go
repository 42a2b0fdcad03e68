package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"habit-planner/internal/calendar"
	"habit-planner/internal/model"
	"habit-planner/internal/recurrence"
	"habit-planner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageCategory
	stageFrequency
	stageWeekdays
	stageInterval
	stageStartDate
)

type conversationState struct {
	stage conversationStage
	input service.PlanInput
}

var ruWeekdays = map[string]int{
	"вс": 0, "воскресенье": 0,
	"пн": 1, "понедельник": 1,
	"вт": 2, "вторник": 2,
	"ср": 3, "среда": 3,
	"чт": 4, "четверг": 4,
	"пт": 5, "пятница": 5,
	"сб": 6, "суббота": 6,
}

func newPlanInput() service.PlanInput {
	return service.PlanInput{
		TaskType:       "task",
		EvaluationType: model.EvalYesNo,
		Priority:       model.PriorityShould,
		Category:       noCategory,
	}
}

func (b *Bot) startNewPlanConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle, input: newPlanInput()})
	return b.sendWithReplyMarkup(msg.Chat.ID, "📝 Введи название плана или привычки:", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}
	text := strings.TrimSpace(msg.Text)

	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Название не может быть пустым. Попробуй ещё раз.", cancelKeyboard())
		}
		state.input.Habit = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "Добавь описание или нажми «Пропустить».", skipKeyboard())

	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "Выбери категорию или напиши свою:", categoryKeyboard(b.categoryNames(ctx, msg.From)))

	case stageCategory:
		if !isSkipInput(text) && text != "" {
			state.input.Category = text
		}
		state.stage = stageFrequency
		return b.sendWithReplyMarkup(msg.Chat.ID, "Как часто повторять?", frequencyKeyboard())

	case stageFrequency:
		switch strings.ToLower(text) {
		case strings.ToLower(btnEveryDay):
			state.input.Frequency = string(recurrence.EveryDay)
		case strings.ToLower(btnOnce):
			state.input.Frequency = string(recurrence.OneTime)
		case strings.ToLower(btnWeekdays):
			state.input.Frequency = string(recurrence.DaysOfWeek)
			state.stage = stageWeekdays
			return b.sendWithReplyMarkup(msg.Chat.ID, "Перечисли дни недели через запятую, например: пн, ср, пт", cancelKeyboard())
		case strings.ToLower(btnPeriodic):
			state.input.Frequency = string(recurrence.Periodic)
			state.stage = stageInterval
			return b.sendWithReplyMarkup(msg.Chat.ID, "Через сколько дней повторять? Введи число, например 3.", cancelKeyboard())
		default:
			return b.sendWithReplyMarkup(msg.Chat.ID, "Выбери вариант на клавиатуре.", frequencyKeyboard())
		}
		state.stage = stageStartDate
		return b.askStartDate(msg.Chat.ID)

	case stageWeekdays:
		days, err := parseWeekdays(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Не понял дни. Пример: пн, ср, пт или 1,3,5.", cancelKeyboard())
		}
		state.input.SelectedDays = days
		state.stage = stageStartDate
		return b.askStartDate(msg.Chat.ID)

	case stageInterval:
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 || n > 365 {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Нужно число от 1 до 365.", cancelKeyboard())
		}
		state.input.Interval = n
		state.stage = stageStartDate
		return b.askStartDate(msg.Chat.ID)

	case stageStartDate:
		start, err := parseStartDate(text, b.today())
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Формат даты: ГГГГ-ММ-ДД или ДД.ММ.ГГГГ.", skipKeyboard())
		}
		state.input.StartDate = start.String()
		b.clearConversation(msg.From.ID)
		return b.finishPlanCreation(ctx, msg.From, state.input, msg.Chat.ID)
	}
	return nil
}

func (b *Bot) askStartDate(chatID int64) error {
	return b.sendWithReplyMarkup(chatID, "С какой даты начать? ГГГГ-ММ-ДД, «завтра» или «Пропустить» для сегодня.", skipKeyboard())
}

func (b *Bot) finishPlanCreation(ctx context.Context, from *tgbotapi.User, input service.PlanInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	plan, err := b.svc.Plans.Create(ctx, user.ID, input)
	if err != nil {
		return b.sendTextWithRemove(chatID, fmt.Sprintf("Не удалось создать план: %s", describe(err)))
	}
	b.log.Info("plan created via telegram", "user_id", user.ID, "plan_id", plan.ID)
	text := fmt.Sprintf("✅ План <b>#%d</b> «%s» создан.\n%s", plan.ID, escape(normalizeTitle(plan.Habit)), describeRule(plan.Rule))
	if next, ok := plan.Rule.NextDue(b.today(), 366); ok {
		text += "\n⏭ Ближайший раз: " + formatDay(next)
	}
	return b.sendTextWithRemove(chatID, text)
}

func (b *Bot) categoryNames(ctx context.Context, from *tgbotapi.User) []string {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return nil
	}
	categories, err := b.svc.Categories.List(ctx, user.ID)
	if err != nil {
		b.log.Warn("list categories", "user_id", user.ID, "err", err)
		return nil
	}
	names := make([]string, 0, len(categories))
	for _, cat := range categories {
		names = append(names, cat.Name)
	}
	return names
}

// parseWeekdays accepts Russian short or full names and 0-6 numbers separated by commas or spaces.
func parseWeekdays(text string) ([]int, error) {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("no weekdays in %q", text)
	}
	days := make([]int, 0, len(fields))
	for _, f := range fields {
		if n, ok := ruWeekdays[f]; ok {
			days = append(days, n)
			continue
		}
		wd, err := recurrence.ParseWeekday(f)
		if err != nil {
			return nil, err
		}
		days = append(days, int(wd))
	}
	return recurrence.Rule{SelectedDays: days}.Normalize().SelectedDays, nil
}

func parseStartDate(text string, today calendar.Date) (calendar.Date, error) {
	value := strings.ToLower(strings.TrimSpace(text))
	switch {
	case value == "" || isSkipInput(value) || value == "сегодня":
		return today, nil
	case value == "завтра":
		return today.AddDays(1), nil
	}
	if d, err := calendar.Parse(value); err == nil {
		return d, nil
	}
	var day, month, year int
	if _, err := fmt.Sscanf(value, "%d.%d.%d", &day, &month, &year); err != nil {
		return calendar.Date{}, err
	}
	return calendar.Parse(fmt.Sprintf("%04d-%02d-%02d", year, month, day))
}

var ruWeekdayShort = []string{"вс", "пн", "вт", "ср", "чт", "пт", "сб"}

// describeRule renders a rule as one human line.
func describeRule(r recurrence.Rule) string {
	start := formatDay(r.StartDate)
	switch r.Frequency {
	case recurrence.EveryDay:
		return "🔄 Каждый день с " + start
	case recurrence.DaysOfWeek:
		names := make([]string, 0, len(r.SelectedDays))
		for _, d := range r.SelectedDays {
			if d >= 0 && d < len(ruWeekdayShort) {
				names = append(names, ruWeekdayShort[d])
			}
		}
		return fmt.Sprintf("🔄 По дням: %s, с %s", strings.Join(names, ", "), start)
	case recurrence.Periodic:
		return fmt.Sprintf("🔄 Каждые %d дн. с %s", r.Interval, start)
	case recurrence.OneTime:
		return "📌 Один раз: " + start
	default:
		return fmt.Sprintf("🔄 %s с %s", r.Frequency, start)
	}
}

func formatDay(d calendar.Date) string {
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, int(d.Month), d.Year)
}
