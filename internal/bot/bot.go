package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"habit-planner/internal/calendar"
	"habit-planner/internal/metrics"
	"habit-planner/internal/model"
	"habit-planner/internal/repository"
	"habit-planner/internal/service"
)

// client is the part of the Telegram API the bot talks to.
type client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Services are the planner operations the bot exposes.
type Services struct {
	Users       *service.UserService
	Plans       *service.PlanService
	Completions *service.CompletionService
	Agenda      *service.AgendaService
	Categories  *service.CategoryService
	Reminders   *service.ReminderService
	Metrics     *metrics.Metrics
	Location    *time.Location
}

type confirmationAction int

const (
	actionDelete confirmationAction = iota
)

type confirmationRequest struct {
	planID uint
	action confirmationAction
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api    *tgbotapi.BotAPI
	client client
	svc    Services
	log    *slog.Logger

	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(token string, svc Services, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := newBot(api, svc, log)
	b.api = api
	b.log.Info("bot authorized", "account", api.Self.UserName)
	return b, nil
}

func newBot(c client, svc Services, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}
	if svc.Location == nil {
		svc.Location = time.Local
	}
	return &Bot{
		client:        c,
		svc:           svc,
		log:           log,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot is not connected to telegram")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.Error("handle callback", "err", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error("handle message", "err", err)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён. Я здесь, чтобы начать заново.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.Info("command", "telegram_id", msg.From.ID, "command", msg.Command(), "args", msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /newplan, чтобы добавить план, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "newplan", "newtask":
		return b.startNewPlanConversation(ctx, msg)
	case "today", "tasks":
		return b.handleToday(ctx, msg)
	case "complete":
		return b.handleComplete(ctx, msg)
	case "categories":
		return b.handleCategories(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я планировщик привычек: помогу не забыть, что запланировано на сегодня.</b>\n\nКоманды:\n"+
			"• /newplan — добавить новый план\n"+
			"• /today — планы и цели на сегодня\n"+
			"• /complete &lt;id&gt; — отметить план выполненным\n"+
			"• /categories — список категорий\n"+
			"• /report — ежедневный отчёт\n"+
			"• /help — подсказки\n"+
			"• /cancel — отменить текущий ввод",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• /newplan — добавить план пошагово\n" +
		"• /today — что запланировано на сегодня, отметки по кнопкам\n" +
		"• /complete &lt;id&gt; — отметить план по номеру (например, /complete 3, для цели /complete g3)\n" +
		"• /delete &lt;id&gt; — удалить план вместе с историей\n" +
		"• /categories — посмотреть категории\n" +
		"• /report — прислать ежедневный отчёт сейчас\n" +
		"• /cancel — отменить текущий ввод"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.svc.Reminders.DailySummary(ctx, *user, b.today())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось сформировать отчёт: %s", describe(err)))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleCategories(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	categories, err := b.svc.Categories.List(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Не удалось получить категории: %s", describe(err)))
	}
	if len(categories) == 0 {
		return b.sendText(msg.Chat.ID, "Категории пока пусты. Добавь их при создании плана.")
	}
	var builder strings.Builder
	builder.WriteString("📂 <b>Категории</b>\n")
	for _, cat := range categories {
		builder.WriteString(fmt.Sprintf("• %s · планов: %d, целей: %d\n", categoryLabel(cat.Name), cat.Plans, cat.Goals))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

// SendDailyReports sends a summary to every user reachable through Telegram.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.svc.Users.TelegramRecipients(ctx)
	if err != nil {
		return err
	}
	today := b.today()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if user.TelegramID == nil {
			continue
		}
		text, err := b.svc.Reminders.DailySummary(ctx, user, today)
		if err != nil {
			b.log.Error("build summary", "user_id", user.ID, "err", err)
			b.svc.Metrics.ReportSent(err)
			continue
		}
		err = b.sendText(*user.TelegramID, text)
		b.svc.Metrics.ReportSent(err)
		if err != nil {
			b.log.Error("send summary", "user_id", user.ID, "err", err)
		}
	}
	return nil
}

// SendReminders notifies about plans whose reminder is set to the minute of now.
func (b *Bot) SendReminders(ctx context.Context, now time.Time) error {
	users, err := b.svc.Users.TelegramRecipients(ctx)
	if err != nil {
		return err
	}
	now = now.In(b.svc.Location)
	date := calendar.FromTime(now)
	clock := now.Format("15:04")
	for _, user := range users {
		if user.TelegramID == nil {
			continue
		}
		plans, err := b.svc.Reminders.DueReminders(ctx, user.ID, date)
		if err != nil {
			b.log.Error("due reminders", "user_id", user.ID, "err", err)
			continue
		}
		for _, plan := range plans {
			if plan.Reminder.Time != clock {
				continue
			}
			text := fmt.Sprintf("🔔 Напоминание: <b>%s</b> (#%d)", escape(normalizeTitle(plan.Habit)), plan.ID)
			if err := b.sendText(*user.TelegramID, text); err != nil {
				b.log.Error("send reminder", "user_id", user.ID, "plan_id", plan.ID, "err", err)
			}
		}
	}
	return nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.svc.Users.TelegramUser(ctx, repository.TelegramProfile{
		ID:        from.ID,
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Username:  from.UserName,
	})
}

func (b *Bot) today() calendar.Date {
	return calendar.Today(b.svc.Location)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.client.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.client.Send(msg); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(chatID)
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.client.Send(msg)
	return err
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "🔹 Главное меню")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.client.Send(msg)
	return err
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.client.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		b.log.Warn("callback ack", "err", err)
	}
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

// describe turns a service error into a short message for the chat.
func describe(err error) string {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		parts := make([]string, 0, len(verr.Fields))
		for field, msg := range verr.Fields {
			parts = append(parts, field+": "+msg)
		}
		sort.Strings(parts)
		return escape(strings.Join(parts, "; "))
	case errors.Is(err, service.ErrNotFound):
		return "не найдено"
	default:
		return "внутренняя ошибка, попробуй позже"
	}
}
