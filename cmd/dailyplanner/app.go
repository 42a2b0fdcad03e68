package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"habit-planner/internal/auth"
	"habit-planner/internal/bot"
	"habit-planner/internal/config"
	"habit-planner/internal/httpapi"
	"habit-planner/internal/metrics"
	"habit-planner/internal/repository"
	"habit-planner/internal/service"
)

// app holds the wired services shared by every command.
type app struct {
	cfg      config.Config
	log      *slog.Logger
	store    *repository.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	users       *service.UserService
	plans       *service.PlanService
	goals       *service.GoalService
	checklists  *service.ChecklistService
	completions *service.CompletionService
	agenda      *service.AgendaService
	categories  *service.CategoryService
	reminders   *service.ReminderService
}

func newApp(cfg config.Config) (*app, error) {
	log := cfg.NewLogger()
	slog.SetDefault(log)

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	store := repository.NewStore(db, repository.WithConflictHook(m.CompletionConflict))
	agenda := service.NewAgendaService(store, log, m)
	return &app{
		cfg:         cfg,
		log:         log,
		store:       store,
		registry:    registry,
		metrics:     m,
		users:       service.NewUserService(store, log),
		plans:       service.NewPlanService(store, log),
		goals:       service.NewGoalService(store, log),
		checklists:  service.NewChecklistService(store),
		completions: service.NewCompletionService(store, log, m),
		agenda:      agenda,
		categories:  service.NewCategoryService(store.Categories),
		reminders:   service.NewReminderService(agenda, store.Plans),
	}, nil
}

func (a *app) Close() {
	if sqlDB, err := a.store.DB().DB(); err == nil {
		sqlDB.Close()
	}
}

func (a *app) httpServer() *httpapi.Server {
	deps := httpapi.Deps{
		Users:       a.users,
		Plans:       a.plans,
		Goals:       a.goals,
		Checklists:  a.checklists,
		Completions: a.completions,
		Agenda:      a.agenda,
		Categories:  a.categories,
		Tokens:      auth.NewManager(a.cfg.JWTSecret, a.cfg.TokenTTL),
		Metrics:     a.metrics,
		Gatherer:    a.registry,
		Log:         a.log.With("component", "http"),
		Location:    a.cfg.Location,
	}
	if a.cfg.GoogleEnabled() {
		deps.Google = auth.NewGoogleProvider(a.cfg.GoogleClientID, a.cfg.GoogleClientSecret, a.cfg.GoogleRedirectURL)
	}
	return httpapi.New(deps)
}

func (a *app) telegramBot() (*bot.Bot, error) {
	return bot.New(a.cfg.TelegramToken, bot.Services{
		Users:       a.users,
		Plans:       a.plans,
		Completions: a.completions,
		Agenda:      a.agenda,
		Categories:  a.categories,
		Reminders:   a.reminders,
		Metrics:     a.metrics,
		Location:    a.cfg.Location,
	}, a.log.With("component", "bot"))
}

// Report modes for the scheduled digest.
const (
	reportDaily    = "daily"
	reportInterval = "interval"
)

// scheduleBotJobs registers the digest and the per-minute reminder check.
func (a *app) scheduleBotJobs(scheduler *service.SchedulerService, b *bot.Bot, mode string) error {
	digest := func(ctx context.Context) error {
		jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := b.SendDailyReports(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("send reports: %w", err)
		}
		return nil
	}

	switch mode {
	case reportDaily:
		if _, err := scheduler.ScheduleDaily("digest", a.cfg.DigestTime, digest); err != nil {
			return fmt.Errorf("schedule digest: %w", err)
		}
	case reportInterval:
		if _, err := scheduler.ScheduleInterval("digest", a.cfg.ReportInterval, digest); err != nil {
			return fmt.Errorf("schedule reports: %w", err)
		}
	default:
		return fmt.Errorf("unknown report mode %q, want %s or %s", mode, reportDaily, reportInterval)
	}

	_, err := scheduler.ScheduleEveryMinute("reminders", func(ctx context.Context) error {
		return b.SendReminders(ctx, time.Now())
	})
	return err
}
