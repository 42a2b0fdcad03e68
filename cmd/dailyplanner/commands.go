package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"habit-planner/internal/calendar"
	"habit-planner/internal/config"
	"habit-planner/internal/model"
	"habit-planner/internal/service"
)

func loadApp(needBot, needHTTP bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(needBot, needHTTP); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return newApp(cfg)
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	var (
		withBot    bool
		reportMode string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, optionally together with the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(withBot, true)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext(cmd)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			if withBot {
				b, err := a.telegramBot()
				if err != nil {
					return err
				}
				scheduler := service.NewSchedulerService(a.cfg.Location, a.log)
				if err := a.scheduleBotJobs(scheduler, b, reportMode); err != nil {
					return err
				}
				scheduler.Start(ctx)
				defer scheduler.Stop()
				g.Go(func() error {
					return b.Start(ctx)
				})
			}
			g.Go(func() error {
				return a.httpServer().Run(ctx, a.cfg.HTTPAddr)
			})

			a.log.Info("daily planner started", "addr", a.cfg.HTTPAddr, "bot", withBot)
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.log.Info("shutdown complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&withBot, "bot", false, "also run the Telegram bot and its scheduled jobs")
	cmd.Flags().StringVar(&reportMode, "report-mode", reportDaily, "digest schedule: daily (DIGEST_TIME) or interval (REPORT_INTERVAL_HOURS)")
	return cmd
}

func botCmd() *cobra.Command {
	var reportMode string
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run only the Telegram bot with its digest and reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(true, false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext(cmd)
			defer stop()

			b, err := a.telegramBot()
			if err != nil {
				return err
			}
			scheduler := service.NewSchedulerService(a.cfg.Location, a.log)
			if err := a.scheduleBotJobs(scheduler, b, reportMode); err != nil {
				return err
			}
			scheduler.Start(ctx)
			defer scheduler.Stop()

			a.log.Info("daily planner bot started")
			if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("bot stopped with error: %w", err)
			}
			a.log.Info("shutdown complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&reportMode, "report-mode", reportInterval, "digest schedule: daily (DIGEST_TIME) or interval (REPORT_INTERVAL_HOURS)")
	return cmd
}

func dueCmd() *cobra.Command {
	var (
		userID uint
		date   string
		sortBy string
		kind   string
	)
	cmd := &cobra.Command{
		Use:   "due",
		Short: "Print what is due for a user on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == 0 {
				return errors.New("--user is required")
			}
			a, err := loadApp(false, false)
			if err != nil {
				return err
			}
			defer a.Close()

			day := calendar.Today(a.cfg.Location)
			if date != "" {
				if day, err = calendar.Parse(date); err != nil {
					return err
				}
			}
			order, err := service.ParseSortOrder(sortBy)
			if err != nil {
				return err
			}
			q := service.AgendaQuery{Date: day, Sort: order}
			switch kind {
			case "", "all":
			case string(model.KindPlan), string(model.KindGoal):
				q.Kind = model.SubjectKind(kind)
			default:
				return fmt.Errorf("--kind must be plan, goal or all")
			}

			entries, err := a.agenda.Agenda(cmd.Context(), userID, q)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "KIND\tID\tDONE\tTITLE\tCATEGORY\n")
			for _, e := range entries {
				done := " "
				if e.IsCompleted {
					done = "x"
				}
				fmt.Fprintf(w, "%s\t%d\t[%s]\t%s\t%s\n", e.Kind, e.ID, done, e.Title, e.Category)
			}
			return w.Flush()
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "user id")
	cmd.Flags().StringVar(&date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&sortBy, "sort", "", "created, priority or title")
	cmd.Flags().StringVar(&kind, "kind", "all", "plan, goal or all")
	return cmd
}

func backfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Convert goals still stored with a legacy repetition into rule columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(false, false)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.goals.BackfillLegacyRules(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "converted: %d\nfailed: %d\n", report.Converted, len(report.Failed))
			ids := make([]uint, 0, len(report.Failed))
			for id := range report.Failed {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			for _, id := range ids {
				fmt.Fprintf(out, "  goal %d: %s\n", id, report.Failed[id])
			}
			return nil
		},
	}
}
