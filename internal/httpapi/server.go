// Package httpapi exposes the planner over JSON/HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"habit-planner/internal/auth"
	"habit-planner/internal/calendar"
	"habit-planner/internal/metrics"
	"habit-planner/internal/service"
)

// Deps are the collaborators of the HTTP surface. Google and Gatherer are optional.
type Deps struct {
	Users       *service.UserService
	Plans       *service.PlanService
	Goals       *service.GoalService
	Checklists  *service.ChecklistService
	Completions *service.CompletionService
	Agenda      *service.AgendaService
	Categories  *service.CategoryService

	Tokens   *auth.Manager
	Google   *auth.GoogleProvider
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Log      *slog.Logger
	Location *time.Location

	// AuthLimit and AuthBurst throttle /register and /login per client IP.
	AuthLimit rate.Limit
	AuthBurst int
}

// Server is the planner HTTP server.
type Server struct {
	deps   Deps
	router *gin.Engine
}

func New(deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.AuthLimit == 0 {
		deps.AuthLimit = rate.Every(6 * time.Second)
	}
	if deps.AuthBurst == 0 {
		deps.AuthBurst = 5
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(deps.Log), observe(deps.Metrics))

	s := &Server{deps: deps, router: router}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	limited := r.Group("/", throttle(newIPLimiters(s.deps.AuthLimit, s.deps.AuthBurst)))
	{
		limited.POST("/register", s.handleRegister)
		limited.POST("/login", s.handleLogin)
	}
	r.GET("/auth/google", s.handleGoogleRedirect)
	r.GET("/auth/google/callback", s.handleGoogleCallback)

	api := r.Group("/", authRequired(s.deps.Tokens))
	{
		api.GET("/user", s.handleUser)
		api.GET("/user/profile", s.handleUser)
		api.PUT("/user/gender", s.handleUpdateGender)
		api.POST("/logout", s.handleLogout)

		api.GET("/agenda", s.handleAgenda)
		api.GET("/categories", s.handleCategories)

		plans := api.Group("/daily-plans")
		{
			plans.GET("", s.handleListPlans)
			plans.POST("", s.handleCreatePlan)
			plans.GET("/:id", s.handleGetPlan)
			plans.PUT("/:id", s.handleUpdatePlan)
			plans.DELETE("/:id", s.handleDeletePlan)
		}
		s.subjectRoutes(plans, planRef)

		goals := api.Group("/recurring-goals")
		{
			goals.GET("", s.handleListGoals)
			goals.POST("", s.handleCreateGoal)
			goals.GET("/deleted", s.handleListDeletedGoals)
			goals.GET("/:id", s.handleGetGoal)
			goals.PUT("/:id", s.handleUpdateGoal)
			goals.DELETE("/:id", s.handleDeleteGoal)
			goals.POST("/:id/restore", s.handleRestoreGoal)
		}
		s.subjectRoutes(goals, goalRef)
	}
}

// subjectRoutes registers the checklist and completion routes shared by plans and goals.
func (s *Server) subjectRoutes(g *gin.RouterGroup, ref refFunc) {
	g.PUT("/:id/completion-status", s.handleCompletionStatus(ref))
	g.GET("/:id/completions", s.handleCompletionHistory(ref))
	g.POST("/:id/checklist-items", s.handleAddChecklistItem(ref))
	g.DELETE("/:id/checklist-items/:itemId", s.handleDeleteChecklistItem(ref))
	g.PUT("/:id/checklist-items/:itemId/toggle", s.handleToggleChecklistItem(ref))
	g.PUT("/:id/checklist/success-condition", s.handleSuccessCondition(ref))
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) today() calendar.Date {
	return calendar.Today(s.deps.Location)
}
