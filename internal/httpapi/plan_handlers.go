package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"habit-planner/internal/calendar"
	"habit-planner/internal/model"
	"habit-planner/internal/service"
)

// nextDueHorizon bounds the search for a plan's next occurrence, in days.
const nextDueHorizon = 366

// planView is a listed plan with its next occurrence from today.
type planView struct {
	*model.DailyPlan
	NextDue *calendar.Date `json:"next_due,omitempty"`
}

// handleListPlans lists every plan, or the plans due on ?date= with their state.
func (s *Server) handleListPlans(c *gin.Context) {
	if c.Query("date") != "" {
		s.agenda(c, model.KindPlan)
		return
	}
	plans, err := s.deps.Plans.List(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	today := s.today()
	views := make([]planView, len(plans))
	for i := range plans {
		views[i] = planView{DailyPlan: &plans[i]}
		if next, found := plans[i].Rule.NextDue(today, nextDueHorizon); found {
			views[i].NextDue = &next
		}
	}
	ok(c, http.StatusOK, views)
}

func (s *Server) handleCreatePlan(c *gin.Context) {
	var in service.PlanInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c, err)
		return
	}
	plan, err := s.deps.Plans.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, plan)
}

func (s *Server) handleGetPlan(c *gin.Context) {
	id, found := s.pathID(c)
	if !found {
		return
	}
	plan, err := s.deps.Plans.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, plan)
}

func (s *Server) handleUpdatePlan(c *gin.Context) {
	id, found := s.pathID(c)
	if !found {
		return
	}
	var in service.PlanInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c, err)
		return
	}
	plan, err := s.deps.Plans.Update(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, plan)
}

func (s *Server) handleDeletePlan(c *gin.Context) {
	id, found := s.pathID(c)
	if !found {
		return
	}
	if err := s.deps.Plans.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
