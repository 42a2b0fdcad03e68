package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"habit-planner/internal/model"
	"habit-planner/internal/service"
)

func (s *Server) handleListGoals(c *gin.Context) {
	if c.Query("date") != "" {
		s.agenda(c, model.KindGoal)
		return
	}
	goals, err := s.deps.Goals.List(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, goals)
}

func (s *Server) handleListDeletedGoals(c *gin.Context) {
	goals, err := s.deps.Goals.ListDeleted(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(c *gin.Context) {
	var in service.GoalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c, err)
		return
	}
	goal, err := s.deps.Goals.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, goal)
}

func (s *Server) handleGetGoal(c *gin.Context) {
	id, found := s.pathID(c)
	if !found {
		return
	}
	goal, err := s.deps.Goals.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, goal)
}

func (s *Server) handleUpdateGoal(c *gin.Context) {
	id, found := s.pathID(c)
	if !found {
		return
	}
	var in service.GoalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c, err)
		return
	}
	goal, err := s.deps.Goals.Update(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, goal)
}

func (s *Server) handleDeleteGoal(c *gin.Context) {
	id, found := s.pathID(c)
	if !found {
		return
	}
	if err := s.deps.Goals.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRestoreGoal(c *gin.Context) {
	id, found := s.pathID(c)
	if !found {
		return
	}
	goal, err := s.deps.Goals.Restore(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, goal)
}
