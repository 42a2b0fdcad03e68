package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"habit-planner/internal/calendar"
	"habit-planner/internal/model"
	"habit-planner/internal/service"
)

type refFunc func(id uint) model.SubjectRef

func planRef(id uint) model.SubjectRef { return model.SubjectRef{Kind: model.KindPlan, ID: id} }
func goalRef(id uint) model.SubjectRef { return model.SubjectRef{Kind: model.KindGoal, ID: id} }

// pathID reads the :id parameter. Ids that cannot exist are reported as not found.
func (s *Server) pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		s.fail(c, service.ErrNotFound)
		return 0, false
	}
	return uint(id), true
}

// dateValue parses an optional YYYY-MM-DD value, defaulting to today.
func (s *Server) dateValue(c *gin.Context, field, raw string) (calendar.Date, bool) {
	if raw == "" {
		return s.today(), true
	}
	d, err := calendar.Parse(raw)
	if err != nil {
		s.fail(c, invalid(field, "must be a date in the format 2006-01-02"))
		return calendar.Date{}, false
	}
	return d, true
}

type completionStatusRequest struct {
	Completed *bool  `json:"completed"`
	Date      string `json:"date"`
}

func (s *Server) handleCompletionStatus(ref refFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, found := s.pathID(c)
		if !found {
			return
		}
		var req completionStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badJSON(c, err)
			return
		}
		if req.Completed == nil {
			s.fail(c, invalid("completed", "is required"))
			return
		}
		date, valid := s.dateValue(c, "date", req.Date)
		if !valid {
			return
		}
		rec, err := s.deps.Completions.SetCompletion(c.Request.Context(), currentUser(c), ref(id), date, *req.Completed)
		if err != nil {
			s.fail(c, err)
			return
		}
		ok(c, http.StatusOK, rec)
	}
}

type toggleRequest struct {
	Date string `json:"date"`
}

func (s *Server) handleToggleChecklistItem(ref refFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, found := s.pathID(c)
		if !found {
			return
		}
		var req toggleRequest
		if c.Request.Body != nil && c.Request.Body != http.NoBody {
			if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
				badJSON(c, err)
				return
			}
		}
		if req.Date == "" {
			req.Date = c.Query("date")
		}
		date, valid := s.dateValue(c, "date", req.Date)
		if !valid {
			return
		}
		rec, err := s.deps.Completions.ToggleChecklistItem(c.Request.Context(), currentUser(c), ref(id), date, c.Param("itemId"))
		if err != nil {
			s.fail(c, err)
			return
		}
		ok(c, http.StatusOK, rec)
	}
}

func (s *Server) handleCompletionHistory(ref refFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, found := s.pathID(c)
		if !found {
			return
		}
		to, valid := s.dateValue(c, "to", c.Query("to"))
		if !valid {
			return
		}
		from := to.AddDays(-30)
		if raw := c.Query("from"); raw != "" {
			if from, valid = s.dateValue(c, "from", raw); !valid {
				return
			}
		}
		recs, err := s.deps.Completions.History(c.Request.Context(), currentUser(c), ref(id), from, to)
		if err != nil {
			s.fail(c, err)
			return
		}
		ok(c, http.StatusOK, recs)
	}
}

func (s *Server) handleAddChecklistItem(ref refFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, found := s.pathID(c)
		if !found {
			return
		}
		var in service.ChecklistItemCreate
		if err := c.ShouldBindJSON(&in); err != nil {
			badJSON(c, err)
			return
		}
		item, err := s.deps.Checklists.AddItem(c.Request.Context(), currentUser(c), ref(id), in)
		if err != nil {
			s.fail(c, err)
			return
		}
		ok(c, http.StatusCreated, item)
	}
}

func (s *Server) handleDeleteChecklistItem(ref refFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, found := s.pathID(c)
		if !found {
			return
		}
		if err := s.deps.Checklists.RemoveItem(c.Request.Context(), currentUser(c), ref(id), c.Param("itemId")); err != nil {
			s.fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func (s *Server) handleSuccessCondition(ref refFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, found := s.pathID(c)
		if !found {
			return
		}
		var in service.ConditionInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badJSON(c, err)
			return
		}
		list, err := s.deps.Checklists.UpdateCondition(c.Request.Context(), currentUser(c), ref(id), in)
		if err != nil {
			s.fail(c, err)
			return
		}
		ok(c, http.StatusOK, list)
	}
}

func (s *Server) handleAgenda(c *gin.Context) {
	s.agenda(c, model.SubjectKind(c.Query("kind")))
}

// agenda answers both /agenda and the ?date= form of the plan and goal listings.
func (s *Server) agenda(c *gin.Context, kind model.SubjectKind) {
	date, valid := s.dateValue(c, "date", c.Query("date"))
	if !valid {
		return
	}
	order, err := service.ParseSortOrder(c.Query("sort"))
	if err != nil {
		s.fail(c, err)
		return
	}
	entries, err := s.deps.Agenda.Agenda(c.Request.Context(), currentUser(c), service.AgendaQuery{Date: date, Kind: kind, Sort: order})
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, entries)
}

func (s *Server) handleCategories(c *gin.Context) {
	cats, err := s.deps.Categories.List(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, cats)
}
