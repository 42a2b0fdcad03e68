package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"habit-planner/internal/service"
)

type errorBody struct {
	Status  string            `json:"status"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"status": "success", "data": data})
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{Status: "error", Code: code, Message: message})
}

// fail maps a service error onto a status code and the error body.
func (s *Server) fail(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorBody{
			Status:  "error",
			Code:    "validation_failed",
			Message: "the given data was invalid",
			Errors:  verr.Fields,
		})
	case errors.Is(err, service.ErrNotFound):
		abort(c, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, service.ErrUnauthorized):
		abort(c, http.StatusUnauthorized, "unauthorized", "invalid credentials")
	default:
		s.deps.Log.Error("request failed", "path", c.FullPath(), "err", err)
		abort(c, http.StatusInternalServerError, "persistence_failure", "something went wrong, nothing was saved")
	}
}

func badJSON(c *gin.Context, err error) {
	abort(c, http.StatusBadRequest, "invalid_json", err.Error())
}

func invalid(field, msg string) *service.ValidationError {
	return &service.ValidationError{Fields: map[string]string{field: msg}}
}
