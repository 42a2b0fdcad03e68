package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"habit-planner/internal/auth"
	"habit-planner/internal/model"
	"habit-planner/internal/service"
)

const stateCookie = "oauth_state"

type sessionResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (s *Server) issue(c *gin.Context, status int, user *model.User) {
	token, err := s.deps.Tokens.GenerateToken(user.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, status, sessionResponse{User: user, Token: token})
}

func (s *Server) handleRegister(c *gin.Context) {
	var in service.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c, err)
		return
	}
	user, err := s.deps.Users.Register(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.issue(c, http.StatusCreated, user)
}

func (s *Server) handleLogin(c *gin.Context) {
	var in service.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c, err)
		return
	}
	user, err := s.deps.Users.Authenticate(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.issue(c, http.StatusOK, user)
}

func (s *Server) handleGoogleRedirect(c *gin.Context) {
	if s.deps.Google == nil {
		abort(c, http.StatusNotFound, "not_found", "google sign-in is not configured")
		return
	}
	state, err := auth.RandomToken(16)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, "/auth/google", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, s.deps.Google.AuthCodeURL(state))
}

func (s *Server) handleGoogleCallback(c *gin.Context) {
	if s.deps.Google == nil {
		abort(c, http.StatusNotFound, "not_found", "google sign-in is not configured")
		return
	}
	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		abort(c, http.StatusUnauthorized, "unauthorized", "invalid oauth state")
		return
	}
	code := c.Query("code")
	if code == "" {
		abort(c, http.StatusUnauthorized, "unauthorized", "missing authorization code")
		return
	}

	identity, err := s.deps.Google.Exchange(c.Request.Context(), code)
	if err != nil {
		s.deps.Log.Warn("google exchange failed", "err", err)
		abort(c, http.StatusUnauthorized, "unauthorized", "google sign-in failed")
		return
	}
	user, err := s.deps.Users.FederatedSignIn(c.Request.Context(), identity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.SetCookie(stateCookie, "", -1, "/auth/google", "", c.Request.TLS != nil, true)
	s.issue(c, http.StatusOK, user)
}

func (s *Server) handleUser(c *gin.Context) {
	user, err := s.deps.Users.Profile(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, user)
}

func (s *Server) handleUpdateGender(c *gin.Context) {
	var in service.GenderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c, err)
		return
	}
	user, err := s.deps.Users.UpdateGender(c.Request.Context(), currentUser(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, user)
}

// handleLogout only acknowledges; session tokens are stateless and the client drops them.
func (s *Server) handleLogout(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"message": "logged out"})
}
