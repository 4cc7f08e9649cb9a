package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/teampulse/feedback-desk/internal/core/domain"
	"github.com/teampulse/feedback-desk/internal/core/nav"
	"github.com/teampulse/feedback-desk/internal/core/ports"
	"github.com/teampulse/feedback-desk/internal/core/session"
)

// AuthHandler signs users in and out against the upstream and keeps the
// session store in step.
type AuthHandler struct {
	upstream ports.Upstream
	session  *session.Store
}

func NewAuthHandler(upstream ports.Upstream, sessionStore *session.Store) *AuthHandler {
	return &AuthHandler{upstream: upstream, session: sessionStore}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Remember bool   `json:"remember"`
}

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Company  string `json:"company" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=manager employee"`
}

type sessionResponse struct {
	Authenticated bool                `json:"authenticated"`
	User          *domain.UserProfile `json:"user,omitempty"`
	Path          string              `json:"path,omitempty"`
}

// Login authenticates against the upstream and establishes the local
// session under the tier chosen by remember. The response carries the
// dashboard path the guard routes this role to.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.upstream.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	if err := h.session.Login(c.Request().Context(), result.Profile, req.Remember, result.AccessToken); err != nil {
		return err
	}

	user := result.Profile
	dest := nav.Guard(true, user.Role, "/")
	return c.JSON(http.StatusOK, sessionResponse{Authenticated: true, User: &user, Path: dest.Path})
}

// Signup registers a new account. The user signs in afterwards; no session
// is established here.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	err := h.upstream.Signup(c.Request().Context(), ports.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Company:  req.Company,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"message": "signup successful, please sign in"})
}

// Logout clears the session from both storage tiers.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.session.Logout(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "signed out"})
}

// Session reports the current session snapshot.
func (h *AuthHandler) Session(c echo.Context) error {
	resp := sessionResponse{Authenticated: h.session.IsAuthenticated(), User: h.session.User()}
	if resp.User != nil {
		if home, ok := nav.HomePath(resp.User.Role); ok {
			resp.Path = home
		}
	}
	return c.JSON(http.StatusOK, resp)
}
