package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/teampulse/feedback-desk/internal/core/nav"
	"github.com/teampulse/feedback-desk/internal/core/ports"
	"github.com/teampulse/feedback-desk/internal/core/service"
)

// DashboardHandler serves the per-role dashboard views: navigation probes,
// the summary card metrics, and the manager-only panels.
type DashboardHandler struct {
	svc     *service.FeedbackService
	session ports.SessionReader
}

func NewDashboardHandler(svc *service.FeedbackService, session ports.SessionReader) *DashboardHandler {
	return &DashboardHandler{svc: svc, session: session}
}

// Navigate returns a handler that gates one path through the route guard:
// 302 to the guard's redirect target, or the resolved path when allowed.
func (h *DashboardHandler) Navigate(requested string) echo.HandlerFunc {
	return func(c echo.Context) error {
		role := ""
		if u := h.session.Identity(); u.Role != "" {
			role = u.Role
		}
		decision := nav.Guard(h.session.IsAuthenticated(), role, requested)
		if !decision.Allowed {
			return c.Redirect(http.StatusFound, decision.Path)
		}
		return c.JSON(http.StatusOK, map[string]string{"path": decision.Path})
	}
}

// Summary refreshes and returns the four-metric dashboard summary.
func (h *DashboardHandler) Summary(c echo.Context) error {
	summary, err := h.svc.RefreshSummary(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// Team lists the manager's employees with feedback counters.
func (h *DashboardHandler) Team(c echo.Context) error {
	team, err := h.svc.FetchTeam(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, team)
}

// Activities lists the manager's recent team activity.
func (h *DashboardHandler) Activities(c echo.Context) error {
	acts, err := h.svc.FetchActivities(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, acts)
}

// SentimentTrends returns the twelve-month sentiment series for the chart.
func (h *DashboardHandler) SentimentTrends(c echo.Context) error {
	trends, err := h.svc.FetchSentimentTrends(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, trends)
}
