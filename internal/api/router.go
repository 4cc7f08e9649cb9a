package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/teampulse/feedback-desk/internal/api/handler"
	"github.com/teampulse/feedback-desk/internal/api/middleware"
	"github.com/teampulse/feedback-desk/internal/core/domain"
	"github.com/teampulse/feedback-desk/internal/core/nav"
	"github.com/teampulse/feedback-desk/internal/core/ports"
	"github.com/teampulse/feedback-desk/internal/core/service"
	"github.com/teampulse/feedback-desk/internal/core/session"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(upstream ports.Upstream, sessionStore *session.Store, svc *service.FeedbackService, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("feedbackdesk"))

	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(upstream, sessionStore)
	dashboardHandler := handler.NewDashboardHandler(svc, sessionStore)
	feedbackHandler := handler.NewFeedbackHandler(svc)

	// --- Auth routes ---
	e.POST("/api/login", authHandler.Login)
	e.POST("/api/signup", authHandler.Signup)
	e.POST("/api/logout", authHandler.Logout)
	e.GET("/api/session", authHandler.Session)

	// --- Navigation probes, gated by the route guard ---
	e.GET(nav.PathSignIn, dashboardHandler.Navigate(nav.PathSignIn))
	e.GET(nav.PathManagerDashboard, dashboardHandler.Navigate(nav.PathManagerDashboard))
	e.GET(nav.PathEmployeeDashboard, dashboardHandler.Navigate(nav.PathEmployeeDashboard))

	// --- Authenticated dashboard API ---
	g := e.Group("/api", middleware.RequireSession(sessionStore))
	g.GET("/summary", dashboardHandler.Summary)
	g.GET("/feedbacks", feedbackHandler.List)
	g.GET("/feedbacks/:id/export", feedbackHandler.Export)

	manager := g.Group("", middleware.RequireRole(sessionStore, domain.RoleManager))
	manager.GET("/team", dashboardHandler.Team)
	manager.GET("/activities", dashboardHandler.Activities)
	manager.GET("/sentiment-trends", dashboardHandler.SentimentTrends)
	manager.POST("/feedbacks", feedbackHandler.Create)
	manager.PUT("/feedbacks/:id", feedbackHandler.Edit)

	employee := g.Group("", middleware.RequireRole(sessionStore, domain.RoleEmployee))
	employee.POST("/feedbacks/request", feedbackHandler.Request)
	employee.PUT("/feedbacks/:id/acknowledge", feedbackHandler.Acknowledge)

	// --- Operational endpoints ---
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
