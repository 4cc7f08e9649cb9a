package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/teampulse/feedback-desk/internal/core/domain"
	"github.com/teampulse/feedback-desk/internal/core/service"
)

// FeedbackHandler drives the feedback lifecycle: list, create, request,
// acknowledge, edit, export.
type FeedbackHandler struct {
	svc *service.FeedbackService
}

func NewFeedbackHandler(svc *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

type createFeedbackPayload struct {
	Member      string   `json:"member" validate:"required"`
	Strengths   string   `json:"strengths" validate:"required"`
	Improvement string   `json:"improvement" validate:"required"`
	Sentiment   string   `json:"sentiment" validate:"required,oneof=Positive Neutral Negative"`
	Tags        []string `json:"tags"`
}

// editFeedbackPayload mirrors the edit dialog: tags arrive as freeform
// comma-delimited text.
type editFeedbackPayload struct {
	Strengths   string `json:"strengths" validate:"required"`
	Improvement string `json:"improvement" validate:"required"`
	Sentiment   string `json:"sentiment" validate:"required,oneof=Positive Neutral Negative"`
	Tags        string `json:"tags"`
}

type submitResponse struct {
	Feedback         *domain.Feedback `json:"feedback"`
	RequestCompleted bool             `json:"request_completed"`
}

// List returns the acting identity's feedback entries, newest first.
func (h *FeedbackHandler) List(c echo.Context) error {
	list, err := h.svc.FetchFeedbacks(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Create submits a new feedback entry and reports whether the matching
// feedback request could be marked complete. A failed completion is not an
// error; the request simply stays open.
func (h *FeedbackHandler) Create(c echo.Context) error {
	var req createFeedbackPayload
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.SubmitFeedback(c.Request().Context(), service.SubmitFeedbackInput{
		Member:      req.Member,
		Strengths:   req.Strengths,
		Improvement: req.Improvement,
		Sentiment:   domain.Sentiment(req.Sentiment),
		Tags:        req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, submitResponse{
		Feedback:         result.Feedback,
		RequestCompleted: result.FollowUpErr == nil,
	})
}

// Request files a feedback request for the acting employee.
func (h *FeedbackHandler) Request(c echo.Context) error {
	if err := h.svc.RequestFeedback(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"message": "feedback request sent"})
}

// Acknowledge marks one feedback entry acknowledged.
func (h *FeedbackHandler) Acknowledge(c echo.Context) error {
	id, err := feedbackID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Acknowledge(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "feedback acknowledged"})
}

// Edit replaces all editable fields of one feedback entry.
func (h *FeedbackHandler) Edit(c echo.Context) error {
	id, err := feedbackID(c)
	if err != nil {
		return err
	}
	var req editFeedbackPayload
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updated, err := h.svc.EditFeedback(c.Request().Context(), id, service.EditFeedbackInput{
		Strengths:   req.Strengths,
		Improvement: req.Improvement,
		Sentiment:   domain.Sentiment(req.Sentiment),
		Tags:        domain.SplitTags(req.Tags),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

// Export streams the server-rendered PDF for one feedback entry with the
// filename the controller resolved for it.
func (h *FeedbackHandler) Export(c echo.Context) error {
	id, err := feedbackID(c)
	if err != nil {
		return err
	}
	result, err := h.svc.ExportFeedbackPDF(c.Request().Context(), id)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+result.Filename+`"`)
	return c.Blob(http.StatusOK, "application/pdf", result.Content)
}

func feedbackID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid feedback id")
	}
	return id, nil
}
