package ports

import (
	"context"

	"github.com/teampulse/feedback-desk/internal/core/domain"
)

// Metric names for the four per-role dashboard summary fetches.
const (
	MetricFeedbackCount = "feedback-count"
	MetricPendingAck    = "pending-ack"
	MetricAckRate       = "ack-rate"
	MetricResponseRate  = "response-rate"
	MetricAvgSentiment  = "average-sentiment"
)

// MetricRequest identifies one summary metric for one user.
type MetricRequest struct {
	Role   string
	UserID int
	Name   string
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	AccessToken string
	Profile     domain.UserProfile
}

// SignupInput is the registration payload forwarded to the upstream.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Company  string
	Role     string
}

// CreateFeedbackInput carries a new feedback entry. Tags must already be
// normalized by the caller.
type CreateFeedbackInput struct {
	Member      string
	Strengths   string
	Improvement string
	Sentiment   domain.Sentiment
	Tags        []string
	GivenBy     int
}

// EditFeedbackInput is a full-field replace of an existing feedback entry.
type EditFeedbackInput struct {
	Strengths   string
	Improvement string
	Sentiment   domain.Sentiment
	Tags        []string
}

// ExportedPDF is a server-produced binary artifact. Filename is the name
// suggested by the server's Content-Disposition header, empty when absent.
// The content is never parsed client-side.
type ExportedPDF struct {
	Filename string
	Content  []byte
}

// Upstream is the boundary to the feedback backend. Every authenticated
// call takes the bearer token explicitly; implementations attempt each
// request exactly once and surface failure to the caller.
type Upstream interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Signup(ctx context.Context, in SignupInput) error

	Metric(ctx context.Context, token string, req MetricRequest) (float64, error)
	EmployeeFeedbacks(ctx context.Context, token, employeeName string) ([]domain.Feedback, error)
	ManagerFeedbacks(ctx context.Context, token string, managerID int) ([]domain.Feedback, error)
	TeamMembers(ctx context.Context, token string, managerID int) ([]domain.TeamMember, error)
	Activities(ctx context.Context, token string, managerID int) ([]domain.Activity, error)
	SentimentTrends(ctx context.Context, token string, managerID int) ([]domain.SentimentTrendPoint, error)

	CreateFeedback(ctx context.Context, token string, in CreateFeedbackInput) (*domain.Feedback, error)
	CompleteRequest(ctx context.Context, token, employee string, managerID int) error
	RequestFeedback(ctx context.Context, token, member string) error
	Acknowledge(ctx context.Context, token string, feedbackID int) error
	EditFeedback(ctx context.Context, token string, feedbackID int, in EditFeedbackInput) (*domain.Feedback, error)
	ExportPDF(ctx context.Context, token string, feedbackID int) (*ExportedPDF, error)
}
