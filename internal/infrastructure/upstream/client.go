// Package upstream implements the REST boundary to the feedback backend.
// Requests are attempted exactly once; timeouts are whatever the configured
// http.Client imposes. Non-success responses decode the server's
// {"detail": "..."} envelope into a domain.StatusError.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/teampulse/feedback-desk/internal/api/metrics"
	"github.com/teampulse/feedback-desk/internal/core/domain"
	"github.com/teampulse/feedback-desk/internal/core/ports"
)

// Client talks to the feedback backend. It satisfies ports.Upstream.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

// Login authenticates with the form-encoded OAuth2 password flow the
// backend expects: the email travels in the username field.
func (c *Client) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out loginResponse
	if err := c.do("login", req, &out); err != nil {
		return nil, err
	}
	return &ports.LoginResult{
		AccessToken: out.AccessToken,
		Profile:     domain.UserProfile{ID: out.ID, Name: out.Name, Role: out.Role},
	}, nil
}

func (c *Client) Signup(ctx context.Context, in ports.SignupInput) error {
	body := signupRequest{Name: in.Name, Email: in.Email, Password: in.Password, Company: in.Company, Role: in.Role}
	return c.sendJSON(ctx, "signup", http.MethodPost, "", "/signup", body, nil)
}

// metricEndpoints maps each role's metrics onto the backend's URL space and
// the JSON field each endpoint uses for its value.
var metricEndpoints = map[string]map[string]metricEndpoint{
	domain.RoleEmployee: {
		ports.MetricFeedbackCount: {path: "/employee/%d/feedbacks/count", field: "feedback_received"},
		ports.MetricPendingAck:    {path: "/employee/%d/feedbacks/pending-ack", field: "pending_acknowledgments"},
		ports.MetricAckRate:       {path: "/employee/%d/feedbacks/ack-rate", field: "acknowledgment_rate"},
		ports.MetricAvgSentiment:  {path: "/employee/%d/feedbacks/average-sentiment", field: "average_sentiment"},
	},
	domain.RoleManager: {
		ports.MetricFeedbackCount: {path: "/manager/%d/feedbacks/count", field: "total_feedback_given"},
		ports.MetricResponseRate:  {path: "/manager/%d/team/response-rate", field: "response_rate"},
		ports.MetricAvgSentiment:  {path: "/manager/%d/feedbacks/average-sentiment", field: "average_sentiment"},
		ports.MetricPendingAck:    {path: "/manager/%d/feedbacks/pending-ack", field: "pending_acknowledgments"},
	},
}

// Metric fetches one summary metric. An absent field in a success response
// counts as zero, mirroring the dashboard's default-zero fallback.
func (c *Client) Metric(ctx context.Context, token string, req ports.MetricRequest) (float64, error) {
	ep, ok := metricEndpoints[req.Role][req.Name]
	if !ok {
		return 0, fmt.Errorf("metric %q not defined for role %q", req.Name, req.Role)
	}

	var body map[string]json.Number
	if err := c.getJSON(ctx, "metric_"+req.Name, token, fmt.Sprintf(ep.path, req.UserID), &body); err != nil {
		return 0, err
	}
	num, ok := body[ep.field]
	if !ok {
		return 0, nil
	}
	val, err := num.Float64()
	if err != nil {
		return 0, fmt.Errorf("metric %s: field %s: %w", req.Name, ep.field, err)
	}
	return val, nil
}

func (c *Client) EmployeeFeedbacks(ctx context.Context, token, employeeName string) ([]domain.Feedback, error) {
	var out []domain.Feedback
	path := "/employee/" + url.PathEscape(employeeName) + "/feedbacks"
	if err := c.getJSON(ctx, "employee_feedbacks", token, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ManagerFeedbacks(ctx context.Context, token string, managerID int) ([]domain.Feedback, error) {
	var out []domain.Feedback
	if err := c.getJSON(ctx, "manager_feedbacks", token, fmt.Sprintf("/manager/%d/feedbacks-given", managerID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) TeamMembers(ctx context.Context, token string, managerID int) ([]domain.TeamMember, error) {
	var out []domain.TeamMember
	if err := c.getJSON(ctx, "team_members", token, fmt.Sprintf("/manager/%d/employees", managerID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Activities(ctx context.Context, token string, managerID int) ([]domain.Activity, error) {
	var out []domain.Activity
	if err := c.getJSON(ctx, "activities", token, fmt.Sprintf("/manager/%d/activities", managerID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SentimentTrends(ctx context.Context, token string, managerID int) ([]domain.SentimentTrendPoint, error) {
	var out []domain.SentimentTrendPoint
	if err := c.getJSON(ctx, "sentiment_trends", token, fmt.Sprintf("/manager/%d/feedbacks/sentiment-trends", managerID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateFeedback(ctx context.Context, token string, in ports.CreateFeedbackInput) (*domain.Feedback, error) {
	body := createFeedbackRequest{
		Member:       in.Member,
		Strengths:    in.Strengths,
		Improvement:  in.Improvement,
		Sentiment:    string(in.Sentiment),
		Tags:         in.Tags,
		GivenBy:      in.GivenBy,
		Acknowledged: false,
	}
	var out domain.Feedback
	if err := c.sendJSON(ctx, "create_feedback", http.MethodPost, token, "/feedback", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CompleteRequest(ctx context.Context, token, employee string, managerID int) error {
	body := completeRequestRequest{Employee: employee, ManagerID: managerID}
	return c.sendJSON(ctx, "complete_request", http.MethodPut, token, "/feedback_request/complete", body, nil)
}

func (c *Client) RequestFeedback(ctx context.Context, token, member string) error {
	return c.sendJSON(ctx, "request_feedback", http.MethodPost, token, "/feedback/request", requestFeedbackRequest{Member: member}, nil)
}

func (c *Client) Acknowledge(ctx context.Context, token string, feedbackID int) error {
	return c.sendJSON(ctx, "acknowledge", http.MethodPut, token, fmt.Sprintf("/feedback/%d/acknowledge", feedbackID), nil, nil)
}

func (c *Client) EditFeedback(ctx context.Context, token string, feedbackID int, in ports.EditFeedbackInput) (*domain.Feedback, error) {
	body := editFeedbackRequest{
		Strengths:   in.Strengths,
		Improvement: in.Improvement,
		Sentiment:   string(in.Sentiment),
		Tags:        in.Tags,
	}
	var out domain.Feedback
	if err := c.sendJSON(ctx, "edit_feedback", http.MethodPut, token, fmt.Sprintf("/feedback/%d", feedbackID), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportPDF downloads the rendered PDF. The filename parameter of a
// Content-Disposition header is passed through untouched; extraction of a
// usable local name is the caller's concern.
func (c *Client) ExportPDF(ctx context.Context, token string, feedbackID int) (*ports.ExportedPDF, error) {
	const op = "export_pdf"
	req, err := c.newRequest(ctx, http.MethodGet, token, fmt.Sprintf("/feedback/%d/export-pdf", feedbackID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.roundTrip(op, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(op, resp)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(op, "success").Inc()

	return &ports.ExportedPDF{
		Filename: dispositionFilename(resp.Header.Get("Content-Disposition")),
		Content:  content,
	}, nil
}

// dispositionFilename extracts the filename parameter from a
// Content-Disposition header, empty when the header is missing or
// malformed.
func dispositionFilename(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func (c *Client) newRequest(ctx context.Context, method, token, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, op, token, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, token, path, nil)
	if err != nil {
		return err
	}
	return c.do(op, req, out)
}

func (c *Client) sendJSON(ctx context.Context, op, method, token, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, method, token, path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(op, req, out)
}

// do sends the request, decodes a success body into out when out is
// non-nil, and turns any non-2xx response into a domain.StatusError.
func (c *Client) do(op string, req *http.Request, out any) error {
	resp, err := c.roundTrip(op, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(op, resp)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(op, "success").Inc()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) roundTrip(op string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(op, "error").Inc()
		c.log.Warn().Err(err).Str("operation", op).Msg("upstream request failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil
}

func (c *Client) statusError(op string, resp *http.Response) error {
	metrics.UpstreamRequestsTotal.WithLabelValues(op, "error").Inc()

	var env detailEnvelope
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&env)
	c.log.Warn().Str("operation", op).Int("status", resp.StatusCode).Str("detail", env.Detail).Msg("upstream returned error status")
	return fmt.Errorf("%s: %w", op, &domain.StatusError{StatusCode: resp.StatusCode, Detail: env.Detail})
}
