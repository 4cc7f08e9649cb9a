package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/teampulse/feedback-desk/internal/api/metrics"
	"github.com/teampulse/feedback-desk/internal/core/domain"
	"github.com/teampulse/feedback-desk/internal/core/ports"
)

// FeedbackService orchestrates every feedback-related network operation and
// reconciles results into a consistent view state. All operations require an
// authenticated session; without one they fail with domain.ErrNoSession
// before any network call.
//
// Every fetch is tagged with the identity it was issued for. A response that
// completes after the session identity changed is discarded instead of
// applied; this guard is what keeps view state correct across logout/login
// while requests are in flight.
type FeedbackService struct {
	upstream    ports.Upstream
	session     ports.SessionReader
	downloadDir string
	log         zerolog.Logger

	mu   sync.Mutex
	view viewState
}

// viewState is the last good data for one identity. Failed refreshes leave
// it untouched so a transient network error never blanks the dashboard.
type viewState struct {
	identity     domain.Identity
	summary      domain.DashboardSummary
	feedbacks    []domain.Feedback
	hasSummary   bool
	hasFeedbacks bool
}

func NewFeedbackService(upstream ports.Upstream, session ports.SessionReader, downloadDir string, log zerolog.Logger) *FeedbackService {
	return &FeedbackService{
		upstream:    upstream,
		session:     session,
		downloadDir: downloadDir,
		log:         log,
	}
}

// SubmitFeedbackInput is a manager's new feedback entry as entered in the
// form. Tags may be unnormalized.
type SubmitFeedbackInput struct {
	Member      string
	Strengths   string
	Improvement string
	Sentiment   domain.Sentiment
	Tags        []string
}

// EditFeedbackInput is a full-field replace of an existing entry.
type EditFeedbackInput struct {
	Strengths   string
	Improvement string
	Sentiment   domain.Sentiment
	Tags        []string
}

// SubmitResult reports the outcome of SubmitFeedback. FollowUpErr carries a
// failure of the secondary request-completion call; the created feedback is
// valid and visible regardless.
type SubmitResult struct {
	Feedback    *domain.Feedback
	FollowUpErr error
}

// ExportResult is a downloaded PDF artifact together with the filename the
// client suggests for it and, when a download directory is configured, the
// path it was saved to.
type ExportResult struct {
	Filename  string
	Content   []byte
	SavedPath string
}

// begin snapshots the acting identity and token. Every operation calls it
// exactly once, before any network traffic.
func (s *FeedbackService) begin() (domain.Identity, string, error) {
	token := s.session.Token()
	if token == "" {
		return domain.Identity{}, "", domain.ErrNoSession
	}
	return s.session.Identity(), token, nil
}

// apply runs fn against the view state if and only if ident is still the
// current session identity. It reports whether the update was applied.
func (s *FeedbackService) apply(ident domain.Identity, fn func(*viewState)) bool {
	if s.session.Identity() != ident {
		metrics.StaleResponsesDiscardedTotal.Inc()
		s.log.Debug().Int("issued_for", ident.UserID).Msg("discarding response issued for a stale identity")
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view.identity != ident {
		s.view = viewState{identity: ident}
	}
	fn(&s.view)
	return true
}

// Reset drops all held view state. Wired to session change notifications so
// a new login starts from a blank dashboard.
func (s *FeedbackService) Reset() {
	s.mu.Lock()
	s.view = viewState{}
	s.mu.Unlock()
}

// summaryMetrics returns the four metric names fetched for a role, in
// display order.
func summaryMetrics(role string) []string {
	if role == domain.RoleManager {
		return []string{ports.MetricFeedbackCount, ports.MetricResponseRate, ports.MetricAvgSentiment, ports.MetricPendingAck}
	}
	return []string{ports.MetricFeedbackCount, ports.MetricPendingAck, ports.MetricAckRate, ports.MetricAvgSentiment}
}

// RefreshSummary issues the four per-role metric requests concurrently and
// joins them all-settled: a single metric's failure defaults that field to
// zero and never fails the others. Loading clears only once every fetch has
// settled.
func (s *FeedbackService) RefreshSummary(ctx context.Context) (domain.DashboardSummary, error) {
	ident, token, err := s.begin()
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	s.apply(ident, func(v *viewState) { v.summary.Loading = true })

	names := summaryMetrics(ident.Role)
	values := make([]float64, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			val, err := s.upstream.Metric(ctx, token, ports.MetricRequest{Role: ident.Role, UserID: ident.UserID, Name: name})
			if err != nil {
				metrics.SummaryMetricFailuresTotal.WithLabelValues(ident.Role, name).Inc()
				s.log.Warn().Err(err).Str("metric", name).Msg("summary metric failed, defaulting to zero")
				return
			}
			values[i] = val
		}(i, name)
	}
	wg.Wait()

	summary := assembleSummary(names, values)
	s.apply(ident, func(v *viewState) {
		v.summary = summary
		v.hasSummary = true
	})
	return summary, nil
}

func assembleSummary(names []string, values []float64) domain.DashboardSummary {
	out := domain.DashboardSummary{Loading: false}
	for i, name := range names {
		switch name {
		case ports.MetricFeedbackCount:
			out.FeedbackCount = int(values[i])
		case ports.MetricPendingAck:
			out.PendingAck = int(values[i])
		case ports.MetricAckRate:
			out.AckRate = values[i]
		case ports.MetricResponseRate:
			out.ResponseRate = values[i]
		case ports.MetricAvgSentiment:
			out.AvgSentiment = values[i]
		}
	}
	return out
}

// FetchFeedbacks lists feedback for the acting identity: received entries
// for an employee (listed by name), given entries for a manager (listed by
// id). The result is sorted newest first as a read-time transform. On
// failure the previously fetched list is preserved.
func (s *FeedbackService) FetchFeedbacks(ctx context.Context) ([]domain.Feedback, error) {
	ident, token, err := s.begin()
	if err != nil {
		return nil, err
	}

	var list []domain.Feedback
	if ident.Role == domain.RoleManager {
		list, err = s.upstream.ManagerFeedbacks(ctx, token, ident.UserID)
	} else {
		list, err = s.upstream.EmployeeFeedbacks(ctx, token, ident.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch feedbacks: %w", err)
	}

	sorted := domain.SortFeedbacksByNewest(list)
	s.apply(ident, func(v *viewState) {
		v.feedbacks = sorted
		v.hasFeedbacks = true
	})
	return sorted, nil
}

// Summary returns the last good summary for the current identity.
func (s *FeedbackService) Summary() (domain.DashboardSummary, bool) {
	ident := s.session.Identity()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view.identity != ident || !s.view.hasSummary {
		return domain.DashboardSummary{}, false
	}
	return s.view.summary, true
}

// Feedbacks returns the last good feedback list for the current identity.
func (s *FeedbackService) Feedbacks() ([]domain.Feedback, bool) {
	ident := s.session.Identity()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view.identity != ident || !s.view.hasFeedbacks {
		return nil, false
	}
	out := make([]domain.Feedback, len(s.view.feedbacks))
	copy(out, s.view.feedbacks)
	return out, true
}

// FetchTeam lists the acting manager's employees with their per-employee
// feedback counters.
func (s *FeedbackService) FetchTeam(ctx context.Context) ([]domain.TeamMember, error) {
	ident, token, err := s.beginManager()
	if err != nil {
		return nil, err
	}
	team, err := s.upstream.TeamMembers(ctx, token, ident.UserID)
	if err != nil {
		return nil, fmt.Errorf("fetch team: %w", err)
	}
	return team, nil
}

// FetchActivities lists the acting manager's recent team activity.
func (s *FeedbackService) FetchActivities(ctx context.Context) ([]domain.Activity, error) {
	ident, token, err := s.beginManager()
	if err != nil {
		return nil, err
	}
	acts, err := s.upstream.Activities(ctx, token, ident.UserID)
	if err != nil {
		return nil, fmt.Errorf("fetch activities: %w", err)
	}
	return acts, nil
}

// FetchSentimentTrends returns the acting manager's twelve-month sentiment
// series for the trend chart.
func (s *FeedbackService) FetchSentimentTrends(ctx context.Context) ([]domain.SentimentTrendPoint, error) {
	ident, token, err := s.beginManager()
	if err != nil {
		return nil, err
	}
	trends, err := s.upstream.SentimentTrends(ctx, token, ident.UserID)
	if err != nil {
		return nil, fmt.Errorf("fetch sentiment trends: %w", err)
	}
	return trends, nil
}

func (s *FeedbackService) beginManager() (domain.Identity, string, error) {
	ident, token, err := s.begin()
	if err != nil {
		return domain.Identity{}, "", err
	}
	if ident.Role != domain.RoleManager {
		return domain.Identity{}, "", domain.ErrForbidden
	}
	return ident, token, nil
}

// RequestFeedback files a feedback request for the acting employee. The
// server pairs it with a manager; the caller re-fetches summary and list to
// observe the new pending state.
func (s *FeedbackService) RequestFeedback(ctx context.Context) error {
	ident, token, err := s.begin()
	if err != nil {
		return err
	}
	if ident.Role != domain.RoleEmployee {
		return domain.ErrForbidden
	}
	if err := s.upstream.RequestFeedback(ctx, token, ident.Name); err != nil {
		return fmt.Errorf("request feedback: %w", err)
	}
	s.log.Info().Str("member", ident.Name).Msg("feedback requested")
	return nil
}

// SubmitFeedback creates a feedback entry and then attempts to mark the
// originating feedback request complete. The two calls are not
// transactional: a failed completion leaves the new feedback visible and
// the request open, reported via SubmitResult.FollowUpErr rather than as a
// failure of the submission itself.
func (s *FeedbackService) SubmitFeedback(ctx context.Context, in SubmitFeedbackInput) (*SubmitResult, error) {
	ident, token, err := s.begin()
	if err != nil {
		return nil, err
	}
	if ident.Role != domain.RoleManager {
		return nil, domain.ErrForbidden
	}

	fb, err := s.upstream.CreateFeedback(ctx, token, ports.CreateFeedbackInput{
		Member:      in.Member,
		Strengths:   in.Strengths,
		Improvement: in.Improvement,
		Sentiment:   in.Sentiment,
		Tags:        domain.NormalizeTags(in.Tags),
		GivenBy:     ident.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("submit feedback: %w", err)
	}
	s.log.Info().Int("feedback_id", fb.ID).Str("member", in.Member).Msg("feedback submitted")

	followUp := s.upstream.CompleteRequest(ctx, token, in.Member, ident.UserID)
	if followUp != nil {
		metrics.RequestCompletionFailuresTotal.Inc()
		s.log.Warn().Err(followUp).Str("member", in.Member).
			Msg("feedback created but request completion failed, request stays open")
	}
	return &SubmitResult{Feedback: fb, FollowUpErr: followUp}, nil
}

// Acknowledge marks a feedback acknowledged. On success the flag is flipped
// optimistically for just that entry so the dashboard updates before the
// authoritative re-fetch resolves; on failure no local change is made.
func (s *FeedbackService) Acknowledge(ctx context.Context, feedbackID int) error {
	ident, token, err := s.begin()
	if err != nil {
		return err
	}
	if ident.Role != domain.RoleEmployee {
		return domain.ErrForbidden
	}
	if err := s.upstream.Acknowledge(ctx, token, feedbackID); err != nil {
		return fmt.Errorf("acknowledge feedback %d: %w", feedbackID, err)
	}

	s.apply(ident, func(v *viewState) {
		for i := range v.feedbacks {
			if v.feedbacks[i].ID == feedbackID {
				v.feedbacks[i].Acknowledged = true
			}
		}
	})
	return nil
}

// EditFeedback replaces all editable fields of an entry. Manager-only.
func (s *FeedbackService) EditFeedback(ctx context.Context, feedbackID int, in EditFeedbackInput) (*domain.Feedback, error) {
	ident, token, err := s.begin()
	if err != nil {
		return nil, err
	}
	if ident.Role != domain.RoleManager {
		return nil, domain.ErrForbidden
	}

	updated, err := s.upstream.EditFeedback(ctx, token, feedbackID, ports.EditFeedbackInput{
		Strengths:   in.Strengths,
		Improvement: in.Improvement,
		Sentiment:   in.Sentiment,
		Tags:        domain.NormalizeTags(in.Tags),
	})
	if err != nil {
		return nil, fmt.Errorf("edit feedback %d: %w", feedbackID, err)
	}

	s.apply(ident, func(v *viewState) {
		for i := range v.feedbacks {
			if v.feedbacks[i].ID == feedbackID {
				v.feedbacks[i] = *updated
			}
		}
	})
	return updated, nil
}

// ExportFeedbackPDF downloads the server-rendered PDF for a feedback entry
// and saves it under the configured download directory. The filename comes
// from the response's Content-Disposition header when present and is
// synthesized from the participants otherwise. The binary is never parsed.
func (s *FeedbackService) ExportFeedbackPDF(ctx context.Context, feedbackID int) (*ExportResult, error) {
	_, token, err := s.begin()
	if err != nil {
		return nil, err
	}

	pdf, err := s.upstream.ExportPDF(ctx, token, feedbackID)
	if err != nil {
		return nil, fmt.Errorf("export feedback %d: %w", feedbackID, err)
	}

	name := sanitizeFilename(pdf.Filename)
	if name == "" {
		name = s.fallbackPDFName(feedbackID)
	}

	res := &ExportResult{Filename: name, Content: pdf.Content}
	if s.downloadDir != "" {
		if err := os.MkdirAll(s.downloadDir, 0o755); err != nil {
			return nil, fmt.Errorf("export feedback %d: %w", feedbackID, err)
		}
		path := filepath.Join(s.downloadDir, name)
		if err := os.WriteFile(path, pdf.Content, 0o644); err != nil {
			return nil, fmt.Errorf("export feedback %d: %w", feedbackID, err)
		}
		res.SavedPath = path
	}
	return res, nil
}

// fallbackPDFName prefers the participant-based name when the entry is in
// the local list, else falls back to the bare id.
func (s *FeedbackService) fallbackPDFName(feedbackID int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fb := range s.view.feedbacks {
		if fb.ID == feedbackID {
			return fb.SuggestedPDFName()
		}
	}
	return fmt.Sprintf("feedback_%d.pdf", feedbackID)
}

// sanitizeFilename strips path components and quote characters from a
// server-supplied filename.
func sanitizeFilename(name string) string {
	name = strings.Trim(strings.TrimSpace(name), `"'`)
	if name == "" {
		return ""
	}
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
