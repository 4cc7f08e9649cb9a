package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/teampulse/feedback-desk/internal/core/domain"
	"github.com/teampulse/feedback-desk/internal/core/ports"
)

// fakeSession is a controllable ports.SessionReader. Tests mutate it
// mid-operation to exercise the stale-identity guard.
type fakeSession struct {
	mu    sync.Mutex
	ident domain.Identity
	token string
}

func (f *fakeSession) set(ident domain.Identity, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ident = ident
	f.token = token
}

func (f *fakeSession) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token != ""
}

func (f *fakeSession) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeSession) Identity() domain.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ident
}

// stubUpstream implements ports.Upstream through overridable hooks.
type stubUpstream struct {
	login             func(email, password string) (*ports.LoginResult, error)
	metric            func(req ports.MetricRequest) (float64, error)
	employeeFeedbacks func(name string) ([]domain.Feedback, error)
	managerFeedbacks  func(id int) ([]domain.Feedback, error)
	createFeedback    func(in ports.CreateFeedbackInput) (*domain.Feedback, error)
	completeRequest   func(employee string, managerID int) error
	requestFeedback   func(member string) error
	acknowledge       func(id int) error
	editFeedback      func(id int, in ports.EditFeedbackInput) (*domain.Feedback, error)
	exportPDF         func(id int) (*ports.ExportedPDF, error)
}

func (s *stubUpstream) Login(_ context.Context, email, password string) (*ports.LoginResult, error) {
	if s.login == nil {
		return nil, errors.New("login not stubbed")
	}
	return s.login(email, password)
}

func (s *stubUpstream) Signup(context.Context, ports.SignupInput) error { return nil }

func (s *stubUpstream) Metric(_ context.Context, _ string, req ports.MetricRequest) (float64, error) {
	if s.metric == nil {
		return 0, nil
	}
	return s.metric(req)
}

func (s *stubUpstream) EmployeeFeedbacks(_ context.Context, _ string, name string) ([]domain.Feedback, error) {
	if s.employeeFeedbacks == nil {
		return nil, nil
	}
	return s.employeeFeedbacks(name)
}

func (s *stubUpstream) ManagerFeedbacks(_ context.Context, _ string, id int) ([]domain.Feedback, error) {
	if s.managerFeedbacks == nil {
		return nil, nil
	}
	return s.managerFeedbacks(id)
}

func (s *stubUpstream) TeamMembers(context.Context, string, int) ([]domain.TeamMember, error) {
	return nil, nil
}

func (s *stubUpstream) Activities(context.Context, string, int) ([]domain.Activity, error) {
	return nil, nil
}

func (s *stubUpstream) SentimentTrends(context.Context, string, int) ([]domain.SentimentTrendPoint, error) {
	return nil, nil
}

func (s *stubUpstream) CreateFeedback(_ context.Context, _ string, in ports.CreateFeedbackInput) (*domain.Feedback, error) {
	if s.createFeedback == nil {
		return &domain.Feedback{}, nil
	}
	return s.createFeedback(in)
}

func (s *stubUpstream) CompleteRequest(_ context.Context, _ string, employee string, managerID int) error {
	if s.completeRequest == nil {
		return nil
	}
	return s.completeRequest(employee, managerID)
}

func (s *stubUpstream) RequestFeedback(_ context.Context, _ string, member string) error {
	if s.requestFeedback == nil {
		return nil
	}
	return s.requestFeedback(member)
}

func (s *stubUpstream) Acknowledge(_ context.Context, _ string, id int) error {
	if s.acknowledge == nil {
		return nil
	}
	return s.acknowledge(id)
}

func (s *stubUpstream) EditFeedback(_ context.Context, _ string, id int, in ports.EditFeedbackInput) (*domain.Feedback, error) {
	if s.editFeedback == nil {
		return &domain.Feedback{}, nil
	}
	return s.editFeedback(id, in)
}

func (s *stubUpstream) ExportPDF(_ context.Context, _ string, id int) (*ports.ExportedPDF, error) {
	if s.exportPDF == nil {
		return &ports.ExportedPDF{}, nil
	}
	return s.exportPDF(id)
}

var (
	employee42 = domain.Identity{UserID: 42, Name: "Alice", Role: domain.RoleEmployee}
	employee43 = domain.Identity{UserID: 43, Name: "Bob", Role: domain.RoleEmployee}
	manager7   = domain.Identity{UserID: 7, Name: "Carol", Role: domain.RoleManager}
)

func newTestService(up *stubUpstream, sess *fakeSession) *FeedbackService {
	return NewFeedbackService(up, sess, "", zerolog.Nop())
}

func TestRefreshSummary_NoSession(t *testing.T) {
	svc := newTestService(&stubUpstream{}, &fakeSession{})
	if _, err := svc.RefreshSummary(context.Background()); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRefreshSummary_Employee(t *testing.T) {
	sess := &fakeSession{}
	sess.set(employee42, "tok")
	up := &stubUpstream{
		metric: func(req ports.MetricRequest) (float64, error) {
			if req.Role != domain.RoleEmployee || req.UserID != 42 {
				t.Errorf("metric issued for wrong identity: %+v", req)
			}
			switch req.Name {
			case ports.MetricFeedbackCount:
				return 12, nil
			case ports.MetricPendingAck:
				return 3, nil
			case ports.MetricAckRate:
				return 75, nil
			case ports.MetricAvgSentiment:
				return 4.2, nil
			}
			return 0, errors.New("unexpected metric " + req.Name)
		},
	}
	svc := newTestService(up, sess)

	summary, err := svc.RefreshSummary(context.Background())
	if err != nil {
		t.Fatalf("RefreshSummary: %v", err)
	}
	if summary.Loading {
		t.Fatalf("loading still set after all metrics settled")
	}
	if summary.FeedbackCount != 12 || summary.PendingAck != 3 || summary.AckRate != 75 || summary.AvgSentiment != 4.2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	stored, ok := svc.Summary()
	if !ok || stored != summary {
		t.Fatalf("stored summary = (%+v, %v)", stored, ok)
	}
}

func TestRefreshSummary_OneFailingMetricDefaultsToZero(t *testing.T) {
	sess := &fakeSession{}
	sess.set(manager7, "tok")
	up := &stubUpstream{
		metric: func(req ports.MetricRequest) (float64, error) {
			if req.Name == ports.MetricResponseRate {
				return 0, errors.New("boom")
			}
			return 5, nil
		},
	}
	svc := newTestService(up, sess)

	summary, err := svc.RefreshSummary(context.Background())
	if err != nil {
		t.Fatalf("a single metric failure must not fail the refresh: %v", err)
	}
	if summary.Loading {
		t.Fatalf("loading must clear once all four fetches settled")
	}
	if summary.ResponseRate != 0 {
		t.Fatalf("failing metric not defaulted: %+v", summary)
	}
	if summary.FeedbackCount != 5 || summary.PendingAck != 5 || summary.AvgSentiment != 5 {
		t.Fatalf("surviving metrics lost: %+v", summary)
	}
}

func TestRefreshSummary_StaleIdentityDiscarded(t *testing.T) {
	sess := &fakeSession{}
	sess.set(employee42, "tok-42")
	up := &stubUpstream{}
	up.metric = func(req ports.MetricRequest) (float64, error) {
		// The user switches accounts while the metrics are in flight.
		sess.set(employee43, "tok-43")
		return 99, nil
	}
	svc := newTestService(up, sess)

	if _, err := svc.RefreshSummary(context.Background()); err != nil {
		t.Fatalf("RefreshSummary: %v", err)
	}

	// Nothing may have been recorded for employee 43.
	if _, ok := svc.Summary(); ok {
		t.Fatalf("stale summary applied to the new identity's view")
	}
	// Nor for employee 42, whose request was abandoned.
	sess.set(employee42, "tok-42")
	if _, ok := svc.Summary(); ok {
		t.Fatalf("stale summary applied to the old identity's view")
	}
}

func TestFetchFeedbacks_SortsNewestFirst(t *testing.T) {
	sess := &fakeSession{}
	sess.set(employee42, "tok")
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	up := &stubUpstream{
		employeeFeedbacks: func(name string) ([]domain.Feedback, error) {
			if name != "Alice" {
				t.Errorf("employee list requested by %q, want Alice", name)
			}
			return []domain.Feedback{
				{ID: 1, Member: "Alice", CreatedAt: base},
				{ID: 2, Member: "Alice", CreatedAt: base.Add(48 * time.Hour)},
				{ID: 3, Member: "Alice", CreatedAt: base.Add(24 * time.Hour)},
			}, nil
		},
	}
	svc := newTestService(up, sess)

	list, err := svc.FetchFeedbacks(context.Background())
	if err != nil {
		t.Fatalf("FetchFeedbacks: %v", err)
	}
	if len(list) != 3 || list[0].ID != 2 || list[1].ID != 3 || list[2].ID != 1 {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestFetchFeedbacks_ManagerListsByID(t *testing.T) {
	sess := &fakeSession{}
	sess.set(manager7, "tok")
	up := &stubUpstream{
		managerFeedbacks: func(id int) ([]domain.Feedback, error) {
			if id != 7 {
				t.Errorf("manager list requested for id %d, want 7", id)
			}
			return []domain.Feedback{{ID: 9, Member: "Alice", GivenBy: 7}}, nil
		},
	}
	svc := newTestService(up, sess)

	list, err := svc.FetchFeedbacks(context.Background())
	if err != nil {
		t.Fatalf("FetchFeedbacks: %v", err)
	}
	if len(list) != 1 || list[0].ID != 9 {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestFetchFeedbacks_FailurePreservesLastGoodList(t *testing.T) {
	sess := &fakeSession{}
	sess.set(employee42, "tok")
	fail := false
	up := &stubUpstream{
		employeeFeedbacks: func(string) ([]domain.Feedback, error) {
			if fail {
				return nil, errors.New("connection reset")
			}
			return []domain.Feedback{{ID: 1, Member: "Alice"}}, nil
		},
	}
	svc := newTestService(up, sess)

	if _, err := svc.FetchFeedbacks(context.Background()); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	fail = true
	if _, err := svc.FetchFeedbacks(context.Background()); err == nil {
		t.Fatalf("expected error from failing fetch")
	}

	list, ok := svc.Feedbacks()
	if !ok || len(list) != 1 || list[0].ID != 1 {
		t.Fatalf("last good list not preserved: (%+v, %v)", list, ok)
	}
}

func TestFetchFeedbacks_StaleIdentityDiscarded(t *testing.T) {
	sess := &fakeSession{}
	sess.set(employee42, "tok-42")
	up := &stubUpstream{
		employeeFeedbacks: func(string) ([]domain.Feedback, error) {
			sess.set(employee43, "tok-43")
			return []domain.Feedback{{ID: 1, Member: "Alice"}}, nil
		},
	}
	svc := newTestService(up, sess)

	if _, err := svc.FetchFeedbacks(context.Background()); err != nil {
		t.Fatalf("FetchFeedbacks: %v", err)
	}
	if _, ok := svc.Feedbacks(); ok {
		t.Fatalf("stale list applied to the new identity's view")
	}
}

func TestRequestFeedback(t *testing.T) {
	sess := &fakeSession{}
	sess.set(employee42, "tok")
	var requested string
	up := &stubUpstream{
		requestFeedback: func(member string) error {
			requested = member
			return nil
		},
	}
	svc := newTestService(up, sess)

	if err := svc.RequestFeedback(context.Background()); err != nil {
		t.Fatalf("RequestFeedback: %v", err)
	}
	if requested != "Alice" {
		t.Fatalf("requested for %q, want Alice", requested)
	}
}

func TestRequestFeedback_ManagerForbidden(t *testing.T) {
	sess := &fakeSession{}
	sess.set(manager7, "tok")
	svc := newTestService(&stubUpstream{}, sess)

	if err := svc.RequestFeedback(context.Background()); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSubmitFeedback_NormalizesTagsAndSetsAuthor(t *testing.T) {
	sess := &fakeSession{}
	sess.set(manager7, "tok")
	var got ports.CreateFeedbackInput
	up := &stubUpstream{
		createFeedback: func(in ports.CreateFeedbackInput) (*domain.Feedback, error) {
			got = in
			return &domain.Feedback{ID: 11, Member: in.Member, GivenBy: in.GivenBy}, nil
		},
	}
	svc := newTestService(up, sess)

	result, err := svc.SubmitFeedback(context.Background(), SubmitFeedbackInput{
		Member:      "Alice",
		Strengths:   "ships fast",
		Improvement: "writes docs",
		Sentiment:   domain.SentimentPositive,
		Tags:        []string{" teamwork ", "", "delivery"},
	})
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if result.FollowUpErr != nil {
		t.Fatalf("unexpected follow-up error: %v", result.FollowUpErr)
	}
	if got.GivenBy != 7 {
		t.Fatalf("given_by = %d, want the acting manager", got.GivenBy)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "teamwork" || got.Tags[1] != "delivery" {
		t.Fatalf("tags not normalized: %v", got.Tags)
	}
}

func TestSubmitFeedback_FailingCompletionKeepsFeedback(t *testing.T) {
	sess := &fakeSession{}
	sess.set(manager7, "tok")
	up := &stubUpstream{
		createFeedback: func(in ports.CreateFeedbackInput) (*domain.Feedback, error) {
			return &domain.Feedback{ID: 11, Member: in.Member}, nil
		},
		completeRequest: func(string, int) error {
			return errors.New("request service down")
		},
		managerFeedbacks: func(int) ([]domain.Feedback, error) {
			return []domain.Feedback{{ID: 11, Member: "Alice"}}, nil
		},
	}
	svc := newTestService(up, sess)

	result, err := svc.SubmitFeedback(context.Background(), SubmitFeedbackInput{
		Member:      "Alice",
		Strengths:   "s",
		Improvement: "i",
		Sentiment:   domain.SentimentNeutral,
	})
	if err != nil {
		t.Fatalf("a failed completion must not fail the submission: %v", err)
	}
	if result.Feedback == nil || result.Feedback.ID != 11 {
		t.Fatalf("created feedback lost: %+v", result)
	}
	if result.FollowUpErr == nil {
		t.Fatalf("follow-up failure not reported")
	}

	// The new feedback is visible in a subsequent list fetch.
	list, err := svc.FetchFeedbacks(context.Background())
	if err != nil {
		t.Fatalf("FetchFeedbacks: %v", err)
	}
	if len(list) != 1 || list[0].ID != 11 {
		t.Fatalf("submitted feedback not visible: %+v", list)
	}
}

func TestSubmitFeedback_EmployeeForbidden(t *testing.T) {
	sess := &fakeSession{}
	sess.set(employee42, "tok")
	svc := newTestService(&stubUpstream{}, sess)

	if _, err := svc.SubmitFeedback(context.Background(), SubmitFeedbackInput{}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAcknowledge_OptimisticFlip(t *testing.T) {
	sess := &fakeSession{}
	sess.set(employee42, "tok")
	up := &stubUpstream{
		employeeFeedbacks: func(string) ([]domain.Feedback, error) {
			return []domain.Feedback{
				{ID: 1, Member: "Alice"},
				{ID: 2, Member: "Alice"},
			}, nil
		},
	}
	svc := newTestService(up, sess)
	if _, err := svc.FetchFeedbacks(context.Background()); err != nil {
		t.Fatalf("FetchFeedbacks: %v", err)
	}

	if err := svc.Acknowledge(context.Background(), 2); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}

	list, _ := svc.Feedbacks()
	if list[0].Acknowledged || !list[1].Acknowledged {
		t.Fatalf("optimistic flip wrong: %+v", list)
	}
}

func TestAcknowledge_FailureLeavesStateUntouched(t *testing.T) {
	sess := &fakeSession{}
	sess.set(employee42, "tok")
	up := &stubUpstream{
		employeeFeedbacks: func(string) ([]domain.Feedback, error) {
			return []domain.Feedback{{ID: 1, Member: "Alice"}}, nil
		},
		acknowledge: func(int) error { return errors.New("boom") },
	}
	svc := newTestService(up, sess)
	_, _ = svc.FetchFeedbacks(context.Background())

	if err := svc.Acknowledge(context.Background(), 1); err == nil {
		t.Fatalf("expected error")
	}
	list, _ := svc.Feedbacks()
	if list[0].Acknowledged {
		t.Fatalf("optimistic flip applied despite failure")
	}
}

func TestEditFeedback_UpdatesLocalEntry(t *testing.T) {
	sess := &fakeSession{}
	sess.set(manager7, "tok")
	up := &stubUpstream{
		managerFeedbacks: func(int) ([]domain.Feedback, error) {
			return []domain.Feedback{{ID: 5, Member: "Alice", Strengths: "old"}}, nil
		},
		editFeedback: func(id int, in ports.EditFeedbackInput) (*domain.Feedback, error) {
			return &domain.Feedback{ID: id, Member: "Alice", Strengths: in.Strengths, Sentiment: in.Sentiment, Tags: in.Tags}, nil
		},
	}
	svc := newTestService(up, sess)
	_, _ = svc.FetchFeedbacks(context.Background())

	updated, err := svc.EditFeedback(context.Background(), 5, EditFeedbackInput{
		Strengths:   "new",
		Improvement: "i",
		Sentiment:   domain.SentimentNegative,
		Tags:        []string{"  focus  "},
	})
	if err != nil {
		t.Fatalf("EditFeedback: %v", err)
	}
	if updated.Strengths != "new" || len(updated.Tags) != 1 || updated.Tags[0] != "focus" {
		t.Fatalf("unexpected update: %+v", updated)
	}

	list, _ := svc.Feedbacks()
	if list[0].Strengths != "new" {
		t.Fatalf("local entry not reconciled: %+v", list[0])
	}
}

func TestExportFeedbackPDF_ServerFilenameWins(t *testing.T) {
	sess := &fakeSession{}
	sess.set(employee42, "tok")
	up := &stubUpstream{
		exportPDF: func(int) (*ports.ExportedPDF, error) {
			return &ports.ExportedPDF{Filename: "feedback_from_Carol_to_Alice.pdf", Content: []byte("%PDF-1.4")}, nil
		},
	}
	dir := t.TempDir()
	svc := NewFeedbackService(up, sess, dir, zerolog.Nop())

	result, err := svc.ExportFeedbackPDF(context.Background(), 5)
	if err != nil {
		t.Fatalf("ExportFeedbackPDF: %v", err)
	}
	if result.Filename != "feedback_from_Carol_to_Alice.pdf" {
		t.Fatalf("filename = %q", result.Filename)
	}
	if result.SavedPath != filepath.Join(dir, result.Filename) {
		t.Fatalf("saved path = %q", result.SavedPath)
	}
	raw, err := os.ReadFile(result.SavedPath)
	if err != nil || string(raw) != "%PDF-1.4" {
		t.Fatalf("saved content = (%q, %v)", raw, err)
	}
}

func TestExportFeedbackPDF_SynthesizesFilename(t *testing.T) {
	sess := &fakeSession{}
	sess.set(employee42, "tok")
	up := &stubUpstream{
		employeeFeedbacks: func(string) ([]domain.Feedback, error) {
			return []domain.Feedback{{ID: 5, Member: "Alice", GivenBy: 7}}, nil
		},
		exportPDF: func(int) (*ports.ExportedPDF, error) {
			return &ports.ExportedPDF{Content: []byte("%PDF-1.4")}, nil
		},
	}
	svc := newTestService(up, sess)
	_, _ = svc.FetchFeedbacks(context.Background())

	result, err := svc.ExportFeedbackPDF(context.Background(), 5)
	if err != nil {
		t.Fatalf("ExportFeedbackPDF: %v", err)
	}
	if result.Filename != "feedback_from_7_to_Alice.pdf" {
		t.Fatalf("filename = %q", result.Filename)
	}
}

func TestExportFeedbackPDF_UnknownEntryFallsBackToID(t *testing.T) {
	sess := &fakeSession{}
	sess.set(employee42, "tok")
	up := &stubUpstream{
		exportPDF: func(int) (*ports.ExportedPDF, error) {
			return &ports.ExportedPDF{Content: []byte("x")}, nil
		},
	}
	svc := newTestService(up, sess)

	result, err := svc.ExportFeedbackPDF(context.Background(), 77)
	if err != nil {
		t.Fatalf("ExportFeedbackPDF: %v", err)
	}
	if result.Filename != "feedback_77.pdf" {
		t.Fatalf("filename = %q", result.Filename)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{`"report.pdf"`, "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"  ", ""},
		{"plain.pdf", "plain.pdf"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReset_DropsViewState(t *testing.T) {
	sess := &fakeSession{}
	sess.set(employee42, "tok")
	up := &stubUpstream{
		employeeFeedbacks: func(string) ([]domain.Feedback, error) {
			return []domain.Feedback{{ID: 1}}, nil
		},
	}
	svc := newTestService(up, sess)
	_, _ = svc.FetchFeedbacks(context.Background())

	svc.Reset()
	if _, ok := svc.Feedbacks(); ok {
		t.Fatalf("view state survived Reset")
	}
}
