package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sentiment is the overall tone of a feedback entry.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// Valid reports whether s is one of the three recognised sentiments.
func (s Sentiment) Valid() bool {
	return s == SentimentPositive || s == SentimentNeutral || s == SentimentNegative
}

var ErrFeedbackNotFound = errors.New("feedback not found")

// Feedback is a single feedback entry. Created by a manager, acknowledged
// or re-read by the employee it names, never deleted.
type Feedback struct {
	ID           int       `json:"id"`
	Member       string    `json:"member"`
	GivenBy      int       `json:"given_by"`
	Strengths    string    `json:"strengths"`
	Improvement  string    `json:"improvement"`
	Sentiment    Sentiment `json:"sentiment"`
	Tags         []string  `json:"tags"`
	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// FeedbackRequest is an employee-initiated signal asking their manager for
// feedback. The server marks it complete when a matching Feedback is
// created; the client never mutates it directly.
type FeedbackRequest struct {
	ID         int    `json:"id"`
	EmployeeID int    `json:"employee_id"`
	ManagerID  int    `json:"manager_id"`
	Status     string `json:"status"`
}

// DashboardSummary is the per-role aggregate fetched as four independent
// metrics. Each field defaults to zero when its metric is absent or its
// fetch failed; a partial summary is valid state. Loading stays true until
// all four metric fetches have settled.
type DashboardSummary struct {
	// FeedbackCount is feedback received (employee) or given (manager).
	FeedbackCount int `json:"feedback_count"`
	// PendingAck counts feedbacks awaiting acknowledgement.
	PendingAck int `json:"pending_ack"`
	// AckRate is the employee acknowledgement rate in percent.
	AckRate float64 `json:"ack_rate"`
	// ResponseRate is the manager's team response rate in percent.
	ResponseRate float64 `json:"response_rate"`
	// AvgSentiment is the average sentiment score.
	AvgSentiment float64 `json:"avg_sentiment"`
	Loading      bool    `json:"loading"`
}

// SentimentTrendPoint is one month of a manager's sentiment trend series.
type SentimentTrendPoint struct {
	Month    string `json:"month"`
	Positive int    `json:"positive"`
	Neutral  int    `json:"neutral"`
	Negative int    `json:"negative"`
}

// Activity is one audit log entry of a manager's recent team activity.
type Activity struct {
	ID        int            `json:"id"`
	UserID    int            `json:"user_id"`
	ManagerID int            `json:"manager_id,omitempty"`
	Action    string         `json:"action"`
	Target    string         `json:"target,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// SortFeedbacksByNewest returns a copy of feedbacks ordered by creation
// time, newest first. It is a pure read-time transform: the input slice is
// left untouched and entries without a timestamp sort last in their
// original relative order.
func SortFeedbacksByNewest(feedbacks []Feedback) []Feedback {
	out := make([]Feedback, len(feedbacks))
	copy(out, feedbacks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// SplitTags turns freeform comma-delimited text into a tag list.
func SplitTags(raw string) []string {
	return NormalizeTags(strings.Split(raw, ","))
}

// NormalizeTags trims every tag and drops empties, preserving order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// SuggestedPDFName synthesizes the export filename used when the server
// response carries no Content-Disposition header.
func (f Feedback) SuggestedPDFName() string {
	return fmt.Sprintf("feedback_from_%d_to_%s.pdf", f.GivenBy, f.Member)
}
