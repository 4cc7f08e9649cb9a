package domain

import (
	"testing"
	"time"
)

func TestSortFeedbacksByNewest(t *testing.T) {
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	in := []Feedback{
		{ID: 1, CreatedAt: base},
		{ID: 2},
		{ID: 3, CreatedAt: base.Add(time.Hour)},
		{ID: 4},
	}

	out := SortFeedbacksByNewest(in)

	wantOrder := []int{3, 1, 2, 4}
	for i, want := range wantOrder {
		if out[i].ID != want {
			t.Fatalf("position %d: got id %d, want %d (%+v)", i, out[i].ID, want, out)
		}
	}
	if in[0].ID != 1 {
		t.Fatalf("input slice mutated: %+v", in)
	}
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"teamwork, delivery", []string{"teamwork", "delivery"}},
		{"  focus  ", []string{"focus"}},
		{", ,", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := SplitTags(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("SplitTags(%q) = %v, want %v", tt.in, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("SplitTags(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}

func TestSentimentValid(t *testing.T) {
	for _, s := range []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative} {
		if !s.Valid() {
			t.Fatalf("%q reported invalid", s)
		}
	}
	if Sentiment("positive").Valid() {
		t.Fatalf("lowercase variant reported valid")
	}
}

func TestSuggestedPDFName(t *testing.T) {
	fb := Feedback{ID: 5, Member: "Alice", GivenBy: 7}
	if got := fb.SuggestedPDFName(); got != "feedback_from_7_to_Alice.pdf" {
		t.Fatalf("name = %q", got)
	}
}

func TestTierFor(t *testing.T) {
	if TierFor(true) != TierPersistent || TierFor(false) != TierEphemeral {
		t.Fatalf("tier mapping wrong: %v / %v", TierFor(true), TierFor(false))
	}
}
