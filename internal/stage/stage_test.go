package stage_test

import (
	"testing"
	"time"

	"app/internal/stage"
)

func TestParse_ValidValues(t *testing.T) {
	valid := []string{"applied", "screening", "interviewing", "offer", "accepted", "rejected"}
	for _, s := range valid {
		got, err := stage.Parse(s)
		if err != nil {
			t.Errorf("Parse(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("Parse(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParse_InvalidValue(t *testing.T) {
	for _, s := range []string{"APPLIED", "hired", "unknown", ""} {
		if _, err := stage.Parse(s); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", s)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminals := map[stage.Stage]bool{
		stage.Applied:      false,
		stage.Screening:    false,
		stage.Interviewing: false,
		stage.Offer:        false,
		stage.Accepted:     true,
		stage.Rejected:     true,
	}
	for s, want := range terminals {
		if got := stage.IsTerminal(s); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", s, got, want)
		}
	}
}

func TestTouch_StampsOnFirstEntry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		to    stage.Stage
		field func(*stage.Dates) *time.Time
	}{
		{stage.Applied, func(d *stage.Dates) *time.Time { return d.AppliedAt }},
		{stage.Interviewing, func(d *stage.Dates) *time.Time { return d.InterviewAt }},
		{stage.Offer, func(d *stage.Dates) *time.Time { return d.OfferAt }},
		{stage.Accepted, func(d *stage.Dates) *time.Time { return d.ResolvedAt }},
		{stage.Rejected, func(d *stage.Dates) *time.Time { return d.ResolvedAt }},
	}
	for _, c := range cases {
		var d stage.Dates
		stage.Touch(&d, c.to, now)
		got := c.field(&d)
		if got == nil || !got.Equal(now) {
			t.Errorf("Touch(→%s) did not stamp its date field", c.to)
		}
	}
}

func TestTouch_DoesNotOverwrite(t *testing.T) {
	first := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	later := first.Add(48 * time.Hour)

	d := stage.Dates{InterviewAt: &first}
	stage.Touch(&d, stage.Interviewing, later)
	if !d.InterviewAt.Equal(first) {
		t.Errorf("Touch overwrote interview_at: got %v, want %v", d.InterviewAt, first)
	}
}

func TestTouch_ScreeningStampsNothing(t *testing.T) {
	var d stage.Dates
	stage.Touch(&d, stage.Screening, time.Now())
	if d.AppliedAt != nil || d.InterviewAt != nil || d.OfferAt != nil || d.ResolvedAt != nil {
		t.Error("Touch(→screening) should not stamp any date field")
	}
}
