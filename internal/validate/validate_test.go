package validate

import (
	"errors"
	"testing"

	"github.com/guestpulse/guestpulse/pkg/models"
)

func validCandidate() models.AnalysisCandidate {
	return models.AnalysisCandidate{
		ID:        "rvw_0001",
		Language:  "en",
		Sentiment: "positive",
		Topics:    []string{"taste"},
		Severity:  1,
		ReplyEN:   "Thank you!",
		ReplyID:   "Terima kasih!",
	}
}

func TestCandidate_Valid(t *testing.T) {
	a, err := Candidate(validCandidate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != "rvw_0001" || a.Sentiment != "positive" || a.Severity != 1 {
		t.Errorf("unexpected analysis: %+v", a)
	}
}

func TestCandidate_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.AnalysisCandidate)
	}{
		{"missing id", func(c *models.AnalysisCandidate) { c.ID = "" }},
		{"missing language", func(c *models.AnalysisCandidate) { c.Language = "" }},
		{"missing reply_en", func(c *models.AnalysisCandidate) { c.ReplyEN = "" }},
		{"missing reply_id", func(c *models.AnalysisCandidate) { c.ReplyID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandidate()
			tt.mutate(&c)
			if _, err := Candidate(c); !errors.Is(err, ErrSchemaViolation) {
				t.Errorf("expected ErrSchemaViolation, got %v", err)
			}
		})
	}
}

func TestCandidate_MissingFieldCheckedBeforeSentiment(t *testing.T) {
	c := validCandidate()
	c.ID = ""
	c.Sentiment = "ecstatic"
	_, err := Candidate(c)
	if !errors.Is(err, ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
	if got := err.Error(); got != `schema violation: missing required field "id"` {
		t.Errorf("field presence should be reported first, got %q", got)
	}
}

func TestCandidate_InvalidSentiment(t *testing.T) {
	for _, s := range []string{"ecstatic", "POSITIVE", "neg", ""} {
		c := validCandidate()
		c.Sentiment = s
		if _, err := Candidate(c); !errors.Is(err, ErrSchemaViolation) {
			t.Errorf("sentiment %q: expected ErrSchemaViolation, got %v", s, err)
		}
	}
}

func TestCandidate_SeverityOutOfRange(t *testing.T) {
	for _, sev := range []int{0, -1, 6, 100} {
		c := validCandidate()
		c.Severity = sev
		if _, err := Candidate(c); !errors.Is(err, ErrSchemaViolation) {
			t.Errorf("severity %d: expected ErrSchemaViolation, got %v", sev, err)
		}
	}
	for sev := 1; sev <= 5; sev++ {
		c := validCandidate()
		c.Severity = sev
		if _, err := Candidate(c); err != nil {
			t.Errorf("severity %d: unexpected error %v", sev, err)
		}
	}
}

func TestCandidate_UnknownTopicsDropped(t *testing.T) {
	c := validCandidate()
	c.Topics = []string{"taste", "unknown_topic"}
	a, err := Candidate(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Topics) != 1 || a.Topics[0] != "taste" {
		t.Errorf("expected [taste], got %v", a.Topics)
	}
}

func TestCandidate_AllUnknownTopicsDefaultToService(t *testing.T) {
	c := validCandidate()
	c.Topics = []string{"unknown_only"}
	a, err := Candidate(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Topics) != 1 || a.Topics[0] != "service" {
		t.Errorf("expected [service], got %v", a.Topics)
	}
}

func TestCandidate_EmptyTopicsDefaultToService(t *testing.T) {
	c := validCandidate()
	c.Topics = nil
	a, err := Candidate(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Topics) != 1 || a.Topics[0] != "service" {
		t.Errorf("expected [service], got %v", a.Topics)
	}
}

func TestCandidate_DuplicateTopicsRemoved(t *testing.T) {
	c := validCandidate()
	c.Topics = []string{"taste", "taste", "service", "taste"}
	a, err := Candidate(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Topics) != 2 || a.Topics[0] != "taste" || a.Topics[1] != "service" {
		t.Errorf("expected [taste service], got %v", a.Topics)
	}
}
