package models

import "time"

// Sentiment labels a classifier may assign.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Analysis status lifecycle. An analysis starts as draft when a drafted reply
// hits a banned term, otherwise approved. Approval is operator-driven;
// exported is a terminal marker set by the bulk export.
const (
	StatusDraft    = "draft"
	StatusApproved = "approved"
	StatusExported = "exported"
)

// Analysis is the validated, guardrail-enforced classification and
// reply-draft record for one review. Keyed by review id; status is the only
// field that changes after creation.
type Analysis struct {
	ID        string   `db:"id"        json:"id"`
	Language  string   `db:"language"  json:"language"`
	Sentiment string   `db:"sentiment" json:"sentiment"`
	Topics    []string `db:"topics"    json:"topics"`
	Severity  int      `db:"severity"  json:"severity"`
	ReplyEN   string   `db:"reply_en"  json:"reply_en"`
	ReplyID   string   `db:"reply_id"  json:"reply_id"`
	Status    string   `db:"status"    json:"status"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AnalysisCandidate is the untrusted structured output of the classification
// step. It is shaped like an Analysis but has not been validated.
type AnalysisCandidate struct {
	ID        string   `json:"id"`
	Language  string   `json:"language"`
	Sentiment string   `json:"sentiment"`
	Topics    []string `json:"topics"`
	Severity  int      `json:"severity"`
	ReplyEN   string   `json:"reply_en"`
	ReplyID   string   `json:"reply_id"`
}

// BrandVoice is the operator-supplied tone guidance and banned-term list for
// an analysis session. It is not persisted.
type BrandVoice struct {
	Tone   string   `json:"tone"`
	Banned []string `json:"banned"`
}

// DefaultBrandVoice returns the voice used when the operator supplies none.
func DefaultBrandVoice() BrandVoice {
	return BrandVoice{
		Tone:   "warm, professional, concise",
		Banned: []string{"guarantee", "free forever", "100%"},
	}
}
