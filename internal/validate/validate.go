// Package validate turns untrusted classification candidates into
// well-formed Analysis records.
package validate

import (
	"errors"
	"fmt"

	"github.com/guestpulse/guestpulse/pkg/models"
)

// ErrSchemaViolation marks a candidate that fails a validation rule.
// Callers drop the individual candidate and continue the batch; a schema
// violation is never a batch-level failure.
var ErrSchemaViolation = errors.New("schema violation")

// Candidate validates and normalizes one classification candidate.
// Rules, in order: required string fields present, sentiment is one of the
// three known labels, severity is in [1,5], topics are filtered to the
// taxonomy (unknown labels silently dropped, empty result defaults to
// "service").
func Candidate(c models.AnalysisCandidate) (models.Analysis, error) {
	for _, f := range []struct{ name, value string }{
		{"id", c.ID},
		{"language", c.Language},
		{"reply_en", c.ReplyEN},
		{"reply_id", c.ReplyID},
	} {
		if f.value == "" {
			return models.Analysis{}, fmt.Errorf("%w: missing required field %q", ErrSchemaViolation, f.name)
		}
	}

	switch c.Sentiment {
	case models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative:
	default:
		return models.Analysis{}, fmt.Errorf("%w: invalid sentiment %q", ErrSchemaViolation, c.Sentiment)
	}

	if c.Severity < 1 || c.Severity > 5 {
		return models.Analysis{}, fmt.Errorf("%w: severity %d out of range [1,5]", ErrSchemaViolation, c.Severity)
	}

	topics := filterTopics(c.Topics)
	if len(topics) == 0 {
		topics = []string{models.DefaultTopic}
	}

	return models.Analysis{
		ID:        c.ID,
		Language:  c.Language,
		Sentiment: c.Sentiment,
		Topics:    topics,
		Severity:  c.Severity,
		ReplyEN:   c.ReplyEN,
		ReplyID:   c.ReplyID,
	}, nil
}

// filterTopics keeps taxonomy topics, dropping unknowns and duplicates while
// preserving order.
func filterTopics(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		if !models.KnownTopic(t) || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
