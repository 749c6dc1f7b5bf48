package models

import "context"

// Classifier is the interface every classification backend implements.
// Callers inject this rather than a concrete backend. Both backends share
// the same contract: one call per batch, and text-derived sentiment always
// outranks the numeric rating.
type Classifier interface {
	// Classify sends one batch of reviews for sentiment/topic/severity
	// classification and bilingual reply drafting. The returned candidates
	// are untrusted until validated.
	Classify(ctx context.Context, voice BrandVoice, reviews []Review) ([]AnalysisCandidate, error)
	// Name returns the backend identifier (e.g., "fallback", "llm").
	Name() string
}
