// Package analysis orchestrates the classification pipeline: it finds
// reviews without an analysis, runs the configured classifier over them, and
// persists validated, guardrailed results.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guestpulse/guestpulse/internal/guardrail"
	"github.com/guestpulse/guestpulse/internal/store"
	"github.com/guestpulse/guestpulse/internal/validate"
	"github.com/guestpulse/guestpulse/pkg/models"
)

// RunResult reports what one pipeline run did.
type RunResult struct {
	Pending    int      `json:"pending"`
	Analyzed   int      `json:"analyzed"`
	Dropped    int      `json:"dropped"`
	DroppedIDs []string `json:"dropped_ids,omitempty"`
}

type Service struct {
	classifier models.Classifier
	store      store.Store
}

func NewService(c models.Classifier, st store.Store) *Service {
	return &Service{classifier: c, store: st}
}

// RunPending classifies every review that has no stored analysis yet. The
// whole batch goes to the classifier in one call; a classifier error aborts
// the run with nothing persisted. Candidates that fail schema validation are
// dropped individually and reported in the result.
func (s *Service) RunPending(ctx context.Context, voice models.BrandVoice) (*RunResult, error) {
	pending, err := s.pendingReviews(ctx)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Pending: len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	slog.Info("classifying pending reviews", "classifier", s.classifier.Name(), "count", len(pending))

	candidates, err := s.classifier.Classify(ctx, voice, pending)
	if err != nil {
		return nil, fmt.Errorf("classifying batch of %d: %w", len(pending), err)
	}

	for _, c := range candidates {
		a, err := validate.Candidate(c)
		if err != nil {
			slog.Warn("dropping candidate", "id", c.ID, "error", err)
			result.Dropped++
			result.DroppedIDs = append(result.DroppedIDs, c.ID)
			continue
		}

		s.applyGuardrails(&a, voice)

		now := time.Now().UTC()
		a.CreatedAt = now
		a.UpdatedAt = now

		inserted, err := s.store.InsertAnalysis(ctx, &a)
		if err != nil {
			return nil, fmt.Errorf("saving analysis %s: %w", a.ID, err)
		}
		if inserted {
			result.Analyzed++
		}
	}

	return result, nil
}

// applyGuardrails truncates both replies to the posting limit and sets the
// status: draft when either reply contains a banned term, approved otherwise.
func (s *Service) applyGuardrails(a *models.Analysis, voice models.BrandVoice) {
	hits := guardrail.DetectBannedTerms(a.ReplyEN, voice.Banned)
	hits = append(hits, guardrail.DetectBannedTerms(a.ReplyID, voice.Banned)...)

	a.ReplyEN = guardrail.EnforceLimits(a.ReplyEN, guardrail.MaxReplyLength)
	a.ReplyID = guardrail.EnforceLimits(a.ReplyID, guardrail.MaxReplyLength)

	if len(hits) > 0 {
		slog.Info("reply held for manual review", "id", a.ID, "banned_terms", hits)
		a.Status = models.StatusDraft
	} else {
		a.Status = models.StatusApproved
	}
}

func (s *Service) pendingReviews(ctx context.Context) ([]models.Review, error) {
	reviews, err := s.store.ListReviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	analyses, err := s.store.ListAnalyses(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}

	analyzed := make(map[string]bool, len(analyses))
	for _, a := range analyses {
		analyzed[a.ID] = true
	}

	var pending []models.Review
	for _, r := range reviews {
		if !analyzed[r.ID] {
			pending = append(pending, *r)
		}
	}
	return pending, nil
}
