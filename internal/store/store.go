package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/guestpulse/guestpulse/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
// Reviews and analyses are keyed by review id; inserts are insert-if-absent
// so re-ingesting or re-analyzing the same id is a no-op.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	InsertReview(ctx context.Context, review *models.Review) (bool, error)
	ListReviews(ctx context.Context) ([]*models.Review, error)
	GetReview(ctx context.Context, id string) (*models.Review, error)
	CountReviews(ctx context.Context) (int, error)

	InsertAnalysis(ctx context.Context, analysis *models.Analysis) (bool, error)
	ListAnalyses(ctx context.Context) ([]*models.Analysis, error)
	GetAnalysis(ctx context.Context, id string) (*models.Analysis, error)
	UpdateAnalysisStatus(ctx context.Context, id string, status string) error
	// ExportApproved moves every approved analysis to exported in one
	// statement and returns the affected ids.
	ExportApproved(ctx context.Context) ([]string, error)
}

// joinTopics flattens a topic set for storage as comma-joined text.
func joinTopics(topics []string) string {
	return strings.Join(topics, ",")
}

// splitTopics restores a stored comma-joined topic string, trimming tokens
// and dropping empties.
func splitTopics(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
