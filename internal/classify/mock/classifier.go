package mock

import (
	"context"

	"github.com/guestpulse/guestpulse/internal/classify"
	"github.com/guestpulse/guestpulse/pkg/models"
)

// Classifier satisfies models.Classifier for testing.
type Classifier struct {
	Name_        string
	ClassifyFunc func(ctx context.Context, voice models.BrandVoice, reviews []models.Review) ([]models.AnalysisCandidate, error)
}

func (m *Classifier) Name() string { return m.Name_ }

func (m *Classifier) Classify(ctx context.Context, voice models.BrandVoice, reviews []models.Review) ([]models.AnalysisCandidate, error) {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, voice, reviews)
	}
	return []models.AnalysisCandidate{}, nil
}

// NewEchoClassifier returns a Classifier producing one well-formed neutral
// candidate per review.
func NewEchoClassifier() *Classifier {
	return &Classifier{
		Name_: "mock",
		ClassifyFunc: func(_ context.Context, _ models.BrandVoice, reviews []models.Review) ([]models.AnalysisCandidate, error) {
			out := make([]models.AnalysisCandidate, 0, len(reviews))
			for _, r := range reviews {
				out = append(out, models.AnalysisCandidate{
					ID:        r.ID,
					Language:  "en",
					Sentiment: models.SentimentNeutral,
					Topics:    []string{models.DefaultTopic},
					Severity:  3,
					ReplyEN:   "Thanks for the feedback.",
					ReplyID:   "Terima kasih atas masukannya.",
				})
			}
			return out, nil
		},
	}
}

// NewFailingClassifier returns a Classifier that always fails with a
// terminal batch error wrapping err.
func NewFailingClassifier(err error) *Classifier {
	return &Classifier{
		Name_: "mock-failing",
		ClassifyFunc: func(_ context.Context, _ models.BrandVoice, _ []models.Review) ([]models.AnalysisCandidate, error) {
			if err != nil {
				return nil, err
			}
			return nil, classify.ErrBatchFailed
		},
	}
}

// Compile-time check that Classifier implements models.Classifier.
var _ models.Classifier = (*Classifier)(nil)
