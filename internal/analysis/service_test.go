package analysis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/guestpulse/guestpulse/internal/classify"
	"github.com/guestpulse/guestpulse/internal/classify/mock"
	"github.com/guestpulse/guestpulse/pkg/models"
)

// --- mocks ---

type mockStore struct {
	mu          sync.Mutex
	reviews     []*models.Review
	analyses    map[string]*models.Analysis
	listErr     error
	insertErr   error
	insertCalls int
}

func newMockStore(reviews ...*models.Review) *mockStore {
	return &mockStore{reviews: reviews, analyses: make(map[string]*models.Analysis)}
}

func (s *mockStore) Ping(_ context.Context) error { return nil }
func (s *mockStore) GetAPIKeyByPrefix(_ context.Context, _ string) ([]*models.APIKey, error) {
	return nil, nil
}
func (s *mockStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }
func (s *mockStore) CreateAPIKey(_ context.Context, _ *models.APIKey) error    { return nil }
func (s *mockStore) ListAPIKeys(_ context.Context) ([]*models.APIKey, error)   { return nil, nil }
func (s *mockStore) RevokeAPIKey(_ context.Context, _ uuid.UUID) error         { return nil }
func (s *mockStore) InsertReview(_ context.Context, _ *models.Review) (bool, error) {
	return false, nil
}
func (s *mockStore) GetReview(_ context.Context, _ string) (*models.Review, error) { return nil, nil }
func (s *mockStore) CountReviews(_ context.Context) (int, error)                   { return len(s.reviews), nil }
func (s *mockStore) GetAnalysis(_ context.Context, _ string) (*models.Analysis, error) {
	return nil, nil
}
func (s *mockStore) UpdateAnalysisStatus(_ context.Context, _ string, _ string) error { return nil }
func (s *mockStore) ExportApproved(_ context.Context) ([]string, error)              { return nil, nil }

func (s *mockStore) ListReviews(_ context.Context) ([]*models.Review, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.reviews, nil
}

func (s *mockStore) ListAnalyses(_ context.Context) ([]*models.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Analysis, 0, len(s.analyses))
	for _, a := range s.analyses {
		out = append(out, a)
	}
	return out, nil
}

func (s *mockStore) InsertAnalysis(_ context.Context, a *models.Analysis) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.insertErr != nil {
		return false, s.insertErr
	}
	if _, exists := s.analyses[a.ID]; exists {
		return false, nil
	}
	s.analyses[a.ID] = a
	return true, nil
}

func review(id string) *models.Review {
	return &models.Review{ID: id, Outlet: "Outlet A", Brand: "Nasi Bros", Platform: "GoFood", Text: "text"}
}

// --- tests ---

func TestRunPendingEmpty(t *testing.T) {
	st := newMockStore()
	svc := NewService(mock.NewEchoClassifier(), st)

	res, err := svc.RunPending(context.Background(), models.DefaultBrandVoice())
	if err != nil {
		t.Fatalf("RunPending: %v", err)
	}
	if res.Pending != 0 || res.Analyzed != 0 {
		t.Errorf("result = %+v, want all zero", res)
	}
}

func TestRunPendingAnalyzesAll(t *testing.T) {
	st := newMockStore(review("rvw_0001"), review("rvw_0002"))
	svc := NewService(mock.NewEchoClassifier(), st)

	res, err := svc.RunPending(context.Background(), models.DefaultBrandVoice())
	if err != nil {
		t.Fatalf("RunPending: %v", err)
	}
	if res.Pending != 2 || res.Analyzed != 2 || res.Dropped != 0 {
		t.Errorf("result = %+v, want pending=2 analyzed=2", res)
	}
	if len(st.analyses) != 2 {
		t.Errorf("stored %d analyses, want 2", len(st.analyses))
	}
	if a := st.analyses["rvw_0001"]; a == nil || a.Status != models.StatusApproved {
		t.Errorf("analysis = %+v, want approved", a)
	}
}

func TestRunPendingSkipsAnalyzed(t *testing.T) {
	st := newMockStore(review("rvw_0001"), review("rvw_0002"))
	st.analyses["rvw_0001"] = &models.Analysis{ID: "rvw_0001", Status: models.StatusApproved}

	var got []string
	cls := &mock.Classifier{
		Name_: "mock",
		ClassifyFunc: func(_ context.Context, _ models.BrandVoice, reviews []models.Review) ([]models.AnalysisCandidate, error) {
			for _, r := range reviews {
				got = append(got, r.ID)
			}
			return mock.NewEchoClassifier().ClassifyFunc(context.Background(), models.DefaultBrandVoice(), reviews)
		},
	}
	svc := NewService(cls, st)

	res, err := svc.RunPending(context.Background(), models.DefaultBrandVoice())
	if err != nil {
		t.Fatalf("RunPending: %v", err)
	}
	if res.Pending != 1 || res.Analyzed != 1 {
		t.Errorf("result = %+v, want pending=1 analyzed=1", res)
	}
	if len(got) != 1 || got[0] != "rvw_0002" {
		t.Errorf("classified ids = %v, want [rvw_0002]", got)
	}
}

func TestRunPendingClassifierFailureSavesNothing(t *testing.T) {
	st := newMockStore(review("rvw_0001"))
	svc := NewService(mock.NewFailingClassifier(classify.ErrBackendUnreachable), st)

	_, err := svc.RunPending(context.Background(), models.DefaultBrandVoice())
	if !errors.Is(err, classify.ErrBackendUnreachable) {
		t.Fatalf("err = %v, want ErrBackendUnreachable", err)
	}
	if st.insertCalls != 0 {
		t.Errorf("insert calls = %d, want 0", st.insertCalls)
	}
}

func TestRunPendingDropsInvalidCandidates(t *testing.T) {
	st := newMockStore(review("rvw_0001"), review("rvw_0002"))
	cls := &mock.Classifier{
		Name_: "mock",
		ClassifyFunc: func(_ context.Context, _ models.BrandVoice, _ []models.Review) ([]models.AnalysisCandidate, error) {
			return []models.AnalysisCandidate{
				{ID: "rvw_0001", Language: "en", Sentiment: "positive", Severity: 1,
					Topics: []string{"taste"}, ReplyEN: "Thanks!", ReplyID: "Terima kasih!"},
				{ID: "rvw_0002", Language: "en", Sentiment: "ecstatic", Severity: 1,
					Topics: []string{"taste"}, ReplyEN: "Thanks!", ReplyID: "Terima kasih!"},
			}, nil
		},
	}
	svc := NewService(cls, st)

	res, err := svc.RunPending(context.Background(), models.DefaultBrandVoice())
	if err != nil {
		t.Fatalf("RunPending: %v", err)
	}
	if res.Analyzed != 1 || res.Dropped != 1 {
		t.Errorf("result = %+v, want analyzed=1 dropped=1", res)
	}
	if len(res.DroppedIDs) != 1 || res.DroppedIDs[0] != "rvw_0002" {
		t.Errorf("DroppedIDs = %v, want [rvw_0002]", res.DroppedIDs)
	}
	if _, exists := st.analyses["rvw_0002"]; exists {
		t.Error("invalid candidate was persisted")
	}
}

func TestRunPendingBannedTermHoldsDraft(t *testing.T) {
	st := newMockStore(review("rvw_0001"), review("rvw_0002"))
	cls := &mock.Classifier{
		Name_: "mock",
		ClassifyFunc: func(_ context.Context, _ models.BrandVoice, _ []models.Review) ([]models.AnalysisCandidate, error) {
			return []models.AnalysisCandidate{
				{ID: "rvw_0001", Language: "en", Sentiment: "positive", Severity: 1,
					Topics: []string{"taste"}, ReplyEN: "We guarantee you'll love it!", ReplyID: "Terima kasih!"},
				{ID: "rvw_0002", Language: "en", Sentiment: "positive", Severity: 1,
					Topics: []string{"taste"}, ReplyEN: "Thanks for visiting!", ReplyID: "Terima kasih!"},
			}, nil
		},
	}
	svc := NewService(cls, st)

	_, err := svc.RunPending(context.Background(), models.DefaultBrandVoice())
	if err != nil {
		t.Fatalf("RunPending: %v", err)
	}
	if st.analyses["rvw_0001"].Status != models.StatusDraft {
		t.Errorf("banned-term reply status = %q, want draft", st.analyses["rvw_0001"].Status)
	}
	if st.analyses["rvw_0002"].Status != models.StatusApproved {
		t.Errorf("clean reply status = %q, want approved", st.analyses["rvw_0002"].Status)
	}
}

func TestRunPendingTruncatesReplies(t *testing.T) {
	st := newMockStore(review("rvw_0001"))
	long := strings.Repeat("thank you very much ", 20)
	cls := &mock.Classifier{
		Name_: "mock",
		ClassifyFunc: func(_ context.Context, _ models.BrandVoice, _ []models.Review) ([]models.AnalysisCandidate, error) {
			return []models.AnalysisCandidate{
				{ID: "rvw_0001", Language: "en", Sentiment: "positive", Severity: 1,
					Topics: []string{"taste"}, ReplyEN: long, ReplyID: long},
			}, nil
		},
	}
	svc := NewService(cls, st)

	if _, err := svc.RunPending(context.Background(), models.DefaultBrandVoice()); err != nil {
		t.Fatalf("RunPending: %v", err)
	}
	a := st.analyses["rvw_0001"]
	if len(a.ReplyEN) > 220 || len(a.ReplyID) > 220 {
		t.Errorf("reply lengths = %d, %d, want <= 220", len(a.ReplyEN), len(a.ReplyID))
	}
}

func TestRunPendingIdempotent(t *testing.T) {
	st := newMockStore(review("rvw_0001"))
	svc := NewService(mock.NewEchoClassifier(), st)

	if _, err := svc.RunPending(context.Background(), models.DefaultBrandVoice()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := svc.RunPending(context.Background(), models.DefaultBrandVoice())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Pending != 0 || res.Analyzed != 0 {
		t.Errorf("second run result = %+v, want all zero", res)
	}
}
