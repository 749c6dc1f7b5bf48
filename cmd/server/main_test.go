package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/guestpulse/guestpulse/internal/cache"
	"github.com/guestpulse/guestpulse/internal/config"
	"github.com/guestpulse/guestpulse/internal/store"
	"github.com/guestpulse/guestpulse/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock store ---

type testStore struct {
	pingErr error
}

func (s *testStore) Ping(_ context.Context) error { return s.pingErr }
func (s *testStore) GetAPIKeyByPrefix(_ context.Context, _ string) ([]*models.APIKey, error) {
	return nil, nil
}
func (s *testStore) UpdateAPIKeyLastUsed(_ context.Context, _ uuid.UUID) error { return nil }
func (s *testStore) CreateAPIKey(_ context.Context, _ *models.APIKey) error    { return nil }
func (s *testStore) ListAPIKeys(_ context.Context) ([]*models.APIKey, error)   { return nil, nil }
func (s *testStore) RevokeAPIKey(_ context.Context, _ uuid.UUID) error         { return nil }
func (s *testStore) InsertReview(_ context.Context, _ *models.Review) (bool, error) {
	return false, nil
}
func (s *testStore) ListReviews(_ context.Context) ([]*models.Review, error) { return nil, nil }
func (s *testStore) GetReview(_ context.Context, _ string) (*models.Review, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) CountReviews(_ context.Context) (int, error) { return 0, nil }
func (s *testStore) InsertAnalysis(_ context.Context, _ *models.Analysis) (bool, error) {
	return false, nil
}
func (s *testStore) ListAnalyses(_ context.Context) ([]*models.Analysis, error) { return nil, nil }
func (s *testStore) GetAnalysis(_ context.Context, _ string) (*models.Analysis, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) UpdateAnalysisStatus(_ context.Context, _ string, _ string) error { return nil }
func (s *testStore) ExportApproved(_ context.Context) ([]string, error)              { return nil, nil }

var _ store.Store = (*testStore)(nil)

// --- mock cache ---

type testCache struct {
	pingErr error
}

func (c *testCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *testCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *testCache) Delete(_ context.Context, _ string) error                         { return nil }
func (c *testCache) Ping(_ context.Context) error                                     { return c.pingErr }
func (c *testCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

var _ cache.Cache = (*testCache)(nil)

// --- health handler tests ---

func fallbackInfo() backendInfo {
	return classifierInfo("fallback", config.ClassifyConfig{Mode: "fallback"})
}

func TestHealthHandler_AllOK(t *testing.T) {
	h := healthHandler(&testStore{}, &testCache{}, fallbackInfo())

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	services := data["services"].(map[string]any)
	assert.Equal(t, "ok", services["database"])
	assert.Equal(t, "ok", services["cache"])
}

func TestHealthHandler_ReportsFallbackBackend(t *testing.T) {
	h := healthHandler(&testStore{}, &testCache{}, fallbackInfo())

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	cls := data["classifier"].(map[string]any)
	assert.Equal(t, "fallback", cls["backend"])
	assert.Equal(t, "fallback", cls["mode"])
	assert.NotContains(t, cls, "model")
	assert.NotContains(t, cls, "base_url")
}

func TestHealthHandler_ReportsLLMSession(t *testing.T) {
	info := classifierInfo("llm", config.ClassifyConfig{
		Mode: "llm",
		LLM: config.LLMConfig{
			Model:   "Qwen3-4B-Instruct-2507",
			BaseURL: "http://localhost:8000/v1",
		},
	})
	h := healthHandler(&testStore{}, &testCache{}, info)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	cls := data["classifier"].(map[string]any)
	assert.Equal(t, "llm", cls["backend"])
	assert.Equal(t, "Qwen3-4B-Instruct-2507", cls["model"])
	assert.Equal(t, "http://localhost:8000/v1", cls["base_url"])
}

func TestHealthHandler_DatabaseDegraded(t *testing.T) {
	h := healthHandler(&testStore{pingErr: errors.New("connection refused")}, &testCache{}, fallbackInfo())

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "DEGRADED", errObj["code"])
}

func TestHealthHandler_CacheDegraded(t *testing.T) {
	h := healthHandler(&testStore{}, &testCache{pingErr: errors.New("redis down")}, fallbackInfo())

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthHandler_BothDegraded(t *testing.T) {
	h := healthHandler(
		&testStore{pingErr: errors.New("db down")},
		&testCache{pingErr: errors.New("redis down")},
		fallbackInfo(),
	)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// --- run() config validation tests ---

func TestRun_FailsOnMissingConfig(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "REDIS_URL", "CLASSIFY_MODE",
	} {
		t.Setenv(key, "")
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}
