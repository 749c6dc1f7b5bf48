package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/guestpulse/guestpulse/internal/api/response"
	"github.com/guestpulse/guestpulse/internal/store"
	"github.com/guestpulse/guestpulse/pkg/models"
)

const (
	maxIngestBatch   = 1000
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// reviewInput is one inbound review row. ID is optional; rows without one
// get a sequential rvw_NNNN id on ingest.
type reviewInput struct {
	ID        string  `json:"id"`
	Outlet    string  `json:"outlet"`
	Brand     string  `json:"brand"`
	Platform  string  `json:"platform"`
	Rating    *int    `json:"rating"`
	Text      string  `json:"text"`
	Language  *string `json:"language"`
	Timestamp string  `json:"timestamp"`
	Username  *string `json:"username"`
	OrderType *string `json:"order_type"`
}

// requiredReviewFields are checked on every inbound row before anything is
// inserted; a single bad row rejects the whole batch.
var requiredReviewFields = []string{"outlet", "brand", "platform", "text", "timestamp"}

// NewIngestReviewsHandler returns an http.HandlerFunc for POST /api/v1/reviews.
func NewIngestReviewsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Reviews []reviewInput `json:"reviews"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if len(req.Reviews) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "reviews must not be empty", nil)
			return
		}
		if len(req.Reviews) > maxIngestBatch {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				fmt.Sprintf("batch exceeds %d reviews", maxIngestBatch), nil)
			return
		}

		// Validate the whole batch up front so a malformed row never
		// results in a partial ingest.
		if details := validateBatch(req.Reviews); len(details) > 0 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR",
				"One or more reviews are missing required fields", details)
			return
		}

		existing, err := st.ListReviews(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to ingest reviews", nil)
			return
		}

		ingested, skipped := 0, 0
		var ids []string
		next := nextReviewSeq(existing)
		for _, in := range req.Reviews {
			id := strings.TrimSpace(in.ID)
			if id == "" {
				id = fmt.Sprintf("rvw_%04d", next)
				next++
			}
			rv := &models.Review{
				ID:        id,
				Outlet:    in.Outlet,
				Brand:     in.Brand,
				Platform:  in.Platform,
				Rating:    in.Rating,
				Text:      in.Text,
				Language:  in.Language,
				Timestamp: in.Timestamp,
				Username:  in.Username,
				OrderType: in.OrderType,
				CreatedAt: time.Now().UTC(),
			}
			inserted, err := st.InsertReview(r.Context(), rv)
			if err != nil {
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to ingest reviews", nil)
				return
			}
			if inserted {
				ingested++
				ids = append(ids, id)
			} else {
				skipped++
			}
		}

		response.Created(w, map[string]any{
			"ingested": ingested,
			"skipped":  skipped,
			"ids":      ids,
		})
	}
}

// nextReviewSeq returns one past the highest rvw_N sequence already stored,
// so generated ids never collide with explicitly supplied ones.
func nextReviewSeq(reviews []*models.Review) int {
	high := 0
	for _, rv := range reviews {
		var n int
		if _, err := fmt.Sscanf(rv.ID, "rvw_%d", &n); err == nil && n > high {
			high = n
		}
	}
	return high + 1
}

// validateBatch reports missing required fields per row index.
func validateBatch(reviews []reviewInput) []map[string]any {
	var details []map[string]any
	for i, in := range reviews {
		var missing []string
		byField := map[string]string{
			"outlet":    in.Outlet,
			"brand":     in.Brand,
			"platform":  in.Platform,
			"text":      in.Text,
			"timestamp": in.Timestamp,
		}
		for _, f := range requiredReviewFields {
			if strings.TrimSpace(byField[f]) == "" {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			details = append(details, map[string]any{"index": i, "missing": missing})
		}
	}
	return details
}

// NewListReviewsHandler returns an http.HandlerFunc for GET /api/v1/reviews.
func NewListReviewsHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := queryInt(r, "page", 1)
		if page < 1 {
			page = 1
		}
		limit := queryInt(r, "limit", defaultPageLimit)
		if limit < 1 {
			limit = defaultPageLimit
		}
		if limit > maxPageLimit {
			limit = maxPageLimit
		}

		reviews, err := st.ListReviews(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list reviews", nil)
			return
		}

		total := len(reviews)
		start := (page - 1) * limit
		if start > total {
			start = total
		}
		end := start + limit
		if end > total {
			end = total
		}

		response.Collection(w, reviews[start:end], response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: end < total,
		})
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
