package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/guestpulse/guestpulse/internal/api/response"
	"github.com/guestpulse/guestpulse/internal/store"
	"github.com/guestpulse/guestpulse/pkg/models"
)

// replyItem is one entry in the reply queue: the drafted replies together
// with the review context a moderator needs.
type replyItem struct {
	ID        string   `json:"id"`
	Outlet    string   `json:"outlet"`
	Brand     string   `json:"brand"`
	Platform  string   `json:"platform"`
	Text      string   `json:"text"`
	Sentiment string   `json:"sentiment"`
	Topics    []string `json:"topics"`
	Severity  int      `json:"severity"`
	ReplyEN   string   `json:"reply_en"`
	ReplyID   string   `json:"reply_id"`
	Status    string   `json:"status"`
}

func buildQueue(reviews []*models.Review, analyses []*models.Analysis, status string) []replyItem {
	byID := make(map[string]*models.Review, len(reviews))
	for _, r := range reviews {
		byID[r.ID] = r
	}

	items := make([]replyItem, 0, len(analyses))
	for _, a := range analyses {
		if status != "" && a.Status != status {
			continue
		}
		rv, ok := byID[a.ID]
		if !ok {
			continue
		}
		items = append(items, replyItem{
			ID:        a.ID,
			Outlet:    rv.Outlet,
			Brand:     rv.Brand,
			Platform:  rv.Platform,
			Text:      rv.Text,
			Sentiment: a.Sentiment,
			Topics:    a.Topics,
			Severity:  a.Severity,
			ReplyEN:   a.ReplyEN,
			ReplyID:   a.ReplyID,
			Status:    a.Status,
		})
	}
	return items
}

// NewReplyQueueHandler returns an http.HandlerFunc for GET /api/v1/replies.
// The optional status query parameter narrows the queue (draft, approved,
// exported).
func NewReplyQueueHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		switch status {
		case "", models.StatusDraft, models.StatusApproved, models.StatusExported:
		default:
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"status must be draft, approved, or exported", nil)
			return
		}

		reviews, analyses, err := loadQueueRows(r, st)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load reply queue", nil)
			return
		}

		response.JSON(w, buildQueue(reviews, analyses, status))
	}
}

// NewApproveRepliesHandler returns an http.HandlerFunc for
// POST /api/v1/replies/approve. Draft analyses move to approved; ids with
// no stored analysis are reported back, not failed on.
func NewApproveRepliesHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if len(req.IDs) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "ids must not be empty", nil)
			return
		}

		approved := 0
		var notFound []string
		for _, id := range req.IDs {
			err := st.UpdateAnalysisStatus(r.Context(), id, models.StatusApproved)
			switch {
			case err == nil:
				approved++
			case errors.Is(err, store.ErrNotFound):
				notFound = append(notFound, id)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to approve replies", nil)
				return
			}
		}

		response.JSON(w, map[string]any{
			"approved":  approved,
			"not_found": notFound,
		})
	}
}

// NewExportRepliesHandler returns an http.HandlerFunc for
// POST /api/v1/replies/export. All approved replies flip to exported in a
// single statement, so a failure leaves no partially exported batch, and
// the affected rows come back with their review context.
func NewExportRepliesHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := st.ExportApproved(r.Context())
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to export replies", nil)
			return
		}

		reviews, analyses, err := loadQueueRows(r, st)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to export replies", nil)
			return
		}

		batch := make(map[string]bool, len(ids))
		for _, id := range ids {
			batch[id] = true
		}
		items := make([]replyItem, 0, len(ids))
		for _, it := range buildQueue(reviews, analyses, models.StatusExported) {
			if batch[it.ID] {
				items = append(items, it)
			}
		}

		response.JSON(w, map[string]any{
			"exported": len(items),
			"replies":  items,
		})
	}
}

func loadQueueRows(r *http.Request, st store.Store) ([]*models.Review, []*models.Analysis, error) {
	reviews, err := st.ListReviews(r.Context())
	if err != nil {
		return nil, nil, err
	}
	analyses, err := st.ListAnalyses(r.Context())
	if err != nil {
		return nil, nil, err
	}
	return reviews, analyses, nil
}
