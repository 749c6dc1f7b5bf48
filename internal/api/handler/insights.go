package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/guestpulse/guestpulse/internal/api/response"
	"github.com/guestpulse/guestpulse/internal/insights"
)

// Snapshotter defines the interface the insights handler depends on.
type Snapshotter interface {
	Snapshot(ctx context.Context, f insights.Filter) (*insights.Snapshot, error)
}

// NewInsightsHandler returns an http.HandlerFunc for GET /api/v1/insights.
// Repeatable brand/outlet/platform/order_type parameters narrow the data
// set; start and end (RFC3339 or YYYY-MM-DD) bound the window. A date-only
// end is inclusive of that day.
func NewInsightsHandler(svc Snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := insights.Filter{
			Brands:     q["brand"],
			Outlets:    q["outlet"],
			Platforms:  q["platform"],
			OrderTypes: q["order_type"],
		}

		if raw := q.Get("start"); raw != "" {
			ts, ok := parseBound(raw)
			if !ok {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"start must be an RFC3339 timestamp or YYYY-MM-DD date", nil)
				return
			}
			f.Start = ts
		}
		if raw := q.Get("end"); raw != "" {
			ts, ok := parseBound(raw)
			if !ok {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"end must be an RFC3339 timestamp or YYYY-MM-DD date", nil)
				return
			}
			if len(raw) == len("2006-01-02") {
				ts = ts.Add(24 * time.Hour)
			}
			f.End = ts
		}

		snap, err := svc.Snapshot(r.Context(), f)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to compute insights", nil)
			return
		}
		response.JSON(w, snap)
	}
}

func parseBound(raw string) (time.Time, bool) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, true
	}
	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		return ts, true
	}
	return time.Time{}, false
}
