package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/guestpulse/guestpulse/internal/analysis"
	"github.com/guestpulse/guestpulse/internal/api/response"
	"github.com/guestpulse/guestpulse/internal/classify"
	"github.com/guestpulse/guestpulse/pkg/models"
)

// PipelineRunner defines the interface the analyze handler depends on.
type PipelineRunner interface {
	RunPending(ctx context.Context, voice models.BrandVoice) (*analysis.RunResult, error)
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /api/v1/analyze.
// The optional body overrides the brand voice for this run; an empty body
// uses the default voice.
func NewAnalyzeHandler(svc PipelineRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		voice := models.DefaultBrandVoice()

		var req struct {
			Tone   string   `json:"tone"`
			Banned []string `json:"banned"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Tone != "" {
			voice.Tone = req.Tone
		}
		if req.Banned != nil {
			voice.Banned = req.Banned
		}

		result, err := svc.RunPending(r.Context(), voice)
		if err != nil {
			switch {
			case errors.Is(err, classify.ErrBatchFailed),
				errors.Is(err, classify.ErrBackendUnreachable):
				response.Error(w, http.StatusBadGateway, "CLASSIFICATION_FAILED",
					"The classification backend could not process the batch", nil)
			case errors.Is(err, classify.ErrBackendTimeout):
				response.Error(w, http.StatusGatewayTimeout, "CLASSIFICATION_TIMEOUT",
					"Classification took too long and was cancelled", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.JSON(w, result)
	}
}
