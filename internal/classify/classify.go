// Package classify provides the classification backends that turn raw
// reviews into analysis candidates: a deterministic offline heuristic and an
// LLM-backed client, both behind models.Classifier.
package classify

import (
	"fmt"

	"github.com/guestpulse/guestpulse/internal/config"
	"github.com/guestpulse/guestpulse/pkg/models"
)

// NewClassifier constructs the classification backend selected by config.
// Called once at server startup.
func NewClassifier(cfg config.ClassifyConfig) (models.Classifier, error) {
	switch cfg.Mode {
	case "fallback":
		return NewFallback(), nil
	case "llm":
		return NewLLM(cfg.LLM), nil
	default:
		return nil, fmt.Errorf("unknown classify mode %q: must be one of fallback, llm", cfg.Mode)
	}
}
