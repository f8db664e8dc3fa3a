package ingest

import (
	"sync"
	"time"

	"github.com/mohamedkhairy/oi-tracker/internal/models"
)

// HealthTracker records the outcome of ingestion cycles. Updated once per
// cycle by the pipeline, read by the status endpoint.
type HealthTracker struct {
	mu            sync.RWMutex
	lastSuccess   time.Time
	lastFailure   time.Time
	failureCause  string
	usingFallback bool
}

// NewHealthTracker creates an empty tracker.
func NewHealthTracker() *HealthTracker {
	return &HealthTracker{}
}

// RecordSuccess notes a successful cycle.
func (h *HealthTracker) RecordSuccess(at time.Time, usingFallback bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSuccess = at
	h.usingFallback = usingFallback
}

// RecordFailure notes a failed cycle and its cause.
func (h *HealthTracker) RecordFailure(at time.Time, cause error, usingFallback bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastFailure = at
	if cause != nil {
		h.failureCause = cause.Error()
	}
	h.usingFallback = usingFallback
}

// Snapshot returns the current health view.
func (h *HealthTracker) Snapshot() models.SourceHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := models.SourceHealth{
		FailureCause:      h.failureCause,
		UsingFallbackData: h.usingFallback,
	}
	if !h.lastSuccess.IsZero() {
		t := h.lastSuccess
		out.LastSuccessAt = &t
	}
	if !h.lastFailure.IsZero() {
		t := h.lastFailure
		out.LastFailureAt = &t
	}
	return out
}
