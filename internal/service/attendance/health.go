package attendance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-ingest/internal/domain/attendance"
)

// HealthTracker keeps the last reachability observation of the attendance store.
type HealthTracker struct {
	mode    string
	checker attendance.HealthChecker
	timeout time.Duration

	mu          sync.RWMutex
	checked     bool
	healthy     bool
	lastChecked time.Time
	lastErr     string
}

func NewHealthTracker(mode string, checker attendance.HealthChecker, timeout time.Duration) *HealthTracker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthTracker{mode: mode, checker: checker, timeout: timeout}
}

// Check pings the store once and records the result.
func (h *HealthTracker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	err := h.checker.Ping(ctx)

	h.mu.Lock()
	wasHealthy := h.healthy || !h.checked
	h.checked = true
	h.healthy = err == nil
	h.lastChecked = time.Now().UTC()
	h.lastErr = ""
	if err != nil {
		h.lastErr = err.Error()
	}
	h.mu.Unlock()

	switch {
	case err != nil && wasHealthy:
		slog.Warn("Attendance store became unreachable", "mode", h.mode, "error", err)
	case err == nil && !wasHealthy:
		slog.Info("Attendance store is reachable again", "mode", h.mode)
	}
	return err
}

// Status renders the last observation. Before the first check the store is
// reported unhealthy with no timestamp.
func (h *HealthTracker) Status() attendance.StoreStatusResponse {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := attendance.StoreStatusResponse{Mode: h.mode, Healthy: h.healthy}
	if h.checked {
		checked := h.lastChecked.Format(time.RFC3339)
		resp.LastCheckedAt = &checked
	}
	if h.lastErr != "" {
		lastErr := h.lastErr
		resp.LastError = &lastErr
	}
	return resp
}
