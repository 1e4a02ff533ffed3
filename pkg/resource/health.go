package resource

import (
	"context"
	"fmt"
)

// HealthCheck reports the manager as unhealthy when memory is over budget
// or goroutines pass 80% of the budget.
type HealthCheck struct {
	manager *Manager
}

// NewHealthCheck creates a health check for m.
func NewHealthCheck(m *Manager) *HealthCheck {
	return &HealthCheck{manager: m}
}

// Name returns the name of this health check.
func (h *HealthCheck) Name() string {
	return "resource"
}

// Check verifies that resource usage is within acceptable limits.
func (h *HealthCheck) Check(ctx context.Context) error {
	if err := h.manager.CheckMemory(); err != nil {
		return err
	}
	st := h.manager.Stats()
	if st.MaxGoroutines > 0 {
		threshold := st.MaxGoroutines * 8 / 10
		if st.Goroutines > threshold {
			return fmt.Errorf("goroutine count %d exceeds 80%% threshold (%d/%d)",
				st.Goroutines, threshold, st.MaxGoroutines)
		}
	}
	return nil
}
