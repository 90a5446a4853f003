package testing

import (
	"sync"

	"github.com/aristath/sectorbl/internal/domain"
)

// MockCovarianceSource wraps a real covariance source and fails selected
// windows, recording every call.
type MockCovarianceSource struct {
	mu       sync.Mutex
	next     domain.CovarianceSource
	failures map[string]error
	calls    []domain.Window
}

// NewMockCovarianceSource creates a mock delegating to next.
func NewMockCovarianceSource(next domain.CovarianceSource) *MockCovarianceSource {
	return &MockCovarianceSource{
		next:     next,
		failures: make(map[string]error),
	}
}

// FailWindow makes Estimate return err for window.
func (m *MockCovarianceSource) FailWindow(window domain.Window, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[window.String()] = err
}

// Calls returns the windows Estimate was called with.
func (m *MockCovarianceSource) Calls() []domain.Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Window(nil), m.calls...)
}

// Estimate records the call and either fails or delegates.
func (m *MockCovarianceSource) Estimate(
	panel *domain.ReturnPanel,
	window domain.Window,
	assets []string,
	params domain.ModelParams,
) (*domain.CovarianceMatrix, error) {
	m.mu.Lock()
	m.calls = append(m.calls, window)
	err := m.failures[window.String()]
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return m.next.Estimate(panel, window, assets, params)
}
