package summarizer

import (
	"sync"
	"time"

	"channel-digest/internal/resilience/retry"
)

type mockRecorder struct {
	mu        sync.Mutex
	lengths   []int
	exceeded  int
	outcomes  []string
	durations int
}

func (m *mockRecorder) RecordLength(length int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lengths = append(m.lengths, length)
}

func (m *mockRecorder) RecordLimitExceeded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exceeded++
}

func (m *mockRecorder) RecordCompliance(bool) {}

func (m *mockRecorder) RecordDuration(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations++
}

func (m *mockRecorder) RecordOutcome(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func testConfig(baseURL string) Config {
	return Config{
		Model:          "test-model",
		MaxTokens:      256,
		CharacterLimit: 300,
		Language:       "english",
		Timeout:        2 * time.Second,
		BaseURL:        baseURL,
	}
}

// speedUp replaces the production retry delays and metrics with test ones.
func speedUp(g *guard) *mockRecorder {
	rec := &mockRecorder{}
	g.metricsRecorder = rec
	g.retryConfig = retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
	return rec
}
