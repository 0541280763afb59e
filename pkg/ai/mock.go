package ai

import (
	"context"
	"time"
)

// MockResponse is the placeholder returned by the offline provider.
const MockResponse = "这是模拟生成的内容。请配置真实的AI API以获得智能生成结果。"

// DefaultMockDelay emulates backend latency for UI testing.
const DefaultMockDelay = 500 * time.Millisecond

// MockAdapter is the deterministic offline provider. It ignores the prompt,
// waits Delay and returns MockResponse without any network I/O.
type MockAdapter struct {
	Delay time.Duration
}

// NewMockAdapter builds a mock with the given delay; negative means no delay.
func NewMockAdapter(delay time.Duration) *MockAdapter {
	if delay < 0 {
		delay = 0
	}
	return &MockAdapter{Delay: delay}
}

// Call implements Adapter. Only cancellation of ctx can make it fail.
func (m *MockAdapter) Call(ctx context.Context, _, _ string, _ Config) (string, error) {
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return MockResponse, nil
}
