package probe

import (
	"context"
	"sync"
	"time"
)

// MockPinger is a Pinger for tests. Latencies maps addresses to replies;
// unknown addresses time out.
type MockPinger struct {
	mu        sync.Mutex
	Latencies map[string]float64
	Calls     []string
	Closed    bool
}

// NewMockPinger creates a mock answering the given addresses
func NewMockPinger(latencies map[string]float64) *MockPinger {
	return &MockPinger{Latencies: latencies}
}

// Ping implements Pinger
func (m *MockPinger) Ping(_ context.Context, ipAddr string, _ time.Duration) *float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, ipAddr)
	if latency, ok := m.Latencies[ipAddr]; ok {
		return &latency
	}
	return nil
}

// Close implements Pinger
func (m *MockPinger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// GetCalls returns the addresses pinged so far
func (m *MockPinger) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

// IsClosed reports whether Close was called
func (m *MockPinger) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Closed
}

// MockPingerFactory hands out one MockPinger, or fails with Err
type MockPingerFactory struct {
	Pinger *MockPinger
	Err    error
}

// CreatePinger implements PingerFactory
func (f *MockPingerFactory) CreatePinger(bool) (Pinger, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Pinger, nil
}
