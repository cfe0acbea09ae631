//go:build !windows

package probe

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, ipv6 bool) *socketManager {
	t.Helper()
	mgr, err := newSocketManager(ipv6)
	if err != nil {
		t.Skipf("Skipping ICMP test: %v (requires ping_group_range configuration)", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func TestSocketManager(t *testing.T) {
	t.Run("IPv4 protocol", func(t *testing.T) {
		mgr := newTestManager(t, false)
		require.NotNil(t, mgr.conn)
		assert.Equal(t, protocolICMP, mgr.protocol)
	})

	t.Run("IPv6 protocol", func(t *testing.T) {
		mgr := newTestManager(t, true)
		require.NotNil(t, mgr.conn)
		assert.Equal(t, protocolICMPv6, mgr.protocol)
	})

	t.Run("invalid address", func(t *testing.T) {
		mgr := newTestManager(t, false)
		assert.Nil(t, mgr.Ping(context.Background(), "256.256.256.256", 500*time.Millisecond))
	})

	t.Run("unreachable address respects timeout", func(t *testing.T) {
		mgr := newTestManager(t, false)

		timeout := 300 * time.Millisecond
		start := time.Now()
		latency := mgr.Ping(context.Background(), "192.0.2.1", timeout)
		if latency != nil {
			t.Logf("Unexpected reply from TEST-NET-1: %.2f ms", *latency)
		}
		assert.Less(t, time.Since(start), timeout+200*time.Millisecond)
	})

	t.Run("cancellation returns early", func(t *testing.T) {
		mgr := newTestManager(t, false)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		start := time.Now()
		assert.Nil(t, mgr.Ping(ctx, "192.0.2.1", 2*time.Second))
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("concurrent pings share the socket", func(t *testing.T) {
		mgr := newTestManager(t, false)

		var wg sync.WaitGroup
		results := make([]*float64, 20)
		for i := range results {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				results[idx] = mgr.Ping(context.Background(), "127.0.0.1", 500*time.Millisecond)
			}(i)
		}
		wg.Wait()

		for _, latency := range results {
			if latency != nil {
				assert.GreaterOrEqual(t, *latency, 0.0)
			}
		}
	})

	t.Run("close twice", func(t *testing.T) {
		mgr, err := newSocketManager(false)
		if err != nil {
			t.Skipf("Skipping ICMP test: %v", err)
		}
		assert.NoError(t, mgr.Close())
		assert.NotPanics(t, func() { _ = mgr.Close() })
	})
}
