package location

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ch00k/cvs-compass/internal/geo"
)

func TestTrackProvider_ReplaysAndFollows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.log")
	initial := "# recorded 2023-05-01\n" +
		`{"type":"authorization","status":"always"}` + "\n" +
		"37.3940,127.1100\n" +
		"\n" +
		"garbage\n"
	require.NoError(t, os.WriteFile(path, []byte(initial), 0o644))

	provider := NewTrackProvider(path, true, nil)
	assert.Equal(t, "track", provider.Name())

	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- provider.Run(ctx, sink) }()

	require.Eventually(t, func() bool {
		return len(sink.Locations()) == 1 && len(sink.Failures()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("37.3950,127.1110\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool { return len(sink.Locations()) == 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []AuthorizationStatus{AuthorizedAlways}, sink.Statuses())
	assert.Equal(t, []geo.Location{
		{Latitude: 37.3940, Longitude: 127.1100},
		{Latitude: 37.3950, Longitude: 127.1110},
	}, sink.Locations())
}

func TestTrackProvider_MissingFile(t *testing.T) {
	provider := NewTrackProvider(filepath.Join(t.TempDir(), "missing.log"), true, nil)
	err := provider.Run(context.Background(), &recordingSink{})
	assert.Error(t, err)
}
