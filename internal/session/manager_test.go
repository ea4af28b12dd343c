package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vburojevic/pricewatch/internal/domain"
)

func sequentialIDs() Option {
	var n atomic.Int64
	return WithIDGenerator(func() string {
		return fmt.Sprintf("sess-%d", n.Add(1))
	})
}

func waitDone(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session worker did not exit")
	}
}

func TestManagerRejectsInvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  StartRequest
		code string
	}{
		{"bad recipient", StartRequest{Target: "https://x.example/p", Recipient: "not-an-email", Interval: time.Minute}, CodeInvalidRecipient},
		{"bad target", StartRequest{Target: "ftp://x.example/p", Recipient: "a@b.c", Interval: time.Minute}, CodeInvalidTarget},
		{"short interval", StartRequest{Target: "https://x.example/p", Recipient: "a@b.c", Interval: 5 * time.Second}, CodeInvalidInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newScript(nil, domain.SampleOf(1000))
			m := NewManager(src, nil, nil)

			_, err := m.Start(tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.code, verr.Code)

			assert.Equal(t, domain.StatusIdle, m.Status().Status)
			assert.Empty(t, m.Status().SessionID)
			assert.Zero(t, src.Calls())
		})
	}
}

func TestManagerStartTrimsInputs(t *testing.T) {
	m := NewManager(newScript(nil, domain.SampleOf(1000)), nil, nil, WithSlice(10*time.Millisecond))
	snap, err := m.Start(StartRequest{Target: "  https://x.example/p ", Recipient: " a@b.c\n", Interval: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, "https://x.example/p", snap.Target)
	assert.Equal(t, "a@b.c", snap.Recipient)
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManagerSingleActiveSession(t *testing.T) {
	m := NewManager(newScript(nil, domain.SampleOf(1000)), nil, nil, WithSlice(10*time.Millisecond), sequentialIDs())

	first, err := m.Start(validRequest())
	require.NoError(t, err)
	assert.Equal(t, "sess-1", first.SessionID)

	snap, err := m.Start(validRequest())
	require.ErrorIs(t, err, ErrAlreadyRunning)
	assert.Equal(t, "sess-1", snap.SessionID)

	require.True(t, m.Stop())
	waitDone(t, m)
	assert.Equal(t, domain.StatusStopped, m.Status().Status)

	second, err := m.Start(validRequest())
	require.NoError(t, err)
	assert.Equal(t, "sess-2", second.SessionID, "restart creates a fresh session")
	assert.Zero(t, second.CheckCount)
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManagerStopIsIdempotent(t *testing.T) {
	m := NewManager(newScript(nil, domain.SampleOf(1000)), nil, nil, WithSlice(10*time.Millisecond))
	assert.False(t, m.Stop(), "nothing running")

	_, err := m.Start(validRequest())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return m.Status().Status == domain.StatusWatching }, time.Second, time.Millisecond)

	assert.True(t, m.Stop())
	assert.False(t, m.Stop())
	waitDone(t, m)
	assert.False(t, m.Stop())
	assert.Equal(t, domain.StatusStopped, m.Status().Status)
	assert.NotNil(t, m.Status().EndedAt)
}

func TestManagerStopLatency(t *testing.T) {
	m := NewManager(newScript(nil, domain.SampleOf(1000)), nil, nil, WithSlice(20*time.Millisecond))
	req := validRequest()
	req.Interval = MaxInterval
	_, err := m.Start(req)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return m.Status().Status == domain.StatusWatching }, time.Second, time.Millisecond)

	started := time.Now()
	require.True(t, m.Stop())
	waitDone(t, m)
	assert.Less(t, time.Since(started), 500*time.Millisecond)
}

func TestManagerSetInterval(t *testing.T) {
	m := NewManager(newScript(nil, domain.SampleOf(1000)), nil, nil, WithSlice(10*time.Millisecond))
	require.ErrorIs(t, m.SetInterval(time.Minute), ErrNotRunning)

	_, err := m.Start(validRequest())
	require.NoError(t, err)

	var verr *ValidationError
	require.ErrorAs(t, m.SetInterval(10*time.Second), &verr)
	assert.Equal(t, CodeInvalidInterval, verr.Code)
	assert.Equal(t, 30*time.Second, m.Status().Interval)

	require.NoError(t, m.SetInterval(2*time.Minute))
	assert.Equal(t, 2*time.Minute, m.Status().Interval)
	assert.Equal(t, 120, m.Status().IntervalS)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.ErrorIs(t, m.SetInterval(time.Minute), ErrNotRunning)
}

func TestManagerInitialFailureEndsSession(t *testing.T) {
	n := &recordingNotifier{}
	m := NewManager(newScript(nil, domain.Unavailable("status 404")), n, nil)
	_, err := m.Start(validRequest())
	require.NoError(t, err)
	waitDone(t, m)

	snap := m.Status()
	assert.Equal(t, domain.StatusStopped, snap.Status)
	assert.NotEmpty(t, snap.Error)
	assert.Zero(t, snap.CheckCount)
	assert.Empty(t, n.Alerts())
}

func TestManagerShutdownHonorsContext(t *testing.T) {
	block := make(chan struct{})
	src := newScript(nil, domain.SampleOf(1000))
	src.onFetch = func(int) { <-block }
	m := NewManager(src, nil, nil)
	_, err := m.Start(validRequest())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return src.Calls() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = m.Shutdown(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	// the in-flight fetch completes and the worker exits
	close(block)
	waitDone(t, m)
	assert.Equal(t, domain.StatusStopped, m.Status().Status)
}
