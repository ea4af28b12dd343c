package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vburojevic/pricewatch/internal/domain"
)

func TestSessionLifecycle(t *testing.T) {
	s := New("s1", validRequest())
	require.Equal(t, domain.StatusIdle, s.Status())

	require.NoError(t, s.begin(time.Now()))
	assert.Equal(t, domain.StatusFetching, s.Status())

	require.NoError(t, s.watch(1000))
	snap := s.Snapshot()
	assert.Equal(t, domain.StatusWatching, snap.Status)
	require.NotNil(t, snap.StartValue)
	assert.Equal(t, domain.Price(1000), *snap.StartValue)
	assert.Equal(t, domain.Price(1000), *snap.LastValue)
	assert.Zero(t, snap.CheckCount, "initial sample is not a check")

	// start value is set once
	assert.ErrorIs(t, s.watch(900), ErrInvalidTransition)

	assert.True(t, s.requestStop())
	assert.False(t, s.requestStop(), "second stop is a no-op")
	assert.Equal(t, domain.StatusStopping, s.Status())

	require.NoError(t, s.finish(domain.StatusStopped, time.Now(), ""))
	assert.Equal(t, domain.StatusStopped, s.Status())
	assert.False(t, s.requestStop())
	assert.NotNil(t, s.Snapshot().EndedAt)
}

func TestSessionRejectsInvalidTransitions(t *testing.T) {
	s := New("s1", validRequest())

	assert.ErrorIs(t, s.watch(1000), ErrInvalidTransition, "idle cannot jump to watching")
	assert.False(t, s.requestStop(), "stop while idle is a no-op")

	_, _, err := s.observe(domain.SampleOf(1000))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, s.begin(time.Now()))
	assert.ErrorIs(t, s.begin(time.Now()), ErrInvalidTransition)
}

func TestSessionInitialFailureGoesStraightToStopped(t *testing.T) {
	s := New("s1", validRequest())
	require.NoError(t, s.begin(time.Now()))
	require.NoError(t, s.finish(domain.StatusStopped, time.Now(), "initial fetch failed"))

	snap := s.Snapshot()
	assert.Equal(t, domain.StatusStopped, snap.Status)
	assert.Nil(t, snap.StartValue, "start value only exists once watching was reached")
	assert.Equal(t, "initial fetch failed", snap.Error)
}

func TestSessionObserveCounts(t *testing.T) {
	s := New("s1", validRequest())
	require.NoError(t, s.begin(time.Now()))
	require.NoError(t, s.watch(1000))

	prev, n, err := s.observe(domain.SampleOf(950))
	require.NoError(t, err)
	assert.Equal(t, domain.Price(1000), prev)
	assert.Equal(t, 1, n)

	prev, n, err = s.observe(domain.Unavailable("timeout"))
	require.NoError(t, err)
	assert.Equal(t, domain.Price(950), prev)
	assert.Equal(t, 2, n)

	last, ok := s.LastValue()
	require.True(t, ok)
	assert.Equal(t, domain.Price(950), last, "failed sample leaves last value alone")

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.Drops)
	assert.Equal(t, 1, snap.Failures)
	assert.Equal(t, domain.Price(1000), *snap.StartValue)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New("s1", validRequest())
	require.NoError(t, s.begin(time.Now()))
	require.NoError(t, s.watch(1000))

	snap := s.Snapshot()
	*snap.LastValue = 1
	last, _ := s.LastValue()
	assert.Equal(t, domain.Price(1000), last)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  StartRequest
		code string
	}{
		{"valid", validRequest(), ""},
		{"empty target", StartRequest{Recipient: "a@b.c", Interval: time.Minute}, CodeInvalidTarget},
		{"not a url", StartRequest{Target: "amazon.com/dp/1", Recipient: "a@b.c", Interval: time.Minute}, CodeInvalidTarget},
		{"ftp", StartRequest{Target: "ftp://x.example/p", Recipient: "a@b.c", Interval: time.Minute}, CodeInvalidTarget},
		{"no at", StartRequest{Target: "https://x.example/p", Recipient: "not-an-email", Interval: time.Minute}, CodeInvalidRecipient},
		{"empty recipient", StartRequest{Target: "https://x.example/p", Interval: time.Minute}, CodeInvalidRecipient},
		{"too short", StartRequest{Target: "https://x.example/p", Recipient: "a@b.c", Interval: 29 * time.Second}, CodeInvalidInterval},
		{"too long", StartRequest{Target: "https://x.example/p", Recipient: "a@b.c", Interval: 3601 * time.Second}, CodeInvalidInterval},
		{"fractional", StartRequest{Target: "https://x.example/p", Recipient: "a@b.c", Interval: 90500 * time.Millisecond}, CodeInvalidInterval},
		{"lower bound", StartRequest{Target: "https://x.example/p", Recipient: "a@b.c", Interval: 30 * time.Second}, ""},
		{"upper bound", StartRequest{Target: "http://x.example/p", Recipient: "a@b.c", Interval: time.Hour}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.code, verr.Code)
			assert.NotEmpty(t, verr.Hint)
		})
	}
}
