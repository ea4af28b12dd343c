package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
		active   bool
	}{
		{StatusIdle, false, false},
		{StatusFetching, false, true},
		{StatusWatching, false, true},
		{StatusStopping, false, true},
		{StatusStopped, true, false},
		{StatusFailed, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.active, tt.status.IsActive())
		})
	}
}

func TestLevelPriorityOrdering(t *testing.T) {
	assert.Less(t, LevelInfo.Priority(), LevelWarn.Priority())
	assert.Less(t, LevelWarn.Priority(), LevelError.Priority())
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelInfo, ParseLevel("bogus"))
}

func TestNewAlert(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	drop := NewAlert("s1", "me@example.com", "https://shop.example/p", 1000, 950, 1, at)
	assert.Equal(t, AlertDrop, drop.Kind)
	assert.Equal(t, Price(50), drop.Delta)

	rise := NewAlert("s1", "me@example.com", "https://shop.example/p", 950, 1100, 4, at)
	assert.Equal(t, AlertRise, rise.Kind)
	assert.Equal(t, Price(150), rise.Delta)
	assert.Equal(t, 4, rise.Check)
}

func TestStatsEventCarriesSnapshot(t *testing.T) {
	start := Price(1000)
	snap := Snapshot{SessionID: "abc", Status: StatusWatching, StartValue: &start, LastValue: &start, CheckCount: 2}

	ev := NewStatsEvent(time.Unix(0, 0).UTC(), snap)
	b, err := json.Marshal(ev)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "stats", m["type"])
	assert.EqualValues(t, SchemaVersion, m["schemaVersion"])
	assert.Equal(t, "abc", m["session_id"])
	inner := m["snapshot"].(map[string]any)
	assert.EqualValues(t, 10, inner["start_value"])
	assert.EqualValues(t, 2, inner["check_count"])
}
