package client

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/internal/domain/entity"
)

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 8 * time.Second},
		{10, 8 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, BackoffDelay(tt.retry))
		})
	}
}

func TestSyncState_Transitions(t *testing.T) {
	s := NewSyncState(0, "")
	assert.Equal(t, StatusIdle, s.Snapshot().Status)

	require.True(t, s.begin(false))
	assert.False(t, s.begin(false), "второй прогон не должен начаться")

	delay, retry := s.fail(errors.New("ошибка"), 1)
	assert.True(t, retry)
	assert.Equal(t, time.Second, delay)
	assert.Equal(t, 1, s.Snapshot().RetryCount)
	assert.True(t, s.Snapshot().Running)

	s.enterSyncing()
	_, retry = s.fail(errors.New("ошибка"), 1)
	assert.False(t, retry)

	snap := s.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.False(t, snap.Running)
	assert.Equal(t, 0, snap.RetryCount)
	assert.Equal(t, "ошибка", snap.LastError)

	require.True(t, s.begin(true))
	s.succeed(100, 3, 2, time.Millisecond)

	snap = s.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.LastError)
	assert.Equal(t, int64(100), snap.LastSyncTimestamp)
	assert.Equal(t, 3, snap.Stats.TotalPushed)
	assert.Equal(t, 3, snap.Stats.TotalRuns)
}

func TestIDMapper(t *testing.T) {
	m := NewIDMapper()

	_, ok := m.Get(entity.KindPlayer, 1)
	assert.False(t, ok)

	m.Set(entity.KindPlayer, 1, "a")
	m.Set(entity.KindMatch, 1, "b")

	id, ok := m.Get(entity.KindPlayer, 1)
	assert.True(t, ok)
	assert.Equal(t, "a", id)
	assert.Equal(t, 1, m.Len(entity.KindPlayer))
	assert.Equal(t, 0, m.Len(entity.KindVenue))
}
