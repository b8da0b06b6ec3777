package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleCronValidatesExpression(t *testing.T) {
	s := NewScheduler()

	require.NoError(t, s.ScheduleCron("nightly-ingest", "0 2 * * *", func() error { return nil }))
	assert.Error(t, s.ScheduleCron("broken", "not a cron", func() error { return nil }))
	assert.Equal(t, []string{"nightly-ingest"}, s.Tags())

	require.NoError(t, s.RemoveJob("nightly-ingest"))
	assert.Empty(t, s.Tags())
}

func TestScheduleIntervalRuns(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	require.NoError(t, s.ScheduleInterval("tick", 50*time.Millisecond, func() error {
		runs.Add(1)
		return nil
	}))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}
