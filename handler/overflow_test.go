package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipp01105/nlog-logdna/core"
)

func TestOverflowPolicy_String(t *testing.T) {
	assert.Equal(t, "DropNewest", DropNewest.String())
	assert.Equal(t, "DropOldest", DropOldest.String())
	assert.Equal(t, "Block", Block.String())
	assert.Equal(t, "Unknown", OverflowPolicy(99).String())
}

func TestDefaultLevelPolicy(t *testing.T) {
	p := DefaultLevelPolicy()
	assert.Equal(t, DropNewest, p[core.InfoLevel])
	assert.Equal(t, Block, p[core.ErrorLevel])
	assert.Equal(t, Block, p[core.FatalLevel])
}

func TestQueue_DropNewest(t *testing.T) {
	stats := NewStats()
	q := NewQueue[int](2, nil, 0, stats)

	for i := 0; i < 5; i++ {
		q.Offer(core.InfoLevel, i, nil)
	}

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, uint64(3), stats.GetDropped(core.InfoLevel))
	assert.Equal(t, 0, <-q.C(), "the oldest items are kept")
	assert.Equal(t, 1, <-q.C())
}

func TestQueue_DropOldest(t *testing.T) {
	stats := NewStats()
	policy := map[core.Level]OverflowPolicy{core.InfoLevel: DropOldest}
	q := NewQueue[int](2, policy, 0, stats)

	for i := 0; i < 5; i++ {
		assert.True(t, q.Offer(core.InfoLevel, i, nil))
	}

	assert.Equal(t, uint64(3), stats.GetDropped(core.InfoLevel))
	assert.Equal(t, 3, <-q.C(), "the newest items are kept")
	assert.Equal(t, 4, <-q.C())
}

func TestQueue_BlockTimesOut(t *testing.T) {
	stats := NewStats()
	q := NewQueue[int](1, nil, 10*time.Millisecond, stats)

	require.True(t, q.Offer(core.ErrorLevel, 1, nil))

	start := time.Now()
	assert.False(t, q.Offer(core.ErrorLevel, 2, nil))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	assert.Equal(t, uint64(1), stats.GetSnapshot().BlockedTotal)
	assert.Equal(t, uint64(1), stats.GetDropped(core.ErrorLevel))
}

func TestQueue_BlockSucceedsWhenDrained(t *testing.T) {
	q := NewQueue[int](1, nil, time.Second, nil)
	require.True(t, q.Offer(core.ErrorLevel, 1, nil))

	go func() {
		time.Sleep(10 * time.Millisecond)
		<-q.C()
	}()

	assert.True(t, q.Offer(core.ErrorLevel, 2, nil))
	assert.Equal(t, 2, <-q.C())
}

func TestQueue_BlockAbortsOnDone(t *testing.T) {
	stats := NewStats()
	q := NewQueue[int](1, nil, time.Minute, stats)
	require.True(t, q.Offer(core.ErrorLevel, 1, nil))

	done := make(chan struct{})
	close(done)

	assert.False(t, q.Offer(core.ErrorLevel, 2, done))
	assert.Equal(t, uint64(0), stats.GetSnapshot().BlockedTotal)
}

func TestStats(t *testing.T) {
	s := NewStats()
	s.IncrementDropped(core.DebugLevel)
	s.IncrementDropped(core.WarnLevel)
	s.IncrementDropped(core.Level(100)) // out of range counts as Information
	s.IncrementProcessed()
	s.AddProcessed(4)
	s.IncrementUnformattable()
	s.IncrementBatchesSent()
	s.IncrementBatchesFailed()

	snap := s.GetSnapshot()
	assert.Equal(t, uint64(3), s.GetTotalDropped())
	assert.Equal(t, uint64(1), snap.DroppedTotal[core.InfoLevel])
	assert.Equal(t, uint64(5), snap.ProcessedTotal)
	assert.Equal(t, uint64(1), snap.UnformattableTotal)
	assert.Equal(t, uint64(1), snap.BatchesSent)
	assert.Equal(t, uint64(1), snap.BatchesFailed)
	assert.Equal(t, uint64(0), s.GetDropped(core.Level(-1)))

	s.Reset()
	assert.Equal(t, Snapshot{
		DroppedTotal: map[core.Level]uint64{
			core.VerboseLevel: 0, core.DebugLevel: 0, core.InfoLevel: 0,
			core.WarnLevel: 0, core.ErrorLevel: 0, core.FatalLevel: 0,
		},
	}, s.GetSnapshot())
}
