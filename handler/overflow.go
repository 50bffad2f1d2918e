package handler

import (
	"sync/atomic"
	"time"

	"github.com/philipp01105/nlog-logdna/core"
)

// OverflowPolicy defines how to handle full async queues
type OverflowPolicy int

const (
	// DropNewest drops the newest log entry when queue is full
	DropNewest OverflowPolicy = iota
	// DropOldest drops the oldest log entry when queue is full
	DropOldest
	// Block blocks the caller until space is available (with timeout)
	Block
)

// String returns the string representation of the policy
func (p OverflowPolicy) String() string {
	switch p {
	case DropNewest:
		return "DropNewest"
	case DropOldest:
		return "DropOldest"
	case Block:
		return "Block"
	default:
		return "Unknown"
	}
}

// DefaultLevelPolicy returns the default level-based overflow policies
func DefaultLevelPolicy() map[core.Level]OverflowPolicy {
	return map[core.Level]OverflowPolicy{
		core.VerboseLevel: DropNewest,
		core.DebugLevel:   DropNewest,
		core.InfoLevel:    DropNewest,
		core.WarnLevel:    DropNewest,
		core.ErrorLevel:   Block,
		core.FatalLevel:   Block,
	}
}

const numLevels = int(core.FatalLevel) + 1

// Stats tracks handler statistics
type Stats struct {
	dropped   [numLevels]atomic.Uint64
	blocked   atomic.Uint64
	processed atomic.Uint64
	// unformattable counts entries the formatter rejected
	unformattable atomic.Uint64
	batchesSent   atomic.Uint64
	batchesFailed atomic.Uint64
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{}
}

func levelIndex(level core.Level) int {
	if level < 0 || int(level) >= numLevels {
		return int(core.InfoLevel)
	}
	return int(level)
}

// IncrementDropped atomically increments the dropped counter for a level
func (s *Stats) IncrementDropped(level core.Level) {
	s.dropped[levelIndex(level)].Add(1)
}

// IncrementBlocked atomically increments the blocked counter
func (s *Stats) IncrementBlocked() { s.blocked.Add(1) }

// IncrementProcessed atomically increments the processed counter
func (s *Stats) IncrementProcessed() { s.processed.Add(1) }

// AddProcessed adds n to the processed counter
func (s *Stats) AddProcessed(n int) { s.processed.Add(uint64(n)) }

// IncrementUnformattable counts an entry dropped by the formatter
func (s *Stats) IncrementUnformattable() { s.unformattable.Add(1) }

// IncrementBatchesSent counts a batch accepted by the destination
func (s *Stats) IncrementBatchesSent() { s.batchesSent.Add(1) }

// IncrementBatchesFailed counts a batch that could not be delivered
func (s *Stats) IncrementBatchesFailed() { s.batchesFailed.Add(1) }

// GetDropped returns the dropped count for a level
func (s *Stats) GetDropped(level core.Level) uint64 {
	if level < 0 || int(level) >= numLevels {
		return 0
	}
	return s.dropped[level].Load()
}

// GetTotalDropped returns the total dropped across all levels
func (s *Stats) GetTotalDropped() uint64 {
	var total uint64
	for i := range s.dropped {
		total += s.dropped[i].Load()
	}
	return total
}

// Reset resets all counters to zero
func (s *Stats) Reset() {
	for i := range s.dropped {
		s.dropped[i].Store(0)
	}
	s.blocked.Store(0)
	s.processed.Store(0)
	s.unformattable.Store(0)
	s.batchesSent.Store(0)
	s.batchesFailed.Store(0)
}

// Snapshot is a point-in-time copy of Stats
type Snapshot struct {
	DroppedTotal       map[core.Level]uint64
	BlockedTotal       uint64
	ProcessedTotal     uint64
	UnformattableTotal uint64
	BatchesSent        uint64
	BatchesFailed      uint64
}

// GetSnapshot returns a snapshot of current statistics
func (s *Stats) GetSnapshot() Snapshot {
	dropped := make(map[core.Level]uint64, numLevels)
	for i := range s.dropped {
		dropped[core.Level(i)] = s.dropped[i].Load()
	}
	return Snapshot{
		DroppedTotal:       dropped,
		BlockedTotal:       s.blocked.Load(),
		ProcessedTotal:     s.processed.Load(),
		UnformattableTotal: s.unformattable.Load(),
		BatchesSent:        s.batchesSent.Load(),
		BatchesFailed:      s.batchesFailed.Load(),
	}
}

// Queue is a bounded queue that applies per-level overflow policies
type Queue[T any] struct {
	items          chan T
	overflowPolicy map[core.Level]OverflowPolicy
	blockTimeout   time.Duration
	stats          *Stats
}

// NewQueue creates a queue with the given capacity. A nil policy map
// selects DefaultLevelPolicy; a zero blockTimeout selects 100ms.
func NewQueue[T any](size int, policy map[core.Level]OverflowPolicy, blockTimeout time.Duration, stats *Stats) *Queue[T] {
	if size <= 0 {
		size = 1000
	}
	if policy == nil {
		policy = DefaultLevelPolicy()
	}
	if blockTimeout == 0 {
		blockTimeout = 100 * time.Millisecond
	}
	if stats == nil {
		stats = NewStats()
	}
	return &Queue[T]{
		items:          make(chan T, size),
		overflowPolicy: policy,
		blockTimeout:   blockTimeout,
		stats:          stats,
	}
}

// C returns the receive side of the queue
func (q *Queue[T]) C() <-chan T { return q.items }

// Len returns the number of queued items
func (q *Queue[T]) Len() int { return len(q.items) }

// Offer enqueues item according to the policy for level and reports
// whether it was accepted. done aborts a blocking offer.
func (q *Queue[T]) Offer(level core.Level, item T, done <-chan struct{}) bool {
	policy, ok := q.overflowPolicy[level]
	if !ok {
		policy = DropNewest // Default if not specified
	}

	// Fast path
	select {
	case q.items <- item:
		return true
	default:
	}

	switch policy {
	case Block:
		timer := time.NewTimer(q.blockTimeout)
		defer timer.Stop()
		select {
		case q.items <- item:
			return true
		case <-timer.C:
			q.stats.IncrementBlocked()
			q.stats.IncrementDropped(level)
			return false
		case <-done:
			q.stats.IncrementDropped(level)
			return false
		}

	case DropOldest:
		select {
		case <-q.items: // Remove oldest
			q.stats.IncrementDropped(level)
		default:
		}
		select {
		case q.items <- item:
			return true
		default:
			// Still full, drop this one
			q.stats.IncrementDropped(level)
			return false
		}

	default:
		q.stats.IncrementDropped(level)
		return false
	}
}
