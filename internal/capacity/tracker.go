// Package capacity tracks how much of an NGO's daily distribution capacity is
// already committed. Admission is advisory: the feed surfaces a warning and
// claims still succeed unless the hard-limit switch is on.
package capacity

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// NearLimitThreshold is the informational tier.
	NearLimitThreshold = 0.8
	// WarningThreshold trips the capacity warning surfaced in the feed.
	WarningThreshold = 0.9
)

// Utilization is a point-in-time snapshot of one NGO's today-bucket.
type Utilization struct {
	NGOID             string  `json:"ngo_id"`
	UnitsClaimedToday int     `json:"units_claimed_today"`
	DailyCapacity     int     `json:"daily_capacity"`
	Rate              float64 `json:"rate"`
	NearLimit         bool    `json:"near_limit"`
	CapacityWarning   bool    `json:"capacity_warning"`
}

// Tracker keeps per-NGO per-day unit counters. Counters are atomic so many
// concurrent claims against one NGO never serialize behind a write lock; the
// outer map lock is only taken to materialize a missing bucket. Stale days
// fall out of the rolling window on read.
type Tracker struct {
	mu      sync.RWMutex
	buckets map[string]*atomic.Int64 // key: ngoID + "|" + yyyy-mm-dd
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		buckets: make(map[string]*atomic.Int64),
		now:     time.Now,
	}
}

// NewTrackerAt injects the clock for tests and the sweep.
func NewTrackerAt(now func() time.Time) *Tracker {
	t := NewTracker()
	t.now = now
	return t
}

func dayKey(ngoID string, t time.Time) string {
	return ngoID + "|" + t.UTC().Format("2006-01-02")
}

func (t *Tracker) bucket(ngoID string) *atomic.Int64 {
	key := dayKey(ngoID, t.now())

	t.mu.RLock()
	b, ok := t.buckets[key]
	t.mu.RUnlock()
	if ok {
		return b
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok = t.buckets[key]; ok {
		return b
	}
	b = new(atomic.Int64)
	t.buckets[key] = b
	return b
}

// Commit adds units to the NGO's today-bucket on a successful claim.
func (t *Tracker) Commit(ngoID string, units int) {
	t.bucket(ngoID).Add(int64(units))
}

// Release subtracts units when a previously-claimed donation is cancelled or
// rejected. The bucket floors at zero rather than going negative when a
// release crosses midnight into a fresh bucket.
func (t *Tracker) Release(ngoID string, units int) {
	b := t.bucket(ngoID)
	for {
		cur := b.Load()
		next := cur - int64(units)
		if next < 0 {
			next = 0
		}
		if b.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Snapshot computes the utilization for an NGO given its configured daily
// capacity. A zero capacity reports rate 0 and never warns.
func (t *Tracker) Snapshot(ngoID string, dailyCapacity int) Utilization {
	claimed := int(t.bucket(ngoID).Load())

	u := Utilization{
		NGOID:             ngoID,
		UnitsClaimedToday: claimed,
		DailyCapacity:     dailyCapacity,
	}
	if dailyCapacity > 0 {
		u.Rate = float64(claimed) / float64(dailyCapacity)
		u.NearLimit = u.Rate > NearLimitThreshold
		u.CapacityWarning = u.Rate > WarningThreshold
	}
	return u
}

// Prune drops buckets older than the rolling window. Called by the sweep; the
// counters themselves never consult stale days, so this is purely memory
// hygiene.
func (t *Tracker) Prune() {
	today := t.now().UTC().Format("2006-01-02")

	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range t.buckets {
		if day := key[len(key)-len(today):]; day != today {
			delete(t.buckets, key)
		}
	}
}
