// Package stats keeps process-wide lane/byte counters and snapshots them to
// disk, grounded on the teacher's common/version cacheLatestVersions use of
// vitess's atomic-write helper.
package stats

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/op/go-logging"
	"github.com/youtube/vitess/go/ioutil2"
)

// Counters is the process-wide lane/byte tally, safe for concurrent use by
// every session lane via AddReceived/AddSent, and by the accept loop via
// LaneOpened/LaneClosed. Implements session.ByteCounter.
type Counters struct {
	lanesOpened int64
	lanesActive int64
	received    int64
	sent        int64
	startedAt   time.Time
}

// New returns a zeroed Counters stamped with the given process-start time.
// Start time is injected rather than read internally so callers control the
// clock — cmd/slimd's main stamps it once at startup, and tests can pass a
// fixed value instead of depending on wall-clock time.
func New(startedAt time.Time) *Counters {
	return &Counters{startedAt: startedAt}
}

// AddReceived implements session.ByteCounter.
func (c *Counters) AddReceived(n int) { atomic.AddInt64(&c.received, int64(n)) }

// AddSent implements session.ByteCounter.
func (c *Counters) AddSent(n int) { atomic.AddInt64(&c.sent, int64(n)) }

// LaneOpened records a newly accepted connection.
func (c *Counters) LaneOpened() {
	atomic.AddInt64(&c.lanesOpened, 1)
	atomic.AddInt64(&c.lanesActive, 1)
}

// LaneClosed records a lane's disconnection.
func (c *Counters) LaneClosed() {
	atomic.AddInt64(&c.lanesActive, -1)
}

// Snapshot is the JSON-serializable view written to disk and served by
// internal/adminhttp.
type Snapshot struct {
	LanesOpened int64 `json:"lanes_opened"`
	LanesActive int64 `json:"lanes_active"`
	Received    int64 `json:"bytes_received"`
	Sent        int64 `json:"bytes_sent"`
	UptimeSecs  int64 `json:"uptime_seconds"`
}

// Snapshot atomically reads every counter into a consistent-enough point in
// time view (each field is read atomically; the whole struct is a best
// effort, not a single transaction).
func (c *Counters) Snapshot(now time.Time) Snapshot {
	return Snapshot{
		LanesOpened: atomic.LoadInt64(&c.lanesOpened),
		LanesActive: atomic.LoadInt64(&c.lanesActive),
		Received:    atomic.LoadInt64(&c.received),
		Sent:        atomic.LoadInt64(&c.sent),
		UptimeSecs:  int64(now.Sub(c.startedAt).Seconds()),
	}
}

// WriteSnapshot renders Snapshot(now) as JSON and writes it to path with the
// same atomic-rename-based write the teacher uses to avoid a reader ever
// observing a half-written stats file.
func (c *Counters) WriteSnapshot(path string, now time.Time, log *logging.Logger) error {
	body, err := json.MarshalIndent(c.Snapshot(now), "", "  ")
	if err != nil {
		return fmt.Errorf("stats: marshaling snapshot: %w", err)
	}
	if err := ioutil2.WriteFileAtomic(path, body, 0644); err != nil {
		if log != nil {
			log.Errorf("stats: writing snapshot to %s: %v", path, err)
		}
		return fmt.Errorf("stats: writing snapshot: %w", err)
	}
	return nil
}
