// This file is part of Timewarp.
//
// Timewarp is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Timewarp is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Timewarp.  If not, see <https://www.gnu.org/licenses/>.

package playback

import (
	"sync"

	"github.com/splitframe/timewarp/logger"
)

// Result of an Archive query.
type Result int

// List of valid Result values. An entry that is Pending or Absent at seek
// time is not an error: the seek worker restores the reference snapshot
// instead and fast-forwards across the larger gap.
const (
	Absent Result = iota
	Pending
	Resolved
)

// Archive is a concurrent mapping from interval frame number to a diff
// computation that is either pending or resolved. Entries are produced by
// the snapshot worker and consumed by the seek worker. Entries are immutable
// once resolved.
//
// The number of computations in flight is bounded. The bound is enforced
// before a new computation starts and it doubles as the backpressure applied
// to the host simulation thread in OnFrameAdvance().
type Archive struct {
	crit sync.Mutex

	// capacity is the diff-capacity-available condition: inflight is below
	// the limit, or the archive has stopped accepting work
	capacity *sync.Cond

	entries  map[int]*diffEntry
	inflight int
	limit    int

	// set to false by Close(). submissions are refused and capacity waits
	// return immediately, so that a reset is never blocked by a full pool
	accepting bool
}

type diffEntry struct {
	resolved bool
	diff     []byte
}

// NewArchive is the preferred method of initialisation for the Archive type.
// The limit argument is the maximum number of diff computations that may be
// in flight concurrently.
func NewArchive(limit int) *Archive {
	a := &Archive{
		entries:   make(map[int]*diffEntry),
		limit:     limit,
		accepting: true,
	}
	a.capacity = sync.NewCond(&a.crit)
	return a
}

// Submit a diff computation for the given interval frame. The computation
// runs on its own goroutine. Submit blocks until an in-flight slot is
// available, keeping the number of concurrent computations at or below the
// archive's limit at all times.
//
// Returns false if the archive is not accepting work or if an entry for the
// frame already exists.
func (a *Archive) Submit(frame int, compute func() ([]byte, error)) bool {
	a.crit.Lock()

	for a.accepting && a.inflight >= a.limit {
		a.capacity.Wait()
	}
	if !a.accepting {
		a.crit.Unlock()
		return false
	}
	if _, ok := a.entries[frame]; ok {
		a.crit.Unlock()
		return false
	}

	e := &diffEntry{}
	a.entries[frame] = e
	a.inflight++
	diffsInflight.Inc()
	a.crit.Unlock()

	go func() {
		diff, err := compute()

		a.crit.Lock()
		defer a.crit.Unlock()

		a.inflight--
		diffsInflight.Dec()
		a.capacity.Broadcast()

		// the archive may have been cleared while the computation was
		// running. the stale entry is simply discarded
		if a.entries[frame] != e {
			return
		}

		if err != nil {
			logger.Logf("playback", "diff computation failed at frame %d: %v", frame, err)
			diffFailures.Inc()
			delete(a.entries, frame)
			return
		}

		e.diff = diff
		e.resolved = true
		diffsComputed.Inc()
	}()

	return true
}

// Query returns the three-way state of the entry for the given frame. The
// returned diff bytes are only valid when the result is Resolved.
func (a *Archive) Query(frame int) (Result, []byte) {
	a.crit.Lock()
	defer a.crit.Unlock()

	e, ok := a.entries[frame]
	if !ok {
		return Absent, nil
	}
	if !e.resolved {
		return Pending, nil
	}
	return Resolved, e.diff
}

// WaitCapacity blocks the caller while the number of in-flight computations
// is at the archive's limit. This is the backpressure applied to the host
// simulation thread: a simulation racing ahead of diff computation is held
// here rather than growing memory without bound.
//
// Returns immediately once the archive has been closed.
func (a *Archive) WaitCapacity() {
	a.crit.Lock()
	defer a.crit.Unlock()

	for a.accepting && a.inflight >= a.limit {
		a.capacity.Wait()
	}
}

// Inflight returns the number of diff computations currently in flight.
func (a *Archive) Inflight() int {
	a.crit.Lock()
	defer a.crit.Unlock()
	return a.inflight
}

// Len returns the number of entries in the archive, pending or resolved.
func (a *Archive) Len() int {
	a.crit.Lock()
	defer a.crit.Unlock()
	return len(a.entries)
}

// Close stops the archive accepting new submissions and wakes every waiter.
// In-flight computations are abandoned: their results are discarded when
// they complete. Part of the cooperative cancellation path, see
// Engine.Reset().
func (a *Archive) Close() {
	a.crit.Lock()
	defer a.crit.Unlock()
	a.accepting = false
	a.capacity.Broadcast()
}

// Clear empties the archive.
func (a *Archive) Clear() {
	a.crit.Lock()
	defer a.crit.Unlock()
	clear(a.entries)
}

// Reopen allows submissions again after a Close.
func (a *Archive) Reopen() {
	a.crit.Lock()
	defer a.crit.Unlock()
	a.accepting = true
}
