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

	"github.com/splitframe/timewarp/frameclock"
	"github.com/splitframe/timewarp/logger"
)

// snapshotWorker is the background loop that produces the reference snapshot
// and the diffs against it. At the first interval boundary of the session it
// captures the full reference snapshot; at every interval boundary after
// that it captures a working snapshot and submits an asynchronous diff
// computation to the archive.
//
// Capture failures are not fatal to the loop. A failed reference capture is
// retried at the next interval boundary, which then becomes the session's
// first reconstructable frame. A failed working capture skips the interval
// and the missing diff degrades the corresponding seek to a reference
// restore plus a longer fast-forward.
func (e *Engine) snapshotWorker(parked *sync.WaitGroup) {
	defer e.workers.Done()

	logger.Log("playback", "entering snapshot worker")
	defer logger.Log("playback", "exiting snapshot worker")

	st := e.status

	// the frame handled by the previous iteration. without this the worker
	// would spin while the simulation sits on an interval boundary
	lastHandled := NoFrame

	st.crit.Lock()
	defer st.crit.Unlock()

	// see Engine.Start() for the significance of this. once the critical
	// section is held there is no window in which a wake can be lost:
	// Wait() releases the lock atomically
	parked.Done()

	for {
		for st.running && !(st.currentFrame != NoFrame && st.currentFrame != lastHandled &&
			frameclock.IsIntervalFrame(st.currentFrame, st.firstFrame, e.interval)) {
			st.intervalReached.Wait()
		}

		if !st.running {
			return
		}

		frame := st.currentFrame
		lastHandled = frame

		if !st.inPlayback {
			st.crit.Unlock()
			ref, err := e.store.CaptureFullState()
			st.crit.Lock()

			if err != nil {
				// retried at the next interval boundary
				logger.Logf("playback", "reference capture failed: %v", err)
				continue
			}
			if !st.running {
				return
			}

			st.reference = ref
			st.inPlayback = true
			if frame != st.firstFrame {
				// the boundaries before this one produced nothing. the
				// session's first reconstructable frame moves up to here
				st.firstFrame = frame
			}
			logger.Logf("playback", "reference snapshot captured at frame %d (%d bytes)", frame, len(ref))
			continue
		}

		// the first frame only ever holds the reference snapshot. a seek
		// that rewinds to it restores the reference directly
		if frame == st.firstFrame {
			continue
		}

		// a seek may revisit a boundary that already has a diff
		if result, _ := e.archive.Query(frame); result != Absent {
			continue
		}

		reference := st.reference
		st.crit.Unlock()

		// the working snapshot is transient: captured, handed to the diff
		// computation and forgotten
		working, err := e.store.CaptureFullState()
		if err != nil {
			logger.Logf("playback", "snapshot capture failed at frame %d: %v", frame, err)
			st.crit.Lock()
			continue
		}

		// the computation runs off this worker's thread of control so the
		// loop can continue to the next interval. Submit enforces the
		// in-flight bound before the computation starts
		if e.archive.Submit(frame, func() ([]byte, error) {
			return e.codec.Encode(reference, working)
		}) {
			logger.Logf("playback", "diff submitted for frame %d", frame)
		}

		st.crit.Lock()
	}
}
