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
	"time"

	"github.com/splitframe/timewarp/frameclock"
	"github.com/splitframe/timewarp/logger"
)

// seekWorker is the background loop that services seek and jump requests.
// Nothing happens until the reference snapshot exists: a seek before that
// point has nowhere to rewind to.
func (e *Engine) seekWorker(parked *sync.WaitGroup) {
	defer e.workers.Done()

	logger.Log("playback", "entering seek worker")
	defer logger.Log("playback", "exiting seek worker")

	st := e.status
	st.crit.Lock()
	defer st.crit.Unlock()

	parked.Done()

	for {
		for st.running && !(st.inPlayback && (st.jumpBack || st.jumpForward || st.targetFrame != NoTarget)) {
			st.seekRequested.Wait()
		}

		if !st.running {
			return
		}

		e.serviceSeek()
	}
}

// serviceSeek resolves one outstanding seek/jump request. Called with
// status.crit held and returns with it held; the lock is released around
// every call into a collaborator.
func (e *Engine) serviceSeek() {
	st := e.status

	// resolve jump flags into a concrete target. a backward jump wins if
	// both flags are somehow set
	if st.jumpForward {
		st.targetFrame = st.currentFrame + e.jumpInterval
	}
	if st.jumpBack {
		st.targetFrame = st.currentFrame - e.jumpInterval
	}

	target := st.targetFrame
	first := st.firstFrame
	st.crit.Unlock()

	// in queue mode a seek outside the configured start/end window must
	// widen the window, otherwise the playback would be silently clamped
	// back into it
	if e.source.Mode() == ModeQueue {
		e.source.WidenBounds(target)
	}
	latest := e.source.LatestFrame()

	st.crit.Lock()
	if latest > st.latestFrame {
		st.latestFrame = latest
	}
	latest = st.latestFrame

	// edge cases for seeking before the start or past the end of the
	// recording: silently clamped, never an error
	target = frameclock.Clamp(target, first, latest)
	st.targetFrame = target

	// the latest snapshot/diff point at or before the target
	closest := frameclock.NearestIntervalFrame(target, first, e.interval)

	current := st.currentFrame
	reference := st.reference
	st.crit.Unlock()

	logger.Logf("playback", "seek to frame %d (current %d, closest state %d)", target, current, closest)

	paused := e.host.Paused()
	e.host.Pause()

	// restoring a state is only worthwhile when the target is behind the
	// current frame or when the closest state is ahead of it. otherwise
	// fast-forwarding from the present state is already optimal
	seekOK := true
	if target < current || closest > current {
		stateToLoad := reference
		restoredFrame := first

		if closest > first {
			if result, diff := e.archive.Query(closest); result == Resolved {
				decoded, err := e.codec.Decode(reference, diff)
				if err != nil {
					// diff failure: fall back to the reference and let
					// fast-forward cover the larger gap
					logger.Logf("playback", "diff decode failed at frame %d: %v", closest, err)
				} else {
					stateToLoad = decoded
					restoredFrame = closest
				}
			} else {
				logger.Logf("playback", "no diff for frame %d yet, restoring reference", closest)
			}
		}

		if err := e.store.RestoreFullState(stateToLoad); err != nil {
			// fatal to this seek attempt only. the simulation state is
			// left as it is
			logger.Logf("playback", "restore failed: %v", err)
			seekFailures.Inc()
			if e.notify != nil {
				e.notify(NoticeSeekFailed)
			}
			seekOK = false
		} else {
			st.crit.Lock()
			st.currentFrame = restoredFrame
			st.crit.Unlock()
		}
	}

	// fast-forward to close the remaining gap. skipped when the restored
	// state is already the target and when the target is the latest known
	// frame: in the latter case the seek completes at the nearest state
	// rather than waiting for frames that may never arrive
	if seekOK && target != closest && target != latest {
		st.crit.Lock()
		st.fastForward = true
		st.crit.Unlock()

		start := time.Now()
		e.host.SetUnthrottled(true)
		e.host.Resume()

		st.crit.Lock()
		for st.running && st.currentFrame < st.targetFrame {
			st.targetReached.Wait()
		}
		interrupted := !st.running
		st.fastForward = false
		st.crit.Unlock()

		e.host.Pause()
		e.host.SetUnthrottled(false)
		fastForwardSeconds.Observe(time.Since(start).Seconds())

		if interrupted {
			// reset during fast-forward. the seek state is cleared by the
			// reset itself
			st.crit.Lock()
			return
		}
	}

	if !paused {
		e.host.Resume()
	}

	seeksServiced.Inc()

	st.crit.Lock()
	st.jumpBack = false
	st.jumpForward = false
	st.targetFrame = NoTarget
}
