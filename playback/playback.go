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
)

// Default values for the Options type. The interval and jump values are in
// frames: at 60fps an interval of 900 frames is 15 seconds and a jump of 300
// frames is 5 seconds.
const (
	DefInterval         = 900
	DefJumpInterval     = 300
	DefMaxInflightDiffs = 3
)

// Options for the NewEngine() function. The zero value of each field selects
// the corresponding default.
type Options struct {
	// how often, in frames, a snapshot or diff is produced
	Interval int

	// how far, in frames, a jump request moves the playback position
	JumpInterval int

	// maximum number of concurrent diff computations
	MaxInflightDiffs int

	// optional callback for conditions the host may want to surface to the
	// user. called from the seek worker goroutine so implementations should
	// return promptly
	Notify func(Notice)
}

// Engine is the seek-and-snapshot engine for one playback session. It wraps
// a deterministic frame-stepped simulation (the Host) and lets the recorded
// playback be scrubbed forward and backward in time without re-simulating
// from the very beginning, and without a full snapshot at every frame.
//
// Three threads of control cooperate: the host simulation thread, which
// calls OnFrameAdvance() once per simulated frame; the snapshot worker; and
// the seek worker. The workers are started with Start() and terminated,
// cooperatively and joined, with Reset().
type Engine struct {
	host   Host
	store  SnapshotStore
	codec  DiffCodec
	source Source

	status  *status
	archive *Archive

	interval     int
	jumpInterval int
	notify       func(Notice)

	// workers are joined, never detached. Reset() waits on this group
	// before clearing any buffer the workers might be reading
	workers sync.WaitGroup
}

// NewEngine is the preferred method of initialisation for the Engine type.
// The engine does nothing until Start() is called.
func NewEngine(host Host, store SnapshotStore, codec DiffCodec, source Source, opts Options) *Engine {
	if opts.Interval <= 0 {
		opts.Interval = DefInterval
	}
	if opts.JumpInterval <= 0 {
		opts.JumpInterval = DefJumpInterval
	}
	if opts.MaxInflightDiffs <= 0 {
		opts.MaxInflightDiffs = DefMaxInflightDiffs
	}

	return &Engine{
		host:         host,
		store:        store,
		codec:        codec,
		source:       source,
		status:       newStatus(),
		archive:      NewArchive(opts.MaxInflightDiffs),
		interval:     opts.Interval,
		jumpInterval: opts.JumpInterval,
		notify:       opts.Notify,
	}
}

// Start the snapshot and seek workers. A no-op if the workers are already
// running. Start may be called again after a Reset() to begin a new session.
//
// Start does not return until both workers are parked on their wait
// conditions. The host must not advance frames before Start returns,
// otherwise the first interval boundary could slip past the snapshot worker
// and the session would never acquire its reference snapshot.
func (e *Engine) Start() {
	first := e.source.FirstFrame()
	latest := e.source.LatestFrame()

	st := e.status
	st.crit.Lock()
	if st.running {
		st.crit.Unlock()
		return
	}
	st.running = true
	st.firstFrame = first
	st.latestFrame = latest
	st.crit.Unlock()

	e.archive.Reopen()

	var parked sync.WaitGroup
	parked.Add(2)

	e.workers.Add(2)
	go e.snapshotWorker(&parked)
	go e.seekWorker(&parked)

	parked.Wait()
}

// Reset stops both workers, waits for them to terminate and then clears all
// playback state: flags, frame counters, the reference snapshot and the
// diff archive. Idempotent. Every blocked wait in the engine is satisfiable
// by Reset so the join cannot stall.
//
// Reset is also the teardown path: once it returns, no goroutine owned by
// the engine is touching any buffer.
func (e *Engine) Reset() {
	st := e.status
	st.crit.Lock()
	wasRunning := st.running
	st.running = false
	st.intervalReached.Broadcast()
	st.targetReached.Broadcast()
	st.seekRequested.Broadcast()
	st.crit.Unlock()

	// wakes anything blocked on diff capacity, including the host thread
	e.archive.Close()

	if wasRunning {
		e.workers.Wait()
	}

	st.clear()
	e.archive.Clear()
}

// OnFrameAdvance is the single entry point the host simulation calls, once
// per simulated frame. In order it: applies backpressure against the diff
// archive; wakes the snapshot worker on interval boundaries; and wakes the
// seek worker when a fast-forward target has been reached.
//
// The call may block, first on diff capacity and implicitly on nothing else.
// Both possible waits are released by Reset().
func (e *Engine) OnFrameAdvance(frame int) {
	e.archive.WaitCapacity()

	latest := e.source.LatestFrame()

	st := e.status
	st.crit.Lock()
	defer st.crit.Unlock()

	if !st.running {
		return
	}

	st.currentFrame = frame
	if latest > st.latestFrame {
		st.latestFrame = latest
	}

	if frameclock.IsIntervalFrame(frame, st.firstFrame, e.interval) {
		st.intervalReached.Signal()
	}

	if st.inPlayback && st.targetFrame != NoTarget && frame >= st.targetFrame {
		// playback logic only ever advances the frame counter. when the
		// seek was conceptually backward the reporting position is snapped
		// to the target here so that the playback cursor shows up in the
		// right place
		if st.targetFrame < st.currentFrame {
			st.currentFrame = st.targetFrame
		}
		st.targetReached.Signal()
	}
}

// RequestJump requests a fixed-increment move of the playback position in
// the given direction. A no-op until the reference snapshot has been
// captured.
func (e *Engine) RequestJump(direction Direction) {
	st := e.status
	st.crit.Lock()
	defer st.crit.Unlock()

	if !st.running || !st.inPlayback {
		return
	}

	switch direction {
	case JumpBack:
		st.jumpBack = true
	case JumpForward:
		st.jumpForward = true
	}
	st.seekRequested.Signal()
}

// RequestSeek requests an absolute seek to the given frame. The frame is
// clamped into the valid replay range, here and again by the seek worker; an
// out-of-range frame is never an error. A no-op until the reference snapshot
// has been captured.
func (e *Engine) RequestSeek(frame int) {
	st := e.status
	st.crit.Lock()
	defer st.crit.Unlock()

	if !st.running || !st.inPlayback {
		return
	}

	// a request arriving while a seek is already being serviced retargets
	// the fast-forward wait directly, bypassing the seek worker's own clamp.
	// an unclamped frame past the end of the recording would stall the wait
	// until frames arrive, so the clamp is applied here too
	frame = frameclock.Clamp(frame, st.firstFrame, st.latestFrame)

	st.targetFrame = frame
	st.seekRequested.Signal()
}

// Report returns a point-in-time copy of the observable playback state.
func (e *Engine) Report() Report {
	return e.status.report()
}

// Archive returns the engine's diff archive. Read-only inspection for UIs
// and tests; producing and consuming entries is the workers' business.
func (e *Engine) Archive() *Archive {
	return e.archive
}
