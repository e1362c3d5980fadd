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
	"math"
	"sync"
)

// NoFrame is the value of the current frame before the simulation has
// advanced for the first time.
const NoFrame = math.MinInt

// NoTarget is the value of the target frame when no seek is outstanding.
const NoTarget = math.MaxInt

// status is the shared state record touched by the three threads of control:
// the host simulation thread, the snapshot worker and the seek worker. Every
// field is accessed with crit held. There is no ambient global instance; the
// one status of a session is owned by its Engine and handed to the workers
// at startup.
type status struct {
	crit sync.Mutex

	// each condition variable is named for the observable condition it
	// waits on. waiters re-check their condition in a loop after every
	// wake. all three are broadcast on reset so that running=false is
	// observed promptly
	//
	// intervalReached: currentFrame is on an interval boundary
	// targetReached:   currentFrame has reached or passed targetFrame
	// seekRequested:   a jump flag is set or targetFrame is not NoTarget
	intervalReached *sync.Cond
	targetReached   *sync.Cond
	seekRequested   *sync.Cond

	// false is the sentinel that unblocks and terminates both workers
	running bool

	// true once the reference snapshot has been captured. seeking is
	// disabled until then
	inPlayback bool

	currentFrame int
	targetFrame  int
	latestFrame  int
	firstFrame   int

	// one-shot jump flags, cleared once serviced
	jumpBack    bool
	jumpForward bool

	fastForward bool

	// the one full-state snapshot of the session. written once by the
	// snapshot worker, before inPlayback becomes true, and never mutated
	// after that. safe for the seek worker to read concurrently
	reference []byte
}

func newStatus() *status {
	st := &status{
		currentFrame: NoFrame,
		targetFrame:  NoTarget,
	}
	st.intervalReached = sync.NewCond(&st.crit)
	st.targetReached = sync.NewCond(&st.crit)
	st.seekRequested = sync.NewCond(&st.crit)
	return st
}

// clear returns every field to its between-sessions value. workers must have
// terminated before this is called, or they would be reading freed buffers.
func (st *status) clear() {
	st.crit.Lock()
	defer st.crit.Unlock()

	st.inPlayback = false
	st.currentFrame = NoFrame
	st.targetFrame = NoTarget
	st.jumpBack = false
	st.jumpForward = false
	st.fastForward = false
	st.reference = nil
}

// Report is a point-in-time copy of the observable playback state, suitable
// for a UI or the control package.
type Report struct {
	CurrentFrame int  `json:"currentFrame"`
	LatestFrame  int  `json:"latestFrame"`
	FirstFrame   int  `json:"firstFrame"`
	InPlayback   bool `json:"inPlayback"`
	FastForward  bool `json:"fastForward"`
	Seeking      bool `json:"seeking"`

	// TargetFrame is only meaningful when Seeking is true
	TargetFrame int `json:"targetFrame"`
}

func (st *status) report() Report {
	st.crit.Lock()
	defer st.crit.Unlock()

	r := Report{
		CurrentFrame: st.currentFrame,
		LatestFrame:  st.latestFrame,
		FirstFrame:   st.firstFrame,
		InPlayback:   st.inPlayback,
		FastForward:  st.fastForward,
		Seeking:      st.jumpBack || st.jumpForward || st.targetFrame != NoTarget,
	}
	if st.targetFrame != NoTarget {
		r.TargetFrame = st.targetFrame
	}
	return r
}
