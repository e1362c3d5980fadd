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

package playback_test

import (
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/splitframe/timewarp/playback"
)

// harness is a tiny deterministic simulation for exercising the engine. The
// entire simulation state is the frame counter, so a full-state snapshot is
// just the frame number encoded in eight bytes.
//
// It implements playback.Host, playback.SnapshotStore and playback.Source.
// The simulation runs on its own goroutine, advancing a frame at a time and
// calling OnFrameAdvance, just as a real host would.
type harness struct {
	engine *playback.Engine

	crit   sync.Mutex
	resume *sync.Cond
	paused bool
	frame  int
	stop   bool

	// frames the recorded stream claims to have vs frames the simulation
	// can actually advance through. distinct so that tests can model a
	// recording that is still growing
	latest int
	avail  int

	first       int
	mode        playback.Mode
	boundsStart int
	boundsEnd   int

	// every frame number passed to RestoreFullState, in order
	restored []int

	// number of CaptureFullState calls to fail before captures succeed
	failCaptures int

	unthrottled     atomic.Bool
	everUnthrottled atomic.Bool

	// per-frame delay while throttled and while fast-forwarding. the
	// fast-forward delay is non-zero so that overshoot past a target frame
	// stays small no matter how slowly the seek worker is scheduled
	pacing    time.Duration
	ffwPacing time.Duration
}

func newHarness(first, latest int) *harness {
	h := &harness{
		frame:       first - 1,
		first:       first,
		latest:      latest,
		avail:       latest,
		mode:        playback.ModeNormal,
		boundsStart: first,
		boundsEnd:   latest,
		pacing:      200 * time.Microsecond,
		ffwPacing:   50 * time.Microsecond,
	}
	h.resume = sync.NewCond(&h.crit)
	return h
}

// run is the host simulation loop. Stops advancing (but keeps polling) when
// the available frames are exhausted, like a playback host waiting for more
// of the recording to arrive.
func (h *harness) run() {
	for {
		h.crit.Lock()
		for h.paused && !h.stop {
			h.resume.Wait()
		}
		if h.stop {
			h.crit.Unlock()
			return
		}
		if h.frame >= h.avail {
			h.crit.Unlock()
			time.Sleep(time.Millisecond)
			continue
		}
		h.frame++
		frame := h.frame
		h.crit.Unlock()

		h.engine.OnFrameAdvance(frame)

		if h.unthrottled.Load() {
			time.Sleep(h.ffwPacing)
		} else {
			time.Sleep(h.pacing)
		}
	}
}

func (h *harness) halt() {
	h.crit.Lock()
	h.stop = true
	h.resume.Broadcast()
	h.crit.Unlock()
}

// Pause implements the playback.Host interface.
func (h *harness) Pause() {
	h.crit.Lock()
	h.paused = true
	h.crit.Unlock()
}

// Resume implements the playback.Host interface.
func (h *harness) Resume() {
	h.crit.Lock()
	h.paused = false
	h.resume.Broadcast()
	h.crit.Unlock()
}

// Paused implements the playback.Host interface.
func (h *harness) Paused() bool {
	h.crit.Lock()
	defer h.crit.Unlock()
	return h.paused
}

// SetUnthrottled implements the playback.Host interface.
func (h *harness) SetUnthrottled(enable bool) {
	h.unthrottled.Store(enable)
	if enable {
		h.everUnthrottled.Store(true)
	}
}

// CaptureFullState implements the playback.SnapshotStore interface.
func (h *harness) CaptureFullState() ([]byte, error) {
	h.crit.Lock()
	defer h.crit.Unlock()
	if h.failCaptures > 0 {
		h.failCaptures--
		return nil, errors.New("capture failed")
	}
	state := make([]byte, 8)
	binary.LittleEndian.PutUint64(state, uint64(h.frame))
	return state, nil
}

// RestoreFullState implements the playback.SnapshotStore interface.
func (h *harness) RestoreFullState(state []byte) error {
	frame := int(binary.LittleEndian.Uint64(state))
	h.crit.Lock()
	defer h.crit.Unlock()
	h.frame = frame
	h.restored = append(h.restored, frame)
	return nil
}

func (h *harness) restoredFrames() []int {
	h.crit.Lock()
	defer h.crit.Unlock()
	return append([]int(nil), h.restored...)
}

func (h *harness) currentFrame() int {
	h.crit.Lock()
	defer h.crit.Unlock()
	return h.frame
}

// FirstFrame implements the playback.Source interface.
func (h *harness) FirstFrame() int {
	return h.first
}

// LatestFrame implements the playback.Source interface.
func (h *harness) LatestFrame() int {
	h.crit.Lock()
	defer h.crit.Unlock()
	return h.latest
}

// Mode implements the playback.Source interface.
func (h *harness) Mode() playback.Mode {
	return h.mode
}

// Bounds implements the playback.Source interface.
func (h *harness) Bounds() (int, int) {
	h.crit.Lock()
	defer h.crit.Unlock()
	return h.boundsStart, h.boundsEnd
}

// WidenBounds implements the playback.Source interface.
func (h *harness) WidenBounds(frame int) {
	h.crit.Lock()
	defer h.crit.Unlock()
	if frame < h.boundsStart {
		h.boundsStart = frame
	}
	if frame > h.boundsEnd {
		h.boundsEnd = frame
	}
}

// identityCodec is the simplest possible diff codec: the "diff" is the
// current buffer itself. Keeps the scenario tests independent of the delta
// package.
type identityCodec struct {
	// number of concurrent Encode calls and the highest value it reached
	concurrent    atomic.Int32
	maxConcurrent atomic.Int32

	// optional delay per Encode, for backpressure tests
	encodeDelay time.Duration
}

// Encode implements the playback.DiffCodec interface.
func (c *identityCodec) Encode(reference, current []byte) ([]byte, error) {
	n := c.concurrent.Add(1)
	defer c.concurrent.Add(-1)
	for {
		max := c.maxConcurrent.Load()
		if n <= max || c.maxConcurrent.CompareAndSwap(max, n) {
			break
		}
	}

	if c.encodeDelay > 0 {
		time.Sleep(c.encodeDelay)
	}
	return append([]byte(nil), current...), nil
}

// Decode implements the playback.DiffCodec interface.
func (c *identityCodec) Decode(reference, diff []byte) ([]byte, error) {
	return append([]byte(nil), diff...), nil
}
