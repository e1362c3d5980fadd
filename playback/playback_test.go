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
	"testing"
	"time"

	"github.com/splitframe/timewarp/playback"
	"github.com/splitframe/timewarp/test"
)

const eventually = 10 * time.Second

func startSession(t *testing.T, h *harness, opts playback.Options) *playback.Engine {
	return startSessionCodec(t, h, &identityCodec{}, opts)
}

func startSessionCodec(t *testing.T, h *harness, codec playback.DiffCodec, opts playback.Options) *playback.Engine {
	t.Helper()

	eng := playback.NewEngine(h, h, codec, h, opts)
	h.engine = eng

	eng.Start()
	go h.run()

	t.Cleanup(func() {
		eng.Reset()
		h.halt()
	})

	return eng
}

// at the first reconstructable frame the reference snapshot is captured and
// playback becomes seekable. at the next interval boundary a diff entry
// appears in the archive.
func TestReferenceAndDiffProduction(t *testing.T) {
	h := newHarness(0, 1000)
	eng := startSession(t, h, playback.Options{})

	test.DemandTimely(t, eventually, func() bool {
		return eng.Report().InPlayback
	})

	test.DemandTimely(t, eventually, func() bool {
		result, _ := eng.Archive().Query(900)
		return result == playback.Resolved
	})

	// the first frame holds the reference snapshot, never a diff
	result, _ := eng.Archive().Query(0)
	test.ExpectEquality(t, result, playback.Absent)
}

// seeking backward restores the reference snapshot and fast-forwards to the
// target frame.
func TestSeekBackward(t *testing.T) {
	h := newHarness(0, 5000)
	eng := startSession(t, h, playback.Options{})

	test.DemandTimely(t, eventually, func() bool {
		return eng.Report().CurrentFrame >= 1000
	})

	// pause, as a user scrubbing the timeline would have
	h.Pause()

	eng.RequestSeek(50)

	test.DemandTimely(t, eventually, func() bool {
		r := eng.Report()
		return !r.Seeking && r.CurrentFrame >= 50
	})

	// the restore went through the reference snapshot, which was captured
	// at (or a handful of frames after) frame 0
	restored := h.restoredFrames()
	test.DemandEquality(t, len(restored) >= 1, true)
	test.ExpectEquality(t, restored[0] <= 10, true)

	// fast-forward happened and stopped near the target. well short of the
	// pre-seek position in any case
	r := eng.Report()
	test.ExpectEquality(t, r.CurrentFrame >= 50 && r.CurrentFrame < 900, true)
	test.ExpectEquality(t, r.FastForward, false)
	test.ExpectSuccess(t, h.everUnthrottled.Load())
}

// a forward jump within the current interval needs no snapshot restore at
// all: the engine fast-forwards from the present state.
func TestJumpForward(t *testing.T) {
	h := newHarness(0, 5000)
	eng := startSession(t, h, playback.Options{})

	test.DemandTimely(t, eventually, func() bool {
		return eng.Report().CurrentFrame >= 200
	})
	h.Pause()

	before := eng.Report().CurrentFrame
	target := before + playback.DefJumpInterval

	eng.RequestJump(playback.JumpForward)

	test.DemandTimely(t, eventually, func() bool {
		r := eng.Report()
		return !r.Seeking && r.CurrentFrame >= target
	})

	// no state was restored on the way
	test.ExpectEquality(t, len(h.restoredFrames()), 0)

	r := eng.Report()
	test.ExpectEquality(t, r.CurrentFrame >= target && r.CurrentFrame < target+600, true)
}

// a backward jump past the start of the recording clamps to the first
// reconstructable frame. the target coincides with the reference snapshot so
// no fast-forward is needed.
func TestJumpBackClampsToStart(t *testing.T) {
	h := newHarness(0, 5000)
	eng := startSession(t, h, playback.Options{})

	test.DemandTimely(t, eventually, func() bool {
		return eng.Report().CurrentFrame >= 100
	})
	h.Pause()

	eng.RequestJump(playback.JumpBack)

	test.DemandTimely(t, eventually, func() bool {
		r := eng.Report()
		return !r.Seeking && len(h.restoredFrames()) >= 1
	})

	restored := h.restoredFrames()
	test.ExpectEquality(t, restored[0] <= 10, true)

	// the target equals the restored boundary: no fast-forward
	test.ExpectEquality(t, eng.Report().FastForward, false)
}

// seeking past the end of the recording clamps to the latest frame and
// skips the fast-forward branch entirely.
func TestSeekPastEnd(t *testing.T) {
	h := newHarness(0, 2000)
	eng := startSession(t, h, playback.Options{})

	test.DemandTimely(t, eventually, func() bool {
		return eng.Report().CurrentFrame >= 2000
	})

	eng.RequestSeek(999999)

	test.DemandTimely(t, eventually, func() bool {
		return !eng.Report().Seeking
	})

	// already at the latest frame: nothing to restore, nothing to
	// fast-forward
	test.ExpectEquality(t, len(h.restoredFrames()), 0)
	test.ExpectFailure(t, h.everUnthrottled.Load())
	test.ExpectEquality(t, eng.Report().CurrentFrame, 2000)
}

// a reset while the seek worker is blocked waiting for a fast-forward
// target unblocks the wait and terminates both workers promptly.
func TestResetDuringFastForward(t *testing.T) {
	h := newHarness(0, 5000)
	h.avail = 1000 // the recording claims 5000 frames but only 1000 exist yet
	eng := startSession(t, h, playback.Options{})

	test.DemandTimely(t, eventually, func() bool {
		return eng.Report().CurrentFrame >= 1000
	})

	// the target cannot be reached: the simulation runs out of frames at
	// 1000 and the seek worker blocks in its fast-forward wait
	eng.RequestSeek(3000)

	test.DemandTimely(t, eventually, func() bool {
		return eng.Report().FastForward
	})

	done := make(chan bool)
	go func() {
		eng.Reset()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(eventually):
		t.Fatal("Reset() did not unblock the fast-forward wait")
	}

	r := eng.Report()
	test.ExpectEquality(t, r.InPlayback, false)
	test.ExpectEquality(t, r.Seeking, false)
	test.ExpectEquality(t, r.FastForward, false)
}

// a transient failure of the reference capture must not wedge the session.
// the capture is retried at the next interval boundary, which becomes the
// session's first reconstructable frame.
func TestReferenceCaptureRetried(t *testing.T) {
	h := newHarness(0, 5000)
	h.failCaptures = 1
	eng := startSession(t, h, playback.Options{Interval: 100})

	test.DemandTimely(t, eventually, func() bool {
		return eng.Report().InPlayback
	})

	// the failed boundary was abandoned and a later one adopted
	first := eng.Report().FirstFrame
	test.ExpectEquality(t, first >= 100 && first%100 == 0, true)

	// the session is seekable after the retry
	test.DemandTimely(t, eventually, func() bool {
		return eng.Report().CurrentFrame >= first+250
	})
	h.Pause()

	eng.RequestSeek(first)

	test.DemandTimely(t, eventually, func() bool {
		return !eng.Report().Seeking && len(h.restoredFrames()) >= 1
	})

	// the restore went through the reference snapshot, captured at (or a
	// handful of frames after) the adopted first frame
	restored := h.restoredFrames()
	test.ExpectEquality(t, restored[0] >= first && restored[0] <= first+10, true)
}

// a seek request arriving while a fast-forward is already in progress
// retargets it, but never to a frame past the end of the recording.
func TestRetargetDuringFastForward(t *testing.T) {
	h := newHarness(0, 2000)
	eng := startSession(t, h, playback.Options{})

	test.DemandTimely(t, eventually, func() bool {
		return eng.Report().CurrentFrame >= 1000
	})
	h.Pause()

	// a backward seek forces a reference restore and a long fast-forward
	eng.RequestSeek(800)
	test.DemandTimely(t, eventually, func() bool {
		return eng.Report().FastForward
	})

	// mid-fast-forward, ask for a frame far past the recording. the request
	// is clamped to the latest frame, which the simulation can reach
	eng.RequestSeek(999999)

	test.DemandTimely(t, eventually, func() bool {
		return !eng.Report().Seeking
	})
	test.ExpectEquality(t, eng.Report().CurrentFrame <= 2000, true)
}

// seek and jump requests are ignored until the reference snapshot exists.
func TestRequestsBeforePlayback(t *testing.T) {
	h := newHarness(0, 1000)

	codec := &identityCodec{}
	eng := playback.NewEngine(h, h, codec, h, playback.Options{})
	h.engine = eng

	// engine not started: requests are dropped
	eng.RequestSeek(500)
	eng.RequestJump(playback.JumpForward)
	test.ExpectEquality(t, eng.Report().Seeking, false)

	// reset of a never-started engine is fine
	eng.Reset()
	eng.Reset()
}

// queue mode: a seek outside the configured window widens the window rather
// than being clamped back into it.
func TestQueueModeWidensBounds(t *testing.T) {
	h := newHarness(0, 5000)
	h.mode = playback.ModeQueue
	h.boundsStart = 600
	h.boundsEnd = 1200
	eng := startSession(t, h, playback.Options{})

	test.DemandTimely(t, eventually, func() bool {
		return eng.Report().CurrentFrame >= 1000
	})
	h.Pause()

	eng.RequestSeek(50)

	test.DemandTimely(t, eventually, func() bool {
		return !eng.Report().Seeking
	})

	start, _ := h.Bounds()
	test.ExpectEquality(t, start <= 50, true)
}
