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

// Package playback implements the replay seek-and-snapshot engine. It lets a
// deterministic, frame-stepped simulation be scrubbed forward and backward
// in time during a recorded playback session, without re-simulating from the
// very beginning and without a full state snapshot at every frame.
//
// The engine combines one full reference snapshot, captured at the first
// reconstructable frame of the session, with delta-compressed diffs computed
// asynchronously against that reference at every snapshot interval. A seek
// restores the nearest reconstructable state at or before the target frame
// and then fast-forwards the simulation, unthrottled, to close the remaining
// gap.
//
// Three threads of control cooperate. The host simulation thread calls
// Engine.OnFrameAdvance() once per simulated frame on its own pacing. The
// snapshot worker produces the reference snapshot and the diffs. The seek
// worker services seek and jump requests. All three share a single status
// record and the diff archive, under the locking discipline documented on
// the status type.
//
// The number of diff computations in flight is bounded. When the bound is
// reached the host simulation thread blocks inside OnFrameAdvance() until a
// slot frees, so a simulation racing ahead of diff computation can never
// grow memory without bound.
//
// Cancellation is cooperative. Engine.Reset() sets the running flag to
// false, wakes every blocked wait, joins both workers, and only then clears
// the buffers, so no worker can ever touch freed state.
package playback
