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

// Host is how the engine controls the wrapped simulation. The simulation
// itself calls back into the engine through OnFrameAdvance() once per
// simulated frame.
//
// Pause() and Resume() must not wait for the simulation loop to actually
// reach its pause point. The simulation thread may at that moment be blocked
// inside OnFrameAdvance() and waiting for it would deadlock the seek worker.
type Host interface {
	Pause()
	Resume()
	Paused() bool

	// SetUnthrottled requests that the simulation run at maximum speed,
	// ignoring its normal pacing. Used to close the gap between a restored
	// snapshot and a seek target.
	SetUnthrottled(enable bool)
}

// SnapshotStore produces and consumes opaque full-state buffers for the
// wrapped simulation. Both functions are synchronous and either may fail.
type SnapshotStore interface {
	CaptureFullState() ([]byte, error)
	RestoreFullState(state []byte) error
}

// DiffCodec encodes one state buffer against a reference buffer and decodes
// the result back. Decode(ref, Encode(ref, cur)) must reproduce cur exactly.
// Implementations must be safe for concurrent use. The delta package
// provides the usual implementation.
type DiffCodec interface {
	Encode(reference, current []byte) ([]byte, error)
	Decode(reference, diff []byte) ([]byte, error)
}

// Mode of replay selection offered by a Source.
type Mode string

// List of valid Mode values.
const (
	ModeNormal Mode = "normal"
	ModeQueue  Mode = "queue"
)

// Source is the engine's read-only view of the recorded stream being played
// back, plus the one mutator needed for queue mode.
type Source interface {
	// FirstFrame is the first reconstructable frame of the recording. Fixed
	// for the lifetime of a playback session.
	FirstFrame() int

	// LatestFrame is the highest frame known to exist in the recorded
	// stream. Advances as new data arrives.
	LatestFrame() int

	Mode() Mode

	// Bounds returns the configured start/end frame window of the current
	// replay. Only meaningful in queue mode.
	Bounds() (start, end int)

	// WidenBounds grows the start/end window so that it includes frame.
	// Called when a seek lands outside the originally configured window,
	// which would otherwise silently clamp the playback back into it.
	WidenBounds(frame int)
}

// Direction of a jump request.
type Direction int

// List of valid Direction values.
const (
	JumpBack Direction = iota
	JumpForward
)

// Notice is sent to the optional notification callback when something
// happens that the host may want to surface to the user.
type Notice int

// List of valid Notice values.
const (
	// a seek was abandoned because the snapshot restore failed. the
	// simulation state is unchanged
	NoticeSeekFailed Notice = iota
)
