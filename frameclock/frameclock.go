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

// Package frameclock gathers the frame arithmetic used by the playback
// package. Frame deltas can be negative (seeking backward past an interval
// boundary) so the modulo here is the mathematical one, not the truncating
// remainder of the % operator.
package frameclock

// PositiveMod returns a value in the range [0, |b|) for any integer a and any
// non-zero b. Note that the result of the % operator for a negative a would
// be negative.
//
// The function panics if b is zero, in keeping with the % operator.
func PositiveMod(a, b int) int {
	r := a % b
	if r < 0 {
		if b < 0 {
			r -= b
		} else {
			r += b
		}
	}
	return r
}

// NearestIntervalFrame returns the latest interval boundary at or before
// frame. Boundaries are counted from firstFrame in steps of interval.
func NearestIntervalFrame(frame, firstFrame, interval int) int {
	return frame - PositiveMod(frame-firstFrame, interval)
}

// IsIntervalFrame returns true if frame is exactly on an interval boundary.
func IsIntervalFrame(frame, firstFrame, interval int) bool {
	return PositiveMod(frame-firstFrame, interval) == 0
}

// Clamp bounds frame to the range [firstFrame, lastFrame]. An empty range
// (lastFrame below firstFrame, as with a recording that has announced its
// first frame but holds no frames yet) clamps to firstFrame.
func Clamp(frame, firstFrame, lastFrame int) int {
	if frame < firstFrame || lastFrame < firstFrame {
		return firstFrame
	}
	if frame > lastFrame {
		return lastFrame
	}
	return frame
}
